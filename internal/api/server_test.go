package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-tokenization-kit/internal/assets"
	"asset-tokenization-kit/internal/auth"
	"asset-tokenization-kit/internal/cache"
	"asset-tokenization-kit/internal/config"
	"asset-tokenization-kit/internal/documents"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/exchangerate"
	hasurastub "asset-tokenization-kit/internal/hasura/stub"
	"asset-tokenization-kit/internal/objectstore"
	portalstub "asset-tokenization-kit/internal/portal/stub"
	"asset-tokenization-kit/internal/storage"
	"asset-tokenization-kit/internal/storage/memory"
	thegraphstub "asset-tokenization-kit/internal/thegraph/stub"
)

const (
	equityAddr = "0x1111111111111111111111111111111111111111"
	privAddr   = "0x2222222222222222222222222222222222222222"
	recipient  = "0x6666666666666666666666666666666666666666"
)

type testEnv struct {
	handler http.Handler
	portal  *portalstub.Portal
	indexer *thegraphstub.Indexer
	stores  *storage.Stores
}

type noProvider struct{}

func (noProvider) Latest(context.Context, domain.Currency) (*exchangerate.Latest, error) {
	return nil, fmt.Errorf("offline")
}

func newTestEnv(t *testing.T, limit int) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &testEnv{
		portal:  portalstub.NewPortal(),
		indexer: thegraphstub.NewIndexer(),
		stores:  memory.NewStores(),
	}
	meta := hasurastub.NewMetadata()
	c := cache.NewMemory(time.Minute, time.Minute)

	rates := exchangerate.NewService(exchangerate.Options{
		Provider: noProvider{},
		Store:    env.stores.ExchangeRates,
		History:  env.stores.RateHistory,
		Cache:    c,
		Logger:   logger,
	})
	srv := New(Options{
		Auth: auth.NewService(auth.Options{
			Users:    env.stores.Users,
			Sessions: env.stores.Sessions,
			Wallets:  env.portal,
			Secret:   []byte("0123456789abcdef0123456789abcdef"),
			Logger:   logger,
		}),
		Assets: assets.NewService(assets.Options{
			Portal:       env.portal,
			Indexer:      env.indexer,
			Metadata:     meta,
			Transactions: env.stores.Transactions,
			Settings:     env.stores.Settings,
			Cache:        c,
			Converter:    rates,
			Logger:       logger,
		}),
		Documents: documents.NewService(documents.Options{
			Objects:   objectstore.NewMemory("http://objects.test"),
			Documents: env.stores.Documents,
			Metadata:  meta,
			MaxSize:   1 << 10,
			Logger:    logger,
		}),
		ExchangeRates: rates,
		Limiter:       auth.NewRateLimiter(time.Minute, limit),
		Logger:        logger,
	})
	env.handler = srv.Handler()

	env.indexer.PutAsset(domain.Asset{ID: equityAddr, Type: domain.AssetTypeEquity, Symbol: "EQ", Decimals: 6, TotalSupply: decimal.NewFromInt(100)})
	env.indexer.PutAsset(domain.Asset{ID: privAddr, Type: domain.AssetTypeDeposit, Symbol: "PRV", Decimals: 2, Private: true})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signUp(t *testing.T, email string) auth.SessionResult {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/sign-up", "", map[string]string{
		"name": "Test", "email": email, "password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res auth.SessionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return res
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealthAndUnknownRoute(t *testing.T) {
	env := newTestEnv(t, 10)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))

	rec = env.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", string(decodeError(t, rec).Code))
}

func TestSignUpSessionAndSignOut(t *testing.T) {
	env := newTestEnv(t, 10)
	res := env.signUp(t, "first@example.com")
	assert.Equal(t, domain.UserRoleAdmin, res.User.Role, "first user is admin")

	rec := env.do(t, http.MethodGet, "/api/auth/session", res.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "first@example.com")

	second := env.signUp(t, "second@example.com")
	assert.Equal(t, domain.UserRoleUser, second.User.Role)

	rec = env.do(t, http.MethodPost, "/api/auth/sign-out", res.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/auth/session", res.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignUpValidation(t *testing.T) {
	env := newTestEnv(t, 10)

	rec := env.do(t, http.MethodPost, "/api/auth/sign-up", "", map[string]string{
		"name": "x", "email": "not-an-email", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	fields, ok := body.Details["fields"].(map[string]any)
	require.True(t, ok, "details: %v", body.Details)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	rec = env.do(t, http.MethodPost, "/api/auth/sign-up", "", `{"name":"x","email":"a@b.co","password":"12345678","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	env.signUp(t, "dup@example.com")
	rec = env.do(t, http.MethodPost, "/api/auth/sign-up", "", map[string]string{
		"name": "Dup", "email": "DUP@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, 10)

	rec := env.do(t, http.MethodGet, "/api/assets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/assets", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignInRateLimited(t *testing.T) {
	env := newTestEnv(t, 2)
	env.signUp(t, "limit@example.com")

	creds := map[string]string{"email": "limit@example.com", "password": "wrong password"}
	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/api/auth/sign-in", "", creds)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/api/auth/sign-in", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestSignInLimitIgnoresForwardedFor(t *testing.T) {
	env := newTestEnv(t, 2)
	env.signUp(t, "spoof@example.com")

	body := `{"email":"spoof@example.com","password":"wrong password"}`
	var codes []int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{401, 401, 429, 429, 429}, codes)
}

func TestClientIP(t *testing.T) {
	trusted, err := config.ParsePrefixes([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		trusted []netip.Prefix
		remote  string
		xff     string
		want    string
	}{
		{"no proxies configured", nil, "192.0.2.1:1234", "203.0.113.7", "192.0.2.1"},
		{"untrusted peer", trusted, "198.51.100.9:1234", "203.0.113.7", "198.51.100.9"},
		{"trusted peer", trusted, "192.0.2.1:1234", "203.0.113.7", "203.0.113.7"},
		{"spoofed left hop ignored", trusted, "192.0.2.1:1234", "1.1.1.1, 203.0.113.7, 10.1.2.3", "203.0.113.7"},
		{"all hops trusted", trusted, "192.0.2.1:1234", "10.0.0.5", "10.0.0.5"},
		{"garbage hop", trusted, "192.0.2.1:1234", "not-an-ip", "192.0.2.1"},
		{"no header", trusted, "192.0.2.1:1234", "", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{trusted: tt.trusted}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, s.clientIP(req))
		})
	}
}

func TestListAssetsHidesPrivate(t *testing.T) {
	env := newTestEnv(t, 10)
	admin := env.signUp(t, "admin@example.com")
	user := env.signUp(t, "user@example.com")

	list := func(token string) []domain.Asset {
		rec := env.do(t, http.MethodGet, "/api/assets", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out []domain.Asset
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}
	assert.Len(t, list(admin.Token), 2)
	assert.Len(t, list(user.Token), 1)

	rec := env.do(t, http.MethodGet, "/api/assets?type=bogus", user.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/assets/not-an-address", user.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPageLimitBounds(t *testing.T) {
	env := newTestEnv(t, 10)
	admin := env.signUp(t, "pager@example.com")

	rec := env.do(t, http.MethodGet, "/api/assets?limit=9223372036854775807&offset=1", admin.Token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "limit", decodeError(t, rec).Details["field"])

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/assets?limit=%d&offset=1", assets.MaxPageLimit), admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list []domain.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = env.do(t, http.MethodGet, "/api/assets?offset=9223372036854775807", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestMintWithPincode(t *testing.T) {
	env := newTestEnv(t, 10)
	admin := env.signUp(t, "minter@example.com")

	mint := map[string]any{
		"to":           recipient,
		"amount":       "12.5",
		"verification": map[string]string{"code": "123456", "type": "PINCODE"},
	}
	rec := env.do(t, http.MethodPost, "/api/assets/"+equityAddr+"/mint", admin.Token, mint)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "pincode not enabled yet")

	rec = env.do(t, http.MethodPost, "/api/auth/pincode/enable", admin.Token, map[string]string{"pincode": "123456"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/assets/"+equityAddr+"/mint", admin.Token, mint)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res assets.MutationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.TxHashes, 1)

	call := env.portal.LastCall()
	require.NotNil(t, call)
	assert.Equal(t, "12500000", fmt.Sprint(call.Input["amount"]))

	rec = env.do(t, http.MethodGet, "/api/transactions/"+res.TxHashes[0], admin.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	mint["verification"] = map[string]string{"code": "654321", "type": "PINCODE"}
	rec = env.do(t, http.MethodPost, "/api/assets/"+equityAddr+"/mint", admin.Token, mint)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/assets/0x9999999999999999999999999999999999999999/mint", admin.Token, mint)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	mint["amount"] = "-1"
	rec = env.do(t, http.MethodPost, "/api/assets/"+equityAddr+"/mint", admin.Token, mint)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExchangeRates(t *testing.T) {
	env := newTestEnv(t, 10)
	user := env.signUp(t, "fx@example.com")
	now := time.Now().UTC()
	require.NoError(t, env.stores.ExchangeRates.Upsert(context.Background(), []domain.ExchangeRate{
		{Base: domain.CurrencyUSD, Quote: domain.CurrencyEUR, Rate: decimal.RequireFromString("0.9"), Provider: "test", EffectiveAt: now, UpdatedAt: now},
	}))

	rec := env.do(t, http.MethodGet, "/api/exchange-rates/convert?amount=10&from=USD&to=EUR", user.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var conv conversionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.True(t, decimal.NewFromInt(9).Equal(conv.Result), conv.Result.String())

	rec = env.do(t, http.MethodGet, "/api/exchange-rates/convert?amount=10&from=EUR&to=JPY", user.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/exchange-rates/convert?amount=10&from=XXX&to=EUR", user.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/exchange-rates?base=USD", user.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"quote":"EUR"`)
}

func TestBaseCurrencySetting(t *testing.T) {
	env := newTestEnv(t, 10)
	admin := env.signUp(t, "settings@example.com")
	user := env.signUp(t, "viewer@example.com")

	rec := env.do(t, http.MethodPut, "/api/settings/base-currency", user.Token, map[string]string{"currency": "EUR"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/settings/base-currency", admin.Token, map[string]string{"currency": "EUR"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/settings/base-currency", user.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "EUR")
}

func multipartUpload(t *testing.T, token, asset, kind, name, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("asset", asset))
	require.NoError(t, w.WriteField("kind", kind))
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestDocumentLifecycle(t *testing.T) {
	env := newTestEnv(t, 10)
	admin := env.signUp(t, "docs@example.com")
	user := env.signUp(t, "reader@example.com")

	upload := func(token, contentType string, content []byte) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, multipartUpload(t, token, equityAddr, "audit", "report.pdf", contentType, content))
		return rec
	}

	rec := upload(user.Token, "application/pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = upload(admin.Token, "application/x-msdownload", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(admin.Token, "application/pdf", bytes.Repeat([]byte("a"), 2<<10))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "over the size limit")

	rec = upload(admin.Token, "application/pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var doc domain.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "report.pdf", doc.FileName)
	assert.NotEmpty(t, doc.URL)

	rec = env.do(t, http.MethodGet, "/api/documents?asset="+equityAddr, admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), doc.ID)

	rec = env.do(t, http.MethodGet, "/api/documents/regulations?asset="+equityAddr, admin.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "regulations is not routed as a document id")

	rec = env.do(t, http.MethodDelete, "/api/documents/"+doc.ID, admin.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/documents/"+doc.ID, admin.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
