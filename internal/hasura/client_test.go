package hasura

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/graphql"
)

type gqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

func newMetadata(t *testing.T, handler func(r *http.Request, req gqlRequest) string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(handler(r, req)))
	}))
	t.Cleanup(server.Close)
	gql := graphql.NewClient(server.URL,
		graphql.WithService("hasura"),
		graphql.WithHeader(AdminSecretHeader, "s3cret"),
		graphql.WithRetryDelay(time.Millisecond))
	return NewClient(gql)
}

func TestClient_AssetMetadata(t *testing.T) {
	client := newMetadata(t, func(r *http.Request, req gqlRequest) string {
		if r.Header.Get(AdminSecretHeader) != "s3cret" {
			t.Errorf("missing admin secret header")
		}
		if req.Variables["id"] != "0xabc" {
			t.Errorf("expected lower-case id, got %v", req.Variables["id"])
		}
		return `{"data":{"asset_by_pk":{"id":"0xabc","private":true,"isin":"US0378331005","value_in_base_currency":"12.5"}}}`
	})

	m, err := client.AssetMetadata(context.Background(), "0xABC")
	if err != nil {
		t.Fatalf("AssetMetadata: %v", err)
	}
	if m == nil || !m.Private || m.ISIN != "US0378331005" {
		t.Fatalf("unexpected metadata %+v", m)
	}
	if !m.ValueInBaseCurrency.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("unexpected value %s", m.ValueInBaseCurrency)
	}
}

func TestClient_AssetMetadata_Missing(t *testing.T) {
	client := newMetadata(t, func(r *http.Request, req gqlRequest) string {
		return `{"data":{"asset_by_pk":null}}`
	})

	m, err := client.AssetMetadata(context.Background(), "0x1")
	if err != nil || m != nil {
		t.Errorf("expected nil metadata, got %+v, %v", m, err)
	}
}

func TestClient_AssetMetadataBatch(t *testing.T) {
	var calls int
	client := newMetadata(t, func(r *http.Request, req gqlRequest) string {
		calls++
		return `{"data":{"asset":[{"id":"0xA","private":false,"isin":null,"value_in_base_currency":7}]}}`
	})

	empty, err := client.AssetMetadataBatch(context.Background(), nil)
	if err != nil || len(empty) != 0 || calls != 0 {
		t.Fatalf("expected no call for empty batch")
	}
	batch, err := client.AssetMetadataBatch(context.Background(), []string{"0xA", "0xB"})
	if err != nil {
		t.Fatalf("AssetMetadataBatch: %v", err)
	}
	m, ok := batch["0xa"]
	if !ok || m.ISIN != "" || !m.ValueInBaseCurrency.Equal(decimal.NewFromInt(7)) {
		t.Errorf("unexpected batch %+v", batch)
	}
}

func TestClient_UpsertAssetMetadata(t *testing.T) {
	client := newMetadata(t, func(r *http.Request, req gqlRequest) string {
		obj := req.Variables["object"].(map[string]any)
		if obj["value_in_base_currency"] != "3.14" || obj["isin"] != nil {
			t.Errorf("unexpected object %v", obj)
		}
		return `{"data":{"insert_asset_one":{"id":"0xa"}}}`
	})

	v := decimal.RequireFromString("3.14")
	if err := client.UpsertAssetMetadata(context.Background(), domain.AssetMetadata{ID: "0xA", ValueInBaseCurrency: &v}); err != nil {
		t.Fatalf("UpsertAssetMetadata: %v", err)
	}
}

func TestClient_RegulationConfigs(t *testing.T) {
	client := newMetadata(t, func(r *http.Request, req gqlRequest) string {
		return `{"data":{"regulation_configs":[{"id":"r1","asset_id":"0xa","regulation_type":"mica","status":"compliant",
			"reserve_status":"pending","last_audit_date":null,"created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-02T00:00:00Z",
			"documents":[{"id":"d1","kind":"audit","file_name":"a.pdf","content_type":"application/pdf","size":42,
				"object_key":"0xa/d1/a.pdf","uploaded_by":"u1","uploaded_at":"2024-01-01T10:00:00Z"}]}]}}`
	})

	configs, err := client.RegulationConfigs(context.Background(), "0xA")
	if err != nil {
		t.Fatalf("RegulationConfigs: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("expected 1 config, got %d", len(configs))
	}
	c := configs[0]
	if c.Type != domain.RegulationMiCA || c.ReserveStatus != domain.ReservePending || c.LastAuditDate != nil {
		t.Errorf("unexpected config %+v", c)
	}
	if len(c.Documents) != 1 || c.Documents[0].Asset != "0xa" || c.Documents[0].Size != 42 {
		t.Errorf("unexpected documents %+v", c.Documents)
	}
}

func TestClient_RemoveRegulationDocument_NotFound(t *testing.T) {
	client := newMetadata(t, func(r *http.Request, req gqlRequest) string {
		return `{"data":{"delete_regulation_documents_by_pk":null}}`
	})

	err := client.RemoveRegulationDocument(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
