package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/graphql"
)

// DefaultKeyVaultID is the Portal key vault custodial wallets are created in.
const DefaultKeyVaultID = "atk-hd-wallet"

// Client implements Portal over GraphQL.
type Client struct {
	gql        *graphql.Client
	keyVaultID string

	wsEndpoint string
	wsHeader   http.Header
	wsMu       sync.Mutex
	ws         *graphql.SubscriptionClient
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithKeyVaultID sets the key vault used by CreateWallet.
func WithKeyVaultID(id string) ClientOption {
	return func(c *Client) {
		c.keyVaultID = id
	}
}

// WithSubscriptions enables receipt subscriptions over endpoint.
func WithSubscriptions(endpoint string, header http.Header) ClientOption {
	return func(c *Client) {
		c.wsEndpoint = endpoint
		c.wsHeader = header
	}
}

// NewClient wraps a GraphQL client pointed at Portal.
func NewClient(gql *graphql.Client, opts ...ClientOption) *Client {
	c := &Client{gql: gql, keyVaultID: DefaultKeyVaultID}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateWallet creates a custodial wallet.
func (c *Client) CreateWallet(ctx context.Context, name string) (string, error) {
	var out struct {
		CreateWallet struct {
			Address string `json:"address"`
		} `json:"createWallet"`
	}
	vars := map[string]any{"keyVaultId": c.keyVaultID, "name": name}
	if err := c.gql.Do(ctx, "CreateWallet", createWalletMutation, vars, &out); err != nil {
		return "", fmt.Errorf("create wallet: %w", err)
	}
	if out.CreateWallet.Address == "" {
		return "", errors.New("create wallet: empty address")
	}
	return out.CreateWallet.Address, nil
}

// CreateWalletVerification registers a verification on wallet.
func (c *Client) CreateWalletVerification(ctx context.Context, wallet string, spec VerificationSpec) (*WalletVerification, error) {
	info, err := verificationInfo(spec)
	if err != nil {
		return nil, err
	}

	var out struct {
		CreateWalletVerification wireVerification `json:"createWalletVerification"`
	}
	vars := map[string]any{"userWalletAddress": wallet, "verificationInfo": info}
	if err := c.gql.Do(ctx, "CreateWalletVerification", createWalletVerificationMutation, vars, &out); err != nil {
		return nil, fmt.Errorf("create wallet verification: %w", err)
	}
	v := out.CreateWalletVerification.toVerification()
	if v.ID == "" {
		return nil, errors.New("create wallet verification: empty id")
	}
	return v, nil
}

func verificationInfo(spec VerificationSpec) (map[string]any, error) {
	name := spec.Name
	if name == "" {
		name = strings.ToLower(string(spec.Type))
	}
	switch spec.Type {
	case domain.VerificationPincode:
		return map[string]any{"pincode": map[string]any{"name": name, "pincode": spec.Pincode}}, nil
	case domain.VerificationOTP:
		return map[string]any{"otp": map[string]any{
			"name":      name,
			"algorithm": "SHA256",
			"digits":    6,
			"period":    30,
			"issuer":    spec.Issuer,
		}}, nil
	case domain.VerificationSecretCodes:
		return map[string]any{"secretCodes": map[string]any{"name": name}}, nil
	}
	return nil, fmt.Errorf("unknown verification type %q", spec.Type)
}

// DeleteWalletVerification removes a verification.
func (c *Client) DeleteWalletVerification(ctx context.Context, wallet, verificationID string) error {
	var out struct {
		DeleteWalletVerification struct {
			Success bool `json:"success"`
		} `json:"deleteWalletVerification"`
	}
	vars := map[string]any{"userWalletAddress": wallet, "verificationId": verificationID}
	if err := c.gql.Do(ctx, "DeleteWalletVerification", deleteWalletVerificationMutation, vars, &out); err != nil {
		return fmt.Errorf("delete wallet verification: %w", err)
	}
	if !out.DeleteWalletVerification.Success {
		return fmt.Errorf("delete wallet verification %s: not deleted", verificationID)
	}
	return nil
}

// CreateVerificationChallenges issues challenges for wallet.
func (c *Client) CreateVerificationChallenges(ctx context.Context, wallet string) ([]VerificationChallenge, error) {
	var out struct {
		Challenges []struct {
			ID               string                  `json:"id"`
			Name             string                  `json:"name"`
			VerificationID   string                  `json:"verificationId"`
			VerificationType domain.VerificationType `json:"verificationType"`
			Challenge        *struct {
				Salt   string `json:"salt"`
				Secret string `json:"secret"`
			} `json:"challenge"`
		} `json:"createWalletVerificationChallenges"`
	}
	vars := map[string]any{"userWalletAddress": wallet}
	if err := c.gql.Do(ctx, "CreateWalletVerificationChallenges", createVerificationChallengesMutation, vars, &out); err != nil {
		return nil, fmt.Errorf("create verification challenges: %w", err)
	}

	challenges := make([]VerificationChallenge, 0, len(out.Challenges))
	for _, ch := range out.Challenges {
		vc := VerificationChallenge{
			ID:               ch.ID,
			Name:             ch.Name,
			VerificationID:   ch.VerificationID,
			VerificationType: ch.VerificationType,
		}
		if ch.Challenge != nil {
			vc.Salt = ch.Challenge.Salt
			vc.Secret = ch.Challenge.Secret
		}
		challenges = append(challenges, vc)
	}
	return challenges, nil
}

// VerifyWalletVerificationChallenge checks a response.
func (c *Client) VerifyWalletVerificationChallenge(ctx context.Context, wallet, verificationID, response string) (bool, error) {
	var out struct {
		Verify []struct {
			Verified bool `json:"verified"`
		} `json:"verifyWalletVerificationChallenge"`
	}
	vars := map[string]any{
		"userWalletAddress": wallet,
		"verificationId":    verificationID,
		"challengeResponse": response,
	}
	if err := c.gql.Do(ctx, "VerifyWalletVerificationChallenge", verifyChallengeMutation, vars, &out); err != nil {
		return false, fmt.Errorf("verify challenge: %w", mapError(err))
	}
	for _, v := range out.Verify {
		if v.Verified {
			return true, nil
		}
	}
	return false, nil
}

// Submit relays a contract call.
func (c *Client) Submit(ctx context.Context, call Call) (string, error) {
	name := call.Mutation()
	vars := map[string]any{
		"address":           call.Address,
		"from":              call.From,
		"input":             call.Input,
		"challengeResponse": call.Verification.ChallengeResponse,
		"verificationId":    call.Verification.VerificationID,
	}
	if call.Verification.ChallengeID != "" {
		vars["challengeId"] = call.Verification.ChallengeID
	}
	if call.Input == nil {
		vars["input"] = map[string]any{}
	}

	var out map[string]struct {
		TransactionHash string `json:"transactionHash"`
	}
	if err := c.gql.Do(ctx, name, fmt.Sprintf(contractCallTemplate, name), vars, &out); err != nil {
		return "", fmt.Errorf("%s: %w", name, mapError(err))
	}
	hash := out[name].TransactionHash
	if hash == "" {
		return "", fmt.Errorf("%s: empty transaction hash", name)
	}
	return hash, nil
}

// GetTransaction fetches the receipt for hash.
func (c *Client) GetTransaction(ctx context.Context, hash string) (*domain.Receipt, error) {
	var out struct {
		GetTransaction *struct {
			Receipt *wireReceipt `json:"receipt"`
		} `json:"getTransaction"`
	}
	vars := map[string]any{"transactionHash": hash}
	if err := c.gql.Do(ctx, "GetTransaction", getTransactionQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if out.GetTransaction == nil || out.GetTransaction.Receipt == nil {
		return nil, nil
	}
	return out.GetTransaction.Receipt.toReceipt(hash), nil
}

// SubscribeTransaction streams the receipt for hash once it is mined.
// The returned channel yields at most one receipt and is then closed.
func (c *Client) SubscribeTransaction(ctx context.Context, hash string) (<-chan *domain.Receipt, func(), error) {
	ws, err := c.subscriptions(ctx)
	if err != nil {
		return nil, nil, err
	}

	sub, err := ws.Subscribe(ctx, "WatchTransaction", watchTransactionSubscription, map[string]any{"transactionHash": hash})
	if err != nil {
		c.dropSubscriptions(ws)
		return nil, nil, fmt.Errorf("subscribe transaction: %w", err)
	}

	out := make(chan *domain.Receipt, 1)
	go func() {
		defer close(out)
		for msg := range sub.C {
			if len(msg.Errors) > 0 {
				return
			}
			var data struct {
				GetTransaction *struct {
					Receipt *wireReceipt `json:"receipt"`
				} `json:"getTransaction"`
			}
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				return
			}
			if data.GetTransaction != nil && data.GetTransaction.Receipt != nil {
				out <- data.GetTransaction.Receipt.toReceipt(hash)
				sub.Close()
				return
			}
		}
	}()
	return out, sub.Close, nil
}

func (c *Client) subscriptions(ctx context.Context) (*graphql.SubscriptionClient, error) {
	if c.wsEndpoint == "" {
		return nil, ErrSubscriptionsDisabled
	}

	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws != nil && c.ws.Err() == nil {
		return c.ws, nil
	}

	cfg := graphql.DefaultSubscriptionConfig()
	if auth := c.wsHeader.Get("Authorization"); auth != "" {
		cfg.InitPayload = map[string]any{"headers": map[string]string{"Authorization": auth}}
	}
	ws, err := graphql.Dial(ctx, c.wsEndpoint, c.wsHeader, &cfg)
	if err != nil {
		return nil, fmt.Errorf("dial portal subscriptions: %w", err)
	}
	c.ws = ws
	return ws, nil
}

func (c *Client) dropSubscriptions(ws *graphql.SubscriptionClient) {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws == ws {
		c.ws.Close()
		c.ws = nil
	}
}

// Close releases the subscription connection, if any.
func (c *Client) Close() error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws != nil {
		err := c.ws.Close()
		c.ws = nil
		return err
	}
	return nil
}

// mapError turns Portal's challenge rejections into ErrInvalidChallengeResponse.
func mapError(err error) error {
	var gqlErrs graphql.Errors
	if !errors.As(err, &gqlErrs) {
		return err
	}
	for _, e := range gqlErrs {
		msg := strings.ToLower(e.Message)
		if e.Code() == "INVALID_CHALLENGE_RESPONSE" || strings.Contains(msg, "challenge") {
			return fmt.Errorf("%w: %s", ErrInvalidChallengeResponse, e.Message)
		}
	}
	return err
}

type wireVerification struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name"`
	VerificationType domain.VerificationType `json:"verificationType"`
	Parameters       map[string]any          `json:"parameters"`
}

func (w wireVerification) toVerification() *WalletVerification {
	v := &WalletVerification{
		ID:         w.ID,
		Name:       w.Name,
		Type:       w.VerificationType,
		Parameters: make(map[string]string, len(w.Parameters)),
	}
	for k, val := range w.Parameters {
		switch t := val.(type) {
		case string:
			v.Parameters[k] = t
		case []any:
			parts := make([]string, 0, len(t))
			for _, p := range t {
				parts = append(parts, fmt.Sprint(p))
			}
			v.Parameters[k] = strings.Join(parts, ",")
		default:
			v.Parameters[k] = fmt.Sprint(t)
		}
	}
	return v
}

type wireReceipt struct {
	TransactionHash     string   `json:"transactionHash"`
	Status              string   `json:"status"`
	BlockNumber         flexInt  `json:"blockNumber"`
	GasUsed             flexText `json:"gasUsed"`
	ContractAddress     string   `json:"contractAddress"`
	RevertReasonDecoded string   `json:"revertReasonDecoded"`
}

func (w *wireReceipt) toReceipt(hash string) *domain.Receipt {
	r := &domain.Receipt{
		TransactionHash: w.TransactionHash,
		Status:          w.Status,
		BlockNumber:     int64(w.BlockNumber),
		GasUsed:         string(w.GasUsed),
		ContractAddress: w.ContractAddress,
		RevertReason:    w.RevertReasonDecoded,
	}
	if r.TransactionHash == "" {
		r.TransactionHash = hash
	}
	return r
}

// flexInt accepts a JSON number or a decimal string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse block number %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}

// flexText accepts a JSON number or string and keeps its text.
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexText(s)
	return nil
}

var _ Portal = (*Client)(nil)
