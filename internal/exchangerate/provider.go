package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
)

// ProviderName labels rates fetched from the open exchange-rate API.
const ProviderName = "er-api"

// Latest is one snapshot of rates quoted against Base.
type Latest struct {
	Base      domain.Currency
	Rates     map[domain.Currency]decimal.Decimal
	UpdatedAt time.Time
}

// Provider fetches the latest rates for a base currency.
type Provider interface {
	Latest(ctx context.Context, base domain.Currency) (*Latest, error)
}

// HTTPProvider reads GET {baseURL}/latest/{base}.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider for the API rooted at baseURL.
// A nil client uses a 10s-timeout default.
func NewHTTPProvider(baseURL string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProvider{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type latestResponse struct {
	Result             string                     `json:"result"`
	ErrorType          string                     `json:"error-type"`
	BaseCode           string                     `json:"base_code"`
	TimeLastUpdateUnix int64                      `json:"time_last_update_unix"`
	Rates              map[string]decimal.Decimal `json:"rates"`
}

// Latest fetches rates for base. Currencies outside the supported set are dropped.
func (p *HTTPProvider) Latest(ctx context.Context, base domain.Currency) (*Latest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/latest/"+string(base), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read rates: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rates: HTTP %d", resp.StatusCode)
	}

	var out latestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if out.Result != "success" {
		return nil, fmt.Errorf("fetch rates: provider result %q (%s)", out.Result, out.ErrorType)
	}
	// Rates quoted against another base would be stored under the wrong pairs.
	if got := domain.Currency(strings.ToUpper(out.BaseCode)); got != base {
		return nil, fmt.Errorf("fetch rates: provider quoted base %q, want %s", out.BaseCode, base)
	}

	latest := &Latest{
		Base:      base,
		Rates:     make(map[domain.Currency]decimal.Decimal, len(domain.SupportedCurrencies)),
		UpdatedAt: time.Unix(out.TimeLastUpdateUnix, 0).UTC(),
	}
	for code, rate := range out.Rates {
		c := domain.Currency(strings.ToUpper(code))
		if c.IsValid() && rate.IsPositive() {
			latest.Rates[c] = rate
		}
	}
	if out.TimeLastUpdateUnix == 0 {
		latest.UpdatedAt = time.Now().UTC()
	}
	return latest, nil
}
