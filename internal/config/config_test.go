package config

import (
	"strings"
	"testing"
	"time"

	"asset-tokenization-kit/internal/domain"
)

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		"HTTP_ADDR":              ":9000",
		"USE_MEMORY":             "true",
		"PORTAL_URL":             "http://portal/graphql",
		"PORTAL_RECEIPT_TIMEOUT": "30s",
		"AUTH_RATE_LIMIT_MAX":    "10",
		"CORS_ORIGINS":           "http://a.test, ,http://b.test",
		"AUTH_SESSION_TTL":       "not-a-duration",
	}
	c := FromEnv(func(k string) string { return env[k] })

	if c.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q", c.HTTPAddr)
	}
	if !c.UseMemory {
		t.Error("UseMemory = false")
	}
	if c.Portal.ReceiptTimeout != 30*time.Second {
		t.Errorf("ReceiptTimeout = %v", c.Portal.ReceiptTimeout)
	}
	if c.Auth.RateLimitMax != 10 {
		t.Errorf("RateLimitMax = %d", c.Auth.RateLimitMax)
	}
	if len(c.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", c.CORSOrigins)
	}
	// Unparseable values keep the default.
	if c.Auth.SessionTTL != 7*24*time.Hour {
		t.Errorf("SessionTTL = %v", c.Auth.SessionTTL)
	}
	if c.ExchangeRate.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v", c.ExchangeRate.CacheTTL)
	}
}

func TestValidate(t *testing.T) {
	c := Default()
	err := c.Validate()
	if err == nil {
		t.Fatal("Validate() on defaults should fail")
	}
	for _, want := range []string{"portal url", "thegraph url", "hasura url", "auth secret", "postgres dsn"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}

	c.Portal.URL = "http://portal"
	c.TheGraph.URL = "http://graph"
	c.Hasura.URL = "http://hasura"
	c.Auth.Secret = strings.Repeat("s", 32)
	c.UseMemory = true
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestValidateStubServices(t *testing.T) {
	c := FromEnv(func(k string) string {
		return map[string]string{
			"STUB_SERVICES": "true",
			"USE_MEMORY":    "true",
			"AUTH_SECRET":   strings.Repeat("s", 32),
		}[k]
	})
	if !c.StubServices {
		t.Fatal("StubServices = false")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() with stubs = %v", err)
	}
}

func TestFactoriesFromEnv(t *testing.T) {
	env := map[string]string{
		"FACTORY_BOND":            "0x0000000000000000000000000000000000000001",
		"FACTORY_STABLECOIN":      "0x0000000000000000000000000000000000000002",
		"FACTORY_FIXED_YIELD":     "0x0000000000000000000000000000000000000003",
		"OTEL_TRACES_SAMPLER_ARG": "0.25",
	}
	c := FromEnv(func(k string) string { return env[k] })

	byType := c.Factories.ByType()
	if len(byType) != 2 {
		t.Fatalf("ByType() = %v, want 2 entries", byType)
	}
	if byType[domain.AssetTypeBond] != env["FACTORY_BOND"] {
		t.Errorf("bond factory = %q", byType[domain.AssetTypeBond])
	}
	if _, ok := byType[domain.AssetTypeEquity]; ok {
		t.Error("unset equity factory should be omitted")
	}
	if c.Factories.FixedYield != env["FACTORY_FIXED_YIELD"] {
		t.Errorf("FixedYield = %q", c.Factories.FixedYield)
	}
	if c.Tracing.SampleRatio != 0.25 {
		t.Errorf("SampleRatio = %v", c.Tracing.SampleRatio)
	}
}
