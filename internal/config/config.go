// Package config holds the typed configuration shared by cmd/server and
// cmd/atkctl. The server fills it from flags with environment defaults;
// atkctl fills it through viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"asset-tokenization-kit/internal/domain"
)

// Config is the complete runtime configuration.
type Config struct {
	HTTPAddr    string   `mapstructure:"http_addr"`
	LogLevel    string   `mapstructure:"log_level"`
	LogFormat   string   `mapstructure:"log_format"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// TrustedProxies are peers (IPs or CIDRs) whose X-Forwarded-For is honoured.
	TrustedProxies []string `mapstructure:"trusted_proxies"`

	UseMemory     bool   `mapstructure:"use_memory"`
	StubServices  bool   `mapstructure:"stub_services"` // in-process Portal, TheGraph and Hasura
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`
	RedisURL      string `mapstructure:"redis_url"`

	Portal       PortalConfig       `mapstructure:"portal"`
	TheGraph     TheGraphConfig     `mapstructure:"thegraph"`
	Hasura       HasuraConfig       `mapstructure:"hasura"`
	Minio        MinioConfig        `mapstructure:"minio"`
	Auth         AuthConfig         `mapstructure:"auth"`
	ExchangeRate ExchangeRateConfig `mapstructure:"exchange_rate"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	Factories    FactoriesConfig    `mapstructure:"factories"`
}

type PortalConfig struct {
	URL            string        `mapstructure:"url"`
	WSURL          string        `mapstructure:"ws_url"`
	AccessToken    string        `mapstructure:"access_token"`
	ReceiptTimeout time.Duration `mapstructure:"receipt_timeout"`
	WaitReceipts   bool          `mapstructure:"wait_receipts"`
}

type TheGraphConfig struct {
	URL string `mapstructure:"url"`
}

type HasuraConfig struct {
	URL         string `mapstructure:"url"`
	AdminSecret string `mapstructure:"admin_secret"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type AuthConfig struct {
	Secret           string        `mapstructure:"secret"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	SessionUpdateAge time.Duration `mapstructure:"session_update_age"`
	RateLimitWindow  time.Duration `mapstructure:"rate_limit_window"`
	RateLimitMax     int           `mapstructure:"rate_limit_max"`
	Issuer           string        `mapstructure:"issuer"`
}

type ExchangeRateConfig struct {
	APIURL   string        `mapstructure:"api_url"`
	Base     string        `mapstructure:"base"`
	Interval time.Duration `mapstructure:"interval"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// FactoriesConfig holds the deployed factory contract addresses.
type FactoriesConfig struct {
	Bond           string `mapstructure:"bond"`
	Cryptocurrency string `mapstructure:"cryptocurrency"`
	Equity         string `mapstructure:"equity"`
	Fund           string `mapstructure:"fund"`
	Stablecoin     string `mapstructure:"stablecoin"`
	Deposit        string `mapstructure:"deposit"`
	FixedYield     string `mapstructure:"fixed_yield"`
	Airdrop        string `mapstructure:"airdrop"`
}

// ByType maps asset types to their configured factory. Unset factories are omitted.
func (f FactoriesConfig) ByType() map[domain.AssetType]string {
	all := map[domain.AssetType]string{
		domain.AssetTypeBond:           f.Bond,
		domain.AssetTypeCryptocurrency: f.Cryptocurrency,
		domain.AssetTypeEquity:         f.Equity,
		domain.AssetTypeFund:           f.Fund,
		domain.AssetTypeStablecoin:     f.Stablecoin,
		domain.AssetTypeDeposit:        f.Deposit,
	}
	out := make(map[domain.AssetType]string, len(all))
	for t, addr := range all {
		if addr != "" {
			out[t] = addr
		}
	}
	return out
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTPAddr:  ":8080",
		LogLevel:  "info",
		LogFormat: "json",
		Portal: PortalConfig{
			ReceiptTimeout: 2 * time.Minute,
		},
		Minio: MinioConfig{
			Bucket: "documents",
		},
		Auth: AuthConfig{
			SessionTTL:       7 * 24 * time.Hour,
			SessionUpdateAge: 24 * time.Hour,
			RateLimitWindow:  10 * time.Second,
			RateLimitMax:     5,
			Issuer:           "asset-tokenization-kit",
		},
		ExchangeRate: ExchangeRateConfig{
			APIURL:   "https://open.er-api.com/v6",
			Base:     "USD",
			Interval: time.Hour,
			CacheTTL: time.Hour,
		},
		Tracing: TracingConfig{
			ServiceName: "atk-server",
			SampleRatio: 1,
		},
	}
}

// FromEnv overlays environment variables onto Default. getenv is usually
// os.Getenv.
func FromEnv(getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	c := Default()

	str := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v := getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	boolean := func(dst *bool, key string) {
		if v := getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	integer := func(dst *int, key string) {
		if v := getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str(&c.HTTPAddr, "HTTP_ADDR")
	str(&c.LogLevel, "LOG_LEVEL")
	str(&c.LogFormat, "LOG_FORMAT")
	if v := getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = SplitList(v)
	}
	if v := getenv("TRUSTED_PROXIES"); v != "" {
		c.TrustedProxies = SplitList(v)
	}

	boolean(&c.UseMemory, "USE_MEMORY")
	boolean(&c.StubServices, "STUB_SERVICES")
	str(&c.PostgresDSN, "POSTGRES_DSN")
	str(&c.ClickHouseDSN, "CLICKHOUSE_DSN")
	str(&c.RedisURL, "REDIS_URL")

	str(&c.Portal.URL, "PORTAL_URL")
	str(&c.Portal.WSURL, "PORTAL_WS_URL")
	str(&c.Portal.AccessToken, "PORTAL_ACCESS_TOKEN")
	dur(&c.Portal.ReceiptTimeout, "PORTAL_RECEIPT_TIMEOUT")
	boolean(&c.Portal.WaitReceipts, "PORTAL_WAIT_RECEIPTS")

	str(&c.TheGraph.URL, "THEGRAPH_URL")
	str(&c.Hasura.URL, "HASURA_URL")
	str(&c.Hasura.AdminSecret, "HASURA_ADMIN_SECRET")

	str(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	str(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	str(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	str(&c.Minio.Bucket, "MINIO_BUCKET")
	boolean(&c.Minio.UseSSL, "MINIO_USE_SSL")

	str(&c.Auth.Secret, "AUTH_SECRET")
	dur(&c.Auth.SessionTTL, "AUTH_SESSION_TTL")
	dur(&c.Auth.SessionUpdateAge, "AUTH_SESSION_UPDATE_AGE")
	dur(&c.Auth.RateLimitWindow, "AUTH_RATE_LIMIT_WINDOW")
	integer(&c.Auth.RateLimitMax, "AUTH_RATE_LIMIT_MAX")

	str(&c.ExchangeRate.APIURL, "EXCHANGE_RATE_API_URL")
	str(&c.ExchangeRate.Base, "EXCHANGE_RATE_BASE")
	dur(&c.ExchangeRate.Interval, "EXCHANGE_RATE_INTERVAL")
	dur(&c.ExchangeRate.CacheTTL, "EXCHANGE_RATE_CACHE_TTL")

	str(&c.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	str(&c.Tracing.ServiceName, "OTEL_SERVICE_NAME")
	boolean(&c.Tracing.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
	if v := getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r >= 0 && r <= 1 {
			c.Tracing.SampleRatio = r
		}
	}

	str(&c.Factories.Bond, "FACTORY_BOND")
	str(&c.Factories.Cryptocurrency, "FACTORY_CRYPTOCURRENCY")
	str(&c.Factories.Equity, "FACTORY_EQUITY")
	str(&c.Factories.Fund, "FACTORY_FUND")
	str(&c.Factories.Stablecoin, "FACTORY_STABLECOIN")
	str(&c.Factories.Deposit, "FACTORY_DEPOSIT")
	str(&c.Factories.FixedYield, "FACTORY_FIXED_YIELD")
	str(&c.Factories.Airdrop, "FACTORY_AIRDROP")

	return c
}

// Validate checks the fields the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if !c.StubServices {
		if c.Portal.URL == "" {
			errs = append(errs, errors.New("portal url is required"))
		}
		if c.TheGraph.URL == "" {
			errs = append(errs, errors.New("thegraph url is required"))
		}
		if c.Hasura.URL == "" {
			errs = append(errs, errors.New("hasura url is required"))
		}
	}
	if len(c.Auth.Secret) < 32 {
		errs = append(errs, errors.New("auth secret must be at least 32 bytes"))
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		errs = append(errs, errors.New("postgres dsn is required (use memory storage otherwise)"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.Auth.RateLimitMax <= 0 || c.Auth.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate limit window and max must be positive"))
	}
	if _, err := ParsePrefixes(c.TrustedProxies); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParsePrefixes parses IPs and CIDRs. A bare IP becomes a single-host prefix.
func ParsePrefixes(items []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(items))
	for _, item := range items {
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", item, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", item, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// SplitList splits a comma-separated list and drops empty items.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
