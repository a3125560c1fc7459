package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cbotrade/paperfloor/internal/domain"
)

// Price source selectors.
const (
	PriceSourceStatic  = "static"
	PriceSourceBinance = "binance"
)

// Config is the resolved application configuration.
type Config struct {
	AppID       string
	Pair        domain.Pair
	SeedQuote   decimal.Decimal
	SeedBase    decimal.Decimal
	PriceSource string

	// StoreURL enables the shared chat when non-empty.
	StoreURL  string
	AuthURL   string
	AuthToken string

	LLMAPIURL string
	LLMAPIKey string
	LLMModel  string

	WebAddr       string
	TLSDomains    []string
	JournalDir    string
	ChartInterval string

	RefreshInterval time.Duration
}

type configYaml struct {
	AppID       string `yaml:"app_id"`
	Pair        string `yaml:"pair"`
	SeedQuote   string `yaml:"seed_quote,omitempty"`
	SeedBase    string `yaml:"seed_base,omitempty"`
	PriceSource string `yaml:"price_source,omitempty"`

	StoreURL  string `yaml:"store_url,omitempty"`
	AuthURL   string `yaml:"auth_url,omitempty"`
	AuthToken string `yaml:"auth_token,omitempty"`

	LLMAPIURL string `yaml:"llm_api_url,omitempty"`
	LLMAPIKey string `yaml:"llm_api_key,omitempty"`
	LLMModel  string `yaml:"llm_model,omitempty"`

	WebAddr       string   `yaml:"web_addr,omitempty"`
	TLSDomains    []string `yaml:"tls_domains,omitempty"`
	JournalDir    string   `yaml:"journal_dir,omitempty"`
	ChartInterval string   `yaml:"chart_interval,omitempty"`

	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`
}

// Default returns the configuration used when no yaml file exists yet.
func Default() Config {
	return Config{
		AppID:           "paperfloor",
		Pair:            domain.Pair{Base: "BTC", Quote: "USDT"},
		SeedQuote:       decimal.NewFromInt(10000),
		SeedBase:        decimal.RequireFromString("0.5"),
		PriceSource:     PriceSourceStatic,
		WebAddr:         ":8080",
		ChartInterval:   "1h",
		RefreshInterval: 30 * time.Second,
	}
}

// Load reads the yaml config at path, fills defaults and validates.
func Load(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var raw configYaml
	if err := yaml.Unmarshal(f, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return resolve(raw)
}

func resolve(raw configYaml) (Config, error) {
	cfg := Default()

	if raw.AppID != "" {
		cfg.AppID = raw.AppID
	}
	if raw.Pair != "" {
		pair, err := PairFromString(raw.Pair)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'pair' param in yaml config: %s: %w", raw.Pair, err)
		}
		cfg.Pair = pair
	}
	if raw.SeedQuote != "" {
		seed, err := decimal.NewFromString(raw.SeedQuote)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'seed_quote' param in yaml config: %w", err)
		}
		cfg.SeedQuote = seed
	}
	if raw.SeedBase != "" {
		seed, err := decimal.NewFromString(raw.SeedBase)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'seed_base' param in yaml config: %w", err)
		}
		cfg.SeedBase = seed
	}
	if raw.PriceSource != "" {
		cfg.PriceSource = raw.PriceSource
	}

	cfg.StoreURL = raw.StoreURL
	cfg.AuthURL = raw.AuthURL
	cfg.AuthToken = raw.AuthToken
	cfg.LLMAPIURL = raw.LLMAPIURL
	cfg.LLMAPIKey = raw.LLMAPIKey
	cfg.LLMModel = raw.LLMModel
	cfg.TLSDomains = raw.TLSDomains
	cfg.JournalDir = raw.JournalDir

	if raw.WebAddr != "" {
		cfg.WebAddr = raw.WebAddr
	}
	if raw.ChartInterval != "" {
		cfg.ChartInterval = raw.ChartInterval
	}
	if raw.RefreshInterval != 0 {
		cfg.RefreshInterval = raw.RefreshInterval
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the resolved configuration for consistency.
func (c Config) Validate() error {
	if c.AppID == "" {
		return fmt.Errorf("app_id is required")
	}
	if c.Pair.Base == "" || c.Pair.Quote == "" {
		return fmt.Errorf("pair is required, example: BTC_USDT")
	}
	if c.SeedQuote.IsNegative() || c.SeedBase.IsNegative() {
		return fmt.Errorf("seed balances must be non-negative")
	}
	if c.PriceSource != PriceSourceStatic && c.PriceSource != PriceSourceBinance {
		return fmt.Errorf("price_source must be %q or %q, got %q",
			PriceSourceStatic, PriceSourceBinance, c.PriceSource)
	}
	if c.ChatEnabled() && c.AuthBaseURL() == "" {
		return fmt.Errorf("auth_url or store_url is required when chat is enabled")
	}
	if c.LLMAPIKey != "" && c.LLMAPIURL == "" {
		return fmt.Errorf("llm_api_url is required when llm_api_key is set")
	}
	if c.WebAddr == "" {
		return fmt.Errorf("web_addr is required")
	}
	return nil
}

// ChatEnabled reports whether the shared chat is configured.
func (c Config) ChatEnabled() bool {
	return c.StoreURL != ""
}

// AdviceEnabled reports whether the advice backend is configured.
func (c Config) AdviceEnabled() bool {
	return c.LLMAPIKey != "" && c.LLMAPIURL != ""
}

// AuthBaseURL returns the auth service base URL, falling back to the
// store URL when the services share a host.
func (c Config) AuthBaseURL() string {
	if c.AuthURL != "" {
		return c.AuthURL
	}
	return c.StoreURL
}

// Save writes the configuration as yaml, creating the file if needed.
func (c Config) Save(path string) error {
	raw := configYaml{
		AppID:           c.AppID,
		Pair:            c.Pair.String(),
		SeedQuote:       c.SeedQuote.String(),
		SeedBase:        c.SeedBase.String(),
		PriceSource:     c.PriceSource,
		StoreURL:        c.StoreURL,
		AuthURL:         c.AuthURL,
		AuthToken:       c.AuthToken,
		LLMAPIURL:       c.LLMAPIURL,
		LLMAPIKey:       c.LLMAPIKey,
		LLMModel:        c.LLMModel,
		WebAddr:         c.WebAddr,
		TLSDomains:      c.TLSDomains,
		JournalDir:      c.JournalDir,
		ChartInterval:   c.ChartInterval,
		RefreshInterval: c.RefreshInterval,
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// PairFromString parses "BTC_USDT" style pair strings.
func PairFromString(pairStr string) (domain.Pair, error) {
	parts := strings.Split(strings.TrimSpace(pairStr), "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return domain.Pair{}, fmt.Errorf("invalid pair param")
	}
	return domain.Pair{Base: parts[0], Quote: parts[1]}, nil
}
