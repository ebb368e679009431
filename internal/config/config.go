package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledgerflow/internal/vocab"
)

// FileName is the project config file at the repository root.
const FileName = "ledgerflow.yaml"

// Config represents the top-level ledgerflow.yaml configuration.
type Config struct {
	Business     BusinessConfig    `yaml:"business"`
	Fiscal       FiscalConfig      `yaml:"fiscal"`
	BankAccounts []BankAccount     `yaml:"bank_accounts,omitempty"`
	Thresholds   ThresholdsConfig  `yaml:"thresholds"`
	Storage      StorageConfig     `yaml:"storage"`
	Log          LogConfig         `yaml:"log"`
	Classifier   ClassifierConfig  `yaml:"classifier"`
	Matching     MatchingConfig    `yaml:"matching"`
	Ledger       LedgerConfig      `yaml:"ledger"`
	Tax          TaxConfig         `yaml:"tax"`
	Vocabulary   *vocab.Vocabulary `yaml:"vocabulary,omitempty"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name       string `yaml:"name"`
	CompanyID  string `yaml:"company_id"`
	EntityType string `yaml:"entity_type"`
	Currency   string `yaml:"currency"`
}

// FiscalConfig defines the fiscal year boundaries.
type FiscalConfig struct {
	YearStart string `yaml:"year_start"` // "MM-DD" format, e.g. "04-01"
}

// BankAccount maps a bank feed to a chart-of-accounts code.
type BankAccount struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	LastFour    string `yaml:"last_four"`
	AccountCode string `yaml:"account_code"`
}

// ThresholdsConfig controls automatic posting and matching (0-100).
type ThresholdsConfig struct {
	AutoPost  int `yaml:"auto_post"`
	AutoMatch int `yaml:"auto_match"`
}

// StorageConfig locates the relational store.
type StorageConfig struct {
	Path string `yaml:"path"` // relative to the repo root unless absolute
}

// LogConfig controls structured logging and the decision log.
type LogConfig struct {
	Level       string `yaml:"level"`
	DecisionLog bool   `yaml:"decision_log"`
}

// ClassifierConfig tunes the classification cascade.
type ClassifierConfig struct {
	CacheTTL             string         `yaml:"cache_ttl"`
	HistoryLookbackDays  int            `yaml:"history_lookback_days"`
	AmountDateWindowDays int            `yaml:"amount_date_window_days"`
	External             ExternalConfig `yaml:"external"`
}

// ExternalConfig selects and bounds the optional external classifier.
type ExternalConfig struct {
	Provider      string  `yaml:"provider"` // none, gemini, bayesian
	Model         string  `yaml:"model"`
	Timeout       string  `yaml:"timeout"`
	MaxConfidence int     `yaml:"max_confidence"`
	MinConfidence int     `yaml:"min_confidence"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
	APIKey        string  `yaml:"-"`
}

// MatchingConfig holds the reconciliation tier tolerances.
type MatchingConfig struct {
	LookbackDays    int     `yaml:"lookback_days"`
	ExactAmount     string  `yaml:"exact_amount"`
	ExactDays       int     `yaml:"exact_days"`
	ExactSimilarity float64 `yaml:"exact_similarity"`
	FuzzyPercent    float64 `yaml:"fuzzy_percent"`
	FuzzyDays       int     `yaml:"fuzzy_days"`
	FuzzySimilarity float64 `yaml:"fuzzy_similarity"`
	PatternPercent  float64 `yaml:"pattern_percent"`
	PatternDays     int     `yaml:"pattern_days"`
	SplitPercent    float64 `yaml:"split_percent"`
	SplitDays       int     `yaml:"split_days"`
}

// LedgerConfig holds posting policy.
type LedgerConfig struct {
	Tolerance         string `yaml:"tolerance"`
	Scale             int32  `yaml:"scale"`
	BankAccount       string `yaml:"bank_account"`
	ReceivableAccount string `yaml:"receivable_account"`
	PayableAccount    string `yaml:"payable_account"`
}

// TaxConfig selects the tax regime used to split gross amounts.
type TaxConfig struct {
	Regime string    `yaml:"regime"` // gst, none
	GST    GSTConfig `yaml:"gst"`
}

// GSTConfig is the table-driven GST policy. Rates are percentages.
type GSTConfig struct {
	DefaultRate   string            `yaml:"default_rate"`
	InputAccount  string            `yaml:"input_account"`
	OutputAccount string            `yaml:"output_account"`
	Rates         map[string]string `yaml:"rates"`
}

// Load reads a ledgerflow.yaml file from disk. Fields missing from the file
// keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", "")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// LoadEnv reads <dir>/.env if present, then applies environment overrides.
func LoadEnv(dir string, cfg *Config) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	ApplyEnv(cfg)
	return nil
}

// ApplyEnv overrides config fields from LEDGERFLOW_* and API key variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("LEDGERFLOW_DB"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("LEDGERFLOW_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LEDGERFLOW_CLASSIFIER"); v != "" {
		cfg.Classifier.External.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Classifier.External.APIKey = v
	} else if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Classifier.External.APIKey = v
	}
}

// Validate checks the parseable fields and the embedded vocabulary.
func (c *Config) Validate() error {
	for name, s := range map[string]string{
		"classifier.cache_ttl":        c.Classifier.CacheTTL,
		"classifier.external.timeout": c.Classifier.External.Timeout,
	} {
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
	}
	for name, s := range map[string]string{
		"ledger.tolerance":      c.Ledger.Tolerance,
		"matching.exact_amount": c.Matching.ExactAmount,
		"tax.gst.default_rate":  c.Tax.GST.DefaultRate,
	} {
		if _, err := decimal.NewFromString(s); err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
	}
	for cat, rate := range c.Tax.GST.Rates {
		if _, err := decimal.NewFromString(rate); err != nil {
			return fmt.Errorf("config tax.gst.rates[%s]: %w", cat, err)
		}
	}
	switch c.Tax.Regime {
	case "gst", "none":
	default:
		return fmt.Errorf("config tax.regime: unknown regime %q", c.Tax.Regime)
	}
	switch c.Classifier.External.Provider {
	case "", "none", "gemini", "bayesian":
	default:
		return fmt.Errorf("config classifier.external.provider: unknown provider %q", c.Classifier.External.Provider)
	}
	if c.Vocabulary != nil {
		if err := c.Vocabulary.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// Vocab returns the configured vocabulary or the built-in default.
func (c *Config) Vocab() *vocab.Vocabulary {
	if c.Vocabulary != nil {
		return c.Vocabulary
	}
	return vocab.Default()
}

// CacheTTL is the classification cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return durationOr(c.Classifier.CacheTTL, time.Hour)
}

// ExternalTimeout bounds each external classifier call.
func (c *Config) ExternalTimeout() time.Duration {
	return durationOr(c.Classifier.External.Timeout, 5*time.Second)
}

// Tolerance is the maximum debit/credit imbalance accepted by the poster.
func (c *Config) Tolerance() decimal.Decimal {
	return decimalOr(c.Ledger.Tolerance, decimal.NewFromFloat(0.01))
}

// DatabasePath resolves the store path against the repo root.
func (c *Config) DatabasePath(repoRoot string) string {
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(repoRoot, c.Storage.Path)
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func decimalOr(s string, def decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return def
	}
	return d
}

// Decimal parses s, returning zero for empty or malformed input.
func Decimal(s string) decimal.Decimal {
	return decimalOr(s, decimal.Zero)
}

// Default returns a Config with sensible defaults for a new project.
func Default(businessName, entityType string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:       businessName,
			CompanyID:  "default",
			EntityType: entityType,
			Currency:   "INR",
		},
		Fiscal: FiscalConfig{
			YearStart: "04-01",
		},
		Thresholds: ThresholdsConfig{
			AutoPost:  70,
			AutoMatch: 70,
		},
		Storage: StorageConfig{
			Path: "ledgerflow.db",
		},
		Log: LogConfig{
			Level:       "info",
			DecisionLog: true,
		},
		Classifier: ClassifierConfig{
			CacheTTL:             "1h",
			HistoryLookbackDays:  180,
			AmountDateWindowDays: 30,
			External: ExternalConfig{
				Provider:      "none",
				Model:         "gemini-2.5-flash",
				Timeout:       "5s",
				MaxConfidence: 85,
				MinConfidence: 50,
				RatePerSecond: 2,
				Burst:         1,
			},
		},
		Matching: MatchingConfig{
			LookbackDays:    90,
			ExactAmount:     "1",
			ExactDays:       1,
			ExactSimilarity: 0.9,
			FuzzyPercent:    2,
			FuzzyDays:       3,
			FuzzySimilarity: 0.7,
			PatternPercent:  5,
			PatternDays:     7,
			SplitPercent:    1,
			SplitDays:       3,
		},
		Ledger: LedgerConfig{
			Tolerance:         "0.01",
			Scale:             2,
			BankAccount:       "1010",
			ReceivableAccount: "1200",
			PayableAccount:    "2010",
		},
		Tax: TaxConfig{
			Regime: "gst",
			GST: GSTConfig{
				DefaultRate:   "0",
				InputAccount:  "1300",
				OutputAccount: "2100",
				Rates: map[string]string{
					"Software & Subscriptions": "18",
					"Professional Fees":        "18",
					"Marketing":                "18",
					"Rent":                     "18",
					"Office Supplies":          "18",
					"Utilities":                "18",
					"Bank Charges":             "18",
					"Insurance":                "18",
					"Meals":                    "5",
					"Travel":                   "5",
					"Sales":                    "18",
				},
			},
		},
	}
}
