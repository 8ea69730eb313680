package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bankfeed-dev/bankfeed/internal/dates"
	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Config represents the top-level bankfeed.yaml configuration.
type Config struct {
	Import     ImportConfig     `yaml:"import"`
	Processing ProcessingConfig `yaml:"processing"`
	Duplicates DuplicatesConfig `yaml:"duplicates"`
	Transfers  TransfersConfig  `yaml:"transfers"`
}

// ImportConfig controls file handling and parsing.
type ImportConfig struct {
	DefaultAccount string `yaml:"default_account"`
	DateFormat     string `yaml:"date_format,omitempty"` // e.g. "MM/DD/YYYY"; empty means auto
	SignConvention string `yaml:"sign_convention"`       // "negative_is_expense" or "positive_is_expense"
	CommitBatch    int    `yaml:"commit_batch"`
}

// ProcessingConfig holds the per-run pipeline toggles.
type ProcessingConfig struct {
	NormalizePayee        bool `yaml:"normalize_payee"`
	ApplyAutoRules        bool `yaml:"apply_auto_rules"`
	DetectDuplicates      bool `yaml:"detect_duplicates"`
	SuggestTransfers      bool `yaml:"suggest_transfers"`
	SaveProcessingHistory bool `yaml:"save_processing_history"`
}

// DuplicatesConfig tunes duplicate detection.
type DuplicatesConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// TransfersConfig tunes transfer suggestion.
type TransfersConfig struct {
	MaxDaysApart   int     `yaml:"max_days_apart"`
	MaxSuggestions int     `yaml:"max_suggestions"`
	MinScore       float64 `yaml:"min_score"`
}

// Load reads a bankfeed.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
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

// Default returns a Config with the standard pipeline defaults.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			SignConvention: "negative_is_expense",
			CommitBatch:    100,
		},
		Processing: ProcessingConfig{
			NormalizePayee:        true,
			ApplyAutoRules:        true,
			DetectDuplicates:      true,
			SuggestTransfers:      true,
			SaveProcessingHistory: true,
		},
		Duplicates: DuplicatesConfig{
			SimilarityThreshold: 0.85,
		},
		Transfers: TransfersConfig{
			MaxDaysApart:   3,
			MaxSuggestions: 50,
			MinScore:       0.5,
		},
	}
}

// DateFormat resolves the configured date format hint.
func (c *Config) DateFormat() (dates.Format, error) {
	if c.Import.DateFormat == "" {
		return dates.FormatUnknown, nil
	}
	for _, f := range dates.Formats() {
		if string(f) == c.Import.DateFormat {
			return f, nil
		}
	}
	return dates.FormatUnknown, fmt.Errorf("unknown date format %q", c.Import.DateFormat)
}

// SignConvention resolves the configured sign convention.
func (c *Config) SignConvention() (model.SignConvention, error) {
	switch c.Import.SignConvention {
	case "negative_is_expense":
		return model.SignNegativeIsExpense, nil
	case "positive_is_expense":
		return model.SignPositiveIsExpense, nil
	case "":
		return model.SignUnset, nil
	}
	return model.SignUnset, fmt.Errorf("unknown sign convention %q", c.Import.SignConvention)
}
