package persist

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config controls where the coordinator keeps its log and how noisy it is.
type Config struct {
	// Dir is the directory holding the WAL file. Created on Open if missing.
	Dir string `yaml:"dir" validate:"required"`

	// LogFile is the WAL file name inside Dir.
	LogFile string `yaml:"log_file" validate:"required"`

	// LogLevel is the coordinator's logging threshold.
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// CompactThresholdBytes suggests compaction once the log grows past
	// this size. Zero disables the suggestion; compaction itself is always
	// explicit.
	CompactThresholdBytes int64 `yaml:"compact_threshold_bytes" validate:"min=0"`
}

// DefaultConfig returns a config suitable for local use
func DefaultConfig() Config {
	return Config{
		Dir:                   "data",
		LogFile:               "flux.wal",
		LogLevel:              "info",
		CompactThresholdBytes: 64 << 20,
	}
}

// LoadConfig reads and validates a YAML config file. Missing fields fall
// back to DefaultConfig values before validation.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config against its struct tags
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("config field %s failed %s validation", f.Field(), f.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
