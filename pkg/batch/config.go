package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultChannels are the device terminals extracted from I-V sweeps.
var DefaultChannels = []string{
	"substrate OuterVoltage",
	"gate InnerVoltage",
	"drain InnerVoltage",
	"drain eCurrent",
}

// Output formats understood by the table writers.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Config controls discovery, extraction and output of a batch run.
type Config struct {
	// Extraction
	Channels []string `json:"channels"` // requested channels in output order

	// Discovery
	Extensions []string `json:"extensions"` // lower-case, with leading dot (default: .plt, .txt)
	Recursive  bool     `json:"recursive"`  // descend into sub-directories (default: false)

	// Execution
	Workers int `json:"workers"` // concurrent documents (default: 4)

	// Output
	OutputDir string `json:"output_dir"` // empty: sibling "Csv" folder of the input
	Format    string `json:"format"`     // csv or parquet (default: csv)
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() *Config {
	return &Config{
		Channels:   append([]string(nil), DefaultChannels...),
		Extensions: []string{".plt", ".txt"},
		Recursive:  false,
		Workers:    4,
		OutputDir:  "",
		Format:     FormatCSV,
	}
}

// Validate checks the configuration for errors and normalizes extensions.
func (c *Config) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("batch: no channels requested")
	}

	if c.Workers < 1 {
		c.Workers = 1
	}

	if len(c.Extensions) == 0 {
		return fmt.Errorf("batch: no file extensions configured")
	}
	for i, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			return fmt.Errorf("batch: empty file extension")
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extensions[i] = ext
	}

	c.Format = strings.ToLower(c.Format)
	switch c.Format {
	case "":
		c.Format = FormatCSV
	case FormatCSV, FormatParquet:
	default:
		return fmt.Errorf("batch: unknown output format %q", c.Format)
	}

	return nil
}

// MatchesExtension reports whether path carries one of the configured
// extensions (case-insensitive).
func (c *Config) MatchesExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range c.Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// LoadConfig reads a JSON file and applies it over DefaultConfig. Fields
// absent from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("batch: read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("batch: decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
