package config

import (
	"fmt"
	"time"
)

// Config holds cbzmerge configuration.
// Stored at: ./config.yaml or {home}/config.yaml
type Config struct {
	OutputFormat      string   `mapstructure:"output_format" yaml:"output_format" json:"output_format"`                // "cbz" or "pdf", used when the output extension says neither
	OnInvalid         string   `mapstructure:"on_invalid" yaml:"on_invalid" json:"on_invalid"`                         // "skip" or "abort"
	StrictSpreads     bool     `mapstructure:"strict_spreads" yaml:"strict_spreads" json:"strict_spreads"`             // Reject spreads like 18-25.jpg
	MinWidth          int      `mapstructure:"min_width" yaml:"min_width" json:"min_width"`                            // Minimum digits per page number
	ArchiveExtensions []string `mapstructure:"archive_extensions" yaml:"archive_extensions" json:"archive_extensions"` // Extensions picked up from the input directory
	Progress          bool     `mapstructure:"progress" yaml:"progress" json:"progress"`                               // Draw a progress bar on stderr
	LogLevel          string   `mapstructure:"log_level" yaml:"log_level" json:"log_level"`                            // debug, info, warn, error
	Watch             WatchCfg `mapstructure:"watch" yaml:"watch" json:"watch"`
}

// WatchCfg configures watch mode.
type WatchCfg struct {
	// Debounce is how long the input directory must be quiet before a merge
	// runs, as a Go duration ("2s").
	Debounce string `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputFormat:      "cbz",
		OnInvalid:         "skip",
		StrictSpreads:     false,
		MinWidth:          2,
		ArchiveExtensions: []string{".cbz"},
		Progress:          true,
		LogLevel:          "info",
		Watch: WatchCfg{
			Debounce: "2s",
		},
	}
}

// DebounceDuration parses the watch debounce interval.
func (w WatchCfg) DebounceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid watch.debounce %q: %w", w.Debounce, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid watch.debounce %q: negative", w.Debounce)
	}
	return d, nil
}
