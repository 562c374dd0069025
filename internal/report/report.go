// Package report renders plans and merge results for the CLI.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format defines the output format for CLI commands.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DefaultFormat is the default output format.
const DefaultFormat = FormatYAML

// ParseFormat maps a --output flag value to a Format. Empty means default.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "":
		return DefaultFormat, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (want yaml or json)", s)
	}
}

// Printer writes values to a writer in one format.
type Printer struct {
	w      io.Writer
	format Format
}

// NewPrinter creates a Printer. An empty format means DefaultFormat.
func NewPrinter(w io.Writer, format Format) *Printer {
	if format == "" {
		format = DefaultFormat
	}
	return &Printer{w: w, format: format}
}

// Print writes data in the printer's format.
func (p *Printer) Print(data any) error {
	return To(p.w, p.format, data)
}

// To writes data to the given writer in the specified format.
func To(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
