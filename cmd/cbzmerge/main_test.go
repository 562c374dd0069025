package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jackzampolin/cbzmerge/internal/config"
	"github.com/jackzampolin/cbzmerge/internal/output"
	"github.com/jackzampolin/cbzmerge/internal/testutil"
)

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		out     string
		cfg     string
		want    output.Format
		wantErr bool
	}{
		{"pdf flag wins", []string{"--pdf", "--format=cbz"}, "vol.cbz", "cbz", output.FormatPDF, false},
		{"explicit format", []string{"--format=pdf"}, "vol.cbz", "cbz", output.FormatPDF, false},
		{"from extension", nil, "vol.PDF", "cbz", output.FormatPDF, false},
		{"from config", nil, "vol", "pdf", output.FormatPDF, false},
		{"default", nil, "vol", "cbz", output.FormatCBZ, false},
		{"bad format", []string{"--format=epub"}, "vol", "cbz", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			addOutputFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			cfg := config.DefaultConfig()
			cfg.OutputFormat = tt.cfg

			got, err := resolveFormat(fs, cfg, tt.out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error"} {
		if _, err := newLogger(level); err != nil {
			t.Errorf("%s: %v", level, err)
		}
	}
	if _, err := newLogger("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

// resetFlags puts every flag of cmd and its subcommands back to its default,
// since the command tree is shared between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			def := strings.Trim(f.DefValue, "[]")
			var vals []string
			if def != "" {
				vals = strings.Split(def, ",")
			}
			_ = sv.Replace(vals)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestCLI_MergeAndPlan(t *testing.T) {
	in := t.TempDir()
	testutil.WriteArchive(t, in, "issue1.cbz", testutil.Pages(t, "01.png", "02-03.png", "04.png"))
	testutil.WriteArchive(t, in, "issue2.cbz", testutil.Pages(t, "01.png", "02.png"))

	h := t.TempDir()
	cfgPath := filepath.Join(h, "config.yaml")
	if err := config.WriteDefault(cfgPath); err != nil {
		t.Fatal(err)
	}
	common := []string{"--home", h, "--config", cfgPath, "--log-level", "error", "-o", "json"}

	out := filepath.Join(t.TempDir(), "volume.cbz")
	stdout, err := execute(t, append([]string{"merge", in, out, "--no-progress"}, common...)...)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	var res struct {
		Pages    int    `json:"pages"`
		LastPage int    `json:"last_page"`
		Format   string `json:"format"`
	}
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("merge output %q: %v", stdout, err)
	}
	if res.Pages != 5 || res.LastPage != 6 || res.Format != "cbz" {
		t.Errorf("unexpected result: %+v", res)
	}

	var got []string
	for _, e := range testutil.ReadArchive(t, out) {
		got = append(got, e.Name)
	}
	want := []string{"01.png", "02-03.png", "04.png", "05.png", "06.png"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: got %s, want %s", i, got[i], want[i])
		}
	}

	stdout, err = execute(t, append([]string{"plan", in, "--check", "--min-width", "3"}, common...)...)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	var summary planSummary
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("plan output %q: %v", stdout, err)
	}
	if summary.Pages != 5 || summary.Width != 3 || summary.Last != "006.png" || !summary.Readable {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestCLI_ConfigInitAndValidate(t *testing.T) {
	h := t.TempDir()
	path := filepath.Join(h, "config.yaml")

	if _, err := execute(t, "config", "init", "--home", h); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := execute(t, "config", "init", "--home", h); err == nil {
		t.Error("expected error when config exists without --force")
	}

	stdout, err := execute(t, "config", "validate", path)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if stdout != path+": ok\n" {
		t.Errorf("unexpected output %q", stdout)
	}

	bad := filepath.Join(h, "bad.yaml")
	if err := os.WriteFile(bad, []byte("on_invalid: ignore\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "config", "validate", bad); err == nil {
		t.Error("expected validation error")
	}
}

func TestCLI_ConfigShowDefault(t *testing.T) {
	stdout, err := execute(t, "config", "show", "--defaults", "min_width", "-o", "json")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	var entry config.Entry
	if err := json.Unmarshal([]byte(stdout), &entry); err != nil {
		t.Fatalf("output %q: %v", stdout, err)
	}
	if entry.Key != "min_width" || entry.Value != float64(2) || entry.Description == "" {
		t.Errorf("unexpected entry: %+v", entry)
	}

	if _, err := execute(t, "config", "show", "--defaults", "no_such_key"); err == nil {
		t.Error("expected error for unknown key")
	}
}
