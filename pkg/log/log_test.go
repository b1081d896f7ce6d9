package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestAddFlags(t *testing.T) {
	opts := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)

	if err := fs.Parse([]string{"--log.level=debug", "--log.format=json", "--log.output-paths=a,b"}); err != nil {
		t.Fatal(err)
	}
	if opts.Level != "debug" || opts.Format != "json" {
		t.Errorf("opts = %+v", opts)
	}
	if len(opts.OutputPaths) != 2 || opts.OutputPaths[1] != "b" {
		t.Errorf("output paths = %v", opts.OutputPaths)
	}
}

func TestNewWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flota.log")

	tests := []struct {
		name      string
		level     string
		wantDebug bool
	}{
		{"debug level", "debug", true},
		{"unknown level falls back to info", "loud", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(path, nil, 0o644); err != nil {
				t.Fatal(err)
			}
			logger, err := New(&Options{Name: "flota", Level: tt.level, Format: "json", OutputPaths: []string{path}})
			if err != nil {
				t.Fatal(err)
			}
			logger.Debug("debug line")
			logger.Info("info line")
			_ = logger.Sync()

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if got := strings.Contains(string(data), "debug line"); got != tt.wantDebug {
				t.Errorf("debug written = %v", got)
			}

			var entry map[string]interface{}
			if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
				t.Fatalf("not json: %v", err)
			}
			if entry["logger"] != "flota" || entry["message"] != "info line" {
				t.Errorf("entry = %v", entry)
			}
		})
	}
}
