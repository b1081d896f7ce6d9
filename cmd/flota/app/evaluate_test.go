package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestEvaluateDemoFleetJSON(t *testing.T) {
	out := runCommand(t, "evaluate", "--at", "2025-06-01T12:00:00Z", "-o", "json")

	var results []evaluatedVehicle
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	want := map[string]int{"v_101": 0, "v_102": 2, "v_104": 5, "v_106": 3}
	got := make(map[string]int, len(results))
	for _, r := range results {
		got[r.ID] = r.Summary.Severity
	}
	if len(results) != 6 {
		t.Errorf("evaluated %d vehicles", len(results))
	}
	for id, sev := range want {
		if got[id] != sev {
			t.Errorf("%s severity = %d, want %d", id, got[id], sev)
		}
	}
}

func TestEvaluateFleetFileTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.json")
	fleet := `[{"id":"x1","make":"Ford","model":"Transit","plate":"0001-AAA","current_odometer":39000,
		"maintenance_history":[{"type":"Oil Change","km":20000,"cost":100}]}]`
	if err := os.WriteFile(path, []byte(fleet), 0o644); err != nil {
		t.Fatal(err)
	}

	out := runCommand(t, "evaluate", "--fleet", path, "--at", "2025-06-01")
	for _, want := range []string{"PLATE", "0001-AAA", "oil", "1000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad date", []string{"evaluate", "--at", "yesterday"}},
		{"bad format", []string{"evaluate", "-o", "xml", "--at", "2025-06-01"}},
		{"missing fleet", []string{"evaluate", "--fleet", "/nonexistent/fleet.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCommand()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)
			if err := cmd.ExecuteContext(context.Background()); err == nil {
				t.Error("expected error")
			}
		})
	}
}
