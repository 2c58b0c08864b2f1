package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hannajonsd/await-analysis/knowledge"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.yml", `
rule:
  syncMethods: [frobnicate]
  namedStaticMembers:
    - [console, warn]
output:
  format: json
analysis:
  max_workers: 0
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("expected format json, got %q", cfg.Output.Format)
	}
	if cfg.Analysis.MaxWorkers != 4 {
		t.Errorf("expected default worker count to be restored, got %d", cfg.Analysis.MaxWorkers)
	}
	if len(cfg.Files.Extensions) == 0 {
		t.Error("expected default extensions")
	}

	kb := knowledge.Resolve(cfg.RuleOptions())
	if !kb.IsSyncMethod("frobnicate") || !kb.IsStaticMember("console", "warn") {
		t.Error("expected rule options to reach the knowledge base")
	}
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".await-analysis.toml", `
[rule]
syncFunctions = ["structuredClone"]
namedStaticMembers = [["JSON", "parse"]]

[files]
exclude = ["dist/*"]
respect_gitignore = false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Files.RespectGitignore {
		t.Error("expected respect_gitignore to be false")
	}
	if len(cfg.Files.Exclude) != 1 || cfg.Files.Exclude[0] != "dist/*" {
		t.Errorf("unexpected exclude list %v", cfg.Files.Exclude)
	}

	kb := knowledge.Resolve(cfg.RuleOptions())
	if !kb.IsSyncFunction("structuredClone") || !kb.IsStaticMember("JSON", "parse") {
		t.Error("expected TOML rule options to reach the knowledge base")
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings.json", `{"rule": {"syncMethods": ["frobnicate", {"bad": true}]}, "output": {"format": "sarif"}}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output.Format != "sarif" {
		t.Errorf("expected format sarif, got %q", cfg.Output.Format)
	}
	if len(cfg.Rule.SyncMethods) != 2 {
		t.Errorf("expected malformed entry to be retained, got %v", cfg.Rule.SyncMethods)
	}
}

func TestLoadConfig_MalformedRuleDoesNotFail(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yml", `
rule:
  syncMethods: {not: a list}
  namedStaticMembers: [[only-one], 42]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("malformed rule entries must not fail loading: %v", err)
	}
	if cfg.Rule.SyncMethods != nil {
		t.Errorf("expected non-list field to decode to nothing, got %v", cfg.Rule.SyncMethods)
	}
	if len(cfg.Rule.NamedStaticMembers) != 2 {
		t.Errorf("expected both malformed pairs to be retained, got %v", cfg.Rule.NamedStaticMembers)
	}

	shapes := []struct {
		name    string
		content string
	}{
		{"scalar.yml", "rule: 5\noutput:\n  format: json\n"},
		{"list.yml", "rule: [syncMethods]\noutput:\n  format: json\n"},
		{"scalar.toml", "rule = 5\n[output]\nformat = \"json\"\n"},
		{"list.toml", "rule = [\"syncMethods\"]\n[output]\nformat = \"json\"\n"},
		{"scalar.json", `{"rule": 5, "output": {"format": "json"}}`},
		{"list.json", `{"rule": ["syncMethods"], "output": {"format": "json"}}`},
	}
	dir := t.TempDir()
	for _, tt := range shapes {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeFile(t, dir, tt.name, tt.content))
			if err != nil {
				t.Fatalf("a rule block of the wrong shape must not fail loading: %v", err)
			}
			if cfg.Output.Format != "json" {
				t.Errorf("expected the rest of the file to apply, got format %q", cfg.Output.Format)
			}
			kb := knowledge.Resolve(cfg.RuleOptions())
			if kb.Fingerprint() != knowledge.Default().Fingerprint() {
				t.Error("expected the default tables")
			}
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfig(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadConfig(writeFile(t, dir, "config.ini", "x=1")); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := LoadConfig(writeFile(t, dir, "broken.yml", "rule: [unclosed")); err == nil {
		t.Error("expected error for invalid YAML syntax")
	}
}

func TestFindConfig_SearchesUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "lib")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create dirs: %v", err)
	}
	want := writeFile(t, root, ".await-analysis.yml", "version: \"1.0\"\n")

	got, err := FindConfig(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestGenerateConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".await-analysis.yml")
	if err := GenerateConfig(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	kb := knowledge.Resolve(cfg.RuleOptions())
	if !kb.IsStaticMember("console", "warn") {
		t.Error("expected sample pair to survive the round trip")
	}
	if !kb.IsSyncFunction("structuredClone") || !kb.IsSyncMethod("getBoundingClientRect") {
		t.Error("expected sample names to survive the round trip")
	}
}

func TestGenerateConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".await-analysis.json")
	if err := GenerateConfig(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read generated config: %v", err)
	}
	if !strings.Contains(string(data), `"namedStaticMembers": [`) || !strings.Contains(string(data), `"console",`) {
		t.Errorf("expected pairs to be written as lists, got:\n%s", data)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	kb := knowledge.Resolve(cfg.RuleOptions())
	if !kb.IsStaticMember("console", "warn") || !kb.IsSyncFunction("structuredClone") {
		t.Error("expected sample rule options to survive the JSON round trip")
	}
	if cfg.Analysis.MaxWorkers != 4 || !cfg.Files.RespectGitignore {
		t.Errorf("unexpected settings after round trip: %+v", cfg)
	}
}
