package knowledge

import (
	"encoding/json"
	"testing"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

func TestDefault_Tables(t *testing.T) {
	kb := Default()

	if !kb.IsSyncMethod("querySelector") {
		t.Error("expected querySelector to be a sync method")
	}
	if !kb.IsSyncFunction("setTimeout") {
		t.Error("expected setTimeout to be a sync function")
	}
	if !kb.IsStaticMember("console", "log") {
		t.Error("expected console.log to be a static member")
	}
	if kb.IsStaticMember("console", "warn") {
		t.Error("console.warn is not in the default table")
	}
	if !kb.IsSyncArrayMethod("join") || kb.IsSyncArrayMethod("map") {
		t.Error("unexpected array method table")
	}
	if !kb.ForbidsAsyncCallback("addEventListener") || kb.ForbidsAsyncCallback("on") {
		t.Error("unexpected async callback table")
	}
}

func TestNew_UnionsCallerEntries(t *testing.T) {
	kb := New(&Options{
		SyncMethods:        Names{"frobnicate", "querySelector"},
		SyncFunctions:      Names{"structuredClone"},
		NamedStaticMembers: StaticMembers{{Object: "console", Member: "warn"}},
	})

	if !kb.IsSyncMethod("frobnicate") {
		t.Error("expected caller method to be added")
	}
	if !kb.IsSyncMethod("querySelector") {
		t.Error("duplicate entry must not remove the default")
	}
	if !kb.IsSyncMethod("createElement") {
		t.Error("defaults must survive the union")
	}
	if !kb.IsSyncFunction("structuredClone") {
		t.Error("expected caller function to be added")
	}
	if !kb.IsStaticMember("console", "warn") || !kb.IsStaticMember("console", "error") {
		t.Error("expected both caller and default pairs")
	}
}

func TestResolve_UsesFirstOption(t *testing.T) {
	kb := Resolve([]*Options{
		{SyncMethods: Names{"first"}},
		{SyncMethods: Names{"second"}},
	})
	if !kb.IsSyncMethod("first") {
		t.Error("expected first options element to be used")
	}
	if kb.IsSyncMethod("second") {
		t.Error("only the first options element applies")
	}

	if !Resolve(nil).IsSyncFunction("log") {
		t.Error("empty options list should yield defaults")
	}
	if !Resolve([]*Options{nil}).IsSyncFunction("log") {
		t.Error("nil first element should yield defaults")
	}
}

func TestOptions_YAMLMalformedEntriesAreInert(t *testing.T) {
	input := `
syncMethods:
  - frobnicate
  - {nested: map}
  - [a, list]
syncFunctions: not-a-list
namedStaticMembers:
  - [console, warn]
  - [only]
  - [a, b, c]
  - console
`
	var opts Options
	if err := yaml.Unmarshal([]byte(input), &opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(opts.SyncMethods) != 3 {
		t.Fatalf("expected malformed entries to be retained, got %v", opts.SyncMethods)
	}
	if opts.SyncMethods[1] != "" || opts.SyncMethods[2] != "" {
		t.Errorf("expected non-scalar entries to be inert, got %q", opts.SyncMethods)
	}
	if opts.SyncFunctions != nil {
		t.Errorf("expected scalar field to decode to nothing, got %v", opts.SyncFunctions)
	}
	if len(opts.NamedStaticMembers) != 4 {
		t.Fatalf("expected 4 pairs, got %v", opts.NamedStaticMembers)
	}

	kb := New(&opts)
	if !kb.IsSyncMethod("frobnicate") {
		t.Error("expected valid entry to apply")
	}
	if !kb.IsStaticMember("console", "warn") {
		t.Error("expected valid pair to apply")
	}
	if kb.IsStaticMember("a", "b") {
		t.Error("three-element pair must not match")
	}
	if kb.IsSyncMethod("") || kb.IsStaticMember("", "") {
		t.Error("inert entries must never match")
	}
}

func TestOptions_TOML(t *testing.T) {
	input := `
syncMethods = ["frobnicate", 3]
syncFunctions = ["structuredClone"]
namedStaticMembers = [["console", "warn"], ["broken"]]
`
	var opts Options
	if _, err := toml.Decode(input, &opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	kb := New(&opts)
	if !kb.IsSyncMethod("frobnicate") || !kb.IsSyncFunction("structuredClone") {
		t.Error("expected TOML names to apply")
	}
	if !kb.IsStaticMember("console", "warn") {
		t.Error("expected TOML pair to apply")
	}
	if len(opts.SyncMethods) != 2 || opts.SyncMethods[1] != "" {
		t.Errorf("expected non-string entry to be inert, got %q", opts.SyncMethods)
	}
}

func TestOptions_JSON(t *testing.T) {
	input := `{"syncMethods": ["frobnicate", {"x": 1}], "namedStaticMembers": [["JSON", "parse"], "bad"], "syncFunctions": 7}`

	var opts Options
	if err := json.Unmarshal([]byte(input), &opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	kb := New(&opts)
	if !kb.IsSyncMethod("frobnicate") {
		t.Error("expected JSON name to apply")
	}
	if !kb.IsStaticMember("JSON", "parse") {
		t.Error("expected JSON pair to apply")
	}
	if len(opts.NamedStaticMembers) != 2 {
		t.Errorf("expected malformed pair to be retained, got %v", opts.NamedStaticMembers)
	}
}

func TestOptions_NonMappingIsEmpty(t *testing.T) {
	var fromYAML Options
	if err := yaml.Unmarshal([]byte("[syncMethods]"), &fromYAML); err != nil {
		t.Errorf("yaml: unexpected error: %v", err)
	}

	fromTOML := Options{SyncMethods: Names{"stale"}}
	if err := fromTOML.UnmarshalTOML(int64(5)); err != nil {
		t.Errorf("toml: unexpected error: %v", err)
	}

	var fromJSON Options
	if err := json.Unmarshal([]byte(`"syncMethods"`), &fromJSON); err != nil {
		t.Errorf("json: unexpected error: %v", err)
	}

	for name, opts := range map[string]Options{"yaml": fromYAML, "toml": fromTOML, "json": fromJSON} {
		if opts.SyncMethods != nil || opts.SyncFunctions != nil || opts.NamedStaticMembers != nil {
			t.Errorf("%s: expected empty options, got %+v", name, opts)
		}
	}
}

func TestFingerprint(t *testing.T) {
	if Default().Fingerprint() != New(&Options{}).Fingerprint() {
		t.Error("expected empty options to fingerprint like the defaults")
	}

	dup := New(&Options{SyncMethods: Names{"querySelector"}})
	if dup.Fingerprint() != Default().Fingerprint() {
		t.Error("expected a duplicate entry to leave the fingerprint unchanged")
	}

	a := New(&Options{SyncMethods: Names{"frobnicate"}})
	b := New(&Options{SyncFunctions: Names{"frobnicate"}})
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("expected the same name in different tables to fingerprint differently")
	}
	if a.Fingerprint() == Default().Fingerprint() {
		t.Error("expected an added entry to change the fingerprint")
	}
}
