package cache

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDiskCache_PutGet(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := Key([]byte("run();\n"), "a.js", "fp")
	want := Payload{
		Language:     "javascript",
		CallsChecked: 1,
		Suppressed:   0,
		Diagnostics: []Diagnostic{{
			Line: 1, Column: 1, EndLine: 1, EndColumn: 6,
			Rule: "default", Reason: "r", Message: "r:  run()",
		}},
	}
	if err := c.Put(key, &want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got Payload
	ok, err := c.Get(key, &got)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	want.Schema = schemaVersion
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestDiskCache_Miss(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got Payload
	ok, err := c.Get(Key([]byte("x"), "a.js", "fp"), &got)
	if err != nil || ok {
		t.Errorf("expected a clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key := Key([]byte("x"), "a.js", "fp")
	path := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(path, []byte{0xc1}, 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got Payload
	if _, err := c.Get(key, &got); err == nil {
		t.Error("expected a decode error for a corrupt entry")
	}
}

func TestDiskCache_DropAll(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key := Key([]byte("x"), "a.js", "fp")
	if err := c.Put(key, &Payload{Language: "javascript"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got Payload
	if ok, _ := c.Get(key, &got); ok {
		t.Error("expected entries to be gone after DropAll")
	}
	if err := c.Put(key, &Payload{}); err != nil {
		t.Errorf("expected the cache to stay usable after DropAll: %v", err)
	}
}

func TestKey(t *testing.T) {
	base := Key([]byte("run();"), "a.js", "fp")

	if Key([]byte("run();"), "other/b.js", "fp") != base {
		t.Error("expected the directory and name to be irrelevant")
	}
	if Key([]byte("run();"), "a.ts", "fp") == base {
		t.Error("expected the extension to change the key")
	}
	if Key([]byte("run();"), "a.js", "fp2") == base {
		t.Error("expected the fingerprint to change the key")
	}
	if Key([]byte("run(); "), "a.js", "fp") == base {
		t.Error("expected the content to change the key")
	}
}
