package models

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := Default()
	if catalog.Len() == 0 {
		t.Fatal("default catalog is empty")
	}

	ids := catalog.IDs()
	if !sort.StringsAreSorted(ids) {
		t.Fatalf("IDs not sorted: %v", ids)
	}

	def, ok := catalog.Lookup("crystal")
	if !ok {
		t.Fatal("crystal missing from default catalog")
	}
	if !def.Animate || def.HoverRange == 0 {
		t.Fatalf("crystal lost its animation defaults: %+v", def)
	}
}

func TestNewRejectsDuplicatesAndBlanks(t *testing.T) {
	if _, err := New([]Definition{{ID: "a"}, {ID: "a"}}); err == nil {
		t.Fatal("duplicate id accepted")
	}
	if _, err := New([]Definition{{Label: "no id"}}); err == nil {
		t.Fatal("blank id accepted")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	doc := `[{"id":"obelisk","label":"Obelisk","defaultScale":2}]`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	catalog, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	def, ok := catalog.Lookup("obelisk")
	if !ok || def.DefaultScale != 2 {
		t.Fatalf("unexpected catalog contents: %+v", def)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("loading a missing file must fail")
	}
}
