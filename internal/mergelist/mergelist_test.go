package mergelist

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseSpecQuoting(t *testing.T) {
	in := `Merged.esp,"Plugin, With Comma.esp",'Another.esp',Plain.esp,escaped\,name.esp`
	spec, err := ParseSpec(in)
	if err != nil {
		t.Fatal(err)
	}
	if spec.OutputPath != "Merged.esp" {
		t.Fatalf("got OutputPath=%q", spec.OutputPath)
	}
	want := []string{"Plugin, With Comma.esp", "Another.esp", "Plain.esp", "escaped,name.esp"}
	if len(spec.Plugins) != len(want) {
		t.Fatalf("got Plugins=%v, want %v", spec.Plugins, want)
	}
	for i, w := range want {
		if spec.Plugins[i] != w {
			t.Fatalf("Plugins[%d] = %q, want %q", i, spec.Plugins[i], w)
		}
	}
}

func TestParseSpecTripleQuoted(t *testing.T) {
	in := `Merged.esp,'''It's a plugin.esp'''`
	spec, err := ParseSpec(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Plugins) != 1 || spec.Plugins[0] != "It's a plugin.esp" {
		t.Fatalf("got Plugins=%v", spec.Plugins)
	}
}

func TestExpandEntriesGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ModA.esp", "ModB.esp", "Other.esm"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := ExpandEntries(ExpandOptions{BaseDir: dir}, []string{"glob:*.esp"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0] != "ModA.esp" || out[1] != "ModB.esp" {
		t.Fatalf("got %v", out)
	}
}

func TestExpandEntriesRegexSortByMtime(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "Old.esp")
	newer := filepath.Join(dir, "New.esp")
	if err := os.WriteFile(older, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newer, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := ExpandEntries(ExpandOptions{BaseDir: dir}, []string{`regex:.*\.esp$`})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0] != "Old.esp" || out[1] != "New.esp" {
		t.Fatalf("got %v, want mtime order [Old.esp New.esp]", out)
	}
}

func TestExpandEntriesRegexSortByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Zebra.esp", "Alpha.esp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := ExpandEntries(ExpandOptions{BaseDir: dir, RegexSortByName: true}, []string{`regex:.*\.esp$`})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0] != "Alpha.esp" || out[1] != "Zebra.esp" {
		t.Fatalf("got %v", out)
	}
}

func TestParseSpecEmpty(t *testing.T) {
	if _, err := ParseSpec(""); err != nil {
		t.Fatalf("unexpected error for single-field empty spec: %v", err)
	}
}
