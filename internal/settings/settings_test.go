package settings

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(s, Settings{}) {
		t.Fatalf("got %+v, want zero value", s)
	}
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	want := Settings{
		BaseDir:      "/games/Morrowind/Data Files",
		Mode:         "keep",
		UseLoadOrder: true,
		GrassFilter:  []string{"UNKNOWN GRASS"},
	}

	if err := Write(path, want); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.BaseDir != want.BaseDir || got.Mode != want.Mode || got.UseLoadOrder != want.UseLoadOrder {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.GrassFilter) != 1 || got.GrassFilter[0] != "UNKNOWN GRASS" {
		t.Fatalf("got GrassFilter=%v", got.GrassFilter)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := Write(path, Settings{}); err != nil {
		t.Fatal(err)
	}
	// Overwrite with invalid TOML.
	if err := os.WriteFile(path, []byte("mode = [this is not valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed settings file")
	}
}
