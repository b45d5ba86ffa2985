package gameconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseOpenMW(t *testing.T) {
	input := `# comment
data="/games/Morrowind/Data Files"
data=/games/Morrowind/Extra
content=Morrowind.esm
content=Tribunal.esm
fallback-archive=Morrowind.bsa
`
	cfg, err := ParseOpenMW(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	wantData := []string{"/games/Morrowind/Data Files", "/games/Morrowind/Extra"}
	if len(cfg.DataDirs) != 2 || cfg.DataDirs[0] != wantData[0] || cfg.DataDirs[1] != wantData[1] {
		t.Fatalf("got DataDirs=%v", cfg.DataDirs)
	}

	wantContent := []string{"Morrowind.esm", "Tribunal.esm"}
	if len(cfg.Content) != 2 || cfg.Content[0] != wantContent[0] || cfg.Content[1] != wantContent[1] {
		t.Fatalf("got Content=%v", cfg.Content)
	}

	if len(cfg.Archives) != 1 || cfg.Archives[0] != "Morrowind.bsa" {
		t.Fatalf("got Archives=%v", cfg.Archives)
	}
}

func TestParseOpenMWMalformedLine(t *testing.T) {
	if _, err := ParseOpenMW(strings.NewReader("not-a-kv-line\n")); err == nil {
		t.Fatal("expected error for line without '='")
	}
}

func TestParseMorrowindINI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Morrowind.ini")
	content := `[Game Files]
GameFile0=Morrowind.esm
GameFile1=Tribunal.esm
GameFile2=Bloodmoon.esm

[Archives]
Archive 0=Morrowind.bsa
Archive 1=Tribunal.bsa
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseMorrowindINI(path)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"Morrowind.esm", "Tribunal.esm", "Bloodmoon.esm"}
	for i, w := range want {
		if cfg.Content[i] != w {
			t.Fatalf("Content[%d] = %q, want %q (full: %v)", i, cfg.Content[i], w, cfg.Content)
		}
	}

	if len(cfg.Archives) != 2 || cfg.Archives[0] != "Morrowind.bsa" {
		t.Fatalf("got Archives=%v", cfg.Archives)
	}
}

func TestLocateExplicitMissing(t *testing.T) {
	if _, _, err := Locate(filepath.Join(t.TempDir(), "nope.cfg")); err == nil {
		t.Fatal("expected error for missing explicit path")
	}
}
