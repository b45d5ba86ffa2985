package loadorder

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAppendAndSkip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openmw.cfg")
	content := "content=Morrowind.esm\ncontent=Tribunal.esm\ncontent=Bloodmoon.esm\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Resolve(Options{
		ConfigPath: path,
		Append:     []string{"MyMod.esp"},
		Skip:       []string{"tribunal.esm"},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"Morrowind.esm", "Bloodmoon.esm", "MyMod.esp"}
	if len(res.Plugins) != len(want) {
		t.Fatalf("got %v, want %v", res.Plugins, want)
	}
	for i, w := range want {
		if res.Plugins[i] != w {
			t.Fatalf("Plugins[%d] = %q, want %q (full %v)", i, res.Plugins[i], w, res.Plugins)
		}
	}
}
