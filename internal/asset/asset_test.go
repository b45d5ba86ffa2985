package asset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLookupLooseGroundcover(t *testing.T) {
	dir := t.TempDir()
	meshDir := filepath.Join(dir, "grass")
	if err := os.MkdirAll(meshDir, 0o755); err != nil {
		t.Fatal(err)
	}

	grassPath := filepath.Join(meshDir, "flora_bc_grass_01.nif")
	if err := os.WriteFile(grassPath, []byte("NIFFGroundcoverMarkerrestofheader"), 0o644); err != nil {
		t.Fatal(err)
	}

	plainPath := filepath.Join(meshDir, "rock_01.nif")
	if err := os.WriteFile(plainPath, []byte("NIFFNiNoderestofheader"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := New(Config{LooseDirs: []string{dir}})
	if err != nil {
		t.Fatal(err)
	}

	res, err := p.Lookup(`grass\flora_bc_grass_01.nif`)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Exists || !res.IsGroundcover {
		t.Fatalf("got %+v, want exists+groundcover", res)
	}

	res2, err := p.Lookup(`grass\rock_01.nif`)
	if err != nil {
		t.Fatal(err)
	}
	if !res2.Exists || res2.IsGroundcover {
		t.Fatalf("got %+v, want exists, not groundcover", res2)
	}

	res3, err := p.Lookup(`grass\missing.nif`)
	if err != nil {
		t.Fatal(err)
	}
	if res3.Exists {
		t.Fatalf("expected missing mesh to not exist")
	}
}

func TestLookupAllConcurrent(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		name := filepath.Join(dir, "m"+string(rune('a'+i))+".nif")
		if err := os.WriteFile(name, []byte("NIFFNiNode"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	p, err := New(Config{LooseDirs: []string{dir}, Workers: 4})
	if err != nil {
		t.Fatal(err)
	}

	var paths []string
	for i := 0; i < 20; i++ {
		paths = append(paths, "m"+string(rune('a'+i))+".nif")
	}

	results, err := p.LookupAll(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 20 {
		t.Fatalf("got %d results, want 20", len(results))
	}
}
