package grass

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tes3tools/tesmerge/internal/asset"
	"github.com/tes3tools/tesmerge/internal/record"
)

func newProbeWithMesh(t *testing.T, meshRel string, groundcover bool) *asset.Probe {
	t.Helper()
	dir := t.TempDir()
	full := filepath.Join(dir, meshRel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "NIFFNiNode"
	if groundcover {
		content = "NIFFGroundcoverMarker"
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := asset.New(asset.Config{LooseDirs: []string{dir}})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestIsGroundcoverMesh(t *testing.T) {
	probe := newProbeWithMesh(t, "grass/flora_bc_grass_01.nif", true)
	c := New(probe, nil)

	ground, err := c.IsGroundcover("flora_bc_grass_01", objectMesh{"flora_bc_grass_01": `grass\flora_bc_grass_01.nif`})
	if err != nil {
		t.Fatal(err)
	}
	if !ground {
		t.Fatal("expected groundcover classification")
	}
}

func TestFilteredIDNeverGroundcover(t *testing.T) {
	probe := newProbeWithMesh(t, "grass/unknown.nif", true)
	c := New(probe, []string{"UNKNOWN GRASS"})

	ground, err := c.IsGroundcover("UNKNOWN GRASS", objectMesh{"unknown grass": `grass\unknown.nif`})
	if err != nil {
		t.Fatal(err)
	}
	if ground {
		t.Fatal("expected filtered id to never classify as groundcover")
	}
}

func TestPartitionSplitsSTATReferences(t *testing.T) {
	probe := newProbeWithMesh(t, "grass/flora_bc_grass_01.nif", true)
	c := New(probe, nil)

	refs := []record.RawReference{
		{Subrecords: []record.Subrecord{
			record.NewFRMRSubrecord(1),
			record.NewStringSubrecord("NAME", "flora_bc_grass_01"),
		}},
		{Subrecords: []record.Subrecord{
			record.NewFRMRSubrecord(2),
			record.NewStringSubrecord("NAME", "rock_01"),
		}},
	}

	primary, secondary, err := c.Partition(refs, func(id string) bool { return true },
		objectMesh{"flora_bc_grass_01": `grass\flora_bc_grass_01.nif`, "rock_01": `rock\rock_01.nif`})
	if err != nil {
		t.Fatal(err)
	}
	if len(primary) != 1 || len(secondary) != 1 {
		t.Fatalf("got primary=%d secondary=%d", len(primary), len(secondary))
	}
}
