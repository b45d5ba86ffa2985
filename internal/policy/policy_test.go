package policy

import (
	"testing"

	"github.com/tes3tools/tesmerge/internal/store"
)

func TestResolveDefaultMode(t *testing.T) {
	d, err := Resolve(Presets{}, Flags{})
	if err != nil {
		t.Fatal(err)
	}
	if d.Mode != store.ModeReplace {
		t.Fatalf("got mode %q, want replace", d.Mode)
	}
}

func TestResolveMergeLoadOrderPreset(t *testing.T) {
	d, err := Resolve(Presets{MergeLoadOrder: true}, Flags{})
	if err != nil {
		t.Fatal(err)
	}
	if !d.UseLoadOrder || d.Mode != store.ModeKeep || len(d.Buckets) != 4 {
		t.Fatalf("got %+v", d)
	}
}

func TestResolveCheckReferencesPreset(t *testing.T) {
	d, err := Resolve(Presets{CheckReferences: true}, Flags{})
	if err != nil {
		t.Fatal(err)
	}
	if !d.UseLoadOrder || !d.ReportOnly || !d.DryRun {
		t.Fatalf("got %+v", d)
	}
}

func TestResolveTurnNormalGrassSuffix(t *testing.T) {
	d, err := Resolve(Presets{TurnNormalGrass: true}, Flags{})
	if err != nil {
		t.Fatal(err)
	}
	if d.SecondaryOutputSuffix != "-GRS" {
		t.Fatalf("got suffix %q", d.SecondaryOutputSuffix)
	}
}

func TestResolveInvalidMode(t *testing.T) {
	if _, err := Resolve(Presets{}, Flags{Mode: "bogus"}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestBucketName(t *testing.T) {
	if got := BucketName("Merged.esp", 100); got != "Merged-100.esp" {
		t.Fatalf("got %q", got)
	}
}

func TestBucketFor(t *testing.T) {
	cases := []struct {
		idx  int
		want int
	}{
		{0, 0}, {50, 0}, {100, 100}, {250, 200}, {1000, 700},
	}
	for _, c := range cases {
		if got := BucketFor(Buckets, c.idx); got != c.want {
			t.Fatalf("BucketFor(%d) = %d, want %d", c.idx, got, c.want)
		}
	}
}
