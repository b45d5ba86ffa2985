package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tes3tools/tesmerge/internal/record"
)

func headerWithMaster(originalSize uint64) record.Record {
	return record.EncodeHeader(record.Header{
		Version:  1.3,
		FileType: 0,
		Masters:  []record.MasterEntry{{Name: "Morrowind.esm", OriginalSize: originalSize}},
	})
}

func TestWriteThenUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Merged.esp")

	records := []record.Record{headerWithMaster(100)}
	res, err := Write(path, records, Options{Compare: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Written {
		t.Fatal("expected first write")
	}

	res2, err := Write(path, records, Options{Compare: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res2.Unchanged || res2.Written {
		t.Fatalf("got %+v, want unchanged and not re-written", res2)
	}
}

func TestWriteIgnoresMasterOriginalSizeDiff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Merged.esp")

	if _, err := Write(path, []record.Record{headerWithMaster(100)}, Options{Compare: true}); err != nil {
		t.Fatal(err)
	}

	res, err := Write(path, []record.Record{headerWithMaster(999)}, Options{Compare: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Unchanged {
		t.Fatalf("expected master original-size diff to compare as unchanged, got %+v", res)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = info
}

func TestWriteDetectsRealDiff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Merged.esp")

	if _, err := Write(path, []record.Record{headerWithMaster(100)}, Options{Compare: true}); err != nil {
		t.Fatal(err)
	}

	h2 := record.EncodeHeader(record.Header{Version: 1.3, Author: "changed"})
	res, err := Write(path, []record.Record{h2}, Options{Compare: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Unchanged {
		t.Fatal("expected a real content diff to be detected")
	}
	if res.FirstDiffOffset < 0 {
		t.Fatal("expected a non-negative first diff offset")
	}
}

func TestWriteDryRunDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Merged.esp")

	res, err := Write(path, []record.Record{headerWithMaster(100)}, Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Written {
		t.Fatal("expected dry run to skip the write")
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatal("expected no file to be created under dry run")
	}
}
