package store

import (
	"testing"

	"github.com/tes3tools/tesmerge/internal/record"
)

func gmst(id string) record.Record {
	return record.Record{Kind: record.KindGMST, Subrecords: []record.Subrecord{record.NewStringSubrecord("NAME", id)}}
}

func dial(id string, dialType byte) record.Record {
	return record.Record{Kind: record.KindDIAL, Subrecords: []record.Subrecord{
		record.NewStringSubrecord("NAME", id),
		{Tag: "DATA", Payload: []byte{dialType}},
	}}
}

func info(id string) record.Record {
	return record.Record{Kind: record.KindINFO, Subrecords: []record.Subrecord{
		record.NewStringSubrecord("INAM", id),
	}}
}

func TestGenericLastWriterWins(t *testing.T) {
	s := New(ModeReplace, Options{})
	if err := s.Ingest("A.esp", nil, []record.Record{gmst("iMax")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Ingest("B.esp", nil, []record.Record{gmst("iMax")}); err != nil {
		t.Fatal(err)
	}

	out := s.Emit()
	count := 0
	for _, r := range out {
		if r.Kind == record.KindGMST {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("got %d GMST records, want 1", count)
	}
}

func TestDialJournalFirst(t *testing.T) {
	s := New(ModeReplace, Options{})
	if err := s.Ingest("A.esp", nil, []record.Record{
		dial("greet", 0), info("1"),
		dial("journal-topic", record.JournalDialogueType), info("2"),
	}); err != nil {
		t.Fatal(err)
	}

	out := s.Emit()
	var firstDial string
	for _, r := range out {
		if r.Kind == record.KindDIAL {
			firstDial = record.DialogueID(r)
			break
		}
	}
	if firstDial != "journal-topic" {
		t.Fatalf("got first DIAL %q, want journal-topic", firstDial)
	}
}

func TestInfoOverrideLastWriterWins(t *testing.T) {
	s := New(ModeReplace, Options{})
	if err := s.Ingest("A.esp", nil, []record.Record{dial("greet", 0), info("1")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Ingest("B.esp", nil, []record.Record{dial("greet", 0), info("1")}); err != nil {
		t.Fatal(err)
	}

	out := s.Emit()
	count := 0
	for _, r := range out {
		if r.Kind == record.KindINFO {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("got %d INFO records, want 1", count)
	}
}

func TestKeepOnlyLastInfoIDsEvictsAcrossDial(t *testing.T) {
	s := New(ModeReplace, Options{KeepOnlyLastInfoIDs: map[string]bool{"dup": true}})
	if err := s.Ingest("A.esp", nil, []record.Record{dial("greet", 0), info("dup")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Ingest("B.esp", nil, []record.Record{dial("threaten", 0), info("dup")}); err != nil {
		t.Fatal(err)
	}

	out := s.Emit()
	count := 0
	for _, r := range out {
		if r.Kind == record.KindINFO {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("got %d INFO records, want 1 (evicted from first dial)", count)
	}
}

func TestMergeableLeveledListStacksUnderKeep(t *testing.T) {
	s := New(ModeKeep, Options{})
	levi := record.Record{Kind: record.KindLEVI, Subrecords: []record.Subrecord{record.NewStringSubrecord("NAME", "leviList")}}
	if err := s.Ingest("A.esp", nil, []record.Record{levi}); err != nil {
		t.Fatal(err)
	}
	if err := s.Ingest("B.esp", nil, []record.Record{levi}); err != nil {
		t.Fatal(err)
	}

	out := s.Emit()
	count := 0
	for _, r := range out {
		if r.Kind == record.KindLEVI {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("got %d LEVI variants, want 2 under keep mode", count)
	}
}

func TestObjectMeshesTracksLatestVariant(t *testing.T) {
	s := New(ModeReplace, Options{})
	stat := func(id, mesh string) record.Record {
		return record.Record{Kind: record.KindSTAT, Subrecords: []record.Subrecord{
			record.NewStringSubrecord("NAME", id),
			record.NewStringSubrecord("MODL", mesh),
		}}
	}
	if err := s.Ingest("A.esp", nil, []record.Record{stat("t_grass_01", "f\\grass01.nif")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Ingest("B.esp", nil, []record.Record{stat("t_grass_01", "f\\grass01_v2.nif")}); err != nil {
		t.Fatal(err)
	}

	meshes := s.ObjectMeshes(record.KindSTAT)
	if meshes["t_grass_01"] != "f\\grass01_v2.nif" {
		t.Fatalf("got %q, want latest override mesh", meshes["t_grass_01"])
	}
}

func TestCellEmitCollapsesOwnedReferences(t *testing.T) {
	s := New(ModeReplace, Options{})
	cellData := make([]byte, 12)
	cellData[4] = 5 // gridX
	cell := record.Record{Kind: record.KindCELL, Subrecords: []record.Subrecord{
		{Tag: "DATA", Payload: cellData},
		record.NewFRMRSubrecord(record.PackRefNum(0, 1)),
		record.NewStringSubrecord("NAME", "some_stat"),
	}}
	if err := s.Ingest("A.esp", nil, []record.Record{cell}); err != nil {
		t.Fatal(err)
	}

	cells, missing := s.EmitCells(CellEmitConfig{
		IsMerged:   func(string) bool { return true },
		MasterSlot: func(string) (uint8, bool) { return 0, false },
	})
	if len(missing) != 0 {
		t.Fatalf("unexpected missing refs: %v", missing)
	}
	if len(cells) != 1 {
		t.Fatalf("got %d cells, want 1", len(cells))
	}
}
