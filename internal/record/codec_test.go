package record

import (
	"bytes"
	"testing"
)

func buildSub(tag string, payload []byte) Subrecord {
	return Subrecord{Tag: tag, Payload: payload}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	recs := []Record{
		{
			Kind: KindHeader,
			Subrecords: []Subrecord{
				buildSub("HEDR", make([]byte, 300)),
			},
		},
		{
			Kind: KindGMST,
			Subrecords: []Subrecord{
				NewStringSubrecord("NAME", "iMaxDialogueDistance"),
				buildSub("INTV", []byte{10, 0, 0, 0}),
			},
		},
	}

	out, err := Encode(recs)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(decoded) != len(recs) {
		t.Fatalf("got %d records, want %d", len(decoded), len(recs))
	}

	reEncoded, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if !bytes.Equal(out, reEncoded) {
		t.Fatalf("round trip not byte-identical")
	}

	if GenericID(decoded[1]) != "imaxdialoguedistance" {
		t.Fatalf("GenericID: got %q", GenericID(decoded[1]))
	}
}

func TestDecodeUnsupportedKind(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ZZZZ")
	buf.Write([]byte{0, 0, 0, 0})
	buf.Write([]byte{0, 0, 0, 0})
	buf.Write([]byte{0, 0, 0, 0})

	if _, err := Decode(buf.Bytes()); err == nil {
		t.Fatal("expected codec-unsupported-kind error")
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := Decode([]byte{'G', 'M', 'S', 'T', 1}); err == nil {
		t.Fatal("expected codec-structural error on truncated header")
	}
}

func TestSSCRKeySynthesizesFromScriptName(t *testing.T) {
	rec := Record{
		Kind: KindSSCR,
		Subrecords: []Subrecord{
			NewStringSubrecord("DATA", "SomeScript"),
		},
	}

	k1 := SSCRKey(rec)
	k2 := SSCRKey(rec)
	if k1 != k2 {
		t.Fatalf("SSCRKey not deterministic: %v vs %v", k1, k2)
	}
	if k1.ID == "" {
		t.Fatal("expected non-empty synthesized id")
	}

	other := rec
	other.Subrecords = []Subrecord{NewStringSubrecord("DATA", "OtherScript")}
	if SSCRKey(other) == k1 {
		t.Fatal("expected different script names to hash differently")
	}
}

func TestSNDGKeySynthesis(t *testing.T) {
	rec := Record{
		Kind: KindSNDG,
		Subrecords: []Subrecord{
			NewStringSubrecord("CNAM", "rat"),
			buildSub("DATA", []byte{3}),
		},
	}
	k := SNDGKey(rec)
	if k.ID != "rat0003" {
		t.Fatalf("got %q, want rat0003", k.ID)
	}
}

func TestCellKeyExteriorVsInterior(t *testing.T) {
	ext := Record{Kind: KindCELL, Subrecords: []Subrecord{
		buildSub("DATA", []byte{0, 0, 0, 0, 5, 0, 0, 0, 6, 0, 0, 0}),
	}}
	k, err := CellKey(ext)
	if err != nil {
		t.Fatal(err)
	}
	if k.ID != "ext:5,6" {
		t.Fatalf("got %q", k.ID)
	}

	in := Record{Kind: KindCELL, Subrecords: []Subrecord{
		NewStringSubrecord("NAME", "Balmora"),
		buildSub("DATA", []byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}),
	}}
	k2, err := CellKey(in)
	if err != nil {
		t.Fatal(err)
	}
	if k2.ID != "int:balmora" {
		t.Fatalf("got %q", k2.ID)
	}
}
