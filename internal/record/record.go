// Package record is the plugin codec façade (spec section 4.A): it turns
// plugin bytes into a sequence of typed, byte-lossless Record values and
// back. Unknown subrecords are preserved verbatim; only the tag sequence
// of a record is interpreted, never subrecord payload semantics beyond
// what canonical-id derivation requires.
package record

import "strings"

// Kind is a 4-character TES3 record tag, e.g. "CELL", "GMST", "TES3".
type Kind string

// Tags for every record kind the TES3 allow-list covers (spec section 3).
const (
	KindHeader Kind = "TES3"
	KindGMST   Kind = "GMST"
	KindGLOB   Kind = "GLOB"
	KindCLAS   Kind = "CLAS"
	KindFACT   Kind = "FACT"
	KindRACE   Kind = "RACE"
	KindSOUN   Kind = "SOUN"
	KindSNDG   Kind = "SNDG"
	KindSKIL   Kind = "SKIL"
	KindMGEF   Kind = "MGEF"
	KindSCPT   Kind = "SCPT"
	KindREGN   Kind = "REGN"
	KindBSGN   Kind = "BSGN"
	KindSSCR   Kind = "SSCR"
	KindLTEX   Kind = "LTEX"
	KindSPEL   Kind = "SPEL"
	KindSTAT   Kind = "STAT"
	KindDOOR   Kind = "DOOR"
	KindMISC   Kind = "MISC"
	KindWEAP   Kind = "WEAP"
	KindCONT   Kind = "CONT"
	KindCREA   Kind = "CREA"
	KindBODY   Kind = "BODY"
	KindLIGH   Kind = "LIGH"
	KindENCH   Kind = "ENCH"
	KindNPC_   Kind = "NPC_"
	KindARMO   Kind = "ARMO"
	KindCLOT   Kind = "CLOT"
	KindREPA   Kind = "REPA"
	KindACTI   Kind = "ACTI"
	KindAPPA   Kind = "APPA"
	KindLOCK   Kind = "LOCK"
	KindPROB   Kind = "PROB"
	KindINGR   Kind = "INGR"
	KindBOOK   Kind = "BOOK"
	KindALCH   Kind = "ALCH"
	KindLEVI   Kind = "LEVI"
	KindLEVC   Kind = "LEVC"
	KindCELL   Kind = "CELL"
	KindLAND   Kind = "LAND"
	KindPGRD   Kind = "PGRD"
	KindDIAL   Kind = "DIAL"
	KindINFO   Kind = "INFO"
)

// allowList is the set of record kinds this codec understands. Anything
// else encountered while reading a plugin is codec-unsupported-kind.
var allowList = map[Kind]bool{
	KindHeader: true, KindGMST: true, KindGLOB: true, KindCLAS: true,
	KindFACT: true, KindRACE: true, KindSOUN: true, KindSNDG: true,
	KindSKIL: true, KindMGEF: true, KindSCPT: true, KindREGN: true,
	KindBSGN: true, KindSSCR: true, KindLTEX: true, KindSPEL: true,
	KindSTAT: true, KindDOOR: true, KindMISC: true, KindWEAP: true,
	KindCONT: true, KindCREA: true, KindBODY: true, KindLIGH: true,
	KindENCH: true, KindNPC_: true, KindARMO: true, KindCLOT: true,
	KindREPA: true, KindACTI: true, KindAPPA: true, KindLOCK: true,
	KindPROB: true, KindINGR: true, KindBOOK: true, KindALCH: true,
	KindLEVI: true, KindLEVC: true, KindCELL: true, KindLAND: true,
	KindPGRD: true, KindDIAL: true, KindINFO: true,
}

// Allowed reports whether kind is part of the TES3 record set this codec
// accepts; anything else signals "skip whole plugin" at read time.
func Allowed(kind Kind) bool {
	return allowList[kind]
}

// MergeableKinds are the record kinds for which "keep"/"keep_without_lands"
// retain every variant instead of only the last-seen one (spec section 3/4.D).
// LAND is mergeable only under plain "keep"; CELL reference tables are
// mergeable structurally (owned by the reference engine, not this set).
var MergeableKinds = map[Kind]bool{
	KindLEVI: true,
	KindLEVC: true,
	KindLAND: true,
}

// EmitOrder is the configured kind order Store.Emit walks (spec section 4.D).
// DIAL/INFO and CELL are handled specially by the store and excluded here.
var EmitOrder = []Kind{
	KindGMST, KindGLOB, KindCLAS, KindFACT, KindRACE, KindSOUN, KindSNDG,
	KindSKIL, KindMGEF, KindSCPT, KindREGN, KindBSGN, KindSSCR, KindLTEX,
	KindSPEL, KindSTAT, KindDOOR, KindMISC, KindWEAP, KindCONT, KindCREA,
	KindBODY, KindLIGH, KindENCH, KindNPC_, KindARMO, KindCLOT, KindREPA,
	KindACTI, KindAPPA, KindLOCK, KindPROB, KindINGR, KindBOOK, KindALCH,
	KindLEVI, KindLEVC, KindPGRD,
}

// Subrecord is a tagged byte span inside a Record. Payload bytes are kept
// exactly as read; nothing beyond the tag is interpreted unless a higher
// layer specifically needs to (canonical-id derivation, cell ref tables).
type Subrecord struct {
	Tag     string
	Payload []byte
}

// Record is a tagged union over the TES3 record kinds: a kind, the two
// engine flag words, and its ordered, byte-preserving subrecord stream.
type Record struct {
	Kind       Kind
	Flags      uint32
	Flags2     uint32
	Subrecords []Subrecord
	// Deleted reports whether this record's DELE subrecord and deleted
	// flag (bit 0x20 of Flags) are both present, per spec section 3's
	// cell-deletion and "replace of deleted instance" rules.
	Deleted bool
}

// Find returns the payload of the first subrecord with the given tag.
func (r Record) Find(tag string) ([]byte, bool) {
	for _, s := range r.Subrecords {
		if s.Tag == tag {
			return s.Payload, true
		}
	}
	return nil, false
}

// FindAll returns the payloads of every subrecord with the given tag, in
// stream order (used for repeated subrecords such as CELL's reference
// blocks or a header's MAST/DATA master pairs).
func (r Record) FindAll(tag string) [][]byte {
	var out [][]byte
	for _, s := range r.Subrecords {
		if s.Tag == tag {
			out = append(out, s.Payload)
		}
	}
	return out
}

// cstring reads a NUL-terminated (or full-length, if untermindated) string
// from a subrecord payload, the usual TES3 string encoding.
func cstring(b []byte) string {
	if i := indexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// lower is a small helper kept local to avoid importing strings.ToLower
// at every call site across this package's several id-derivation paths.
func lower(s string) string {
	return strings.ToLower(s)
}
