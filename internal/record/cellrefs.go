package record

import (
	"encoding/binary"
)

// RawReference is a single reference block decoded from a CELL record's
// subrecord stream: FRMR (master-index|original-index packed u32) through
// the next FRMR or the record's end. Subrecords.Payload spans are shared
// with the owning CELL record's byte buffer and are never mutated in
// place; the reference engine rebuilds fresh subrecords when it rewrites
// a reference's identity.
type RawReference struct {
	Subrecords []Subrecord
	// RefNum is FRMR's packed identity: low 24 bits original-ref-index,
	// high 8 bits source master-index, matching the engine's on-disk
	// encoding of the (master-index, original-ref-index) pair.
	RefNum uint32
}

// MasterIndex is the source-master component of a packed FRMR ref number.
func (r RawReference) MasterIndex() uint8 {
	return uint8(r.RefNum >> 24)
}

// OriginalIndex is the original-ref-index component of a packed FRMR ref number.
func (r RawReference) OriginalIndex() uint32 {
	return r.RefNum & 0x00FFFFFF
}

// PackRefNum builds a packed FRMR value from its components.
func PackRefNum(masterIndex uint8, originalIndex uint32) uint32 {
	return uint32(masterIndex)<<24 | (originalIndex & 0x00FFFFFF)
}

// Persistent reports whether this reference carries the persistent flag
// subrecord engines tag non-temporary references with.
func (r RawReference) Persistent() bool {
	for _, s := range r.Subrecords {
		if s.Tag == "NAM8" || s.Tag == "DNAM" {
			// Engines differ on the exact tag; treat presence of either
			// persistence marker subrecord as persistent.
			return true
		}
	}
	return false
}

// MovedCellIsNone reports whether this reference has no MVRF "moved
// reference" subrecord, the first component of the sort key in spec
// section 3 (false sorts before true, so moved references come first).
func (r RawReference) MovedCellIsNone() bool {
	_, moved := r.find("MVRF")
	return !moved
}

// Deleted reports whether this reference block carries a DELE subrecord.
func (r RawReference) Deleted() bool {
	_, ok := r.find("DELE")
	return ok
}

func (r RawReference) find(tag string) ([]byte, bool) {
	for _, s := range r.Subrecords {
		if s.Tag == tag {
			return s.Payload, true
		}
	}
	return nil, false
}

// SplitCellSubrecords partitions a CELL record's subrecord stream into the
// scalar preamble (everything before the first FRMR) and the list of raw
// reference blocks, each starting at an FRMR and running up to (not
// including) the next FRMR or the end of the stream.
func SplitCellSubrecords(subs []Subrecord) (scalar []Subrecord, refs []RawReference) {
	i := 0
	for i < len(subs) && subs[i].Tag != "FRMR" {
		i++
	}
	scalar = subs[:i]

	for i < len(subs) {
		refNum := uint32(0)
		if len(subs[i].Payload) >= 4 {
			refNum = binary.LittleEndian.Uint32(subs[i].Payload)
		}
		j := i + 1
		for j < len(subs) && subs[j].Tag != "FRMR" {
			j++
		}
		refs = append(refs, RawReference{RefNum: refNum, Subrecords: subs[i:j]})
		i = j
	}

	return scalar, refs
}

// JoinCellSubrecords is the inverse of SplitCellSubrecords: it concatenates
// the scalar preamble with each reference's subrecord span in order.
func JoinCellSubrecords(scalar []Subrecord, refs []RawReference) []Subrecord {
	out := make([]Subrecord, 0, len(scalar)+len(refs)*4)
	out = append(out, scalar...)
	for _, r := range refs {
		out = append(out, r.Subrecords...)
	}
	return out
}

// NewFRMRSubrecord builds an FRMR subrecord payload for a packed ref number.
func NewFRMRSubrecord(refNum uint32) Subrecord {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, refNum)
	return Subrecord{Tag: "FRMR", Payload: b}
}

// BaseObjectID returns a reference's base-object id from its NAME subrecord.
func (r RawReference) BaseObjectID() string {
	b, _ := r.find("NAME")
	return lower(cstring(b))
}
