// Package refs implements the per-cell reference engine (spec section
// 4.E's cell reference rules): translating each plugin's locally-scoped
// FRMR identities into globally stable ones, merging and overriding
// references across plugins, and reindexing the merged table for output.
package refs

import (
	"sort"
	"strings"

	"github.com/tes3tools/tesmerge/internal/record"
)

// Identity is a reference's globally stable origin: the plugin that
// first created it (lowercased) and the ordinal it was assigned within
// that plugin. A reference owned by the ingesting plugin itself (FRMR
// master index 0) uses that plugin's own name as Owner.
type Identity struct {
	Owner string
	Index uint32
}

type entry struct {
	identity Identity
	ref      record.RawReference
	seq      int // insertion order, for stable output among equal sort keys
}

// Cell holds one cell's scalar (non-reference) subrecords plus its
// merged, override-resolved reference table.
type Cell struct {
	Key     record.Key
	Scalar  []record.Subrecord
	Flags   uint32
	Flags2  uint32
	Deleted bool
	entries map[Identity]*entry
	order   []Identity // insertion order, for deterministic iteration before sort
	nextSeq int
}

// NewCell starts an empty cell for the given canonical key.
func NewCell(key record.Key) *Cell {
	return &Cell{Key: key, entries: make(map[Identity]*entry)}
}

// Ingest merges one plugin's occurrence of this cell: scalar subrecords
// are replaced wholesale (last writer wins, matching the record store's
// general override rule), and each raw reference is translated to its
// global Identity and merged into the table, overriding any prior
// occurrence with the same identity.
//
// pluginName is the ingesting plugin's own name; masters is that
// plugin's own master table (FRMR master index N, N>=1, names
// masters[N-1]; index 0 means the reference is owned by pluginName
// itself).
func (c *Cell) Ingest(pluginName string, masters []string, scalar []record.Subrecord, refList []record.RawReference) {
	c.Scalar = scalar

	for _, r := range refList {
		id := identityFor(pluginName, masters, r)
		if e, ok := c.entries[id]; ok {
			e.ref = r
			continue
		}
		e := &entry{identity: id, ref: r, seq: c.nextSeq}
		c.nextSeq++
		c.entries[id] = e
		c.order = append(c.order, id)
	}
}

func identityFor(pluginName string, masters []string, r record.RawReference) Identity {
	mi := r.MasterIndex()
	if mi == 0 {
		return Identity{Owner: strings.ToLower(pluginName), Index: r.OriginalIndex()}
	}
	idx := int(mi) - 1
	if idx >= 0 && idx < len(masters) {
		return Identity{Owner: strings.ToLower(masters[idx]), Index: r.OriginalIndex()}
	}
	// Master index points outside the plugin's own table: keep it
	// distinguishable rather than colliding with a real owner.
	return Identity{Owner: "?" + pluginName, Index: r.OriginalIndex()}
}

// sortTuple orders the merged table for output: moved-cell references
// first, then persistent before non-persistent references, then by owner
// rank (merged-set owners first, then by output master slot) and
// original index.
type sortTuple struct {
	movedCellIsNone bool
	notPersistent   bool
	ownerRank       int
	originalIndex   uint32
	seq             int
}

// EmitConfig supplies the output-side knowledge Emit needs to rekey each
// reference's master component: whether an owner plugin belongs to the
// set currently being merged (collapses to master-index 0) and, for
// owners that don't, the slot that owner occupies in the output header's
// master table.
type EmitConfig struct {
	IsMerged   func(owner string) bool
	MasterSlot func(owner string) (slot uint8, ok bool)
	Reindex    bool
}

// Emit produces the cell's final reference list in output order,
// rekeying each reference's master/original-index pair per spec section
// 4.E: owned (merged-set) references collapse to master-index 0 and
// always receive a fresh local ref-index reserved by the cell, since
// their original per-plugin index carries no meaning once multiple
// plugins' owned references share index 0 in the output — without this,
// two plugins each independently placing a "local ref 1" in the same
// cell would collide. External references keep their original index and
// are rewritten to point at their owner's output master-table slot,
// since that index is already unique once namespaced by master slot.
// Reindex adds a second pass on top of this mandatory one: it also
// renumbers the external references that didn't need renumbering to
// begin with, making the whole table contiguous. References whose owner
// cannot be resolved to a master slot are reported in dropped rather
// than emitted.
func (c *Cell) Emit(cfg EmitConfig) (out []record.RawReference, dropped []Identity) {
	ownerRank := func(owner string) int {
		if cfg.IsMerged(owner) {
			return -1
		}
		if slot, ok := cfg.MasterSlot(owner); ok {
			return int(slot)
		}
		return 1 << 30
	}

	ids := append([]Identity(nil), c.order...)
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := c.entries[ids[i]], c.entries[ids[j]]
		return less(c.tuple(a, ownerRank), c.tuple(b, ownerRank))
	})

	out = make([]record.RawReference, 0, len(ids))
	nextOwned := uint32(1)
	nextAny := uint32(1)
	for _, id := range ids {
		e := c.entries[id]
		r := e.ref

		if cfg.IsMerged(id.Owner) {
			idx := nextOwned
			nextOwned++
			if cfg.Reindex {
				idx = nextAny
			}
			nextAny++
			out = append(out, reindexedCopy(r, record.PackRefNum(0, idx)))
			continue
		}

		slot, ok := cfg.MasterSlot(id.Owner)
		if !ok {
			dropped = append(dropped, id)
			continue
		}
		idx := id.Index
		if cfg.Reindex {
			idx = nextAny
		}
		nextAny++
		out = append(out, reindexedCopy(r, record.PackRefNum(slot, idx)))
	}
	return out, dropped
}

func (c *Cell) tuple(e *entry, ownerRank func(string) int) sortTuple {
	return sortTuple{
		movedCellIsNone: e.ref.MovedCellIsNone(),
		notPersistent:   !e.ref.Persistent(),
		ownerRank:       ownerRank(e.identity.Owner),
		originalIndex:   e.identity.Index,
		seq:             e.seq,
	}
}

func less(a, b sortTuple) bool {
	if a.movedCellIsNone != b.movedCellIsNone {
		return !a.movedCellIsNone
	}
	if a.notPersistent != b.notPersistent {
		return !a.notPersistent
	}
	if a.ownerRank != b.ownerRank {
		return a.ownerRank < b.ownerRank
	}
	if a.originalIndex != b.originalIndex {
		return a.originalIndex < b.originalIndex
	}
	return a.seq < b.seq
}

func reindexedCopy(r record.RawReference, refNum uint32) record.RawReference {
	subs := make([]record.Subrecord, 0, len(r.Subrecords))
	replaced := false
	for _, s := range r.Subrecords {
		if s.Tag == "FRMR" {
			subs = append(subs, record.NewFRMRSubrecord(refNum))
			replaced = true
			continue
		}
		subs = append(subs, s)
	}
	if !replaced {
		subs = append([]record.Subrecord{record.NewFRMRSubrecord(refNum)}, subs...)
	}
	return record.RawReference{Subrecords: subs, RefNum: refNum}
}
