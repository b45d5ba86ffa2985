// Package store implements the record store (spec section 4.D): the
// override register that ingests records from an ordered plugin stream
// and emits them in stable output order, honoring per-kind mergeable
// stacking, DIAL/INFO interleaving, and cell-specific replace rules.
package store

import (
	"sort"
	"strings"

	"github.com/tes3tools/tesmerge/internal/merrors"
	"github.com/tes3tools/tesmerge/internal/record"
	"github.com/tes3tools/tesmerge/internal/refs"
)

// Mode selects the store's duplicate-handling policy (spec section 4.D/4.F).
type Mode string

const (
	ModeKeep             Mode = "keep"
	ModeKeepWithoutLands Mode = "keep_without_lands"
	ModeReplace          Mode = "replace"
	ModeCompleteReplace  Mode = "complete_replace"
	ModeGrass            Mode = "grass"
	// ModeDebug bypasses duplicate detection entirely and keeps every
	// variant of every kind, per spec section 3's invariant note; it has
	// no CLI flag of its own and exists for internal diagnostics.
	ModeDebug Mode = "debug"
)

// mergesKind reports whether kind accumulates variants under this mode
// rather than overriding to a single head (spec section 4.D item 1-2).
func (m Mode) mergesKind(kind record.Kind) bool {
	if m == ModeDebug {
		return true
	}
	switch kind {
	case record.KindLEVI, record.KindLEVC:
		return m == ModeKeep || m == ModeKeepWithoutLands
	case record.KindLAND:
		return m == ModeKeep
	}
	return false
}

// Options configures ingestion-time policy knobs outside the mode itself.
type Options struct {
	ForceDialType         bool
	KeepOnlyLastInfoIDs   map[string]bool // lowercased info ids
	ExcludeDeletedRecords bool
}

type genericEntry struct {
	variants []record.Record
}

type kindBucket struct {
	entries map[string]*genericEntry
	order   []string
}

type dialEntry struct {
	rec       record.Record
	infos     map[string]record.Record
	infoOrder []string
}

// Store is the override register: a keyed collection of last-seen (or,
// for mergeable kinds, accumulated) records, plus the DIAL/INFO and cell
// special cases spec section 4.D calls out.
type Store struct {
	mode Mode
	opts Options

	buckets map[record.Kind]*kindBucket

	dials     map[string]*dialEntry
	dialOrder []string
	// trackedInfoOwner remembers which dial currently holds an INFO id
	// tracked by KeepOnlyLastInfoIDs, so a later occurrence under a
	// different dial can evict the earlier one (spec: "only the last
	// occurrence survives").
	trackedInfoOwner map[string]string

	cells     map[record.Key]*refs.Cell
	cellOrder []record.Key
}

// New starts an empty store for the given mode and options.
func New(mode Mode, opts Options) *Store {
	return &Store{
		mode:             mode,
		opts:             opts,
		buckets:          make(map[record.Kind]*kindBucket),
		dials:            make(map[string]*dialEntry),
		trackedInfoOwner: make(map[string]string),
		cells:            make(map[record.Key]*refs.Cell),
	}
}

// Ingest absorbs one plugin's records in stream order. masters is that
// plugin's own master table (for cell reference rekeying); pluginName is
// its own name (for references it owns outright).
func (s *Store) Ingest(pluginName string, masters []string, records []record.Record) error {
	currentDialID := ""
	for _, rec := range records {
		switch rec.Kind {
		case record.KindHeader:
			continue
		case record.KindDIAL:
			s.ingestDial(rec)
			currentDialID = strings.ToLower(record.DialogueID(rec))
		case record.KindINFO:
			if currentDialID == "" {
				return merrors.Newf(merrors.CodecStructural, "%s: INFO record with no preceding DIAL", pluginName)
			}
			if err := s.ingestInfo(currentDialID, rec); err != nil {
				return err
			}
		case record.KindCELL:
			s.ingestCell(pluginName, masters, rec)
		default:
			if err := s.ingestGeneric(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) bucket(kind record.Kind) *kindBucket {
	b, ok := s.buckets[kind]
	if !ok {
		b = &kindBucket{entries: make(map[string]*genericEntry)}
		s.buckets[kind] = b
	}
	return b
}

func (s *Store) ingestGeneric(rec record.Record) error {
	key, err := record.CanonicalID(rec)
	if err != nil {
		return merrors.New(merrors.CodecStructural, err)
	}

	b := s.bucket(rec.Kind)
	e, ok := b.entries[key.ID]
	if !ok {
		e = &genericEntry{}
		b.entries[key.ID] = e
		b.order = append(b.order, key.ID)
	}

	if s.mode.mergesKind(rec.Kind) {
		e.variants = append(e.variants, rec)
	} else {
		e.variants = []record.Record{rec}
	}
	return nil
}

func (s *Store) ingestDial(rec record.Record) {
	id := strings.ToLower(record.DialogueID(rec))
	e, ok := s.dials[id]
	if !ok {
		e = &dialEntry{infos: make(map[string]record.Record)}
		s.dials[id] = e
		s.dialOrder = append(s.dialOrder, id)
	}
	e.rec = rec

	if s.opts.ForceDialType {
		newType := record.DialogueType(rec)
		for infoID, infoRec := range e.infos {
			e.infos[infoID] = forceInfoDialType(infoRec, newType)
		}
	}
}

func (s *Store) ingestInfo(dialID string, rec record.Record) error {
	e, ok := s.dials[dialID]
	if !ok {
		return merrors.Newf(merrors.CodecStructural, "INFO %q references unknown dialogue %q", record.InfoID(rec), dialID)
	}

	id := strings.ToLower(record.InfoID(rec))

	if s.opts.KeepOnlyLastInfoIDs[id] {
		if prevDial, tracked := s.trackedInfoOwner[id]; tracked && prevDial != dialID {
			if pe, ok := s.dials[prevDial]; ok {
				delete(pe.infos, id)
				pe.infoOrder = removeString(pe.infoOrder, id)
			}
		}
		s.trackedInfoOwner[id] = dialID
	}

	if _, exists := e.infos[id]; !exists {
		e.infoOrder = append(e.infoOrder, id)
	}
	e.infos[id] = rec
	return nil
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// forceInfoDialType rewrites an INFO record's type byte to match its
// dial's current type, per --force-dial-type (spec section 4.D, and the
// open question in section 9: "force to the DIAL that survives").
func forceInfoDialType(rec record.Record, dialType byte) record.Record {
	subs := make([]record.Subrecord, len(rec.Subrecords))
	copy(subs, rec.Subrecords)
	for i, s := range subs {
		if s.Tag == "DATA" && len(s.Payload) > 0 {
			payload := append([]byte(nil), s.Payload...)
			payload[0] = dialType
			subs[i] = record.Subrecord{Tag: "DATA", Payload: payload}
		}
	}
	rec.Subrecords = subs
	return rec
}

var ambiWhgtTags = map[string]bool{"AMBI": true, "WHGT": true}

func (s *Store) ingestCell(pluginName string, masters []string, rec record.Record) {
	key, err := record.CellKey(rec)
	if err != nil {
		return
	}

	cell, ok := s.cells[key]
	if !ok {
		cell = refs.NewCell(key)
		s.cells[key] = cell
		s.cellOrder = append(s.cellOrder, key)
	}

	scalar, rawRefs := record.SplitCellSubrecords(rec.Subrecords)

	// A deleted cell (DELE subrecord plus deleted flag) has its AMBI/WHGT
	// cleared, whether or not an earlier plugin stored the cell.
	if rec.Deleted {
		filtered := scalar[:0]
		for _, s := range scalar {
			if !ambiWhgtTags[s.Tag] {
				filtered = append(filtered, s)
			}
		}
		scalar = filtered
	}

	// Strip XSCL from deleted instance references (replace-of-deleted rule).
	for i, r := range rawRefs {
		if !r.Deleted() {
			continue
		}
		subs := r.Subrecords[:0:0]
		for _, s := range r.Subrecords {
			if s.Tag != "XSCL" {
				subs = append(subs, s)
			}
		}
		rawRefs[i].Subrecords = subs
	}

	cell.Ingest(pluginName, masters, scalar, rawRefs)
	cell.Flags = rec.Flags
	cell.Flags2 = rec.Flags2
	cell.Deleted = rec.Deleted
}

// Emit yields every non-cell record in stable output order: the
// configured kind order, then DIAL/INFO interleaved with Journal-type
// DIALs first (spec section 4.D's Emit contract). Cell records are
// produced separately by EmitCells, since they need reference-engine
// context (master table, merged-set membership) the store alone lacks.
func (s *Store) Emit() []record.Record {
	var out []record.Record
	for _, kind := range record.EmitOrder {
		b := s.buckets[kind]
		if b == nil {
			continue
		}
		for _, id := range b.order {
			out = append(out, b.entries[id].variants...)
		}
	}
	out = append(out, s.emitDialInfo()...)
	return out
}

func (s *Store) emitDialInfo() []record.Record {
	order := append([]string(nil), s.dialOrder...)
	sort.SliceStable(order, func(i, j int) bool {
		ji := record.DialogueType(s.dials[order[i]].rec) == record.JournalDialogueType
		jj := record.DialogueType(s.dials[order[j]].rec) == record.JournalDialogueType
		return ji && !jj
	})

	var out []record.Record
	for _, id := range order {
		e := s.dials[id]
		out = append(out, e.rec)
		for _, infoID := range e.infoOrder {
			if rec, ok := e.infos[infoID]; ok {
				out = append(out, rec)
			}
		}
	}
	return out
}

// ObjectMeshes collects the lowercased id -> MODL mesh path mapping for
// every absorbed record of the given kind, used by the grass classifier
// to resolve a STAT reference's base object to a mesh without the
// reference engine needing to know about MODL at all.
func (s *Store) ObjectMeshes(kind record.Kind) map[string]string {
	out := make(map[string]string)
	b := s.buckets[kind]
	if b == nil {
		return out
	}
	for _, id := range b.order {
		e := b.entries[id]
		if len(e.variants) == 0 {
			continue
		}
		head := e.variants[len(e.variants)-1]
		if modl, ok := head.Find("MODL"); ok {
			out[id] = strings.TrimRight(string(modl), "\x00")
		}
	}
	return out
}

// MissingReference reports a cell reference dropped because its source
// master could not be resolved into the output's master table (spec
// section 4.E item 2 / section 7's reference-missing-master kind).
type MissingReference struct {
	Cell  record.Key
	Owner string
	Index uint32
}

// CellEmitConfig supplies the reference-engine context EmitCells needs,
// resolved by the caller from the merge list's plugin set and the
// output header's collapsed master table.
type CellEmitConfig struct {
	IsMerged   func(owner string) bool
	MasterSlot func(owner string) (slot uint8, ok bool)
	Reindex    bool
}

// EmitCells produces every absorbed cell's final record, in the order
// cells were first encountered, honoring ExcludeDeletedRecords for
// cells left with no references after reference resolution.
func (s *Store) EmitCells(cfg CellEmitConfig) ([]record.Record, []MissingReference) {
	var out []record.Record
	var missing []MissingReference

	for _, key := range s.cellOrder {
		cell := s.cells[key]
		rawRefs, dropped := cell.Emit(refs.EmitConfig{
			IsMerged:   cfg.IsMerged,
			MasterSlot: cfg.MasterSlot,
			Reindex:    cfg.Reindex,
		})
		for _, id := range dropped {
			missing = append(missing, MissingReference{Cell: key, Owner: id.Owner, Index: id.Index})
		}

		if s.opts.ExcludeDeletedRecords && cell.Deleted && len(rawRefs) == 0 {
			continue
		}

		subs := record.JoinCellSubrecords(cell.Scalar, rawRefs)
		out = append(out, record.Record{
			Kind:       record.KindCELL,
			Flags:      cell.Flags,
			Flags2:     cell.Flags2,
			Subrecords: subs,
			Deleted:    cell.Deleted,
		})
	}
	return out, missing
}
