package record

import (
	"encoding/binary"
	"fmt"
	"hash/crc64"
	"strings"
)

// Key is the (kind, canonical-id) identity spec section 3 keys the
// override register by. ID encodes the kind-specific composite so Key
// stays a single comparable, hashable struct usable as a map key.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.ID)
}

// ecmaTable is the CRC-64/ECMA-182 polynomial table spec section 3 mandates
// for synthesizing an SSCR id from its script name (P7: CRC64 must be
// stable across runs for the same input, which requires a fixed, named
// polynomial rather than an implementation-defined hash).
var ecmaTable = crc64.MakeTable(crc64.ECMA)

// GenericID returns the lowercased NAME-subrecord id most record kinds use
// as their canonical identifier.
func GenericID(rec Record) string {
	b, _ := rec.Find("NAME")
	return lower(cstring(b))
}

// DialogueID returns a DIAL record's topic id (its NAME subrecord).
func DialogueID(rec Record) string {
	return GenericID(rec)
}

// DialogueType is the DIAL record's single-byte DATA subrecord: the engine
// treats type 4 as Journal, ordered before all other dialogue kinds
// (spec section 3's invariant on Journal DIALs).
func DialogueType(rec Record) byte {
	b, ok := rec.Find("DATA")
	if !ok || len(b) == 0 {
		return 0
	}
	return b[0]
}

// JournalDialogueType is the DATA byte value the engine uses for Journal-kind DIALs.
const JournalDialogueType = 4

// InfoID returns an INFO record's own id (its INAM subrecord), lowercased.
func InfoID(rec Record) string {
	b, _ := rec.Find("INAM")
	return lower(cstring(b))
}

// InfoKey builds the (DIAL, INFO) composite canonical id spec section 3
// defines for INFO records: both components lowercased.
func InfoKey(dialogueID string, infoID string) Key {
	return Key{Kind: KindINFO, ID: lower(dialogueID) + "\x00" + lower(infoID)}
}

// CellCoords reports a CELL record's grid position and interior flag from
// its DATA subrecord (flags u32, gridX i32, gridY i32).
func CellCoords(rec Record) (gridX, gridY int32, interior bool, ok bool) {
	b, found := rec.Find("DATA")
	if !found || len(b) < 12 {
		return 0, 0, false, false
	}
	flags := binary.LittleEndian.Uint32(b[0:4])
	gridX = int32(binary.LittleEndian.Uint32(b[4:8]))
	gridY = int32(binary.LittleEndian.Uint32(b[8:12]))
	return gridX, gridY, flags&0x01 != 0, true
}

// CellKey builds a CELL record's canonical id: (gridX, gridY) for exterior
// cells, the lowercased name for interior cells, with a bit flag
// distinguishing the two spaces so an interior cell named "0,0" never
// collides with the exterior cell at grid (0,0).
func CellKey(rec Record) (Key, error) {
	gridX, gridY, interior, ok := CellCoords(rec)
	if !ok {
		return Key{}, fmt.Errorf("CELL record missing DATA subrecord")
	}
	if interior {
		name, _ := rec.Find("NAME")
		return Key{Kind: KindCELL, ID: "int:" + lower(cstring(name))}, nil
	}
	return Key{Kind: KindCELL, ID: fmt.Sprintf("ext:%d,%d", gridX, gridY)}, nil
}

// LandCoords reports a LAND record's grid position from its INTV subrecord
// (two little-endian int32s).
func LandCoords(rec Record) (gridX, gridY int32, ok bool) {
	b, found := rec.Find("INTV")
	if !found || len(b) < 8 {
		return 0, 0, false
	}
	return int32(binary.LittleEndian.Uint32(b[0:4])), int32(binary.LittleEndian.Uint32(b[4:8])), true
}

// LandKey builds a LAND record's canonical id: its (gridX, gridY) pair.
func LandKey(rec Record) (Key, error) {
	gridX, gridY, ok := LandCoords(rec)
	if !ok {
		return Key{}, fmt.Errorf("LAND record missing INTV subrecord")
	}
	return Key{Kind: KindLAND, ID: fmt.Sprintf("%d,%d", gridX, gridY)}, nil
}

// sscrScriptName returns the script name an SSCR record names, stored in
// its DATA subrecord (the payload actually exercised by a start-script
// entry; NAME, when present, is the record's own id).
func sscrScriptName(rec Record) string {
	b, _ := rec.Find("DATA")
	return cstring(b)
}

// SSCRKey builds an SSCR record's canonical id. A non-empty NAME subrecord
// is used directly (lowercased); an empty one falls back to
// CRC64(script-name) rendered as lowercase hex, satisfying P7 (the same
// script name always yields the same id).
func SSCRKey(rec Record) Key {
	id := GenericID(rec)
	if id != "" {
		return Key{Kind: KindSSCR, ID: id}
	}
	sum := crc64.Checksum([]byte(sscrScriptName(rec)), ecmaTable)
	return Key{Kind: KindSSCR, ID: fmt.Sprintf("%016x", sum)}
}

// sndgCreatureName returns an SNDG record's creature name from its CNAM subrecord.
func sndgCreatureName(rec Record) string {
	b, _ := rec.Find("CNAM")
	return cstring(b)
}

// sndgSoundType returns an SNDG record's sound-type digit (0-7) from its
// single-byte DATA subrecord.
func sndgSoundType(rec Record) byte {
	b, _ := rec.Find("DATA")
	if len(b) == 0 {
		return 0
	}
	return b[0] % 8
}

// SNDGKey builds an SNDG record's canonical id. A non-empty NAME is used
// directly; an empty one synthesizes creature-name truncated to 28 bytes,
// "000", and the sound-type digit (P8).
func SNDGKey(rec Record) Key {
	id := GenericID(rec)
	if id != "" {
		return Key{Kind: KindSNDG, ID: id}
	}

	name := sndgCreatureName(rec)
	if len(name) > 28 {
		name = name[:28]
	}
	synthesized := fmt.Sprintf("%s000%d", name, sndgSoundType(rec))
	return Key{Kind: KindSNDG, ID: lower(synthesized)}
}

// CanonicalID derives the spec-section-3 (kind, canonical-id) key for any
// record kind except INFO, whose key additionally needs the owning
// dialogue's id and is built by the caller via InfoKey once that context
// is known (the store tracks "current DIAL" while walking a plugin's
// record stream, since INFO carries no back-reference to its topic).
func CanonicalID(rec Record) (Key, error) {
	switch rec.Kind {
	case KindCELL:
		return CellKey(rec)
	case KindLAND:
		return LandKey(rec)
	case KindSSCR:
		return SSCRKey(rec), nil
	case KindSNDG:
		return SNDGKey(rec), nil
	case KindINFO:
		return Key{}, fmt.Errorf("INFO canonical id requires dialogue context, use InfoKey")
	case KindHeader:
		return Key{Kind: KindHeader, ID: ""}, nil
	default:
		return Key{Kind: rec.Kind, ID: GenericID(rec)}, nil
	}
}

// normalizeMaster lowercases a master/plugin filename for case-insensitive
// comparison while the caller keeps the original for display/emission.
func normalizeMaster(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
