package record

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MasterEntry is one (plugin-name, original-size) pair in a header's
// master table (spec section 3).
type MasterEntry struct {
	Name         string
	OriginalSize uint64
}

// Header is the decoded form of a TES3 record's HEDR/MAST/DATA subrecords.
type Header struct {
	Version     float32
	FileType    uint32
	Author      string
	Description string
	NumRecords  uint32
	Masters     []MasterEntry
}

// DecodeHeader extracts a Header from a TES3 record.
func DecodeHeader(rec Record) (Header, error) {
	if rec.Kind != KindHeader {
		return Header{}, fmt.Errorf("record kind %q is not a TES3 header", rec.Kind)
	}

	hedr, ok := rec.Find("HEDR")
	if !ok || len(hedr) < 300 {
		return Header{}, fmt.Errorf("TES3 header missing or truncated HEDR subrecord")
	}

	h := Header{
		Version:    math.Float32frombits(binary.LittleEndian.Uint32(hedr[0:4])),
		FileType:   binary.LittleEndian.Uint32(hedr[4:8]),
		NumRecords: binary.LittleEndian.Uint32(hedr[296:300]),
	}
	h.Author = cstring(hedr[8:40])
	h.Description = cstring(hedr[40:296])

	masts := rec.FindAll("MAST")
	datas := rec.FindAll("DATA")
	for i, m := range masts {
		size := uint64(0)
		if i < len(datas) && len(datas[i]) >= 8 {
			size = binary.LittleEndian.Uint64(datas[i][:8])
		}
		h.Masters = append(h.Masters, MasterEntry{Name: cstring(m), OriginalSize: size})
	}

	return h, nil
}

// EncodeHeader builds a TES3 header record from h.
func EncodeHeader(h Header) Record {
	hedr := make([]byte, 300)
	binary.LittleEndian.PutUint32(hedr[0:4], math.Float32bits(h.Version))
	binary.LittleEndian.PutUint32(hedr[4:8], h.FileType)
	copyPadded(hedr[8:40], h.Author)
	copyPadded(hedr[40:296], h.Description)
	binary.LittleEndian.PutUint32(hedr[296:300], h.NumRecords)

	subs := []Subrecord{{Tag: "HEDR", Payload: hedr}}
	for _, m := range h.Masters {
		subs = append(subs, NewStringSubrecord("MAST", m.Name))
		size := make([]byte, 8)
		binary.LittleEndian.PutUint64(size, m.OriginalSize)
		subs = append(subs, Subrecord{Tag: "DATA", Payload: size})
	}

	return Record{Kind: KindHeader, Subrecords: subs}
}

func copyPadded(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
