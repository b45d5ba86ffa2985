package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tes3tools/tesmerge/internal/merrors"
)

// recordHeaderLen is the fixed (tag,size,flags,flags2) prefix preceding
// every record's subrecord payload (spec section 6).
const recordHeaderLen = 4 + 4 + 4 + 4

// subHeaderLen is the fixed (tag,size) prefix preceding every subrecord payload.
const subHeaderLen = 4 + 4

// Decode reads the full sequence of records from a plugin's raw bytes.
//
// Decode stops and returns a codec-unsupported-kind error (wrapping
// *merrors.Error) at the first record whose tag is outside the TES3
// allow-list; callers decide at that point, not here, whether to skip the
// plugin or abort (merge.Run skips it unless --no-ignore-errors is set).
func Decode(data []byte) ([]Record, error) {
	var out []Record
	pos := 0

	for pos < len(data) {
		if pos+recordHeaderLen > len(data) {
			return nil, merrors.New(merrors.CodecStructural, errors.New("truncated record header"))
		}

		tag := string(data[pos : pos+4])
		size := binary.LittleEndian.Uint32(data[pos+4:])
		flags := binary.LittleEndian.Uint32(data[pos+8:])
		flags2 := binary.LittleEndian.Uint32(data[pos+12:])
		pos += recordHeaderLen

		kind := Kind(tag)
		if !Allowed(kind) {
			return nil, merrors.Newf(merrors.CodecUnsupportedKind, "record kind %q is not a supported TES3 record", tag)
		}

		end := pos + int(size)
		if end < pos || end > len(data) {
			return nil, merrors.New(merrors.CodecStructural, fmt.Errorf("record %s: payload overruns file (size=%d)", tag, size))
		}

		subs, err := decodeSubrecords(data[pos:end])
		if err != nil {
			return nil, err
		}
		pos = end

		rec := Record{Kind: kind, Flags: flags, Flags2: flags2, Subrecords: subs}
		_, hasDele := rec.Find("DELE")
		rec.Deleted = hasDele && flags&0x20 != 0
		out = append(out, rec)
	}

	return out, nil
}

func decodeSubrecords(payload []byte) ([]Subrecord, error) {
	var subs []Subrecord
	pos := 0
	for pos < len(payload) {
		if pos+subHeaderLen > len(payload) {
			return nil, merrors.New(merrors.CodecStructural, errors.New("truncated subrecord header"))
		}

		tag := string(payload[pos : pos+4])
		size := binary.LittleEndian.Uint32(payload[pos+4:])
		pos += subHeaderLen

		end := pos + int(size)
		if end < pos || end > len(payload) {
			return nil, merrors.New(merrors.CodecStructural, fmt.Errorf("subrecord %s: payload overruns record (size=%d)", tag, size))
		}

		body := make([]byte, end-pos)
		copy(body, payload[pos:end])
		subs = append(subs, Subrecord{Tag: tag, Payload: body})
		pos = end
	}
	return subs, nil
}

// Encode serializes records back to plugin bytes, the inverse of Decode.
// Records whose subrecord stream was never mutated round-trip byte for
// byte, since Subrecord.Payload is the exact span Decode produced.
func Encode(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	for _, rec := range records {
		payload, err := encodeSubrecords(rec.Subrecords)
		if err != nil {
			return nil, err
		}

		if len(rec.Kind) != 4 {
			return nil, merrors.Newf(merrors.CodecStructural, "record kind %q is not 4 characters", rec.Kind)
		}

		var hdr [recordHeaderLen]byte
		copy(hdr[:4], rec.Kind)
		binary.LittleEndian.PutUint32(hdr[4:], uint32(len(payload)))
		binary.LittleEndian.PutUint32(hdr[8:], rec.Flags)
		binary.LittleEndian.PutUint32(hdr[12:], rec.Flags2)

		buf.Write(hdr[:])
		buf.Write(payload)
	}
	return buf.Bytes(), nil
}

func encodeSubrecords(subs []Subrecord) ([]byte, error) {
	var buf bytes.Buffer
	for _, s := range subs {
		if len(s.Tag) != 4 {
			return nil, merrors.Newf(merrors.CodecStructural, "subrecord tag %q is not 4 characters", s.Tag)
		}

		var hdr [subHeaderLen]byte
		copy(hdr[:4], s.Tag)
		binary.LittleEndian.PutUint32(hdr[4:], uint32(len(s.Payload)))

		buf.Write(hdr[:])
		buf.Write(s.Payload)
	}
	return buf.Bytes(), nil
}

// ReadPlugin reads and decodes a plugin file from r, its header record
// first per spec section 6.
func ReadPlugin(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, merrors.New(merrors.IORead, err)
	}

	recs, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 || recs[0].Kind != KindHeader {
		return nil, merrors.New(merrors.CodecStructural, errors.New("plugin does not start with a TES3 header record"))
	}
	return recs, nil
}

// WritePlugin encodes records (header first) and writes them to w.
func WritePlugin(w io.Writer, records []Record) error {
	if len(records) == 0 || records[0].Kind != KindHeader {
		return merrors.New(merrors.CodecStructural, errors.New("records do not start with a TES3 header record"))
	}

	out, err := Encode(records)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return merrors.New(merrors.IOWrite, err)
	}
	return nil
}

// NewStringSubrecord builds a NUL-terminated string subrecord payload, the
// common TES3 string encoding used by NAME/FNAM/etc. subrecords.
func NewStringSubrecord(tag string, s string) Subrecord {
	b := make([]byte, 0, len(s)+1)
	b = append(b, s...)
	b = append(b, 0)
	return Subrecord{Tag: tag, Payload: b}
}
