// Package bsa reads BSA archive containers well enough for the asset
// probe (spec section 4.B) to answer "does this mesh exist, and what are
// its bytes" without needing a full writer or hash-table verifier.
package bsa

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/flate"
)

// fileEntry is one archive member: its size (bit 30, 0x40000000, marks "compressed"
// per the container's per-file flag, the modern-BSA convention this
// reader follows), byte offset into the data section, and name.
type fileEntry struct {
	name       string
	size       uint32
	offset     uint32
	compressed bool
}

// Archive is an opened, fully-indexed BSA file. Archive holds only the
// directory; file payloads are read on demand by Extract.
type Archive struct {
	path    string
	entries map[string]fileEntry // keyed by lowercased, backslash-normalized name
}

const (
	headerSize  = 12 // version u32, hashOffset u32, fileCount u32
	sizeOffsize = 8  // per-file (size u32, offset u32)
)

// Open reads a BSA file once and indexes its directory (file names, sizes,
// offsets); no file payload is kept after Open returns.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bsa: open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("bsa: read %s: %w", path, err)
	}

	if len(data) < headerSize {
		return nil, fmt.Errorf("bsa: %s: truncated header", path)
	}

	hashOffset := binary.LittleEndian.Uint32(data[4:8])
	fileCount := binary.LittleEndian.Uint32(data[8:12])

	sizeOffsetTableLen := int(fileCount) * sizeOffsize
	nameOffsetTableLen := int(fileCount) * 4

	pos := headerSize
	if pos+sizeOffsetTableLen > len(data) {
		return nil, fmt.Errorf("bsa: %s: truncated size/offset table", path)
	}
	sizesOffsets := data[pos : pos+sizeOffsetTableLen]
	pos += sizeOffsetTableLen

	if pos+nameOffsetTableLen > len(data) {
		return nil, fmt.Errorf("bsa: %s: truncated name offset table", path)
	}
	nameOffsets := data[pos : pos+nameOffsetTableLen]
	pos += nameOffsetTableLen

	namesBlockLen := int(hashOffset) - sizeOffsetTableLen - nameOffsetTableLen - 4
	if namesBlockLen < 0 || pos+namesBlockLen > len(data) {
		return nil, fmt.Errorf("bsa: %s: inconsistent hash offset", path)
	}
	namesBlock := data[pos : pos+namesBlockLen]

	dataStart := headerSize + int(hashOffset) + int(fileCount)*8

	entries := make(map[string]fileEntry, fileCount)
	for i := 0; i < int(fileCount); i++ {
		rawSize := binary.LittleEndian.Uint32(sizesOffsets[i*8:])
		offset := binary.LittleEndian.Uint32(sizesOffsets[i*8+4:])
		nameOff := binary.LittleEndian.Uint32(nameOffsets[i*4:])

		if int(nameOff) >= len(namesBlock) {
			continue
		}
		name := cstringAt(namesBlock, int(nameOff))

		compressed := rawSize&0x40000000 != 0
		size := rawSize &^ 0x40000000

		entries[normalizeBSAName(name)] = fileEntry{
			name:       name,
			size:       size,
			offset:     uint32(dataStart) + offset,
			compressed: compressed,
		}
	}

	return &Archive{path: path, entries: entries}, nil
}

// Has reports whether name (any path-separator style, case-insensitive)
// exists in the archive directory.
func (a *Archive) Has(name string) bool {
	_, ok := a.entries[normalizeBSAName(name)]
	return ok
}

// Extract reads and, if needed, inflates a file's bytes.
func (a *Archive) Extract(name string) ([]byte, error) {
	e, ok := a.entries[normalizeBSAName(name)]
	if !ok {
		return nil, fmt.Errorf("bsa: %s: member %q not found", a.path, name)
	}

	f, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("bsa: open %s: %w", a.path, err)
	}
	defer f.Close()

	raw := make([]byte, e.size)
	if _, err := f.ReadAt(raw, int64(e.offset)); err != nil {
		return nil, fmt.Errorf("bsa: %s: read member %q: %w", a.path, name, err)
	}

	if !e.compressed {
		return raw, nil
	}

	// Compressed members store their inflated size as a leading u32,
	// matching how per-file compression markers work in modern BSA variants.
	if len(raw) < 4 {
		return nil, fmt.Errorf("bsa: %s: member %q: truncated compressed payload", a.path, name)
	}
	zr := flate.NewReader(bytes.NewReader(raw[4:]))
	defer zr.Close()
	return io.ReadAll(zr)
}

// ExtractHeader reads at most n bytes from the start of a member without
// inflating the whole payload when uncompressed, matching the asset
// probe's "read only enough" discipline for mesh root-node sniffing.
func (a *Archive) ExtractHeader(name string, n int) ([]byte, error) {
	e, ok := a.entries[normalizeBSAName(name)]
	if !ok {
		return nil, fmt.Errorf("bsa: %s: member %q not found", a.path, name)
	}
	if e.compressed {
		// Compressed members must be fully inflated; there is no seekable
		// shortcut into a deflate stream.
		full, err := a.Extract(name)
		if err != nil {
			return nil, err
		}
		if n > len(full) {
			n = len(full)
		}
		return full[:n], nil
	}

	f, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("bsa: open %s: %w", a.path, err)
	}
	defer f.Close()

	if uint32(n) > e.size {
		n = int(e.size)
	}
	buf := make([]byte, n)
	if _, err := f.ReadAt(buf, int64(e.offset)); err != nil {
		return nil, fmt.Errorf("bsa: %s: read member %q header: %w", a.path, name, err)
	}
	return buf, nil
}

func cstringAt(b []byte, off int) string {
	end := off
	for end < len(b) && b[end] != 0 {
		end++
	}
	return string(b[off:end])
}

// normalizeBSAName lowercases and backslash-normalizes a member path so
// lookups are agnostic to the separator/case conventions of whichever
// tool wrote the archive.
func normalizeBSAName(name string) string {
	name = strings.ToLower(name)
	return strings.ReplaceAll(name, "/", "\\")
}
