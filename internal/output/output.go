// Package output implements the output stabilizer (spec section 4.H):
// deterministic re-serialization, compare-with-previous-version with a
// master-table "original size" blind spot, and first-diff reporting.
// Primary and secondary (grass) outputs are independent Write calls, so
// their dry-run/compare knobs naturally compose without a shared struct.
package output

import (
	"bytes"
	"fmt"
	"os"

	"github.com/tes3tools/tesmerge/internal/record"
)

// Options controls one output's write behavior.
type Options struct {
	DryRun  bool
	Compare bool // default true; --no-compare(-secondary) sets false
}

// Result reports what Write did.
type Result struct {
	Written         bool
	Unchanged       bool
	FirstDiffOffset int // -1 when Unchanged or no prior file existed
}

// Write re-serializes records (header first) through the codec and
// writes them to path, subject to opts. Compare-with-previous treats a
// diff confined to the header's master-table original-size fields as no
// change at all, preserving the prior file's mtime.
func Write(path string, records []record.Record, opts Options) (Result, error) {
	newBytes, err := record.Encode(records)
	if err != nil {
		return Result{}, fmt.Errorf("output: encoding %s: %w", path, err)
	}

	result := Result{FirstDiffOffset: -1}

	if opts.Compare {
		if prior, err := os.ReadFile(path); err == nil {
			unchanged, diffOffset, cmpErr := compare(records, prior)
			if cmpErr == nil {
				result.Unchanged = unchanged
				result.FirstDiffOffset = diffOffset
				if unchanged {
					return result, nil
				}
			}
		}
	}

	if opts.DryRun {
		return result, nil
	}

	if err := os.WriteFile(path, newBytes, 0o644); err != nil {
		return Result{}, fmt.Errorf("output: writing %s: %w", path, err)
	}
	result.Written = true
	return result, nil
}

// compare reports whether newRecords, once normalized the same way the
// prior file's bytes are, are byte-identical, and if not, the first
// differing byte offset.
func compare(newRecords []record.Record, priorBytes []byte) (unchanged bool, firstDiffOffset int, err error) {
	priorRecords, err := record.Decode(priorBytes)
	if err != nil {
		return false, -1, err
	}

	newEncoded, err := record.Encode(normalizeForCompare(newRecords))
	if err != nil {
		return false, -1, err
	}
	priorEncoded, err := record.Encode(normalizeForCompare(priorRecords))
	if err != nil {
		return false, -1, err
	}

	if bytes.Equal(newEncoded, priorEncoded) {
		return true, -1, nil
	}
	return false, firstDiff(newEncoded, priorEncoded), nil
}

func firstDiff(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// normalizeForCompare zeroes the header's MAST-paired DATA (original
// size) subrecord payloads, the one field compare-with-previous ignores.
func normalizeForCompare(records []record.Record) []record.Record {
	if len(records) == 0 || records[0].Kind != record.KindHeader {
		return records
	}
	out := append([]record.Record(nil), records...)
	out[0] = zeroMasterSizes(out[0])
	return out
}

func zeroMasterSizes(rec record.Record) record.Record {
	subs := append([]record.Subrecord(nil), rec.Subrecords...)
	for i, s := range subs {
		if s.Tag == "DATA" && i > 0 && subs[i-1].Tag == "MAST" {
			subs[i] = record.Subrecord{Tag: "DATA", Payload: make([]byte, len(s.Payload))}
		}
	}
	rec.Subrecords = subs
	return rec
}
