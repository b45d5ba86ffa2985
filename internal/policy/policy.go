// Package policy turns the selected mode, presets, and flags into the
// concrete per-kind decisions the record store and reference engine act
// on (spec section 4.F).
package policy

import (
	"fmt"

	"github.com/tes3tools/tesmerge/internal/store"
)

// Presets are the composable CLI shorthand flags (-C/-T/-O); each may be
// combined with the others and with an explicit --mode.
type Presets struct {
	CheckReferences bool // -C
	TurnNormalGrass bool // -T
	MergeLoadOrder  bool // -O
}

// Flags are the remaining CLI switches that affect mode/preset composition.
type Flags struct {
	Mode                  store.Mode
	UseLoadOrder          bool
	StripMasters          bool
	Reindex               bool
	ExcludeDeletedRecords bool
	PreferLooseOverBSA    bool
	ForceDialType         bool
	DryRun                bool
	DryRunSecondary       bool
	NoCompare             bool
	NoCompareSecondary    bool
	NoIgnoreErrors        bool
	IgnoreImportantErrors bool
}

// Buckets is the default plugin-index partitioning for -O, per spec
// section 4.F / 9's open question: the boundaries are parameterizable but
// this default split must be preserved for output-name compatibility.
var Buckets = []int{0, 100, 200, 700}

// Decisions is the resolved, preset-expanded configuration D and E act on.
type Decisions struct {
	Mode                  store.Mode
	UseLoadOrder          bool
	SecondaryOutputSuffix string // "-GRS" when grass/TNG is active, else ""
	ReportOnly            bool   // -C: dry-run implied for outputs
	Buckets               []int  // non-nil only when -O is active
	StripMasters          bool
	Reindex               bool
	ExcludeDeletedRecords bool
	PreferLooseOverBSA    bool
	ForceDialType         bool
	DryRun                bool
	DryRunSecondary       bool
	NoCompare             bool
	NoCompareSecondary    bool
	NoIgnoreErrors        bool
	IgnoreImportantErrors bool
}

// Resolve composes presets additively atop the explicit flags (spec
// section 4.F): -T adds a secondary grass output, -C forces
// use-load-order plus a report-only dry run, -O forces use-load-order,
// mode=keep, and output bucketing.
func Resolve(presets Presets, flags Flags) (Decisions, error) {
	d := Decisions{
		Mode:                  flags.Mode,
		UseLoadOrder:          flags.UseLoadOrder,
		StripMasters:          flags.StripMasters,
		Reindex:               flags.Reindex,
		ExcludeDeletedRecords: flags.ExcludeDeletedRecords,
		PreferLooseOverBSA:    flags.PreferLooseOverBSA,
		ForceDialType:         flags.ForceDialType,
		DryRun:                flags.DryRun,
		DryRunSecondary:       flags.DryRunSecondary,
		NoCompare:             flags.NoCompare,
		NoCompareSecondary:    flags.NoCompareSecondary,
		NoIgnoreErrors:        flags.NoIgnoreErrors,
		IgnoreImportantErrors: flags.IgnoreImportantErrors,
	}
	if d.Mode == "" {
		d.Mode = store.ModeReplace
	}

	if presets.TurnNormalGrass || d.Mode == store.ModeGrass {
		d.SecondaryOutputSuffix = "-GRS"
	}

	if presets.CheckReferences {
		d.UseLoadOrder = true
		d.ReportOnly = true
		d.DryRun = true
	}

	if presets.MergeLoadOrder {
		d.UseLoadOrder = true
		d.Mode = store.ModeKeep
		d.Buckets = Buckets
	}

	if err := validateMode(d.Mode); err != nil {
		return Decisions{}, err
	}
	return d, nil
}

func validateMode(m store.Mode) error {
	switch m {
	case store.ModeKeep, store.ModeKeepWithoutLands, store.ModeReplace, store.ModeCompleteReplace, store.ModeGrass:
		return nil
	default:
		return fmt.Errorf("policy: unknown mode %q", m)
	}
}

// BucketName builds the -O output filename for a plugin-index bucket,
// e.g. base "Merged.esp" and bucket 100 -> "Merged-100.esp".
func BucketName(base string, bucket int) string {
	ext := ".esp"
	stem := base
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			ext = base[i:]
			stem = base[:i]
			break
		}
	}
	return fmt.Sprintf("%s-%d%s", stem, bucket, ext)
}

// BucketFor returns which of Buckets a plugin at the given load-order
// index falls into (the highest boundary not exceeding the index).
func BucketFor(buckets []int, pluginIndex int) int {
	result := buckets[0]
	for _, b := range buckets {
		if pluginIndex >= b {
			result = b
		}
	}
	return result
}
