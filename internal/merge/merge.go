// Package merge is the orchestrator that ties together merge-list
// expansion, the record store, the reference engine, the grass
// classifier, and the output stabilizer into one merge-list run (spec
// section 2's data-flow: C -> A -> D/E -> F -> G -> H).
package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tes3tools/tesmerge/internal/asset"
	"github.com/tes3tools/tesmerge/internal/grass"
	"github.com/tes3tools/tesmerge/internal/mergelist"
	"github.com/tes3tools/tesmerge/internal/merrors"
	"github.com/tes3tools/tesmerge/internal/output"
	"github.com/tes3tools/tesmerge/internal/policy"
	"github.com/tes3tools/tesmerge/internal/record"
	"github.com/tes3tools/tesmerge/internal/store"
)

// Job is everything one merge-list run needs besides the spec itself.
type Job struct {
	Spec        mergelist.Spec
	Decisions   policy.Decisions
	BaseDir     string
	Probe       *asset.Probe // nil disables grass classification
	GrassFilter []string
	Logger      *zap.Logger
}

// Outcome reports what a Run produced.
type Outcome struct {
	OutputPath        string
	Result            output.Result
	SecondaryPath     string
	SecondaryResult   *output.Result
	MissingReferences []store.MissingReference
}

// Run executes one merge list end to end: expands its plugin entries,
// ingests them into a record store, resolves the reference engine
// against the collapsed master table, partitions grass if the secondary
// output is active, and writes the result(s) through the output
// stabilizer.
func Run(job Job) (Outcome, error) {
	entries, err := mergelist.ExpandEntries(mergelist.ExpandOptions{BaseDir: job.BaseDir}, job.Spec.Plugins)
	if err != nil {
		return Outcome{}, err
	}
	if len(entries) == 0 {
		return Outcome{}, merrors.Newf(merrors.MergeListParse, "merge list %q: no plugins to merge", job.Spec.OutputPath)
	}

	merged := make(map[string]bool, len(entries))
	for _, e := range entries {
		merged[strings.ToLower(filepath.Base(e))] = true
	}

	st := store.New(job.Decisions.Mode, store.Options{
		ForceDialType:         job.Decisions.ForceDialType,
		ExcludeDeletedRecords: job.Decisions.ExcludeDeletedRecords,
	})

	var externalMasters []record.MasterEntry
	seenMaster := map[string]bool{}
	ingestedCount := 0

	for _, e := range entries {
		path := mergelist.ResolvePath(job.BaseDir, e)
		f, err := os.Open(path)
		if err != nil {
			wrapped := merrors.New(merrors.IOOpen, fmt.Errorf("merge: opening %s: %w", path, err))
			if job.Decisions.NoIgnoreErrors {
				return Outcome{}, wrapped
			}
			if job.Logger != nil {
				job.Logger.Warn("skipping unreadable plugin", zap.String("plugin", path), zap.Error(err))
			}
			continue
		}
		recs, err := record.ReadPlugin(f)
		f.Close()
		if err != nil {
			if job.Decisions.NoIgnoreErrors {
				return Outcome{}, err
			}
			if job.Logger != nil {
				job.Logger.Warn("skipping malformed plugin", zap.String("plugin", path), zap.Error(err))
			}
			continue
		}

		hdr, err := record.DecodeHeader(recs[0])
		if err != nil {
			return Outcome{}, merrors.New(merrors.CodecStructural, err)
		}

		name := filepath.Base(path)
		var masterNames []string
		for _, m := range hdr.Masters {
			masterNames = append(masterNames, m.Name)
			lower := strings.ToLower(m.Name)
			if !merged[lower] && !seenMaster[lower] {
				seenMaster[lower] = true
				externalMasters = append(externalMasters, m)
			}
		}

		if err := st.Ingest(name, masterNames, recs); err != nil {
			if job.Decisions.NoIgnoreErrors {
				return Outcome{}, err
			}
			if job.Logger != nil {
				job.Logger.Warn("plugin ingest error", zap.String("plugin", name), zap.Error(err))
			}
			continue
		}

		ingestedCount++
	}

	if job.Logger != nil {
		job.Logger.Info("ingested plugins", zap.Int("count", ingestedCount), zap.String("output", job.Spec.OutputPath))
	}

	masterSlot := func(owner string) (uint8, bool) {
		lower := strings.ToLower(owner)
		for i, m := range externalMasters {
			if strings.ToLower(m.Name) == lower {
				return uint8(i + 1), true
			}
		}
		return 0, false
	}
	isMerged := func(owner string) bool {
		return merged[strings.ToLower(owner)]
	}

	generic := st.Emit()
	cells, missing := st.EmitCells(store.CellEmitConfig{
		IsMerged:   isMerged,
		MasterSlot: masterSlot,
		Reindex:    job.Decisions.Reindex,
	})

	for _, m := range missing {
		werr := merrors.Newf(merrors.ReferenceMissingMaster, "cell %s: reference %d owned by %q has no resolvable master", m.Cell.String(), m.Index, m.Owner)
		if job.Decisions.NoIgnoreErrors && !job.Decisions.IgnoreImportantErrors {
			return Outcome{}, werr
		}
		if job.Logger != nil {
			job.Logger.Warn("dropped reference", zap.String("cell", m.Cell.String()), zap.String("owner", m.Owner), zap.Uint32("index", m.Index))
		}
	}

	masters := externalMasters
	if job.Decisions.StripMasters && !anyExternalMasterUsed(cells) {
		masters = nil
	}

	primaryCells, secondaryCells := cells, []record.Record(nil)
	var secondaryOutcome *output.Result
	var secondaryPath string

	if job.Decisions.SecondaryOutputSuffix != "" && job.Probe != nil {
		classifier := grass.New(job.Probe, job.GrassFilter)
		meshes := st.ObjectMeshes(record.KindSTAT)
		statIDs := make(map[string]bool, len(meshes))
		for id := range meshes {
			statIDs[id] = true
		}
		isSTAT := func(id string) bool { return statIDs[strings.ToLower(id)] }

		primaryCells, secondaryCells, err = partitionCellsForGrass(primaryCells, classifier, isSTAT, meshes)
		if err != nil {
			return Outcome{}, err
		}
	}

	header := record.EncodeHeader(record.Header{
		Version:    1.3,
		FileType:   0,
		NumRecords: uint32(len(generic) + len(primaryCells)),
		Masters:    masters,
	})

	allRecords := make([]record.Record, 0, 1+len(generic)+len(primaryCells))
	allRecords = append(allRecords, header)
	allRecords = append(allRecords, generic...)
	allRecords = append(allRecords, primaryCells...)

	outPath := filepath.Join(job.BaseDir, job.Spec.OutputPath)
	result, err := output.Write(outPath, allRecords, output.Options{
		DryRun:  job.Decisions.DryRun,
		Compare: !job.Decisions.NoCompare,
	})
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{OutputPath: outPath, Result: result, MissingReferences: missing}

	if job.Decisions.SecondaryOutputSuffix != "" && len(secondaryCells) > 0 {
		secHeader := record.EncodeHeader(record.Header{
			Version:    1.3,
			FileType:   0,
			NumRecords: uint32(len(secondaryCells)),
			Masters:    masters,
		})
		secRecords := append([]record.Record{secHeader}, secondaryCells...)
		secPath := secondaryOutputPath(outPath, job.Decisions.SecondaryOutputSuffix)
		secResult, err := output.Write(secPath, secRecords, output.Options{
			DryRun:  job.Decisions.DryRunSecondary,
			Compare: !job.Decisions.NoCompareSecondary,
		})
		if err != nil {
			return Outcome{}, err
		}
		secondaryPath = secPath
		secondaryOutcome = &secResult
	}

	outcome.SecondaryPath = secondaryPath
	outcome.SecondaryResult = secondaryOutcome
	return outcome, nil
}

// anyExternalMasterUsed reports whether any emitted cell reference still
// points at a master-table slot above 0, the all-or-nothing condition
// --strip-masters needs before it may drop the master table entirely.
func anyExternalMasterUsed(cells []record.Record) bool {
	for _, rec := range cells {
		_, refs := record.SplitCellSubrecords(rec.Subrecords)
		for _, r := range refs {
			if r.MasterIndex() > 0 {
				return true
			}
		}
	}
	return false
}

// partitionCellsForGrass splits each cell's STAT groundcover references
// into a secondary cell record, dropping interior cells and cells left
// with no secondary references entirely from the secondary set (spec
// section 4.G).
func partitionCellsForGrass(cells []record.Record, classifier *grass.Classifier, isSTAT func(string) bool, meshes map[string]string) (primary, secondary []record.Record, err error) {
	for _, rec := range cells {
		_, _, interior, ok := record.CellCoords(rec)
		if !ok || interior {
			primary = append(primary, rec)
			continue
		}

		scalar, refs := record.SplitCellSubrecords(rec.Subrecords)
		primaryRefs, secondaryRefs, perr := classifier.Partition(refs, isSTAT, meshes)
		if perr != nil {
			return nil, nil, perr
		}

		primaryCell := rec
		primaryCell.Subrecords = record.JoinCellSubrecords(scalar, primaryRefs)
		primary = append(primary, primaryCell)

		if len(secondaryRefs) > 0 {
			secCell := rec
			secCell.Subrecords = record.JoinCellSubrecords(scalar, secondaryRefs)
			secondary = append(secondary, secCell)
		}
	}
	return primary, secondary, nil
}

// secondaryOutputPath inserts suffix before the primary output's
// extension, e.g. "Merged.esp" + "-GRS" -> "Merged-GRS.esp".
func secondaryOutputPath(primaryPath, suffix string) string {
	ext := filepath.Ext(primaryPath)
	stem := strings.TrimSuffix(primaryPath, ext)
	return stem + suffix + ext
}
