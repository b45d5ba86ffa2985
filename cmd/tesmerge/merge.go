package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/tes3tools/tesmerge/internal/asset"
	"github.com/tes3tools/tesmerge/internal/gameconfig"
	"github.com/tes3tools/tesmerge/internal/loadorder"
	"github.com/tes3tools/tesmerge/internal/logging"
	"github.com/tes3tools/tesmerge/internal/merge"
	"github.com/tes3tools/tesmerge/internal/mergelist"
	"github.com/tes3tools/tesmerge/internal/policy"
	"github.com/tes3tools/tesmerge/internal/settings"
	"github.com/tes3tools/tesmerge/internal/store"
)

// mergeCmd is the merge subcommand, covering every
// flag from the external interface.
type mergeCmd struct {
	MergeList []string `short:"m" long:"merge" description:"Merge list spec: OUTPUT,plugin1,plugin2,... (repeatable)" required:"true"`
	Mode      string   `short:"M" long:"mode" choice:"keep" choice:"keep_without_lands" choice:"replace" choice:"complete_replace" choice:"grass" default:"replace" description:"Duplicate-handling mode"`

	BaseDir      string `short:"b" long:"base-dir" description:"Data Files directory plugin paths resolve against"`
	ForceBaseDir bool   `short:"B" long:"force-base-dir" description:"Accepted but has no effect: plugin paths resolve against base-dir only when not absolute and not found relative to the working directory"`

	UseLoadOrder         bool     `short:"u" long:"use-load-order" description:"Fill merge list plugin entries from the active game load order"`
	Config               string   `short:"c" long:"config" description:"Explicit openmw.cfg or Morrowind.ini path"`
	AppendToUseLoadOrder []string `long:"append-to-use-load-order" description:"Plugin names appended to the resolved load order"`
	SkipFromUseLoadOrder []string `long:"skip-from-use-load-order" description:"Plugin names removed from the resolved load order"`

	CheckReferences bool `short:"C" long:"check-references" description:"Report-only dry run that forces use-load-order"`
	TurnNormalGrass bool `short:"T" long:"turn-normal-grass" description:"Split groundcover STAT references into a secondary -GRS output"`
	MergeLoadOrder  bool `short:"O" long:"merge-load-order" description:"Merge the full active load order into load-order-index buckets"`

	DryRun               bool `short:"d" long:"dry-run" description:"Do not write the primary output"`
	DryRunSecondary      bool `long:"dry-run-secondary" description:"Do not write the secondary (grass) output"`
	DryRunDismissStats   bool `long:"dry-run-dismiss-stats" description:"Suppress the dry-run summary stats line"`

	StripMasters          bool `short:"S" long:"strip-masters" description:"Drop the master table entirely if no surviving reference needs it"`
	Reindex               bool `short:"r" long:"reindex" description:"Renumber owned references to a contiguous sequence"`
	ExcludeDeletedRecords bool `short:"E" long:"exclude-deleted-records" description:"Omit deleted cells left with no references"`
	PreferLooseOverBSA    bool `short:"p" long:"prefer-loose-over-bsa" description:"Prefer a loose file over a BSA entry of the same name"`

	ShowAllMissingRefs bool `short:"a" long:"show-all-missing-refs" description:"Report every dropped reference, not just a summary"`
	NoShowMissingRefs  bool `short:"A" long:"no-show-missing-refs" description:"Suppress dropped-reference reporting entirely"`

	NoCompare          bool `short:"P" long:"no-compare" description:"Skip compare-with-previous-version for the primary output"`
	NoCompareSecondary bool `long:"no-compare-secondary" description:"Skip compare-with-previous-version for the secondary output"`

	InsufficientMerge bool `long:"insufficient-merge" description:"Allow a merge list with a single plugin entry"`

	NoIgnoreErrors        bool `short:"I" long:"no-ignore-errors" description:"Treat every recoverable error as fatal"`
	IgnoreImportantErrors bool `long:"ignore-important-errors" description:"Downgrade reference-missing-master to a warning"`
	ForceDialType         bool `long:"force-dial-type" description:"Rewrite an INFO's dialogue type to match its surviving DIAL"`

	Verbose bool `short:"v" long:"verbose" description:"Verbose logging"`
	Quiet   bool `short:"q" long:"quiet" description:"Quiet logging"`

	LogPath string `short:"l" long:"log" description:"Write structured logs to this path"`
	NoLog   bool   `short:"L" long:"no-log" description:"Disable log file output"`

	SettingsPath  string `short:"s" long:"settings" description:"Load default flag values from a TOML settings file"`
	SettingsWrite bool   `long:"settings-write" description:"Write current flag values back to the settings file"`
}

// Execute runs every configured merge list in sequence.
func (c *mergeCmd) Execute(_ []string) error {
	verbosity := logging.Normal
	if c.Verbose {
		verbosity = logging.Verbose
	}
	if c.Quiet {
		verbosity = logging.Quiet
	}
	logPath := c.LogPath
	if c.NoLog {
		logPath = ""
	}
	logger := logging.New(logging.Options{Verbosity: verbosity, LogPath: logPath})
	defer logger.Sync()

	if c.SettingsPath != "" {
		loaded, err := settings.Load(c.SettingsPath)
		if err != nil {
			return err
		}
		c.applySettings(loaded)
		if c.SettingsWrite {
			if err := settings.Write(c.SettingsPath, c.toSettings()); err != nil {
				return err
			}
		}
	}

	presets := policy.Presets{
		CheckReferences: c.CheckReferences,
		TurnNormalGrass: c.TurnNormalGrass,
		MergeLoadOrder:  c.MergeLoadOrder,
	}
	flags := policy.Flags{
		Mode:                  store.Mode(c.Mode),
		UseLoadOrder:          c.UseLoadOrder,
		StripMasters:          c.StripMasters,
		Reindex:               c.Reindex,
		ExcludeDeletedRecords: c.ExcludeDeletedRecords,
		PreferLooseOverBSA:    c.PreferLooseOverBSA,
		ForceDialType:         c.ForceDialType,
		DryRun:                c.DryRun,
		DryRunSecondary:       c.DryRunSecondary,
		NoCompare:             c.NoCompare,
		NoCompareSecondary:    c.NoCompareSecondary,
		NoIgnoreErrors:        c.NoIgnoreErrors,
		IgnoreImportantErrors: c.IgnoreImportantErrors,
	}
	decisions, err := policy.Resolve(presets, flags)
	if err != nil {
		return err
	}

	var loadOrderPlugins []string
	var dataDirs, archives []string
	if decisions.UseLoadOrder {
		res, err := loadorder.Resolve(loadorder.Options{
			ConfigPath: c.Config,
			Append:     c.AppendToUseLoadOrder,
			Skip:       c.SkipFromUseLoadOrder,
		})
		if err != nil {
			return err
		}
		loadOrderPlugins = res.Plugins
		dataDirs = res.DataDirs
		archives = res.Archives
	} else if c.BaseDir == "" {
		cfgPath, isINI, err := gameconfig.Locate(c.Config)
		if err == nil && !isINI {
			if f, openErr := os.Open(cfgPath); openErr == nil {
				if cfg, parseErr := gameconfig.ParseOpenMW(f); parseErr == nil {
					dataDirs = cfg.DataDirs
					archives = cfg.Archives
				}
				f.Close()
			}
		}
	}

	baseDir := c.BaseDir
	if baseDir == "" && len(dataDirs) > 0 {
		baseDir = dataDirs[len(dataDirs)-1]
	}

	var probe *asset.Probe
	if decisions.SecondaryOutputSuffix != "" {
		probe, err = asset.New(asset.Config{
			LooseDirs:          dataDirs,
			ArchivePaths:       archives,
			PreferLooseOverBSA: decisions.PreferLooseOverBSA,
		})
		if err != nil {
			return err
		}
	}

	specs, err := c.buildSpecs(loadOrderPlugins, decisions)
	if err != nil {
		return err
	}

	for _, spec := range specs {
		if !c.InsufficientMerge && len(spec.Plugins) < 2 {
			logger.Warn("skipping merge list with fewer than two plugins", zap.String("output", spec.OutputPath))
			continue
		}

		job := merge.Job{
			Spec:        spec,
			Decisions:   decisions,
			BaseDir:     baseDir,
			Probe:       probe,
			GrassFilter: grassFilter,
			Logger:      logger,
		}

		outcome, err := merge.Run(job)
		if err != nil {
			return err
		}

		if !c.DryRunDismissStats {
			logger.Info("merge complete",
				zap.String("output", outcome.OutputPath),
				zap.Bool("written", outcome.Result.Written),
				zap.Bool("unchanged", outcome.Result.Unchanged),
			)
		}

		if !c.NoShowMissingRefs {
			reportMissing(logger, outcome, c.ShowAllMissingRefs)
		}
	}

	return nil
}

// grassFilter is the configurable STAT id suppression list
// (settings.GrassFilter); left at the package default when no settings
// file supplies one.
var grassFilter []string

func reportMissing(logger *zap.Logger, outcome merge.Outcome, showAll bool) {
	if len(outcome.MissingReferences) == 0 {
		return
	}
	if !showAll {
		logger.Warn("references dropped for unresolvable masters", zap.Int("count", len(outcome.MissingReferences)))
		return
	}
	for _, m := range outcome.MissingReferences {
		logger.Warn("dropped reference",
			zap.String("cell", m.Cell.String()),
			zap.String("owner", m.Owner),
			zap.Uint32("index", m.Index),
		)
	}
}

// buildSpecs parses every -m spec, expanding a merge-load-order (-O)
// bucket set into one spec per bucket when active.
func (c *mergeCmd) buildSpecs(loadOrderPlugins []string, decisions policy.Decisions) ([]mergelist.Spec, error) {
	var out []mergelist.Spec
	for _, raw := range c.MergeList {
		spec, err := mergelist.ParseSpec(raw)
		if err != nil {
			return nil, err
		}

		plugins := spec.Plugins
		if decisions.UseLoadOrder && len(plugins) == 0 {
			plugins = loadOrderPlugins
		}

		if decisions.Buckets == nil {
			spec.Plugins = plugins
			out = append(out, spec)
			continue
		}

		buckets := make(map[int][]string)
		for i, p := range plugins {
			b := policy.BucketFor(decisions.Buckets, i)
			buckets[b] = append(buckets[b], p)
		}
		for _, b := range decisions.Buckets {
			if len(buckets[b]) == 0 {
				continue
			}
			out = append(out, mergelist.Spec{
				OutputPath: policy.BucketName(spec.OutputPath, b),
				Plugins:    buckets[b],
			})
		}
	}
	return out, nil
}

func (c *mergeCmd) applySettings(s settings.Settings) {
	if s.BaseDir != "" && c.BaseDir == "" {
		c.BaseDir = s.BaseDir
	}
	if s.Mode != "" && c.Mode == "replace" {
		c.Mode = s.Mode
	}
	if s.ConfigPath != "" && c.Config == "" {
		c.Config = s.ConfigPath
	}
	c.UseLoadOrder = c.UseLoadOrder || s.UseLoadOrder
	c.StripMasters = c.StripMasters || s.StripMasters
	c.Reindex = c.Reindex || s.Reindex
	c.ExcludeDeletedRecords = c.ExcludeDeletedRecords || s.ExcludeDeletedRecords
	c.PreferLooseOverBSA = c.PreferLooseOverBSA || s.PreferLooseOverBSA
	if len(s.GrassFilter) > 0 {
		grassFilter = s.GrassFilter
	}
}

func (c *mergeCmd) toSettings() settings.Settings {
	return settings.Settings{
		BaseDir:               c.BaseDir,
		Mode:                  c.Mode,
		ConfigPath:            c.Config,
		UseLoadOrder:          c.UseLoadOrder,
		StripMasters:          c.StripMasters,
		Reindex:               c.Reindex,
		ExcludeDeletedRecords: c.ExcludeDeletedRecords,
		PreferLooseOverBSA:    c.PreferLooseOverBSA,
		GrassFilter:           grassFilter,
		LogPath:               c.LogPath,
	}
}
