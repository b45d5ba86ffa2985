// Package loadorder resolves the "use load order" plugin list (spec
// section 4.C.3): reading a game config file, applying append/skip
// adjustments, and handing back an ordered plugin list a merge list's
// plugin entries can draw from in place of an explicit one.
package loadorder

import (
	"fmt"
	"os"
	"strings"

	"github.com/tes3tools/tesmerge/internal/gameconfig"
)

// Options configures load-order resolution from CLI flags.
type Options struct {
	// ConfigPath is an explicit game config path (--config); empty
	// triggers default-location search.
	ConfigPath string
	// Append lists plugin names appended to the resolved order, in
	// order, after it is read (--append-to-use-load-order).
	Append []string
	// Skip lists plugin names removed from the resolved order
	// (--skip-from-use-load-order), matched case-insensitively.
	Skip []string
}

// Result is the resolved load order plus whatever fallback-archive and
// data-directory information the source config carried, needed by the
// asset probe.
type Result struct {
	Plugins  []string
	DataDirs []string
	Archives []string
}

// Resolve locates and parses the game config named or discovered via
// opts, then applies append/skip adjustments in that order.
func Resolve(opts Options) (Result, error) {
	path, isINI, err := gameconfig.Locate(opts.ConfigPath)
	if err != nil {
		return Result{}, err
	}

	var cfg gameconfig.Config
	if isINI {
		cfg, err = gameconfig.ParseMorrowindINI(path)
	} else {
		f, openErr := os.Open(path)
		if openErr != nil {
			return Result{}, fmt.Errorf("loadorder: opening %s: %w", path, openErr)
		}
		defer f.Close()
		cfg, err = gameconfig.ParseOpenMW(f)
	}
	if err != nil {
		return Result{}, err
	}

	plugins := append([]string(nil), cfg.Content...)
	plugins = append(plugins, opts.Append...)
	plugins = applySkip(plugins, opts.Skip)

	return Result{Plugins: plugins, DataDirs: cfg.DataDirs, Archives: cfg.Archives}, nil
}

func applySkip(plugins, skip []string) []string {
	if len(skip) == 0 {
		return plugins
	}
	skipSet := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipSet[strings.ToLower(s)] = true
	}

	out := make([]string, 0, len(plugins))
	for _, p := range plugins {
		if skipSet[strings.ToLower(p)] {
			continue
		}
		out = append(out, p)
	}
	return out
}
