// Package asset implements the asset probe (spec section 4.B): given a
// mesh path, answer whether it exists in loose files or BSAs, and whether
// its root node marks it as groundcover.
package asset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tes3tools/tesmerge/internal/bsa"
)

// headerWindow bounds how many leading bytes of a mesh are read to find
// its root node name — enough to cover the NIF string table's first
// entries without materializing the whole model, per spec 4.B's "read
// only enough" contract.
const headerWindow = 8192

// DefaultMarkers are the groundcover root-node marker strings; callers may
// extend or replace this list via Config.Markers.
var DefaultMarkers = []string{"EgmGroundcoverMarker", "GroundcoverMarker"}

// Config configures an asset Probe.
type Config struct {
	// LooseDirs is the ordered list of loose-file data directories
	// (declared order from the game config, spec section 4.B).
	LooseDirs []string
	// ArchivePaths is the ordered list of BSA archive files.
	ArchivePaths []string
	// PreferLooseOverBSA accepts a BSA hit only when no loose variant
	// exists, when true.
	PreferLooseOverBSA bool
	// Markers overrides DefaultMarkers when non-nil.
	Markers []string
	// Workers bounds the probe's concurrent worker pool (spec section 5.1).
	Workers int
}

// Result is the asset probe's answer for a single mesh path.
type Result struct {
	Exists        bool
	IsGroundcover bool
}

// Probe answers mesh existence/groundcover queries against loose
// directories and BSA archives, memoizing results across the run.
type Probe struct {
	cfg      Config
	archives []*bsa.Archive
	cache    sync.Map // lowercased mesh path -> Result
}

// New opens cfg's BSA archives (in declared order) and returns a ready Probe.
func New(cfg Config) (*Probe, error) {
	p := &Probe{cfg: cfg}
	if len(cfg.Markers) == 0 {
		p.cfg.Markers = DefaultMarkers
	}
	for _, path := range cfg.ArchivePaths {
		a, err := bsa.Open(path)
		if err != nil {
			return nil, fmt.Errorf("asset: opening archive %s: %w", path, err)
		}
		p.archives = append(p.archives, a)
	}
	return p, nil
}

// Lookup answers a single mesh query, consulting the memoized cache first.
func (p *Probe) Lookup(meshPath string) (Result, error) {
	key := strings.ToLower(strings.ReplaceAll(meshPath, "/", "\\"))
	if v, ok := p.cache.Load(key); ok {
		return v.(Result), nil
	}

	res, err := p.resolve(meshPath)
	if err != nil {
		return Result{}, err
	}
	p.cache.Store(key, res)
	return res, nil
}

// LookupAll resolves many mesh paths concurrently through a bounded worker
// pool (spec section 5.1: "directory walks, BSA index scans, and mesh
// header reads are performed in parallel via a worker pool").
func (p *Probe) LookupAll(ctx context.Context, meshPaths []string) (map[string]Result, error) {
	out := make(map[string]Result, len(meshPaths))
	var mu sync.Mutex

	workers := p.cfg.Workers
	if workers <= 0 {
		workers = 8
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, mp := range meshPaths {
		mp := mp
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			res, err := p.Lookup(mp)
			if err != nil {
				return err
			}

			mu.Lock()
			out[mp] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// resolve picks between a loose file and a BSA entry for meshPath.
// PreferLooseOverBSA unset (the default) means archives win: a BSA hit
// is accepted even when a loose file of the same path also exists, only
// falling back to loose when no archive has it. With PreferLooseOverBSA
// set, a loose file always wins and archives are only consulted when no
// loose file exists.
func (p *Probe) resolve(meshPath string) (Result, error) {
	if p.cfg.PreferLooseOverBSA {
		if looseRoot, ok := p.findLoose(meshPath); ok {
			return p.looseResult(looseRoot)
		}
		return p.archiveResult(meshPath)
	}

	if res, ok, err := p.archiveResultIfPresent(meshPath); err != nil {
		return Result{}, err
	} else if ok {
		return res, nil
	}

	if looseRoot, ok := p.findLoose(meshPath); ok {
		return p.looseResult(looseRoot)
	}
	return Result{Exists: false}, nil
}

func (p *Probe) looseResult(path string) (Result, error) {
	groundcover, err := p.isGroundcoverFile(path)
	if err != nil {
		return Result{}, err
	}
	return Result{Exists: true, IsGroundcover: groundcover}, nil
}

// archiveResult scans the archives for meshPath, returning a not-found
// Result rather than an error when no archive has it.
func (p *Probe) archiveResult(meshPath string) (Result, error) {
	res, ok, err := p.archiveResultIfPresent(meshPath)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Exists: false}, nil
	}
	return res, nil
}

func (p *Probe) archiveResultIfPresent(meshPath string) (Result, bool, error) {
	for _, a := range p.archives {
		if !a.Has(meshPath) {
			continue
		}
		groundcover, err := p.isGroundcoverArchive(a, meshPath)
		if err != nil {
			return Result{}, false, err
		}
		return Result{Exists: true, IsGroundcover: groundcover}, true, nil
	}
	return Result{}, false, nil
}

func (p *Probe) findLoose(meshPath string) (string, bool) {
	rel := filepath.FromSlash(strings.ReplaceAll(meshPath, "\\", "/"))
	for _, dir := range p.cfg.LooseDirs {
		candidate := filepath.Join(dir, rel)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func (p *Probe) isGroundcoverFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("asset: opening mesh %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, headerWindow)
	n, _ := f.Read(buf)
	return p.matchesMarker(buf[:n]), nil
}

func (p *Probe) isGroundcoverArchive(a *bsa.Archive, meshPath string) (bool, error) {
	buf, err := a.ExtractHeader(meshPath, headerWindow)
	if err != nil {
		return false, fmt.Errorf("asset: reading mesh header from archive: %w", err)
	}
	return p.matchesMarker(buf), nil
}

func (p *Probe) matchesMarker(header []byte) bool {
	text := strings.ToLower(string(header))
	for _, marker := range p.cfg.Markers {
		if strings.Contains(text, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
