// Package grass implements the grass / turn-normal-grass classifier
// (spec section 4.G): partitioning a cell's STAT references between a
// primary and a secondary (groundcover) output.
package grass

import (
	"strings"

	"github.com/tes3tools/tesmerge/internal/asset"
	"github.com/tes3tools/tesmerge/internal/record"
)

// DefaultFilter suppresses known non-groundcover STAT ids the asset
// probe alone can't rule out (default: "UNKNOWN GRASS" from Remiros,
// per spec section 4.G).
var DefaultFilter = []string{"UNKNOWN GRASS"}

// Classifier decides, for a cell's reference table, which references
// belong in the secondary (grass) output.
type Classifier struct {
	probe  *asset.Probe
	filter map[string]bool
}

// New builds a Classifier with the given grass_filter base-object ids
// (lowercased internally); a nil/empty filter uses DefaultFilter.
func New(probe *asset.Probe, filter []string) *Classifier {
	if len(filter) == 0 {
		filter = DefaultFilter
	}
	set := make(map[string]bool, len(filter))
	for _, f := range filter {
		set[strings.ToLower(f)] = true
	}
	return &Classifier{probe: probe, filter: set}
}

// objectMesh maps a reference's base STAT object id to its mesh path.
// The record store only carries the reference's base-object id, not its
// STAT model path, so the caller supplies a lookup built from the
// absorbed STAT records (objectMesh) rather than repeating the join here.
type objectMesh = map[string]string

// IsGroundcover reports whether a STAT-based reference should be routed
// to the secondary output: its base-object id isn't filtered, it has a
// known mesh, and the asset probe classifies that mesh as groundcover.
func (c *Classifier) IsGroundcover(baseObjectID string, meshes objectMesh) (bool, error) {
	id := strings.ToLower(baseObjectID)
	if c.filter[id] {
		return false, nil
	}

	mesh, ok := meshes[id]
	if !ok {
		return false, nil
	}

	res, err := c.probe.Lookup(mesh)
	if err != nil {
		return false, err
	}
	return res.Exists && res.IsGroundcover, nil
}

// Partition splits a cell's references into primary (kept in place) and
// secondary (groundcover, routed to the twin cell of the secondary
// output) sets. Interior and empty cells are the caller's responsibility
// to drop entirely from the secondary output (spec section 4.G);
// Partition only separates the reference lists for one cell.
func (c *Classifier) Partition(refList []record.RawReference, isSTAT func(baseObjectID string) bool, meshes objectMesh) (primary, secondary []record.RawReference, err error) {
	for _, r := range refList {
		base := r.BaseObjectID()
		if !isSTAT(base) {
			primary = append(primary, r)
			continue
		}

		ground, gerr := c.IsGroundcover(base, meshes)
		if gerr != nil {
			return nil, nil, gerr
		}
		if ground {
			secondary = append(secondary, r)
		} else {
			primary = append(primary, r)
		}
	}
	return primary, secondary, nil
}
