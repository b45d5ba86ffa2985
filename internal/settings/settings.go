// Package settings loads and rewrites the optional TOML settings file
// (spec section 6's "Persistent state"): a collaborator concern the core
// merge engine never reads directly, but that supplies default CLI flag
// values across invocations.
package settings

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/tes3tools/tesmerge/internal/merrors"
)

// Settings mirrors the subset of CLI flags worth persisting across runs.
type Settings struct {
	BaseDir               string   `toml:"base_dir,omitempty"`
	Mode                  string   `toml:"mode,omitempty"`
	UseLoadOrder          bool     `toml:"use_load_order,omitempty"`
	ConfigPath            string   `toml:"config_path,omitempty"`
	StripMasters          bool     `toml:"strip_masters,omitempty"`
	Reindex               bool     `toml:"reindex,omitempty"`
	ExcludeDeletedRecords bool     `toml:"exclude_deleted_records,omitempty"`
	PreferLooseOverBSA    bool     `toml:"prefer_loose_over_bsa,omitempty"`
	GrassFilter           []string `toml:"grass_filter,omitempty"`
	KeepOnlyLastInfoIDs   []string `toml:"keep_only_last_info_ids,omitempty"`
	LogPath               string   `toml:"log_path,omitempty"`
	Verbosity             string   `toml:"verbosity,omitempty"`
}

// Load reads and decodes a TOML settings file. A missing file is not an
// error: it returns the zero Settings, matching "optional" in spec
// section 6.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, merrors.New(merrors.IOOpen, fmt.Errorf("settings: reading %s: %w", path, err))
	}

	var s Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return Settings{}, merrors.New(merrors.ConfigMalformed, fmt.Errorf("settings: parsing %s: %w", path, err))
	}
	return s, nil
}

// Write encodes s as TOML and writes it to path (--settings-write).
func Write(path string, s Settings) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return merrors.New(merrors.ConfigMalformed, fmt.Errorf("settings: encoding: %w", err))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return merrors.New(merrors.IOWrite, fmt.Errorf("settings: writing %s: %w", path, err))
	}
	return nil
}
