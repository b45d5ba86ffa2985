// Package gameconfig resolves a game configuration file (openmw.cfg or
// Morrowind.ini) into ordered data directories, content plugins, and
// fallback archives (spec section 4.C / section 6's "Game config").
package gameconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Config is the ordered result of parsing a game configuration file.
type Config struct {
	DataDirs []string // data=<path> lines, in declared order
	Content  []string // content=<plugin> lines, in declared order
	Archives []string // fallback-archive=<bsa> lines, in declared order
}

// ParseOpenMW parses an openmw.cfg stream. Keys repeat and are ordered;
// unknown keys are ignored, matching openmw.cfg's permissive key=value style.
func ParseOpenMW(r io.Reader) (Config, error) {
	var cfg Config
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			return Config{}, fmt.Errorf("gameconfig: line %d: missing '=': %q", lineNo, line)
		}

		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])

		switch strings.ToLower(key) {
		case "data":
			cfg.DataDirs = append(cfg.DataDirs, unquote(val))
		case "content":
			cfg.Content = append(cfg.Content, val)
		case "fallback-archive":
			cfg.Archives = append(cfg.Archives, val)
		}
	}
	if err := sc.Err(); err != nil {
		return Config{}, fmt.Errorf("gameconfig: %w", err)
	}

	return cfg, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// ParseMorrowindINI parses a Morrowind.ini file's [Game Files] and
// [Archives] sections, whose keys are numbered (GameFile0, GameFile1, ...)
// rather than repeated, the INI convention this reader follows using
// gopkg.in/ini.v1.
func ParseMorrowindINI(path string) (Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		AllowShadows:        true,
	}, path)
	if err != nil {
		return Config{}, fmt.Errorf("gameconfig: loading %s: %w", path, err)
	}

	cfg := Config{}

	if sec, err := f.GetSection("Game Files"); err == nil {
		cfg.Content = numberedKeys(sec, "GameFile")
	}
	if sec, err := f.GetSection("Archives"); err == nil {
		cfg.Archives = numberedKeys(sec, "Archive ")
	}

	return cfg, nil
}

// numberedKeys collects a section's "<prefix><N>" keys in ascending N order.
func numberedKeys(sec *ini.Section, prefix string) []string {
	type indexed struct {
		n   int
		val string
	}
	var items []indexed
	for _, key := range sec.Keys() {
		name := key.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(name, prefix)))
		if err != nil {
			continue
		}
		items = append(items, indexed{n: n, val: key.Value()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].n < items[j].n })

	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.val)
	}
	return out
}

// Locate finds the game config file to use. If explicitPath is non-empty
// it is used as-is; otherwise openmw.cfg is searched at the platform's
// conventional per-user config location.
func Locate(explicitPath string) (path string, isINI bool, err error) {
	if explicitPath != "" {
		isINI = strings.EqualFold(filepath.Ext(explicitPath), ".ini")
		if _, statErr := os.Stat(explicitPath); statErr != nil {
			return "", false, fmt.Errorf("gameconfig: %w", statErr)
		}
		return explicitPath, isINI, nil
	}

	for _, candidate := range defaultOpenMWPaths() {
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, false, nil
		}
	}

	return "", false, fmt.Errorf("gameconfig: no openmw.cfg found in default locations; pass --config")
}

// defaultOpenMWPaths returns the per-platform conventional openmw.cfg
// locations, most specific first.
func defaultOpenMWPaths() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		return []string{
			filepath.Join(appData, "openmw", "openmw.cfg"),
			filepath.Join(home, "Documents", "My Games", "OpenMW", "openmw.cfg"),
		}
	case "darwin":
		return []string{
			filepath.Join(home, "Library", "Preferences", "openmw", "openmw.cfg"),
		}
	default:
		return []string{
			filepath.Join(home, ".config", "openmw", "openmw.cfg"),
			"/etc/openmw/openmw.cfg",
		}
	}
}
