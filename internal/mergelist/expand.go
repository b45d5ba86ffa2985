package mergelist

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tes3tools/tesmerge/internal/merrors"
)

// ExpandOptions controls how plugin entries are expanded and ordered
// (spec section 4.C.2: "glob:" and "regex:" entries, and the default
// mtime-based ordering of the matches they produce).
type ExpandOptions struct {
	BaseDir         string
	RegexSortByName bool
	RegexCaseSens   bool
}

// ExpandEntries resolves a spec's plugin entries into concrete plugin
// file paths relative to opts.BaseDir. A plain entry names a single
// plugin as-is. A "glob:<pattern>" entry expands via doublestar against
// BaseDir. A "regex:<pattern>" entry matches plugin file names directly
// under BaseDir (non-recursive) and orders matches by modification time,
// or by name when RegexSortByName is set.
func ExpandEntries(opts ExpandOptions, entries []string) ([]string, error) {
	var out []string
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e, "glob:"):
			pattern := strings.TrimPrefix(e, "glob:")
			matches, err := doublestar.Glob(os.DirFS(opts.BaseDir), pattern)
			if err != nil {
				return nil, merrors.Newf(merrors.MergeListParse, "mergelist: glob %q: %v", pattern, err)
			}
			sort.Strings(matches)
			out = append(out, matches...)

		case strings.HasPrefix(e, "regex:"):
			pattern := strings.TrimPrefix(e, "regex:")
			matches, err := expandRegex(opts, pattern)
			if err != nil {
				return nil, err
			}
			out = append(out, matches...)

		default:
			out = append(out, e)
		}
	}
	return out, nil
}

func expandRegex(opts ExpandOptions, pattern string) ([]string, error) {
	expr := pattern
	if !opts.RegexCaseSens {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, merrors.Newf(merrors.MergeListParse, "mergelist: regex %q: %v", pattern, err)
	}

	entries, err := os.ReadDir(opts.BaseDir)
	if err != nil {
		return nil, merrors.New(merrors.MergeListParse, fmt.Errorf("mergelist: reading base dir %s: %w", opts.BaseDir, err))
	}

	type match struct {
		name    string
		modTime int64
	}
	var matches []match
	for _, ent := range entries {
		if ent.IsDir() || !re.MatchString(ent.Name()) {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		matches = append(matches, match{name: ent.Name(), modTime: info.ModTime().UnixNano()})
	}

	if opts.RegexSortByName {
		sort.Slice(matches, func(i, j int) bool { return matches[i].name < matches[j].name })
	} else {
		sort.Slice(matches, func(i, j int) bool { return matches[i].modTime < matches[j].modTime })
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.name)
	}
	return out, nil
}

// ResolvePath joins a plugin entry against baseDir unless it is already
// absolute or exists relative to the current working directory.
func ResolvePath(baseDir, entry string) string {
	if filepath.IsAbs(entry) {
		return entry
	}
	if _, err := os.Stat(entry); err == nil {
		return entry
	}
	return filepath.Join(baseDir, entry)
}
