// Package mergelist parses -m/--merge spec strings (spec section 4.C.1)
// and expands their plugin entries (spec section 4.C.2).
package mergelist

import (
	"fmt"
	"strings"

	"github.com/tes3tools/tesmerge/internal/merrors"
)

// Spec is one parsed -m/--merge list: an output path, per-list option
// tokens, and the raw plugin entry strings (not yet expanded). ParseSpec
// leaves Options empty.
type Spec struct {
	OutputPath string
	Options    []string
	Plugins    []string
}

// ParseSpec splits a merge-list spec string into its comma-separated
// fields, honoring double-quoted, single-quoted, and triple-single-quoted
// spans (which may contain literal commas) and backslash-escaped commas
// in unquoted spans. The first field is the output path; every remaining
// field is returned as a plugin entry. No field is recognised as a
// per-list option, and no caller separates options from plugin entries.
func ParseSpec(s string) (Spec, error) {
	fields, err := splitFields(s)
	if err != nil {
		return Spec{}, merrors.New(merrors.MergeListParse, err)
	}
	if len(fields) == 0 {
		return Spec{}, merrors.New(merrors.MergeListParse, fmt.Errorf("empty merge list spec"))
	}

	return Spec{OutputPath: fields[0], Plugins: fields[1:]}, nil
}

// splitFields tokenizes a spec string on top-level commas, honoring three
// quoting styles: "double quoted", 'single quoted', and '''triple single
// quoted''' (which may itself contain unescaped single quotes). A
// backslash immediately before a comma in an unquoted span escapes it.
func splitFields(s string) ([]string, error) {
	var fields []string
	var cur strings.Builder

	runes := []rune(s)
	i := 0
	for i < len(runes) {
		switch {
		case hasTripleAt(runes, i, '\''):
			i += 3
			start := i
			end := indexTriple(runes, i, '\'')
			if end < 0 {
				return nil, fmt.Errorf("unterminated triple-quoted field starting at %d", start)
			}
			cur.WriteString(string(runes[start:end]))
			i = end + 3

		case runes[i] == '"':
			i++
			start := i
			end := indexRune(runes, i, '"')
			if end < 0 {
				return nil, fmt.Errorf("unterminated quoted field starting at %d", start)
			}
			cur.WriteString(string(runes[start:end]))
			i = end + 1

		case runes[i] == '\'':
			i++
			start := i
			end := indexRune(runes, i, '\'')
			if end < 0 {
				return nil, fmt.Errorf("unterminated quoted field starting at %d", start)
			}
			cur.WriteString(string(runes[start:end]))
			i = end + 1

		case runes[i] == '\\' && i+1 < len(runes) && runes[i+1] == ',':
			cur.WriteByte(',')
			i += 2

		case runes[i] == ',':
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
			i++

		default:
			cur.WriteRune(runes[i])
			i++
		}
	}
	fields = append(fields, strings.TrimSpace(cur.String()))

	return fields, nil
}

func hasTripleAt(runes []rune, i int, q rune) bool {
	return i+2 < len(runes) && runes[i] == q && runes[i+1] == q && runes[i+2] == q
}

func indexTriple(runes []rune, from int, q rune) int {
	for j := from; j+2 < len(runes); j++ {
		if hasTripleAt(runes, j, q) {
			return j
		}
	}
	return -1
}

func indexRune(runes []rune, from int, r rune) int {
	for j := from; j < len(runes); j++ {
		if runes[j] == r {
			return j
		}
	}
	return -1
}
