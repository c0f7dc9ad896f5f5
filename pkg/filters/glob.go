package filters

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// doublestar treats '/' as a path separator that wildcards never cross. Hosts
// have no path structure, so '/' is swapped for a private-use rune in both
// the pattern and the host before matching.
const hostSeparator = '\uE000'

// hostGlob is a host pattern with plain glob semantics: `*` and `?` match
// any character including '/', `[...]` and `[!...]` are character classes,
// and `{`, `}` and `\` are literals.
type hostGlob struct {
	raw  string
	glob string
}

func compileHostGlob(pattern string) (hostGlob, error) {
	glob, err := translateGlob(pattern)
	if err != nil {
		return hostGlob{}, errors.Wrapf(err, "invalid host filter: %s", pattern)
	}
	if !doublestar.ValidatePattern(glob) {
		return hostGlob{}, errors.Errorf("invalid host filter: %s", pattern)
	}
	return hostGlob{raw: pattern, glob: glob}, nil
}

func (g hostGlob) match(host string) bool {
	host = strings.ReplaceAll(host, "/", string(hostSeparator))
	// The translated pattern was validated at compile time.
	return doublestar.MatchUnvalidated(g.glob, host)
}

// translateGlob rewrites pattern into doublestar syntax, escaping everything
// doublestar would otherwise interpret beyond plain globbing.
func translateGlob(pattern string) (string, error) {
	runes := []rune(pattern)
	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '[':
			end, err := writeClass(&b, runes, i)
			if err != nil {
				return "", err
			}
			i = end
		case '{', '}', '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case '/':
			b.WriteRune(hostSeparator)
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// writeClass writes the class starting at runes[start] == '[' and returns the
// index of its closing ']'. A ']' right after the opening '[' or '[!' is a
// member of the class.
func writeClass(b *strings.Builder, runes []rune, start int) (int, error) {
	b.WriteRune('[')
	i := start + 1
	if i < len(runes) && runes[i] == '!' {
		b.WriteRune('!')
		i++
	}
	first := i
	for ; i < len(runes); i++ {
		r := runes[i]
		if r == ']' && i > first {
			b.WriteRune(']')
			return i, nil
		}
		switch r {
		case '\\', ']', '^':
			b.WriteRune('\\')
			b.WriteRune(r)
		case '/':
			b.WriteRune(hostSeparator)
		default:
			b.WriteRune(r)
		}
	}
	return 0, errors.New("unclosed character class")
}
