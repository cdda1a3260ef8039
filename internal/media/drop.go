package media

import (
	"net/url"
	"path/filepath"
	"strings"
)

// ParseDrop splits text pasted by a terminal drag-and-drop into paths.
// Terminals quote or backslash-escape paths with spaces, some paste
// file:// URIs, and multi-file drops are separated by spaces or newlines.
// Relative paths are resolved against the working directory.
func ParseDrop(text string) []string {
	var (
		paths []string
		cur   strings.Builder
		quote rune
		inTok bool
	)
	flush := func() {
		if !inTok {
			return
		}
		if p := LinePath(cur.String()); p != "" {
			paths = append(paths, p)
		}
		cur.Reset()
		inTok = false
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\\' && i+1 < len(runes):
			i++
			cur.WriteRune(runes[i])
			inTok = true
		case r == '\'' || r == '"':
			quote = r
			inTok = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
			inTok = true
		}
	}
	flush()
	return paths
}

// LinePath treats s as exactly one path, as in a line of `find` output: it
// is trimmed, a file:// URI is decoded, and the result made absolute.
// Quotes and backslashes are part of the name. Blank input yields "".
func LinePath(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "file://") {
		u, err := url.Parse(s)
		if err != nil || u.Path == "" {
			return ""
		}
		s = u.Path
	}
	abs, err := filepath.Abs(s)
	if err != nil {
		return filepath.Clean(s)
	}
	return abs
}
