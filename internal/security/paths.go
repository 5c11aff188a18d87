// Package security guards the file paths the CLI derives from untrusted
// input such as a recording's source name.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// maxStemLen bounds a generated file name stem.
const maxStemLen = 96

// SanitizeFilename turns an arbitrary label (typically a video path) into
// a file name stem: directory and extension are dropped, anything other
// than ASCII letters, digits, dot, underscore or dash becomes a single
// underscore. An empty result becomes "recording".
func SanitizeFilename(label string) string {
	base := filepath.Base(strings.ReplaceAll(label, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range base {
		if b.Len() >= maxStemLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "recording"
	}
	return out
}

// OutputPath joins dir with stem+suffix and rejects results that would
// land outside dir. stem is sanitized first.
func OutputPath(dir, stem, suffix string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output directory: %w", err)
	}
	name := SanitizeFilename(stem) + suffix
	path := filepath.Join(absDir, name)

	rel, err := filepath.Rel(absDir, path)
	if err != nil {
		return "", fmt.Errorf("path is outside output directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || strings.Contains(rel, string(filepath.Separator)) {
		return "", fmt.Errorf("output name %q escapes %s", name, dir)
	}
	return path, nil
}
