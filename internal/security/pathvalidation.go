// Package security guards filesystem paths built from runtime input, such
// as run output directories and file names derived from run ids.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory reports whether path stays inside baseDir
// after cleaning and symlink resolution. Paths that do not exist yet are
// resolved against their nearest existing ancestor, so a symlinked parent
// cannot redirect a pending write outside baseDir.
func ValidatePathWithinDirectory(path, baseDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}

	canonicalBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonicalBase, canonicalize(absPath))
	if err != nil {
		return fmt.Errorf("path is outside base directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, baseDir)
	}
	return nil
}

// canonicalize resolves symlinks in absPath. When the path does not exist,
// the walk moves up to the nearest existing ancestor, resolves that, and
// rejoins the remaining components onto the resolved prefix.
func canonicalize(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}
	probe := absPath
	for {
		parent := filepath.Dir(probe)
		if parent == probe {
			return absPath
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, err := filepath.Rel(parent, absPath)
			if err != nil {
				return absPath
			}
			return filepath.Join(resolved, rel)
		}
		probe = parent
	}
}

// SanitizeFilename makes a safe file or directory name from an arbitrary
// string such as a run id. Characters outside ASCII letters, digits, dot,
// underscore and dash become single underscores, and the result is capped
// at 128 bytes.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
