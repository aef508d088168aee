package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/doeshing/shai-agent/internal/domain"
)

// Resolve joins file onto root and returns the absolute cleaned path. Paths
// that land outside root, lexically or through a symlink, fail with
// domain.ErrPathEscape.
func Resolve(root, file string) (string, error) {
	if strings.TrimSpace(file) == "" {
		return "", fmt.Errorf("%w: empty file path", domain.ErrPathEscape)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absRoot = filepath.Clean(absRoot)

	target := file
	if !filepath.IsAbs(target) {
		target = filepath.Join(absRoot, target)
	}
	target = filepath.Clean(target)

	if !HasPathPrefix(target, absRoot) {
		return "", fmt.Errorf("%w: %s", domain.ErrPathEscape, file)
	}

	realRoot, err := realPath(absRoot)
	if err != nil {
		return "", err
	}
	realTarget, err := realPath(target)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrPathEscape, file, err)
	}
	if !HasPathPrefix(realTarget, realRoot) {
		return "", fmt.Errorf("%w: %s resolves to %s", domain.ErrPathEscape, file, realTarget)
	}
	return target, nil
}

// realPath evaluates symlinks on the longest existing ancestor of path and
// re-attaches the components that do not exist yet. A link that exists but
// cannot be followed is an error.
func realPath(path string) (string, error) {
	var missing []string
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if _, statErr := os.Lstat(current); statErr == nil {
			return "", fmt.Errorf("dangling symlink %s", current)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path, nil
		}
		missing = append([]string{filepath.Base(current)}, missing...)
		current = parent
	}
}

// Rel returns path relative to root using forward slashes, or path unchanged
// when it is not below root.
func Rel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// HasPathPrefix reports whether path equals prefix or lies below it.
func HasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		return UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(UserHomeDir(), path[2:])
	}
	return path
}
