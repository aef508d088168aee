package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectContext replaces the process working directory. Root is the project
// root every edit must stay inside; Epoch advances on every directory change
// so caches keyed by it go stale.
type ProjectContext struct {
	Root  string
	Epoch uint64
}

// NewProjectContext builds a context rooted at dir (made absolute).
func NewProjectContext(dir string) (ProjectContext, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ProjectContext{}, err
	}
	return ProjectContext{Root: filepath.Clean(abs)}, nil
}

// ChangeDir resolves target against the context and returns the context for
// the new directory. Candidates are tried in order: as given (relative to
// Root), tilde-expanded, and relative to home. The receiver is not modified.
func (p ProjectContext) ChangeDir(target, home string) (ProjectContext, error) {
	target = strings.TrimSpace(target)
	if target == "" || target == "~" {
		target = home
	}
	for _, candidate := range dirCandidates(p.Root, target, home) {
		info, err := os.Stat(candidate)
		if err != nil || !info.IsDir() {
			continue
		}
		return ProjectContext{Root: filepath.Clean(candidate), Epoch: p.Epoch + 1}, nil
	}
	return p, fmt.Errorf("%w: %s", ErrDirectoryNotFound, target)
}

func dirCandidates(root, target, home string) []string {
	var out []string
	add := func(path string) {
		if path == "" {
			return
		}
		for _, existing := range out {
			if existing == path {
				return
			}
		}
		out = append(out, path)
	}

	if filepath.IsAbs(target) {
		add(filepath.Clean(target))
	} else {
		add(filepath.Join(root, target))
	}
	if home != "" {
		if target == "~" {
			add(home)
		} else if strings.HasPrefix(target, "~/") {
			add(filepath.Join(home, target[2:]))
		}
		if !filepath.IsAbs(target) && !strings.HasPrefix(target, "~") {
			add(filepath.Join(home, target))
		}
	}
	return out
}
