// Package edit writes proposals to disk.
package edit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/pkg/filesystem"
	"github.com/doeshing/shai-agent/internal/ports"
)

// Applier applies proposals with whole-file overwrites.
type Applier struct {
	logger ports.Logger
}

// NewApplier builds an Applier.
func NewApplier(logger ports.Logger) *Applier {
	return &Applier{logger: logger}
}

// Apply resolves the proposal's file inside the project root, patches its
// current content and writes the result back. Missing files are created
// together with their parent directories.
func (a *Applier) Apply(project domain.ProjectContext, proposal domain.Proposal) error {
	path, before, after, err := a.prepare(project, proposal)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create directory for %s: %w", proposal.File, err)
	}
	if err := os.WriteFile(path, []byte(after), domain.FilePermissions); err != nil {
		return fmt.Errorf("write %s: %w", proposal.File, err)
	}

	a.logger.Info("edit applied", map[string]interface{}{
		"file":   filesystem.Rel(project.Root, path),
		"line":   proposal.LineLabel(),
		"before": len(before),
		"after":  len(after),
	})
	return nil
}

// ApplyMany applies proposals in order and stops at the first failure.
// Proposals written before the failure stay on disk and are returned.
func (a *Applier) ApplyMany(project domain.ProjectContext, proposals []domain.Proposal) ([]domain.Proposal, error) {
	applied := make([]domain.Proposal, 0, len(proposals))
	for idx, proposal := range proposals {
		if err := a.Apply(project, proposal); err != nil {
			a.logger.Error("edit failed", err, map[string]interface{}{
				"file":    proposal.File,
				"index":   idx,
				"applied": len(applied),
			})
			return applied, err
		}
		applied = append(applied, proposal)
	}
	return applied, nil
}

// Preview returns the current content and the content after patching.
func (a *Applier) Preview(project domain.ProjectContext, proposal domain.Proposal) (string, string, error) {
	_, before, after, err := a.prepare(project, proposal)
	return before, after, err
}

// Read returns the content of file under the project root, empty when missing.
func (a *Applier) Read(project domain.ProjectContext, file string) (string, error) {
	path, err := filesystem.Resolve(project.Root, file)
	if err != nil {
		return "", err
	}
	return readIfExists(path)
}

func (a *Applier) prepare(project domain.ProjectContext, proposal domain.Proposal) (string, string, string, error) {
	path, err := filesystem.Resolve(project.Root, proposal.File)
	if err != nil {
		return "", "", "", err
	}

	before, err := readIfExists(path)
	if err != nil {
		return "", "", "", fmt.Errorf("read %s: %w", proposal.File, err)
	}

	after, err := Patch(before, proposal)
	if err != nil {
		return "", "", "", err
	}
	return path, before, after, nil
}

func readIfExists(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var _ ports.EditApplier = (*Applier)(nil)
