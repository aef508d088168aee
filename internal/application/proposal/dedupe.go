// Package proposal deduplicates and validates edit proposals before review.
package proposal

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/pkg/filesystem"
)

// Dedupe drops proposals identical in resolved file, line anchor, original
// and replacement. Order is preserved and the first occurrence wins.
func Dedupe(root string, proposals []domain.Proposal) []domain.Proposal {
	seen := make(map[string]struct{}, len(proposals))
	out := make([]domain.Proposal, 0, len(proposals))
	for _, p := range proposals {
		key := dedupeKey(root, p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

func dedupeKey(root string, p domain.Proposal) string {
	path, err := filesystem.Resolve(root, p.File)
	if err != nil {
		// escaping paths still need a stable key; the validator rejects them
		path = filepath.Clean(filepath.Join(root, p.File))
	}
	return strings.Join([]string{path, p.LineLabel(), digest(p.Original), digest(p.Replacement)}, "|")
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
