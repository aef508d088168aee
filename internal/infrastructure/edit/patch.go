package edit

import (
	"fmt"
	"strings"

	"github.com/doeshing/shai-agent/internal/domain"
)

// Patch computes the new content of a file after applying proposal. It never
// touches the filesystem.
//
// Append proposals (nil line number) add the replacement after normalising
// existing content to a single trailing newline. Anchored proposals replace
// the first occurrence of Original on the addressed line, then fall back to
// the first occurrence anywhere in the file.
func Patch(content string, proposal domain.Proposal) (string, error) {
	if proposal.IsAppend() {
		return appendContent(content, proposal.Replacement), nil
	}

	line := *proposal.LineNumber
	lines := strings.Split(content, "\n")

	if proposal.Original == "" {
		if line < 1 || line > len(lines)+1 || content == "" {
			return appendContent(content, proposal.Replacement), nil
		}
		insert := strings.TrimSuffix(proposal.Replacement, "\n")
		out := make([]string, 0, len(lines)+1)
		out = append(out, lines[:line-1]...)
		out = append(out, insert)
		out = append(out, lines[line-1:]...)
		return strings.Join(out, "\n"), nil
	}

	if line >= 1 && line <= len(lines) && strings.Contains(lines[line-1], proposal.Original) {
		lines[line-1] = strings.Replace(lines[line-1], proposal.Original, proposal.Replacement, 1)
		return strings.Join(lines, "\n"), nil
	}

	if strings.Contains(content, proposal.Original) {
		return strings.Replace(content, proposal.Original, proposal.Replacement, 1), nil
	}

	return "", fmt.Errorf("%w in %s", domain.ErrOriginalNotFound, proposal.File)
}

func appendContent(content, addition string) string {
	if content == "" {
		return addition
	}
	return strings.TrimRight(content, "\n") + "\n" + addition
}
