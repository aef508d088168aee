// Package diff renders unified before/after previews for review.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines kept around each change.
const DefaultContext = 3

// Renderer produces unified diffs.
type Renderer struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	context int
}

// NewRenderer builds a line-level renderer.
func NewRenderer() *Renderer {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Renderer{dmp: dmp, context: DefaultContext}
}

type lineKind byte

const (
	kindContext lineKind = ' '
	kindAdded   lineKind = '+'
	kindRemoved lineKind = '-'
)

type line struct {
	kind    lineKind
	oldNum  int
	newNum  int
	content string
}

// Render returns a unified diff of before and after labelled with path.
// Identical inputs render as an empty string.
func (r *Renderer) Render(path, before, after string) string {
	if before == after {
		return ""
	}
	lines := r.lines(before, after)

	var b strings.Builder
	oldLabel := "a/" + path
	if before == "" {
		oldLabel = "/dev/null"
	}
	fmt.Fprintf(&b, "--- %s\n+++ b/%s\n", oldLabel, path)

	for _, h := range r.hunks(lines) {
		oldStart, newStart, oldCount, newCount := h.span()
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
		for _, l := range h {
			b.WriteByte(byte(l.kind))
			b.WriteString(l.content)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (r *Renderer) lines(before, after string) []line {
	a, b, lineArray := r.dmp.DiffLinesToChars(before, after)
	diffs := r.dmp.DiffMain(a, b, false)
	diffs = r.dmp.DiffCharsToLines(diffs, lineArray)

	var out []line
	oldNum, newNum := 1, 1
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		if d.Text == "" {
			continue
		}
		for _, content := range strings.Split(text, "\n") {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				out = append(out, line{kind: kindContext, oldNum: oldNum, newNum: newNum, content: content})
				oldNum++
				newNum++
			case diffmatchpatch.DiffDelete:
				out = append(out, line{kind: kindRemoved, oldNum: oldNum, newNum: newNum, content: content})
				oldNum++
			case diffmatchpatch.DiffInsert:
				out = append(out, line{kind: kindAdded, oldNum: oldNum, newNum: newNum, content: content})
				newNum++
			}
		}
	}
	return out
}

type hunk []line

func (h hunk) span() (oldStart, newStart, oldCount, newCount int) {
	oldStart, newStart = h[0].oldNum, h[0].newNum
	for _, l := range h {
		if l.kind != kindAdded {
			oldCount++
		}
		if l.kind != kindRemoved {
			newCount++
		}
	}
	if oldCount == 0 {
		oldStart--
	}
	if newCount == 0 {
		newStart--
	}
	return oldStart, newStart, oldCount, newCount
}

// hunks groups changed lines with up to r.context lines of surrounding context.
func (r *Renderer) hunks(lines []line) []hunk {
	var out []hunk
	var current hunk
	lastChange := -1

	for idx, l := range lines {
		if l.kind == kindContext {
			continue
		}
		start := idx - r.context
		if start < 0 {
			start = 0
		}
		if current != nil && start <= lastChange+r.context+1 {
			current = append(current, lines[lastChange+1:idx+1]...)
		} else {
			if current != nil {
				out = append(out, r.closeHunk(current, lines, lastChange))
			}
			current = append(hunk{}, lines[start:idx+1]...)
		}
		lastChange = idx
	}
	if current != nil {
		out = append(out, r.closeHunk(current, lines, lastChange))
	}
	return out
}

func (r *Renderer) closeHunk(h hunk, lines []line, lastChange int) hunk {
	end := lastChange + 1 + r.context
	if end > len(lines) {
		end = len(lines)
	}
	return append(h, lines[lastChange+1:end]...)
}
