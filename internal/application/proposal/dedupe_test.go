package proposal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/shai-agent/internal/domain"
)

func TestDedupe(t *testing.T) {
	root := t.TempDir()
	a := domain.Proposal{File: "src/app.ts", Original: "x", Replacement: "y", LineNumber: domain.Line(3), Explanation: "first"}
	dup := domain.Proposal{File: "./src/../src/app.ts", Original: "x", Replacement: "y", LineNumber: domain.Line(3), Explanation: "second"}
	otherLine := domain.Proposal{File: "src/app.ts", Original: "x", Replacement: "y", LineNumber: domain.Line(4)}
	appendOne := domain.Proposal{File: "src/app.ts", Replacement: "y"}
	appendTwo := domain.Proposal{File: "src/app.ts", Replacement: "y"}

	got := Dedupe(root, []domain.Proposal{a, dup, otherLine, appendOne, appendTwo})

	assert.Equal(t, []domain.Proposal{a, otherLine, appendOne}, got)
	assert.Equal(t, "first", got[0].Explanation)
}

func TestDedupeDistinguishesContent(t *testing.T) {
	root := t.TempDir()
	got := Dedupe(root, []domain.Proposal{
		{File: "a.go", Original: "x", Replacement: "y", LineNumber: domain.Line(1)},
		{File: "a.go", Original: "x", Replacement: "z", LineNumber: domain.Line(1)},
		{File: "a.go", Original: "w", Replacement: "y", LineNumber: domain.Line(1)},
		{File: "b.go", Original: "x", Replacement: "y", LineNumber: domain.Line(1)},
	})
	assert.Len(t, got, 4)
}

func TestDedupeEmpty(t *testing.T) {
	assert.Empty(t, Dedupe(t.TempDir(), nil))
}
