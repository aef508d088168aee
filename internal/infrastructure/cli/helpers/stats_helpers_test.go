package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shai-agent/internal/domain"
)

func TestCalculateTopCommands(t *testing.T) {
	stats := CalculateTopCommands(map[string]int{"ls": 3, "go test": 3, "make": 1}, 2)
	assert.Equal(t, []CommandStatistic{
		{Command: "go test", Count: 3},
		{Command: "ls", Count: 3},
	}, stats)

	assert.Len(t, CalculateTopCommands(map[string]int{"a": 1, "b": 1}, 0), 2)
}

func TestCalculateSuccessRate(t *testing.T) {
	assert.Equal(t, 0.0, CalculateSuccessRate(1, 0))
	assert.InDelta(t, 75.0, CalculateSuccessRate(3, 4), 0.001)
}

func TestDeriveUndoHints(t *testing.T) {
	hints := DeriveUndoHints([]domain.HistoryRecord{
		{Commands: []string{"git commit -am wip"}},
		{Commands: []string{"ls"}, FilesChanged: []string{"main.go"}},
		{Commands: []string{"GIT push"}},
	})

	require.Len(t, hints, 2)
	assert.Contains(t, hints[0], "git restore <file>")
	assert.Contains(t, hints[1], "git reflog")
}
