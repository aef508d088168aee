package edit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shai-agent/internal/domain"
)

func TestPatch(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		proposal domain.Proposal
		want     string
		wantErr  error
	}{
		{
			name:     "append to empty",
			content:  "",
			proposal: domain.Proposal{File: "a.txt", Replacement: "hello\n"},
			want:     "hello\n",
		},
		{
			name:     "append normalises trailing newlines",
			content:  "one\n\n\n",
			proposal: domain.Proposal{File: "a.txt", Replacement: "two\n"},
			want:     "one\ntwo\n",
		},
		{
			name:     "append adds missing newline",
			content:  "one",
			proposal: domain.Proposal{File: "a.txt", Replacement: "two"},
			want:     "one\ntwo",
		},
		{
			name:     "line scoped replace",
			content:  "old code\nkeep\nold code\n",
			proposal: domain.Proposal{File: "a.txt", Original: "old code", Replacement: "new code", LineNumber: domain.Line(3)},
			want:     "old code\nkeep\nnew code\n",
		},
		{
			name:     "stale line falls back to first occurrence",
			content:  "a\nb\ntarget()\n",
			proposal: domain.Proposal{File: "a.txt", Original: "target()", Replacement: "renamed()", LineNumber: domain.Line(1)},
			want:     "a\nb\nrenamed()\n",
		},
		{
			name:     "out of range line falls back",
			content:  "x := 1\n",
			proposal: domain.Proposal{File: "a.go", Original: "x := 1", Replacement: "x := 2", LineNumber: domain.Line(40)},
			want:     "x := 2\n",
		},
		{
			name:     "multi-line original",
			content:  "func a() {\n\treturn 1\n}\n",
			proposal: domain.Proposal{File: "a.go", Original: "\treturn 1\n}", Replacement: "\treturn 2\n}", LineNumber: domain.Line(2)},
			want:     "func a() {\n\treturn 2\n}\n",
		},
		{
			name:     "empty original inserts before line",
			content:  "first\nthird\n",
			proposal: domain.Proposal{File: "a.txt", Replacement: "second\n", LineNumber: domain.Line(2)},
			want:     "first\nsecond\nthird\n",
		},
		{
			name:     "not found",
			content:  "nothing here\n",
			proposal: domain.Proposal{File: "a.txt", Original: "missing", Replacement: "x", LineNumber: domain.Line(1)},
			wantErr:  domain.ErrOriginalNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Patch(tt.content, tt.proposal)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
