package cli

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// streamWriter forwards live command output, styling each line and
// leaving line breaks untouched.
type streamWriter struct {
	out   io.Writer
	style lipgloss.Style
}

// NewStreamWriter builds a writer that styles everything passing through it.
func NewStreamWriter(out io.Writer, style lipgloss.Style) io.Writer {
	return &streamWriter{out: out, style: style}
}

func (s *streamWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	lines := strings.Split(string(p), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = s.style.Render(line)
		}
	}
	if _, err := io.WriteString(s.out, strings.Join(lines, "\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}
