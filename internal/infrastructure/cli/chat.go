package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/doeshing/shai-agent/internal/app"
	"github.com/doeshing/shai-agent/internal/domain"
)

// runChat reads requests until exit, quit or end of input. Turn errors are
// printed and the session continues; the project context carries over.
func runChat(ctx context.Context, container *app.Container, console *Console, project domain.ProjectContext, timeout time.Duration) error {
	fmt.Fprintln(console.out, console.styles.muted.Render("Type a request, or exit to quit."))
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := console.ReadLine(chatPrompt(project))
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(console.out)
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		next, err := runTurn(ctx, container, console, project, line, timeout)
		if err != nil {
			console.RenderError(err)
		}
		project = next
	}
}

func chatPrompt(project domain.ProjectContext) string {
	return fmt.Sprintf("shai %s> ", filepath.Base(project.Root))
}
