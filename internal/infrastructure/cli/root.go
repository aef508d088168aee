package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/shai-agent/internal/app"
	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, err
	}
	console := NewConsole(nil, nil, nil)
	container.Orchestrator.Reviewer = console
	if isTerminal(os.Stderr) && !opts.Verbose {
		container.Orchestrator.Reasoner = WithSpinner(container.Orchestrator.Reasoner, NewSpinner(os.Stderr))
	}

	var (
		timeout time.Duration
		debug   bool
	)

	root := &cobra.Command{
		Use:   "shai [request]",
		Short: "SHAI - project-aware coding agent",
		Long: "SHAI turns natural-language requests into answers, shell commands and reviewed code edits.\n" +
			"Run without arguments for an interactive session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := currentProject()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return runChat(cmd.Context(), container, console, project, timeout)
			}
			_, err = runTurn(cmd.Context(), container, console, project, strings.Join(args, " "), timeout)
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&debug, "debug", opts.Verbose, "Enable verbose logging")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Abort a turn after this long (0 disables)")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session that keeps the working directory across turns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := currentProject()
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), container, console, project, timeout)
		},
	}

	root.AddCommand(
		chatCmd,
		commands.NewConfigCommand(container),
		commands.NewDoctorCommand(container),
		commands.NewHistoryCommand(container),
		commands.NewSafetyCommand(container),
		commands.NewVersionCommand(),
	)
	return root, nil
}

// runTurn processes one request and renders its outcome. The returned
// project is the context for the next turn.
func runTurn(ctx context.Context, container *app.Container, console *Console, project domain.ProjectContext, prompt string, timeout time.Duration) (domain.ProjectContext, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	outcome := container.Orchestrator.HandleTurn(ctx, project, prompt)
	console.Render(outcome, container.Orchestrator.Options.Interactive)
	return outcome.Project, outcome.Err
}

func currentProject() (domain.ProjectContext, error) {
	wd, err := os.Getwd()
	if err != nil {
		return domain.ProjectContext{}, fmt.Errorf("resolve working directory: %w", err)
	}
	return domain.NewProjectContext(wd)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
