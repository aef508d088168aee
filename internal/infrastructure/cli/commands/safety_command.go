package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/shai-agent/internal/app"
)

// NewSafetyCommand creates the safety command with check and status subcommands
func NewSafetyCommand(container *app.Container) *cobra.Command {
	safetyCmd := &cobra.Command{
		Use:   "safety",
		Short: "Inspect shell safety classification",
	}

	safetyCmd.AddCommand(
		newSafetyCheckCommand(container),
		newSafetyStatusCommand(container),
	)

	return safetyCmd
}

// newSafetyCheckCommand classifies a command without running it
func newSafetyCheckCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "check <command>",
		Short: "Classify a shell command without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkCommandSafety(cmd.OutOrStdout(), container, strings.Join(args, " "))
		},
	}
}

// newSafetyStatusCommand shows the active mode and rules file
func newSafetyStatusCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active safety mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSafetyStatus(cmd.OutOrStdout(), container)
		},
	}
}

func checkCommandSafety(out io.Writer, container *app.Container, command string) error {
	if container.Safety == nil {
		return errors.New(ErrSafetyUnavailable)
	}

	verdict := container.Safety.IsSafe(command)
	if verdict.Safe {
		fmt.Fprintf(out, "safe: %s\n", command)
		return nil
	}
	fmt.Fprintf(out, "unsafe: %s\n  reason: %s\n", command, verdict.Reason)
	return nil
}

func showSafetyStatus(out io.Writer, container *app.Container) error {
	if container.Safety == nil {
		return errors.New(ErrSafetyUnavailable)
	}

	fmt.Fprintf(out, "Mode: %s\n", container.Safety.Mode())
	fmt.Fprintf(out, "Allow-list enforced: %s\n", formatEnabledStatus(container.Config.ShouldEnforceAllowlist()))
	rules := container.Config.Safety.RulesFile
	if rules == "" {
		rules = "(built-in)"
	}
	fmt.Fprintf(out, "Rules file: %s\n", rules)
	return nil
}

// formatEnabledStatus converts a boolean to a human-readable status
func formatEnabledStatus(enabled bool) string {
	if enabled {
		return "yes"
	}
	return "no"
}
