package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/shai-agent/internal/app"
	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/infrastructure/cli/helpers"
	"github.com/doeshing/shai-agent/internal/ports"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past turns",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistorySearchCommand(container),
		newHistoryClearCommand(container),
		newHistoryStatsCommand(container),
	)

	return historyCmd
}

// newHistoryListCommand creates the 'history list' subcommand
func newHistoryListCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent turns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistoryEntries(cmd.OutOrStdout(), container.HistoryStore, limit, "")
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Max entries to show")
	return cmd
}

// newHistorySearchCommand creates the 'history search' subcommand
func newHistorySearchCommand(container *app.Container) *cobra.Command {
	var query string
	var searchLimit int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search turns by prompt, intent or command",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" {
				return errors.New(ErrQueryRequired)
			}
			return listHistoryEntries(cmd.OutOrStdout(), container.HistoryStore, searchLimit, query)
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Search keyword")
	cmd.Flags().IntVar(&searchLimit, "limit", DefaultHistorySearchLimit, "Limit search results")
	return cmd
}

// newHistoryClearCommand creates the 'history clear' subcommand
func newHistoryClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded turns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearHistory(container.HistoryStore)
		},
	}
}

// newHistoryStatsCommand creates the 'history stats' subcommand
func newHistoryStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show outcome distribution and top commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistoryStats(cmd.OutOrStdout(), container.HistoryStore)
		},
	}
}

// listHistoryEntries prints one line per turn, newest first
func listHistoryEntries(out io.Writer, store ports.HistoryRepository, limit int, query string) error {
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	records, err := store.Records(limit, query)
	if err != nil {
		return fmt.Errorf("failed to retrieve history records: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	for _, rec := range records {
		fmt.Fprintf(out, "%s | %-17s | %-14s | %s\n",
			rec.Timestamp.Format(TimestampFormat),
			rec.State,
			rec.Intent,
			rec.Prompt)
		for _, command := range rec.Commands {
			fmt.Fprintf(out, "    $ %s\n", command)
		}
		if len(rec.FilesChanged) > 0 {
			fmt.Fprintf(out, "    files: %s\n", strings.Join(rec.FilesChanged, ", "))
		}
		if rec.Error != "" {
			fmt.Fprintf(out, "    error: %s\n", rec.Error)
		}
	}

	return nil
}

// clearHistory removes every record
func clearHistory(store ports.HistoryRepository) error {
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	return nil
}

// showHistoryStats displays completion rate, states and top commands
func showHistoryStats(out io.Writer, store ports.HistoryRepository) error {
	if store == nil {
		return errors.New(ErrHistoryStoreUnavailable)
	}

	records, err := store.Records(MaxHistoryAnalysisRecords, "")
	if err != nil {
		return fmt.Errorf("failed to retrieve history for analysis: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	stats := analyzeHistoryRecords(records)
	displayHistoryStatistics(out, stats, records)

	return nil
}

// historyStatistics holds analyzed history statistics
type historyStatistics struct {
	completed   int
	commandFreq map[string]int
	fileFreq    map[string]int
	stateCounts map[domain.TurnState]int
}

// analyzeHistoryRecords analyzes history records and computes statistics
func analyzeHistoryRecords(records []domain.HistoryRecord) historyStatistics {
	stats := historyStatistics{
		commandFreq: make(map[string]int),
		fileFreq:    make(map[string]int),
		stateCounts: make(map[domain.TurnState]int),
	}

	for _, rec := range records {
		if rec.State == domain.StateApplied || rec.State == domain.StateQuestionAnswered {
			stats.completed++
		}
		for _, command := range rec.Commands {
			stats.commandFreq[command]++
		}
		for _, file := range rec.FilesChanged {
			stats.fileFreq[file]++
		}
		stats.stateCounts[rec.State]++
	}

	return stats
}

// displayHistoryStatistics displays formatted history statistics
func displayHistoryStatistics(out io.Writer, stats historyStatistics, records []domain.HistoryRecord) {
	fmt.Fprintf(out, "Turns analyzed: %d\nCompleted: %.1f%%\n",
		len(records),
		helpers.CalculateSuccessRate(stats.completed, len(records)))

	fmt.Fprintln(out, "Outcomes:")
	states := make([]string, 0, len(stats.stateCounts))
	for state := range stats.stateCounts {
		states = append(states, string(state))
	}
	sort.Strings(states)
	for _, state := range states {
		fmt.Fprintf(out, "  %s: %d\n", state, stats.stateCounts[domain.TurnState(state)])
	}

	if len(stats.commandFreq) > 0 {
		fmt.Fprintln(out, "Top commands:")
		for _, stat := range helpers.CalculateTopCommands(stats.commandFreq, 5) {
			fmt.Fprintf(out, "  %s (%d)\n", stat.Command, stat.Count)
		}
	}

	if len(stats.fileFreq) > 0 {
		fmt.Fprintln(out, "Most edited files:")
		for _, stat := range helpers.CalculateTopCommands(stats.fileFreq, 5) {
			fmt.Fprintf(out, "  %s (%d)\n", stat.Command, stat.Count)
		}
	}

	hints := helpers.DeriveUndoHints(records)
	if len(hints) > 0 {
		fmt.Fprintln(out, "Undo hints:")
		for _, hint := range hints {
			fmt.Fprintf(out, "  - %s\n", hint)
		}
	}
}
