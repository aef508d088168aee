package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/doeshing/shai-agent/internal/infrastructure/cli"
)

func main() {
	// API keys may live in a project-local .env; a missing file is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cli.Options{Verbose: isVerbose(os.Args[1:])}

	root, err := cli.NewRootCmd(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// isVerbose is decided before cobra parses flags because the logger is
// built together with the container.
func isVerbose(args []string) bool {
	for _, arg := range args {
		if arg == "--debug" || arg == "--debug=true" {
			return true
		}
	}
	return strings.EqualFold(os.Getenv("SHAI_DEBUG"), "1") || strings.EqualFold(os.Getenv("SHAI_DEBUG"), "true")
}
