package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/shai-agent/internal/app"
	configapp "github.com/doeshing/shai-agent/internal/application/config"
	"github.com/doeshing/shai-agent/internal/domain"
	configinfra "github.com/doeshing/shai-agent/internal/infrastructure/config"
)

// NewConfigCommand exposes the agent's configuration file. Without a
// subcommand it prints the effective configuration.
func NewConfigCommand(container *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change agent configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := container.ConfigProvider.Load(cmd.Context())
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one value, e.g. search.confidence_floor",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				doc, err := loadDocument(cmd, container)
				if err != nil {
					return err
				}
				value, err := doc.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one value; non-string values are parsed as YAML",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				doc, err := loadDocument(cmd, container)
				if err != nil {
					return err
				}
				if err := doc.Set(args[0], args[1]); err != nil {
					return err
				}
				cfg, err := doc.Config()
				if err != nil {
					return err
				}
				return saveConfig(container, cfg)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := container.ConfigProvider.Load(cmd.Context())
				if err == nil {
					err = configapp.Validate(cfg)
				}
				if err != nil {
					return fmt.Errorf("invalid configuration: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), MsgConfigurationValid)
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print where the configuration file lives",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if container.ConfigLoader == nil {
					return errors.New(ErrConfigLoaderUnavailable)
				}
				fmt.Fprintln(cmd.OutOrStdout(), container.ConfigLoader.Path())
				return nil
			},
		},
		&cobra.Command{
			Use:   "diff",
			Short: "Compare the configuration with the built-in defaults",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := container.ConfigProvider.Load(cmd.Context())
				if err != nil {
					return err
				}
				defaults, err := configinfra.Defaults()
				if err != nil {
					return err
				}
				if diff := cmp.Diff(defaults, cfg); diff != "" {
					fmt.Fprintln(cmd.OutOrStdout(), diff)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), MsgNoDifferencesFromDefault)
				return nil
			},
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Open the configuration file in $EDITOR",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if container.ConfigLoader == nil {
					return errors.New(ErrConfigLoaderUnavailable)
				}
				editor := os.Getenv("EDITOR")
				if editor == "" {
					editor = "vi"
				}
				run := exec.CommandContext(cmd.Context(), editor, container.ConfigLoader.Path())
				run.Stdin, run.Stdout, run.Stderr = os.Stdin, os.Stdout, os.Stderr
				if err := run.Run(); err != nil {
					return fmt.Errorf("run %s: %w", editor, err)
				}
				return nil
			},
		},
	)
	return cmd
}

func loadDocument(cmd *cobra.Command, container *app.Container) (*configDocument, error) {
	cfg, err := container.ConfigProvider.Load(cmd.Context())
	if err != nil {
		return nil, err
	}
	return newConfigDocument(cfg)
}

// saveConfig validates cfg and writes it, keeping the previous file as a
// .bak copy.
func saveConfig(container *app.Container, cfg domain.Config) error {
	if container.ConfigLoader == nil {
		return errors.New(ErrConfigLoaderUnavailable)
	}
	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := container.ConfigLoader.Backup(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return container.ConfigLoader.Save(cfg)
}

func printYAML(w io.Writer, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
