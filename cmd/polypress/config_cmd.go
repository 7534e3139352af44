package main

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/REZICS/PolyPress/internal/config"
	"github.com/REZICS/PolyPress/internal/log"
	"github.com/REZICS/PolyPress/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage configuration",
		Aliases: []string{"cfg"},
		GroupID: GroupConfig,
		Long: `Manage polypress configuration.

Global config:    ~/.config/polypress/config.toml
Workspace config: .polypress/config.toml (in the workspace root)`,
		Example: `  polypress config init      # Create default global config
  polypress config show      # Show effective config`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force  bool
		stdout bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default config file",
		Args:  cobra.NoArgs,
		Example: `  polypress config init      # Create global config
  polypress config init -f   # Overwrite existing config
  polypress config init -s   # Print config to stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if stdout {
				output.FromContext(ctx).Print(config.DefaultConfig())
				return nil
			}
			path, err := config.Init(force)
			if err != nil {
				if !force {
					return fmt.Errorf("%w (use -f to overwrite)", err)
				}
				return err
			}
			log.FromContext(ctx).Printf("Created config file: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config")
	cmd.Flags().BoolVarP(&stdout, "stdout", "s", false, "Print config to stdout")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		Long: `Show the effective configuration of the current workspace: the global
config merged with the workspace's .polypress/config.toml, if any.`,
		Example: `  polypress config show
  polypress config show -w ~/novels --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)
			resolver := config.ResolverFromContext(ctx)

			root, err := resolveRoot(ctx)
			if err != nil {
				return err
			}
			eff, err := resolver.ForRoot(root)
			if err != nil {
				log.FromContext(ctx).Warn("workspace config ignored", "error", err)
				eff = resolver.Global()
			}

			if jsonOut {
				return out.JSON(eff)
			}
			if p, err := config.Path(); err == nil {
				out.Printf("# global config: %s\n", p)
			}
			out.Printf("# workspace config: %s\n\n", filepath.Join(root, config.LocalConfigFile))
			return toml.NewEncoder(out.Writer()).Encode(eff)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
