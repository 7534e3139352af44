package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/REZICS/PolyPress/internal/app"
	"github.com/REZICS/PolyPress/internal/config"
	"github.com/REZICS/PolyPress/internal/history"
	"github.com/REZICS/PolyPress/internal/log"
	"github.com/REZICS/PolyPress/internal/output"
	"github.com/REZICS/PolyPress/internal/registry"
	"github.com/REZICS/PolyPress/internal/ui"
	"github.com/REZICS/PolyPress/internal/ui/picker"
	"github.com/REZICS/PolyPress/internal/ui/styles"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	rootFlag string
)

// Command group IDs for organizing help output
const (
	GroupWorkspace   = "workspace"
	GroupPublication = "publication"
	GroupServer      = "server"
	GroupConfig      = "config"
)

var rootCmd = &cobra.Command{
	Use:   "polypress",
	Short: "Publish local manuscripts to several web platforms",
	Long: `polypress keeps track of where each manuscript file is published and
pushes local changes to the platforms' editors.

Every workspace keeps its publication records in .polypress/database.db.
Pushing a file opens the platform's edit page in a browser window, fills
in the file's text and submits it.`,
	SilenceUsage:               true,
	SilenceErrors:              true,
	SuggestionsMinimumDistance: 2,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose && quiet {
			return errors.New("--verbose and --quiet are mutually exclusive")
		}
		// The logger is created here so the parsed flags apply.
		ctx := log.WithLogger(cmd.Context(), log.New(os.Stderr, verbose, quiet))
		if rootFlag != "" {
			ctx = withRoot(ctx, rootFlag)
		}
		cmd.SetContext(ctx)
		return nil
	},
}

// Execute builds the shared state, runs the command tree and closes the
// service on exit.
func Execute() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: .env: %v\n", err)
	}

	loadedCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg := &loadedCfg
	styles.Init(cfg.UI, ui.Profile())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st := newState(cfg)
	ctx = withState(ctx, st)
	ctx = config.WithResolver(ctx, config.NewResolver(cfg))
	ctx = output.WithPrinter(ctx, os.Stdout)
	rootCmd.SetContext(ctx)

	err = rootCmd.Execute()
	if cerr := st.close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Run 'polypress -h' for help")
		os.Exit(1)
	}
}

// newState prepares the shared state. The service is built on first
// use, with the interactive picker offering recent workspaces first.
func newState(cfg *config.Config) *state {
	st := &state{cfg: cfg}
	st.registryPath = cfg.RegistryPath
	if st.registryPath == "" {
		if p, err := registry.DefaultPath(); err == nil {
			st.registryPath = p
		}
	}
	st.historyPath = cfg.HistoryPath
	if st.historyPath == "" {
		if p, err := history.DefaultPath(); err == nil {
			st.historyPath = p
		}
	}
	st.build = func(l *log.Logger) *app.Service {
		var recent []string
		if reg, err := registry.Load(st.registryPath); err == nil {
			recent = reg.Paths()
		}
		return app.New(app.Options{
			Config: cfg,
			Logger: l,
			Picker: &picker.Picker{Recent: recent},
		})
	}
	return st
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug diagnostics")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.PersistentFlags().StringVarP(&rootFlag, "root", "w", "", "Workspace root (default: current workspace, else working directory)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddGroup(
		&cobra.Group{ID: GroupWorkspace, Title: "Workspace Commands:"},
		&cobra.Group{ID: GroupPublication, Title: "Publication Commands:"},
		&cobra.Group{ID: GroupServer, Title: "Server Commands:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration Commands:"},
	)

	rootCmd.AddCommand(newCwdCmd())
	rootCmd.AddCommand(newOpenCmd())
	rootCmd.AddCommand(newRecentCmd())
	rootCmd.AddCommand(newTreeCmd())
	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newSelectCmd())

	rootCmd.AddCommand(newPubCmd())

	rootCmd.AddCommand(newServeCmd())

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}
