package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/REZICS/PolyPress/internal/app"
	"github.com/REZICS/PolyPress/internal/history"
	"github.com/REZICS/PolyPress/internal/log"
	"github.com/REZICS/PolyPress/internal/output"
	"github.com/REZICS/PolyPress/internal/registry"
	"github.com/REZICS/PolyPress/internal/storage"
	"github.com/REZICS/PolyPress/internal/ui/prompt"
	"github.com/REZICS/PolyPress/internal/ui/static"
)

func newCwdCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "cwd",
		Short:   "Print the working directory",
		GroupID: GroupWorkspace,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir, err := stateFrom(ctx).service(ctx).WorkingDirectory(ctx)
			if err != nil {
				return err
			}
			output.FromContext(ctx).Println(dir)
			return nil
		},
	}
}

func newOpenCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:     "open [PATH]",
		Short:   "Make a directory the current workspace",
		GroupID: GroupWorkspace,
		Args:    cobra.MaximumNArgs(1),
		Long: `Make a directory the current workspace and print its path.

A file path opens the file's directory. Without PATH the working
directory is opened; with -i a fuzzy picker offers recent workspaces
and the directories below the working directory.`,
		Example: `  polypress open ~/novels      # open a workspace
  polypress open -i            # pick one interactively
  cd "$(polypress open -i)"    # and change into it`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := stateFrom(ctx).service(ctx)

			var dir string
			switch {
			case interactive:
				picked, ok, err := svc.PickDirectory(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				dir = picked
			case len(args) == 1:
				coerced, ok := svc.CoerceToDirectory(ctx, args[0])
				if !ok {
					return fmt.Errorf("%s: not a file or directory", args[0])
				}
				dir = coerced
			default:
				wd, err := svc.WorkingDirectory(ctx)
				if err != nil {
					return err
				}
				dir = wd
			}

			if err := rememberWorkspace(ctx, dir); err != nil {
				log.FromContext(ctx).Warn("could not record workspace", "error", err)
			}
			output.FromContext(ctx).Println(dir)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Pick the directory interactively")
	return cmd
}

func newRecentCmd() *cobra.Command {
	var (
		clearAll bool
		yes      bool
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:     "recent",
		Short:   "List recently opened workspaces",
		GroupID: GroupWorkspace,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st := stateFrom(ctx)
			out := output.FromContext(ctx)

			if clearAll {
				if !yes {
					res, err := prompt.Confirm("Forget all recent workspaces?")
					if errors.Is(err, prompt.ErrNotInteractive) {
						return errors.New("refusing to clear without a terminal (use --yes)")
					}
					if err != nil {
						return err
					}
					if !res.Confirmed {
						return nil
					}
				}
				return storage.Update(st.registryPath, func(reg *registry.Registry) error {
					reg.Clear()
					return nil
				})
			}

			reg, err := registry.Load(st.registryPath)
			if err != nil {
				return err
			}
			if jsonOut {
				return out.JSON(reg.Workspaces)
			}
			rows := make([][]string, 0, len(reg.Workspaces))
			for _, w := range reg.Workspaces {
				mark := ""
				if w.Path == reg.Current {
					mark = "*"
				}
				rows = append(rows, []string{mark, w.Name, w.Path, w.LastOpened.Local().Format(time.DateTime)})
			}
			out.Print(static.RenderTable([]string{"", "NAME", "PATH", "OPENED"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearAll, "clear", false, "Forget all recent workspaces")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newTreeCmd() *cobra.Command {
	var (
		maxDepth   int
		maxEntries int
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:     "tree [ROOT]",
		Short:   "List a workspace",
		GroupID: GroupWorkspace,
		Args:    cobra.MaximumNArgs(1),
		Long: `List the files and directories of a workspace, directories first,
each group in natural order.

Listing stops after --max-entries nodes; directories deeper than
--max-depth are shown without their contents. Defaults come from the
[tree] config section and the workspace's .polypress/config.toml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root, err := rootArg(cmd, args)
			if err != nil {
				return err
			}

			var treeArgs app.TreeArgs
			if cmd.Flags().Changed("max-depth") {
				treeArgs.MaxDepth = &maxDepth
			}
			if cmd.Flags().Changed("max-entries") {
				treeArgs.MaxEntries = &maxEntries
			}
			node, err := stateFrom(ctx).service(ctx).ListTree(ctx, root, treeArgs)
			if err != nil {
				return err
			}
			out := output.FromContext(ctx)
			if jsonOut {
				return out.JSON(node)
			}
			out.Print(static.RenderTree(node))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Deepest directory level to expand")
	cmd.Flags().IntVar(&maxEntries, "max-entries", 0, "Maximum number of listed nodes")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// rootArg returns the ROOT argument if given, else the resolved workspace.
func rootArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return resolveRoot(cmd.Context())
}

func newReadCmd() *cobra.Command {
	var (
		maxBytes int64
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:     "read FILE",
		Short:   "Print a file decoded to UTF-8",
		GroupID: GroupWorkspace,
		Args:    cobra.ExactArgs(1),
		Long: `Print a text file in any common encoding as UTF-8.

The encoding is detected from a byte order mark or the content. At most
--max-bytes are read; a truncated preview is reported on stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := stateFrom(ctx).service(ctx).ReadText(ctx, args[0], maxBytes)
			if err != nil {
				return err
			}
			out := output.FromContext(ctx)
			if jsonOut {
				return out.JSON(res)
			}
			out.Print(res.Text)
			if res.Truncated {
				log.FromContext(ctx).Warn("preview truncated", "read", res.BytesRead, "size", res.TotalBytes)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "Read at most this many bytes (default from config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newSelectCmd() *cobra.Command {
	var clearActive bool

	cmd := &cobra.Command{
		Use:     "select [FILE]",
		Short:   "Remember the active file of the workspace",
		GroupID: GroupWorkspace,
		Args:    cobra.MaximumNArgs(1),
		Long: `Remember FILE as the active file of the current workspace. Publication
commands use it when no FILE is given. Without FILE the active file is
printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st := stateFrom(ctx)
			root, err := resolveRoot(ctx)
			if err != nil {
				return err
			}
			out := output.FromContext(ctx)

			if clearActive {
				return history.RecordActive(st.historyPath, root, "")
			}
			if len(args) == 0 {
				file, err := history.ActiveFile(st.historyPath, root)
				if err != nil {
					return err
				}
				if file != "" {
					out.Println(file)
				}
				return nil
			}

			file, err := resolveFile(ctx, root, args[0])
			if err != nil {
				return err
			}
			// Fails for directories and missing files.
			if _, err := st.service(ctx).ReadText(ctx, file, 1); err != nil {
				return err
			}
			if err := history.RecordActive(st.historyPath, root, file); err != nil {
				return err
			}
			out.Println(file)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearActive, "clear", false, "Forget the active file")
	return cmd
}
