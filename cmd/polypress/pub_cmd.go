package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/REZICS/PolyPress/internal/app"
	"github.com/REZICS/PolyPress/internal/config"
	"github.com/REZICS/PolyPress/internal/hooks"
	"github.com/REZICS/PolyPress/internal/log"
	"github.com/REZICS/PolyPress/internal/output"
	"github.com/REZICS/PolyPress/internal/publication"
	"github.com/REZICS/PolyPress/internal/ui/progress"
	"github.com/REZICS/PolyPress/internal/ui/prompt"
	"github.com/REZICS/PolyPress/internal/ui/static"
	"github.com/REZICS/PolyPress/internal/ui/styles"
)

const defaultRunTimeout = 2 * time.Minute

func newPubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pub",
		Short:   "Manage the publications of a file",
		Aliases: []string{"p"},
		GroupID: GroupPublication,
		Long: `Manage where a manuscript file is published.

Every file has one publication record per known platform. A record is
pushed only once it has a remote URL, the platform's edit page.

REF is either a platform id (rezics, kadokado, penana, popo), combined
with FILE or the active file, or a full record id such as
"penana::/novels/ch1.txt".`,
		Example: `  polypress pub list ch1.txt
  polypress pub set-url penana https://www.penana.com/edit/1 -f ch1.txt
  polypress pub touch penana
  polypress pub push-all`,
	}

	cmd.AddCommand(newPubListCmd())
	cmd.AddCommand(newPubSetURLCmd())
	cmd.AddCommand(newPubURLCmd())
	cmd.AddCommand(newPubTouchCmd())
	cmd.AddCommand(newPubPushAllCmd())

	return cmd
}

// pubTarget is the workspace and file a publication command works on.
type pubTarget struct {
	root string
	file string
}

func resolveTarget(cmd *cobra.Command, fileArg string) (pubTarget, error) {
	ctx := cmd.Context()
	root, err := resolveRoot(ctx)
	if err != nil {
		return pubTarget{}, err
	}
	file, err := resolveFile(ctx, root, fileArg)
	if err != nil {
		return pubTarget{}, err
	}
	return pubTarget{root: root, file: file}, nil
}

func newPubListCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list [FILE]",
		Short: "List the publications of a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := resolveTarget(cmd, firstArg(args))
			if err != nil {
				return err
			}
			records, err := stateFrom(ctx).service(ctx).ListPublicationsByFile(ctx, app.ListArgs{WorkspaceRoot: t.root, FilePath: t.file})
			if err != nil {
				return err
			}
			out := output.FromContext(ctx)
			if jsonOut {
				return out.JSON(records)
			}
			out.Print(static.RenderPublications(records, time.Local))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newPubSetURLCmd() *cobra.Command {
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "set-url [REF] [URL]",
		Short: "Set the remote URL of a publication",
		Args:  cobra.MaximumNArgs(2),
		Long: `Set the edit page a publication is pushed to.

Missing arguments are asked for interactively, the URL prefilled with
the current one. The URL cannot be blank.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := stateFrom(ctx).service(ctx)
			root, id, err := refOrChoose(cmd, svc, firstArg(args), fileFlag)
			if err != nil || id == "" {
				return err
			}

			url := ""
			if len(args) == 2 {
				url = args[1]
			} else {
				current, err := svc.GetPublication(ctx, root, id)
				if err != nil {
					return err
				}
				initial := ""
				if current != nil {
					initial = current.RemoteURL()
				}
				res, err := prompt.TextInput("Remote URL", "https://", initial)
				if err != nil {
					return err
				}
				if res.Cancelled {
					return nil
				}
				url = res.Value
			}

			rec, err := svc.SetPublicationRemoteURL(ctx, app.SetRemoteURLArgs{WorkspaceRoot: root, PublicationID: id, RemoteURL: url})
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("no publication %s", id)
			}
			output.FromContext(ctx).Println(rec.RemoteURL())
			return nil
		},
	}

	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Manuscript file (default: active file)")
	return cmd
}

// refOrChoose resolves ref, or asks for one of the file's publications
// when ref is empty. An empty id means the prompt was cancelled.
func refOrChoose(cmd *cobra.Command, svc *app.Service, ref, fileArg string) (root, id string, err error) {
	if ref != "" {
		return resolveRef(cmd, ref, fileArg)
	}
	t, err := resolveTarget(cmd, fileArg)
	if err != nil {
		return "", "", err
	}
	rec, err := choosePublication(cmd, svc, t)
	if err != nil || rec == nil {
		return t.root, "", err
	}
	return t.root, rec.ID, nil
}

// choosePublication asks for one of the file's publications. A nil
// record means the prompt was cancelled.
func choosePublication(cmd *cobra.Command, svc *app.Service, t pubTarget) (*publication.Record, error) {
	ctx := cmd.Context()
	records, err := svc.ListPublicationsByFile(ctx, app.ListArgs{WorkspaceRoot: t.root, FilePath: t.file})
	if err != nil {
		return nil, err
	}
	options := make([]prompt.Option, len(records))
	for i, r := range records {
		options[i] = prompt.Option{Label: r.PlatformName, Hint: r.RemoteURL()}
	}
	res, err := prompt.Select("Publication", options)
	if errors.Is(err, prompt.ErrNotInteractive) {
		return nil, errors.New("no REF given and no terminal to ask for one")
	}
	if err != nil || res.Cancelled {
		return nil, err
	}
	return &records[res.Index], nil
}

// resolveRef resolves REF to a record id. The file is needed only when
// REF is a platform id.
func resolveRef(cmd *cobra.Command, ref, fileArg string) (root, id string, err error) {
	ctx := cmd.Context()
	if root, err = resolveRoot(ctx); err != nil {
		return "", "", err
	}
	file := ""
	if !strings.Contains(ref, "::") {
		if file, err = resolveFile(ctx, root, fileArg); err != nil {
			return "", "", err
		}
	}
	id, err = resolvePublicationID(ref, file)
	return root, id, err
}

func newPubURLCmd() *cobra.Command {
	var (
		fileFlag string
		copyURL  bool
	)

	cmd := &cobra.Command{
		Use:   "url REF",
		Short: "Print the remote URL of a publication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root, id, err := resolveRef(cmd, args[0], fileFlag)
			if err != nil {
				return err
			}
			rec, err := stateFrom(ctx).service(ctx).GetPublication(ctx, root, id)
			if err != nil {
				return err
			}
			if rec == nil || rec.RemoteURL() == "" {
				return fmt.Errorf("%s has no remote URL", id)
			}
			if copyURL {
				if err := clipboard.WriteAll(rec.RemoteURL()); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				log.FromContext(ctx).Printf("Copied %s\n", rec.RemoteURL())
				return nil
			}
			output.FromContext(ctx).Println(rec.RemoteURL())
			return nil
		},
	}

	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Manuscript file (default: active file)")
	cmd.Flags().BoolVarP(&copyURL, "copy", "c", false, "Copy the URL to the clipboard")
	return cmd
}

func newPubTouchCmd() *cobra.Command {
	var (
		fileFlag string
		timeout  time.Duration
		hf       hookFlags
	)

	cmd := &cobra.Command{
		Use:   "touch [REF]",
		Short: "Record a submission and push the file",
		Args:  cobra.MaximumNArgs(1),
		Long: `Record a local submission of a publication and, when it has a remote
URL, push the file's text to the platform's edit page and wait until
the page flow finishes. The browser window closes when the command
exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := stateFrom(ctx).service(ctx)
			root, id, err := refOrChoose(cmd, svc, firstArg(args), fileFlag)
			if err != nil || id == "" {
				return err
			}
			runHooks, err := hf.prepare(ctx, root, hooks.TriggerTouch)
			if err != nil {
				return err
			}
			_, content, err := publication.ParseID(id)
			if err != nil {
				return err
			}

			events, unsubscribe := svc.Remote().Subscribe()
			defer unsubscribe()

			rec, err := svc.TouchPublication(ctx, publication.TouchArgs{WorkspaceRoot: root, PublicationID: id, ContentPath: content})
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("no publication %s", id)
			}
			l := log.FromContext(ctx)
			l.Printf("Submitted %s at %s\n", rec.PlatformName, rec.SubmittedAt().Local().Format(time.DateTime))
			if rec.RemoteURL() == "" {
				return nil
			}

			spin := progress.NewSpinner("Pushing to " + rec.PlatformName)
			spin.Start()
			err = (&runWatch{events: events, timeout: timeout, spin: spin}).wait(ctx)
			spin.Stop()
			if err != nil {
				return err
			}
			l.Printf("Updated %s\n", rec.RemoteURL())
			runHooks(ctx, root, *rec)
			return nil
		},
	}

	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Manuscript file (default: active file)")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultRunTimeout, "Give up waiting for the page after this long")
	hf.register(cmd)
	return cmd
}

func newPubPushAllCmd() *cobra.Command {
	var (
		timeout time.Duration
		jsonOut bool
		hf      hookFlags
	)

	cmd := &cobra.Command{
		Use:   "push-all [FILE]",
		Short: "Push a file to every platform with a remote URL",
		Args:  cobra.MaximumNArgs(1),
		Long: `Push a file to every platform that has a remote URL, one platform at
a time. A failed platform is reported and the rest are still pushed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := resolveTarget(cmd, firstArg(args))
			if err != nil {
				return err
			}
			runHooks, err := hf.prepare(ctx, t.root, hooks.TriggerPushAll)
			if err != nil {
				return err
			}
			svc := stateFrom(ctx).service(ctx)
			listArgs := app.ListArgs{WorkspaceRoot: t.root, FilePath: t.file}

			records, err := svc.ListPublicationsByFile(ctx, listArgs)
			if err != nil {
				return err
			}
			bar := progress.NewBar(len(publication.Candidates(records)))

			events, unsubscribe := svc.Remote().Subscribe()
			defer unsubscribe()
			watch := &runWatch{events: events, timeout: timeout}

			bar.Start()
			results, err := svc.UpdateAllAwait(ctx, listArgs,
				func(i, _ int, rec publication.Record) {
					bar.Step(i+1, rec.PlatformName)
				},
				func(ctx context.Context, rec publication.Record) error {
					if err := watch.wait(ctx); err != nil {
						return err
					}
					runHooks(ctx, t.root, rec)
					return nil
				})
			bar.Stop()
			if err != nil && len(results) == 0 {
				return err
			}

			out := output.FromContext(ctx)
			if jsonOut {
				if jerr := out.JSON(pushResults(results)); jerr != nil {
					return jerr
				}
			} else {
				out.Print(renderPushResults(results))
			}
			if err != nil {
				return err
			}
			if n := publication.Failed(results); n > 0 {
				return fmt.Errorf("%d of %d platforms failed", n, len(results))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultRunTimeout, "Give up waiting for each page after this long")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	hf.register(cmd)
	return cmd
}

// hookFlags selects the hooks run after each updated platform.
type hookFlags struct {
	name   string
	skip   bool
	dryRun bool
	args   []string
}

func (f *hookFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "hook", "", "Run this hook instead of the configured ones")
	cmd.Flags().BoolVar(&f.skip, "no-hook", false, "Run no hooks")
	cmd.Flags().BoolVar(&f.dryRun, "hook-dry-run", false, "Print hook commands instead of running them")
	cmd.Flags().StringArrayVarP(&f.args, "arg", "a", nil, "Hook variable as KEY=VALUE (KEY=- reads stdin)")
	cmd.MarkFlagsMutuallyExclusive("hook", "no-hook")
}

// prepare selects the hooks configured for root and returns a function
// running them for one updated record. Hook failures are logged only.
func (f *hookFlags) prepare(ctx context.Context, root string, trigger hooks.Trigger) (func(context.Context, string, publication.Record), error) {
	cfg, err := config.ResolverFromContext(ctx).ForRoot(root)
	if err != nil {
		return nil, err
	}
	matches, err := hooks.Select(cfg.Hooks, f.name, f.skip, trigger)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return func(context.Context, string, publication.Record) {}, nil
	}
	env, err := hooks.ParseArgs(f.args)
	if err != nil {
		return nil, err
	}
	runner := hooks.Runner{Stdout: os.Stderr, Stderr: os.Stderr, Logger: log.FromContext(ctx)}
	return func(ctx context.Context, root string, rec publication.Record) {
		_, file, _ := publication.ParseID(rec.ID)
		runner.Run(ctx, matches, hooks.Context{
			Root:         root,
			File:         file,
			Platform:     rec.PlatformID,
			PlatformName: rec.PlatformName,
			URL:          rec.RemoteURL(),
			Trigger:      trigger,
			Env:          env,
			DryRun:       f.dryRun,
		})
	}, nil
}

type pushResult struct {
	publication.Record
	Error string `json:"error,omitempty"`
}

func pushResults(results []publication.ItemResult) []pushResult {
	out := make([]pushResult, len(results))
	for i, r := range results {
		out[i] = pushResult{Record: r.Record}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

func renderPushResults(results []publication.ItemResult) string {
	rows := make([][]string, len(results))
	for i, r := range results {
		sym := styles.CurrentSymbols()
		status := styles.SuccessStyle.Render(sym.Submitted + " ok")
		if r.Err != nil {
			status = styles.ErrorStyle.Render(sym.Failed + " " + r.Err.Error())
		}
		rows[i] = []string{r.Record.PlatformName, r.Record.RemoteURL(), status}
	}
	return static.RenderTable([]string{"PLATFORM", "REMOTE URL", "RESULT"}, rows)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
