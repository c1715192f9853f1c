package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rulegen/internal/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Source   SourceFlags
	Out      string
	Cache    string
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Regenerate artifacts whenever rule sources change",
		Long: `Generate hot-reload artifacts for a source directory, then watch it
and regenerate on every change. Only artifacts whose content changed are
rewritten; artifacts whose rules disappeared are removed. Stop with Ctrl+C.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	opts.Source.addFlags(cmd, false)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output directory (required unless configured)")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "SQLite build cache")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", watch.DefaultDebounce, "quiet period before regenerating")

	return cmd
}

func runWatch(opts *WatchOptions, dir string, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
	w := formatter.Writer

	if !isDir(dir) {
		return formatter.Fail(withCode(ErrCodeNotFound, fmt.Errorf("source directory not found: %s", dir)))
	}
	out := stringFlag(cmd, "out", opts.Out, opts.Config.OutDir)
	if out == "" {
		return formatter.Fail(withCode(ErrCodeUsage, errors.New("watch requires --out")))
	}
	cache := stringFlag(cmd, "cache", opts.Cache, opts.Config.CacheDB)

	flags := opts.Source.resolve(cmd, opts.Config)
	flags.HotReload = true

	// Failures are reported and the previous output is left in place.
	regenerate := func(ctx context.Context) {
		summary, err := generateOnce(ctx, dir, flags, out, cache, opts.Logger)
		switch {
		case err == nil && formatter.JSON():
			_ = formatter.Success(summary)
		case err == nil:
			printOutputText(w, summary)
		case ctx.Err() == nil:
			_ = formatter.Error(classifyError(err))
		}
	}

	regenerate(cmd.Context())

	watcher, err := watch.New(watch.Config{
		Root:     dir,
		Skip:     []string{out},
		Debounce: opts.Debounce,
		Logger:   opts.Logger,
		OnChange: func(ctx context.Context, changed []string) error {
			if !formatter.JSON() {
				fmt.Fprintf(w, "%s %d change(s) detected\n", arrowMark, len(changed))
			}
			regenerate(ctx)
			return nil
		},
	})
	if err != nil {
		return formatter.Fail(err)
	}

	if !formatter.JSON() {
		fmt.Fprintf(w, "%s Watching %s (Ctrl+C to stop)\n", arrowMark, PathStyle.Render(watcher.Root()))
	}
	if err := watcher.Run(cmd.Context()); err != nil {
		return formatter.Fail(err)
	}
	return nil
}

func generateOnce(ctx context.Context, dir string, flags SourceFlags, out, cache string, logger *slog.Logger) (*OutputSummary, error) {
	session, err := LoadSession([]string{dir}, flags, logger)
	if err != nil {
		return nil, err
	}
	res, err := session.Run(ctx)
	if err != nil {
		return nil, err
	}
	return writeBuild(ctx, res, out, cache, logger)
}
