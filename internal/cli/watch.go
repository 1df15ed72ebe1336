package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/watcher"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	debounce time.Duration
	output   string
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rescan and rewrite the manifest whenever sources change",
		Long: `Watch performs an initial scan, then watches the project directory and
rescans whenever a discovered .ts or .tsx file is written, created, renamed
or removed. Bursts of changes are coalesced into one rescan.

Diagnostics are printed after every rescan. A rescan that fails (for example
because two classes now share a collection) keeps the previous manifest on
disk.

Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, root, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.debounce, "debounce", watcher.DefaultDebounce, "quiet period before a rescan")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "manifest output path (default from config)")

	return cmd
}

func runWatch(cmd *cobra.Command, root *rootOptions, opts *watchOptions) error {
	p, err := loadProject(cmd, root)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = p.cfg.Manifest.Output
	}
	output = p.path(output)

	s, err := p.newRescanner()
	if err != nil {
		return err
	}
	defer s.Close()

	diags := p.diagnostics(cmd.ErrOrStderr())
	rebuild := func(ctx context.Context) {
		result, err := p.build(ctx, buildOptions{scanner: s})
		if result != nil && result.Report != nil {
			diags.report(result.Report)
		}
		if err != nil {
			p.logger.Error("rescan failed", "error", err)
			return
		}
		if err := manifest.Save(output, result.Manifest); err != nil {
			p.logger.Error("failed to write manifest", "error", err)
			return
		}
		diags.out = cmd.OutOrStdout()
		diags.summary(result)
		diags.out = cmd.ErrOrStderr()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rebuild(ctx)

	w, err := p.startWatcher(ctx, opts.debounce, func(files []string) {
		p.logger.Info("sources changed", "files", len(files))
		rebuild(ctx)
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes...\n", p.root)
	<-ctx.Done()
	return nil
}

// startWatcher watches the directories and files discovery would visit.
func (p *project) startWatcher(ctx context.Context, debounce time.Duration, onChange func([]string)) (watcher.SourceWatcher, error) {
	fd, err := p.discovery()
	if err != nil {
		return nil, err
	}

	w, err := watcher.New(p.root, watcher.Filter{Dir: fd.WalksDir, File: fd.MatchesPath}, watcher.WithDebounce(debounce))
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(ctx, onChange); err != nil {
		w.Stop()
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	return w, nil
}
