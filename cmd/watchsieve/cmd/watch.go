package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/watchsieve/internal/engine"
	serrors "github.com/Aman-CERP/watchsieve/internal/errors"
	"github.com/Aman-CERP/watchsieve/internal/event"
	"github.com/Aman-CERP/watchsieve/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var (
		flags        filterFlags
		jsonOutput   bool
		forcePolling bool
	)

	cmd := &cobra.Command{
		Use:   "watch [flags]",
		Short: "Watch paths and print the events that pass the filter",
		Long: `Watch the given paths recursively and print one line per event that
passes the filter. Directories the filter rejects are not watched at all.

The filter is rebuilt when an ignore file changes, or on SIGHUP. If the
rebuilt filter fails to compile the previous one stays active.`,
		Example: `  # Print changes to Go files under the current directory
  watchsieve watch -e go

  # Watch two trees, dropping permission changes
  watchsieve watch -w src -w docs --no-meta`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, &flags, jsonOutput, forcePolling)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output one JSON object per event")
	cmd.Flags().BoolVar(&forcePolling, "force-polling", false, "Poll instead of using native notifications")

	return cmd
}

type watchLine struct {
	Kinds []string `json:"kinds"`
	Paths []string `json:"paths"`
}

func runWatch(ctx context.Context, cmd *cobra.Command, flags *filterFlags, jsonOutput, forcePolling bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := flags.options(cfg)
	eng, err := engine.New(ctx, opts)
	if err != nil {
		return err
	}
	defer eng.Close()

	w, err := watcher.New(eng, watcher.Options{
		PollInterval:    cfg.PollIntervalDuration(),
		EventBufferSize: cfg.Watch.EventBuffer,
		ForcePolling:    cfg.Watch.ForcePolling || forcePolling,
	})
	if err != nil {
		return serrors.InternalError("failed to create watcher", err)
	}

	roots := opts.Paths
	if len(roots) == 0 {
		roots = []string{"."}
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer func() { _ = w.Stop() }()
		err := w.Start(gctx, roots)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				slog.Info("SIGHUP received, reloading filter")
				// A failed reload is logged by the engine and keeps the old filter.
				_ = eng.Reload(gctx)
			}
		}
	})
	g.Go(func() error {
		// The watcher closes its channels when it stops for any reason.
		defer cancel()
		return printEvents(cmd, w, jsonOutput)
	})

	err = g.Wait()
	stats := w.Stats()
	slog.Debug("watch stopped",
		slog.Uint64("accepted", stats.Accepted),
		slog.Uint64("rejected", stats.Rejected),
		slog.Uint64("failed", stats.Failed),
		slog.Uint64("dropped", stats.Dropped),
		slog.Uint64("reloads", stats.Reloads))
	return err
}

// printEvents drains the watcher until both channels are closed. Errors
// are logged; only a write failure on stdout ends the loop early.
func printEvents(cmd *cobra.Command, w *watcher.Watcher, jsonOutput bool) error {
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)

	events, errs := w.Events(), w.Errors()
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := printEvent(out, enc, ev, jsonOutput); err != nil {
				_ = w.Stop()
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watch error", serrors.LogAttrs(err)...)
		}
	}
	return nil
}

func printEvent(out io.Writer, enc *json.Encoder, ev event.Event, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprintln(out, ev.String())
		return err
	}

	line := watchLine{}
	for _, k := range ev.Kinds() {
		line.Kinds = append(line.Kinds, k.String())
	}
	for _, p := range ev.Paths() {
		line.Paths = append(line.Paths, p.Path)
	}
	return enc.Encode(line)
}
