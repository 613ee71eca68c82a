package sync

import (
	"fmt"
	gosync "sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/spf13/cobra"

	sdctx "sopdrop.com/cli/internal/context"
	"sopdrop.com/cli/internal/flags/enum"
	"sopdrop.com/cli/internal/flags/log"
	"sopdrop.com/cli/internal/library"
)

const FlagConcurrencyLimit = "concurrency-limit"

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh registry metadata for installed assets",
		Long: `Sync asks the registry for the current version and description of
every asset in the local library. Assets that vanished from the
registry or fail to resolve are reported and left untouched.`,
		Example: `sopdrop library sync
sopdrop library sync --concurrency-limit 8`,
		Args:              cobra.NoArgs,
		RunE:              Sync,
		DisableAutoGenTag: true,
	}

	cmd.Flags().Int(FlagConcurrencyLimit, 4, "maximum amount of parallel requests to the registry")

	return cmd
}

func Sync(cmd *cobra.Command, _ []string) error {
	client := sdctx.FromContext(cmd.Context()).Client()
	if client == nil {
		return fmt.Errorf("could not retrieve client from context")
	}

	limit, err := cmd.Flags().GetInt(FlagConcurrencyLimit)
	if err != nil {
		return fmt.Errorf("getting concurrency-limit flag failed: %w", err)
	}

	opts, stop, err := registerSyncProgressTracker(cmd, library.SyncOptions{Limit: limit})
	if err != nil {
		return fmt.Errorf("registering sync progress tracker failed: %w", err)
	}

	result, err := client.Sync(cmd.Context(), opts)
	stop()
	if err != nil {
		return fmt.Errorf("syncing library failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "Synced %d assets.\n", result.Synced); err != nil {
		return err
	}
	for _, failure := range result.Failed {
		if _, err := fmt.Fprintf(out, "  %s: %v\n", failure.Slug, failure.Err); err != nil {
			return err
		}
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d assets failed to sync", len(result.Failed))
	}
	return nil
}

// registerSyncProgressTracker attaches a per-asset progress tracker to
// the sync options when logs render as text. With structured log
// formats the options pass through untouched so nothing interleaves
// with the log stream.
func registerSyncProgressTracker(cmd *cobra.Command, opts library.SyncOptions) (library.SyncOptions, func(), error) {
	format, err := enum.Get(cmd.Flags(), log.FormatFlagName)
	if err != nil {
		return opts, nil, fmt.Errorf("getting the log format from the command flag failed: %w", err)
	}
	if format != log.FormatText {
		return opts, func() {}, nil
	}

	pw := progress.NewWriter()
	pw.SetOutputWriter(cmd.ErrOrStderr())
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetAutoStop(false)

	var mu gosync.Mutex
	trackers := make(map[string]*progress.Tracker)
	opts.OnAssetStart = func(slug string) {
		tracker := &progress.Tracker{Message: "syncing " + slug, Total: 1}
		mu.Lock()
		trackers[slug] = tracker
		mu.Unlock()
		pw.AppendTracker(tracker)
	}
	opts.OnAssetDone = func(slug string, err error) {
		mu.Lock()
		tracker := trackers[slug]
		mu.Unlock()
		if tracker == nil {
			return
		}
		if err != nil {
			tracker.UpdateMessage(slug + " failed")
			tracker.MarkAsErrored()
			return
		}
		tracker.UpdateMessage(slug + " synced")
		tracker.Increment(1)
		tracker.MarkAsDone()
	}

	go func() {
		pw.Render()
	}()

	stop := func() {
		pw.Stop()
		for {
			select {
			case <-cmd.Context().Done():
				return
			default:
				if !pw.IsRenderInProgress() {
					return
				}
			}
		}
	}
	return opts, stop, nil
}
