package library

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sopdrop.com/cli/internal/registry"
)

// DefaultSyncLimit bounds how many registry lookups a sync pass runs
// at once.
const DefaultSyncLimit = 4

// MetadataSource yields the registry's current view of an asset.
type MetadataSource interface {
	Info(ctx context.Context, slug string) (*registry.Asset, error)
}

// SyncFailure records one asset a sync pass could not refresh.
type SyncFailure struct {
	Slug string
	Err  error
}

// SyncResult summarizes a sync pass over the library.
type SyncResult struct {
	Synced int
	Failed []SyncFailure
}

// SyncOptions tunes a sync pass.
type SyncOptions struct {
	// Limit bounds concurrent registry lookups. DefaultSyncLimit is
	// used when it is zero or negative.
	Limit int
	// OnAssetStart and OnAssetDone observe each asset as the pass
	// picks it up and finishes it. Either may be nil. They are called
	// from the sync workers and must be safe for concurrent use.
	OnAssetStart func(slug string)
	OnAssetDone  func(slug string, err error)
}

// Sync refreshes the stored registry metadata for every library entry,
// querying at most opts.Limit assets concurrently. Lookup failures are
// collected per asset rather than aborting the pass, only a failure to
// write the library itself does that.
func (s *Store) Sync(ctx context.Context, source MetadataSource, opts SyncOptions) (*SyncResult, error) {
	assets, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit < 1 {
		limit = DefaultSyncLimit
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	result := &SyncResult{}
	now := time.Now()

	for _, asset := range assets {
		g.Go(func() error {
			if opts.OnAssetStart != nil {
				opts.OnAssetStart(asset.Slug)
			}
			info, err := source.Info(gctx, asset.Slug)
			if err != nil {
				slog.WarnContext(gctx, "library sync failed for asset",
					slog.String("slug", asset.Slug),
					slog.String("error", err.Error()))
				mu.Lock()
				result.Failed = append(result.Failed, SyncFailure{Slug: asset.Slug, Err: err})
				mu.Unlock()
				if opts.OnAssetDone != nil {
					opts.OnAssetDone(asset.Slug, err)
				}
				return nil
			}
			if err := s.MarkSynced(gctx, asset.Slug, info.LatestVersion, info.Description, now); err != nil {
				return err
			}
			mu.Lock()
			result.Synced++
			mu.Unlock()
			if opts.OnAssetDone != nil {
				opts.OnAssetDone(asset.Slug, nil)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(result.Failed, func(a, b SyncFailure) int {
		return strings.Compare(a.Slug, b.Slug)
	})
	return result, nil
}
