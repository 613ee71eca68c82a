package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"

	"sopdrop.com/cli/internal/reference/assetref"
)

// Resolve turns a parsed reference into a concrete version string.
//
// Exact references pass through without a registry round trip; a pinned
// version that does not exist surfaces as a NotFoundError from the download
// that follows. Latest and range references are resolved against the
// registry's version list; versions that do not parse as semver are skipped.
// The returned Version metadata is non-nil only when a listing was fetched.
func (c *Client) Resolve(ctx context.Context, ref *assetref.Ref) (string, *Version, error) {
	if ref.IsExact() {
		return ref.Version, nil, nil
	}

	versions, err := c.Versions(ctx, ref.Slug())
	if err != nil {
		return "", nil, fmt.Errorf("listing versions of %q failed: %w", ref.Slug(), err)
	}

	var constraint *semver.Constraints
	if ref.IsRange() {
		if constraint, err = semver.NewConstraint(ref.Version); err != nil {
			return "", nil, fmt.Errorf("parsing version range %q failed: %w", ref.Version, err)
		}
	}

	best := highestMatching(versions, constraint)
	if best == nil {
		if ref.IsRange() {
			return "", nil, &NotFoundError{Resource: fmt.Sprintf("version of %q matching %q", ref.Slug(), ref.Version)}
		}
		return "", nil, &NotFoundError{Resource: fmt.Sprintf("published version of %q", ref.Slug())}
	}

	slog.DebugContext(ctx, "resolved asset version",
		slog.String("slug", ref.Slug()),
		slog.String("requested", ref.Version),
		slog.String("resolved", best.Version))

	return best.Version, best, nil
}

// highestMatching picks the highest semver out of the listed versions,
// optionally restricted by a range constraint. Unparseable versions are
// skipped rather than failing the resolution.
func highestMatching(versions []Version, constraint *semver.Constraints) *Version {
	var best *Version
	var bestParsed *semver.Version
	for i := range versions {
		parsed, err := semver.NewVersion(versions[i].Version)
		if err != nil {
			continue
		}
		if constraint != nil && !constraint.Check(parsed) {
			continue
		}
		if bestParsed == nil || parsed.GreaterThan(bestParsed) {
			best = &versions[i]
			bestParsed = parsed
		}
	}
	return best
}
