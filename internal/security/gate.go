package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sopdrop.com/cli/internal/pack"
	"sopdrop.com/cli/internal/registry"
)

// ErrDeclined is returned when the user rejects an asset at the prompt
// or when confirmation is required but cannot be obtained.
var ErrDeclined = errors.New("installation declined")

// LowDownloadThreshold is the download count below which an asset is
// flagged as barely exercised by other users.
const LowDownloadThreshold = 10

const (
	CodePythonSOPs      = "python-sops"
	CodeHDADependencies = "hda-dependencies"
	CodeLowDownloads    = "low-downloads"
	CodeUnverifiedEmail = "unverified-email"
	CodeHDAInstall      = "hda-install"
)

// Warning flags a property of an asset the user should see before the
// asset reaches their scene.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Review is the input to the gate: the asset as the registry describes
// it, the decoded package when the payload is a node package, and the
// authenticated username when known.
type Review struct {
	Asset    *registry.Asset
	Package  *pack.Package
	Kind     pack.Kind
	Username string
}

// Evaluate collects the warnings for an asset. HDA installs always
// carry the elevated install warning, an asset definition runs with
// full session privileges once loaded.
func Evaluate(review Review) []Warning {
	var warnings []Warning
	if review.Kind == pack.KindHDA {
		warnings = append(warnings, Warning{
			Code:    CodeHDAInstall,
			Message: "HDAs execute with full Houdini session privileges once installed",
		})
	}
	if p := review.Package; p != nil {
		if p.Metadata.HasPythonSOPs {
			warnings = append(warnings, Warning{
				Code:    CodePythonSOPs,
				Message: "contains Python SOPs that run arbitrary code when cooked",
			})
		}
		if p.Metadata.HasHDADependencies {
			warnings = append(warnings, Warning{
				Code:    CodeHDADependencies,
				Message: "depends on HDAs that are not part of this package",
			})
		}
	}
	if a := review.Asset; a != nil {
		if a.Downloads < LowDownloadThreshold {
			warnings = append(warnings, Warning{
				Code:    CodeLowDownloads,
				Message: fmt.Sprintf("only %d downloads so far", a.Downloads),
			})
		}
		if !a.Publisher.EmailVerified {
			warnings = append(warnings, Warning{
				Code:    CodeUnverifiedEmail,
				Message: fmt.Sprintf("publisher %q has not verified their email address", a.Publisher.Username),
			})
		}
	}
	return warnings
}

// Gate decides whether an asset may be handed to the host. Warnings
// are always logged, even when the prompt is skipped.
type Gate struct {
	prompter Prompter
}

func New(prompter Prompter) *Gate {
	return &Gate{prompter: prompter}
}

// Approve runs the gate for one asset. The prompt is skipped for the
// user's own assets and when trust is set, everything else with a
// warning needs an interactive yes.
func (g *Gate) Approve(ctx context.Context, review Review, trust bool) error {
	slug := "unknown asset"
	if review.Asset != nil {
		slug = review.Asset.Slug
	}

	warnings := Evaluate(review)
	for _, w := range warnings {
		slog.WarnContext(ctx, "asset warning",
			slog.String("slug", slug),
			slog.String("code", w.Code),
			slog.String("detail", w.Message))
	}
	if len(warnings) == 0 {
		return nil
	}

	if review.Asset != nil && review.Username != "" && review.Asset.Owner == review.Username {
		slog.DebugContext(ctx, "skipping confirmation for own asset", slog.String("slug", slug))
		return nil
	}
	if trust {
		slog.DebugContext(ctx, "trust set, skipping confirmation", slog.String("slug", slug))
		return nil
	}
	if g.prompter == nil {
		return fmt.Errorf("%s needs confirmation but no prompt is available, rerun with --trust to accept the warnings: %w", slug, ErrDeclined)
	}

	ok, err := g.prompter.Confirm(ctx, question(review, warnings))
	if err != nil {
		return fmt.Errorf("confirming %s: %w", slug, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", slug, ErrDeclined)
	}
	return nil
}

func question(review Review, warnings []Warning) string {
	var b strings.Builder
	for _, w := range warnings {
		fmt.Fprintf(&b, "  - %s\n", w.Message)
	}
	publisher := "an unknown publisher"
	slug := "this asset"
	if review.Asset != nil {
		publisher = review.Asset.Publisher.Username
		slug = review.Asset.Slug
	}
	fmt.Fprintf(&b, "install %s by %s anyway?", slug, publisher)
	return b.String()
}
