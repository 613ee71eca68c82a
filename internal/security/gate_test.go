package security

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sopdrop.com/cli/internal/pack"
	"sopdrop.com/cli/internal/registry"
)

type scriptPrompter struct {
	answer   bool
	err      error
	asked    int
	question string
}

func (p *scriptPrompter) Confirm(_ context.Context, question string) (bool, error) {
	p.asked++
	p.question = question
	return p.answer, p.err
}

func popularAsset() *registry.Asset {
	return &registry.Asset{
		Slug:      "acme/scatter",
		Owner:     "acme",
		Name:      "scatter",
		Kind:      registry.KindNode,
		Downloads: 5200,
		Publisher: registry.Publisher{Username: "acme", EmailVerified: true},
	}
}

func TestEvaluate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		review Review
		codes  []string
	}{
		{
			name:   "established node asset is clean",
			review: Review{Asset: popularAsset(), Package: &pack.Package{}, Kind: pack.KindNode},
			codes:  nil,
		},
		{
			name: "python sops are flagged",
			review: Review{
				Asset:   popularAsset(),
				Package: &pack.Package{Metadata: pack.Metadata{HasPythonSOPs: true}},
				Kind:    pack.KindNode,
			},
			codes: []string{CodePythonSOPs},
		},
		{
			name: "external hda dependencies are flagged",
			review: Review{
				Asset:   popularAsset(),
				Package: &pack.Package{Metadata: pack.Metadata{HasHDADependencies: true}},
				Kind:    pack.KindNode,
			},
			codes: []string{CodeHDADependencies},
		},
		{
			name: "few downloads are flagged",
			review: func() Review {
				asset := popularAsset()
				asset.Downloads = 3
				return Review{Asset: asset, Package: &pack.Package{}, Kind: pack.KindNode}
			}(),
			codes: []string{CodeLowDownloads},
		},
		{
			name: "unverified publisher is flagged",
			review: func() Review {
				asset := popularAsset()
				asset.Publisher.EmailVerified = false
				return Review{Asset: asset, Package: &pack.Package{}, Kind: pack.KindNode}
			}(),
			codes: []string{CodeUnverifiedEmail},
		},
		{
			name:   "hda installs always warn",
			review: Review{Asset: popularAsset(), Kind: pack.KindHDA},
			codes:  []string{CodeHDAInstall},
		},
		{
			name: "warnings accumulate",
			review: func() Review {
				asset := popularAsset()
				asset.Downloads = 0
				asset.Publisher.EmailVerified = false
				return Review{
					Asset:   asset,
					Package: &pack.Package{Metadata: pack.Metadata{HasPythonSOPs: true, HasHDADependencies: true}},
					Kind:    pack.KindNode,
				}
			}(),
			codes: []string{CodePythonSOPs, CodeHDADependencies, CodeLowDownloads, CodeUnverifiedEmail},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			warnings := Evaluate(tc.review)
			codes := make([]string, 0, len(warnings))
			for _, w := range warnings {
				codes = append(codes, w.Code)
			}
			if tc.codes == nil {
				assert.Empty(t, codes)
			} else {
				assert.Equal(t, tc.codes, codes)
			}
		})
	}
}

func TestGate_Approve_CleanAssetNeedsNoPrompt(t *testing.T) {
	prompter := &scriptPrompter{}
	gate := New(prompter)

	err := gate.Approve(t.Context(), Review{Asset: popularAsset(), Package: &pack.Package{}, Kind: pack.KindNode}, false)
	require.NoError(t, err)
	assert.Zero(t, prompter.asked)
}

func TestGate_Approve_WarningsPrompt(t *testing.T) {
	review := Review{
		Asset:   popularAsset(),
		Package: &pack.Package{Metadata: pack.Metadata{HasPythonSOPs: true}},
		Kind:    pack.KindNode,
	}

	t.Run("accepted", func(t *testing.T) {
		prompter := &scriptPrompter{answer: true}
		err := New(prompter).Approve(t.Context(), review, false)
		require.NoError(t, err)
		assert.Equal(t, 1, prompter.asked)
		assert.Contains(t, prompter.question, "Python SOPs")
		assert.Contains(t, prompter.question, "acme/scatter")
	})

	t.Run("declined", func(t *testing.T) {
		prompter := &scriptPrompter{answer: false}
		err := New(prompter).Approve(t.Context(), review, false)
		require.ErrorIs(t, err, ErrDeclined)
	})

	t.Run("prompt failure propagates", func(t *testing.T) {
		boom := errors.New("terminal gone")
		prompter := &scriptPrompter{err: boom}
		err := New(prompter).Approve(t.Context(), review, false)
		require.ErrorIs(t, err, boom)
	})
}

func TestGate_Approve_TrustSkipsPrompt(t *testing.T) {
	prompter := &scriptPrompter{}
	review := Review{
		Asset:   popularAsset(),
		Package: &pack.Package{Metadata: pack.Metadata{HasPythonSOPs: true}},
		Kind:    pack.KindNode,
	}

	err := New(prompter).Approve(t.Context(), review, true)
	require.NoError(t, err)
	assert.Zero(t, prompter.asked)
}

func TestGate_Approve_OwnAssetSkipsPrompt(t *testing.T) {
	prompter := &scriptPrompter{}
	review := Review{
		Asset:    popularAsset(),
		Kind:     pack.KindHDA,
		Username: "acme",
	}

	err := New(prompter).Approve(t.Context(), review, false)
	require.NoError(t, err)
	assert.Zero(t, prompter.asked)
}

func TestGate_Approve_HDAAlwaysPrompts(t *testing.T) {
	prompter := &scriptPrompter{answer: true}
	review := Review{Asset: popularAsset(), Kind: pack.KindHDA, Username: "someoneelse"}

	err := New(prompter).Approve(t.Context(), review, false)
	require.NoError(t, err)
	assert.Equal(t, 1, prompter.asked, "a popular verified HDA still needs an explicit yes")
}

func TestGate_Approve_NoPrompterRefuses(t *testing.T) {
	review := Review{
		Asset:   popularAsset(),
		Package: &pack.Package{Metadata: pack.Metadata{HasPythonSOPs: true}},
		Kind:    pack.KindNode,
	}

	err := New(nil).Approve(t.Context(), review, false)
	require.ErrorIs(t, err, ErrDeclined)
	assert.Contains(t, err.Error(), "--trust")
}
