package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelens/internal/analysis"
	apperrors "carelens/internal/errors"
)

func TestRenderResult(t *testing.T) {
	res := analysis.Result{
		DetectedTextSummary: "Fall at 03:10, resident found beside bed.",
		PossibleCauses:      []string{"Slippery floor", "No night light"},
		PreventionStrategies: []analysis.PreventionMeasure{
			{Measure: "Install night light", Rationale: "Falls cluster at night", Category: analysis.CategoryEnvironment},
			{Measure: "Review sedatives", Rationale: "Dose noted as doubled", Category: analysis.CategoryMedication},
		},
		HandoverNote: "Please observe gait on night rounds.",
	}

	out := renderResult(res)
	assert.Contains(t, out, "Fall at 03:10")
	assert.Contains(t, out, "• Slippery floor")
	assert.Contains(t, out, "Install night light")
	assert.Contains(t, out, "(Medication)")
	assert.Contains(t, out, "Please observe gait")
}

func TestRenderResultSkipsEmptySections(t *testing.T) {
	out := renderResult(analysis.Result{DetectedTextSummary: "Only a summary."})
	assert.Contains(t, out, "Only a summary.")
	assert.NotContains(t, out, "Possible causes")
	assert.NotContains(t, out, "Prevention")
	assert.NotContains(t, out, "Handover")
}

func TestRenderResultEscapesMarkdown(t *testing.T) {
	out := renderResult(analysis.Result{DetectedTextSummary: "dose_total *daily* [chart]"})
	assert.Contains(t, out, `dose\_total`)
	assert.Contains(t, out, `\*daily\*`)
	assert.Contains(t, out, `\[chart]`)
}

func TestGuidancePerKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", apperrors.New(apperrors.KindRateLimited, "x"), "rate limited"},
		{"misconfigured", apperrors.New(apperrors.KindServerMisconfigured, "x"), "GEMINI_API_KEY"},
		{"endpoint missing", apperrors.New(apperrors.KindEndpointMissing, "x"), "carelens-proxy"},
		{"network", apperrors.New(apperrors.KindNetworkUnreachable, "x"), "reach the proxy"},
		{"generic", apperrors.New(apperrors.KindUpstream, "model exploded"), "model exploded"},
	}
	seen := map[string]bool{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := guidance(tt.err)
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "/retry", "every guidance offers the retry path")
			firstLine := strings.SplitN(out, "\n", 2)[0]
			assert.False(t, seen[firstLine], "guidance wording must differ per category")
			seen[firstLine] = true
		})
	}
}

func TestKindFromString(t *testing.T) {
	k, err := kindFromString("document")
	require.NoError(t, err)
	assert.Equal(t, analysis.KindDocument, k)

	k, err = kindFromString(" environment ")
	require.NoError(t, err)
	assert.Equal(t, analysis.KindEnvironment, k)

	_, err = kindFromString("garden")
	assert.Error(t, err)
}
