package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"carelens/internal/analysis"
	apperrors "carelens/internal/errors"
)

func TestAnalyzeWithoutKey(t *testing.T) {
	e := New("", "gemini-2.5-flash")
	_, err := e.Analyze(context.Background(), analysis.Request{
		Images: []analysis.Image{{Data: []byte{0xFF, 0xD8}, MIME: "image/jpeg"}},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindServerMisconfigured, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "missing API_KEY")
}

func TestAnalyzeWithoutImages(t *testing.T) {
	e := New("k", "gemini-2.5-flash")
	_, err := e.Analyze(context.Background(), analysis.Request{})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.Kind
	}{
		{"googleapi 429", &googleapi.Error{Code: 429, Message: "quota exceeded"}, apperrors.KindRateLimited},
		{"googleapi 403", &googleapi.Error{Code: 403, Message: "key invalid"}, apperrors.KindServerMisconfigured},
		{"googleapi 401", &googleapi.Error{Code: 401, Message: "unauthorized"}, apperrors.KindServerMisconfigured},
		{"googleapi 500", &googleapi.Error{Code: 500, Message: "internal"}, apperrors.KindUpstream},
		{"wrapped googleapi 429", fmt.Errorf("generate: %w", &googleapi.Error{Code: 429}), apperrors.KindRateLimited},
		{"bare quota string", errors.New("googleapi: Error RESOURCE_EXHAUSTED"), apperrors.KindRateLimited},
		{"bare rate limit string", errors.New("rate limit reached, slow down"), apperrors.KindRateLimited},
		{"plain failure", errors.New("stream closed"), apperrors.KindUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.KindOf(classify(tt.err)))
		})
	}
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	in := apperrors.New(apperrors.KindBadRequest, "no images to analyze")
	assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(classify(in)))
}

func TestClassifyAuthMentionsAPIKey(t *testing.T) {
	err := classify(&googleapi.Error{Code: 403, Message: "forbidden"})
	assert.Contains(t, err.Error(), "API_KEY")
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"googleapi 500", &googleapi.Error{Code: 500}, true},
		{"googleapi 503", &googleapi.Error{Code: 503}, true},
		{"googleapi 429", &googleapi.Error{Code: 429}, false},
		{"googleapi 400", &googleapi.Error{Code: 400}, false},
		{"bare quota", errors.New("quota exceeded for project"), false},
		{"bare network", errors.New("connection reset by peer"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transient(tt.err))
		})
	}
}

func TestFirstText(t *testing.T) {
	assert.Equal(t, "", firstText(nil))
	assert.Equal(t, "", firstText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("  {\"a\":1}  ")}}},
		},
	}
	assert.Equal(t, `{"a":1}`, firstText(resp))
}

func TestResultSchemaShape(t *testing.T) {
	s := resultSchema()
	require.Equal(t, genai.TypeObject, s.Type)
	assert.ElementsMatch(t,
		[]string{"detectedTextSummary", "possibleCauses", "preventionStrategies", "handoverNote"},
		s.Required)

	strategies := s.Properties["preventionStrategies"]
	require.NotNil(t, strategies)
	require.Equal(t, genai.TypeArray, strategies.Type)
	category := strategies.Items.Properties["category"]
	require.NotNil(t, category)
	assert.Equal(t, analysis.Categories(), category.Enum)
}

func TestSystemPromptPerKind(t *testing.T) {
	assert.Contains(t, systemPrompt(analysis.KindDocument), "care documents")
	assert.Contains(t, systemPrompt(analysis.KindEnvironment), "fall risk")
	// unknown kinds read documents, the default surface
	assert.Equal(t, systemPrompt(analysis.KindDocument), systemPrompt(analysis.Kind("")))
}
