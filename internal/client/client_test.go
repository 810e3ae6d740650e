package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelens/internal/analysis"
	apperrors "carelens/internal/errors"
)

func sampleResult() analysis.Result {
	return analysis.Result{
		DetectedTextSummary: "Resident found near bed at 03:10.",
		PossibleCauses:      []string{"Nighttime toilet walk without aid"},
		PreventionStrategies: []analysis.PreventionMeasure{
			{Measure: "Motion-activated night light", Rationale: "Falls cluster at night", Category: analysis.CategoryEnvironment},
		},
		HandoverNote: "Observe gait during night rounds.",
	}
}

func TestAnalyzeSuccessSingleImage(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, AnalyzePath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(sampleResult())
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	res, err := c.Analyze(context.Background(), []string{"aGVsbG8="}, analysis.KindDocument)
	require.NoError(t, err)
	assert.Equal(t, sampleResult(), res)

	assert.Equal(t, "aGVsbG8=", gotBody["image"])
	assert.Nil(t, gotBody["images"])
	assert.Equal(t, "document", gotBody["kind"])
}

func TestAnalyzeMultiImageWireShape(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(sampleResult())
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.Analyze(context.Background(), []string{"YQ==", "Yg=="}, analysis.KindEnvironment)
	require.NoError(t, err)

	assert.Nil(t, gotBody["image"])
	assert.Equal(t, []any{"YQ==", "Yg=="}, gotBody["images"])
	assert.Equal(t, "environment", gotBody["kind"])
}

func TestAnalyzeNoImages(t *testing.T) {
	c := New("http://localhost:1", 0)
	_, err := c.Analyze(context.Background(), nil, analysis.KindDocument)
	assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
}

func TestAnalyzeClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind apperrors.Kind
		wantMsg  string
	}{
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     `{"error":"model rate limit exceeded","code":"rate_limited"}`,
			wantKind: apperrors.KindRateLimited,
			wantMsg:  "wait a minute",
		},
		{
			name:     "missing credential by marker only",
			status:   http.StatusInternalServerError,
			body:     `{"error":"missing API_KEY on server: set GEMINI_API_KEY"}`,
			wantKind: apperrors.KindServerMisconfigured,
			wantMsg:  "GEMINI_API_KEY",
		},
		{
			name:     "route missing",
			status:   http.StatusNotFound,
			body:     "404 page not found",
			wantKind: apperrors.KindEndpointMissing,
			wantMsg:  "start carelens-proxy",
		},
		{
			name:     "generic server failure",
			status:   http.StatusInternalServerError,
			body:     `{"error":"model returned unparseable output"}`,
			wantKind: apperrors.KindUpstream,
			wantMsg:  "unparseable",
		},
		{
			name:     "bad request relayed",
			status:   http.StatusBadRequest,
			body:     `{"error":"empty image payload","code":"bad_request"}`,
			wantKind: apperrors.KindBadRequest,
			wantMsg:  "empty image payload",
		},
		{
			name:     "typed code wins over status",
			status:   http.StatusInternalServerError,
			body:     `{"error":"quota exhausted","code":"rate_limited"}`,
			wantKind: apperrors.KindRateLimited,
			wantMsg:  "wait a minute",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL, 0)
			_, err := c.Analyze(context.Background(), []string{"aGVsbG8="}, analysis.KindDocument)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperrors.KindOf(err))
			assert.Contains(t, apperrors.MessageOf(err), tt.wantMsg)
		})
	}
}

func TestAnalyzeUnreadableSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("I decided to answer in prose today"))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.Analyze(context.Background(), []string{"aGVsbG8="}, analysis.KindDocument)
	assert.Equal(t, apperrors.KindUpstream, apperrors.KindOf(err))
}

func TestAnalyzeTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	c := New(srv.URL, 0)
	_, err := c.Analyze(context.Background(), []string{"aGVsbG8="}, analysis.KindDocument)
	assert.Equal(t, apperrors.KindNetworkUnreachable, apperrors.KindOf(err))
	assert.Contains(t, apperrors.MessageOf(err), "carelens-proxy running")
}

func TestResolveBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8000", ResolveBaseURL(""))
	assert.Equal(t, "https://care.example.org", ResolveBaseURL("https://care.example.org/"))
	assert.Equal(t, "http://10.0.0.5:9000", ResolveBaseURL("  http://10.0.0.5:9000  "))
}

func TestEndpointMissingDeployedCopyDiffers(t *testing.T) {
	local := New("http://localhost:8000", 0)
	remote := New("https://care.example.org", 0)
	lmsg := apperrors.MessageOf(local.endpointMissing())
	rmsg := apperrors.MessageOf(remote.endpointMissing())
	assert.NotEqual(t, lmsg, rmsg)
	assert.Contains(t, rmsg, "not deployed")
}
