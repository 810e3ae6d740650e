// Package gemini runs the incident analysis on Google's Gemini models.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"carelens/internal/analysis"
	apperrors "carelens/internal/errors"
	"carelens/internal/util"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string { return "gemini" }

// Analyze sends the photos to the model and decodes the structured result.
// Transient upstream failures are retried in place; rate limits and caller
// mistakes are not.
func (e *Engine) Analyze(ctx context.Context, in analysis.Request) (analysis.Response, error) {
	if e.APIKey == "" {
		// "missing API_KEY" is matched by substring in deployed clients.
		// Reword only together with their classifier.
		return analysis.Response{}, apperrors.New(apperrors.KindServerMisconfigured,
			"missing API_KEY on server: set GEMINI_API_KEY")
	}
	if len(in.Images) == 0 {
		return analysis.Response{}, apperrors.New(apperrors.KindBadRequest, "no images to analyze")
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return analysis.Response{}, classify(err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(analysisTemperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   resultSchema(),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt(in.Kind))},
	}

	parts := make([]genai.Part, 0, len(in.Images)+1)
	parts = append(parts, genai.Text(userDirective))
	for _, img := range in.Images {
		mime := img.MIME
		if mime == "" {
			mime = util.SniffMIME(img.Data)
		}
		parts = append(parts, &genai.Blob{MIMEType: mime, Data: img.Data})
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			if !transient(err) {
				break
			}
			time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
			continue
		}

		txt := util.StripCodeFences(firstText(resp))
		if txt == "" {
			return analysis.Response{}, apperrors.New(apperrors.KindUpstream, "empty model response")
		}

		var out analysis.Result
		if err := json.Unmarshal([]byte(txt), &out); err != nil {
			return analysis.Response{}, apperrors.Wrap(apperrors.KindUpstream,
				"model returned unparseable output", err)
		}
		return analysis.Response{Result: out, Raw: json.RawMessage(txt)}, nil
	}
	return analysis.Response{}, classify(lastErr)
}

// classify maps SDK errors onto the wire taxonomy. The status code of
// *googleapi.Error is authoritative; message sniffing only covers errors
// that arrive as bare strings.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var app *apperrors.AppError
	if errors.As(err, &app) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 429:
			return apperrors.Wrap(apperrors.KindRateLimited, "model rate limit exceeded", err)
		case gerr.Code == 401 || gerr.Code == 403:
			return apperrors.Wrap(apperrors.KindServerMisconfigured,
				"missing API_KEY on server or key rejected", err)
		}
		return apperrors.Wrap(apperrors.KindUpstream, gerr.Message, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") {
		return apperrors.Wrap(apperrors.KindRateLimited, "model rate limit exceeded", err)
	}
	return apperrors.Wrap(apperrors.KindUpstream, err.Error(), err)
}

// transient reports whether a retry could plausibly succeed. Rate limits
// are excluded: retrying into a 429 only deepens the hole.
func transient(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= 500
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") {
		return false
	}
	return true
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return strings.TrimSpace(string(t))
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
