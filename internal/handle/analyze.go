package handle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"carelens/internal/analysis"
	apperrors "carelens/internal/errors"
	"carelens/internal/util"
)

// AnalyzeRequest accepts both wire variants: "image" for one photo,
// "images" for an ordered batch. "kind" is optional and defaults to
// document reading.
type AnalyzeRequest struct {
	Image  string   `json:"image"`
	Images []string `json:"images"`
	Kind   string   `json:"kind"`
}

// Analyze is the one proxy route: validate, decode, call the model,
// relay. All request validation happens before any upstream traffic.
func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, r, &apperrors.AppError{
			Kind:       apperrors.KindBadRequest,
			Message:    "POST only",
			StatusCode: http.StatusMethodNotAllowed,
		})
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.KindBadRequest, "bad json: "+err.Error(), err))
		return
	}

	images, err := decodeImages(req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	kind, err := parseKind(req.Kind)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	start := time.Now()
	resp, err := h.eng.Analyze(ctx, analysis.Request{Images: images, Kind: kind})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"engine":     h.eng.Name(),
		"images":     len(images),
		"kind":       kind,
		"elapsed":    time.Since(start).Round(time.Millisecond).String(),
		"request_id": RequestID(r.Context()),
	}).Info("analysis complete")

	// Relay the model's own bytes, not a re-marshal of them.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Raw)
}

func decodeImages(req AnalyzeRequest) ([]analysis.Image, error) {
	payloads := req.Images
	if req.Image != "" {
		payloads = append([]string{req.Image}, payloads...)
	}
	if len(payloads) == 0 {
		return nil, apperrors.New(apperrors.KindBadRequest, "empty image payload")
	}

	images := make([]analysis.Image, 0, len(payloads))
	for i, p := range payloads {
		data, hint, err := util.DecodeBase64MaybeDataURL(p)
		if err != nil || len(data) == 0 {
			return nil, apperrors.New(apperrors.KindBadRequest,
				fmt.Sprintf("bad image payload at index %d", i))
		}
		images = append(images, analysis.Image{Data: data, MIME: util.PickMIME("", hint, data)})
	}
	return images, nil
}

func parseKind(s string) (analysis.Kind, error) {
	switch analysis.Kind(s) {
	case "", analysis.KindDocument:
		return analysis.KindDocument, nil
	case analysis.KindEnvironment:
		return analysis.KindEnvironment, nil
	}
	return "", apperrors.New(apperrors.KindBadRequest,
		fmt.Sprintf("unknown kind %q: use %q or %q", s, analysis.KindDocument, analysis.KindEnvironment))
}

// deadline resolves the per-request timeout: header beats query beats the
// configured default.
func (h *Handle) deadline(r *http.Request) time.Duration {
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return h.timeout
}
