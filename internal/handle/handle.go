// Package handle implements the proxy's HTTP surface.
package handle

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"carelens/internal/analysis"
	apperrors "carelens/internal/errors"
)

type Handle struct {
	eng     analysis.Engine
	timeout time.Duration
	log     *logrus.Entry
}

func New(eng analysis.Engine, timeout time.Duration) *Handle {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Handle{
		eng:     eng,
		timeout: timeout,
		log:     logrus.WithField("component", "handle"),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders the error contract: {"error": ..., "code": ...}.
// The code field is what clients classify on; the message is display copy.
func (h *Handle) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusOf(err)
	kind := apperrors.KindOf(err)
	h.log.WithFields(logrus.Fields{
		"status":     status,
		"code":       kind,
		"request_id": RequestID(r.Context()),
	}).WithError(err).Warn("analyze request failed")
	writeJSON(w, status, map[string]string{
		"error": apperrors.MessageOf(err),
		"code":  string(kind),
	})
}
