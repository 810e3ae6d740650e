// Package httpserver wires the proxy routes behind the middleware every
// browser caller needs: wildcard CORS and per-request ids.
package httpserver

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"carelens/internal/handle"
)

// New builds the full handler chain. Kept separate from Start so tests
// can drive the exact production mux in-process.
func New(h *handle.Handle) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/analyze", h.Analyze)
	return cors(withRequestID(mux))
}

func Start(addr string, h *handle.Handle) error {
	logrus.WithField("addr", addr).Info("carelens-proxy listening")
	return http.ListenAndServe(addr, New(h))
}

// cors answers for a single-tenant tool: any origin may call, and
// preflight gets 200 with no body.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Timeout")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := handle.WithRequestID(r.Context(), r.Header.Get("X-Request-Id"))
		id := handle.RequestID(ctx)
		w.Header().Set("X-Request-Id", id)
		logrus.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": id,
		}).Debug("request received")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
