// Package client calls the analysis proxy and turns its responses into
// typed results or typed failures. It never retries on its own; retry is
// a user action.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"carelens/internal/analysis"
	apperrors "carelens/internal/errors"
)

const (
	AnalyzePath    = "/api/analyze"
	DefaultTimeout = 120 * time.Second

	maxResponseBytes = 4 << 20
)

// ResolveBaseURL picks the proxy origin: an explicit override wins,
// otherwise the local development default.
func ResolveBaseURL(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://localhost:8000"
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Log     *logrus.Entry
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: ResolveBaseURL(baseURL),
		HTTP:    &http.Client{Timeout: timeout},
		Log:     logrus.WithField("component", "client"),
	}
}

// request mirrors the proxy's wire contract: "image" for one photo,
// "images" for several.
type request struct {
	Image  string   `json:"image,omitempty"`
	Images []string `json:"images,omitempty"`
	Kind   string   `json:"kind,omitempty"`
}

type wireError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Analyze posts the base64 payloads and returns the parsed result.
// Exactly one HTTP call per invocation.
func (c *Client) Analyze(ctx context.Context, images []string, kind analysis.Kind) (analysis.Result, error) {
	if len(images) == 0 {
		return analysis.Result{}, apperrors.New(apperrors.KindBadRequest, "nothing to analyze: stage at least one photo")
	}

	body := request{Kind: string(kind)}
	if len(images) == 1 {
		body.Image = images[0]
	} else {
		body.Images = images
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return analysis.Result{}, apperrors.Wrap(apperrors.KindBadRequest, "encode request", err)
	}

	endpoint := c.BaseURL + AnalyzePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return analysis.Result{}, apperrors.Wrap(apperrors.KindBadRequest, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.Log.WithFields(logrus.Fields{"images": len(images), "kind": kind}).Debug("posting analysis request")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return analysis.Result{}, c.transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return analysis.Result{}, apperrors.Wrap(apperrors.KindNetworkUnreachable, "read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return analysis.Result{}, c.classify(resp.StatusCode, data)
	}

	var out analysis.Result
	if err := json.Unmarshal(data, &out); err != nil {
		return analysis.Result{}, apperrors.Wrap(apperrors.KindUpstream, "server returned an unreadable result", err)
	}
	return out, nil
}

func (c *Client) transportError(err error) error {
	if c.isLocal() {
		return apperrors.Wrap(apperrors.KindNetworkUnreachable,
			fmt.Sprintf("could not reach %s: is carelens-proxy running?", c.BaseURL), err)
	}
	return apperrors.Wrap(apperrors.KindNetworkUnreachable,
		fmt.Sprintf("could not reach %s: check your connection", c.BaseURL), err)
}

// classify maps a non-200 answer to the error taxonomy. A typed "code"
// in the body is authoritative; status and the API_KEY marker substring
// cover older proxies that only send "error".
func (c *Client) classify(status int, body []byte) error {
	var wire wireError
	_ = json.Unmarshal(body, &wire)
	msg := strings.TrimSpace(wire.Error)
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	if wire.Code != "" {
		switch apperrors.Kind(wire.Code) {
		case apperrors.KindRateLimited:
			return rateLimited(msg)
		case apperrors.KindServerMisconfigured:
			return misconfigured(msg)
		case apperrors.KindBadRequest:
			return &apperrors.AppError{Kind: apperrors.KindBadRequest, Message: msg, StatusCode: status}
		}
	}

	switch {
	case status == http.StatusTooManyRequests:
		return rateLimited(msg)
	case status == http.StatusNotFound:
		return c.endpointMissing()
	case status == http.StatusInternalServerError && strings.Contains(msg, "API_KEY"):
		return misconfigured(msg)
	}

	if msg == "" {
		msg = fmt.Sprintf("analysis failed with status %d", status)
	}
	return &apperrors.AppError{Kind: apperrors.KindUpstream, Message: msg, StatusCode: status}
}

func rateLimited(detail string) error {
	msg := "the analysis service is rate limited right now: wait a minute and try again"
	if detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, detail)
	}
	return apperrors.New(apperrors.KindRateLimited, msg)
}

func misconfigured(detail string) error {
	msg := "the proxy has no model credential: set GEMINI_API_KEY where it runs"
	if detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, detail)
	}
	return apperrors.New(apperrors.KindServerMisconfigured, msg)
}

func (c *Client) endpointMissing() error {
	if c.isLocal() {
		return apperrors.New(apperrors.KindEndpointMissing,
			fmt.Sprintf("no analysis route at %s: start carelens-proxy first", c.BaseURL))
	}
	return apperrors.New(apperrors.KindEndpointMissing,
		fmt.Sprintf("no analysis route at %s: the proxy is not deployed there", c.BaseURL))
}

func (c *Client) isLocal() bool {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
