// Package util holds small helpers shared by the proxy and the clients:
// base64 payload decoding, MIME resolution and model-output cleanup.
package util

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// DecodeBase64MaybeDataURL decodes s as base64 image bytes. A leading
// data URL envelope ("data:image/jpeg;base64,....") is tolerated and its
// MIME type returned as a hint; bare payloads return an empty hint.
// Both standard and URL-safe alphabets are accepted because mobile
// WebViews disagree on which one FileReader produces.
func DecodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	hint := ""
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			meta := s[len("data:"):i]
			if j := strings.Index(meta, ";"); j >= 0 {
				meta = meta[:j]
			}
			hint = strings.TrimSpace(meta)
			s = s[i+1:]
		}
	}
	s = compactBase64(s)
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, hint, nil
	}
	if data2, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
		return data2, hint, nil
	}
	if data3, err3 := base64.RawStdEncoding.DecodeString(s); err3 == nil {
		return data3, hint, nil
	}
	return nil, "", err
}

// compactBase64 removes the whitespace some encoders insert when
// line-wrapping long payloads.
func compactBase64(s string) string {
	if !strings.ContainsAny(s, " \t\r\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\r', '\n':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PickMIME resolves the content type to send upstream: an explicit value
// wins, then the data URL hint, then content sniffing of the bytes.
func PickMIME(explicit, hint string, data []byte) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if hint = strings.TrimSpace(hint); hint != "" {
		return hint
	}
	return SniffMIME(data)
}

// SniffMIME detects an image content type from magic bytes, falling back
// to image/jpeg when detection returns something that is not an image.
// The fallback matters: sending application/octet-stream upstream gets
// the whole request rejected.
func SniffMIME(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}

// StripCodeFences removes a Markdown code fence wrapper from model
// output. Models fenced JSON long before structured output modes, and
// still do under load, so the cleanup stays.
func StripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.Index(t, "\n"); i >= 0 {
		// drop the info string ("json", "JSON", ...)
		t = t[i+1:]
	}
	if i := strings.LastIndex(t, "```"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
