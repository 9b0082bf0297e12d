package logging

import (
	"net/http"
	"time"
)

// DebugTransport logs method, URL, status and latency of each request
type DebugTransport struct {
	base   http.RoundTripper
	logger Logger
}

// NewDebugTransport wraps base; a nil base means http.DefaultTransport
func NewDebugTransport(base http.RoundTripper, logger Logger) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base, logger: logger}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := t.logger.WithContext(req.Context())

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		logger.Debug("HTTP request failed",
			F("method", req.Method),
			F("url", req.URL.Redacted()),
			F("duration_ms", time.Since(start).Milliseconds()),
			F("error", err.Error()),
		)
		return nil, err
	}

	logger.Debug("HTTP request",
		F("method", req.Method),
		F("url", req.URL.Redacted()),
		F("status", resp.StatusCode),
		F("duration_ms", time.Since(start).Milliseconds()),
	)
	return resp, nil
}
