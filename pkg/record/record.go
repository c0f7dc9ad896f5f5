package record

import (
	"net/http"
	"net/netip"
)

// LogRecord is one decoded access log line.
type LogRecord struct {
	// Timestamp is seconds since the Unix epoch.
	Timestamp float64
	Level     Level
	Message   string
	// Request is nil for log lines that are not HTTP transactions.
	Request *LogRequest
	// Duration is the request handling latency in seconds, nil when absent.
	Duration *float64
	// Status is nil when the field was missing or malformed.
	Status *StatusCode
}

type LogRequest struct {
	RemoteAddr netip.AddrPort
	Method     string
	Host       string
	URI        string
	Version    Version
	Headers    http.Header
}

// UserAgent returns the first User-Agent value, if any.
func (r *LogRequest) UserAgent() (string, bool) {
	if r == nil || r.Headers == nil {
		return "", false
	}
	values := r.Headers.Values("User-Agent")
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Host returns the request host, or false for records without a request.
func (r *LogRecord) Host() (string, bool) {
	if r.Request == nil {
		return "", false
	}
	return r.Request.Host, true
}
