// Package format renders decoded records as human-readable text blocks.
//
// A block starts with the timestamp and level followed by either the plain
// message or the request line. Request details, status and duration follow on
// indented lines:
//
//	[2023-11-14T22:13:20.123456+00:00]  INFO GET /index.html HTTP/1.1
//	    remote address  203.0.113.7:51234
//	    host            example.com
//	    user-agent      curl/8.4.0
//	    status          200 OK
//	    duration        512.000 us
package format

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/caddy-pretty-print/pkg/record"
)

const (
	indent      = "    "
	ellipsis    = "…"
	timeLayout  = "2006-01-02T15:04:05.000000-07:00"
	labelStatus = "status          "
	labelDur    = "duration        "
)

type Options struct {
	// Color enables ANSI escape sequences.
	Color bool
	// Width is the terminal width used to truncate request lines. Zero or
	// negative disables truncation.
	Width int
}

// Formatter is stateless between calls and safe for concurrent use.
type Formatter struct {
	opts   Options
	styles styles
}

func New(opts Options) *Formatter {
	return &Formatter{opts: opts, styles: newStyles()}
}

func (f *Formatter) Options() Options {
	return f.opts
}

// Format renders rec as one or more newline-joined lines without a trailing
// newline.
func (f *Formatter) Format(rec *record.LogRecord) string {
	body := rec.Message
	if rec.Request != nil {
		body = f.formatRequest(rec.Request)
	}

	lines := []string{fmt.Sprintf("[%s] %s %s", formatTimestamp(rec.Timestamp), f.formatLevel(rec.Level), body)}
	if rec.Status != nil {
		lines = append(lines, indent+labelStatus+f.formatStatus(*rec.Status))
	}
	if rec.Duration != nil {
		lines = append(lines, indent+labelDur+formatDuration(*rec.Duration))
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) paint(style lipgloss.Style, s string) string {
	if !f.opts.Color {
		return s
	}
	return style.Render(s)
}

// formatTimestamp keeps microsecond precision only.
func formatTimestamp(ts float64) string {
	return time.UnixMicro(int64(ts * 1e6)).UTC().Format(timeLayout)
}

func (f *Formatter) formatLevel(level record.Level) string {
	switch level {
	case record.LevelDebug:
		return f.paint(f.styles.yellow, "DEBUG")
	case record.LevelInfo:
		return f.paint(f.styles.cyan, " INFO")
	case record.LevelWarn:
		return f.paint(f.styles.magenta, " WARN")
	case record.LevelError:
		return f.paint(f.styles.red, "ERROR")
	case record.LevelPanic:
		return f.paint(f.styles.reverse, "PANIC")
	case record.LevelFatal:
		return f.paint(f.styles.reverse, "FATAL")
	default:
		return "?????"
	}
}

func (f *Formatter) formatRequest(req *record.LogRequest) string {
	lines := []string{
		fmt.Sprintf("%s %s %s", req.Method, req.URI, req.Version),
		indent + "remote address  " + req.RemoteAddr.String(),
		indent + "host            " + req.Host,
	}
	if ua, ok := req.UserAgent(); ok {
		lines = append(lines, indent+"user-agent      "+ua)
	}

	if f.opts.Width > 0 {
		for i, line := range lines {
			lines[i] = truncate(line, f.opts.Width)
		}
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) formatStatus(status record.StatusCode) string {
	code := status.String()
	switch status.Class() {
	case record.StatusClassInformational, record.StatusClassSuccess:
		code = f.paint(f.styles.green, code)
	case record.StatusClassRedirection:
		code = f.paint(f.styles.cyan, code)
	case record.StatusClassClientError, record.StatusClassServerError:
		code = f.paint(f.styles.red, code)
	}

	if reason := status.Reason(); reason != "" {
		return code + " " + reason
	}
	return code
}

// formatDuration picks the unit that keeps the value readable: us below a
// millisecond, ms below a second, s below a minute, then minutes and seconds.
func formatDuration(seconds float64) string {
	switch {
	case seconds*1e3 < 1:
		return fmt.Sprintf("%.3f us", seconds*1e6)
	case seconds < 1:
		return fmt.Sprintf("%.3f ms", seconds*1e3)
	case seconds < 60 || math.IsInf(seconds, 0) || math.IsNaN(seconds):
		return fmt.Sprintf("%.3f s", seconds)
	default:
		minutes := uint64(math.Floor(seconds / 60))
		return fmt.Sprintf("%d m %.3f s", minutes, math.Mod(seconds, 60))
	}
}

// truncate cuts line to width-2 characters plus an ellipsis when it has more
// than width characters. Length is a rune count, not display width.
func truncate(line string, width int) string {
	if utf8.RuneCountInString(line) <= width {
		return line
	}
	keep := width - 2
	if keep < 0 {
		keep = 0
	}
	runes := []rune(line)
	return string(runes[:keep]) + ellipsis
}
