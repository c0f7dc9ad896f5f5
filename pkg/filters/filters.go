// Package filters decides which decoded records are written out.
//
// Host patterns use glob syntax: `*` matches any run of characters, `?` a
// single character, and `[...]` (or `[!...]`) a character class. Every other
// character is literal. Matching is case-sensitive and a record matches when
// any pattern matches its request host.
package filters

import (
	"time"

	"github.com/go-go-golems/caddy-pretty-print/pkg/record"
	"github.com/pkg/errors"
)

// Filters is immutable once built and safe to share between goroutines.
type Filters struct {
	strict       bool
	hostPatterns []hostGlob
	since        time.Time
	until        time.Time
}

type Builder struct {
	strict       bool
	hostPatterns []hostGlob
	since        time.Time
	until        time.Time
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) WithStrict(strict bool) *Builder {
	b.strict = strict
	return b
}

// WithHost adds a host glob. Invalid patterns are rejected here so that
// matching never fails.
func (b *Builder) WithHost(pattern string) (*Builder, error) {
	glob, err := compileHostGlob(pattern)
	if err != nil {
		return b, err
	}
	b.hostPatterns = append(b.hostPatterns, glob)
	return b, nil
}

// WithSince drops records logged before t. A zero t clears the bound.
func (b *Builder) WithSince(t time.Time) *Builder {
	b.since = t
	return b
}

// WithUntil drops records logged at or after t. A zero t clears the bound.
func (b *Builder) WithUntil(t time.Time) *Builder {
	b.until = t
	return b
}

func (b *Builder) Build() (*Filters, error) {
	if !b.since.IsZero() && !b.until.IsZero() && !b.since.Before(b.until) {
		return nil, errors.Errorf("empty time window: since %s is not before until %s",
			b.since.Format(time.RFC3339), b.until.Format(time.RFC3339))
	}
	return &Filters{
		strict:       b.strict,
		hostPatterns: append([]hostGlob(nil), b.hostPatterns...),
		since:        b.since,
		until:        b.until,
	}, nil
}

// IsStrict reports whether lines that fail to decode should be dropped
// rather than passed through.
func (f *Filters) IsStrict() bool {
	return f.strict
}

func (f *Filters) HostPatterns() []string {
	out := make([]string, 0, len(f.hostPatterns))
	for _, p := range f.hostPatterns {
		out = append(out, p.raw)
	}
	return out
}

func (f *Filters) Matches(rec *record.LogRecord) bool {
	return f.matchesHost(rec) && f.matchesWindow(rec)
}

func (f *Filters) matchesHost(rec *record.LogRecord) bool {
	if len(f.hostPatterns) == 0 {
		return true
	}
	host, ok := rec.Host()
	if !ok {
		return false
	}
	for _, pattern := range f.hostPatterns {
		if pattern.match(host) {
			return true
		}
	}
	return false
}

func (f *Filters) matchesWindow(rec *record.LogRecord) bool {
	if f.since.IsZero() && f.until.IsZero() {
		return true
	}
	ts := recordTime(rec.Timestamp)
	if !f.since.IsZero() && ts.Before(f.since) {
		return false
	}
	if !f.until.IsZero() && !ts.Before(f.until) {
		return false
	}
	return true
}

func recordTime(ts float64) time.Time {
	return time.UnixMicro(int64(ts * 1e6))
}
