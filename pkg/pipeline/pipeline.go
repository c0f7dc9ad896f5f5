// Package pipeline drives the per-line decode, filter and format steps over
// a byte stream.
package pipeline

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/go-go-golems/caddy-pretty-print/pkg/filters"
	"github.com/go-go-golems/caddy-pretty-print/pkg/format"
	"github.com/go-go-golems/caddy-pretty-print/pkg/record"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Outcome int

const (
	// OutcomeEmitted means the record was decoded, matched and formatted.
	OutcomeEmitted Outcome = iota
	// OutcomeFiltered means the record was decoded but did not match.
	OutcomeFiltered
	// OutcomePassedThrough means the line failed to decode and is written as is.
	OutcomePassedThrough
	// OutcomeDropped means the line failed to decode in strict mode.
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmitted:
		return "emitted"
	case OutcomeFiltered:
		return "filtered"
	case OutcomePassedThrough:
		return "passed-through"
	case OutcomeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Writes reports whether the outcome produces output.
func (o Outcome) Writes() bool {
	return o == OutcomeEmitted || o == OutcomePassedThrough
}

type Stats struct {
	LinesRead          int64
	RecordsEmitted     int64
	RecordsFiltered    int64
	LinesPassedThrough int64
	LinesDropped       int64
}

func (s *Stats) add(o Outcome) {
	s.LinesRead++
	switch o {
	case OutcomeEmitted:
		s.RecordsEmitted++
	case OutcomeFiltered:
		s.RecordsFiltered++
	case OutcomePassedThrough:
		s.LinesPassedThrough++
	case OutcomeDropped:
		s.LinesDropped++
	}
}

type Pipeline struct {
	decoder   *record.Decoder
	filters   *filters.Filters
	formatter *format.Formatter
	stats     Stats
}

func New(f *filters.Filters, formatter *format.Formatter) *Pipeline {
	return &Pipeline{
		decoder:   record.NewDecoder(),
		filters:   f,
		formatter: formatter,
	}
}

// Stats returns the counters of the last Run. It must not be called while
// Run is in progress.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// ProcessLine handles one line without its line terminator. The returned text
// has no trailing newline and is only meaningful when the outcome writes.
// ProcessLine does not touch the pipeline's stats and is safe for concurrent use.
func (p *Pipeline) ProcessLine(line string) (string, Outcome, error) {
	rec, err := p.decoder.Decode(line)
	if err != nil {
		if p.filters.IsStrict() {
			return "", OutcomeDropped, err
		}
		return line, OutcomePassedThrough, err
	}
	if !p.filters.Matches(rec) {
		return "", OutcomeFiltered, nil
	}
	return p.formatter.Format(rec), OutcomeEmitted, nil
}

// Run reads r line by line and writes the result of each line to w as soon
// as it is processed, keeping input order. It returns when r is exhausted, a
// write fails or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	p.stats = Stats{}

	g, ctx := errgroup.WithContext(ctx)
	lines := make(chan string, 64)

	g.Go(func() error {
		defer close(lines)
		return readLines(ctx, r, lines)
	})

	g.Go(func() error {
		var lineNumber int64
		for {
			var line string
			var ok bool
			select {
			case <-ctx.Done():
				return ctx.Err()
			case line, ok = <-lines:
			}
			if !ok {
				return nil
			}
			lineNumber++

			out, outcome, err := p.ProcessLine(line)
			p.stats.add(outcome)
			switch {
			case err != nil:
				log.Debug().Int64("line", lineNumber).Err(err).Str("outcome", outcome.String()).Msg("undecodable line")
			case outcome == OutcomeFiltered:
				log.Trace().Int64("line", lineNumber).Msg("record filtered out")
			}
			if !outcome.Writes() {
				continue
			}
			if _, err := io.WriteString(w, out+"\n"); err != nil {
				return errors.Wrap(err, "write output")
			}
		}
	})

	err := g.Wait()
	log.Debug().
		Int64("lines", p.stats.LinesRead).
		Int64("emitted", p.stats.RecordsEmitted).
		Int64("filtered", p.stats.RecordsFiltered).
		Int64("passed_through", p.stats.LinesPassedThrough).
		Int64("dropped", p.stats.LinesDropped).
		Msg("pipeline finished")
	return err
}

// readLines splits on '\n', strips an optional '\r' before it, and also
// delivers a final line that has no terminator.
func readLines(ctx context.Context, r io.Reader, out chan<- string) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return errors.Wrap(err, "read input")
		}
		if line == "" && errors.Is(err, io.EOF) {
			return nil
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		select {
		case out <- line:
		case <-ctx.Done():
			return ctx.Err()
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}
