package pipeline

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-go-golems/caddy-pretty-print/pkg/filters"
	"github.com/go-go-golems/caddy-pretty-print/pkg/format"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	plainLine  = `{"ts":1700000000.123456,"level":"info","msg":"hi"}`
	plainOut   = `[2023-11-14T22:13:20.123456+00:00]  INFO hi`
	accessLine = `{"level":"error","ts":1700000000,"msg":"handled request","request":{"remote_ip":"10.1.2.3",` +
		`"remote_port":"40000","proto":"HTTP/2.0","method":"POST","host":"api.example.com","uri":"/v1/items",` +
		`"headers":{"User-Agent":["test/1.0"]}},"duration":1.5,"status":502}`
)

var accessOut = strings.Join([]string{
	"[2023-11-14T22:13:20.000000+00:00] ERROR POST /v1/items HTTP/2.0",
	"    remote address  10.1.2.3:40000",
	"    host            api.example.com",
	"    user-agent      test/1.0",
	"    status          502 Bad Gateway",
	"    duration        1.500 s",
}, "\n")

func newPipeline(t *testing.T, strict bool, hosts ...string) *Pipeline {
	t.Helper()
	b := filters.NewBuilder().WithStrict(strict)
	for _, h := range hosts {
		_, err := b.WithHost(h)
		require.NoError(t, err)
	}
	f, err := b.Build()
	require.NoError(t, err)
	return New(f, format.New(format.Options{}))
}

func run(t *testing.T, p *Pipeline, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, p.Run(context.Background(), strings.NewReader(input), &out))
	return out.String()
}

func TestRun_EndToEnd(t *testing.T) {
	p := newPipeline(t, false)
	got := run(t, p, plainLine+"\n"+accessLine+"\n")
	require.Equal(t, plainOut+"\n"+accessOut+"\n", got)

	stats := p.Stats()
	require.Equal(t, int64(2), stats.LinesRead)
	require.Equal(t, int64(2), stats.RecordsEmitted)
}

func TestRun_LenientPassesThroughUnchanged(t *testing.T) {
	p := newPipeline(t, false)
	raw := `  not json at all {"ts": `
	got := run(t, p, raw+"\n"+plainLine+"\n"+`{"ts":1,"level":"verbose","msg":"x"}`+"\n")
	require.Equal(t, raw+"\n"+plainOut+"\n"+`{"ts":1,"level":"verbose","msg":"x"}`+"\n", got)
	require.Equal(t, int64(2), p.Stats().LinesPassedThrough)
}

func TestRun_StrictDropsUndecodable(t *testing.T) {
	p := newPipeline(t, true)
	got := run(t, p, "garbage\n"+plainLine+"\n\n")
	require.Equal(t, plainOut+"\n", got)

	stats := p.Stats()
	require.Equal(t, int64(3), stats.LinesRead)
	require.Equal(t, int64(2), stats.LinesDropped)
}

func TestRun_HostFilter(t *testing.T) {
	p := newPipeline(t, false, "*.example.com")
	got := run(t, p, plainLine+"\n"+accessLine+"\n")
	require.Equal(t, accessOut+"\n", got)
	require.Equal(t, int64(1), p.Stats().RecordsFiltered)

	p = newPipeline(t, false, "other.test")
	require.Empty(t, run(t, p, plainLine+"\n"+accessLine+"\n"))
}

func TestRun_FilteredModeStillPassesThroughGarbage(t *testing.T) {
	p := newPipeline(t, false, "nothing.test")
	require.Equal(t, "garbage\n", run(t, p, "garbage\n"+accessLine+"\n"))
}

func TestRun_LineEndings(t *testing.T) {
	p := newPipeline(t, false)
	got := run(t, p, "a\r\nb\n"+plainLine)
	require.Equal(t, "a\nb\n"+plainOut+"\n", got)
}

func TestRun_EmptyInput(t *testing.T) {
	p := newPipeline(t, false)
	require.Empty(t, run(t, p, ""))
	require.Equal(t, Stats{}, p.Stats())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRun_WriteErrorAborts(t *testing.T) {
	p := newPipeline(t, false)
	err := p.Run(context.Background(), strings.NewReader(plainLine+"\n"+plainLine+"\n"), failingWriter{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "write output")
}

func TestRun_CancelledContext(t *testing.T) {
	p := newPipeline(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := p.Run(ctx, strings.NewReader(strings.Repeat(plainLine+"\n", 1000)), &out)
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessLine(t *testing.T) {
	p := newPipeline(t, false)

	out, outcome, err := p.ProcessLine(plainLine)
	require.NoError(t, err)
	require.Equal(t, OutcomeEmitted, outcome)
	require.Equal(t, plainOut, out)

	out, outcome, err = p.ProcessLine("{}")
	require.Error(t, err)
	require.Equal(t, OutcomePassedThrough, outcome)
	require.Equal(t, "{}", out)
	require.True(t, outcome.Writes())

	strict := newPipeline(t, true)
	_, outcome, err = strict.ProcessLine("{}")
	require.Error(t, err)
	require.Equal(t, OutcomeDropped, outcome)
	require.False(t, outcome.Writes())
}
