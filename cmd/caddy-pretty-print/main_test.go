package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/caddy-pretty-print/pkg/record"
	"github.com/go-go-golems/caddy-pretty-print/pkg/terminal"
	"github.com/stretchr/testify/require"
)

const (
	plainLine = `{"ts":1700000000.123456,"level":"info","msg":"hi"}`
	plainOut  = `[2023-11-14T22:13:20.123456+00:00]  INFO hi`
	hostLine  = `{"ts":1700000000,"level":"info","msg":"handled request","request":{"remote_ip":"10.0.0.1",` +
		`"remote_port":"1234","method":"GET","host":"a.example.com","uri":"/","proto":"HTTP/1.1","headers":{}}}`
)

func mustDecode(t *testing.T, line string) *record.LogRecord {
	t.Helper()
	rec, err := record.Decode(line)
	require.NoError(t, err)
	return rec
}

func execute(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	cmd, err := newRootCmd()
	require.NoError(t, err)

	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	base := []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--color=never", "--width=-1"}
	cmd.SetArgs(append(base, args...))
	err = cmd.Execute()
	return out.String(), err
}

func TestRoot_PassThroughAndFormat(t *testing.T) {
	out, err := execute(t, "starting up\n"+plainLine+"\n")
	require.NoError(t, err)
	require.Equal(t, "starting up\n"+plainOut+"\n", out)
}

func TestRoot_Strict(t *testing.T) {
	out, err := execute(t, "starting up\n"+plainLine+"\n", "--strict")
	require.NoError(t, err)
	require.Equal(t, plainOut+"\n", out)
}

func TestRoot_HostFilter(t *testing.T) {
	out, err := execute(t, plainLine+"\n"+hostLine+"\n", "--host", "b.example.com", "--host", "a.*")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "[2023-11-14T22:13:20.000000+00:00]  INFO GET / HTTP/1.1\n"))
	require.NotContains(t, out, " hi\n")
}

func TestRoot_InvalidHostPatternFails(t *testing.T) {
	out, err := execute(t, plainLine+"\n", "--host", "[oops")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid host filter")
	require.Empty(t, out)
}

func TestRoot_InvalidColorFails(t *testing.T) {
	_, err := execute(t, "", "--color", "rainbow")
	require.Error(t, err)
}

func TestRoot_InputFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "access.log")
	require.NoError(t, os.WriteFile(p, []byte(plainLine+"\n"), 0o644))

	out, err := execute(t, "ignored stdin\n", "--input", p)
	require.NoError(t, err)
	require.Equal(t, plainOut+"\n", out)
}

func TestRoot_ConfigFileDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("strict: true\nhosts: [\"a.*\"]\n"), 0o644))

	out, err := execute(t, "junk\n"+plainLine+"\n"+hostLine+"\n", "--config", cfgPath)
	require.NoError(t, err)
	require.NotContains(t, out, "junk")
	require.NotContains(t, out, " hi\n")
	require.Contains(t, out, "GET / HTTP/1.1")

	// Flags given on the command line win over the file.
	out, err = execute(t, "junk\n", "--config", cfgPath, "--strict=false")
	require.NoError(t, err)
	require.Equal(t, "junk\n", out)
}

func TestBuildFilters_TimeWindow(t *testing.T) {
	now := time.Unix(1700000060, 0)
	f, err := buildFilters(options{color: terminal.ColorNever, since: "30s"}, now)
	require.NoError(t, err)
	require.True(t, f.Matches(mustDecode(t, `{"ts":1700000050,"level":"info","msg":"x"}`)))
	require.False(t, f.Matches(mustDecode(t, `{"ts":1700000000,"level":"info","msg":"x"}`)))

	_, err = buildFilters(options{until: "whenever"}, now)
	require.Error(t, err)
}

func TestBuildFilters_HostPatterns(t *testing.T) {
	f, err := buildFilters(options{hosts: []string{"*.example.com", "api.local"}}, time.Now())
	require.NoError(t, err)
	require.Equal(t, []string{"*.example.com", "api.local"}, f.HostPatterns())
	require.True(t, f.Matches(mustDecode(t, hostLine)))
}
