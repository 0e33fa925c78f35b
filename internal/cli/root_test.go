package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/flowdoc/pkg/capture"
	"github.com/usestring/flowdoc/pkg/capture/capturetest"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	code := Execute(context.Background(), cmd, args)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func sampleCapture(t *testing.T) string {
	return capturetest.MitmFile(t, "flows.mitm",
		capturetest.GetFlow("f1", "/health"),
		capturetest.PostJSONFlow("f2", "/api/users", `{"name":"Ann"}`, `{"id":1}`),
	)
}

func TestRun_Success(t *testing.T) {
	in := sampleCapture(t)
	out := filepath.Join(t.TempDir(), "out.md")

	res := runCLI(t, in, out)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "Successfully converted 2 flows to "+out+"\n", res.stdout)
	assert.Empty(t, res.stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# HTTP Request Examples\n"))
}

func TestRun_FilterReportsSkipped(t *testing.T) {
	in := sampleCapture(t)
	out := filepath.Join(t.TempDir(), "out.md")

	res := runCLI(t, in, out, "--filter", "/api/*")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t,
		"Successfully converted 1 flows to "+out+"\n   Skipped 1 flows (didn't match filters)\n",
		res.stdout,
	)
}

func TestRun_MultiValuePatternFlags(t *testing.T) {
	in := sampleCapture(t)
	out := filepath.Join(t.TempDir(), "out.md")

	res := runCLI(t, in, out, "-f", "/nothing", "/health", "-e", "/api/*", "/metrics")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Successfully converted 1 flows")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "*Include patterns: `/nothing`, `/health`*\n*Exclude patterns: `/api/*`, `/metrics`*\n")
}

func TestRun_Select(t *testing.T) {
	in := sampleCapture(t)
	out := filepath.Join(t.TempDir(), "out.md")

	res := runCLI(t, in, out, "--select", `.method == "POST"`)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Successfully converted 1 flows")
	assert.Contains(t, res.stdout, "Skipped 1 flows")
}

func TestRun_InvalidSelect(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.md")

	res := runCLI(t, "does-not-exist.mitm", out, "--select", ".name[")
	assert.Equal(t, ExitError, res.code)
	assert.True(t, strings.HasPrefix(res.stderr, "Error: invalid jq expression"), res.stderr)
}

func TestRun_UnreadableCapture(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.mitm")
	require.NoError(t, os.WriteFile(in, []byte("<html>not a capture</html>"), 0o644))

	res := runCLI(t, in, filepath.Join(dir, "out.md"))
	assert.Equal(t, ExitError, res.code)
	assert.True(t, strings.HasPrefix(res.stderr, "Error reading flow file: "), res.stderr)
	assert.Empty(t, res.stdout)
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()

	res := runCLI(t, filepath.Join(dir, "missing.mitm"), filepath.Join(dir, "out.md"))
	assert.Equal(t, ExitError, res.code)
	assert.True(t, strings.HasPrefix(res.stderr, "Error: opening capture: "), res.stderr)
}

func TestRun_UnwritableOutput(t *testing.T) {
	in := sampleCapture(t)

	res := runCLI(t, in, filepath.Join(t.TempDir(), "no-such-dir", "out.md"))
	assert.Equal(t, ExitError, res.code)
	assert.True(t, strings.HasPrefix(res.stderr, "Error: writing output"), res.stderr)
}

func TestRun_WrongArgCount(t *testing.T) {
	res := runCLI(t, "only-input.mitm")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "Error: accepts 2 arg(s), received 1")
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	in := sampleCapture(t)
	out := filepath.Join(dir, "out.md")
	cfgPath := filepath.Join(dir, "flowdoc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("include: [\"/api/*\"]\nworkers: 1\n"), 0o644))

	res := runCLI(t, in, out, "--config", cfgPath, "-f", "/health")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Successfully converted 2 flows")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "*Include patterns: `/api/*`, `/health`*")
}

func TestRun_BadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "flowdoc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("workers: 0\n"), 0o644))

	res := runCLI(t, sampleCapture(t), filepath.Join(dir, "out.md"), "--config", cfgPath)
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "invalid config")
}

func TestRun_VerboseLogsToStderr(t *testing.T) {
	in := sampleCapture(t)
	out := filepath.Join(t.TempDir(), "out.md")

	res := runCLI(t, in, out, "-v")
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stderr, "msg=\"wrote document\"")
}

func TestRun_Version(t *testing.T) {
	res := runCLI(t, "--version")
	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, Version)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, capture.ErrUnreadable)
	assert.Equal(t, "Error reading flow file: unreadable capture\n", buf.String())
}

func TestExpandPatternArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "single values untouched",
			in:   []string{"in", "out", "-f", "/a", "--exclude", "/b"},
			want: []string{"in", "out", "-f", "/a", "--exclude", "/b"},
		},
		{
			name: "several values",
			in:   []string{"in", "out", "--filter", "/a", "/b", "-e", "/c", "/d", "-v"},
			want: []string{"in", "out", "--filter", "/a", "--filter", "/b", "-e", "/c", "-e", "/d", "-v"},
		},
		{
			name: "commas kept",
			in:   []string{"in", "out", "-f", "/a{1,2}"},
			want: []string{"in", "out", "-f", "/a{1,2}"},
		},
		{
			name: "equals form untouched",
			in:   []string{"in", "out", "--filter=/a", "/b"},
			want: []string{"in", "out", "--filter=/a", "/b"},
		},
		{
			name: "first value may start with dash",
			in:   []string{"in", "out", "-e", "-internal", "x"},
			want: []string{"in", "out", "-e", "-internal", "-e", "x"},
		},
		{
			name: "double dash ends flags",
			in:   []string{"-f", "/a", "--", "-f", "b"},
			want: []string{"-f", "/a", "--", "-f", "b"},
		},
		{
			name: "flag without value",
			in:   []string{"in", "out", "-f"},
			want: []string{"in", "out", "-f"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandPatternArgs(tt.in))
		})
	}
}
