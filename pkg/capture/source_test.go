package capture

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{"tnetstring", "12:...", FormatMitmproxy, false},
		{"empty", "", FormatMitmproxy, false},
		{"har", "{\"log\":{}}", FormatHAR, false},
		{"har after whitespace", "\n  \t{", FormatHAR, false},
		{"powhttp", "[]", FormatPowHTTP, false},
		{"unknown", "<html>", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(bufio.NewReader(strings.NewReader(tt.input)))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpen(t *testing.T) {
	mitm := dump(t, map[string]any{"type": "http", "request": requestState("GET", "/a", nil, nil)})

	tests := []struct {
		name string
		data []byte
		path string
	}{
		{"mitmproxy", mitm, "/a"},
		{"har", []byte(sampleHAR), "/api/users?page=2"},
		{"powhttp", []byte(samplePowHTTP), "/api/cart?id=9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Open(writeFile(t, "capture", tt.data))
			require.NoError(t, err)
			defer src.Close()

			f, err := src.Next()
			require.NoError(t, err)
			assert.Equal(t, tt.path, f.Request.Path)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mitm"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, errors.Is(err, ErrUnreadable))

	_, err = Open(writeFile(t, "page.html", []byte("<html></html>")))
	assert.True(t, errors.Is(err, ErrUnreadable))

	_, err = Open(writeFile(t, "bad.har", []byte("{broken")))
	assert.True(t, errors.Is(err, ErrUnreadable))
}

func TestNewSource_UnknownFormat(t *testing.T) {
	_, err := NewSource(Format("pcap"), strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrUnreadable))
}

func TestSliceSource(t *testing.T) {
	a := &Flow{ID: "a", Kind: KindHTTP}
	b := &Flow{ID: "b", Kind: KindTCP}
	src := NewSliceSource(a, b)

	got, err := src.Next()
	require.NoError(t, err)
	assert.Same(t, a, got)

	got, err = src.Next()
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, src.Close())
}
