package capture

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// maxDecodedSize caps decompressed payloads.
const maxDecodedSize = 256 << 20

// DecodeContent removes the content codings listed in a Content-Encoding
// header value (gzip, deflate, br, zstd, identity). Codings are undone in
// reverse order of application. An empty encoding returns raw unchanged.
func DecodeContent(raw []byte, encoding string) ([]byte, error) {
	if len(raw) == 0 || strings.TrimSpace(encoding) == "" {
		return raw, nil
	}

	codings := strings.Split(encoding, ",")
	data := raw
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		decoded, err := decodeOne(data, coding)
		if err != nil {
			return nil, fmt.Errorf("decoding %s content: %w", coding, err)
		}
		data = decoded
	}
	return data, nil
}

func decodeOne(data []byte, coding string) ([]byte, error) {
	switch coding {
	case "", "identity", "none":
		return data, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return readAllLimited(zr)
	case "deflate":
		// Servers send both zlib-wrapped and raw deflate streams.
		if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
			defer zr.Close()
			if out, err := readAllLimited(zr); err == nil {
				return out, nil
			}
		}
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		return readAllLimited(fr)
	case "br":
		return readAllLimited(brotli.NewReader(bytes.NewReader(data)))
	case "zstd":
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return readAllLimited(zr)
	}
	return nil, fmt.Errorf("unsupported content coding %q", coding)
}

func readAllLimited(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxDecodedSize {
		return nil, fmt.Errorf("decoded content exceeds %d bytes", maxDecodedSize)
	}
	return out, nil
}

// dropIllFormed removes byte sequences that are not valid UTF-8.
var dropIllFormed = runes.Remove(runes.Predicate(func(r rune) bool {
	return r == utf8.RuneError
}))

// Text decodes content for display. A non-UTF-8 charset parameter in
// contentType is honoured when known; otherwise content is read as UTF-8 and
// ill-formed sequences are dropped. Text never fails.
func Text(content []byte, contentType string) string {
	if len(content) == 0 {
		return ""
	}

	if cs := Charset(contentType); cs != "" && cs != "utf-8" && cs != "utf8" {
		if enc, err := htmlindex.Get(cs); err == nil {
			if name, _ := htmlindex.Name(enc); name != "utf-8" {
				if out, err := enc.NewDecoder().Bytes(content); err == nil {
					return string(out)
				}
			}
		}
	}

	if utf8.Valid(content) {
		return string(content)
	}
	out, _, err := transform.Bytes(dropIllFormed, content)
	if err != nil {
		return strings.ToValidUTF8(string(content), "")
	}
	return string(out)
}

// Charset returns the lower-cased charset parameter of a Content-Type value,
// or "" when absent or unparsable.
func Charset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}
