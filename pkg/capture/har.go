package capture

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// harArchive is the subset of HAR 1.2 needed to rebuild flows.
type harArchive struct {
	Log struct {
		Entries []harEntry `json:"entries"`
	} `json:"log"`
}

type harEntry struct {
	Request  harRequest   `json:"request"`
	Response *harResponse `json:"response"`
}

type harNameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type harRequest struct {
	Method      string         `json:"method"`
	URL         string         `json:"url"`
	HTTPVersion string         `json:"httpVersion"`
	Headers     []harNameValue `json:"headers"`
	PostData    *struct {
		MimeType string         `json:"mimeType"`
		Text     string         `json:"text"`
		Params   []harNameValue `json:"params"`
	} `json:"postData"`
}

type harResponse struct {
	Status      int            `json:"status"`
	StatusText  string         `json:"statusText"`
	HTTPVersion string         `json:"httpVersion"`
	Headers     []harNameValue `json:"headers"`
	Content     struct {
		MimeType string `json:"mimeType"`
		Text     string `json:"text"`
		Encoding string `json:"encoding"`
	} `json:"content"`
}

// HARSource serves the entries of a HAR archive. HAR bodies are already
// decoded, so no content coding is undone.
type HARSource struct {
	entries []harEntry
	pos     int
}

// NewHARSource reads a complete HAR document from r.
func NewHARSource(r io.Reader) (*HARSource, error) {
	var archive harArchive
	if err := json.NewDecoder(r).Decode(&archive); err != nil {
		return nil, fmt.Errorf("%w: decoding HAR: %w", ErrUnreadable, err)
	}
	return &HARSource{entries: archive.Log.Entries}, nil
}

func (s *HARSource) Next() (*Flow, error) {
	if s.pos >= len(s.entries) {
		return nil, io.EOF
	}
	index := s.pos
	entry := s.entries[index]
	s.pos++

	f, err := flowFromHAR(entry)
	if err != nil {
		return nil, &FlowError{Index: index, Err: err}
	}
	return f, nil
}

func (s *HARSource) Close() error { return nil }

func flowFromHAR(e harEntry) (*Flow, error) {
	req, err := requestFromURL(e.Request.Method, e.Request.URL)
	if err != nil {
		return nil, err
	}
	req.HTTPVersion = e.Request.HTTPVersion
	req.Headers = harHeaders(e.Request.Headers)
	if pd := e.Request.PostData; pd != nil {
		if pd.Text != "" {
			req.Content = []byte(pd.Text)
		} else if len(pd.Params) > 0 {
			form := make([]string, 0, len(pd.Params))
			for _, p := range pd.Params {
				form = append(form, url.QueryEscape(p.Name)+"="+url.QueryEscape(p.Value))
			}
			req.Content = []byte(strings.Join(form, "&"))
		}
	}

	f := &Flow{Kind: KindHTTP, Request: req}

	// Browsers record aborted requests with status 0.
	if r := e.Response; r != nil && r.Status > 0 {
		resp := &Response{
			StatusCode:  r.Status,
			Reason:      r.StatusText,
			HTTPVersion: r.HTTPVersion,
			Headers:     harHeaders(r.Headers),
		}
		if r.Content.Encoding == "base64" {
			body, err := base64.StdEncoding.DecodeString(r.Content.Text)
			if err != nil {
				return nil, fmt.Errorf("decoding base64 response content: %w", err)
			}
			resp.Content = body
		} else if r.Content.Text != "" {
			resp.Content = []byte(r.Content.Text)
		}
		f.Response = resp
	}
	return f, nil
}

// requestFromURL fills the connection fields of a request from an absolute
// URL.
func requestFromURL(method, rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing request URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("request URL %q is not absolute", rawURL)
	}

	port := DefaultPort(u.Scheme)
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("request URL %q: invalid port", rawURL)
		}
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" || u.ForceQuery {
		path += "?" + u.RawQuery
	}

	return &Request{
		Method:    method,
		Scheme:    u.Scheme,
		Host:      u.Hostname(),
		Port:      port,
		Authority: u.Host,
		Path:      path,
	}, nil
}

func harHeaders(pairs []harNameValue) Headers {
	headers := make(Headers, 0, len(pairs))
	for _, p := range pairs {
		headers.Add(p.Name, p.Value)
	}
	return headers
}
