package capture

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePowHTTP = `[
  {
    "id": "e1",
    "url": "https://shop.example.com/api/cart?id=9",
    "httpVersion": "HTTP/1.1",
    "request": {
      "method": "PUT",
      "path": "/api/cart?id=9",
      "headers": [["Host", "shop.example.com"], ["Content-Type", "application/json"]],
      "body": "eyJxdHkiOjJ9"
    },
    "response": {
      "httpVersion": "HTTP/1.1",
      "statusCode": 204,
      "statusText": "No Content",
      "headers": [],
      "body": null
    }
  },
  {
    "id": "e2",
    "url": "http://shop.example.com/pending",
    "request": {"method": "GET", "headers": [], "body": null},
    "response": null
  },
  {
    "id": "e3",
    "url": "http://shop.example.com/bad",
    "request": {"method": "POST", "headers": [], "body": "%%%"}
  }
]`

func TestPowHTTPSource(t *testing.T) {
	src, err := NewPowHTTPSource(strings.NewReader(samplePowHTTP))
	require.NoError(t, err)

	f, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "e1", f.ID)
	assert.Equal(t, "PUT", f.Request.Method)
	assert.Equal(t, "/api/cart?id=9", f.Request.Path)
	assert.Equal(t, "HTTP/1.1", f.Request.HTTPVersion)
	assert.Equal(t, `{"qty":2}`, string(f.Request.Content))
	require.NotNil(t, f.Response)
	assert.Equal(t, 204, f.Response.StatusCode)
	assert.Empty(t, f.Response.Content)

	f, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, "/pending", f.Request.Path)
	assert.Equal(t, 80, f.Request.Port)
	assert.Nil(t, f.Response)

	_, err = src.Next()
	var fe *FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 2, fe.Index)

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestPowHTTPSource_Errors(t *testing.T) {
	_, err := NewPowHTTPSource(strings.NewReader(`{"not": "an array"}`))
	assert.True(t, errors.Is(err, ErrUnreadable))

	src, err := NewPowHTTPSource(strings.NewReader(`[{"id": "x", "url": `))
	require.NoError(t, err)
	_, err = src.Next()
	assert.True(t, errors.Is(err, ErrUnreadable))
}
