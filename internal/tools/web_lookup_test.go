package tools

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newStubClient(status int, contentType, body string, onRequest func(*http.Request)) *http.Client {
	return &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if onRequest != nil {
				onRequest(req)
			}
			resp := &http.Response{
				StatusCode: status,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader(body)),
				Request:    req,
			}
			if contentType != "" {
				resp.Header.Set("Content-Type", contentType)
			}
			return resp, nil
		}),
	}
}

func TestWebLookupToolSpec(t *testing.T) {
	spec := &WebLookupToolSpec{}
	assert.Equal(t, consts.ToolNameWebLookup, spec.Name())
	assert.Equal(t, consts.CategoryWeb, spec.Category())
	assert.NotEmpty(t, spec.Description())
	assert.Equal(t, []string{"url"}, ParameterNames(spec.Parameters()))
}

func TestWebLookupConvertsHTML(t *testing.T) {
	var gotUA string
	client := newStubClient(200, "text/html", "<html><head><title>Venue</title></head><body><h1>Hall B</h1><p>Opens at 9.</p></body></html>", func(r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	})
	tool := NewWebLookupTool(WebLookupOptions{Client: client, UserAgent: "concierge-test"})

	res := tool.Execute(context.Background(), map[string]interface{}{"url": "example.com/venue"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "concierge-test", gotUA)

	data := res.Data.(map[string]interface{})
	assert.Equal(t, "https://example.com/venue", data["url"])
	assert.Contains(t, data["content"], "Hall B")
	assert.NotContains(t, data["content"], "<p>")
	assert.Equal(t, false, data["truncated"])
}

func TestWebLookupTruncatesBody(t *testing.T) {
	client := newStubClient(200, "text/plain", strings.Repeat("a", 100), nil)
	tool := NewWebLookupTool(WebLookupOptions{Client: client, MaxBytes: 10})

	res := tool.Execute(context.Background(), map[string]interface{}{"url": "https://example.com"})
	require.True(t, res.Success)
	data := res.Data.(map[string]interface{})
	assert.Equal(t, true, data["truncated"])
	assert.Equal(t, strings.Repeat("a", 10), data["content"])
}

func TestWebLookupErrors(t *testing.T) {
	tool := NewWebLookupTool(WebLookupOptions{Client: newStubClient(404, "", "nope", nil)})

	res := tool.Execute(context.Background(), map[string]interface{}{})
	assert.False(t, res.Success)
	assert.Equal(t, "url is required", res.Error)

	res = tool.Execute(context.Background(), map[string]interface{}{"url": "ftp://example.com"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unsupported scheme")

	res = tool.Execute(context.Background(), map[string]interface{}{"url": "https://example.com/missing"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "404")
}
