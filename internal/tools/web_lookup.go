package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/htmlconv"
	"github.com/codefionn/concierge/internal/logger"
)

// WebLookupToolSpec defines the schema for the web_lookup tool.
type WebLookupToolSpec struct{}

func (s *WebLookupToolSpec) Name() string     { return consts.ToolNameWebLookup }
func (s *WebLookupToolSpec) Category() string { return consts.CategoryWeb }

func (s *WebLookupToolSpec) Description() string {
	return "Fetch a public web page with an HTTP GET request and return its readable content as markdown."
}

func (s *WebLookupToolSpec) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "URL to fetch (http or https).",
			},
		},
		"required": []string{"url"},
	}
}

// WebLookupTool performs GET requests and converts HTML bodies to markdown.
type WebLookupTool struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// WebLookupOptions configures a WebLookupTool.
type WebLookupOptions struct {
	Client    *http.Client
	MaxBytes  int64
	UserAgent string
}

// NewWebLookupTool constructs a WebLookupTool.
func NewWebLookupTool(opts WebLookupOptions) *WebLookupTool {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: consts.Timeout20Seconds}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = consts.MaxWebLookupBytes
	}
	return &WebLookupTool{client: client, maxBytes: maxBytes, userAgent: opts.UserAgent}
}

// NewWebLookupToolFactory creates a factory for WebLookupTool.
func NewWebLookupToolFactory(opts WebLookupOptions) ToolFactory {
	return func(reg *Registry) ToolExecutor {
		return NewWebLookupTool(opts)
	}
}

func (t *WebLookupTool) Execute(ctx context.Context, params map[string]interface{}) *Result {
	rawURL := strings.TrimSpace(GetStringParam(params, "url", ""))
	if rawURL == "" {
		return Failed("url is required")
	}

	reqURL, err := normalizeFetchURL(rawURL)
	if err != nil {
		return Failed("invalid url: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Failed("failed to build request: %v", err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Failed("request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBytes+1))
	if err != nil {
		return Failed("failed to read response: %v", err)
	}
	truncated := int64(len(bodyBytes)) > t.maxBytes
	if truncated {
		bodyBytes = bodyBytes[:t.maxBytes]
	}

	finalURL := reqURL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode >= 400 {
		return Failed("GET %s returned status %d", finalURL, resp.StatusCode)
	}

	content := string(bodyBytes)
	if converted, ok := htmlconv.ConvertIfHTML(content); ok {
		content = converted
	}
	if clipped, wasClipped := truncateStringToBytes(content, consts.MaxWebLookupChars); wasClipped {
		content = clipped + "\n\n[content truncated]"
		truncated = true
	}

	logger.Debug("web_lookup: %s -> %d (%d bytes)", finalURL, resp.StatusCode, len(bodyBytes))

	return OK(map[string]interface{}{
		"url":          finalURL,
		"status_code":  resp.StatusCode,
		"content_type": resp.Header.Get("Content-Type"),
		"content":      content,
		"truncated":    truncated,
	}, fmt.Sprintf("Fetched %s", finalURL))
}

// normalizeFetchURL ensures the URL has a scheme and host and only allows HTTP/S.
func normalizeFetchURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty url")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		parsed, err = url.Parse("https://" + trimmed)
		if err != nil {
			return nil, err
		}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return parsed, nil
}

// truncateStringToBytes trims a string to the specified byte limit without breaking characters.
func truncateStringToBytes(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}

	var (
		builder strings.Builder
		used    int
	)
	for _, r := range s {
		rb := []byte(string(r))
		if used+len(rb) > limit {
			break
		}
		builder.Write(rb)
		used += len(rb)
	}
	return builder.String(), true
}
