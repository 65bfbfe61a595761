package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

const (
	maxResponseSize = 5 * 1024 * 1024
	httpTimeout     = 30 * time.Second
)

// WebFetchTool fetches a URL and converts HTML responses to markdown.
type WebFetchTool struct{}

func (t *WebFetchTool) Name() string        { return "WebFetch" }
func (t *WebFetchTool) Description() string { return "Fetch content from a URL as markdown" }
func (t *WebFetchTool) Permission() Permission {
	return ReadOnly
}

func (t *WebFetchTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to fetch",
			},
		},
		"required": []string{"url"},
	}
}

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	urlStr, ok := args["url"].(string)
	if !ok || urlStr == "" {
		return errorResult(t.Name(), "url is required"), nil
	}
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		urlStr = "https://" + urlStr
	}

	client := &http.Client{Timeout: httpTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return errorResult(t.Name(), "invalid URL: "+err.Error()), nil
	}
	req.Header.Set("User-Agent", "nyzhi/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return errorResult(t.Name(), "request failed: "+err.Error()), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorResult(t.Name(), fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errorResult(t.Name(), "failed to read response: "+err.Error()), nil
	}

	content := string(body)
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") {
		converter := md.NewConverter("", true, nil)
		if markdown, err := converter.ConvertString(content); err == nil {
			content = markdown
		}
	}

	return Result{
		Output: content,
		Title:  t.Name() + ": " + urlStr,
		Metadata: map[string]any{
			"url":          urlStr,
			"status":       resp.StatusCode,
			"content_type": contentType,
			"bytes":        len(body),
		},
	}, nil
}
