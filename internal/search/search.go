package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"
	"github.com/cloudwego/eino/components/tool"

	"yodabot/internal/config"
)

const (
	defaultBaseURL = "https://api.tavily.com"
	httpTimeout    = 10 * time.Second
	maxBodySize    = 512 * 1024
	maxResults     = 3
)

// Client answers search_google tool calls. Tavily is the primary provider;
// Google and DuckDuckGo act as fallbacks when the Tavily key is missing or a
// call fails.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	fallbacks  []tool.InvokableTool
}

// NewClient builds the search chain from config. Providers without
// credentials are silently skipped.
func NewClient(cfg config.SearchConfig) *Client {
	c := &Client{
		apiKey:     cfg.TavilyAPIKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: httpTimeout},
	}
	if g := initGoogle(cfg); g != nil {
		c.fallbacks = append(c.fallbacks, g)
	}
	if d := initDuckDuckGo(); d != nil {
		c.fallbacks = append(c.fallbacks, d)
	}
	return c
}

// Search runs the term through the provider chain and returns a JSON
// observation sized for a prompt.
func (c *Client) Search(ctx context.Context, term string) (string, error) {
	if c.apiKey != "" {
		observation, err := c.searchTavily(ctx, term)
		if err == nil {
			return observation, nil
		}
		log.Printf("tavily search failed: %v", err)
	}

	payload, err := json.Marshal(map[string]string{"query": term})
	if err != nil {
		return "", fmt.Errorf("marshal search query: %w", err)
	}
	for _, fb := range c.fallbacks {
		result, err := fb.InvokableRun(ctx, string(payload))
		if err == nil {
			return result, nil
		}
		log.Printf("fallback search failed: %v", err)
	}
	return "", errors.New("no search provider succeeded")
}

func (c *Client) searchTavily(ctx context.Context, term string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"query":          term,
		"api_key":        c.apiKey,
		"search_depth":   "advanced",
		"include_answer": true,
		"max_results":    maxResults,
	})
	if err != nil {
		return "", fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tavily search: %s", resp.Status)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}
	return promptJSON(raw)
}

// promptJSON re-serializes a raw search response without the echoed query and
// the image list, keeping the observation small.
func promptJSON(raw []byte) (string, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}
	delete(payload, "query")
	delete(payload, "images")
	out, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode search observation: %w", err)
	}
	return string(out), nil
}

func initGoogle(cfg config.SearchConfig) tool.InvokableTool {
	if cfg.GoogleAPIKey == "" || cfg.GoogleEngineID == "" {
		return nil
	}
	t, err := googlesearch.NewTool(context.Background(), &googlesearch.Config{
		ToolName:       "web_search_google",
		ToolDesc:       "Google Search Tool",
		APIKey:         cfg.GoogleAPIKey,
		SearchEngineID: cfg.GoogleEngineID,
		Lang:           "en",
		Num:            5,
	})
	if err != nil {
		log.Printf("google search disabled: %v", err)
		return nil
	}
	return t
}

func initDuckDuckGo() tool.InvokableTool {
	t, err := duckduckgo.NewTextSearchTool(context.Background(), &duckduckgo.Config{
		ToolName:   "web_search_ddg",
		ToolDesc:   "DuckDuckGo Search Tool (no token required)",
		MaxResults: maxResults,
		Region:     duckduckgo.RegionWT,
		Timeout:    httpTimeout,
	})
	if err != nil {
		log.Printf("duckduckgo search disabled: %v", err)
		return nil
	}
	return t
}
