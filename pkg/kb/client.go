// Package kb is the client for the Laws.Africa knowledge-base retrieve API.
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kb-agent/internal/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.laws.africa"
	DefaultKBName  = "legislation-za-municipal"
	DefaultPlace   = "za-cpt"

	// topK is fixed; the service ranks, we only cap.
	topK           = "5"
	requestTimeout = 60 * time.Second
)

var ErrEmptyQuery = errors.New("kb: search query is empty")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kb: retrieve failed with status %d: %s", e.StatusCode, e.Body)
}

// Retriever fetches raw hits for a search query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Hit, error)
}

type Config struct {
	BaseURL  string
	KBName   string
	APIToken string
	Place    string
}

type Client struct {
	cfg    Config
	client *http.Client
	logger logger.ILogger
}

var _ Retriever = &Client{}

func NewClient(cfg Config, log logger.ILogger) *Client {
	return NewClientWithHTTPClient(cfg, &http.Client{Timeout: requestTimeout}, log)
}

// NewClientWithHTTPClient lets tests point the client at an httptest server.
func NewClientWithHTTPClient(cfg Config, httpClient *http.Client, log logger.ILogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.KBName == "" {
		cfg.KBName = DefaultKBName
	}
	if cfg.Place == "" {
		cfg.Place = DefaultPlace
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, client: httpClient, logger: log}
}

// URL returns the retrieve endpoint for the configured knowledge base.
func (c *Client) URL() string {
	return fmt.Sprintf("%s/ai/v1/knowledge-bases/%s/retrieve", c.cfg.BaseURL, c.cfg.KBName)
}

// Retrieve issues one search against principal, unrepealed legislation in the
// configured place and returns the hits in the order the service sent them.
func (c *Client) Retrieve(ctx context.Context, query string) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	payload, err := json.Marshal(RetrieveRequest{
		Text: query,
		TopK: topK,
		Filters: Filters{
			Principal: true,
			Repealed:  false,
			FRBRPlace: c.cfg.Place,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.cfg.APIToken)

	c.logger.Info("KB", "Querying knowledge base", map[string]interface{}{
		"kb":    c.cfg.KBName,
		"place": c.cfg.Place,
		"query": query,
	})

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kb request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var data RetrieveResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	c.logger.Info("KB", "Received results from knowledge base", map[string]interface{}{
		"count": len(data.Results),
	})

	if data.Results == nil {
		return []Hit{}, nil
	}
	return data.Results, nil
}
