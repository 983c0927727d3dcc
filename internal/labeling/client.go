// Package labeling calls the token-classification service that assigns a
// BIO label to every word of a document.
package labeling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/doclayout/internal/docmodel"
	"github.com/dgallion1/doclayout/internal/schema"
)

// Labeler predicts one label per input word.
type Labeler interface {
	Name() string
	Predict(ctx context.Context, in Input, labels []string) ([]docmodel.LabelPrediction, error)
}

// Client posts words and boxes to an HTTP labeling service.
type Client struct {
	url        string
	apiKey     string
	maxLength  int
	httpClient *http.Client
}

func NewClient(url, apiKey string, maxLength int) *Client {
	return &Client{
		url:       url,
		apiKey:    apiKey,
		maxLength: maxLength,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *Client) Name() string { return "labeling" }

type predictRequest struct {
	Words     []string `json:"words"`
	Boxes     [][4]int `json:"boxes"`
	Labels    []string `json:"labels"`
	MaxLength int      `json:"max_length"`
}

type predictResponse struct {
	Predictions []docmodel.LabelPrediction `json:"predictions"`
}

// Predict returns predictions aligned to in.Words, in position order.
// Positions outside the input (padding, special tokens) are dropped.
func (c *Client) Predict(ctx context.Context, in Input, labels []string) ([]docmodel.LabelPrediction, error) {
	preds, err := c.predict(ctx, in, labels)
	if err != nil {
		return nil, docmodel.NewProviderError(c.Name(), -1, docmodel.PageRange{}, err)
	}
	return preds, nil
}

func (c *Client) predict(ctx context.Context, in Input, labels []string) ([]docmodel.LabelPrediction, error) {
	body, err := json.Marshal(predictRequest{
		Words:     in.Words,
		Boxes:     in.Boxes,
		Labels:    labels,
		MaxLength: c.maxLength,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("labeling api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if docmodel.IsRetryableStatus(resp.StatusCode) {
		return nil, &docmodel.RetryableError{
			StatusCode: resp.StatusCode,
			Message:    truncate(string(respBody), 200),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("labeling api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var pr predictResponse
	if err := schema.LabelingResponse.Decode(respBody, &pr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]docmodel.LabelPrediction, 0, len(pr.Predictions))
	last := -1
	for _, p := range pr.Predictions {
		if p.Position < 0 || p.Position >= len(in.Words) {
			continue
		}
		if p.Position <= last {
			return nil, fmt.Errorf("predictions out of order at position %d", p.Position)
		}
		last = p.Position
		if p.Text == "" {
			p.Text = in.Words[p.Position]
		}
		out = append(out, p)
	}
	return out, nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
