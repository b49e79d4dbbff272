// Package answer talks to the remote answering service. The service is an
// opaque request/response endpoint: send a question with conversational
// context, get back a text answer.
package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Turn is one prior exchange entry sent as conversational context. Only role
// and content travel over the wire, never ids or timestamps.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service is the orchestrator-facing surface of the answering endpoint.
type Service interface {
	// Ask sends the user's question together with the prior transcript.
	Ask(ctx context.Context, query string, history []Turn) (string, error)

	// Invoke sends a single free-form prompt (the context-summarization
	// variant, used for title derivation).
	Invoke(ctx context.Context, prompt string) (string, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:5000"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type askRequest struct {
	Query   string `json:"query"`
	History []Turn `json:"history"`
}

type invokeRequest struct {
	Prompt string `json:"prompt"`
}

type answerResponse struct {
	Answer string `json:"answer"`
	Meta   struct {
		Type     string  `json:"type"`
		MatchKey string  `json:"match_key"`
		Score    float64 `json:"score"`
	} `json:"meta"`
}

func (c *Client) Ask(ctx context.Context, query string, history []Turn) (string, error) {
	if history == nil {
		// The service expects an array, not null.
		history = []Turn{}
	}
	return c.post(ctx, "/ask", askRequest{Query: query, History: history})
}

func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	return c.post(ctx, "/invoke", invokeRequest{Prompt: prompt})
}

func (c *Client) post(ctx context.Context, endpoint string, body interface{}) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("answer API returned status %d: %s", resp.StatusCode, string(payload))
	}

	var parsed answerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode answer response: %w", err)
	}

	return parsed.Answer, nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	return resp, nil
}
