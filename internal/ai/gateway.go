package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// GatewayClient calls an analysis gateway that owns the prompts: it
// receives the raw content plus the task type and returns model text.
type GatewayClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewGatewayClient(url, apiKey string) *GatewayClient {
	return &GatewayClient{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

type gatewayRequest struct {
	Prompt    string `json:"prompt"`
	Type      string `json:"type"`
	MaxTokens int    `json:"maxTokens"`
}

type gatewayResponse struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
	Type    string `json:"type"`
	Error   string `json:"error"`
}

func (c *GatewayClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(gatewayRequest{
		Prompt:    req.Content,
		Type:      string(req.Task),
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := classifyStatus(resp.StatusCode, string(respBody))
		if re, ok := err.(*RetryableError); ok {
			re.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return "", err
	}

	var out gatewayResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !out.Success {
		return "", classifyStatus(resp.StatusCode, out.Error)
	}
	if out.Data == "" {
		return "", fmt.Errorf("empty response from gateway")
	}
	return out.Data, nil
}

// Close releases idle connections.
func (c *GatewayClient) Close() {
	c.httpClient.CloseIdleConnections()
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
