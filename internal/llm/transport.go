package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const (
	maxRequestSize = 2 * 1024 * 1024 // 2MB total JSON payload
	maxMessageSize = 512 * 1024      // 512KB per message content
)

// encode validates req and builds the provider payload.
func (c *client) encode(req *ChatRequest, stream bool) ([]byte, string, error) {
	if req == nil {
		return nil, "", fmt.Errorf("llmclient: request is nil")
	}
	if err := req.Validate(); err != nil {
		return nil, "", fmt.Errorf("llmclient: invalid request: %w", err)
	}

	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	body, err := json.Marshal(providerChatRequest{
		Model:          model,
		Messages:       req.Messages,
		Temperature:    req.Temperature,
		TopP:           req.TopP,
		MaxTokens:      req.MaxTokens,
		Stop:           req.Stop,
		Stream:         stream,
		ResponseFormat: req.ResponseFormat,
	})
	if err != nil {
		return nil, "", fmt.Errorf("llmclient: marshal request: %w", err)
	}
	if len(body) > maxRequestSize {
		return nil, "", fmt.Errorf("llmclient: request too large (%d bytes, max %d)", len(body), maxRequestSize)
	}
	return body, model, nil
}

// post sends body to the completions endpoint with retries and returns a
// 2xx response. Any other status becomes an *UpstreamError.
func (c *client) post(ctx context.Context, body []byte) (*http.Response, error) {
	url := c.cfg.BaseURL + "/v1/chat/completions"

	doOnce := func(ctx context.Context, body []byte) (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("llmclient: build HTTP request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		httpReq.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(httpReq)
	}

	resp, err := c.doWithRetry(ctx, body, doOnce)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	return nil, c.upstreamError(resp)
}

func (c *client) upstreamError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	uerr := &UpstreamError{StatusCode: resp.StatusCode}
	var perr providerErrorResponse
	if err := json.Unmarshal(raw, &perr); err == nil && perr.Error.Message != "" {
		uerr.Message = perr.Error.Message
		uerr.Type = perr.Error.Type
	} else {
		uerr.Message = truncate(string(raw), 200)
	}

	c.logger.Error("llm upstream error",
		zap.Int("status", uerr.StatusCode),
		zap.String("error_type", uerr.Type),
		zap.String("error_message", uerr.Message),
	)
	return uerr
}

// withTimeout applies the per-request timeout (0 = only use parent).
func (c *client) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.UpstreamTimeout > 0 {
		return context.WithTimeout(parent, c.cfg.UpstreamTimeout)
	}
	return context.WithCancel(parent)
}

// truncate limits string length for logging
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
