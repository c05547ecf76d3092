package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// ChatCompletionStream connects (with retries) and then relays provider SSE
// deltas on the returned channel. The channel is closed at [DONE], EOF,
// a read error or cancellation; errors arrive as a final StreamResult.
func (c *client) ChatCompletionStream(parentCtx context.Context, req *ChatRequest) (<-chan StreamResult, error) {
	body, model, err := c.encode(req, true)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("llm stream request starting",
		zap.String("model", model),
		zap.Int("message_count", len(req.Messages)),
	)

	ctx, cancel := c.withTimeout(parentCtx)
	results := make(chan StreamResult, 16)

	go func() {
		defer close(results)
		defer cancel()

		resp, err := c.post(ctx, body)
		if err != nil {
			c.logger.Error("llm stream connect failed", zap.String("model", model), zap.Error(err))
			results <- StreamResult{Err: err}
			return
		}
		defer resp.Body.Close()

		chunks, err := c.relay(ctx, resp.Body, results)
		switch {
		case err != nil && ctx.Err() != nil:
			c.logger.Info("llm stream cancelled", zap.String("model", model), zap.Int("chunks", chunks), zap.Error(ctx.Err()))
		case err != nil:
			results <- StreamResult{Err: err}
		default:
			c.logger.Info("llm stream completed", zap.String("model", model), zap.Int("chunks", chunks))
		}
	}()

	return results, nil
}

var errStreamCancelled = errors.New("llmclient: stream cancelled")

func (c *client) relay(ctx context.Context, body io.Reader, results chan<- StreamResult) (int, error) {
	const prefix = "data: "
	reader := bufio.NewReader(body)
	count := 0

	for {
		if ctx.Err() != nil {
			return count, errStreamCancelled
		}

		line, err := reader.ReadBytes('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return count, fmt.Errorf("llmclient: read stream line: %w", err)
		}

		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, []byte(prefix)) {
			// blank separators and non-data SSE fields
			continue
		}

		payload := bytes.TrimSpace(line[len(prefix):])
		if bytes.Equal(payload, []byte("[DONE]")) {
			return count, nil
		}

		var chunk providerStreamChunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			return count, fmt.Errorf("llmclient: unmarshal stream chunk: %w", err)
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" && choice.FinishReason == "" {
				continue
			}
			count++
			select {
			case <-ctx.Done():
				return count, errStreamCancelled
			case results <- StreamResult{Chunk: &StreamChunk{
				Index:        choice.Index,
				Delta:        choice.Delta.Content,
				FinishReason: choice.FinishReason,
			}}:
			}
		}
	}
}
