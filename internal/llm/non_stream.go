package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

func (c *client) ChatCompletion(parentCtx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	body, model, err := c.encode(req, false)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("llm request starting",
		zap.String("model", model),
		zap.Int("message_count", len(req.Messages)),
	)

	ctx, cancel := c.withTimeout(parentCtx)
	defer cancel()

	resp, err := c.post(ctx, body)
	if err != nil {
		c.logger.Error("llm request failed",
			zap.String("model", model),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, err
	}
	defer resp.Body.Close()

	var pResp providerChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&pResp); err != nil {
		return nil, fmt.Errorf("llmclient: decode upstream response: %w", err)
	}
	if len(pResp.Choices) == 0 {
		c.logger.Error("llm provider returned no choices", zap.String("model", model))
		return nil, fmt.Errorf("llmclient: provider returned no choices")
	}

	out := &ChatResponse{
		ID:      pResp.ID,
		Created: time.Unix(pResp.Created, 0),
		Model:   pResp.Model,
		Choices: make([]ChatChoice, 0, len(pResp.Choices)),
		Usage:   &Usage{},
	}
	for _, ch := range pResp.Choices {
		out.Choices = append(out.Choices, ChatChoice{
			Index:        ch.Index,
			Message:      ch.Message,
			FinishReason: ch.FinishReason,
		})
	}
	if pResp.Usage != nil {
		*out.Usage = Usage(*pResp.Usage)
	}

	c.logger.Info("llm request completed",
		zap.String("model", out.Model),
		zap.Int("prompt_tokens", out.Usage.PromptTokens),
		zap.Int("completion_tokens", out.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}
