package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NguyenVanDuc36/AffiliHub/internal/metrics"
)

// JSONGenerator turns a system/user prompt pair into one JSON object
// reply. It is what the similarity and comparison resolvers talk to.
type JSONGenerator struct {
	client      Client
	operation   string
	temperature float32
}

// NewJSONGenerator wraps client. operation labels the generation metrics.
func NewJSONGenerator(client Client, operation string) *JSONGenerator {
	return &JSONGenerator{client: client, operation: operation, temperature: 0.7}
}

// Generate returns the raw reply text. It does not parse it.
func (g *JSONGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (out string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveGeneration(g.operation, start, err) }()

	resp, err := g.client.ChatCompletion(ctx, &ChatRequest{
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userPrompt},
		},
		Temperature:    g.temperature,
		ResponseFormat: JSONObjectFormat,
	})
	if err != nil {
		return "", err
	}

	out = strings.TrimSpace(resp.Content())
	if out == "" {
		return "", errors.New("llmclient: empty completion")
	}
	return out, nil
}
