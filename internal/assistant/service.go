// Package assistant is the shopping chat assistant: conversation history
// plus catalog context in front of the chat completions client.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NguyenVanDuc36/AffiliHub/internal/apperr"
	"github.com/NguyenVanDuc36/AffiliHub/internal/catalog"
	"github.com/NguyenVanDuc36/AffiliHub/internal/llm"
	"github.com/NguyenVanDuc36/AffiliHub/internal/metrics"
	"github.com/NguyenVanDuc36/AffiliHub/pkg/logging"
)

const fallbackReply = "I'm sorry, I couldn't generate a response."

// Catalog is the part of the catalog the assistant quotes from.
type Catalog interface {
	Trending(ctx context.Context) ([]catalog.Product, error)
	GetProducts(ctx context.Context, category string) ([]catalog.Product, error)
}

type Service struct {
	client        llm.Client
	products      Catalog
	conversations *ConversationStore
	maxTokens     int
}

func NewService(client llm.Client, products Catalog, conversations *ConversationStore) *Service {
	if conversations == nil {
		conversations = NewConversationStore(0)
	}
	return &Service{
		client:        client,
		products:      products,
		conversations: conversations,
		maxTokens:     800,
	}
}

// Reply records message, asks the model with the session history and
// records the answer.
func (s *Service) Reply(ctx context.Context, sessionID, message string) (reply string, err error) {
	req, err := s.prepare(ctx, sessionID, message)
	if err != nil {
		return "", err
	}

	start := time.Now()
	defer func() { metrics.ObserveGeneration("chat", start, err) }()

	resp, err := s.client.ChatCompletion(ctx, req)
	if err != nil {
		logging.L(ctx).Error("assistant reply failed", zap.String("session_id", sessionID), zap.Error(err))
		return "", fmt.Errorf("%w: chat: %w", apperr.ErrGeneration, err)
	}

	reply = strings.TrimSpace(resp.Content())
	if reply == "" {
		reply = fallbackReply
	}
	s.conversations.Append(sessionID, llm.ChatMessage{Role: llm.RoleAssistant, Content: reply})
	return reply, nil
}

// ReplyStream is Reply with the answer relayed as deltas. The assembled
// answer is recorded once the stream finishes cleanly.
func (s *Service) ReplyStream(ctx context.Context, sessionID, message string) (<-chan llm.StreamResult, error) {
	req, err := s.prepare(ctx, sessionID, message)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	upstream, err := s.client.ChatCompletionStream(ctx, req)
	if err != nil {
		metrics.ObserveGeneration("chat_stream", start, err)
		return nil, fmt.Errorf("%w: chat stream: %w", apperr.ErrGeneration, err)
	}

	out := make(chan llm.StreamResult, 16)
	go func() {
		defer close(out)

		var (
			full    strings.Builder
			failure error
		)
		for res := range upstream {
			if res.Err != nil {
				failure = res.Err
				res.Err = fmt.Errorf("%w: chat stream: %w", apperr.ErrGeneration, res.Err)
			} else if res.Chunk != nil {
				full.WriteString(res.Chunk.Delta)
			}
			select {
			case out <- res:
			case <-ctx.Done():
				failure = ctx.Err()
			}
			if failure != nil {
				break
			}
		}
		metrics.ObserveGeneration("chat_stream", start, failure)

		if failure == nil && full.Len() > 0 {
			s.conversations.Append(sessionID, llm.ChatMessage{Role: llm.RoleAssistant, Content: full.String()})
		}
	}()
	return out, nil
}

// History returns the recorded messages of a session.
func (s *Service) History(sessionID string) []llm.ChatMessage {
	return s.conversations.History(sessionID)
}

func (s *Service) prepare(ctx context.Context, sessionID, message string) (*llm.ChatRequest, error) {
	sessionID = strings.TrimSpace(sessionID)
	message = strings.TrimSpace(message)
	if sessionID == "" || message == "" {
		return nil, fmt.Errorf("%w: session ID and message are required", apperr.ErrInvalidArgument)
	}

	s.conversations.Append(sessionID, llm.ChatMessage{Role: llm.RoleUser, Content: message})

	productContext, err := s.productContext(ctx)
	if err != nil {
		// the assistant can still talk without catalog context
		logging.L(ctx).Warn("assistant catalog context unavailable", zap.Error(err))
	}

	msgs := []llm.ChatMessage{{Role: llm.RoleSystem, Content: systemPrompt(productContext)}}
	msgs = append(msgs, s.conversations.History(sessionID)...)
	if wantsImages(message) {
		msgs = append(msgs, llm.ChatMessage{Role: llm.RoleSystem, Content: imageNudge})
	}

	return &llm.ChatRequest{Messages: msgs, MaxTokens: s.maxTokens}, nil
}

func (s *Service) productContext(ctx context.Context) (string, error) {
	trending, err := s.products.Trending(ctx)
	if err != nil {
		return "", err
	}
	all, err := s.products.GetProducts(ctx, "")
	if err != nil {
		return "", err
	}
	if len(all) > 10 {
		all = all[:10]
	}
	return fmt.Sprintf("Available trending products: %s\nAll products: %s", listProducts(trending), listProducts(all)), nil
}

func listProducts(ps []catalog.Product) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprintf("%d. %s - %d (%s)", p.ID, p.Name, p.Price, p.Category)
	}
	return strings.Join(parts, ", ")
}
