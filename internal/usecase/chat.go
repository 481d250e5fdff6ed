package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"welfare-agent/internal/domain"
	"welfare-agent/internal/integrations/openai"
)

const (
	chatHistoryWindow = 5
	chatTemperature   = 0.7
	chatMaxTokens     = 300

	// EmptyReplyApology is returned when the model answers with no content.
	EmptyReplyApology = "죄송합니다. 응답을 생성할 수 없습니다."
)

type ChatService struct {
	llm    LLMClient
	model  string
	logger *slog.Logger
}

type ChatInput struct {
	Message string
	// Profile is nil when the user has not submitted the form.
	Profile *domain.UserProfile
	History []domain.ChatTurn
}

func NewChatService(llm LLMClient, model string, logger *slog.Logger) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{llm: llm, model: model, logger: logger}, nil
}

// Respond answers one chat message. Unlike recommendations there is no canned
// fallback: upstream failures are returned as UPSTREAM_FAILURE.
func (s *ChatService) Respond(ctx context.Context, in ChatInput) (string, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return "", newError(ErrorValidation, "empty_message", nil)
	}

	raw, err := s.llm.Chat(ctx, domain.CompletionRequest{
		Model:       s.model,
		Messages:    buildChatMessages(in.Profile, in.History, message),
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		reason := upstreamReason(err)
		if errors.Is(err, openai.ErrMissingAPIKey) {
			reason = "missing_api_key"
		}
		s.logger.Error("chat completion failed", "reason", reason, "err", err)
		return "", newError(ErrorUpstreamFailure, reason, err)
	}

	answer := strings.TrimSpace(raw)
	if answer == "" {
		return EmptyReplyApology, nil
	}
	return answer, nil
}
