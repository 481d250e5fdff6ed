package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"welfare-agent/internal/domain"
	"welfare-agent/internal/integrations/openai"
)

const (
	recommendTemperature = 0.2
	recommendMaxTokens   = 1500
)

type LLMClient interface {
	Chat(ctx context.Context, in domain.CompletionRequest) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// seoul is the time zone used to derive "today" when no reference date is pinned.
var seoul = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}()

var now = time.Now

type RecommendService struct {
	llm           LLMClient
	model         string
	referenceDate time.Time
	logger        *slog.Logger
}

type RecommendOutput struct {
	Recommendations []domain.Recommendation
	// Fallback is true when the fixed example set was served.
	Fallback bool
}

// NewRecommendService builds the recommendation generator. A zero
// referenceDate means the prompt uses the current date in Asia/Seoul.
func NewRecommendService(llm LLMClient, model string, referenceDate time.Time, logger *slog.Logger) (*RecommendService, error) {
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
	return &RecommendService{
		llm:           llm,
		model:         model,
		referenceDate: referenceDate,
		logger:        logger,
	}, nil
}

// Recommend returns one to three recommendations for the profile. The only
// error it returns is a VALIDATION error for an incomplete profile; every
// upstream or parse failure is absorbed into the fallback set.
func (s *RecommendService) Recommend(ctx context.Context, profile domain.UserProfile) (RecommendOutput, error) {
	if err := profile.Validate(); err != nil {
		return RecommendOutput{}, newError(ErrorValidation, "incomplete_profile", err)
	}

	recs, err := s.generate(ctx, profile)
	if err != nil {
		s.logFailure(err)
		return RecommendOutput{Recommendations: fallbackRecommendations(profile), Fallback: true}, nil
	}
	if len(recs) < domain.MaxRecommendations {
		s.logger.Warn("model returned a short recommendation set, topping up", "count", len(recs))
		recs = topUp(recs, fallbackRecommendations(profile))
	}
	return RecommendOutput{Recommendations: recs}, nil
}

// topUp fills recs to MaxRecommendations from extra, skipping titles already
// present, and renumbers ranks by position.
func topUp(recs, extra []domain.Recommendation) []domain.Recommendation {
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		seen[strings.TrimSpace(rec.Title)] = true
	}
	for _, rec := range extra {
		if len(recs) == domain.MaxRecommendations {
			break
		}
		if seen[strings.TrimSpace(rec.Title)] {
			continue
		}
		seen[strings.TrimSpace(rec.Title)] = true
		recs = append(recs, rec)
	}
	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs
}

func (s *RecommendService) generate(ctx context.Context, profile domain.UserProfile) ([]domain.Recommendation, error) {
	raw, err := s.llm.Chat(ctx, domain.CompletionRequest{
		Model:       s.model,
		Messages:    buildRecommendationMessages(profile, s.today()),
		Temperature: recommendTemperature,
		MaxTokens:   recommendMaxTokens,
		JSONOutput:  true,
	})
	if err != nil {
		if errors.Is(err, openai.ErrMissingAPIKey) {
			return nil, newError(ErrorUpstreamFailure, "missing_api_key", err)
		}
		return nil, newError(ErrorUpstreamFailure, upstreamReason(err), err)
	}

	recs, err := parseRecommendations(raw)
	if err != nil {
		s.logger.Warn("unparseable recommendation payload", "raw", raw, "err", err)
		return nil, newError(ErrorParseFailure, "openai_malformed_response", err)
	}
	return recs, nil
}

func (s *RecommendService) today() time.Time {
	if !s.referenceDate.IsZero() {
		return s.referenceDate
	}
	return now().In(seoul)
}

func (s *RecommendService) logFailure(err error) {
	var ucErr *Error
	if errors.As(err, &ucErr) && ucErr.Reason == "missing_api_key" {
		s.logger.Info("no API key configured, serving fallback recommendations")
		return
	}
	code, reason := ErrorInternal, ""
	if ucErr != nil {
		code, reason = ucErr.Code, ucErr.Reason
	}
	s.logger.Error("recommendation generation failed, serving fallback",
		"code", code, "reason", reason, "err", err)
}

func upstreamReason(err error) string {
	if status, ok := upstreamStatusCode(err); ok && status == 429 {
		return "openai_rate_limited"
	}
	return "openai_error"
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
