package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"welfare-agent/internal/domain"
	"welfare-agent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

const (
	msgRecommendationsOK      = "추천 정책을 성공적으로 조회했습니다."
	msgRecommendationsMissing = "필수 정보가 누락되었습니다."
	msgRecommendationsFailed  = "추천 정책 조회 중 오류가 발생했습니다."
	msgChatOK                 = "응답을 성공적으로 생성했습니다."
	msgChatEmpty              = "메시지를 입력해주세요."
	msgChatFailed             = "채팅 응답 생성 중 오류가 발생했습니다."
	msgMalformedBody          = "잘못된 요청 형식입니다."
	msgNotFound               = "요청한 경로를 찾을 수 없습니다."
	msgMethodNotAllowed       = "허용되지 않은 메서드입니다."
)

var newUUID = uuid.NewString

type Recommender interface {
	Recommend(ctx context.Context, profile domain.UserProfile) (usecase.RecommendOutput, error)
}

type Responder interface {
	Respond(ctx context.Context, in usecase.ChatInput) (string, error)
}

type Handler struct {
	recommender Recommender
	responder   Responder
	logger      *slog.Logger
}

type chatRequest struct {
	Message     string              `json:"message"`
	UserInfo    *domain.UserProfile `json:"userInfo"`
	ChatHistory []historyTurn       `json:"chatHistory"`
}

// historyTurn omits the timestamp: clients send it in several formats and
// the server never reads it.
type historyTurn struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (r chatRequest) history() []domain.ChatTurn {
	if len(r.ChatHistory) == 0 {
		return nil
	}
	turns := make([]domain.ChatTurn, 0, len(r.ChatHistory))
	for _, t := range r.ChatHistory {
		turns = append(turns, domain.ChatTurn{ID: t.ID, Role: t.Role, Content: t.Content})
	}
	return turns
}

type recommendationsResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
	Message         string                  `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
	Message  string `json:"message"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// result is a transport-neutral response shared by the Lambda and gin paths.
type result struct {
	status int
	body   any
}

func NewHandler(recommender Recommender, responder Responder, logger *slog.Logger) (*Handler, error) {
	if recommender == nil {
		return nil, errors.New("handler: recommender must not be nil")
	}
	if responder == nil {
		return nil, errors.New("handler: responder must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{recommender: recommender, responder: responder, logger: logger}, nil
}

// Handle serves API Gateway proxy events. Routing uses the last path segment
// so stage or /api prefixes are accepted.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(func(name string) string { return headerValue(req.Headers, name) })
	logger := h.logger.With("correlationId", corrID)

	if req.HTTPMethod == http.MethodOptions {
		return lambdaResponse(corrID, result{status: http.StatusNoContent}), nil
	}

	var res result
	switch route := path.Base("/" + strings.Trim(req.Path, "/")); route {
	case "recommendations":
		res = h.onlyPost(req.HTTPMethod, func() result {
			return h.recommendations(ctx, logger, []byte(req.Body))
		})
	case "chat":
		res = h.onlyPost(req.HTTPMethod, func() result {
			return h.chat(ctx, logger, []byte(req.Body))
		})
	case "health":
		res = health()
	default:
		res = result{status: http.StatusNotFound, body: errorResponse{Error: msgNotFound}}
	}
	return lambdaResponse(corrID, res), nil
}

func (h *Handler) onlyPost(method string, fn func() result) result {
	if method != http.MethodPost {
		return result{status: http.StatusMethodNotAllowed, body: errorResponse{Error: msgMethodNotAllowed}}
	}
	return fn()
}

func (h *Handler) recommendations(ctx context.Context, logger *slog.Logger, body []byte) result {
	var profile domain.UserProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		logger.Warn("invalid recommendations body", "err", err)
		return result{status: http.StatusBadRequest, body: errorResponse{Error: msgMalformedBody}}
	}

	out, err := h.recommender.Recommend(ctx, profile)
	if err != nil {
		status := statusFor(err)
		logger.Warn("recommendations failed", "status", status, "err", err)
		msg := msgRecommendationsFailed
		if status == http.StatusBadRequest {
			msg = msgRecommendationsMissing
		}
		return result{status: status, body: errorResponse{Error: msg}}
	}

	logger.Info("recommendations served", "count", len(out.Recommendations), "fallback", out.Fallback)
	return result{status: http.StatusOK, body: recommendationsResponse{
		Recommendations: out.Recommendations,
		Message:         msgRecommendationsOK,
	}}
}

func (h *Handler) chat(ctx context.Context, logger *slog.Logger, body []byte) result {
	var in chatRequest
	if err := json.Unmarshal(body, &in); err != nil {
		logger.Warn("invalid chat body", "err", err)
		return result{status: http.StatusBadRequest, body: errorResponse{Error: msgMalformedBody}}
	}

	answer, err := h.responder.Respond(ctx, usecase.ChatInput{
		Message: in.Message,
		Profile: in.UserInfo,
		History: in.history(),
	})
	if err != nil {
		status := statusFor(err)
		logger.Warn("chat failed", "status", status, "err", err)
		msg := msgChatFailed
		if status == http.StatusBadRequest {
			msg = msgChatEmpty
		}
		return result{status: status, body: errorResponse{Error: msg}}
	}
	return result{status: http.StatusOK, body: chatResponse{Response: answer, Message: msgChatOK}}
}

func health() result {
	return result{status: http.StatusOK, body: healthResponse{Status: "ok"}}
}

func statusFor(err error) int {
	var usecaseErr *usecase.Error
	if errors.As(err, &usecaseErr) && usecaseErr.Code == usecase.ErrorValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func lambdaResponse(corrID string, res result) events.APIGatewayProxyResponse {
	headers := map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type, " + correlationHeader,
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		correlationHeader:              corrID,
	}
	if res.body == nil {
		return events.APIGatewayProxyResponse{StatusCode: res.status, Headers: headers}
	}
	body, err := json.Marshal(res.body)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":"internal error"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: res.status, Headers: headers, Body: string(body)}
}

func correlationID(get func(string) string) string {
	if id := strings.TrimSpace(get(correlationHeader)); id != "" {
		return id
	}
	return newUUID()
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
