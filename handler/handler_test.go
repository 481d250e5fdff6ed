package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"welfare-agent/internal/domain"
	"welfare-agent/internal/usecase"
)

type stubRecommender struct {
	out   usecase.RecommendOutput
	err   error
	in    domain.UserProfile
	calls int
}

func (s *stubRecommender) Recommend(_ context.Context, in domain.UserProfile) (usecase.RecommendOutput, error) {
	s.calls++
	s.in = in
	return s.out, s.err
}

type stubResponder struct {
	answer string
	err    error
	in     usecase.ChatInput
	calls  int
}

func (s *stubResponder) Respond(_ context.Context, in usecase.ChatInput) (string, error) {
	s.calls++
	s.in = in
	return s.answer, s.err
}

func newTestHandler(t *testing.T, rec *stubRecommender, chat *stubResponder) *Handler {
	t.Helper()
	h, err := NewHandler(rec, chat, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return h
}

func makeEvent(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

var sampleRecs = []domain.Recommendation{{
	Rank:        1,
	Title:       "국가장학금",
	Description: "등록금 지원",
	Eligibility: domain.Eligibility{Deadline: "학기별", AgeRange: "제한 없음", Residency: "서울", Income: "9구간 이하"},
	ApplicationInfo: domain.ApplicationInfo{
		Method:            "한국장학재단",
		RequiredDocuments: "재학증명서",
	},
}}

func TestNewHandler_ValidatesDependencies(t *testing.T) {
	_, err := NewHandler(nil, &stubResponder{}, nil)
	require.Error(t, err)
	_, err = NewHandler(&stubRecommender{}, nil, nil)
	require.Error(t, err)
}

func TestHandle_Recommendations_HappyPath(t *testing.T) {
	rec := &stubRecommender{out: usecase.RecommendOutput{Recommendations: sampleRecs}}
	h := newTestHandler(t, rec, &stubResponder{})

	body := `{"name":"Kim","gender":"남성","age":22,"region":"서울","occupation":"학생","income":1500000}`
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/recommendations", body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, domain.UserProfile{Name: "Kim", Gender: "남성", Age: 22, Region: "서울", Occupation: "학생", Income: "1500000"}, rec.in)

	out := parseBody[recommendationsResponse](t, resp.Body)
	require.Equal(t, sampleRecs, out.Recommendations)
	require.Equal(t, msgRecommendationsOK, out.Message)
	require.NotEmpty(t, resp.Headers[correlationHeader])
	require.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
}

func TestHandle_Recommendations_Errors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "validation", err: &usecase.Error{Code: usecase.ErrorValidation, Reason: "incomplete_profile"}, status: http.StatusBadRequest, message: msgRecommendationsMissing},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "boom"}, status: http.StatusInternalServerError, message: msgRecommendationsFailed},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, message: msgRecommendationsFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubRecommender{err: tc.err}, &stubResponder{})

			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/recommendations", `{"name":"Kim"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.message, parseBody[errorResponse](t, resp.Body).Error)
		})
	}
}

func TestHandle_Chat_HappyPath(t *testing.T) {
	chat := &stubResponder{answer: "복지로에서 신청하세요."}
	h := newTestHandler(t, &stubRecommender{}, chat)

	body := `{"message":"주거급여 신청?","userInfo":{"name":"Kim","age":22,"occupation":"학생"},
		"chatHistory":[{"id":"1","role":"user","content":"안녕","timestamp":"2025-03-14T09:00:00Z"}]}`
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/api/chat", body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, "주거급여 신청?", chat.in.Message)
	require.NotNil(t, chat.in.Profile)
	require.Equal(t, "Kim", chat.in.Profile.Name)
	require.Len(t, chat.in.History, 1)
	require.Equal(t, "안녕", chat.in.History[0].Content)

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, "복지로에서 신청하세요.", out.Response)
	require.Equal(t, msgChatOK, out.Message)
}

func TestHandle_Chat_IgnoresHistoryTimestampFormat(t *testing.T) {
	for _, ts := range []string{`""`, `1710406800000`, `"2025-03-14 09:00"`, `null`} {
		t.Run(ts, func(t *testing.T) {
			chat := &stubResponder{answer: "ok"}
			h := newTestHandler(t, &stubRecommender{}, chat)

			body := `{"message":"hi","chatHistory":[{"role":"assistant","content":"안녕하세요","timestamp":` + ts + `}]}`
			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/chat", body))
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Len(t, chat.in.History, 1)
			require.Equal(t, domain.RoleAssistant, chat.in.History[0].Role)
			require.Equal(t, "안녕하세요", chat.in.History[0].Content)
		})
	}
}

func TestHandle_Chat_NullProfile(t *testing.T) {
	chat := &stubResponder{answer: "ok"}
	h := newTestHandler(t, &stubRecommender{}, chat)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/chat", `{"message":"hi","userInfo":null,"chatHistory":[]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, chat.in.Profile)
}

func TestHandle_Chat_Errors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "empty message", err: &usecase.Error{Code: usecase.ErrorValidation, Reason: "empty_message"}, status: http.StatusBadRequest, message: msgChatEmpty},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstreamFailure, Reason: "openai_error"}, status: http.StatusInternalServerError, message: msgChatFailed},
		{name: "parse", err: &usecase.Error{Code: usecase.ErrorParseFailure, Reason: "bad"}, status: http.StatusInternalServerError, message: msgChatFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubRecommender{}, &stubResponder{err: tc.err})

			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/chat", `{"message":"   "}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.message, parseBody[errorResponse](t, resp.Body).Error)
		})
	}
}

func TestHandle_Chat_WhitespaceMessageWithRealService(t *testing.T) {
	llm := &countingLLM{}
	svc, err := usecase.NewChatService(llm, "gpt-4o-mini", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	h, err := NewHandler(&stubRecommender{}, svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/chat", `{"message":"   ","userInfo":null,"chatHistory":[]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.JSONEq(t, `{"error":"메시지를 입력해주세요."}`, resp.Body)
	require.Zero(t, llm.calls)
}

type countingLLM struct{ calls int }

func (c *countingLLM) Chat(context.Context, domain.CompletionRequest) (string, error) {
	c.calls++
	return "", nil
}

func TestHandle_InvalidBody(t *testing.T) {
	rec, chat := &stubRecommender{}, &stubResponder{}
	h := newTestHandler(t, rec, chat)

	for _, p := range []string{"/recommendations", "/chat"} {
		resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, p, `not-json`))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, msgMalformedBody, parseBody[errorResponse](t, resp.Body).Error)
	}
	require.Zero(t, rec.calls)
	require.Zero(t, chat.calls)
}

func TestHandle_Routing(t *testing.T) {
	h := newTestHandler(t, &stubRecommender{}, &stubResponder{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, "/health", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, resp.Body)

	resp, err = h.Handle(context.Background(), makeEvent(http.MethodGet, "/chat", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = h.Handle(context.Background(), makeEvent(http.MethodPost, "/unknown", "{}"))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = h.Handle(context.Background(), makeEvent(http.MethodOptions, "/chat", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, resp.Body)
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h := newTestHandler(t, &stubRecommender{}, &stubResponder{answer: "ok"})

	event := makeEvent(http.MethodPost, "/chat", `{"message":"hi"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers[correlationHeader])
}

func TestHandle_GeneratesCorrelationID(t *testing.T) {
	orig := newUUID
	t.Cleanup(func() { newUUID = orig })
	newUUID = func() string { return "generated-id" }

	h := newTestHandler(t, &stubRecommender{}, &stubResponder{answer: "ok"})
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, "/health", ""))
	require.NoError(t, err)
	require.Equal(t, "generated-id", resp.Headers[correlationHeader])
}
