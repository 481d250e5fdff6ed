package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"welfare-agent/internal/domain"
	"welfare-agent/internal/integrations/openai"
)

type mockLLM struct {
	answer string
	err    error
	calls  int
	last   domain.CompletionRequest
}

func (m *mockLLM) Chat(_ context.Context, in domain.CompletionRequest) (string, error) {
	m.calls++
	m.last = in
	return m.answer, m.err
}

type statusErr struct{ status int }

func (e *statusErr) Error() string       { return fmt.Sprintf("status %d", e.status) }
func (e *statusErr) HTTPStatusCode() int { return e.status }

func studentProfile() domain.UserProfile {
	return domain.UserProfile{
		Name:       "Kim",
		Gender:     "male",
		Age:        22,
		Region:     "Seoul",
		Occupation: "student",
		Income:     "100만원 이하",
	}
}

func newTestRecommender(t *testing.T, llm LLMClient) *RecommendService {
	t.Helper()
	ref := time.Date(2025, time.March, 14, 0, 0, 0, 0, seoul)
	svc, err := NewRecommendService(llm, "gpt-4o-mini", ref, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return svc
}

func expectUseCaseError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

const threeRecs = `{"recommendations":[
{"추천순위":1,"사업명":"청년월세 특별지원","설명":"월세 지원","주요조건":{"신청기한":"2025년 12월 31일","연령":"만 19~34세","거주":"서울","소득":"중위 60% 이하"},"신청정보":{"신청방법":"복지로","필요서류":"재학증명서"}},
{"추천순위":2,"사업명":"국가장학금","설명":"등록금 지원","주요조건":{"신청기한":"학기별","연령":"제한 없음","거주":"전국","소득":"9구간 이하"},"신청정보":{"신청방법":"한국장학재단","필요서류":"재학증명서"}},
{"추천순위":3,"사업명":"청년도약계좌","설명":"자산 형성","주요조건":{"신청기한":"상시","연령":"만 19~34세","거주":"전국","소득":"중위 180% 이하"},"신청정보":{"신청방법":"은행 앱","필요서류":"신분증"}}
]}`

func TestNewRecommendService_ValidatesDependencies(t *testing.T) {
	_, err := NewRecommendService(nil, "gpt-4o-mini", time.Time{}, nil)
	require.Error(t, err)

	_, err = NewRecommendService(&mockLLM{}, "  ", time.Time{}, nil)
	require.Error(t, err)

	svc, err := NewRecommendService(&mockLLM{}, "gpt-4o-mini", time.Time{}, nil)
	require.NoError(t, err)
	require.NotNil(t, svc.logger)
}

func TestRecommend_HappyPath(t *testing.T) {
	llm := &mockLLM{answer: threeRecs}
	svc := newTestRecommender(t, llm)

	out, err := svc.Recommend(context.Background(), studentProfile())
	require.NoError(t, err)
	require.False(t, out.Fallback)
	require.Len(t, out.Recommendations, 3)
	require.Equal(t, "청년월세 특별지원", out.Recommendations[0].Title)
	require.Equal(t, "서울", out.Recommendations[0].Eligibility.Residency)

	require.Equal(t, 1, llm.calls)
	require.Equal(t, "gpt-4o-mini", llm.last.Model)
	require.True(t, llm.last.JSONOutput)
	require.Equal(t, recommendTemperature, llm.last.Temperature)
	require.Equal(t, recommendMaxTokens, llm.last.MaxTokens)
	require.Len(t, llm.last.Messages, 2)
	require.Equal(t, domain.RoleSystem, llm.last.Messages[0].Role)
	require.Contains(t, llm.last.Messages[0].Content, "2025년 3월 14일")
	require.Contains(t, llm.last.Messages[1].Content, "- 이름: Kim")
	require.Contains(t, llm.last.Messages[1].Content, "- 나이: 22세")
}

func TestRecommend_TopsUpShortModelSet(t *testing.T) {
	llm := &mockLLM{answer: `{"recommendations":[
{"추천순위":5,"사업명":"청년월세 특별지원","설명":"월세 지원","주요조건":{"신청기한":"상시","연령":"만 19~34세","거주":"서울","소득":"중위 60% 이하"},"신청정보":{"신청방법":"복지로","필요서류":"재학증명서"}}
]}`}
	svc := newTestRecommender(t, llm)

	out, err := svc.Recommend(context.Background(), studentProfile())
	require.NoError(t, err)
	require.False(t, out.Fallback)
	require.Len(t, out.Recommendations, domain.MaxRecommendations)
	require.Equal(t, "청년월세 특별지원", out.Recommendations[0].Title)
	require.Equal(t, scholarshipTitle, out.Recommendations[1].Title)
	for i, rec := range out.Recommendations {
		require.Equal(t, i+1, rec.Rank)
	}
}

func TestTopUp_SkipsDuplicateTitles(t *testing.T) {
	recs := []domain.Recommendation{{Rank: 2, Title: "A"}}
	extra := []domain.Recommendation{{Title: "A"}, {Title: "B"}, {Title: "C"}, {Title: "D"}}

	got := topUp(recs, extra)
	require.Equal(t, []domain.Recommendation{
		{Rank: 1, Title: "A"},
		{Rank: 2, Title: "B"},
		{Rank: 3, Title: "C"},
	}, got)
}

func TestRecommend_IncompleteProfile(t *testing.T) {
	cases := []struct {
		name    string
		profile domain.UserProfile
	}{
		{name: "missing name", profile: domain.UserProfile{Age: 30, Occupation: "직장인"}},
		{name: "missing occupation", profile: domain.UserProfile{Name: "Lee", Age: 30}},
		{name: "missing age", profile: domain.UserProfile{Name: "Lee", Occupation: "직장인"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			llm := &mockLLM{answer: threeRecs}
			svc := newTestRecommender(t, llm)

			_, err := svc.Recommend(context.Background(), tc.profile)
			expectUseCaseError(t, err, ErrorValidation, "incomplete_profile")
			require.ErrorIs(t, err, domain.ErrIncompleteProfile)
			require.Zero(t, llm.calls)
		})
	}
}

func TestRecommend_MissingKeyServesStudentFallback(t *testing.T) {
	llm := &mockLLM{err: openai.ErrMissingAPIKey}
	svc := newTestRecommender(t, llm)

	out, err := svc.Recommend(context.Background(), studentProfile())
	require.NoError(t, err)
	require.True(t, out.Fallback)
	require.Len(t, out.Recommendations, 3)
	require.Equal(t, scholarshipTitle, out.Recommendations[0].Title)
	for i, rec := range out.Recommendations {
		require.Equal(t, i+1, rec.Rank)
		require.Contains(t, rec.Eligibility.Residency, "Seoul")
	}
}

func TestRecommend_FallsBackOnFailures(t *testing.T) {
	cases := []struct {
		name string
		llm  *mockLLM
	}{
		{name: "upstream error", llm: &mockLLM{err: errors.New("boom")}},
		{name: "rate limited", llm: &mockLLM{err: &statusErr{status: http.StatusTooManyRequests}}},
		{name: "not json", llm: &mockLLM{answer: "죄송합니다"}},
		{name: "no recommendations key", llm: &mockLLM{answer: `{"items":[]}`}},
		{name: "empty list", llm: &mockLLM{answer: `{"recommendations":[]}`}},
		{name: "wrong shape", llm: &mockLLM{answer: `{"recommendations":"none"}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestRecommender(t, tc.llm)
			p := domain.UserProfile{Name: "Park", Age: 45, Region: "부산", Occupation: "직장인"}

			out, err := svc.Recommend(context.Background(), p)
			require.NoError(t, err)
			require.True(t, out.Fallback)
			require.Equal(t, fallbackRecommendations(p), out.Recommendations)
		})
	}
}

func TestRecommend_TodayDefaultsToSeoulClock(t *testing.T) {
	orig := now
	t.Cleanup(func() { now = orig })
	// 2025-01-01 20:00 UTC is already 2025-01-02 in Seoul.
	now = func() time.Time { return time.Date(2025, time.January, 1, 20, 0, 0, 0, time.UTC) }

	llm := &mockLLM{answer: threeRecs}
	svc, err := NewRecommendService(llm, "gpt-4o-mini", time.Time{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, err = svc.Recommend(context.Background(), studentProfile())
	require.NoError(t, err)
	require.Contains(t, llm.last.Messages[0].Content, "2025년 1월 2일")
}

func TestFallbackRecommendations_NonStudent(t *testing.T) {
	p := domain.UserProfile{Name: "Choi", Age: 35, Region: "대전", Occupation: "자영업자"}

	recs := fallbackRecommendations(p)
	require.Len(t, recs, 3)
	require.Equal(t, recs, fallbackRecommendations(p))
	for i, rec := range recs {
		require.Equal(t, i+1, rec.Rank)
		require.NotEqual(t, scholarshipTitle, rec.Title)
		require.True(t, strings.HasPrefix(rec.Eligibility.Residency, "대전"))
		require.Contains(t, rec.ApplicationInfo.RequiredDocuments, "사업자등록증명원")
	}
}

func TestFallbackRecommendations_NoRegion(t *testing.T) {
	recs := fallbackRecommendations(domain.UserProfile{Name: "Jung", Age: 60, Occupation: "기타"})
	require.Contains(t, recs[0].Eligibility.Residency, "전국")
	require.Contains(t, recs[0].ApplicationInfo.RequiredDocuments, "소득금액증명원")
}

func TestUpstreamReason(t *testing.T) {
	require.Equal(t, "openai_rate_limited", upstreamReason(fmt.Errorf("wrapped: %w", &statusErr{status: 429})))
	require.Equal(t, "openai_error", upstreamReason(&statusErr{status: 500}))
	require.Equal(t, "openai_error", upstreamReason(errors.New("dial tcp")))
}
