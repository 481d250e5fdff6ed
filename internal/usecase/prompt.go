package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"welfare-agent/internal/domain"
)

type recommendationEnvelope struct {
	// Pointer so a missing key can be told apart from an empty array.
	Recommendations *[]domain.Recommendation `json:"recommendations"`
}

func buildRecommendationMessages(profile domain.UserProfile, today time.Time) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: buildRecommendationPrompt(today)},
		{Role: domain.RoleUser, Content: buildProfilePrompt(profile)},
	}
}

func buildRecommendationPrompt(today time.Time) string {
	return strings.Join([]string{
		"Role:",
		"당신은 한국의 복지정책 전문가입니다. 사용자의 상황에 가장 적합한 복지사업을 추천합니다.",
		"",
		"Reference Date:",
		fmt.Sprintf("오늘은 %s입니다. 신청기한과 자격 요건은 이 날짜를 기준으로 판단하세요.", formatKoreanDate(today)),
		"",
		"Rules:",
		recommendationRules(),
		"",
		"Output Contract:",
		recommendationContract(),
	}, "\n")
}

func recommendationRules() string {
	return strings.Join([]string{
		"1) 현재 신청 가능한 사업을 우선 추천하세요.",
		"2) 사용자의 나이, 거주지역, 직업, 소득 수준에 맞는 사업만 추천하세요.",
		"3) 필요서류는 사용자의 직업을 반영해 구체적으로 작성하세요.",
		"4) 정보가 불확실하면 관할 기관 확인이 필요하다고 명시하세요.",
	}, "\n")
}

func recommendationContract() string {
	return "반드시 하나의 JSON 객체로만 응답하세요. 최상위 키는 \"recommendations\"이며 정확히 3개의 항목을 가진 배열입니다. " +
		"각 항목의 키: 추천순위(정수), 사업명, 설명, " +
		"주요조건{신청기한, 연령, 거주, 소득, 기타(선택)}, 신청정보{신청방법, 필요서류}. " +
		"모든 값은 한국어 문자열로 작성하고 추천순위만 정수로 작성하세요."
}

func buildProfilePrompt(p domain.UserProfile) string {
	return strings.Join([]string{
		"사용자 정보:",
		"- 이름: " + normalizePromptInput(p.Name),
		"- 성별: " + p.GenderLabel(),
		"- 나이: " + strconv.Itoa(p.Age) + "세",
		"- 거주지역: " + orUnknown(p.Region),
		"- 직업: " + normalizePromptInput(p.Occupation),
		"- 월소득: " + formatIncome(p.Income),
	}, "\n")
}

func buildChatMessages(profile *domain.UserProfile, history []domain.ChatTurn, message string) []domain.ChatMessage {
	messages := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: buildCounselorPrompt(profile)},
	}
	for _, turn := range historyWindow(history, chatHistoryWindow) {
		messages = append(messages, domain.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	return append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: message})
}

func buildCounselorPrompt(profile *domain.UserProfile) string {
	return strings.Join([]string{
		"당신은 한국의 복지정책 전문 상담사입니다.",
		"사용자의 질문에 대해 정확하고 친절하게 답변해주세요.",
		"",
		"사용자 정보:",
		counselorProfile(profile),
		"",
		"답변 가이드라인:",
		"1. 친근하고 존댓말로 답변",
		"2. 구체적이고 실용적인 정보 제공",
		"3. 필요시 관련 기관이나 웹사이트 안내",
		"4. 답변은 200자 이내로 간결하게",
	}, "\n")
}

func counselorProfile(p *domain.UserProfile) string {
	if p == nil {
		return "- 정보 없음"
	}
	return strings.Join([]string{
		"- 이름: " + normalizePromptInput(p.Name),
		"- 성별: " + p.GenderLabel(),
		"- 직업: " + normalizePromptInput(p.Occupation),
		"- 월소득: " + formatIncome(p.Income),
	}, "\n")
}

// historyWindow keeps the last n replayable turns, oldest first.
func historyWindow(history []domain.ChatTurn, n int) []domain.ChatTurn {
	kept := make([]domain.ChatTurn, 0, len(history))
	for _, turn := range history {
		if turn.Replayable() {
			kept = append(kept, turn)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return kept
}

func normalizePromptInput(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

func orUnknown(s string) string {
	if s = normalizePromptInput(s); s == "" {
		return "정보 없음"
	}
	return s
}

// formatIncome appends the currency unit to raw amounts; buckets are kept as is.
func formatIncome(income domain.Income) string {
	s := normalizePromptInput(string(income))
	if s == "" {
		return "정보 없음"
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s + "원"
	}
	return s
}

func formatKoreanDate(t time.Time) string {
	return fmt.Sprintf("%d년 %d월 %d일", t.Year(), int(t.Month()), t.Day())
}

// parseRecommendations turns raw model text into a typed recommendation set.
// Entries without a title are dropped, missing ranks are filled by position,
// and the result is capped at MaxRecommendations.
func parseRecommendations(raw string) ([]domain.Recommendation, error) {
	var env recommendationEnvelope
	dec := json.NewDecoder(bytes.NewBufferString(stripCodeFence(raw)))
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("usecase: decode recommendations: %w", err)
	}
	if env.Recommendations == nil {
		return nil, errors.New("usecase: decode recommendations: missing \"recommendations\" key")
	}

	out := make([]domain.Recommendation, 0, domain.MaxRecommendations)
	for _, rec := range *env.Recommendations {
		if strings.TrimSpace(rec.Title) == "" {
			continue
		}
		if rec.Rank <= 0 {
			rec.Rank = len(out) + 1
		}
		out = append(out, rec)
		if len(out) == domain.MaxRecommendations {
			break
		}
	}
	if len(out) == 0 {
		return nil, errors.New("usecase: decode recommendations: no usable entries")
	}
	return out, nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
