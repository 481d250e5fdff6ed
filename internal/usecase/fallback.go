package usecase

import (
	"strings"

	"welfare-agent/internal/domain"
)

const scholarshipTitle = "국가장학금"

var occupationDocuments = map[string]string{
	"학생":   "재학증명서",
	"직장인":  "근로소득 원천징수영수증",
	"자영업자": "사업자등록증명원",
	"프리랜서": "사업소득 원천징수영수증",
	"무직":   "구직등록 확인서",
	"주부":   "가족관계증명서",
	"은퇴자":  "연금수급 사실확인서",
}

// fallbackRecommendations returns the fixed example set served when the model
// path is unavailable. Region and occupation keep it contextual.
func fallbackRecommendations(p domain.UserProfile) []domain.Recommendation {
	region := strings.TrimSpace(p.Region)
	if region == "" {
		region = "전국"
	}
	doc := occupationDocument(p)

	recs := []domain.Recommendation{
		{
			Title:       "국민취업지원제도",
			Description: "취업을 원하는 저소득 구직자에게 취업지원서비스와 구직촉진수당을 제공합니다.",
			Eligibility: domain.Eligibility{
				Deadline:  "연중 상시 신청",
				AgeRange:  "만 15~69세",
				Residency: region + " 거주 구직자",
				Income:    "기준 중위소득 60% 이하 (Ⅰ유형)",
			},
			ApplicationInfo: domain.ApplicationInfo{
				Method:            "고용24 온라인 신청 또는 관할 고용센터 방문",
				RequiredDocuments: "신분증, 구직신청서, " + doc,
			},
		},
		{
			Title:       "주거급여",
			Description: "저소득 가구의 임차료와 주택 수선비를 지원합니다.",
			Eligibility: domain.Eligibility{
				Deadline:  "연중 상시 신청",
				AgeRange:  "제한 없음",
				Residency: region + " 거주 무주택 임차가구",
				Income:    "기준 중위소득 48% 이하",
			},
			ApplicationInfo: domain.ApplicationInfo{
				Method:            "복지로 온라인 신청 또는 거주지 행정복지센터 방문",
				RequiredDocuments: "신분증, 임대차계약서, " + doc,
			},
		},
		{
			Title:       "기초생활보장 생계급여",
			Description: "생활이 어려운 가구에 기본적인 생계비를 지원합니다.",
			Eligibility: domain.Eligibility{
				Deadline:  "연중 상시 신청",
				AgeRange:  "제한 없음",
				Residency: region + " 거주 가구",
				Income:    "기준 중위소득 32% 이하",
				Other:     "부양의무자 기준은 관할 기관 확인 필요",
			},
			ApplicationInfo: domain.ApplicationInfo{
				Method:            "거주지 읍면동 행정복지센터 방문 신청",
				RequiredDocuments: "사회보장급여 신청서, 금융정보 제공 동의서, " + doc,
			},
		},
	}

	if p.IsStudent() {
		scholarship := domain.Recommendation{
			Title:       scholarshipTitle,
			Description: "경제적 여건과 관계없이 학업을 이어갈 수 있도록 대학 등록금을 지원합니다.",
			Eligibility: domain.Eligibility{
				Deadline:  "학기별 한국장학재단 공고 기간 내",
				AgeRange:  "제한 없음",
				Residency: region + " 거주 대한민국 국적 대학생",
				Income:    "학자금 지원구간 9구간 이하",
				Other:     "직전 학기 12학점 이상 이수 및 성적 기준 충족",
			},
			ApplicationInfo: domain.ApplicationInfo{
				Method:            "한국장학재단 홈페이지 온라인 신청",
				RequiredDocuments: "재학증명서, 가구원 정보제공 동의",
			},
		}
		recs = append([]domain.Recommendation{scholarship}, recs...)
	}

	if len(recs) > domain.MaxRecommendations {
		recs = recs[:domain.MaxRecommendations]
	}
	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs
}

func occupationDocument(p domain.UserProfile) string {
	if p.IsStudent() {
		return occupationDocuments[domain.OccupationStudent]
	}
	if doc, ok := occupationDocuments[strings.TrimSpace(p.Occupation)]; ok {
		return doc
	}
	return "소득금액증명원"
}
