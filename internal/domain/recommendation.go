package domain

// MaxRecommendations caps the size of every recommendation set.
const MaxRecommendations = 3

// Recommendation is one ranked welfare program suggested for a profile.
// The JSON keys follow the schema the model is instructed to produce.
type Recommendation struct {
	Rank            int             `json:"추천순위"`
	Title           string          `json:"사업명"`
	Description     string          `json:"설명"`
	Eligibility     Eligibility     `json:"주요조건"`
	ApplicationInfo ApplicationInfo `json:"신청정보"`
}

// Eligibility holds the main qualifying conditions of a program.
type Eligibility struct {
	Deadline  string `json:"신청기한"`
	AgeRange  string `json:"연령"`
	Residency string `json:"거주"`
	Income    string `json:"소득"`
	Other     string `json:"기타,omitempty"`
}

// ApplicationInfo describes how to apply.
type ApplicationInfo struct {
	Method            string `json:"신청방법"`
	RequiredDocuments string `json:"필요서류"`
}
