package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	GenderMale   = "남성"
	GenderFemale = "여성"
	GenderOther  = "기타"
)

const OccupationStudent = "학생"

// Occupations lists the occupation categories offered by the profile form.
var Occupations = []string{
	OccupationStudent,
	"직장인",
	"자영업자",
	"프리랜서",
	"무직",
	"주부",
	"은퇴자",
	"기타",
}

// Regions lists the metropolitan and provincial areas offered by the profile form.
var Regions = []string{
	"서울", "부산", "대구", "인천", "광주", "대전", "울산", "세종",
	"경기", "강원", "충북", "충남", "전북", "전남", "경북", "경남", "제주",
}

// IncomeBrackets lists the monthly income buckets offered by the profile form.
var IncomeBrackets = []string{
	"소득 없음",
	"100만원 이하",
	"200만원 이하",
	"300만원 이하",
	"400만원 이하",
	"500만원 이하",
	"500만원 이상",
}

// ErrIncompleteProfile is returned by Validate when a required field is missing.
var ErrIncompleteProfile = errors.New("domain: profile is missing required fields")

// Income is a monthly income bucket. On the wire it may also arrive as a
// plain integer amount, which is kept as its decimal string.
type Income string

func (i *Income) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*i = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = Income(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("domain: income must be a string or number: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("domain: income amount %q is not an integer", n.String())
	}
	*i = Income(n.String())
	return nil
}

// UserProfile is the demographic record submitted through the profile form.
type UserProfile struct {
	Name       string `json:"name"`
	Gender     string `json:"gender"`
	Age        int    `json:"age"`
	Region     string `json:"region"`
	Occupation string `json:"occupation"`
	Income     Income `json:"income"`
}

// Validate checks the fields the recommendation endpoint cannot work without.
func (p UserProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Occupation) == "" || p.Age < 1 {
		return ErrIncompleteProfile
	}
	return nil
}

// FormErrors runs the full form validation and returns a localized message
// per invalid field. An empty map means the profile can be submitted.
func (p UserProfile) FormErrors() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		errs["name"] = "이름을 입력해주세요"
	}
	if strings.TrimSpace(p.Occupation) == "" {
		errs["occupation"] = "직업을 선택해주세요"
	}
	if strings.TrimSpace(p.Region) == "" {
		errs["region"] = "거주지역을 선택해주세요"
	}
	if p.Age < 1 {
		errs["age"] = "나이를 입력해주세요"
	}
	if strings.TrimSpace(string(p.Income)) == "" {
		errs["income"] = "소득 범위를 선택해주세요"
	}
	return errs
}

// IsStudent reports whether the occupation is the student category.
func (p UserProfile) IsStudent() bool {
	occ := strings.TrimSpace(p.Occupation)
	return occ == OccupationStudent || strings.EqualFold(occ, "student")
}

// GenderLabel returns the display label for the gender, defaulting to 기타.
func (p UserProfile) GenderLabel() string {
	switch strings.ToLower(strings.TrimSpace(p.Gender)) {
	case GenderMale, "male":
		return GenderMale
	case GenderFemale, "female":
		return GenderFemale
	default:
		return GenderOther
	}
}
