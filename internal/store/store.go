// Package store holds the client-side application state: the current screen,
// the submitted profile, the last recommendation set and the chat history.
package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"welfare-agent/internal/domain"
)

type Screen string

const (
	ScreenWelcome         Screen = "welcome"
	ScreenForm            Screen = "form"
	ScreenRecommendations Screen = "recommendations"
	ScreenChat            Screen = "chat"
)

func (s Screen) Valid() bool {
	switch s {
	case ScreenWelcome, ScreenForm, ScreenRecommendations, ScreenChat:
		return true
	}
	return false
}

var (
	newUUID = uuid.NewString
	now     = time.Now
)

// State is the application state of one user session. It is not safe for
// concurrent use.
type State struct {
	screen          Screen
	profile         *domain.UserProfile
	recommendations []domain.Recommendation
	chat            []domain.ChatTurn
	// loading is transient and never persisted.
	loading bool
}

func New() *State {
	return &State{screen: ScreenWelcome}
}

func (s *State) Screen() Screen { return s.screen }

// Profile returns the stored profile and whether one has been submitted.
func (s *State) Profile() (domain.UserProfile, bool) {
	if s.profile == nil {
		return domain.UserProfile{}, false
	}
	return *s.profile, true
}

func (s *State) Recommendations() []domain.Recommendation {
	return append([]domain.Recommendation(nil), s.recommendations...)
}

func (s *State) Chat() []domain.ChatTurn {
	return append([]domain.ChatTurn(nil), s.chat...)
}

func (s *State) Loading() bool { return s.loading }

func (s *State) SetLoading(loading bool) { s.loading = loading }

// SetProfile replaces the profile. Recommendations computed for the previous
// profile are discarded.
func (s *State) SetProfile(p domain.UserProfile) {
	s.profile = &p
	s.recommendations = nil
}

func (s *State) SetRecommendations(recs []domain.Recommendation) {
	s.recommendations = append([]domain.Recommendation(nil), recs...)
}

// AddChatTurn appends a turn with a fresh id and the current time.
func (s *State) AddChatTurn(role, content string) domain.ChatTurn {
	turn := domain.ChatTurn{
		ID:        newUUID(),
		Role:      role,
		Content:   content,
		Timestamp: now().UTC(),
	}
	s.chat = append(s.chat, turn)
	return turn
}

func (s *State) ClearChat() { s.chat = nil }

func (s *State) SetScreen(screen Screen) error {
	if !screen.Valid() {
		return fmt.Errorf("store: unknown screen %q", screen)
	}
	s.screen = screen
	return nil
}

// Greet adds the assistant welcome turn when the chat is empty and reports
// whether it did.
func (s *State) Greet() bool {
	if len(s.chat) > 0 {
		return false
	}
	s.AddChatTurn(domain.RoleAssistant, welcomeMessage(s.profile))
	return true
}

// Reset returns the state to a fresh session.
func (s *State) Reset() {
	*s = State{screen: ScreenWelcome}
}

func welcomeMessage(p *domain.UserProfile) string {
	var b strings.Builder
	b.WriteString("안녕하세요")
	if p != nil {
		if name := strings.TrimSpace(p.Name); name != "" {
			b.WriteString(", " + name + "님")
		}
	}
	b.WriteString("! 복지정책 상담 챗봇입니다. 궁금한 점이 있으시면 언제든 물어보세요. ")
	b.WriteString("신청 방법, 자격 요건, 필요 서류 등 무엇이든 도움드리겠습니다.")
	return b.String()
}
