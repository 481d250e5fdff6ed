package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"welfare-agent/internal/domain"
)

const SnapshotVersion = 1

var ErrUnsupportedVersion = errors.New("store: unsupported snapshot version")

// Persister stores opaque snapshots by session ID. Load returns a nil payload
// and a nil error when the session has nothing saved.
type Persister interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, payload []byte) error
	Delete(ctx context.Context, sessionID string) error
}

type snapshot struct {
	Version         int                     `json:"version"`
	Screen          Screen                  `json:"screen"`
	Profile         *domain.UserProfile     `json:"profile"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	Chat            []domain.ChatTurn       `json:"chat"`
}

// MarshalSnapshot encodes the persisted part of the state.
func (s *State) MarshalSnapshot() ([]byte, error) {
	snap := snapshot{
		Version:         SnapshotVersion,
		Screen:          s.screen,
		Profile:         s.profile,
		Recommendations: s.recommendations,
		Chat:            s.chat,
	}
	if snap.Recommendations == nil {
		snap.Recommendations = []domain.Recommendation{}
	}
	if snap.Chat == nil {
		snap.Chat = []domain.ChatTurn{}
	}
	return json.Marshal(snap)
}

// Restore decodes a snapshot produced by MarshalSnapshot.
func Restore(payload []byte) (*State, error) {
	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("store: decode snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	if snap.Screen == "" {
		snap.Screen = ScreenWelcome
	}
	if !snap.Screen.Valid() {
		return nil, fmt.Errorf("store: decode snapshot: unknown screen %q", snap.Screen)
	}
	return &State{
		screen:          snap.Screen,
		profile:         snap.Profile,
		recommendations: snap.Recommendations,
		chat:            snap.Chat,
	}, nil
}

// Load restores the session's state, or returns a fresh one when nothing has
// been saved yet.
func Load(ctx context.Context, p Persister, sessionID string) (*State, error) {
	sessionID, err := checkSession(p, sessionID)
	if err != nil {
		return nil, err
	}
	payload, err := p.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: load session %s: %w", sessionID, err)
	}
	if payload == nil {
		return New(), nil
	}
	return Restore(payload)
}

func Save(ctx context.Context, p Persister, sessionID string, s *State) error {
	sessionID, err := checkSession(p, sessionID)
	if err != nil {
		return err
	}
	payload, err := s.MarshalSnapshot()
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	if err := p.Save(ctx, sessionID, payload); err != nil {
		return fmt.Errorf("store: save session %s: %w", sessionID, err)
	}
	return nil
}

// Discard removes the session's saved state.
func Discard(ctx context.Context, p Persister, sessionID string) error {
	sessionID, err := checkSession(p, sessionID)
	if err != nil {
		return err
	}
	if err := p.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("store: delete session %s: %w", sessionID, err)
	}
	return nil
}

func checkSession(p Persister, sessionID string) (string, error) {
	if p == nil {
		return "", errors.New("store: persister must not be nil")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", errors.New("store: session id is required")
	}
	return sessionID, nil
}
