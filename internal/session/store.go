// Package session keeps short-lived per-user conversation state.
package session

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultSize = 10_000
	awaitingTTL = 10 * time.Minute
	noticeTTL   = time.Hour
)

// Awaiting describes pending free-text input expected from a user in private chat.
type Awaiting struct {
	Kind    string
	GroupID int64
}

const AwaitWelcomeMessage = "welcome_message"

type Store struct {
	cooldown *expirable.LRU[int64, time.Time]
	awaiting *expirable.LRU[int64, Awaiting]
	notices  *expirable.LRU[string, struct{}]

	cooldownTTL time.Duration
	now         func() time.Time
}

func NewStore(cooldown time.Duration) *Store {
	if cooldown <= 0 {
		cooldown = time.Nanosecond
	}
	return &Store{
		cooldown:    expirable.NewLRU[int64, time.Time](defaultSize, nil, cooldown),
		awaiting:    expirable.NewLRU[int64, Awaiting](defaultSize, nil, awaitingTTL),
		notices:     expirable.NewLRU[string, struct{}](defaultSize, nil, noticeTTL),
		cooldownTTL: cooldown,
		now:         time.Now,
	}
}

// AllowCommand reports whether the user is outside the cooldown window and starts a new one if so.
func (s *Store) AllowCommand(userID int64) (bool, time.Duration) {
	now := s.now()
	if last, ok := s.cooldown.Get(userID); ok {
		if left := s.cooldownTTL - now.Sub(last); left > 0 {
			return false, left
		}
	}
	s.cooldown.Add(userID, now)
	return true, 0
}

func (s *Store) SetAwaiting(userID int64, a Awaiting) {
	s.awaiting.Add(userID, a)
}

func (s *Store) Awaiting(userID int64) (Awaiting, bool) {
	return s.awaiting.Get(userID)
}

// ClearAwaiting drops pending input and reports whether there was any.
func (s *Store) ClearAwaiting(userID int64) bool {
	return s.awaiting.Remove(userID)
}

// NoticeOnce returns true the first time it sees kind for chatID within the notice window.
func (s *Store) NoticeOnce(kind string, chatID int64) bool {
	key := fmt.Sprintf("%s:%d", kind, chatID)
	if s.notices.Contains(key) {
		return false
	}
	s.notices.Add(key, struct{}{})
	return true
}
