package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionType determines how a session's card queue is assembled.
type SessionType string

// Supported session types.
const (
	SessionTypeReview SessionType = "review"
	SessionTypeNew    SessionType = "new"
	SessionTypeMixed  SessionType = "mixed"
)

// ParseSessionType converts a case-insensitive name into a SessionType.
func ParseSessionType(s string) (SessionType, error) {
	t := SessionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", NewValidationError("type", fmt.Sprintf("unknown session type %q", s), nil)
	}
	return t, nil
}

// Valid reports whether t is one of the supported session types.
func (t SessionType) Valid() bool {
	switch t {
	case SessionTypeReview, SessionTypeNew, SessionTypeMixed:
		return true
	default:
		return false
	}
}

// ScoringPolicy controls the completion score of a session.
type ScoringPolicy struct {
	// SpeedBonusThreshold is the duration a session must finish under to earn the bonus.
	SpeedBonusThreshold time.Duration
	SpeedBonusPoints    int
}

// DefaultScoringPolicy awards 10 points for sessions finished within five minutes.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		SpeedBonusThreshold: 5 * time.Minute,
		SpeedBonusPoints:    10,
	}
}

// Session is a user-paced walk through a fixed queue of cards.
//
// A session is Active until the answer that exhausts its queue, at which point
// it becomes Completed and its score is fixed. Completed is terminal.
type Session struct {
	ID             uuid.UUID   `json:"id"`
	UserID         string      `json:"user_id"`
	Category       *string     `json:"category,omitempty"`
	Type           SessionType `json:"type"`
	StartTime      time.Time   `json:"start_time"`
	EndTime        *time.Time  `json:"end_time,omitempty"`
	CardIDs        []uuid.UUID `json:"card_ids"`
	Responses      []int       `json:"responses"`
	CurrentIndex   int         `json:"current_index"`
	CorrectCount   int         `json:"correct_count"`
	IncorrectCount int         `json:"incorrect_count"`
	Completed      bool        `json:"completed"`
	Score          int         `json:"score"`
	TotalTimeSpent int64       `json:"total_time_spent"` // milliseconds
}

// NewSession creates a session over the given queue. A session with an empty
// queue is completed at creation with a zero score.
func NewSession(
	userID string,
	category *string,
	sessionType SessionType,
	cardIDs []uuid.UUID,
	now time.Time,
) (*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, NewValidationError("user_id", "cannot be empty", nil)
	}
	if !sessionType.Valid() {
		return nil, NewValidationError("type", fmt.Sprintf("unknown session type %q", sessionType), nil)
	}

	queue := make([]uuid.UUID, len(cardIDs))
	copy(queue, cardIDs)

	s := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Category:  category,
		Type:      sessionType,
		StartTime: now,
		CardIDs:   queue,
		Responses: []int{},
	}

	if len(queue) == 0 {
		end := now
		s.EndTime = &end
		s.Completed = true
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the structural invariants of the session.
func (s *Session) Validate() error {
	if s.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", nil)
	}
	if s.CurrentIndex < 0 || s.CurrentIndex > len(s.CardIDs) {
		return NewValidationError("current_index", "out of range", nil)
	}
	if len(s.Responses) != s.CurrentIndex {
		return NewValidationError("responses", "must have one entry per answered card", nil)
	}
	if s.Completed != (s.CurrentIndex == len(s.CardIDs)) {
		return NewValidationError("completed", "must match queue exhaustion", nil)
	}
	seen := make(map[uuid.UUID]struct{}, len(s.CardIDs))
	for _, id := range s.CardIDs {
		if _, dup := seen[id]; dup {
			return NewValidationError("card_ids", "cannot contain duplicates", nil)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// CurrentCardID returns the id of the card awaiting an answer, or false when
// the queue is exhausted.
func (s *Session) CurrentCardID() (uuid.UUID, bool) {
	if s.CurrentIndex >= len(s.CardIDs) {
		return uuid.Nil, false
	}
	return s.CardIDs[s.CurrentIndex], true
}

// RecordResponse applies a graded answer to the current card and advances the
// session. It reports whether this answer completed the session.
func (s *Session) RecordResponse(quality int, now time.Time, policy ScoringPolicy) (bool, error) {
	if s.Completed {
		return false, fmt.Errorf("%w: session already completed", ErrInvalidState)
	}
	if err := ValidateQuality(quality); err != nil {
		return false, err
	}

	s.Responses = append(s.Responses, quality)
	if IsCorrect(quality) {
		s.CorrectCount++
	} else {
		s.IncorrectCount++
	}
	s.CurrentIndex++

	if s.CurrentIndex < len(s.CardIDs) {
		return false, nil
	}

	end := now
	s.EndTime = &end
	s.Completed = true
	s.TotalTimeSpent = end.Sub(s.StartTime).Milliseconds()
	s.Score = RoundHalfUp(s.Accuracy() * 100)
	if time.Duration(s.TotalTimeSpent)*time.Millisecond < policy.SpeedBonusThreshold {
		s.Score += policy.SpeedBonusPoints
	}
	return true, nil
}

// Progress is the percentage of the queue answered so far, rounded down.
func (s *Session) Progress() int {
	if len(s.CardIDs) == 0 {
		return 0
	}
	return s.CurrentIndex * 100 / len(s.CardIDs)
}

// Accuracy is the share of the whole queue answered correctly.
func (s *Session) Accuracy() float64 {
	if len(s.CardIDs) == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(len(s.CardIDs))
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	cp := *s
	if s.Category != nil {
		c := *s.Category
		cp.Category = &c
	}
	if s.EndTime != nil {
		t := *s.EndTime
		cp.EndTime = &t
	}
	cp.CardIDs = append([]uuid.UUID(nil), s.CardIDs...)
	cp.Responses = append([]int{}, s.Responses...)
	return &cp
}
