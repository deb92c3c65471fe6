package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scheduling defaults and bounds shared by the scheduler and validation.
const (
	DefaultEasinessFactor = 2.5
	MinEasinessFactor     = 1.3
	DefaultInterval       = 1

	MinDifficulty = 1
	MaxDifficulty = 5

	MinQuality = 0
	MaxQuality = 5

	// PassingQuality is the lowest grade that counts as a correct recall.
	PassingQuality = 3
)

// Card is a question/answer pair together with its spaced repetition state.
// Scheduling fields (Repetitions through CorrectAttempts) are only changed by
// the scheduler when a review is graded; Edit never touches them.
type Card struct {
	ID         uuid.UUID `json:"id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Category   string    `json:"category"`
	Difficulty int       `json:"difficulty"`

	Repetitions     int        `json:"repetitions"`
	EasinessFactor  float64    `json:"easiness_factor"`
	Interval        int        `json:"interval"` // days
	NextReview      time.Time  `json:"next_review"`
	LastReviewed    *time.Time `json:"last_reviewed,omitempty"`
	CorrectStreak   int        `json:"correct_streak"`
	TotalAttempts   int        `json:"total_attempts"`
	CorrectAttempts int        `json:"correct_attempts"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCard creates an active card that is due immediately.
func NewCard(question, answer, category string, difficulty int, now time.Time) (*Card, error) {
	card := &Card{
		ID:             uuid.New(),
		Question:       question,
		Answer:         answer,
		Category:       category,
		Difficulty:     difficulty,
		EasinessFactor: DefaultEasinessFactor,
		Interval:       DefaultInterval,
		NextReview:     now,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks content and scheduling invariants.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", nil)
	}
	if strings.TrimSpace(c.Question) == "" {
		return NewValidationError("question", "cannot be empty", nil)
	}
	if strings.TrimSpace(c.Answer) == "" {
		return NewValidationError("answer", "cannot be empty", nil)
	}
	if strings.TrimSpace(c.Category) == "" {
		return NewValidationError("category", "cannot be empty", nil)
	}
	if c.Difficulty < MinDifficulty || c.Difficulty > MaxDifficulty {
		return NewValidationError("difficulty", "must be between 1 and 5", nil)
	}
	if c.EasinessFactor < MinEasinessFactor {
		return NewValidationError("easiness_factor", "must be at least 1.3", nil)
	}
	if c.Interval < 1 {
		return NewValidationError("interval", "must be at least 1 day", nil)
	}
	if c.Repetitions < 0 || c.CorrectStreak < 0 || c.TotalAttempts < 0 || c.CorrectAttempts < 0 {
		return NewValidationError("attempts", "counters cannot be negative", nil)
	}
	if c.CorrectAttempts > c.TotalAttempts {
		return NewValidationError("correct_attempts", "cannot exceed total attempts", nil)
	}
	return nil
}

// Edit replaces the card's content fields. The card is left unchanged when the
// new content is invalid.
func (c *Card) Edit(question, answer, category string, difficulty int, now time.Time) error {
	orig := *c
	c.Question = question
	c.Answer = answer
	c.Category = category
	c.Difficulty = difficulty

	if err := c.Validate(); err != nil {
		*c = orig
		return err
	}

	c.UpdatedAt = now
	return nil
}

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	cp := *c
	if c.LastReviewed != nil {
		t := *c.LastReviewed
		cp.LastReviewed = &t
	}
	return &cp
}

// ValidateQuality checks that a review grade is within 0..5.
func ValidateQuality(quality int) error {
	if quality < MinQuality || quality > MaxQuality {
		return ErrInvalidQuality
	}
	return nil
}

// IsCorrect reports whether a grade counts as a correct recall.
func IsCorrect(quality int) bool {
	return quality >= PassingQuality
}

// RoundHalfUp rounds to the nearest integer, with halves rounded up.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
