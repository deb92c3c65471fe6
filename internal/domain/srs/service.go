package srs

import (
	"errors"
	"time"

	"github.com/phrazzld/scry-recall/internal/domain"
)

// ErrNilCard is returned when a nil card is passed to the scheduler.
var ErrNilCard = errors.New("card cannot be nil")

// Service defines the interface for scheduling operations
type Service interface {
	// Update returns a new card whose scheduling state reflects a review graded
	// quality (0..5) at time now.
	Update(card *domain.Card, quality int, now time.Time) (*domain.Card, error)

	// IsDue reports whether the card's next review lies strictly before now.
	IsDue(card *domain.Card, now time.Time) bool

	// SuccessRate returns the fraction of attempts answered correctly.
	SuccessRate(card *domain.Card) float64
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

var _ Service = (*defaultService)(nil)

// NewDefaultService creates a new scheduler with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new scheduler with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// Update implements Service.
func (s *defaultService) Update(card *domain.Card, quality int, now time.Time) (*domain.Card, error) {
	if card == nil {
		return nil, ErrNilCard
	}
	if err := domain.ValidateQuality(quality); err != nil {
		return nil, err
	}

	return calculateNextCard(card, quality, now, s.params), nil
}

// IsDue implements Service.
func (s *defaultService) IsDue(card *domain.Card, now time.Time) bool {
	return IsDue(card, now)
}

// SuccessRate implements Service.
func (s *defaultService) SuccessRate(card *domain.Card) float64 {
	return SuccessRate(card)
}

// IsDue reports whether now is strictly after the card's next review time.
func IsDue(card *domain.Card, now time.Time) bool {
	return now.After(card.NextReview)
}

// SuccessRate returns CorrectAttempts/TotalAttempts, or 0 for an unreviewed card.
func SuccessRate(card *domain.Card) float64 {
	if card.TotalAttempts == 0 {
		return 0
	}
	return float64(card.CorrectAttempts) / float64(card.TotalAttempts)
}
