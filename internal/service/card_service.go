package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/domain/srs"
	"github.com/phrazzld/scry-recall/internal/platform/logger"
	"github.com/phrazzld/scry-recall/internal/platform/random"
	"github.com/phrazzld/scry-recall/internal/store"
)

// CardInput is the editable content of a card.
type CardInput struct {
	Question   string `json:"question" validate:"notblank"`
	Answer     string `json:"answer" validate:"notblank"`
	Category   string `json:"category" validate:"notblank"`
	Difficulty int    `json:"difficulty" validate:"min=1,max=5"`
}

// CardService manages cards and answers the scheduling queries used to build
// study sessions.
type CardService struct {
	cards    store.CardStore
	srs      srs.Service
	rng      *random.Source
	now      func() time.Time
	validate *validator.Validate
	logger   *slog.Logger
}

// CardServiceOption configures a CardService.
type CardServiceOption func(*CardService)

// WithCardClock sets the time source used for creation and edit timestamps.
func WithCardClock(now func() time.Time) CardServiceOption {
	return func(s *CardService) { s.now = now }
}

// WithCardRandom sets the random source used to shuffle new cards.
func WithCardRandom(src *random.Source) CardServiceOption {
	return func(s *CardService) { s.rng = src }
}

// NewCardService creates a CardService. It panics if cards or srsService is nil.
func NewCardService(
	cards store.CardStore,
	srsService srs.Service,
	logger *slog.Logger,
	opts ...CardServiceOption,
) *CardService {
	if cards == nil {
		panic("cards cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &CardService{
		cards:    cards,
		srs:      srsService,
		now:      time.Now,
		validate: NewValidator(),
		logger:   logger.With(slog.String("component", "card_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = random.New(nil)
	}
	return s
}

// CreateCard validates input and stores a new card that is due immediately.
func (s *CardService) CreateCard(ctx context.Context, input CardInput) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := ValidateInput(s.validate, input); err != nil {
		log.Warn("invalid card input", slog.String("error", err.Error()))
		return nil, err
	}

	card, err := domain.NewCard(input.Question, input.Answer, input.Category, input.Difficulty, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.cards.Create(ctx, card); err != nil {
		log.Error("failed to create card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return nil, NewServiceError("create_card", "failed to save card", err)
	}

	log.Info("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("category", card.Category))
	return card, nil
}

// GetCard retrieves a card by its ID.
func (s *CardService) GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		if !store.IsNotFoundError(err) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve card",
				slog.String("error", err.Error()),
				slog.String("card_id", id.String()))
		}
		return nil, NewServiceError("get_card", "failed to retrieve card", err)
	}
	return card, nil
}

// EditCard replaces the card's content. Scheduling state is untouched and a
// category change moves the card between category indexes.
func (s *CardService) EditCard(ctx context.Context, id uuid.UUID, input CardInput) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := ValidateInput(s.validate, input); err != nil {
		return nil, err
	}

	now := s.now()
	card, err := s.cards.Update(ctx, id, func(c *domain.Card) error {
		return c.Edit(input.Question, input.Answer, input.Category, input.Difficulty, now)
	})
	if err != nil {
		log.Error("failed to edit card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, NewServiceError("edit_card", "failed to update card", err)
	}

	log.Debug("card edited", slog.String("card_id", id.String()))
	return card, nil
}

// DeleteCard removes a card and its index entries.
func (s *CardService) DeleteCard(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.cards.Delete(ctx, id); err != nil {
		log.Error("failed to delete card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return NewServiceError("delete_card", "failed to delete card", err)
	}

	log.Info("card deleted", slog.String("card_id", id.String()))
	return nil
}

// SetActive activates or deactivates a card. Inactive cards are never
// selected for sessions.
func (s *CardService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Card, error) {
	now := s.now()
	card, err := s.cards.Update(ctx, id, func(c *domain.Card) error {
		c.Active = active
		c.UpdatedAt = now
		return nil
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to change card activation",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()),
			slog.Bool("active", active))
		return nil, NewServiceError("set_active", "failed to update card", err)
	}
	return card, nil
}

// ReviewCard applies a graded review to the stored card atomically.
func (s *CardService) ReviewCard(ctx context.Context, id uuid.UUID, quality int, now time.Time) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := domain.ValidateQuality(quality); err != nil {
		return nil, err
	}

	card, err := s.cards.Update(ctx, id, func(c *domain.Card) error {
		next, err := s.srs.Update(c, quality, now)
		if err != nil {
			return err
		}
		*c = *next
		return nil
	})
	if err != nil {
		log.Error("failed to review card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()),
			slog.Int("quality", quality))
		return nil, NewServiceError("review_card", "failed to apply review", err)
	}

	log.Debug("card reviewed",
		slog.String("card_id", id.String()),
		slog.Int("quality", quality),
		slog.Int("interval", card.Interval),
		slog.Float64("easiness_factor", card.EasinessFactor))
	return card, nil
}

// SelectDue returns up to limit active cards with NextReview at or before now.
// Cards never reviewed come first; within each group the earliest NextReview
// leads and ties are broken by ID.
func (s *CardService) SelectDue(
	ctx context.Context,
	category *string,
	limit int,
	now time.Time,
) ([]*domain.Card, error) {
	cards, err := s.activeCards(ctx, "select_due", category, limit)
	if err != nil || len(cards) == 0 {
		return cards, err
	}

	due := slices.DeleteFunc(cards, func(c *domain.Card) bool {
		return c.NextReview.After(now)
	})
	slices.SortFunc(due, func(a, b *domain.Card) int {
		aNew, bNew := a.Repetitions == 0, b.Repetitions == 0
		if aNew != bNew {
			if aNew {
				return -1
			}
			return 1
		}
		if c := a.NextReview.Compare(b.NextReview); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	return truncate(due, limit), nil
}

// SelectNew returns up to limit active, never-reviewed cards in random order.
func (s *CardService) SelectNew(ctx context.Context, category *string, limit int) ([]*domain.Card, error) {
	cards, err := s.activeCards(ctx, "select_new", category, limit)
	if err != nil || len(cards) == 0 {
		return cards, err
	}

	fresh := slices.DeleteFunc(cards, func(c *domain.Card) bool {
		return c.Repetitions != 0
	})
	// Canonical order first, so a seeded source reproduces the same shuffle.
	slices.SortFunc(fresh, func(a, b *domain.Card) int {
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	random.Shuffle(s.rng, fresh)

	return truncate(fresh, limit), nil
}

// activeCards loads every active card in the category.
func (s *CardService) activeCards(
	ctx context.Context,
	operation string,
	category *string,
	limit int,
) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit < 0 {
		return nil, domain.NewValidationError("limit", "cannot be negative", nil)
	}
	if limit == 0 {
		return []*domain.Card{}, nil
	}

	ids, err := s.cards.ListIDs(ctx, category)
	if err != nil {
		log.Error("failed to list card ids", slog.String("error", err.Error()))
		return nil, NewServiceError(operation, "failed to list cards", err)
	}

	cards, err := s.cards.GetMany(ctx, ids)
	if err != nil {
		log.Error("failed to load cards", slog.String("error", err.Error()))
		return nil, NewServiceError(operation, "failed to load cards", err)
	}

	return slices.DeleteFunc(cards, func(c *domain.Card) bool { return !c.Active }), nil
}

// Categories lists the categories that contain at least one card.
func (s *CardService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.cards.Categories(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list categories",
			slog.String("error", err.Error()))
		return nil, NewServiceError("categories", "failed to list categories", err)
	}
	return categories, nil
}

// CountCards returns the number of stored cards.
func (s *CardService) CountCards(ctx context.Context) (int64, error) {
	n, err := s.cards.Count(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count cards",
			slog.String("error", err.Error()))
		return 0, NewServiceError("count_cards", "failed to count cards", err)
	}
	return n, nil
}

// SuccessRate is the share of the card's reviews graded correct.
func (s *CardService) SuccessRate(card *domain.Card) float64 {
	return s.srs.SuccessRate(card)
}

func truncate(cards []*domain.Card, limit int) []*domain.Card {
	if len(cards) > limit {
		return cards[:limit]
	}
	return cards
}
