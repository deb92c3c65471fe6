// Package quiz runs study sessions: it builds a card queue, walks the user
// through it one graded answer at a time and scores the result.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/events"
	"github.com/phrazzld/scry-recall/internal/platform/logger"
	"github.com/phrazzld/scry-recall/internal/platform/random"
	"github.com/phrazzld/scry-recall/internal/service"
	"github.com/phrazzld/scry-recall/internal/store"
)

var (
	// ErrSessionCompleted is returned when answering a finished session.
	ErrSessionCompleted = fmt.Errorf("%w: session already completed", domain.ErrInvalidState)

	// ErrSessionAdvanced is returned when another writer answered the same
	// question first.
	ErrSessionAdvanced = fmt.Errorf("%w: session advanced concurrently", domain.ErrInvalidState)

	// ErrSessionActive is returned when a completed session is required.
	ErrSessionActive = fmt.Errorf("%w: session not completed", domain.ErrInvalidState)
)

// CardScheduler is the part of the card service the quiz depends on.
type CardScheduler interface {
	SelectDue(ctx context.Context, category *string, limit int, now time.Time) ([]*domain.Card, error)
	SelectNew(ctx context.Context, category *string, limit int) ([]*domain.Card, error)
	GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	ReviewCard(ctx context.Context, id uuid.UUID, quality int, now time.Time) (*domain.Card, error)
}

// StartInput describes a session to start. A nil Category draws from every
// category.
type StartInput struct {
	UserID   string             `json:"user_id" validate:"notblank"`
	Category *string            `json:"category,omitempty"`
	Type     domain.SessionType `json:"type"`
	MaxCards int                `json:"max_cards" validate:"min=1"`
}

// Status is a session together with its derived progress figures.
type Status struct {
	Session  *domain.Session `json:"session"`
	Progress int             `json:"progress"`
	Accuracy float64         `json:"accuracy"`
}

// Service orchestrates quiz sessions.
type Service struct {
	cards    CardScheduler
	sessions store.SessionStore
	emitter  events.EventEmitter
	policy   domain.ScoringPolicy
	rng      *random.Source
	now      func() time.Time
	locks    *keyLocks
	validate *validator.Validate
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for session timing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandom sets the random source used to shuffle mixed queues.
func WithRandom(src *random.Source) Option {
	return func(s *Service) { s.rng = src }
}

// WithScoringPolicy overrides the speed bonus rules.
func WithScoringPolicy(policy domain.ScoringPolicy) Option {
	return func(s *Service) { s.policy = policy }
}

// NewService creates a quiz Service. It panics if any dependency is nil.
func NewService(
	cards CardScheduler,
	sessions store.SessionStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if cards == nil {
		panic("cards cannot be nil")
	}
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if emitter == nil {
		panic("emitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cards:    cards,
		sessions: sessions,
		emitter:  emitter,
		policy:   domain.DefaultScoringPolicy(),
		now:      time.Now,
		locks:    newKeyLocks(),
		validate: service.NewValidator(),
		logger:   logger.With(slog.String("component", "quiz_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = random.New(nil)
	}
	return s
}

// Start builds the card queue for input and persists a new session. An empty
// queue yields a session that is already completed.
func (s *Service) Start(ctx context.Context, input StartInput) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := service.ValidateInput(s.validate, input); err != nil {
		log.Warn("invalid session request", slog.String("error", err.Error()))
		return nil, err
	}

	now := s.now()
	queue, err := s.buildQueue(ctx, input, now)
	if err != nil {
		return nil, err
	}

	session, err := domain.NewSession(input.UserID, input.Category, input.Type, queue, now)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("user_id", input.UserID))
		return nil, service.NewServiceError("start_session", "failed to save session", err)
	}

	log.Info("session started",
		slog.String("session_id", session.ID.String()),
		slog.String("user_id", session.UserID),
		slog.String("type", string(session.Type)),
		slog.Int("card_count", len(session.CardIDs)))
	return session, nil
}

func (s *Service) buildQueue(ctx context.Context, input StartInput, now time.Time) ([]uuid.UUID, error) {
	var (
		cards []*domain.Card
		err   error
	)

	switch input.Type {
	case domain.SessionTypeReview:
		cards, err = s.cards.SelectDue(ctx, input.Category, input.MaxCards, now)
	case domain.SessionTypeNew:
		cards, err = s.cards.SelectNew(ctx, input.Category, input.MaxCards)
	case domain.SessionTypeMixed:
		cards, err = s.mixedQueue(ctx, input, now)
	default:
		return nil, domain.NewValidationError("type", fmt.Sprintf("unknown session type %q", input.Type), nil)
	}
	if err != nil {
		return nil, service.NewServiceError("start_session", "failed to select cards", err)
	}

	queue := make([]uuid.UUID, 0, len(cards))
	seen := make(map[uuid.UUID]bool, len(cards))
	for _, c := range cards {
		if seen[c.ID] || len(queue) == input.MaxCards {
			continue
		}
		seen[c.ID] = true
		queue = append(queue, c.ID)
	}
	return queue, nil
}

// mixedQueue takes up to half the budget from due cards, fills the rest with
// new cards not already chosen and shuffles the result.
func (s *Service) mixedQueue(ctx context.Context, input StartInput, now time.Time) ([]*domain.Card, error) {
	var due []*domain.Card
	if half := input.MaxCards / 2; half > 0 {
		var err error
		due, err = s.cards.SelectDue(ctx, input.Category, half, now)
		if err != nil {
			return nil, err
		}
	}

	fresh, err := s.cards.SelectNew(ctx, input.Category, input.MaxCards)
	if err != nil {
		return nil, err
	}

	chosen := make(map[uuid.UUID]bool, len(due))
	for _, c := range due {
		chosen[c.ID] = true
	}
	fresh = slices.DeleteFunc(fresh, func(c *domain.Card) bool { return chosen[c.ID] })
	if room := input.MaxCards - len(due); len(fresh) > room {
		fresh = fresh[:room]
	}

	queue := slices.Concat(due, fresh)
	random.Shuffle(s.rng, queue)
	return queue, nil
}

// CurrentCard returns the card awaiting an answer, or nil once the session is
// exhausted.
func (s *Service) CurrentCard(ctx context.Context, sessionID uuid.UUID) (*domain.Card, error) {
	session, err := s.getSession(ctx, "current_card", sessionID)
	if err != nil {
		return nil, err
	}

	cardID, ok := session.CurrentCardID()
	if !ok {
		return nil, nil
	}

	card, err := s.cards.GetCard(ctx, cardID)
	if err != nil {
		return nil, service.NewServiceError("current_card", "failed to load current card", err)
	}
	return card, nil
}

// SubmitAnswer records a graded answer for the current card and then
// reschedules that card. The session's CurrentIndex is claimed first, so an
// answer rejected because another writer got there first never touches the
// card. When the queue is exhausted the session completes and a
// session.completed event is emitted. It returns the rescheduled card.
//
// A failure after the session write leaves the answer recorded; the card
// review or the completion event may then be missing. PublishCompletion
// re-emits the event.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID uuid.UUID, quality int) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("session_id", sessionID.String()))

	unlock := s.locks.lock(sessionID.String())
	defer unlock()

	session, err := s.getSession(ctx, "submit_answer", sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed {
		return nil, ErrSessionCompleted
	}
	if err := domain.ValidateQuality(quality); err != nil {
		return nil, err
	}

	cardID, _ := session.CurrentCardID()
	index := session.CurrentIndex

	// A deleted card must not consume a slot in the session.
	if _, err := s.cards.GetCard(ctx, cardID); err != nil {
		return nil, service.NewServiceError("submit_answer", "failed to load current card", err)
	}

	now := s.now()
	updated, err := s.sessions.Update(ctx, sessionID, func(cur *domain.Session) error {
		if cur.Completed {
			return ErrSessionCompleted
		}
		if cur.CurrentIndex != index {
			return ErrSessionAdvanced
		}
		_, err := cur.RecordResponse(quality, now, s.policy)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidState) {
			log.Error("failed to record answer", slog.String("error", err.Error()))
		}
		return nil, service.NewServiceError("submit_answer", "failed to record answer", err)
	}

	card, reviewErr := s.cards.ReviewCard(ctx, cardID, quality, now)
	if reviewErr != nil {
		log.Error("answer recorded but card review failed",
			slog.String("card_id", cardID.String()),
			slog.String("error", reviewErr.Error()))
	} else {
		log.Debug("answer recorded",
			slog.String("card_id", cardID.String()),
			slog.Int("quality", quality),
			slog.Int("progress", updated.Progress()))
	}

	if updated.Completed {
		if err := s.emitCompleted(ctx, updated, now); err != nil {
			log.Error("failed to publish session completion", slog.String("error", err.Error()))
			return nil, service.NewServiceError("submit_answer", "failed to publish completion", err)
		}
		log.Info("session completed",
			slog.String("user_id", updated.UserID),
			slog.Int("score", updated.Score),
			slog.Int64("total_time_ms", updated.TotalTimeSpent))
	}

	if reviewErr != nil {
		return nil, service.NewServiceError("submit_answer", "failed to review card", reviewErr)
	}
	return card, nil
}

// PublishCompletion emits the session.completed event again for a completed
// session, for use after a failed delivery. Leaderboard increments are keyed
// by session id, so publishing more than once credits the score once.
// Sessions completed with an empty queue publish nothing.
func (s *Service) PublishCompletion(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.getSession(ctx, "publish_completion", sessionID)
	if err != nil {
		return err
	}
	if !session.Completed {
		return ErrSessionActive
	}
	if len(session.CardIDs) == 0 {
		return nil
	}

	if err := s.emitCompleted(ctx, session, s.now()); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to publish session completion",
			slog.String("session_id", sessionID.String()),
			slog.String("error", err.Error()))
		return service.NewServiceError("publish_completion", "failed to publish completion", err)
	}
	return nil
}

func (s *Service) emitCompleted(ctx context.Context, session *domain.Session, now time.Time) error {
	event, err := events.NewSessionCompletedEvent(session, now)
	if err != nil {
		return err
	}
	return s.emitter.EmitEvent(ctx, event)
}

// Status returns the session with its progress and accuracy.
func (s *Service) Status(ctx context.Context, sessionID uuid.UUID) (*Status, error) {
	session, err := s.getSession(ctx, "status", sessionID)
	if err != nil {
		return nil, err
	}
	return &Status{
		Session:  session,
		Progress: session.Progress(),
		Accuracy: session.Accuracy(),
	}, nil
}

func (s *Service) getSession(ctx context.Context, operation string, id uuid.UUID) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if !store.IsNotFoundError(err) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to load session",
				slog.String("error", err.Error()),
				slog.String("session_id", id.String()))
		}
		return nil, service.NewServiceError(operation, "failed to load session", err)
	}
	return session, nil
}
