package redis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/store"
)

func TestCardStore_CreateAndGet(t *testing.T) {
	t.Parallel()
	client, mr := newTestClient(t)
	s := NewCardStore(client, testPrefix, discardLogger())
	ctx := context.Background()

	card := newTestCard(t, "math")
	require.NoError(t, s.Create(ctx, card))

	got, err := s.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID)
	assert.Equal(t, card.Question, got.Question)
	assert.True(t, card.NextReview.Equal(got.NextReview))

	assert.True(t, mr.Exists(testPrefix+"card:"+card.ID.String()))
	members, err := mr.Members(testPrefix + "category:math")
	require.NoError(t, err)
	assert.Equal(t, []string{card.ID.String()}, members)

	err = s.Create(ctx, card)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCardStore_CreateRejectsInvalid(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t)
	s := NewCardStore(client, testPrefix, discardLogger())

	card := newTestCard(t, "math")
	card.Question = ""
	assert.ErrorIs(t, s.Create(context.Background(), card), domain.ErrValidation)
}

func TestCardStore_GetByIDErrors(t *testing.T) {
	t.Parallel()
	client, mr := newTestClient(t)
	s := NewCardStore(client, testPrefix, discardLogger())
	ctx := context.Background()

	_, err := s.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrCardNotFound)

	id := uuid.New()
	require.NoError(t, mr.Set(testPrefix+"card:"+id.String(), "{not json"))
	_, err = s.GetByID(ctx, id)
	assert.ErrorIs(t, err, store.ErrCorruptRecord)
	assert.ErrorIs(t, err, store.ErrStorage)
}

func TestCardStore_GetManyAndList(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t)
	s := NewCardStore(client, testPrefix, discardLogger())
	ctx := context.Background()

	a := newTestCard(t, "math")
	b := newTestCard(t, "art")
	c := newTestCard(t, "math")
	for _, card := range []*domain.Card{a, b, c} {
		require.NoError(t, s.Create(ctx, card))
	}

	cards, err := s.GetMany(ctx, []uuid.UUID{c.ID, uuid.New(), a.ID})
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, c.ID, cards[0].ID)
	assert.Equal(t, a.ID, cards[1].ID)

	all, err := s.ListIDs(ctx, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID, c.ID}, all)

	math := "math"
	mathIDs, err := s.ListIDs(ctx, &math)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, c.ID}, mathIDs)

	none := "history"
	empty, err := s.ListIDs(ctx, &none)
	require.NoError(t, err)
	assert.Empty(t, empty)

	categories, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"art", "math"}, categories)
}

func TestCardStore_UpdateMovesCategory(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t)
	s := NewCardStore(client, testPrefix, discardLogger())
	ctx := context.Background()

	card := newTestCard(t, "math")
	require.NoError(t, s.Create(ctx, card))

	updated, err := s.Update(ctx, card.ID, func(c *domain.Card) error {
		c.Category = "physics"
		c.ID = uuid.New()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, card.ID, updated.ID, "id cannot change")
	assert.Equal(t, "physics", updated.Category)

	math := "math"
	ids, err := s.ListIDs(ctx, &math)
	require.NoError(t, err)
	assert.Empty(t, ids)

	physics := "physics"
	ids, err = s.ListIDs(ctx, &physics)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{card.ID}, ids)

	categories, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"physics"}, categories)
}

func TestCardStore_UpdateErrors(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t)
	s := NewCardStore(client, testPrefix, discardLogger())
	ctx := context.Background()

	_, err := s.Update(ctx, uuid.New(), func(c *domain.Card) error { return nil })
	assert.ErrorIs(t, err, store.ErrCardNotFound)

	card := newTestCard(t, "math")
	require.NoError(t, s.Create(ctx, card))

	sentinel := errors.New("abort")
	_, err = s.Update(ctx, card.ID, func(c *domain.Card) error {
		c.Question = "changed"
		return sentinel
	})
	assert.Same(t, sentinel, err)

	_, err = s.Update(ctx, card.ID, func(c *domain.Card) error {
		c.EasinessFactor = 1.0
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := s.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.Question, got.Question)
	assert.Equal(t, card.EasinessFactor, got.EasinessFactor)
}

func TestCardStore_ConcurrentUpdatesAreNotLost(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t)
	s := NewCardStore(client, testPrefix, discardLogger())
	ctx := context.Background()

	card := newTestCard(t, "math")
	require.NoError(t, s.Create(ctx, card))

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, card.ID, func(c *domain.Card) error {
				c.TotalAttempts++
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, writers, got.TotalAttempts)
}

func TestCardStore_Delete(t *testing.T) {
	t.Parallel()
	client, mr := newTestClient(t)
	s := NewCardStore(client, testPrefix, discardLogger())
	ctx := context.Background()

	card := newTestCard(t, "math")
	other := newTestCard(t, "math")
	require.NoError(t, s.Create(ctx, card))
	require.NoError(t, s.Create(ctx, other))

	require.NoError(t, s.Delete(ctx, card.ID))

	_, err := s.GetByID(ctx, card.ID)
	assert.ErrorIs(t, err, store.ErrCardNotFound)

	all, err := s.ListIDs(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{other.ID}, all)

	members, err := mr.Members(testPrefix + "category:math")
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID.String()}, members)

	assert.ErrorIs(t, s.Delete(ctx, card.ID), store.ErrCardNotFound)
}

func TestCardStore_BackendFailure(t *testing.T) {
	t.Parallel()
	client, mr := newTestClient(t)
	s := NewCardStore(client, testPrefix, discardLogger())
	mr.Close()

	_, err := s.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStorage)
	assert.False(t, store.IsNotFoundError(err))

	_, err = s.Count(context.Background())
	assert.ErrorIs(t, err, store.ErrStorage)
}
