// Package mocks provides in-memory store implementations for service tests.
//
// Each mock keeps its records in maps guarded by a mutex and honours the
// store contracts (not-found sentinels, atomic updates, index maintenance),
// so services can be exercised end to end without Redis or PostgreSQL.
// Behaviour can be overridden per method through the Fn fields, and Err
// makes every method fail, which lets tests drive error paths:
//
//	cards := mocks.NewMockCardStore()
//	cards.UpdateFn = func(ctx context.Context, id uuid.UUID, fn store.CardMutation) (*domain.Card, error) {
//	    return nil, store.ErrCardNotFound
//	}
package mocks
