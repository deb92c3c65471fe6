package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/scry-recall/internal/store"
)

// maxWatchRetries bounds optimistic transaction attempts before ErrConflict.
const maxWatchRetries = 16

// errAborted carries an error returned by a mutation callback out of a WATCH
// transaction so it can be handed back to the caller unwrapped.
type errAborted struct {
	err error
}

func (e *errAborted) Error() string { return e.err.Error() }

func (e *errAborted) Unwrap() error { return e.err }

// storeErr wraps a backend failure as a store.StoreError.
func storeErr(entity, operation string, err error) error {
	return store.NewStoreError(entity, operation, "redis command failed", err)
}

func decode[T any](entity string, raw []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", store.ErrCorruptRecord, entity, err)
	}
	return &v, nil
}

func parseIDs(entity string, members []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			return nil, fmt.Errorf("%w: %s index member %q", store.ErrCorruptRecord, entity, m)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func isNil(err error) bool {
	return errors.Is(err, goredis.Nil)
}

// watchUpdate runs txf with keys watched, retrying while a concurrent writer
// invalidates the transaction. Errors wrapped in errAborted are returned as is;
// any other failure is reported as a storage error.
func watchUpdate(
	ctx context.Context,
	client goredis.UniversalClient,
	entity, operation string,
	txf func(tx *goredis.Tx) error,
	keys ...string,
) error {
	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := client.Watch(ctx, txf, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}

		var aborted *errAborted
		if errors.As(err, &aborted) {
			return aborted.err
		}
		return storeErr(entity, operation, err)
	}
	return fmt.Errorf("%w: %s after %d attempts", store.ErrConflict, entity, maxWatchRetries)
}
