package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"github.com/rl1809/freezer-inventory/internal/core/domain"
)

// FlockAdapter serializes processes sharing one ledger file with an advisory
// lock on a sibling ".lock" file.
type FlockAdapter struct {
	path    string
	timeout time.Duration
	retry   time.Duration
}

func NewFlockAdapter(storePath string, timeout time.Duration) *FlockAdapter {
	return &FlockAdapter{
		path:    storePath + ".lock",
		timeout: timeout,
		retry:   defaultLockRetry,
	}
}

func (f *FlockAdapter) Lock(ctx context.Context) (func() error, error) {
	fl := flock.New(f.path)

	lockCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	ok, err := fl.TryLockContext(lockCtx, f.retry)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s held by another process", domain.ErrConcurrencyConflict, f.path)
		}
		return nil, fmt.Errorf("acquire %s: %w", f.path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s held by another process", domain.ErrConcurrencyConflict, f.path)
	}

	return fl.Unlock, nil
}
