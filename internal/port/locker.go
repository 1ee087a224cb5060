package port

import "context"

type Locker interface {
	// Lock blocks until exclusive access to the shared store is held, returning
	// domain.ErrConcurrencyConflict if the bounded wait runs out
	Lock(ctx context.Context) (unlock func() error, err error)
}
