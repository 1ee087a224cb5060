package port

import (
	"context"

	"github.com/rl1809/freezer-inventory/internal/core/domain"
)

type LedgerRepository interface {
	// Load reads the whole ledger. A store that does not exist yet yields an empty
	// ledger and no error. Unparsable quantities load as zero and are reported as warnings.
	Load(ctx context.Context) (*domain.Ledger, []domain.LoadWarning, error)

	// Save replaces the stored ledger in one atomic step, rows sorted by (location, item)
	Save(ctx context.Context, ledger *domain.Ledger) error
}
