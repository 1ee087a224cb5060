package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/freezer-inventory/internal/core/domain"
	"github.com/rl1809/freezer-inventory/internal/port"
)

// DefaultRefillThreshold is the quantity at or below which a flavor needs restocking.
var DefaultRefillThreshold = decimal.NewFromInt(1)

type InventoryService struct {
	mu        sync.Mutex
	ledger    *domain.Ledger
	repo      port.LedgerRepository
	locker    port.Locker
	locations []string
	valid     map[string]struct{}
	threshold decimal.Decimal
	logger    *zap.Logger
	metrics   MetricsRecorder
}

type Option func(*InventoryService)

func WithLogger(logger *zap.Logger) Option {
	return func(s *InventoryService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocker shares the store with other processes. Each mutation then holds the
// lock and reloads the ledger before changing it.
func WithLocker(locker port.Locker) Option {
	return func(s *InventoryService) {
		s.locker = locker
	}
}

func WithMetrics(metrics MetricsRecorder) Option {
	return func(s *InventoryService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

func WithRefillThreshold(threshold decimal.Decimal) Option {
	return func(s *InventoryService) {
		s.threshold = domain.ClampQuantity(threshold)
	}
}

// NewInventoryService loads the ledger from repo and returns a service bound to the
// configured freezer locations.
func NewInventoryService(ctx context.Context, repo port.LedgerRepository, locations []string, opts ...Option) (*InventoryService, []domain.LoadWarning, error) {
	s := &InventoryService{
		repo:      repo,
		valid:     make(map[string]struct{}),
		threshold: DefaultRefillThreshold,
		logger:    zap.NewNop(),
		metrics:   noopMetrics{},
	}
	for _, loc := range locations {
		loc = strings.TrimSpace(loc)
		if loc == "" {
			continue
		}
		if _, dup := s.valid[loc]; dup {
			continue
		}
		s.valid[loc] = struct{}{}
		s.locations = append(s.locations, loc)
	}
	if len(s.locations) == 0 {
		return nil, nil, &domain.ValidationError{Field: "locations", Reason: "at least one freezer must be configured"}
	}
	for _, opt := range opts {
		opt(s)
	}

	warnings, err := s.Refresh(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, warnings, nil
}

// Locations returns the configured freezers in configured order.
func (s *InventoryService) Locations() []string {
	return append([]string(nil), s.locations...)
}

// Refresh replaces the in-memory ledger with the stored one.
func (s *InventoryService) Refresh(ctx context.Context) ([]domain.LoadWarning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var warnings []domain.LoadWarning
	err := s.withStoreLock(ctx, func() error {
		ledger, w, err := s.load(ctx)
		if err != nil {
			return err
		}
		s.ledger = ledger
		warnings = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.SetEntryCount(s.ledger.Len())
	return warnings, nil
}

// Add puts qty units of item into location, merging with any existing row.
func (s *InventoryService) Add(ctx context.Context, location, item string, qty decimal.Decimal) (decimal.Decimal, error) {
	key, err := s.validKey(location, item)
	if err != nil {
		return decimal.Zero, s.observe("add", time.Now(), err)
	}
	if err := validQuantity(qty); err != nil {
		return decimal.Zero, s.observe("add", time.Now(), err)
	}

	var result decimal.Decimal
	err = s.mutate(ctx, "add", func(l *domain.Ledger) error {
		l.Set(key, l.Get(key).Add(qty))
		result = l.Get(key)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("added gelato",
		zap.String("location", key.Location),
		zap.String("item", key.Item),
		zap.String("added", qty.String()),
		zap.String("quantity", result.String()),
	)
	return result, nil
}

// Consume takes qty units out of an existing row. Taking more than is held leaves zero.
func (s *InventoryService) Consume(ctx context.Context, location, item string, qty decimal.Decimal) (decimal.Decimal, error) {
	key, err := s.validKey(location, item)
	if err != nil {
		return decimal.Zero, s.observe("consume", time.Now(), err)
	}
	if err := validQuantity(qty); err != nil {
		return decimal.Zero, s.observe("consume", time.Now(), err)
	}

	var result decimal.Decimal
	err = s.mutate(ctx, "consume", func(l *domain.Ledger) error {
		if !l.Has(key) {
			return &domain.NotFoundError{Location: key.Location, Item: key.Item}
		}
		l.Set(key, l.Get(key).Sub(qty))
		result = l.Get(key)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("used gelato",
		zap.String("location", key.Location),
		zap.String("item", key.Item),
		zap.String("used", qty.String()),
		zap.String("quantity", result.String()),
	)
	return result, nil
}

// Transfer moves the whole quantity of item from one freezer to another. The source
// row is deleted and the destination row is created or increased in the same save.
// A source row holding zero is still moved.
func (s *InventoryService) Transfer(ctx context.Context, fromLocation, toLocation, item string) (decimal.Decimal, error) {
	from, err := s.validKey(fromLocation, item)
	if err != nil {
		return decimal.Zero, s.observe("transfer", time.Now(), err)
	}
	to, err := s.validKey(toLocation, item)
	if err != nil {
		return decimal.Zero, s.observe("transfer", time.Now(), err)
	}
	if from.Location == to.Location {
		err := &domain.ValidationError{Field: "location", Reason: "source and destination freezers must differ"}
		return decimal.Zero, s.observe("transfer", time.Now(), err)
	}

	var moved decimal.Decimal
	err = s.mutate(ctx, "transfer", func(l *domain.Ledger) error {
		if !l.Has(from) {
			return &domain.NotFoundError{Location: from.Location, Item: from.Item}
		}
		moved = l.Get(from)
		l.Set(to, l.Get(to).Add(moved))
		l.Delete(from)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("switched freezer",
		zap.String("from", from.Location),
		zap.String("to", to.Location),
		zap.String("item", from.Item),
		zap.String("quantity", moved.String()),
	)
	return moved, nil
}

// RemoveLocation deletes every row in a freezer and returns how many were removed.
func (s *InventoryService) RemoveLocation(ctx context.Context, location string) (int, error) {
	return s.locationWide(ctx, "remove_location", location, (*domain.Ledger).DeleteAllForLocation)
}

// ZeroLocation sets every row in a freezer to zero, keeping the rows.
func (s *InventoryService) ZeroLocation(ctx context.Context, location string) (int, error) {
	return s.locationWide(ctx, "zero_location", location, (*domain.Ledger).ZeroAllForLocation)
}

func (s *InventoryService) locationWide(ctx context.Context, op, location string, apply func(*domain.Ledger, string) int) (int, error) {
	loc, err := s.validLocation(location)
	if err != nil {
		return 0, s.observe(op, time.Now(), err)
	}

	var n int
	err = s.mutate(ctx, op, func(l *domain.Ledger) error {
		n = apply(l, loc)
		if n == 0 {
			return &domain.NotFoundError{Location: loc}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("freezer updated", zap.String("op", op), zap.String("location", loc), zap.Int("rows", n))
	return n, nil
}

// RefillSuggestions lists, per freezer, the flavors at or below threshold sorted by
// name. Freezers with nothing to refill are left out.
func (s *InventoryService) RefillSuggestions(threshold decimal.Decimal) map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]string)
	for _, e := range s.ledger.Entries() {
		if e.Quantity.LessThanOrEqual(threshold) {
			out[e.Location] = append(out[e.Location], e.Item)
		}
	}
	for loc := range out {
		sort.Strings(out[loc])
	}
	return out
}

// DefaultRefillSuggestions uses the configured threshold.
func (s *InventoryService) DefaultRefillSuggestions() map[string][]string {
	return s.RefillSuggestions(s.threshold)
}

// ListContents returns the rows of one freezer sorted by flavor.
func (s *InventoryService) ListContents(location string) ([]domain.LedgerEntry, error) {
	loc, err := s.validLocation(location)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.EntriesFor(loc), nil
}

// ListAll returns every row sorted by freezer, then flavor.
func (s *InventoryService) ListAll() []domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Entries()
}

// mutate runs fn against a copy of the ledger and swaps the copy in only after it
// has been saved, so a failed save leaves memory and store untouched.
func (s *InventoryService) mutate(ctx context.Context, op string, fn func(*domain.Ledger) error) (err error) {
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.withStoreLock(ctx, func() error {
		base := s.ledger
		if s.locker != nil {
			fresh, _, err := s.load(ctx)
			if err != nil {
				return err
			}
			s.ledger = fresh
			base = fresh
		}

		next := base.Clone()
		if err := fn(next); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, next); err != nil {
			s.logger.Error("failed to save ledger", zap.String("op", op), zap.Error(err))
			return fmt.Errorf("%s: %w", op, err)
		}
		s.ledger = next
		return nil
	})
	if err == nil {
		s.metrics.SetEntryCount(s.ledger.Len())
	}
	return err
}

func (s *InventoryService) withStoreLock(ctx context.Context, fn func() error) error {
	if s.locker == nil {
		return fn()
	}

	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := unlock(); uerr != nil {
			s.logger.Warn("failed to release store lock", zap.Error(uerr))
		}
	}()
	return fn()
}

func (s *InventoryService) load(ctx context.Context) (*domain.Ledger, []domain.LoadWarning, error) {
	ledger, warnings, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load ledger", zap.Error(err))
		return nil, nil, err
	}
	for _, w := range warnings {
		s.logger.Warn("quantity coerced to zero",
			zap.String("location", w.Key.Location),
			zap.String("item", w.Key.Item),
			zap.Int("line", w.Line),
			zap.String("raw", w.Raw),
			zap.String("reason", w.Reason),
		)
	}
	return ledger, warnings, nil
}

func (s *InventoryService) observe(op string, start time.Time, err error) error {
	s.metrics.ObserveOperation(op, time.Since(start), err)
	return err
}

func (s *InventoryService) validLocation(location string) (string, error) {
	loc := strings.TrimSpace(location)
	if _, ok := s.valid[loc]; !ok {
		return "", &domain.ValidationError{
			Field:  "location",
			Reason: fmt.Sprintf("%q is not one of %s", location, strings.Join(s.locations, ", ")),
		}
	}
	return loc, nil
}

func (s *InventoryService) validKey(location, item string) (domain.InventoryKey, error) {
	loc, err := s.validLocation(location)
	if err != nil {
		return domain.InventoryKey{}, err
	}
	key := domain.NewInventoryKey(loc, item)
	if key.Item == "" {
		return domain.InventoryKey{}, &domain.ValidationError{Field: "item", Reason: "must not be empty"}
	}
	return key, nil
}

func validQuantity(qty decimal.Decimal) error {
	_, err := domain.CheckQuantity(qty)
	return err
}
