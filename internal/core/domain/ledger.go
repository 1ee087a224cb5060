package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Ledger maps each InventoryKey to its quantity. Keys are unique and quantities are
// never negative. A Ledger is not safe for concurrent use; InventoryService owns
// the only live instance.
type Ledger struct {
	entries map[InventoryKey]decimal.Decimal
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[InventoryKey]decimal.Decimal)}
}

// Get returns zero when the key is absent.
func (l *Ledger) Get(key InventoryKey) decimal.Decimal {
	return l.entries[key]
}

func (l *Ledger) Has(key InventoryKey) bool {
	_, ok := l.entries[key]
	return ok
}

// Set stores max(qty, 0). Zero rows are kept until explicitly deleted.
func (l *Ledger) Set(key InventoryKey, qty decimal.Decimal) {
	l.entries[key] = ClampQuantity(qty)
}

func (l *Ledger) Delete(key InventoryKey) {
	delete(l.entries, key)
}

// DeleteAllForLocation removes every row at location and returns how many went.
func (l *Ledger) DeleteAllForLocation(location string) int {
	removed := 0
	for key := range l.entries {
		if key.Location == location {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// ZeroAllForLocation sets every row at location to zero, keeping the rows.
func (l *Ledger) ZeroAllForLocation(location string) int {
	zeroed := 0
	for key := range l.entries {
		if key.Location == location {
			l.entries[key] = decimal.Zero
			zeroed++
		}
	}
	return zeroed
}

func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns every row sorted by location, then item.
func (l *Ledger) Entries() []LedgerEntry {
	out := make([]LedgerEntry, 0, len(l.entries))
	for key, qty := range l.entries {
		out = append(out, LedgerEntry{InventoryKey: key, Quantity: qty})
	}
	sortEntries(out)
	return out
}

// EntriesFor returns the rows at location sorted by item.
func (l *Ledger) EntriesFor(location string) []LedgerEntry {
	out := make([]LedgerEntry, 0)
	for key, qty := range l.entries {
		if key.Location == location {
			out = append(out, LedgerEntry{InventoryKey: key, Quantity: qty})
		}
	}
	sortEntries(out)
	return out
}

// TotalFor sums the quantity of item across all locations.
func (l *Ledger) TotalFor(item string) decimal.Decimal {
	total := decimal.Zero
	for key, qty := range l.entries {
		if key.Item == item {
			total = total.Add(qty)
		}
	}
	return total
}

func (l *Ledger) Clone() *Ledger {
	cp := &Ledger{entries: make(map[InventoryKey]decimal.Decimal, len(l.entries))}
	for key, qty := range l.entries {
		cp.entries[key] = qty
	}
	return cp
}

func sortEntries(entries []LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].InventoryKey.Less(entries[j].InventoryKey)
	})
}
