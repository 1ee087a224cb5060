package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rl1809/freezer-inventory/internal/core/domain"
)

var csvHeader = []string{"Location", "Item", "Quantity"}

const (
	utf8BOM         = "\ufeff"
	defaultFileMode = 0o644
)

// CSVAdapter keeps the ledger in a single CSV file with a (Location, Item) key.
type CSVAdapter struct {
	path string
}

func NewCSVAdapter(path string) *CSVAdapter {
	return &CSVAdapter{path: path}
}

func (c *CSVAdapter) Path() string {
	return c.path
}

func (c *CSVAdapter) Load(ctx context.Context) (*domain.Ledger, []domain.LoadWarning, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	f, err := os.Open(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewLedger(), nil, nil
	}
	if err != nil {
		return nil, nil, c.fail("open", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, c.fail("read", err)
	}

	ledger := domain.NewLedger()
	if len(records) == 0 {
		return ledger, nil, nil
	}
	records[0][0] = strings.TrimPrefix(records[0][0], utf8BOM)
	if !isHeader(records[0]) {
		return nil, nil, c.fail("read", fmt.Errorf("unexpected header %q", records[0]))
	}

	var warnings []domain.LoadWarning
	for i, row := range records[1:] {
		line := i + 2
		if len(row) < 2 {
			return nil, nil, c.fail("read", fmt.Errorf("line %d: missing key columns", line))
		}
		key := domain.NewInventoryKey(row[0], row[1])
		if key.Location == "" || key.Item == "" {
			return nil, nil, c.fail("read", fmt.Errorf("line %d: empty key column", line))
		}
		if ledger.Has(key) {
			return nil, nil, c.fail("read", fmt.Errorf("line %d: duplicate key %s", line, key))
		}

		raw := ""
		if len(row) > 2 {
			raw = row[2]
		}
		qty, err := domain.ParseQuantity(raw)
		if err != nil {
			warnings = append(warnings, domain.LoadWarning{Key: key, Line: line, Raw: raw, Reason: err.Error()})
		}
		ledger.Set(key, qty)
	}
	return ledger, warnings, nil
}

// Save writes to a temp file in the same directory and renames it over the target,
// so readers only ever see the previous or the new file.
func (c *CSVAdapter) Save(ctx context.Context, ledger *domain.Ledger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, base := filepath.Split(c.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return c.fail("create temp", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	rows := [][]string{csvHeader}
	for _, e := range ledger.Entries() {
		rows = append(rows, []string{e.Location, e.Item, e.Quantity.String()})
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return c.fail("write", err)
	}
	if err := tmp.Chmod(c.fileMode()); err != nil {
		tmp.Close()
		return c.fail("chmod", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return c.fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return c.fail("close", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return c.fail("rename", err)
	}
	return nil
}

// fileMode keeps the permissions of the file being replaced; CreateTemp
// would otherwise leave the store at 0600.
func (c *CSVAdapter) fileMode() fs.FileMode {
	if info, err := os.Stat(c.path); err == nil {
		return info.Mode().Perm()
	}
	return defaultFileMode
}

func (c *CSVAdapter) fail(op string, err error) error {
	return &domain.PersistenceError{Op: op, Path: c.path, Err: err}
}

func isHeader(row []string) bool {
	if len(row) < len(csvHeader) {
		return false
	}
	for i, want := range csvHeader {
		if !strings.EqualFold(strings.TrimSpace(row[i]), want) {
			return false
		}
	}
	return true
}
