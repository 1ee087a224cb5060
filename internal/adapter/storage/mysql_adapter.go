package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rl1809/freezer-inventory/internal/core/domain"
)

const createInventoryTable = `
CREATE TABLE IF NOT EXISTS freezer_inventory (
	location VARCHAR(64)  CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
	item     VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
	quantity DECIMAL(18,6) NULL,
	PRIMARY KEY (location, item)
)`

// MySQLAdapter stores the ledger in the freezer_inventory table.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createInventoryTable); err != nil {
		return &domain.PersistenceError{Op: "create table", Path: "freezer_inventory", Err: err}
	}
	return nil
}

func (m *MySQLAdapter) Load(ctx context.Context) (*domain.Ledger, []domain.LoadWarning, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT location, item, CAST(quantity AS CHAR)
		FROM freezer_inventory ORDER BY location, item`)
	if err != nil {
		return nil, nil, m.fail("query inventory", err)
	}
	defer rows.Close()

	ledger := domain.NewLedger()
	var warnings []domain.LoadWarning
	line := 0
	for rows.Next() {
		line++
		var location, item string
		var raw sql.NullString
		if err := rows.Scan(&location, &item, &raw); err != nil {
			return nil, nil, m.fail("scan inventory", err)
		}

		key := domain.NewInventoryKey(location, item)
		qty, err := domain.ParseQuantity(raw.String)
		if err != nil {
			warnings = append(warnings, domain.LoadWarning{Key: key, Line: line, Raw: raw.String, Reason: err.Error()})
		}
		ledger.Set(key, qty)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, m.fail("iterate inventory", err)
	}

	return ledger, warnings, nil
}

// Save replaces every row in one transaction.
func (m *MySQLAdapter) Save(ctx context.Context, ledger *domain.Ledger) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return m.fail("begin tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM freezer_inventory`); err != nil {
		return m.fail("clear inventory", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO freezer_inventory (location, item, quantity) VALUES (?, ?, ?)`)
	if err != nil {
		return m.fail("prepare insert", err)
	}
	defer stmt.Close()

	for _, e := range ledger.Entries() {
		if _, err := stmt.ExecContext(ctx, e.Location, e.Item, e.Quantity.String()); err != nil {
			return m.fail(fmt.Sprintf("insert %s", e.InventoryKey), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return m.fail("commit", err)
	}
	return nil
}

func (m *MySQLAdapter) fail(op string, err error) error {
	return &domain.PersistenceError{Op: op, Path: "freezer_inventory", Err: err}
}
