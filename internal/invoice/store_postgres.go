package invoice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"recoup/pkg/domain"
	"recoup/pkg/platform/sentinel"
	txcontext "recoup/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const invoiceColumns = `
	id, invoice_number, amount, due_date, customer_id, customer_name, region, status, created_at
`

func (s *PostgresStore) CreateIfNumberAvailable(ctx context.Context, inv Invoice) error {
	const query = `
		INSERT INTO invoices (id, invoice_number, amount, due_date, customer_id, customer_name, region, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (invoice_number) DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		inv.ID.String(), inv.Number, inv.Amount, inv.DueDate,
		inv.CustomerID, inv.CustomerName, inv.Region, inv.Status, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.InvoiceID) (Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return s.findOne(ctx, query, id.String())
}

func (s *PostgresStore) FindByNumber(ctx context.Context, number string) (Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_number = $1`
	return s.findOne(ctx, query, number)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (Invoice, error) {
	row := s.execer(ctx).QueryRowContext(ctx, query, arg)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Invoice{}, sentinel.ErrNotFound
	}
	return inv, err
}

func (s *PostgresStore) List(ctx context.Context) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices ORDER BY invoice_number`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM invoices`); err != nil {
		return fmt.Errorf("reset invoices: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var (
		inv Invoice
		id  string
	)
	err := row.Scan(&id, &inv.Number, &inv.Amount, &inv.DueDate,
		&inv.CustomerID, &inv.CustomerName, &inv.Region, &inv.Status, &inv.CreatedAt)
	if err != nil {
		return Invoice{}, err
	}
	parsed, err := domain.ParseInvoiceID(id)
	if err != nil {
		return Invoice{}, fmt.Errorf("parse invoice id %q: %w", id, err)
	}
	inv.ID = parsed
	return inv, nil
}
