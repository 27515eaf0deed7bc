package cases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"recoup/pkg/domain"
	"recoup/pkg/platform/sentinel"
	txcontext "recoup/pkg/platform/tx"
)

// PostgresStore persists cases. ApplyTransition is a conditional UPDATE keyed
// on the expected status pair, which is the row-level precondition check the
// concurrency model requires. It joins a surrounding transaction from context
// so the paired audit append commits atomically with the state change.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const caseColumns = `
	id, invoice_id, status, prev_status, priority, ai_score, recovery_probability,
	sla_status, assigned_to, assigned_at, sla_breach_time, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, c Case) error {
	const query = `
		INSERT INTO cases (
			id, invoice_id, status, prev_status, priority, ai_score, recovery_probability,
			sla_status, assigned_to, assigned_at, sla_breach_time, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (invoice_id) DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		c.ID.String(), c.InvoiceID.String(), c.Status, nullString(string(c.PrevStatus)),
		c.Priority, c.AIScore, c.RecoveryProbability, c.SLAStatus,
		nullString(c.AssignedTo), c.AssignedAt, c.SLABreachTime, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.CaseID) (Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`
	return s.findOne(ctx, query, id.String())
}

func (s *PostgresStore) FindByInvoice(ctx context.Context, invoiceID domain.InvoiceID) (Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE invoice_id = $1`
	return s.findOne(ctx, query, invoiceID.String())
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (Case, error) {
	row := s.execer(ctx).QueryRowContext(ctx, query, arg)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Case{}, sentinel.ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) List(ctx context.Context) ([]Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases ORDER BY created_at, id`
	return s.list(ctx, query)
}

func (s *PostgresStore) ListScannable(ctx context.Context) ([]Case, error) {
	query := `
		SELECT ` + caseColumns + `
		FROM cases
		WHERE status NOT IN ('PAID', 'CLOSED') AND sla_status <> 'PAUSED'
		ORDER BY created_at, id
	`
	return s.list(ctx, query)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Case, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ApplyTransition(ctx context.Context, updated Case, expectStatus Status, expectSLA SLAStatus) error {
	const query = `
		UPDATE cases SET
			status = $1, prev_status = $2, priority = $3, ai_score = $4,
			recovery_probability = $5, sla_status = $6, assigned_to = $7,
			assigned_at = $8, sla_breach_time = $9, updated_at = $10
		WHERE id = $11 AND status = $12 AND sla_status = $13
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		updated.Status, nullString(string(updated.PrevStatus)), updated.Priority,
		updated.AIScore, updated.RecoveryProbability, updated.SLAStatus,
		nullString(updated.AssignedTo), updated.AssignedAt, updated.SLABreachTime,
		updated.UpdatedAt, updated.ID.String(), expectStatus, expectSLA,
	)
	if err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Distinguish a lost race from a missing row.
	var exists bool
	row := s.execer(ctx).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cases WHERE id = $1)`, updated.ID.String())
	if err := row.Scan(&exists); err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM cases`); err != nil {
		return fmt.Errorf("reset cases: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (Case, error) {
	var (
		c                  Case
		id, invoiceID      string
		prevStatus, assign sql.NullString
		assignedAt         sql.NullTime
		breachTime         sql.NullTime
	)
	err := row.Scan(
		&id, &invoiceID, &c.Status, &prevStatus, &c.Priority, &c.AIScore,
		&c.RecoveryProbability, &c.SLAStatus, &assign, &assignedAt, &breachTime,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Case{}, err
	}
	caseID, err := domain.ParseCaseID(id)
	if err != nil {
		return Case{}, fmt.Errorf("parse case id %q: %w", id, err)
	}
	invID, err := domain.ParseInvoiceID(invoiceID)
	if err != nil {
		return Case{}, fmt.Errorf("parse invoice id %q: %w", invoiceID, err)
	}
	c.ID = caseID
	c.InvoiceID = invID
	if prevStatus.Valid {
		c.PrevStatus = Status(prevStatus.String)
	}
	if assign.Valid {
		c.AssignedTo = assign.String
	}
	if assignedAt.Valid {
		t := assignedAt.Time
		c.AssignedAt = &t
	}
	if breachTime.Valid {
		t := breachTime.Time
		c.SLABreachTime = &t
	}
	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
