package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"recoup/pkg/domain"
	"recoup/pkg/platform/sentinel"
	txcontext "recoup/pkg/platform/tx"
)

// PostgresStore persists audit entries in the audit_log table. Appends join a
// surrounding transaction from context so a state change and its audit entry
// commit together.
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

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO audit_log (id, case_id, actor_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.CaseID.String(),
		entry.ActorID,
		entry.Action,
		entry.Details,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCase(ctx context.Context, caseID domain.CaseID) ([]Entry, error) {
	const query = `
		SELECT id, case_id, actor_id, action, details, created_at
		FROM audit_log
		WHERE case_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, caseID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit by case: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Entry, error) {
	const query = `
		SELECT id, case_id, actor_id, action, details, created_at
		FROM audit_log
		ORDER BY created_at, id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) LastByCaseAction(ctx context.Context, caseID domain.CaseID, action string) (Entry, error) {
	const query = `
		SELECT id, case_id, actor_id, action, details, created_at
		FROM audit_log
		WHERE case_id = $1 AND action = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, caseID.String(), action)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, sentinel.ErrNotFound
	}
	return entry, err
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM audit_log`); err != nil {
		return fmt.Errorf("reset audit log: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry  Entry
		caseID string
	)
	if err := row.Scan(&entry.ID, &caseID, &entry.ActorID, &entry.Action, &entry.Details, &entry.Timestamp); err != nil {
		return Entry{}, err
	}
	parsed, err := domain.ParseCaseID(caseID)
	if err != nil {
		return Entry{}, fmt.Errorf("parse case id %q: %w", caseID, err)
	}
	entry.CaseID = parsed
	return entry, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
