// Package history keeps a local SQLite log of pushes and build triggers.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hochfrequenz/ghactl/internal/domain"
)

// ErrNotFound is returned by Get when no operation matches
var ErrNotFound = errors.New("operation not found")

// Store provides SQLite-backed operation history
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one connection keeps :memory: databases alive across calls
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores op and its per-repository outcomes. A missing ID or
// CreatedAt is filled in.
func (s *Store) Record(ctx context.Context, op *domain.Operation) error {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO operations (id, kind, tag, run_id, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, op.ID, string(op.Kind), op.Tag, op.RunID, op.Outcome, op.Detail, op.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}

	for i, r := range op.Repos {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO repo_outcomes (operation_id, position, name, outcome, reason)
			VALUES (?, ?, ?, ?, ?)
		`, op.ID, i, r.Name, string(r.Outcome), r.Reason)
		if err != nil {
			return fmt.Errorf("insert repo outcome: %w", err)
		}
	}

	return tx.Commit()
}

// ListOptions specifies filters for listing operations
type ListOptions struct {
	Kind  domain.OperationKind
	Limit int
}

// List returns recorded operations, newest first
func (s *Store) List(ctx context.Context, opts ListOptions) ([]domain.Operation, error) {
	query := `SELECT id, kind, tag, run_id, outcome, detail, created_at FROM operations WHERE 1=1`
	var args []interface{}

	if opts.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(opts.Kind))
	}

	query += " ORDER BY created_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var ops []domain.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ops = append(ops, op)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range ops {
		repos, err := s.repoOutcomes(ctx, ops[i].ID)
		if err != nil {
			return nil, err
		}
		ops[i].Repos = repos
	}
	return ops, nil
}

// Get retrieves an operation by its ID or a unique prefix of it
func (s *Store) Get(ctx context.Context, id string) (*domain.Operation, error) {
	full, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, tag, run_id, outcome, detail, created_at
		FROM operations WHERE id = ?
	`, full)

	op, err := scanOperation(row)
	if err != nil {
		return nil, err
	}
	if op.Repos, err = s.repoOutcomes(ctx, full); err != nil {
		return nil, err
	}
	return &op, nil
}

func (s *Store) resolveID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("empty operation id: %w", ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM operations WHERE substr(id, 1, ?) = ? LIMIT 2
	`, len(prefix), prefix)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("operation %s: %w", prefix, ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("operation id %s is ambiguous", prefix)
	}
}

func (s *Store) repoOutcomes(ctx context.Context, id string) ([]domain.RepoOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, outcome, reason FROM repo_outcomes
		WHERE operation_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repos []domain.RepoOutcome
	for rows.Next() {
		var r domain.RepoOutcome
		var outcome string
		var reason sql.NullString
		if err := rows.Scan(&r.Name, &outcome, &reason); err != nil {
			return nil, err
		}
		r.Outcome = domain.OutcomeKind(outcome)
		r.Reason = reason.String
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(row scanner) (domain.Operation, error) {
	var op domain.Operation
	var kind string
	var tag, runID, detail sql.NullString

	if err := row.Scan(&op.ID, &kind, &tag, &runID, &op.Outcome, &detail, &op.CreatedAt); err != nil {
		return domain.Operation{}, err
	}

	op.Kind = domain.OperationKind(kind)
	op.Tag = tag.String
	op.RunID = runID.String
	op.Detail = detail.String
	return op, nil
}
