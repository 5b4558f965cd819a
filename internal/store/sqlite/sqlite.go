// Package sqlite implements the store.Store interface backed by a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"

	"github.com/alfredjeanlab/varhub/internal/model"
	"github.com/alfredjeanlab/varhub/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const variableColumns = `id, identifier, type, value, created_at, updated_at`

// SQLiteStore implements store.Store backed by SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*SQLiteStore)(nil)

// Open creates or opens the SQLite database at path, applies pragmas and
// runs pending migrations. Use ":memory:" for a throwaway database.
//
// SQLite allows a single writer, so the pool is capped at one connection.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) ListVariables(ctx context.Context) ([]*model.Variable, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+variableColumns+` FROM variables ORDER BY created_at, identifier`)
	if err != nil {
		return nil, fmt.Errorf("list variables: %w", err)
	}
	defer rows.Close()

	var out []*model.Variable
	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variables: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) GetVariable(ctx context.Context, id string) (*model.Variable, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+variableColumns+` FROM variables WHERE id = ?`, id)
	v, err := scanVariable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get variable %s: %w", id, err)
	}
	return v, nil
}

func (s *SQLiteStore) GetVariableByIdentifier(ctx context.Context, identifier string) (*model.Variable, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+variableColumns+` FROM variables WHERE identifier = ?`, identifier)
	v, err := scanVariable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get variable by identifier %q: %w", identifier, err)
	}
	return v, nil
}

func (s *SQLiteStore) CreateVariable(ctx context.Context, v *model.Variable) error {
	store.Stamp(v, s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO variables (id, identifier, type, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.Identifier, string(v.Type), v.Value, v.CreatedAt, v.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert variable %q: %w", v.Identifier, store.ErrDuplicateIdentifier)
	}
	if err != nil {
		return fmt.Errorf("insert variable: %w", err)
	}
	return nil
}

// UpdateVariable writes value and updated_at only.
func (s *SQLiteStore) UpdateVariable(ctx context.Context, v *model.Variable) error {
	_, err := s.db.ExecContext(ctx, `UPDATE variables SET value = ?, updated_at = ? WHERE id = ?`,
		v.Value, v.UpdatedAt, v.ID)
	if err != nil {
		return fmt.Errorf("update variable %s: %w", v.ID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteVariable(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM variables WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete variable %s: %w", id, err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanVariable(row scannable) (*model.Variable, error) {
	var (
		v   model.Variable
		typ string
	)
	if err := row.Scan(&v.ID, &v.Identifier, &typ, &v.Value, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.Type = model.VariableType(typ)
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return &v, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
