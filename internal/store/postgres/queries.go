package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/varhub/internal/model"
	"github.com/alfredjeanlab/varhub/internal/store"
)

// variableColumns is the column list used for SELECT statements on the variables table.
const variableColumns = `id, identifier, type, value, created_at, updated_at`

// SQLSTATE codes the store maps to sentinel errors.
const (
	uniqueViolation           = pq.ErrorCode("23505")
	invalidTextRepresentation = pq.ErrorCode("22P02")
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateVariable(ctx context.Context, db executor, v *model.Variable) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO variables (id, identifier, type, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID,
		v.Identifier,
		string(v.Type),
		v.Value,
		v.CreatedAt,
		v.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert variable %q: %w", v.Identifier, store.ErrDuplicateIdentifier)
	}
	if err != nil {
		return fmt.Errorf("insert variable: %w", err)
	}
	return nil
}

func queryGetVariable(ctx context.Context, db executor, id string) (*model.Variable, error) {
	row := db.QueryRowContext(ctx, `SELECT `+variableColumns+` FROM variables WHERE id = $1`, id)
	v, err := scanVariable(row)
	// An id that is not a UUID cannot match any row.
	if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get variable %s: %w", id, err)
	}
	return v, nil
}

func queryGetVariableByIdentifier(ctx context.Context, db executor, identifier string) (*model.Variable, error) {
	row := db.QueryRowContext(ctx, `SELECT `+variableColumns+` FROM variables WHERE identifier = $1`, identifier)
	v, err := scanVariable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get variable by identifier %q: %w", identifier, err)
	}
	return v, nil
}

func queryListVariables(ctx context.Context, db executor) ([]*model.Variable, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+variableColumns+` FROM variables ORDER BY created_at, identifier`)
	if err != nil {
		return nil, fmt.Errorf("list variables: %w", err)
	}
	defer rows.Close()
	return scanVariables(rows)
}

// queryUpdateVariable writes value and updated_at. id, identifier, type and
// created_at are immutable after creation and are not part of the SET list.
func queryUpdateVariable(ctx context.Context, db executor, v *model.Variable) error {
	_, err := db.ExecContext(ctx, `
		UPDATE variables SET value = $2, updated_at = $3
		WHERE id = $1`,
		v.ID,
		v.Value,
		v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update variable %s: %w", v.ID, err)
	}
	return nil
}

func queryDeleteVariable(ctx context.Context, db executor, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM variables WHERE id = $1`, id); err != nil && !isInvalidUUID(err) {
		return fmt.Errorf("delete variable %s: %w", id, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func isInvalidUUID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}
