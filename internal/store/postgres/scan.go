package postgres

import (
	"fmt"

	"github.com/alfredjeanlab/varhub/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// rowIterator is the subset of *sql.Rows used by scanVariables.
type rowIterator interface {
	scannable
	Next() bool
	Err() error
}

// scanVariable scans a single row into a model.Variable.
// The row must contain columns in the order defined by variableColumns.
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

func scanVariables(rows rowIterator) ([]*model.Variable, error) {
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
