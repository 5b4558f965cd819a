package store

import (
	"context"
	"errors"
	"time"

	"github.com/alfredjeanlab/varhub/internal/model"
)

var (
	// ErrNotFound is returned by lookups when no variable matches.
	ErrNotFound = errors.New("variable not found")

	// ErrDuplicateIdentifier is returned by CreateVariable when another
	// variable already uses the identifier.
	ErrDuplicateIdentifier = errors.New("variable identifier already exists")
)

// Store defines the persistence interface for variables.
type Store interface {
	ListVariables(ctx context.Context) ([]*model.Variable, error)
	GetVariable(ctx context.Context, id string) (*model.Variable, error)
	GetVariableByIdentifier(ctx context.Context, identifier string) (*model.Variable, error)

	// CreateVariable inserts v. Zero CreatedAt/UpdatedAt are set to the
	// current UTC time on v before the insert.
	CreateVariable(ctx context.Context, v *model.Variable) error
	UpdateVariable(ctx context.Context, v *model.Variable) error

	// DeleteVariable removes the variable with the given id. Deleting an
	// absent id is not an error.
	DeleteVariable(ctx context.Context, id string) error

	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Stamp sets zero creation and update timestamps on v to now (UTC, microsecond
// precision to match the database columns).
// Backends call it from CreateVariable.
func Stamp(v *model.Variable, now time.Time) {
	now = now.UTC().Truncate(time.Microsecond)
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	if v.UpdatedAt.IsZero() || v.UpdatedAt.Before(v.CreatedAt) {
		v.UpdatedAt = v.CreatedAt
	}
}
