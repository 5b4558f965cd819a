// Package service implements the variable operations shared by every
// transport: validation, persistence through a store.Store and change
// announcement through a broadcast.Notifier.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alfredjeanlab/varhub/internal/broadcast"
	"github.com/alfredjeanlab/varhub/internal/idgen"
	"github.com/alfredjeanlab/varhub/internal/model"
	"github.com/alfredjeanlab/varhub/internal/store"
)

// VariableService orchestrates variable reads and writes.
type VariableService struct {
	store    store.Store
	notifier broadcast.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a VariableService.
type Option func(*VariableService)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *VariableService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used for update timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *VariableService) { s.now = now }
}

// New returns a service backed by st that announces through n.
func New(st store.Store, n broadcast.Notifier, opts ...Option) *VariableService {
	s := &VariableService{
		store:    st,
		notifier: n,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping reports whether the store is reachable.
func (s *VariableService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ListVariables returns every variable ordered by creation time.
func (s *VariableService) ListVariables(ctx context.Context) ([]*model.Variable, error) {
	const op = "ListVariables"
	s.logger.Debug("listing variables")

	vars, err := s.store.ListVariables(ctx)
	if err != nil {
		return nil, s.operational(op, "failed to list variables", err)
	}
	if vars == nil {
		vars = []*model.Variable{}
	}
	s.logger.Info("listed variables", "count", len(vars))
	return vars, nil
}

// GetVariable returns the variable with the given id.
func (s *VariableService) GetVariable(ctx context.Context, id string) (*model.Variable, error) {
	const op = "GetVariable"
	s.logger.Debug("getting variable", "id", id)

	v, err := s.store.GetVariable(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("variable not found", "id", id)
			return nil, newError(op, KindNotFound, fmt.Sprintf("Variable with ID %s not found.", id), err)
		}
		return nil, s.operational(op, "failed to get variable", err, "id", id)
	}
	s.logger.Info("got variable", "id", id)
	return v, nil
}

// GetVariableByIdentifier returns the variable with the given identifier.
func (s *VariableService) GetVariableByIdentifier(ctx context.Context, identifier string) (*model.Variable, error) {
	const op = "GetVariableByIdentifier"
	s.logger.Debug("getting variable by identifier", "identifier", identifier)

	v, err := s.store.GetVariableByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("variable not found", "identifier", identifier)
			return nil, newError(op, KindNotFound, fmt.Sprintf("Variable with identifier %s not found.", identifier), err)
		}
		return nil, s.operational(op, "failed to get variable", err, "identifier", identifier)
	}
	s.logger.Info("got variable", "id", v.ID, "identifier", identifier)
	return v, nil
}

// CreateVariable stores draft and announces it. An empty draft.ID is filled
// with a new UUID. The stored variable is returned.
func (s *VariableService) CreateVariable(ctx context.Context, draft *model.Variable) (*model.Variable, error) {
	const op = "CreateVariable"
	if draft == nil {
		s.logger.Warn("create rejected", "reason", "nil variable")
		return nil, newError(op, KindInvalidArgument, "Variable is required.", nil)
	}
	s.logger.Debug("creating variable", "identifier", draft.Identifier, "type", draft.Type)

	if err := model.ValidateVariable(draft); err != nil {
		s.logger.Warn("create rejected", "identifier", draft.Identifier, "error", err)
		return nil, newError(op, KindInvalidArgument, err.Error(), err)
	}

	v := draft.Clone()
	if v.ID == "" {
		v.ID = idgen.NewVariableID()
	}
	if err := s.store.CreateVariable(ctx, v); err != nil {
		if errors.Is(err, store.ErrDuplicateIdentifier) {
			s.logger.Warn("create rejected", "identifier", v.Identifier, "reason", "duplicate identifier")
			return nil, newError(op, KindConstraintViolation,
				fmt.Sprintf("Variable with identifier %s already exists.", v.Identifier), err)
		}
		return nil, s.operational(op, "failed to create variable", err, "identifier", v.Identifier)
	}

	s.notifier.AnnounceChange(v.ID, v.Identifier, nil, v.Value)
	s.logger.Info("created variable", "id", v.ID, "identifier", v.Identifier)
	return v, nil
}

// UpdateVariableValue replaces the value of an existing variable. The
// read-modify-write is not guarded; concurrent updates may lose one write.
func (s *VariableService) UpdateVariableValue(ctx context.Context, id, newValue string) (*model.Variable, error) {
	const op = "UpdateVariableValue"
	s.logger.Debug("updating variable value", "id", id)

	if strings.TrimSpace(newValue) == "" {
		s.logger.Warn("update rejected", "id", id, "reason", "empty value")
		return nil, newError(op, KindInvalidArgument, "Value cannot be empty.", nil)
	}

	v, err := s.store.GetVariable(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("variable not found", "id", id)
			return nil, newError(op, KindNotFound, fmt.Sprintf("Variable with ID %s not found.", id), err)
		}
		return nil, s.operational(op, "failed to load variable", err, "id", id)
	}

	old := v.Value
	v.Value = newValue
	v.UpdatedAt = s.updatedAt(v.UpdatedAt)
	if err := s.store.UpdateVariable(ctx, v); err != nil {
		return nil, s.operational(op, "failed to update variable", err, "id", id)
	}

	s.notifier.AnnounceChange(v.ID, v.Identifier, &old, newValue)
	s.logger.Info("updated variable", "id", id, "identifier", v.Identifier)
	return v, nil
}

// DeleteVariable removes the variable with the given id and announces it.
func (s *VariableService) DeleteVariable(ctx context.Context, id string) error {
	const op = "DeleteVariable"
	s.logger.Debug("deleting variable", "id", id)

	if _, err := s.store.GetVariable(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("variable not found", "id", id)
			return newError(op, KindNotFound, fmt.Sprintf("Variable with ID %s not found.", id), err)
		}
		return s.operational(op, "failed to load variable", err, "id", id)
	}
	if err := s.store.DeleteVariable(ctx, id); err != nil {
		return s.operational(op, "failed to delete variable", err, "id", id)
	}

	s.notifier.AnnounceDeletion(id)
	s.logger.Info("deleted variable", "id", id)
	return nil
}

// updatedAt returns the current time, never earlier than prev.
func (s *VariableService) updatedAt(prev time.Time) time.Time {
	now := s.now().UTC().Truncate(time.Microsecond)
	if now.Before(prev) {
		return prev
	}
	return now
}

func (s *VariableService) operational(op, msg string, cause error, attrs ...any) *Error {
	s.logger.Error(msg, append(attrs, "error", cause)...)
	return newError(op, KindOperational, "An unexpected error occurred.", fmt.Errorf("%s: %w", msg, cause))
}
