// Package client provides a transport-agnostic interface for the varhub
// service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/varhub/internal/events"
	"github.com/alfredjeanlab/varhub/internal/model"
)

// VariablesClient is the interface the vh CLI commands use to talk to a
// varhub server.
type VariablesClient interface {
	ListVariables(ctx context.Context) ([]*model.Variable, error)
	GetVariable(ctx context.Context, id string) (*model.Variable, error)
	GetVariableByIdentifier(ctx context.Context, identifier string) (*model.Variable, error)
	CreateVariable(ctx context.Context, req *CreateVariableRequest) (*model.Variable, error)
	UpdateVariable(ctx context.Context, id, value string) error
	DeleteVariable(ctx context.Context, id string) error

	// Real-time
	Watch(ctx context.Context, fn func(events.Frame) error) error
	Subscribers(ctx context.Context) ([]Subscriber, error)

	Health(ctx context.Context) (string, error)
	Close() error
}

// CreateVariableRequest holds parameters for creating a variable.
type CreateVariableRequest struct {
	Identifier string             `json:"identifier"`
	Type       model.VariableType `json:"type"`
	Value      string             `json:"value"`
}

// Subscriber describes one live connection on the server.
type Subscriber struct {
	ID          string    `json:"id"`
	Transport   string    `json:"transport"`
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	Delivered   int64     `json:"delivered"`
	Dropped     int64     `json:"dropped"`
}
