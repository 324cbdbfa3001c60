package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

type (
	// Handler executes one task type. Handle receives the raw payload and
	// returns an opaque result that is persisted with the completed task,
	// or an error that routes the task through the retry/dead-letter path.
	Handler interface {
		Name() string
		Handle(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	}

	TaskHandlerFunc[T any]  func(ctx context.Context, payload T) (any, error)
	PeriodicTaskHandlerFunc func(ctx context.Context) error
)

// NewTaskHandler wraps a typed function as a Handler. The handler name is
// derived from the payload type, matching what Enqueue uses by default.
func NewTaskHandler[T any](handler TaskHandlerFunc[T]) Handler {
	var payload T
	return &oneTimeTaskHandler[T]{
		name:    qualifiedStructName(payload),
		handler: handler,
	}
}

// NewPeriodicTaskHandler wraps a payload-less function as a Handler for
// scheduler-generated periodic tasks.
func NewPeriodicTaskHandler(name string, handler PeriodicTaskHandlerFunc) Handler {
	return &periodicTaskHandler{
		name:    name,
		handler: handler,
	}
}

type oneTimeTaskHandler[T any] struct {
	name    string
	handler TaskHandlerFunc[T]
}

func (h *oneTimeTaskHandler[T]) Name() string {
	return h.name
}

func (h *oneTimeTaskHandler[T]) Handle(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload for %s: %w", h.name, err)
	}

	result, err := h.handler(ctx, t)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result of %s: %w", h.name, err)
	}
	return raw, nil
}

type periodicTaskHandler struct {
	name    string
	handler PeriodicTaskHandlerFunc
}

func (h *periodicTaskHandler) Name() string {
	return h.name
}

func (h *periodicTaskHandler) Handle(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
	return nil, h.handler(ctx)
}
