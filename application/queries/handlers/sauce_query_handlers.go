package handlers

import (
	"context"
	"fmt"

	"piiquante/application/queries"
	"piiquante/application/queries/bus"
	"piiquante/application/services"
	"piiquante/domain/core/valueobjects"
	"piiquante/pkg/errors"
)

// GetSauceHandler returns one sauce view
type GetSauceHandler struct {
	lifecycle *services.SauceLifecycle
}

// NewGetSauceHandler creates a new get sauce handler
func NewGetSauceHandler(lifecycle *services.SauceLifecycle) *GetSauceHandler {
	return &GetSauceHandler{lifecycle: lifecycle}
}

// Handle executes the get sauce query
func (h *GetSauceHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetSauceQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}

	id, err := valueobjects.NewSauceIDFromString(q.SauceID)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	sauce, err := h.lifecycle.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return queries.NewSauceView(sauce), nil
}

// ListSaucesHandler returns every sauce view
type ListSaucesHandler struct {
	lifecycle *services.SauceLifecycle
}

// NewListSaucesHandler creates a new list sauces handler
func NewListSaucesHandler(lifecycle *services.SauceLifecycle) *ListSaucesHandler {
	return &ListSaucesHandler{lifecycle: lifecycle}
}

// Handle executes the list sauces query
func (h *ListSaucesHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	sauces, err := h.lifecycle.List(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]queries.SauceView, 0, len(sauces))
	for _, sauce := range sauces {
		views = append(views, queries.NewSauceView(sauce))
	}
	return views, nil
}

// RegisterAll wires every sauce query to its handler
func RegisterAll(b *bus.QueryBus, lifecycle *services.SauceLifecycle) error {
	if err := b.Register(queries.GetSauceQuery{}, NewGetSauceHandler(lifecycle)); err != nil {
		return err
	}
	return b.Register(queries.ListSaucesQuery{}, NewListSaucesHandler(lifecycle))
}
