package handlers

import (
	"context"
	"fmt"

	"piiquante/application/commands"
	"piiquante/application/commands/bus"
	"piiquante/application/services"
)

// CreateSauceHandler handles sauce creation commands
type CreateSauceHandler struct {
	lifecycle *services.SauceLifecycle
}

// NewCreateSauceHandler creates a new create sauce handler
func NewCreateSauceHandler(lifecycle *services.SauceLifecycle) *CreateSauceHandler {
	return &CreateSauceHandler{lifecycle: lifecycle}
}

// Handle executes the create sauce command
func (h *CreateSauceHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.CreateSauceCommand)
	if !ok {
		return nil, unexpected(cmd)
	}
	return h.lifecycle.Create(ctx, c)
}

// UpdateSauceHandler handles sauce modification commands
type UpdateSauceHandler struct {
	lifecycle *services.SauceLifecycle
}

// NewUpdateSauceHandler creates a new update sauce handler
func NewUpdateSauceHandler(lifecycle *services.SauceLifecycle) *UpdateSauceHandler {
	return &UpdateSauceHandler{lifecycle: lifecycle}
}

// Handle executes the update sauce command
func (h *UpdateSauceHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.UpdateSauceCommand)
	if !ok {
		return nil, unexpected(cmd)
	}
	return h.lifecycle.Update(ctx, c)
}

// DeleteSauceHandler handles sauce deletion commands
type DeleteSauceHandler struct {
	lifecycle *services.SauceLifecycle
}

// NewDeleteSauceHandler creates a new delete sauce handler
func NewDeleteSauceHandler(lifecycle *services.SauceLifecycle) *DeleteSauceHandler {
	return &DeleteSauceHandler{lifecycle: lifecycle}
}

// Handle executes the delete sauce command
func (h *DeleteSauceHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.DeleteSauceCommand)
	if !ok {
		return nil, unexpected(cmd)
	}
	return nil, h.lifecycle.Delete(ctx, c)
}

// VoteSauceHandler handles like, dislike and vote removal commands
type VoteSauceHandler struct {
	lifecycle *services.SauceLifecycle
}

// NewVoteSauceHandler creates a new vote handler
func NewVoteSauceHandler(lifecycle *services.SauceLifecycle) *VoteSauceHandler {
	return &VoteSauceHandler{lifecycle: lifecycle}
}

// Handle executes the vote command
func (h *VoteSauceHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.VoteSauceCommand)
	if !ok {
		return nil, unexpected(cmd)
	}
	return h.lifecycle.Vote(ctx, c)
}

// RegisterAll wires every sauce command to its handler
func RegisterAll(b *bus.CommandBus, lifecycle *services.SauceLifecycle) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.CreateSauceCommand{}, NewCreateSauceHandler(lifecycle)},
		{commands.UpdateSauceCommand{}, NewUpdateSauceHandler(lifecycle)},
		{commands.DeleteSauceCommand{}, NewDeleteSauceHandler(lifecycle)},
		{commands.VoteSauceCommand{}, NewVoteSauceHandler(lifecycle)},
	}

	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}

func unexpected(cmd bus.Command) error {
	return fmt.Errorf("unexpected command type %T", cmd)
}
