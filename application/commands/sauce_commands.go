package commands

import (
	"strconv"

	"piiquante/domain/core/entities"
	"piiquante/domain/core/valueobjects"
	"piiquante/pkg/errors"
	"piiquante/pkg/utils"
)

// CreateSauceCommand represents the command to create a new sauce.
// It has no id or owner fields a client could set: the owner is the
// authenticated caller and the id is assigned by the domain.
type CreateSauceCommand struct {
	UserID  string                `json:"user_id" validate:"required"`
	Details entities.SauceDetails `json:"details"`
	Image   valueobjects.ImageRef `json:"-"`
}

// Validate checks the command envelope; sauce details are validated by the domain
func (c CreateSauceCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return errors.NewValidationError(err.Error())
	}
	if c.Image.IsZero() {
		return errors.NewValidationError("image is required")
	}
	return nil
}

// TraceAnnotations names the caller on the command's trace span
func (c CreateSauceCommand) TraceAnnotations() map[string]string {
	return map[string]string{"userID": c.UserID}
}

// UpdateSauceCommand represents the command to modify an existing sauce.
// When NewImage is set every detail is replaced from Patch; otherwise only
// the fields present in Patch change.
type UpdateSauceCommand struct {
	SauceID  string                `json:"sauce_id" validate:"required,uuid"`
	UserID   string                `json:"user_id" validate:"required"`
	Patch    entities.SaucePatch   `json:"patch"`
	NewImage valueobjects.ImageRef `json:"-"`
}

// Validate checks the command envelope
func (c UpdateSauceCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}

// HasNewImage reports whether the update replaces the image
func (c UpdateSauceCommand) HasNewImage() bool {
	return !c.NewImage.IsZero()
}

// TraceAnnotations names the sauce and the caller on the command's trace span
func (c UpdateSauceCommand) TraceAnnotations() map[string]string {
	return map[string]string{"sauceID": c.SauceID, "userID": c.UserID}
}

// DeleteSauceCommand represents the command to remove a sauce and its image
type DeleteSauceCommand struct {
	SauceID string `json:"sauce_id" validate:"required,uuid"`
	UserID  string `json:"user_id" validate:"required"`
}

// Validate checks the command envelope
func (c DeleteSauceCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}

// TraceAnnotations names the sauce and the caller on the command's trace span
func (c DeleteSauceCommand) TraceAnnotations() map[string]string {
	return map[string]string{"sauceID": c.SauceID, "userID": c.UserID}
}

// VoteSauceCommand represents a like, dislike or vote removal.
// Like carries the raw wire value; unsupported values are rejected by the vote engine.
type VoteSauceCommand struct {
	SauceID string `json:"sauce_id" validate:"required,uuid"`
	UserID  string `json:"user_id" validate:"required"`
	Like    int    `json:"like"`
}

// Validate checks the command envelope
func (c VoteSauceCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}

// TraceAnnotations names the sauce, the voter and the intent on the command's trace span
func (c VoteSauceCommand) TraceAnnotations() map[string]string {
	return map[string]string{"sauceID": c.SauceID, "userID": c.UserID, "like": strconv.Itoa(c.Like)}
}
