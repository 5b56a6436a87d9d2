package validators

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"piiquante/domain/config"
	"piiquante/pkg/errors"
)

// SauceValidator validates sauce-related domain rules
type SauceValidator struct {
	cfg *config.DomainConfig
}

// NewSauceValidator creates a validator bound to the given rules
func NewSauceValidator(cfg *config.DomainConfig) *SauceValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &SauceValidator{cfg: cfg}
}

// DetailFields are the descriptive fields of a sauce as seen by the validator
type DetailFields struct {
	Name         string
	Manufacturer string
	Description  string
	MainPepper   string
	Heat         int
}

// Validate checks every field and reports all violations at once
func (v *SauceValidator) Validate(d DetailFields) error {
	var problems []string
	fields := make(map[string]interface{})

	add := func(field, message string) {
		problems = append(problems, message)
		fields[field] = message
	}

	name := strings.TrimSpace(d.Name)
	switch {
	case utf8.RuneCountInString(name) < v.cfg.MinNameLength:
		add("name", "name is required")
	case utf8.RuneCountInString(d.Name) > v.cfg.MaxNameLength:
		add("name", fmt.Sprintf("name must be at most %d characters", v.cfg.MaxNameLength))
	}

	if msg := v.checkText("manufacturer", d.Manufacturer, v.cfg.MaxManufacturerLength); msg != "" {
		add("manufacturer", msg)
	}
	if msg := v.checkText("description", d.Description, v.cfg.MaxDescriptionLength); msg != "" {
		add("description", msg)
	}
	if msg := v.checkText("mainPepper", d.MainPepper, v.cfg.MaxMainPepperLength); msg != "" {
		add("mainPepper", msg)
	}

	// 0 means the heat was never rated
	if d.Heat != 0 && (d.Heat < v.cfg.MinHeat || d.Heat > v.cfg.MaxHeat) {
		add("heat", fmt.Sprintf("heat must be between %d and %d", v.cfg.MinHeat, v.cfg.MaxHeat))
	}

	if hasControlChars(d.Name) {
		add("name", "name contains control characters")
	}

	if len(problems) > 0 {
		return errors.NewValidationError(strings.Join(problems, "; ")).
			WithCode("INVALID_SAUCE").
			WithDetails(fields)
	}
	return nil
}

func (v *SauceValidator) checkText(field, value string, max int) string {
	if utf8.RuneCountInString(value) > max {
		return fmt.Sprintf("%s must be at most %d characters", field, max)
	}
	return ""
}

func hasControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
