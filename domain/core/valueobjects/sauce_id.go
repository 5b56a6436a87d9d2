package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// SauceID is a value object representing a unique sauce identifier
type SauceID struct {
	value string
}

// NewSauceID creates a new random SauceID
func NewSauceID() SauceID {
	return SauceID{value: uuid.New().String()}
}

// NewSauceIDFromString creates a SauceID from an existing string
func NewSauceIDFromString(id string) (SauceID, error) {
	if id == "" {
		return SauceID{}, errors.New("sauce ID cannot be empty")
	}
	if !isValidUUID(id) {
		return SauceID{}, errors.New("sauce ID must be a valid UUID")
	}
	return SauceID{value: id}, nil
}

// String returns the string representation of the SauceID
func (id SauceID) String() string {
	return id.value
}

// Equals checks if two SauceIDs are equal
func (id SauceID) Equals(other SauceID) bool {
	return id.value == other.value
}

// IsZero checks if the SauceID is the zero value
func (id SauceID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id SauceID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *SauceID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("SauceID must be a string")
	}
	parsed, err := NewSauceIDFromString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
