package events

import (
	"time"

	"piiquante/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// Event types published by the sauce aggregate
const (
	TypeSauceCreated       = "sauce.created"
	TypeSauceUpdated       = "sauce.updated"
	TypeSauceImageReplaced = "sauce.image_replaced"
	TypeSauceDeleted       = "sauce.deleted"
	TypeSauceVoted         = "sauce.voted"
)

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(id valueobjects.SauceID, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: id.String(),
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     1,
	}
}

// SauceCreated is raised when a new sauce is created
type SauceCreated struct {
	BaseEvent
	SauceID  valueobjects.SauceID `json:"sauce_id"`
	OwnerID  string               `json:"owner_id"`
	Name     string               `json:"name"`
	ImageURL string               `json:"image_url"`
}

// NewSauceCreated creates a SauceCreated event
func NewSauceCreated(id valueobjects.SauceID, ownerID, name string, image valueobjects.ImageRef, timestamp time.Time) SauceCreated {
	return SauceCreated{
		BaseEvent: newBase(id, TypeSauceCreated, timestamp),
		SauceID:   id,
		OwnerID:   ownerID,
		Name:      name,
		ImageURL:  image.URL(),
	}
}

// SauceUpdated is raised when the descriptive fields of a sauce change
type SauceUpdated struct {
	BaseEvent
	SauceID valueobjects.SauceID `json:"sauce_id"`
	OwnerID string               `json:"owner_id"`
	Fields  []string             `json:"fields"`
}

// NewSauceUpdated creates a SauceUpdated event
func NewSauceUpdated(id valueobjects.SauceID, ownerID string, fields []string, timestamp time.Time) SauceUpdated {
	return SauceUpdated{
		BaseEvent: newBase(id, TypeSauceUpdated, timestamp),
		SauceID:   id,
		OwnerID:   ownerID,
		Fields:    fields,
	}
}

// SauceImageReplaced is raised when a sauce adopts a new image
type SauceImageReplaced struct {
	BaseEvent
	SauceID     valueobjects.SauceID `json:"sauce_id"`
	OldImageURL string               `json:"old_image_url"`
	NewImageURL string               `json:"new_image_url"`
}

// NewSauceImageReplaced creates a SauceImageReplaced event
func NewSauceImageReplaced(id valueobjects.SauceID, oldImage, newImage valueobjects.ImageRef, timestamp time.Time) SauceImageReplaced {
	return SauceImageReplaced{
		BaseEvent:   newBase(id, TypeSauceImageReplaced, timestamp),
		SauceID:     id,
		OldImageURL: oldImage.URL(),
		NewImageURL: newImage.URL(),
	}
}

// SauceDeleted is raised when a sauce is removed
type SauceDeleted struct {
	BaseEvent
	SauceID  valueobjects.SauceID `json:"sauce_id"`
	OwnerID  string               `json:"owner_id"`
	ImageURL string               `json:"image_url"`
}

// NewSauceDeleted creates a SauceDeleted event
func NewSauceDeleted(id valueobjects.SauceID, ownerID string, image valueobjects.ImageRef, timestamp time.Time) SauceDeleted {
	return SauceDeleted{
		BaseEvent: newBase(id, TypeSauceDeleted, timestamp),
		SauceID:   id,
		OwnerID:   ownerID,
		ImageURL:  image.URL(),
	}
}

// SauceVoted is raised when a user's vote on a sauce changes
type SauceVoted struct {
	BaseEvent
	SauceID  valueobjects.SauceID `json:"sauce_id"`
	UserID   string               `json:"user_id"`
	Intent   int                  `json:"intent"`
	Likes    int                  `json:"likes"`
	Dislikes int                  `json:"dislikes"`
}

// NewSauceVoted creates a SauceVoted event
func NewSauceVoted(id valueobjects.SauceID, userID string, intent valueobjects.VoteIntent, likes, dislikes int, timestamp time.Time) SauceVoted {
	return SauceVoted{
		BaseEvent: newBase(id, TypeSauceVoted, timestamp),
		SauceID:   id,
		UserID:    userID,
		Intent:    int(intent),
		Likes:     likes,
		Dislikes:  dislikes,
	}
}
