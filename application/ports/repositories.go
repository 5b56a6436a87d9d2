package ports

import (
	"context"
	"errors"
	"io"

	"piiquante/domain/core/entities"
	"piiquante/domain/core/valueobjects"
	"piiquante/domain/events"
	"piiquante/domain/services"
)

var (
	// ErrSauceNotFound is returned when no record exists for an id
	ErrSauceNotFound = errors.New("sauce not found")

	// ErrImageChanged is returned when a detail update was computed against an
	// image the record no longer points at
	ErrImageChanged = errors.New("sauce image changed")

	// ErrVotePreconditionFailed is returned when the voter's stored standing no
	// longer matches the standing the vote was computed from
	ErrVotePreconditionFailed = errors.New("vote precondition failed")
)

// SauceRepository defines the interface for sauce persistence
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type SauceRepository interface {
	// Insert stores a new sauce; it fails if the id already exists
	Insert(ctx context.Context, sauce *entities.Sauce) error

	// GetByID retrieves a sauce by its ID
	GetByID(ctx context.Context, id valueobjects.SauceID) (*entities.Sauce, error)

	// List returns every sauce
	List(ctx context.Context) ([]*entities.Sauce, error)

	// UpdateDetails overwrites the descriptive fields and image reference only,
	// provided the record still points at current. Vote counters and voter
	// sets are never written.
	UpdateDetails(ctx context.Context, id valueobjects.SauceID, details entities.SauceDetails, image, current valueobjects.ImageRef) error

	// Delete removes a sauce
	Delete(ctx context.Context, id valueobjects.SauceID) error

	// ApplyVote atomically applies a vote transition if the voter still has
	// the standing the outcome was computed from, and returns the new tally
	ApplyVote(ctx context.Context, id valueobjects.SauceID, outcome services.VoteOutcome) (entities.VoteTally, error)
}

// BlobStore defines the interface for image storage
type BlobStore interface {
	// Save stores an uploaded image and returns its public reference
	Save(ctx context.Context, originalName, contentType string, body io.Reader) (valueobjects.ImageRef, error)

	// Delete removes the blob behind a reference
	Delete(ctx context.Context, ref valueobjects.ImageRef) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// PublishBatch sends the events raised by one operation
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Generation returns a counter that moves every time key is deleted or
	// the cache is cleared
	Generation(ctx context.Context, key string) uint64

	// SetIfGeneration stores a value only while key is still at generation
	SetIfGeneration(ctx context.Context, key string, value interface{}, ttl int, generation uint64) error

	// Delete removes a value from cache and moves its generation
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
