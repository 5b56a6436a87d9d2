// Package memory provides an in-process sauce store for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"piiquante/application/ports"
	"piiquante/domain/core/entities"
	"piiquante/domain/core/valueobjects"
	"piiquante/domain/services"
)

type sauceRecord struct {
	id        valueobjects.SauceID
	ownerID   string
	details   entities.SauceDetails
	image     valueobjects.ImageRef
	tally     entities.VoteTally
	createdAt time.Time
	updatedAt time.Time
}

// SauceRepository keeps sauces in a map guarded by a mutex.
// Every read returns a fresh aggregate so callers never share state.
type SauceRepository struct {
	mu      sync.RWMutex
	records map[string]sauceRecord
}

// NewSauceRepository creates an empty store
func NewSauceRepository() *SauceRepository {
	return &SauceRepository{records: make(map[string]sauceRecord)}
}

var _ ports.SauceRepository = (*SauceRepository)(nil)

// Insert stores a new sauce
func (r *SauceRepository) Insert(ctx context.Context, sauce *entities.Sauce) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sauce.ID().String()
	if _, exists := r.records[key]; exists {
		return fmt.Errorf("sauce %s already exists", key)
	}

	r.records[key] = sauceRecord{
		id:        sauce.ID(),
		ownerID:   sauce.OwnerID(),
		details:   sauce.Details(),
		image:     sauce.ImageRef(),
		tally:     sauce.Tally(),
		createdAt: sauce.CreatedAt(),
		updatedAt: sauce.UpdatedAt(),
	}
	return nil
}

// GetByID retrieves a sauce by its ID
func (r *SauceRepository) GetByID(ctx context.Context, id valueobjects.SauceID) (*entities.Sauce, error) {
	r.mu.RLock()
	rec, ok := r.records[id.String()]
	r.mu.RUnlock()

	if !ok {
		return nil, ports.ErrSauceNotFound
	}
	return rec.toEntity()
}

// List returns every sauce, oldest first
func (r *SauceRepository) List(ctx context.Context) ([]*entities.Sauce, error) {
	r.mu.RLock()
	recs := make([]sauceRecord, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].createdAt.Equal(recs[j].createdAt) {
			return recs[i].id.String() < recs[j].id.String()
		}
		return recs[i].createdAt.Before(recs[j].createdAt)
	})

	sauces := make([]*entities.Sauce, 0, len(recs))
	for _, rec := range recs {
		sauce, err := rec.toEntity()
		if err != nil {
			return nil, err
		}
		sauces = append(sauces, sauce)
	}
	return sauces, nil
}

// UpdateDetails overwrites the descriptive fields and image only
func (r *SauceRepository) UpdateDetails(ctx context.Context, id valueobjects.SauceID, details entities.SauceDetails, image, current valueobjects.ImageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id.String()]
	if !ok {
		return ports.ErrSauceNotFound
	}
	if !rec.image.Equals(current) {
		return ports.ErrImageChanged
	}

	rec.details = details
	rec.image = image
	rec.updatedAt = time.Now().UTC()
	r.records[id.String()] = rec
	return nil
}

// Delete removes a sauce
func (r *SauceRepository) Delete(ctx context.Context, id valueobjects.SauceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id.String()]; !ok {
		return ports.ErrSauceNotFound
	}
	delete(r.records, id.String())
	return nil
}

// ApplyVote applies the transition only if the voter still has the prior standing
func (r *SauceRepository) ApplyVote(ctx context.Context, id valueobjects.SauceID, outcome services.VoteOutcome) (entities.VoteTally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id.String()]
	if !ok {
		return entities.VoteTally{}, ports.ErrSauceNotFound
	}

	if services.StandingOf(rec.tally, outcome.UserID) != outcome.Prior {
		return entities.VoteTally{}, ports.ErrVotePreconditionFailed
	}

	// Apply the delta to the stored sets rather than copying the outcome's
	// sets, so votes by other users since the read are kept
	tally := rec.tally
	switch {
	case outcome.LikeDelta > 0:
		tally.UsersLiked = tally.UsersLiked.With(outcome.UserID)
	case outcome.LikeDelta < 0:
		tally.UsersLiked = tally.UsersLiked.Without(outcome.UserID)
	case outcome.DislikeDelta > 0:
		tally.UsersDisliked = tally.UsersDisliked.With(outcome.UserID)
	case outcome.DislikeDelta < 0:
		tally.UsersDisliked = tally.UsersDisliked.Without(outcome.UserID)
	}

	rec.tally = tally
	rec.updatedAt = time.Now().UTC()
	r.records[id.String()] = rec
	return tally, nil
}

// Count returns the number of stored sauces
func (r *SauceRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (rec sauceRecord) toEntity() (*entities.Sauce, error) {
	return entities.ReconstructSauce(rec.id, rec.ownerID, rec.details, rec.image, rec.tally, rec.createdAt, rec.updatedAt)
}
