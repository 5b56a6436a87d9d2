package memory

import (
	"context"
	"sync"
	"testing"

	"piiquante/application/ports"
	"piiquante/domain/core/entities"
	"piiquante/domain/core/valueobjects"
	"piiquante/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSauce(t *testing.T, owner string) *entities.Sauce {
	t.Helper()
	image, err := valueobjects.NewImageRef("http://localhost:3000", "a.jpg")
	require.NoError(t, err)
	sauce, err := entities.NewSauce(owner, entities.SauceDetails{Name: "Ketchup"}, image)
	require.NoError(t, err)
	return sauce
}

func TestSauceRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewSauceRepository()
	sauce := newSauce(t, "u1")

	require.NoError(t, repo.Insert(ctx, sauce))
	assert.Error(t, repo.Insert(ctx, sauce), "duplicate ids are refused")

	loaded, err := repo.GetByID(ctx, sauce.ID())
	require.NoError(t, err)
	assert.Equal(t, "Ketchup", loaded.Details().Name)

	image, _ := valueobjects.NewImageRef("http://localhost:3000", "b.jpg")
	require.NoError(t, repo.UpdateDetails(ctx, sauce.ID(), entities.SauceDetails{Name: "Mustard"}, image, sauce.ImageRef()))

	loaded, err = repo.GetByID(ctx, sauce.ID())
	require.NoError(t, err)
	assert.Equal(t, "Mustard", loaded.Details().Name)
	assert.Equal(t, "b.jpg", loaded.ImageRef().FileName())

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, sauce.ID()))
	_, err = repo.GetByID(ctx, sauce.ID())
	assert.ErrorIs(t, err, ports.ErrSauceNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, sauce.ID()), ports.ErrSauceNotFound)
	assert.ErrorIs(t, repo.UpdateDetails(ctx, sauce.ID(), entities.SauceDetails{}, image, image), ports.ErrSauceNotFound)
}

func TestSauceRepository_UpdateDetailsRequiresCurrentImage(t *testing.T) {
	ctx := context.Background()
	repo := NewSauceRepository()
	sauce := newSauce(t, "u1")
	require.NoError(t, repo.Insert(ctx, sauce))
	first, _ := valueobjects.NewImageRef("http://localhost:3000", "b1.jpg")
	second, _ := valueobjects.NewImageRef("http://localhost:3000", "b2.jpg")

	// Both swaps were computed from the original image
	require.NoError(t, repo.UpdateDetails(ctx, sauce.ID(), entities.SauceDetails{Name: "A"}, first, sauce.ImageRef()))
	err := repo.UpdateDetails(ctx, sauce.ID(), entities.SauceDetails{Name: "B"}, second, sauce.ImageRef())

	assert.ErrorIs(t, err, ports.ErrImageChanged)
	loaded, err := repo.GetByID(ctx, sauce.ID())
	require.NoError(t, err)
	assert.Equal(t, "b1.jpg", loaded.ImageRef().FileName())
	assert.Equal(t, "A", loaded.Details().Name)
}

func TestSauceRepository_ApplyVoteChecksStanding(t *testing.T) {
	ctx := context.Background()
	repo := NewSauceRepository()
	sauce := newSauce(t, "u1")
	require.NoError(t, repo.Insert(ctx, sauce))

	like, err := services.ApplyVote(sauce.Tally(), "u2", valueobjects.VoteLike)
	require.NoError(t, err)

	tally, err := repo.ApplyVote(ctx, sauce.ID(), like)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Likes())

	// The same outcome was computed from a standing that no longer holds
	_, err = repo.ApplyVote(ctx, sauce.ID(), like)
	assert.ErrorIs(t, err, ports.ErrVotePreconditionFailed)

	_, err = repo.ApplyVote(ctx, valueobjects.NewSauceID(), like)
	assert.ErrorIs(t, err, ports.ErrSauceNotFound)
}

func TestSauceRepository_UpdateDetailsKeepsVotes(t *testing.T) {
	ctx := context.Background()
	repo := NewSauceRepository()
	sauce := newSauce(t, "u1")
	require.NoError(t, repo.Insert(ctx, sauce))

	like, _ := services.ApplyVote(sauce.Tally(), "u2", valueobjects.VoteLike)
	_, err := repo.ApplyVote(ctx, sauce.ID(), like)
	require.NoError(t, err)

	// Stale aggregate read before the vote
	require.NoError(t, repo.UpdateDetails(ctx, sauce.ID(), entities.SauceDetails{Name: "New"}, sauce.ImageRef(), sauce.ImageRef()))

	loaded, err := repo.GetByID(ctx, sauce.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Likes())
	assert.True(t, loaded.Tally().UsersLiked.Has("u2"))
}

func TestSauceRepository_ConcurrentVotesByDifferentUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewSauceRepository()
	sauce := newSauce(t, "owner")
	require.NoError(t, repo.Insert(ctx, sauce))

	users := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, user := range users {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			// Every goroutine computes its outcome from the same stale tally
			outcome, err := services.ApplyVote(sauce.Tally(), user, valueobjects.VoteLike)
			if err == nil {
				_, _ = repo.ApplyVote(ctx, sauce.ID(), outcome)
			}
		}(user)
	}
	wg.Wait()

	loaded, err := repo.GetByID(ctx, sauce.ID())
	require.NoError(t, err)
	assert.Equal(t, len(users), loaded.Likes())
	assert.Equal(t, users, loaded.Tally().UsersLiked.Members())
}
