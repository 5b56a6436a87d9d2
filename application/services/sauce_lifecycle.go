package services

import (
	"context"
	"errors"
	"fmt"

	"piiquante/application/commands"
	"piiquante/application/ports"
	"piiquante/application/queries"
	"piiquante/domain/config"
	"piiquante/domain/core/entities"
	"piiquante/domain/core/valueobjects"
	domainservices "piiquante/domain/services"
	pkgerrors "piiquante/pkg/errors"

	"go.uber.org/zap"
)

// LifecycleMetrics receives business events from the lifecycle manager
type LifecycleMetrics interface {
	SauceCreated()
	SauceDeleted()
	VoteApplied(intent, result string)
	VoteRetried()
	BlobLeaked(reason string)
}

// VoteResult is what a caller learns about an applied vote
type VoteResult struct {
	Message  string                  `json:"message"`
	Standing domainservices.Standing `json:"standing"`
	Likes    int                     `json:"likes"`
	Dislikes int                     `json:"dislikes"`
}

// SauceLifecycle owns every mutation of a sauce: it authorizes the caller,
// keeps the record and its image paired, and drives the vote state machine.
type SauceLifecycle struct {
	repo      ports.SauceRepository
	blobs     ports.BlobStore
	publisher ports.EventPublisher
	cache     ports.Cache
	metrics   LifecycleMetrics
	cfg       *config.DomainConfig
	logger    *zap.Logger
}

// NewSauceLifecycle creates the lifecycle manager.
// publisher, cache and metrics may be nil.
func NewSauceLifecycle(
	repo ports.SauceRepository,
	blobs ports.BlobStore,
	publisher ports.EventPublisher,
	cache ports.Cache,
	metrics LifecycleMetrics,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *SauceLifecycle {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SauceLifecycle{
		repo:      repo,
		blobs:     blobs,
		publisher: publisher,
		cache:     cache,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// Create stores a new sauce owned by the caller with the already saved image.
// The image is deleted again if the sauce cannot be stored.
func (s *SauceLifecycle) Create(ctx context.Context, cmd commands.CreateSauceCommand) (*entities.Sauce, error) {
	claim := s.claimBlob(ctx, cmd.Image, "create_failed")
	defer claim.release()

	sauce, err := entities.NewSauceWithConfig(cmd.UserID, cmd.Details, cmd.Image, s.cfg)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, sauce); err != nil {
		return nil, pkgerrors.NewStorageError("insert", err)
	}
	claim.adopt()

	s.logger.Info("Sauce created",
		zap.String("sauceID", sauce.ID().String()),
		zap.String("userID", cmd.UserID),
	)
	s.metrics.SauceCreated()
	s.invalidate(ctx, sauce.ID())
	s.publishEvents(ctx, sauce)

	return sauce, nil
}

// Get returns one sauce; reading is public
func (s *SauceLifecycle) Get(ctx context.Context, id valueobjects.SauceID) (*entities.Sauce, error) {
	return s.load(ctx, id)
}

// List returns every sauce; reading is public
func (s *SauceLifecycle) List(ctx context.Context) ([]*entities.Sauce, error) {
	sauces, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.NewStorageError("list", err)
	}
	return sauces, nil
}

// Update changes a sauce on behalf of its owner.
// With a new image every detail is replaced and the previous image is
// deleted once the record points at the new one. Without one, only the
// fields present in the patch change. Any failure before the record is
// persisted deletes the new image.
func (s *SauceLifecycle) Update(ctx context.Context, cmd commands.UpdateSauceCommand) (*entities.Sauce, error) {
	claim := s.claimBlob(ctx, cmd.NewImage, "update_failed")
	defer claim.release()

	id, err := valueobjects.NewSauceIDFromString(cmd.SauceID)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	sauce, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !sauce.IsOwnedBy(cmd.UserID) {
		s.logger.Warn("Rejected update by non-owner",
			zap.String("sauceID", cmd.SauceID),
			zap.String("userID", cmd.UserID),
		)
		return nil, pkgerrors.NewUnauthorizedError("")
	}

	current := sauce.ImageRef()
	var previous valueobjects.ImageRef
	if cmd.HasNewImage() {
		previous, err = sauce.ReplaceWith(cmd.Patch, cmd.NewImage, s.cfg)
	} else {
		err = sauce.ApplyPatch(cmd.Patch, s.cfg)
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateDetails(ctx, id, sauce.Details(), sauce.ImageRef(), current); err != nil {
		switch {
		case errors.Is(err, ports.ErrSauceNotFound):
			return nil, pkgerrors.NewNotFoundError("sauce")
		case errors.Is(err, ports.ErrImageChanged):
			s.logger.Info("Update lost a race with another image change",
				zap.String("sauceID", cmd.SauceID),
			)
			return nil, pkgerrors.NewConflictError("sauce was changed concurrently, please retry")
		}
		return nil, pkgerrors.NewStorageError("update", err)
	}
	claim.adopt()

	if cmd.HasNewImage() && !previous.IsZero() && !previous.Equals(cmd.NewImage) {
		s.discardBlob(ctx, previous, "replaced")
	}

	s.logger.Info("Sauce updated",
		zap.String("sauceID", cmd.SauceID),
		zap.Bool("imageReplaced", cmd.HasNewImage()),
	)
	s.invalidate(ctx, id)
	s.publishEvents(ctx, sauce)

	return sauce, nil
}

// Delete removes a sauce and then its image on behalf of its owner.
// A failed image delete is logged and never keeps the record alive.
func (s *SauceLifecycle) Delete(ctx context.Context, cmd commands.DeleteSauceCommand) error {
	id, err := valueobjects.NewSauceIDFromString(cmd.SauceID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	sauce, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if !sauce.IsOwnedBy(cmd.UserID) {
		s.logger.Warn("Rejected delete by non-owner",
			zap.String("sauceID", cmd.SauceID),
			zap.String("userID", cmd.UserID),
		)
		return pkgerrors.NewUnauthorizedError("")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ports.ErrSauceNotFound) {
			return pkgerrors.NewNotFoundError("sauce")
		}
		return pkgerrors.NewStorageError("delete", err)
	}

	s.discardBlob(ctx, sauce.ImageRef(), "deleted")

	sauce.MarkDeleted()
	s.logger.Info("Sauce deleted", zap.String("sauceID", cmd.SauceID))
	s.metrics.SauceDeleted()
	s.invalidate(ctx, id)
	s.publishEvents(ctx, sauce)

	return nil
}

// Vote applies a like, a dislike or the removal of the caller's vote.
// The transition is persisted with a conditional write; when a concurrent
// vote by the same user wins the race the vote is re-evaluated against
// fresh state.
func (s *SauceLifecycle) Vote(ctx context.Context, cmd commands.VoteSauceCommand) (*VoteResult, error) {
	id, err := valueobjects.NewSauceIDFromString(cmd.SauceID)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	intent := valueobjects.VoteIntent(cmd.Like)

	for attempt := 1; attempt <= s.cfg.MaxVoteAttempts; attempt++ {
		sauce, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}

		outcome, err := domainservices.ApplyVote(sauce.Tally(), cmd.UserID, intent)
		if err != nil {
			var rejection *domainservices.VoteRejection
			if errors.As(err, &rejection) {
				s.metrics.VoteApplied(intent.String(), string(rejection.Reason))
				return nil, pkgerrors.NewRejectedError(string(rejection.Reason), rejection.Message)
			}
			return nil, err
		}

		tally, err := s.repo.ApplyVote(ctx, id, outcome)
		switch {
		case errors.Is(err, ports.ErrVotePreconditionFailed):
			s.logger.Debug("Vote lost a race, re-evaluating",
				zap.String("sauceID", cmd.SauceID),
				zap.String("userID", cmd.UserID),
				zap.Int("attempt", attempt),
			)
			s.metrics.VoteRetried()
			continue
		case errors.Is(err, ports.ErrSauceNotFound):
			return nil, pkgerrors.NewNotFoundError("sauce")
		case err != nil:
			return nil, pkgerrors.NewStorageError("vote", err)
		}

		sauce.RecordVote(cmd.UserID, intent, tally)
		s.metrics.VoteApplied(intent.String(), "applied")
		s.invalidate(ctx, id)
		s.publishEvents(ctx, sauce)

		return &VoteResult{
			Message:  outcome.Summary(),
			Standing: domainservices.StandingOf(tally, cmd.UserID),
			Likes:    tally.Likes(),
			Dislikes: tally.Dislikes(),
		}, nil
	}

	s.metrics.VoteApplied(intent.String(), "conflict")
	return nil, pkgerrors.NewConflictError(
		fmt.Sprintf("vote could not be applied after %d attempts, please retry", s.cfg.MaxVoteAttempts))
}

func (s *SauceLifecycle) load(ctx context.Context, id valueobjects.SauceID) (*entities.Sauce, error) {
	sauce, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrSauceNotFound) {
			return nil, pkgerrors.NewNotFoundError("sauce")
		}
		return nil, pkgerrors.NewStorageError("get", err)
	}
	return sauce, nil
}

// discardBlob deletes an image best-effort. Failures leave a leaked file
// behind and are logged so it can be found.
func (s *SauceLifecycle) discardBlob(ctx context.Context, ref valueobjects.ImageRef, reason string) {
	if ref.IsZero() {
		return
	}

	// Cleanup still runs when the caller has gone away
	ctx = context.WithoutCancel(ctx)

	if err := s.blobs.Delete(ctx, ref); err != nil {
		s.logger.Error("Failed to delete image",
			zap.String("image", ref.URL()),
			zap.String("reason", reason),
			zap.Bool("leak_candidate", true),
			zap.Error(err),
		)
		s.metrics.BlobLeaked(reason)
	}
}

// blobClaim deletes a freshly saved image unless a record adopted it
type blobClaim struct {
	lifecycle *SauceLifecycle
	ctx       context.Context
	ref       valueobjects.ImageRef
	reason    string
	adopted   bool
}

func (s *SauceLifecycle) claimBlob(ctx context.Context, ref valueobjects.ImageRef, reason string) *blobClaim {
	return &blobClaim{lifecycle: s, ctx: ctx, ref: ref, reason: reason}
}

func (c *blobClaim) adopt() {
	c.adopted = true
}

func (c *blobClaim) release() {
	if c.adopted || c.ref.IsZero() {
		return
	}
	c.lifecycle.discardBlob(c.ctx, c.ref, c.reason)
}

func (s *SauceLifecycle) invalidate(ctx context.Context, id valueobjects.SauceID) {
	if s.cache == nil {
		return
	}
	for _, key := range []string{queries.SauceCacheKey(id.String()), queries.ListCacheKey()} {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to invalidate cache", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *SauceLifecycle) publishEvents(ctx context.Context, sauce *entities.Sauce) {
	evts := sauce.GetUncommittedEvents()
	if s.publisher == nil || len(evts) == 0 {
		sauce.MarkEventsAsCommitted()
		return
	}

	if err := s.publisher.PublishBatch(ctx, evts); err != nil {
		s.logger.Warn("Failed to publish sauce events",
			zap.String("sauceID", sauce.ID().String()),
			zap.Int("count", len(evts)),
			zap.Error(err),
		)
	}
	sauce.MarkEventsAsCommitted()
}

type noopMetrics struct{}

func (noopMetrics) SauceCreated()              {}
func (noopMetrics) SauceDeleted()              {}
func (noopMetrics) VoteApplied(string, string) {}
func (noopMetrics) VoteRetried()               {}
func (noopMetrics) BlobLeaked(string)          {}
