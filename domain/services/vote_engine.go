package services

import (
	"fmt"

	"piiquante/domain/core/entities"
	"piiquante/domain/core/valueobjects"
)

// Standing is where a user stands on a sauce before or after a vote
type Standing string

const (
	StandingNeutral  Standing = "neutral"
	StandingLiked    Standing = "liked"
	StandingDisliked Standing = "disliked"
)

// RejectionReason explains why a vote could not be applied
type RejectionReason string

const (
	ReasonDuplicateVote   RejectionReason = "DUPLICATE_VOTE"
	ReasonConflictingVote RejectionReason = "CONFLICTING_VOTE"
	ReasonNoOpToRemove    RejectionReason = "NOTHING_TO_REMOVE"
	ReasonInvalidIntent   RejectionReason = "INVALID_INTENT"
)

// VoteRejection is returned when a vote is not a legal transition
type VoteRejection struct {
	Reason  RejectionReason
	Message string
}

func (r *VoteRejection) Error() string {
	return fmt.Sprintf("vote rejected (%s): %s", r.Reason, r.Message)
}

// VoteOutcome describes one legal transition of a user's vote
type VoteOutcome struct {
	UserID       string
	Intent       valueobjects.VoteIntent
	Prior        Standing
	LikeDelta    int
	DislikeDelta int
	Tally        entities.VoteTally
}

// Summary is the human readable result of the transition
func (o VoteOutcome) Summary() string {
	switch {
	case o.LikeDelta > 0:
		return "Like added"
	case o.LikeDelta < 0:
		return "Like removed"
	case o.DislikeDelta > 0:
		return "Dislike added"
	default:
		return "Dislike removed"
	}
}

// StandingOf returns the user's current standing in the tally
func StandingOf(tally entities.VoteTally, userID string) Standing {
	switch {
	case tally.UsersLiked.Has(userID):
		return StandingLiked
	case tally.UsersDisliked.Has(userID):
		return StandingDisliked
	default:
		return StandingNeutral
	}
}

// ApplyVote computes the next tally for a user's vote.
// It never mutates its input. Counters of the returned tally always
// equal the size of their sets and the two sets stay disjoint.
func ApplyVote(tally entities.VoteTally, userID string, intent valueobjects.VoteIntent) (VoteOutcome, error) {
	if _, err := valueobjects.ParseVoteIntent(int(intent)); err != nil {
		return VoteOutcome{}, &VoteRejection{
			Reason:  ReasonInvalidIntent,
			Message: fmt.Sprintf("like must be 1, 0 or -1, got %d", int(intent)),
		}
	}

	prior := StandingOf(tally, userID)
	outcome := VoteOutcome{UserID: userID, Intent: intent, Prior: prior}

	switch {
	case prior == StandingNeutral && intent == valueobjects.VoteLike:
		outcome.LikeDelta = 1
		outcome.Tally = entities.VoteTally{
			UsersLiked:    tally.UsersLiked.With(userID),
			UsersDisliked: tally.UsersDisliked,
		}

	case prior == StandingNeutral && intent == valueobjects.VoteDislike:
		outcome.DislikeDelta = 1
		outcome.Tally = entities.VoteTally{
			UsersLiked:    tally.UsersLiked,
			UsersDisliked: tally.UsersDisliked.With(userID),
		}

	case prior == StandingNeutral:
		return VoteOutcome{}, &VoteRejection{
			Reason:  ReasonNoOpToRemove,
			Message: "user has no vote to remove on this sauce",
		}

	case intent == valueobjects.VoteRemove && prior == StandingLiked:
		outcome.LikeDelta = -1
		outcome.Tally = entities.VoteTally{
			UsersLiked:    tally.UsersLiked.Without(userID),
			UsersDisliked: tally.UsersDisliked,
		}

	case intent == valueobjects.VoteRemove:
		outcome.DislikeDelta = -1
		outcome.Tally = entities.VoteTally{
			UsersLiked:    tally.UsersLiked,
			UsersDisliked: tally.UsersDisliked.Without(userID),
		}

	case standingFor(intent) == prior:
		return VoteOutcome{}, &VoteRejection{
			Reason:  ReasonDuplicateVote,
			Message: fmt.Sprintf("user already %s this sauce", prior),
		}

	default:
		return VoteOutcome{}, &VoteRejection{
			Reason:  ReasonConflictingVote,
			Message: fmt.Sprintf("user already %s this sauce, remove that vote first", prior),
		}
	}

	return outcome, nil
}

func standingFor(intent valueobjects.VoteIntent) Standing {
	switch intent {
	case valueobjects.VoteLike:
		return StandingLiked
	case valueobjects.VoteDislike:
		return StandingDisliked
	default:
		return StandingNeutral
	}
}
