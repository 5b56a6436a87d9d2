package valueobjects

import "fmt"

// VoteIntent is what a user asks to do with their opinion of a sauce.
// The numeric values are the wire values of the like endpoint.
type VoteIntent int

const (
	VoteDislike VoteIntent = -1
	VoteRemove  VoteIntent = 0
	VoteLike    VoteIntent = 1
)

// ParseVoteIntent converts a wire value into an intent
func ParseVoteIntent(value int) (VoteIntent, error) {
	switch VoteIntent(value) {
	case VoteLike, VoteRemove, VoteDislike:
		return VoteIntent(value), nil
	default:
		return 0, fmt.Errorf("unsupported vote value %d", value)
	}
}

// String returns a readable name for logs and events
func (v VoteIntent) String() string {
	switch v {
	case VoteLike:
		return "like"
	case VoteRemove:
		return "remove"
	case VoteDislike:
		return "dislike"
	default:
		return fmt.Sprintf("vote(%d)", int(v))
	}
}
