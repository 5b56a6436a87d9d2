package valueobjects

import (
	"encoding/json"
	"sort"
)

// UserSet is an immutable set of user identifiers.
// With and Without return new sets and never modify the receiver.
type UserSet struct {
	members map[string]struct{}
}

// NewUserSet creates a set from a list of ids, dropping duplicates and empty ids
func NewUserSet(ids ...string) UserSet {
	members := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			members[id] = struct{}{}
		}
	}
	return UserSet{members: members}
}

// Has reports whether the user is a member
func (s UserSet) Has(userID string) bool {
	_, ok := s.members[userID]
	return ok
}

// Len returns the number of members
func (s UserSet) Len() int {
	return len(s.members)
}

// With returns a copy of the set including userID
func (s UserSet) With(userID string) UserSet {
	next := s.clone()
	next.members[userID] = struct{}{}
	return next
}

// Without returns a copy of the set excluding userID
func (s UserSet) Without(userID string) UserSet {
	next := s.clone()
	delete(next.members, userID)
	return next
}

// Intersects reports whether the two sets share a member
func (s UserSet) Intersects(other UserSet) bool {
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	for id := range small.members {
		if large.Has(id) {
			return true
		}
	}
	return false
}

// Members returns the ids in sorted order
func (s UserSet) Members() []string {
	ids := make([]string, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalJSON encodes the set as a sorted array
func (s UserSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Members())
}

// UnmarshalJSON decodes an array of ids
func (s *UserSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewUserSet(ids...)
	return nil
}

func (s UserSet) clone() UserSet {
	members := make(map[string]struct{}, len(s.members)+1)
	for id := range s.members {
		members[id] = struct{}{}
	}
	return UserSet{members: members}
}
