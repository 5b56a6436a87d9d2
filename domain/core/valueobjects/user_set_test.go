package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSet(t *testing.T) {
	set := NewUserSet("b", "a", "a", "")

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"a", "b"}, set.Members())

	withC := set.With("c")
	withoutA := set.Without("a")

	assert.Equal(t, 2, set.Len(), "receiver must not change")
	assert.True(t, withC.Has("c"))
	assert.False(t, withoutA.Has("a"))
	assert.True(t, set.Intersects(withoutA))
	assert.False(t, NewUserSet("x").Intersects(set))
}

func TestUserSet_ZeroValue(t *testing.T) {
	var set UserSet

	assert.Equal(t, 0, set.Len())
	assert.False(t, set.Has("a"))
	assert.Equal(t, []string{}, set.Members())
	assert.True(t, set.With("a").Has("a"))
}

func TestUserSet_JSON(t *testing.T) {
	data, err := json.Marshal(NewUserSet("z", "y"))
	require.NoError(t, err)
	assert.JSONEq(t, `["y","z"]`, string(data))

	var decoded UserSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Has("y"))
}

func TestParseVoteIntent(t *testing.T) {
	for _, v := range []int{-1, 0, 1} {
		intent, err := ParseVoteIntent(v)
		require.NoError(t, err)
		assert.Equal(t, v, int(intent))
	}

	_, err := ParseVoteIntent(2)
	assert.Error(t, err)
	assert.Equal(t, "like", VoteLike.String())
}
