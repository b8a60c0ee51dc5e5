package validators

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTallyAddIsIdempotent(t *testing.T) {
	require := require.New(t)
	tally := NewTally()
	a := pk(1)

	require.True(tally.Add(a))
	require.Equal(1, tally.Count())

	require.False(tally.Add(a), "adding the same voter twice must not change the tally")
	require.Equal(1, tally.Count())
}

func TestTallyHasQuorum(t *testing.T) {
	require := require.New(t)
	tally := NewTally()
	tally.Add(pk(1))
	tally.Add(pk(2))

	require.False(tally.HasQuorum(3))
	tally.Add(pk(3))
	require.True(tally.HasQuorum(3))
}

func TestTallyVotersPreservesFirstVoteOrder(t *testing.T) {
	require := require.New(t)
	tally := NewTally()
	a, b, c := pk(1), pk(2), pk(3)

	tally.Add(b)
	tally.Add(a)
	tally.Add(b) // repeat, ignored
	tally.Add(c)

	require.Equal([]byte{b[0], a[0], c[0]}, []byte{tally.Voters()[0][0], tally.Voters()[1][0], tally.Voters()[2][0]})
}
