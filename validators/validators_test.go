package validators

import (
	"testing"

	"github.com/luxfi/digital-rights-bft/crypto"
	"github.com/stretchr/testify/require"
)

func pk(b byte) crypto.PubKey {
	var p crypto.PubKey
	p[0] = b
	return p
}

func TestSetOrderIsCanonicalRegardlessOfInputOrder(t *testing.T) {
	require := require.New(t)
	a, b, c := pk(1), pk(2), pk(3)

	s1 := NewSet(c, a, b)
	s2 := NewSet(b, c, a)

	require.Equal(s1.List(), s2.List())
}

func TestSetHasLenIndex(t *testing.T) {
	require := require.New(t)
	a, b := pk(1), pk(2)
	s := NewSet(a, b)

	require.Equal(2, s.Len())
	require.True(s.Has(a))
	require.False(s.Has(pk(9)))

	idx, ok := s.Index(b)
	require.True(ok)
	require.Equal(1, idx)
}

func TestSetLeaderRotatesByHeightPlusRound(t *testing.T) {
	require := require.New(t)
	a, b, c, d := pk(1), pk(2), pk(3), pk(4)
	s := NewSet(a, b, c, d)

	require.Equal(s.List()[0], s.Leader(0, 0))
	require.Equal(s.List()[1], s.Leader(0, 1))
	require.Equal(s.List()[1], s.Leader(1, 0))
	require.Equal(s.List()[0], s.Leader(4, 0))
}

func TestSetQuorumIsTwoThirdsPlusOne(t *testing.T) {
	require := require.New(t)
	four := NewSet(pk(1), pk(2), pk(3), pk(4))
	require.Equal(3, four.Quorum())

	seven := NewSet(pk(1), pk(2), pk(3), pk(4), pk(5), pk(6), pk(7))
	require.Equal(5, seven.Quorum())
}
