package store

import (
	"testing"

	"github.com/luxfi/digital-rights-bft/crypto"
	"github.com/stretchr/testify/require"
)

func stringMap(db Forker, prefix []byte) *Map[string] {
	return NewMap[string](db, prefix,
		func(s string) []byte { return []byte(s) },
		func(b []byte) (string, error) { return string(b), nil },
	)
}

func TestMapGetPutHas(t *testing.T) {
	require := require.New(t)
	db := NewMemDB()
	m := stringMap(db, []byte("m:"))

	_, ok, err := m.Get([]byte("k1"))
	require.NoError(err)
	require.False(ok)

	require.NoError(m.Put([]byte("k1"), "v1"))
	v, ok, err := m.Get([]byte("k1"))
	require.NoError(err)
	require.True(ok)
	require.Equal("v1", v)

	ok, err = m.Has([]byte("k1"))
	require.NoError(err)
	require.True(ok)
}

func TestMapRootHashEmptyIsHashOfNil(t *testing.T) {
	require := require.New(t)
	db := NewMemDB()
	m := stringMap(db, []byte("m:"))

	root, err := m.RootHash()
	require.NoError(err)
	require.Equal(crypto.HashBytes(nil), root)
}

func TestMapRootHashDeterministicRegardlessOfInsertOrder(t *testing.T) {
	require := require.New(t)

	db1 := NewMemDB()
	m1 := stringMap(db1, []byte("m:"))
	require.NoError(m1.Put([]byte("b"), "2"))
	require.NoError(m1.Put([]byte("a"), "1"))
	require.NoError(m1.Put([]byte("c"), "3"))

	db2 := NewMemDB()
	m2 := stringMap(db2, []byte("m:"))
	require.NoError(m2.Put([]byte("c"), "3"))
	require.NoError(m2.Put([]byte("a"), "1"))
	require.NoError(m2.Put([]byte("b"), "2"))

	root1, err := m1.RootHash()
	require.NoError(err)
	root2, err := m2.RootHash()
	require.NoError(err)
	require.Equal(root1, root2)
}

func TestMapRootHashChangesOnUpdate(t *testing.T) {
	require := require.New(t)
	db := NewMemDB()
	m := stringMap(db, []byte("m:"))
	require.NoError(m.Put([]byte("a"), "1"))

	before, err := m.RootHash()
	require.NoError(err)

	require.NoError(m.Put([]byte("a"), "2"))
	after, err := m.RootHash()
	require.NoError(err)

	require.NotEqual(before, after)
}

func TestMapScopedToPrefixDoesNotSeeOtherMaps(t *testing.T) {
	require := require.New(t)
	db := NewMemDB()
	m1 := stringMap(db, []byte("one:"))
	m2 := stringMap(db, []byte("two:"))

	require.NoError(m1.Put([]byte("a"), "from-one"))
	_, ok, err := m2.Get([]byte("a"))
	require.NoError(err)
	require.False(ok)
}
