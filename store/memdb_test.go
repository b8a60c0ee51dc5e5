package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBPutGetDelete(t *testing.T) {
	require := require.New(t)
	db := NewMemDB()

	ok, err := db.Has([]byte("a"))
	require.NoError(err)
	require.False(ok)

	require.NoError(db.Put([]byte("a"), []byte("1")))
	ok, err = db.Has([]byte("a"))
	require.NoError(err)
	require.True(ok)

	v, err := db.Get([]byte("a"))
	require.NoError(err)
	require.Equal([]byte("1"), v)

	require.NoError(db.Delete([]byte("a")))
	_, err = db.Get([]byte("a"))
	require.ErrorIs(err, ErrNotFound)
}

func TestMemDBIterateAscendingAndPrefixed(t *testing.T) {
	require := require.New(t)
	db := NewMemDB()

	require.NoError(db.Put([]byte("p:b"), []byte("2")))
	require.NoError(db.Put([]byte("p:a"), []byte("1")))
	require.NoError(db.Put([]byte("q:a"), []byte("ignored")))
	require.NoError(db.Put([]byte("p:c"), []byte("3")))

	var keys []string
	err := db.Iterate([]byte("p:"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		return true
	})
	require.NoError(err)
	require.Equal([]string{"p:a", "p:b", "p:c"}, keys)
}

func TestMemDBBatchIsAtomicOnWrite(t *testing.T) {
	require := require.New(t)
	db := NewMemDB()

	batch := db.NewBatch()
	require.NoError(batch.Put([]byte("x"), []byte("1")))
	require.NoError(batch.Put([]byte("y"), []byte("2")))
	require.Equal(2, batch.Size())

	ok, _ := db.Has([]byte("x"))
	require.False(ok)

	require.NoError(batch.Write())
	ok, _ = db.Has([]byte("x"))
	require.True(ok)
	ok, _ = db.Has([]byte("y"))
	require.True(ok)
	require.Equal(0, batch.Size())
}
