package store

import (
	"encoding/binary"

	"github.com/luxfi/digital-rights-bft/crypto"
)

// List is C1's authenticated append-only list: append/set/get/len over a
// Forker, with a RootHash computed as a Merkle digest over hash(value)
// leaves in index order, per spec.md §4.1.
type List[V any] struct {
	db     Forker
	prefix []byte
	encode func(V) []byte
	decode func([]byte) (V, error)
}

// NewList binds a typed list to prefix within db.
func NewList[V any](db Forker, prefix []byte, encode func(V) []byte, decode func([]byte) (V, error)) *List[V] {
	return &List[V]{db: db, prefix: prefix, encode: encode, decode: decode}
}

// lenKey stores the list's current length; indexKey(i) stores element i.
// Both live under the list's prefix so a single Iterate with that prefix
// would see them intermixed — RootHash never calls Iterate for this reason
// and instead walks indices 0..Len directly.
func (l *List[V]) lenKey() []byte { return append(append([]byte{}, l.prefix...), 0xFF) }

func (l *List[V]) indexKey(i uint64) []byte {
	key := make([]byte, len(l.prefix)+8)
	copy(key, l.prefix)
	binary.BigEndian.PutUint64(key[len(l.prefix):], i)
	return key
}

// Len returns the number of elements appended so far.
func (l *List[V]) Len() (uint64, error) {
	raw, err := l.db.Get(l.lenKey())
	if err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (l *List[V]) setLen(n uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return l.db.Put(l.lenKey(), buf[:])
}

// Append adds v at the end of the list.
func (l *List[V]) Append(v V) error {
	n, err := l.Len()
	if err != nil {
		return err
	}
	if err := l.db.Put(l.indexKey(n), l.encode(v)); err != nil {
		return err
	}
	return l.setLen(n + 1)
}

// Set overwrites the element at index i, which must already exist.
func (l *List[V]) Set(i uint64, v V) error {
	return l.db.Put(l.indexKey(i), l.encode(v))
}

// Get returns the element at index i.
func (l *List[V]) Get(i uint64) (V, bool, error) {
	var zero V
	n, err := l.Len()
	if err != nil {
		return zero, false, err
	}
	if i >= n {
		return zero, false, nil
	}
	raw, err := l.db.Get(l.indexKey(i))
	if err != nil {
		return zero, false, err
	}
	v, err := l.decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Iter calls fn for every element in index order until fn returns false.
func (l *List[V]) Iter(fn func(i uint64, v V) bool) error {
	n, err := l.Len()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		v, ok, err := l.Get(i)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if !fn(i, v) {
			break
		}
	}
	return nil
}

// RootHash computes the Merkle root over hash(value) leaves in index
// order. An empty list hashes to crypto.HashBytes(nil).
func (l *List[V]) RootHash() (crypto.Hash, error) {
	n, err := l.Len()
	if err != nil {
		return crypto.Hash{}, err
	}
	leaves := make([][]byte, 0, n)
	err = l.Iter(func(_ uint64, v V) bool {
		leaves = append(leaves, l.encode(v))
		return true
	})
	if err != nil {
		return crypto.Hash{}, err
	}
	return merkleRoot(leaves)
}
