package store

import "github.com/luxfi/digital-rights-bft/crypto"

// Map is C1's authenticated key/value map: get/put over a Forker, with a
// RootHash computed as a Merkle digest over (key, hash(value)) leaves in
// ascending key order, per spec.md §4.1.
type Map[V any] struct {
	db     Forker
	prefix []byte
	encode func(V) []byte
	decode func([]byte) (V, error)
}

// NewMap binds a typed map to prefix within db. encode/decode define the
// canonical binary representation of V (see package state for the real codecs;
// tests may use trivial ones).
func NewMap[V any](db Forker, prefix []byte, encode func(V) []byte, decode func([]byte) (V, error)) *Map[V] {
	return &Map[V]{db: db, prefix: prefix, encode: encode, decode: decode}
}

func (m *Map[V]) fullKey(key []byte) []byte {
	full := make([]byte, 0, len(m.prefix)+len(key))
	full = append(full, m.prefix...)
	full = append(full, key...)
	return full
}

// Get returns the stored value and true, or the zero value and false if
// key is absent.
func (m *Map[V]) Get(key []byte) (V, bool, error) {
	var zero V
	raw, err := m.db.Get(m.fullKey(key))
	if err == ErrNotFound {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	v, err := m.decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Has reports whether key is present.
func (m *Map[V]) Has(key []byte) (bool, error) {
	return m.db.Has(m.fullKey(key))
}

// Put stores v under key.
func (m *Map[V]) Put(key []byte, v V) error {
	return m.db.Put(m.fullKey(key), m.encode(v))
}

// RootHash computes the Merkle root over every (key, hash(value)) pair
// currently stored, ascending by key. An empty map hashes to
// crypto.HashBytes(nil).
func (m *Map[V]) RootHash() (crypto.Hash, error) {
	var leaves [][]byte
	err := m.db.Iterate(m.prefix, func(fullKey, value []byte) bool {
		key := fullKey[len(m.prefix):]
		valueHash := crypto.HashBytes(value)
		leaf := make([]byte, 0, len(key)+crypto.HashSize)
		leaf = append(leaf, key...)
		leaf = append(leaf, valueHash[:]...)
		leaves = append(leaves, leaf)
		return true
	})
	if err != nil {
		return crypto.Hash{}, err
	}
	return merkleRoot(leaves)
}
