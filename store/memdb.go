package store

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

// kvItem is a btree.Item ordering entries by raw key bytes, giving MemDB
// and Fork the deterministic ascending iteration order the Merkle root
// computation in map.go/list.go depends on.
type kvItem struct {
	key   []byte
	value []byte
}

func (a *kvItem) Less(other btree.Item) bool {
	return bytes.Compare(a.key, other.(*kvItem).key) < 0
}

// MemDB is an in-memory Database backed by a btree.BTree, degree 32 (the
// value erigon's own btree-backed tables use for similarly small working
// sets). It is the only Database implementation this repository ships;
// a persistent engine is an external collaborator per spec.md §1.
type MemDB struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

// NewMemDB constructs an empty in-memory database.
func NewMemDB() *MemDB {
	return &MemDB{tree: btree.New(32)}
}

func (m *MemDB) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Get(&kvItem{key: key}) != nil, nil
}

func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item := m.tree.Get(&kvItem{key: key})
	if item == nil {
		return nil, ErrNotFound
	}
	v := item.(*kvItem).value
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemDB) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	m.tree.ReplaceOrInsert(&kvItem{key: k, value: v})
	return nil
}

func (m *MemDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Delete(&kvItem{key: key})
	return nil
}

func (m *MemDB) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.tree.AscendGreaterOrEqual(&kvItem{key: prefix}, func(i btree.Item) bool {
		item := i.(*kvItem)
		if !bytes.HasPrefix(item.key, prefix) {
			return false
		}
		return fn(item.key, item.value)
	})
	return nil
}

func (m *MemDB) Close() error { return nil }

// memBatch buffers writes for a single atomic application to a MemDB.
type memBatch struct {
	db  *MemDB
	ops []batchOp
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

func (m *MemDB) NewBatch() Batch {
	return &memBatch{db: m}
}

func (b *memBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, batchOp{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	b.ops = append(b.ops, batchOp{key: append([]byte(nil), key...), delete: true})
	return nil
}

func (b *memBatch) Size() int { return len(b.ops) }

func (b *memBatch) Write() error {
	for _, op := range b.ops {
		if op.delete {
			if err := b.db.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := b.db.Put(op.key, op.value); err != nil {
			return err
		}
	}
	b.ops = b.ops[:0]
	return nil
}

func (b *memBatch) Reset() { b.ops = b.ops[:0] }
