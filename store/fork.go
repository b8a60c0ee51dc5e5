package store

import (
	"bytes"
	"sort"
)

// Fork is a copy-on-write layer over a Database (or another Fork, so forks
// nest). All mutations land in the fork's own write set; reads check that
// write set first and fall through to the parent on a miss. Merge applies
// the write set to the parent atomically via a Batch; Discard throws it
// away. This is exactly the fork/merge contract spec.md §4.1 and §4.7
// require: one fork per candidate proposal, merged only on commit.
type Fork struct {
	parent Forker
	writes map[string][]byte // nil value for a live entry is a tombstone
	order  []string          // insertion order, for deterministic replay
}

// NewFork opens a fork over parent.
func NewFork(parent Forker) *Fork {
	return &Fork{parent: parent, writes: make(map[string][]byte)}
}

func (f *Fork) Has(key []byte) (bool, error) {
	if v, ok := f.writes[string(key)]; ok {
		return !isTombstone(v), nil
	}
	return f.parent.Has(key)
}

func (f *Fork) Get(key []byte) ([]byte, error) {
	if v, ok := f.writes[string(key)]; ok {
		if isTombstone(v) {
			return nil, ErrNotFound
		}
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}
	return f.parent.Get(key)
}

func (f *Fork) Put(key, value []byte) error {
	k := string(key)
	if _, ok := f.writes[k]; !ok {
		f.order = append(f.order, k)
	}
	v := append([]byte(nil), value...)
	if len(v) == 0 {
		v = []byte{} // keep distinguishable from nil tombstone marker below
	}
	f.writes[k] = v
	return nil
}

func (f *Fork) Delete(key []byte) error {
	k := string(key)
	if _, ok := f.writes[k]; !ok {
		f.order = append(f.order, k)
	}
	f.writes[k] = nil
	return nil
}

func isTombstone(v []byte) bool { return v == nil }

// Iterate merges the fork's own writes with the parent's entries under
// prefix, in ascending key order, skipping tombstoned keys.
func (f *Fork) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	seen := make(map[string]bool, len(f.writes))
	// Fork's own writes first pass: collect, then ascend parent merging in.
	type entry struct {
		key   []byte
		value []byte
	}
	var own []entry
	for k, v := range f.writes {
		kb := []byte(k)
		if !bytes.HasPrefix(kb, prefix) {
			continue
		}
		seen[k] = true
		if isTombstone(v) {
			continue
		}
		own = append(own, entry{key: kb, value: v})
	}
	merged := make(map[string][]byte, len(own))
	keys := make([]string, 0, len(own))
	for _, e := range own {
		merged[string(e.key)] = e.value
		keys = append(keys, string(e.key))
	}
	err := f.parent.Iterate(prefix, func(key, value []byte) bool {
		if seen[string(key)] {
			return true // already decided by the fork's write set
		}
		merged[string(key)] = value
		keys = append(keys, string(key))
		return true
	})
	if err != nil {
		return err
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn([]byte(k), merged[k]) {
			return nil
		}
	}
	return nil
}

func (f *Fork) NewBatch() Batch { return &forkBatch{fork: f} }

func (f *Fork) Close() error { return nil }

// Fork opens a nested fork over this fork, per spec.md §4.1's requirement
// that "nested reads see prior fork mutations".
func (f *Fork) Fork() *Fork { return NewFork(f) }

// Merge applies every write in this fork's write set to the parent,
// atomically via a single Batch.
func (f *Fork) Merge() error {
	batch := f.parent.NewBatch()
	for _, k := range f.order {
		v := f.writes[k]
		if isTombstone(v) {
			if err := batch.Delete([]byte(k)); err != nil {
				return err
			}
			continue
		}
		if err := batch.Put([]byte(k), v); err != nil {
			return err
		}
	}
	return batch.Write()
}

// Discard drops the fork's write set without touching the parent.
func (f *Fork) Discard() {
	f.writes = make(map[string][]byte)
	f.order = nil
}

type forkBatch struct {
	fork *Fork
	ops  []batchOp
}

func (b *forkBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, batchOp{key: key, value: value})
	return nil
}

func (b *forkBatch) Delete(key []byte) error {
	b.ops = append(b.ops, batchOp{key: key, delete: true})
	return nil
}

func (b *forkBatch) Size() int { return len(b.ops) }

func (b *forkBatch) Write() error {
	for _, op := range b.ops {
		if op.delete {
			if err := b.fork.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := b.fork.Put(op.key, op.value); err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}

func (b *forkBatch) Reset() { b.ops = nil }
