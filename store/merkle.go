package store

import (
	"github.com/luxfi/digital-rights-bft/crypto"
	merkle "github.com/xsleonard/go-merkle"
)

// merkleRoot computes the root hash over leaves, in the order given. An
// empty leaf set hashes to crypto.HashBytes(nil), matching spec.md §4.1's
// "empty map's root_hash is hash of empty input".
//
// This wraps xsleonard/go-merkle (carried into this module from the
// AKJUS-bsc-erigon dependency surface) rather than hand-rolling tree
// construction: Map and List both need the identical padding/pairing
// strategy to stay byte-identical across independent replicas (spec.md's
// determinism requirement), and a single shared library is the only way two
// independently written call sites are guaranteed to agree.
func merkleRoot(leaves [][]byte) (crypto.Hash, error) {
	if len(leaves) == 0 {
		return crypto.HashBytes(nil), nil
	}
	tree := merkle.NewTree()
	if err := tree.Generate(leaves, blake2bHasher); err != nil {
		return crypto.Hash{}, err
	}
	root := tree.Root()
	return crypto.HashFromBytes(root.Hash)
}
