package store

import (
	"hash"

	"golang.org/x/crypto/blake2b"
)

// blake2bHasher adapts blake2b.New256 to the func() hash.Hash shape
// go-merkle's Generate expects, keeping the Merkle tree's internal hash
// function identical to crypto.HashBytes.
func blake2bHasher() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	return h
}
