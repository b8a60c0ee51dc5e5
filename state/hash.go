package state

import "github.com/luxfi/digital-rights-bft/crypto"

// StateHash computes C3's deterministic digest of v, per spec.md §4.3:
//
//	hash( root(distributors) || root(owners) || root(contents)
//	    || root(distributor_contracts[0..len(distributors))) in id order
//	    || root(owner_contents[0..len(owners))) in id order )
//
// Ordering is fixed; two replicas that applied the same transaction
// sequence must compute identical digests (I6).
func StateHash(v *View) (crypto.Hash, error) {
	var buf []byte

	distRoot, err := v.Distributors.RootHash()
	if err != nil {
		return crypto.Hash{}, err
	}
	buf = append(buf, distRoot[:]...)

	ownerRoot, err := v.Owners.RootHash()
	if err != nil {
		return crypto.Hash{}, err
	}
	buf = append(buf, ownerRoot[:]...)

	contentRoot, err := v.Contents.RootHash()
	if err != nil {
		return crypto.Hash{}, err
	}
	buf = append(buf, contentRoot[:]...)

	numDistributors, err := v.Distributors.Len()
	if err != nil {
		return crypto.Hash{}, err
	}
	for id := uint64(0); id < numDistributors; id++ {
		root, err := v.DistributorContracts(uint16(id)).RootHash()
		if err != nil {
			return crypto.Hash{}, err
		}
		buf = append(buf, root[:]...)
	}

	numOwners, err := v.Owners.Len()
	if err != nil {
		return crypto.Hash{}, err
	}
	for id := uint64(0); id < numOwners; id++ {
		root, err := v.OwnerContents(uint16(id)).RootHash()
		if err != nil {
			return crypto.Hash{}, err
		}
		buf = append(buf, root[:]...)
	}

	return crypto.HashBytes(buf), nil
}
