// Package app implements C5: the deterministic application executor.
// Execute is total — every domain precondition failure is absorbed as a
// silent no-op so that two honest replicas executing the same transaction
// against the same state make identical progress (spec.md §4.5, §7 class
// 2, §9's "silent domain failures" design note). Only a store I/O error
// propagates.
//
// The preconditions and effects below follow spec.md §4.5's authoritative
// table, translated from original_source/digital_rights/src/lib.rs's
// execute match arms (field order, precondition order, effect order) into
// a Go switch over txmodel's closed Tx variants.
package app

import (
	"github.com/luxfi/digital-rights-bft/crypto"
	"github.com/luxfi/digital-rights-bft/state"
	"github.com/luxfi/digital-rights-bft/store"
	"github.com/luxfi/digital-rights-bft/txmodel"
)

// MaxOwners bounds the owners list, per spec.md §3 ("at most 5000 owners,
// configurable").
const MaxOwners = 5000

// Execute applies tx to view. It returns a non-nil error only when an
// underlying store operation fails; every domain-level precondition
// failure is a no-op returning nil.
func Execute(view *state.View, tx txmodel.Tx) error {
	switch t := tx.(type) {
	case *txmodel.CreateOwner:
		return executeCreateOwner(view, t)
	case *txmodel.CreateDistributor:
		return executeCreateDistributor(view, t)
	case *txmodel.AddContent:
		return executeAddContent(view, t)
	case *txmodel.AddContract:
		return executeAddContract(view, t)
	case *txmodel.Report:
		return executeReport(view, t)
	default:
		// Decode never returns anything outside the five variants above;
		// an unrecognized concrete type reaching here is a caller bug, not
		// a reachable runtime state, so it is a no-op rather than a panic
		// to preserve Execute's totality.
		return nil
	}
}

func executeCreateOwner(view *state.View, tx *txmodel.CreateOwner) error {
	_, has, err := view.Participants.Get(tx.PubKey[:])
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	n, err := view.Owners.Len()
	if err != nil {
		return err
	}
	if n >= MaxOwners {
		return nil
	}

	ownerID := uint16(n)
	if err := view.Owners.Append(state.Owner{
		PubKey:        tx.PubKey,
		Name:          tx.Name,
		OwnershipHash: crypto.HashBytes(nil),
	}); err != nil {
		return err
	}
	return view.Participants.Put(tx.PubKey[:], state.Participant{Role: state.RoleOwner, ID: ownerID})
}

func executeCreateDistributor(view *state.View, tx *txmodel.CreateDistributor) error {
	_, has, err := view.Participants.Get(tx.PubKey[:])
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	n, err := view.Distributors.Len()
	if err != nil {
		return err
	}
	distributorID := uint16(n)
	if err := view.Distributors.Append(state.Distributor{
		PubKey:        tx.PubKey,
		Name:          tx.Name,
		ContractsHash: crypto.HashBytes(nil),
	}); err != nil {
		return err
	}
	return view.Participants.Put(tx.PubKey[:], state.Participant{Role: state.RoleDistributor, ID: distributorID})
}

func executeAddContent(view *state.View, tx *txmodel.AddContent) error {
	_, has, err := view.Contents.Get(tx.Fingerprint[:])
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	sum := 0
	for _, share := range tx.Shares {
		sum += int(share.Percent)
		_, ok, err := view.Owners.Get(uint64(share.OwnerID))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	if sum != 100 {
		return nil
	}

	content := state.Content{
		Fingerprint:          tx.Fingerprint,
		Title:                tx.Title,
		PricePerListen:       tx.PricePerListen,
		MinPlays:             tx.MinPlays,
		AdditionalConditions: tx.AdditionalConditions,
		Shares:               tx.Shares,
		Distributors:         []uint16{},
	}
	if err := view.Contents.Put(tx.Fingerprint[:], content); err != nil {
		return err
	}
	if err := view.Fingerprints.Append(tx.Fingerprint); err != nil {
		return err
	}

	for _, share := range tx.Shares {
		ownerContents := view.OwnerContents(share.OwnerID)
		if err := ownerContents.Append(state.Ownership{
			Fingerprint: tx.Fingerprint,
			ReportsHash: crypto.HashBytes(nil),
		}); err != nil {
			return err
		}
		root, err := ownerContents.RootHash()
		if err != nil {
			return err
		}
		owner, ok, err := view.Owners.Get(uint64(share.OwnerID))
		if err != nil {
			return err
		}
		if !ok {
			continue // unreachable: existence was checked above
		}
		owner.OwnershipHash = root
		if err := view.Owners.Set(uint64(share.OwnerID), owner); err != nil {
			return err
		}
	}
	return nil
}

func executeAddContract(view *state.View, tx *txmodel.AddContract) error {
	distributor, ok, err := view.Distributors.Get(uint64(tx.DistributorID))
	if err != nil {
		return err
	}
	if !ok || distributor.PubKey != tx.PubKey {
		return nil
	}

	content, ok, err := view.Contents.Get(tx.Fingerprint[:])
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if containsUint16(content.Distributors, tx.DistributorID) {
		return nil
	}
	content.Distributors = insertSortedUnique(content.Distributors, tx.DistributorID)
	if err := view.Contents.Put(tx.Fingerprint[:], content); err != nil {
		return err
	}

	contracts := view.DistributorContracts(tx.DistributorID)
	if err := contracts.Append(state.Contract{
		Fingerprint: tx.Fingerprint,
		ReportsHash: crypto.HashBytes(nil),
	}); err != nil {
		return err
	}
	root, err := contracts.RootHash()
	if err != nil {
		return err
	}
	distributor.ContractsHash = root
	return view.Distributors.Set(uint64(tx.DistributorID), distributor)
}

func executeReport(view *state.View, tx *txmodel.Report) error {
	_, has, err := view.Reports.Get(tx.Uuid[:])
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	distributor, ok, err := view.Distributors.Get(uint64(tx.DistributorID))
	if err != nil {
		return err
	}
	if !ok || distributor.PubKey != tx.PubKey {
		return nil
	}

	content, ok, err := view.Contents.Get(tx.Fingerprint[:])
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	contracts := view.DistributorContracts(tx.DistributorID)
	contractIdx, found, err := findContractByFingerprint(contracts, tx.Fingerprint)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	if err := view.Reports.Put(tx.Uuid[:], state.Report{
		DistributorID: tx.DistributorID,
		Fingerprint:   tx.Fingerprint,
		Uuid:          tx.Uuid,
		Time:          tx.Time,
		Plays:         tx.Plays,
		Amount:        tx.Amount,
		Comment:       tx.Comment,
	}); err != nil {
		return err
	}

	contract, _, err := contracts.Get(contractIdx)
	if err != nil {
		return err
	}
	contract.PlaysTotal += tx.Plays
	contract.AmountOwed += tx.Amount
	contract.ReportsHash = crypto.HashBytes(tx.Uuid[:])
	if err := contracts.Set(contractIdx, contract); err != nil {
		return err
	}

	for _, share := range content.Shares {
		ownerContents := view.OwnerContents(share.OwnerID)
		idx, found, err := findOwnershipByFingerprint(ownerContents, tx.Fingerprint)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		ownership, _, err := ownerContents.Get(idx)
		if err != nil {
			return err
		}
		ownership.PlaysTotal += (tx.Plays * uint64(share.Percent)) / 100
		ownership.AmountPaid += (tx.Amount * uint64(share.Percent)) / 100
		ownership.ReportsHash = crypto.HashBytes(tx.Uuid[:])
		if err := ownerContents.Set(idx, ownership); err != nil {
			return err
		}
	}
	return nil
}

func containsUint16(xs []uint16, v uint16) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// insertSortedUnique inserts v into the strictly increasing sequence xs,
// maintaining invariant 5 (content.distributors is a strictly increasing
// sequence of unique ids) regardless of the order contracts are added in.
func insertSortedUnique(xs []uint16, v uint16) []uint16 {
	i := 0
	for i < len(xs) && xs[i] < v {
		i++
	}
	out := make([]uint16, 0, len(xs)+1)
	out = append(out, xs[:i]...)
	out = append(out, v)
	out = append(out, xs[i:]...)
	return out
}

func findContractByFingerprint(contracts *store.List[state.Contract], fp crypto.Fingerprint) (uint64, bool, error) {
	n, err := contracts.Len()
	if err != nil {
		return 0, false, err
	}
	for i := uint64(0); i < n; i++ {
		c, _, err := contracts.Get(i)
		if err != nil {
			return 0, false, err
		}
		if c.Fingerprint == fp {
			return i, true, nil
		}
	}
	return 0, false, nil
}

func findOwnershipByFingerprint(owned *store.List[state.Ownership], fp crypto.Fingerprint) (uint64, bool, error) {
	n, err := owned.Len()
	if err != nil {
		return 0, false, err
	}
	for i := uint64(0); i < n; i++ {
		o, _, err := owned.Get(i)
		if err != nil {
			return 0, false, err
		}
		if o.Fingerprint == fp {
			return i, true, nil
		}
	}
	return 0, false, nil
}
