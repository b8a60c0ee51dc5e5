package state

import (
	"github.com/luxfi/digital-rights-bft/crypto"
	"github.com/luxfi/digital-rights-bft/store"
)

// Key prefixes for the named maps/lists spec.md §4.2 requires. Each is a
// single byte so owner/distributor sub-list prefixes (which append a
// 2-byte id) stay short and collision-free.
var (
	prefixParticipants = []byte{0x01}
	prefixOwners       = []byte{0x02}
	prefixDistributors = []byte{0x03}
	prefixContents     = []byte{0x04}
	prefixFingerprints = []byte{0x05}
	prefixReports      = []byte{0x06}
	prefixOwnerConts   = []byte{0x07} // + 2-byte owner_id
	prefixDistConts    = []byte{0x08} // + 2-byte distributor_id
)

func fingerprintEncode(h crypto.Hash) []byte { return append([]byte(nil), h[:]...) }

func fingerprintDecode(b []byte) (crypto.Hash, error) { return crypto.HashFromBytes(b) }

// View binds the application's typed collections to fixed prefixes inside
// one store.Forker, per spec.md §4.2. A View opened over a store.Fork is
// what the consensus handler mutates while speculatively executing a
// candidate block (§4.7's Execute).
type View struct {
	db store.Forker

	Participants *store.Map[Participant]
	Owners       *store.List[Owner]
	Distributors *store.List[Distributor]
	Contents     *store.Map[Content]
	Fingerprints *store.List[crypto.Fingerprint]
	Reports      *store.Map[Report]
}

// NewView wires every named collection in db.
func NewView(db store.Forker) *View {
	return &View{
		db: db,
		Participants: store.NewMap[Participant](db, prefixParticipants,
			encodeParticipant, decodeParticipant),
		Owners: store.NewList[Owner](db, prefixOwners,
			encodeOwner, decodeOwner),
		Distributors: store.NewList[Distributor](db, prefixDistributors,
			encodeDistributor, decodeDistributor),
		Contents: store.NewMap[Content](db, prefixContents,
			encodeContent, decodeContent),
		Fingerprints: store.NewList[crypto.Fingerprint](db, prefixFingerprints,
			fingerprintEncode, fingerprintDecode),
		Reports: store.NewMap[Report](db, prefixReports,
			encodeReport, decodeReport),
	}
}

// OwnerContents returns the append-only Ownership list for ownerID.
func (v *View) OwnerContents(ownerID uint16) *store.List[Ownership] {
	prefix := append(append([]byte(nil), prefixOwnerConts...), byte(ownerID>>8), byte(ownerID))
	return store.NewList[Ownership](v.db, prefix, encodeOwnership, decodeOwnership)
}

// DistributorContracts returns the append-only Contract list for
// distributorID.
func (v *View) DistributorContracts(distributorID uint16) *store.List[Contract] {
	prefix := append(append([]byte(nil), prefixDistConts...), byte(distributorID>>8), byte(distributorID))
	return store.NewList[Contract](v.db, prefix, encodeContract, decodeContract)
}
