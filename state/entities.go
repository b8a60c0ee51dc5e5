// Package state implements C2 (the typed schema over the authenticated
// store) and C3 (the state-hash aggregator). Entity shapes follow spec.md
// §3 and the Rust source's view module it was distilled from
// (original_source/digital_rights/src/lib.rs references Owner, Distributor,
// Content, Ownership, Contract, Report by name though view.rs itself was
// not retrieved).
package state

import (
	"github.com/luxfi/digital-rights-bft/crypto"
	"github.com/luxfi/digital-rights-bft/wire"
)

// Role distinguishes the two participant kinds sharing one pub_key
// namespace (spec.md §3's invariant 1: a pub_key is either an owner or a
// distributor, never both).
type Role uint8

const (
	RoleOwner Role = iota + 1
	RoleDistributor
)

// Participant is the value stored in the participants map: which role a
// pub_key has taken, and its 16-bit id within that role's list.
type Participant struct {
	Role Role
	ID   uint16
}

func encodeParticipant(p Participant) []byte {
	buf := make([]byte, 0, 3)
	buf = append(buf, byte(p.Role))
	buf = wire.AppendU16le(buf, p.ID)
	return buf
}

func decodeParticipant(b []byte) (Participant, error) {
	if len(b) < 1 {
		return Participant{}, wire.ErrShort
	}
	role := Role(b[0])
	id, _, err := wire.ReadU16le(b[1:])
	if err != nil {
		return Participant{}, err
	}
	return Participant{Role: role, ID: id}, nil
}

// Owner is created by CreateOwner, mutated only by AddContent, and never
// destroyed (spec.md §3).
type Owner struct {
	PubKey        crypto.PubKey
	Name          string
	OwnershipHash crypto.Hash
}

func encodeOwner(o Owner) []byte {
	buf := make([]byte, 0, crypto.PubKeySize+len(o.Name)+crypto.HashSize+8)
	buf = append(buf, o.PubKey[:]...)
	buf = wire.AppendString(buf, o.Name)
	buf = append(buf, o.OwnershipHash[:]...)
	return buf
}

func decodeOwner(b []byte) (Owner, error) {
	var o Owner
	if len(b) < crypto.PubKeySize {
		return o, wire.ErrShort
	}
	copy(o.PubKey[:], b[:crypto.PubKeySize])
	rest := b[crypto.PubKeySize:]
	name, n, err := wire.ReadString(rest)
	if err != nil {
		return o, err
	}
	o.Name = name
	rest = rest[n:]
	hash, err := crypto.HashFromBytes(rest)
	if err != nil {
		return o, err
	}
	o.OwnershipHash = hash
	return o, nil
}

// Distributor is created by CreateDistributor, mutated by AddContract, and
// never destroyed.
type Distributor struct {
	PubKey        crypto.PubKey
	Name          string
	ContractsHash crypto.Hash
}

func encodeDistributor(d Distributor) []byte {
	buf := make([]byte, 0, crypto.PubKeySize+len(d.Name)+crypto.HashSize+8)
	buf = append(buf, d.PubKey[:]...)
	buf = wire.AppendString(buf, d.Name)
	buf = append(buf, d.ContractsHash[:]...)
	return buf
}

func decodeDistributor(b []byte) (Distributor, error) {
	var d Distributor
	if len(b) < crypto.PubKeySize {
		return d, wire.ErrShort
	}
	copy(d.PubKey[:], b[:crypto.PubKeySize])
	rest := b[crypto.PubKeySize:]
	name, n, err := wire.ReadString(rest)
	if err != nil {
		return d, err
	}
	d.Name = name
	rest = rest[n:]
	hash, err := crypto.HashFromBytes(rest)
	if err != nil {
		return d, err
	}
	d.ContractsHash = hash
	return d, nil
}

// ContentShare is the percentage of a Content's revenue that accrues to
// one owner.
type ContentShare struct {
	OwnerID uint16
	Percent uint8
}

func encodeContentShare(dst []byte, s ContentShare) []byte {
	dst = wire.AppendU16le(dst, s.OwnerID)
	return append(dst, s.Percent)
}

func decodeContentShare(b []byte) (ContentShare, int, error) {
	ownerID, n, err := wire.ReadU16le(b)
	if err != nil {
		return ContentShare{}, 0, err
	}
	if len(b) < n+1 {
		return ContentShare{}, 0, wire.ErrShort
	}
	return ContentShare{OwnerID: ownerID, Percent: b[n]}, n + 1, nil
}

// Content is created by AddContent; its Distributors field is mutated
// (append-only, sorted-unique) by AddContract.
type Content struct {
	Fingerprint          crypto.Fingerprint
	Title                string
	PricePerListen       uint64
	MinPlays             uint64
	AdditionalConditions string
	Shares               []ContentShare
	Distributors         []uint16
}

func encodeContent(c Content) []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, c.Fingerprint[:]...)
	buf = wire.AppendString(buf, c.Title)
	buf = wire.AppendU64le(buf, c.PricePerListen)
	buf = wire.AppendU64le(buf, c.MinPlays)
	buf = wire.AppendString(buf, c.AdditionalConditions)
	buf = wire.AppendCompactSize(buf, uint64(len(c.Shares)))
	for _, s := range c.Shares {
		buf = encodeContentShare(buf, s)
	}
	buf = wire.AppendCompactSize(buf, uint64(len(c.Distributors)))
	for _, d := range c.Distributors {
		buf = wire.AppendU16le(buf, d)
	}
	return buf
}

func decodeContent(b []byte) (Content, error) {
	var c Content
	if len(b) < crypto.HashSize {
		return c, wire.ErrShort
	}
	copy(c.Fingerprint[:], b[:crypto.HashSize])
	rest := b[crypto.HashSize:]

	title, n, err := wire.ReadString(rest)
	if err != nil {
		return c, err
	}
	c.Title = title
	rest = rest[n:]

	price, n, err := wire.ReadU64le(rest)
	if err != nil {
		return c, err
	}
	c.PricePerListen = price
	rest = rest[n:]

	minPlays, n, err := wire.ReadU64le(rest)
	if err != nil {
		return c, err
	}
	c.MinPlays = minPlays
	rest = rest[n:]

	cond, n, err := wire.ReadString(rest)
	if err != nil {
		return c, err
	}
	c.AdditionalConditions = cond
	rest = rest[n:]

	shareCount, n, err := wire.ReadCompactSize(rest)
	if err != nil {
		return c, err
	}
	rest = rest[n:]
	c.Shares = make([]ContentShare, 0, shareCount)
	for i := uint64(0); i < shareCount; i++ {
		share, n, err := decodeContentShare(rest)
		if err != nil {
			return c, err
		}
		c.Shares = append(c.Shares, share)
		rest = rest[n:]
	}

	distCount, n, err := wire.ReadCompactSize(rest)
	if err != nil {
		return c, err
	}
	rest = rest[n:]
	c.Distributors = make([]uint16, 0, distCount)
	for i := uint64(0); i < distCount; i++ {
		id, n, err := wire.ReadU16le(rest)
		if err != nil {
			return c, err
		}
		c.Distributors = append(c.Distributors, id)
		rest = rest[n:]
	}
	return c, nil
}

// Ownership is appended to owner_contents(owner_id) on AddContent and later
// mutated by Report.
type Ownership struct {
	Fingerprint crypto.Fingerprint
	PlaysTotal  uint64
	AmountPaid  uint64
	ReportsHash crypto.Hash
}

func encodeOwnership(o Ownership) []byte {
	buf := make([]byte, 0, crypto.HashSize*2+16)
	buf = append(buf, o.Fingerprint[:]...)
	buf = wire.AppendU64le(buf, o.PlaysTotal)
	buf = wire.AppendU64le(buf, o.AmountPaid)
	buf = append(buf, o.ReportsHash[:]...)
	return buf
}

func decodeOwnership(b []byte) (Ownership, error) {
	var o Ownership
	if len(b) < crypto.HashSize {
		return o, wire.ErrShort
	}
	copy(o.Fingerprint[:], b[:crypto.HashSize])
	rest := b[crypto.HashSize:]

	plays, n, err := wire.ReadU64le(rest)
	if err != nil {
		return o, err
	}
	o.PlaysTotal = plays
	rest = rest[n:]

	amount, n, err := wire.ReadU64le(rest)
	if err != nil {
		return o, err
	}
	o.AmountPaid = amount
	rest = rest[n:]

	hash, err := crypto.HashFromBytes(rest)
	if err != nil {
		return o, err
	}
	o.ReportsHash = hash
	return o, nil
}

// Contract is appended to distributor_contracts(distributor_id) on
// AddContract and later mutated by Report.
type Contract struct {
	Fingerprint crypto.Fingerprint
	PlaysTotal  uint64
	AmountOwed  uint64
	ReportsHash crypto.Hash
}

func encodeContract(c Contract) []byte {
	buf := make([]byte, 0, crypto.HashSize*2+16)
	buf = append(buf, c.Fingerprint[:]...)
	buf = wire.AppendU64le(buf, c.PlaysTotal)
	buf = wire.AppendU64le(buf, c.AmountOwed)
	buf = append(buf, c.ReportsHash[:]...)
	return buf
}

func decodeContract(b []byte) (Contract, error) {
	var c Contract
	if len(b) < crypto.HashSize {
		return c, wire.ErrShort
	}
	copy(c.Fingerprint[:], b[:crypto.HashSize])
	rest := b[crypto.HashSize:]

	plays, n, err := wire.ReadU64le(rest)
	if err != nil {
		return c, err
	}
	c.PlaysTotal = plays
	rest = rest[n:]

	amount, n, err := wire.ReadU64le(rest)
	if err != nil {
		return c, err
	}
	c.AmountOwed = amount
	rest = rest[n:]

	hash, err := crypto.HashFromBytes(rest)
	if err != nil {
		return c, err
	}
	c.ReportsHash = hash
	return c, nil
}

// Report is created by a Report tx and keyed by its Uuid.
type Report struct {
	DistributorID uint16
	Fingerprint   crypto.Fingerprint
	Uuid          crypto.Uuid
	Time          uint64
	Plays         uint64
	Amount        uint64
	Comment       string
}

func encodeReport(r Report) []byte {
	buf := make([]byte, 0, 128)
	buf = wire.AppendU16le(buf, r.DistributorID)
	buf = append(buf, r.Fingerprint[:]...)
	buf = append(buf, r.Uuid[:]...)
	buf = wire.AppendU64le(buf, r.Time)
	buf = wire.AppendU64le(buf, r.Plays)
	buf = wire.AppendU64le(buf, r.Amount)
	buf = wire.AppendString(buf, r.Comment)
	return buf
}

func decodeReport(b []byte) (Report, error) {
	var r Report
	distID, n, err := wire.ReadU16le(b)
	if err != nil {
		return r, err
	}
	r.DistributorID = distID
	rest := b[n:]

	if len(rest) < crypto.HashSize {
		return r, wire.ErrShort
	}
	copy(r.Fingerprint[:], rest[:crypto.HashSize])
	rest = rest[crypto.HashSize:]

	if len(rest) < crypto.HashSize {
		return r, wire.ErrShort
	}
	copy(r.Uuid[:], rest[:crypto.HashSize])
	rest = rest[crypto.HashSize:]

	t, n, err := wire.ReadU64le(rest)
	if err != nil {
		return r, err
	}
	r.Time = t
	rest = rest[n:]

	plays, n, err := wire.ReadU64le(rest)
	if err != nil {
		return r, err
	}
	r.Plays = plays
	rest = rest[n:]

	amount, n, err := wire.ReadU64le(rest)
	if err != nil {
		return r, err
	}
	r.Amount = amount
	rest = rest[n:]

	comment, _, err := wire.ReadString(rest)
	if err != nil {
		return r, err
	}
	r.Comment = comment
	return r, nil
}
