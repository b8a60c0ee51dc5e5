// Package txmodel implements C4: the closed transaction taxonomy, its
// canonical binary encoding, and signature verification.
//
// Every variant is modeled as its own concrete type satisfying the Tx
// interface, decoded through a single exhaustive switch in Decode — per
// spec.md §9's guidance to avoid virtual dispatch or an open class
// hierarchy and instead use a tagged variant with uniform verify/apply
// contracts.
package txmodel

import (
	"github.com/luxfi/digital-rights-bft/crypto"
	"github.com/luxfi/digital-rights-bft/state"
	"github.com/luxfi/digital-rights-bft/wire"
)

// Kind tags which of the five transaction variants a Tx is.
type Kind uint8

const (
	KindCreateOwner Kind = iota + 1
	KindCreateDistributor
	KindAddContent
	KindAddContract
	KindReport
)

// Tx is the closed interface every transaction variant satisfies.
type Tx interface {
	Kind() Kind
	Author() crypto.PubKey
	// SigningPayload returns the canonical encoding of every field except
	// the signature itself — what Sign/Verify operate over.
	SigningPayload() []byte
	// Encode returns the full canonical frame, signature included. This is
	// what Hash() hashes and what Decode parses back.
	Encode() []byte
	Hash() crypto.Hash
	Verify() bool
}

func hashOf(tx Tx) crypto.Hash { return crypto.HashBytes(tx.Encode()) }

// CreateOwner registers pub_key as an Owner.
type CreateOwner struct {
	PubKey    crypto.PubKey
	Name      string
	Signature crypto.Signature
}

func (tx *CreateOwner) Kind() Kind             { return KindCreateOwner }
func (tx *CreateOwner) Author() crypto.PubKey  { return tx.PubKey }
func (tx *CreateOwner) Hash() crypto.Hash      { return hashOf(tx) }
func (tx *CreateOwner) Verify() bool           { return crypto.Verify(tx.PubKey, tx.SigningPayload(), tx.Signature) }

func (tx *CreateOwner) SigningPayload() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(KindCreateOwner))
	buf = append(buf, tx.PubKey[:]...)
	buf = wire.AppendString(buf, tx.Name)
	return buf
}

func (tx *CreateOwner) Encode() []byte {
	return append(tx.SigningPayload(), tx.Signature[:]...)
}

func decodeCreateOwner(body []byte, sig crypto.Signature, pubKey crypto.PubKey) (*CreateOwner, error) {
	name, _, err := wire.ReadString(body)
	if err != nil {
		return nil, err
	}
	return &CreateOwner{PubKey: pubKey, Name: name, Signature: sig}, nil
}

// CreateDistributor registers pub_key as a Distributor.
type CreateDistributor struct {
	PubKey    crypto.PubKey
	Name      string
	Signature crypto.Signature
}

func (tx *CreateDistributor) Kind() Kind            { return KindCreateDistributor }
func (tx *CreateDistributor) Author() crypto.PubKey { return tx.PubKey }
func (tx *CreateDistributor) Hash() crypto.Hash     { return hashOf(tx) }
func (tx *CreateDistributor) Verify() bool {
	return crypto.Verify(tx.PubKey, tx.SigningPayload(), tx.Signature)
}

func (tx *CreateDistributor) SigningPayload() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(KindCreateDistributor))
	buf = append(buf, tx.PubKey[:]...)
	buf = wire.AppendString(buf, tx.Name)
	return buf
}

func (tx *CreateDistributor) Encode() []byte {
	return append(tx.SigningPayload(), tx.Signature[:]...)
}

func decodeCreateDistributor(body []byte, sig crypto.Signature, pubKey crypto.PubKey) (*CreateDistributor, error) {
	name, _, err := wire.ReadString(body)
	if err != nil {
		return nil, err
	}
	return &CreateDistributor{PubKey: pubKey, Name: name, Signature: sig}, nil
}

// AddContent registers a new piece of content with its owner revenue split.
type AddContent struct {
	PubKey               crypto.PubKey
	Fingerprint          crypto.Fingerprint
	Title                string
	PricePerListen       uint64
	MinPlays             uint64
	Shares               []state.ContentShare
	AdditionalConditions string
	Signature            crypto.Signature
}

func (tx *AddContent) Kind() Kind            { return KindAddContent }
func (tx *AddContent) Author() crypto.PubKey { return tx.PubKey }
func (tx *AddContent) Hash() crypto.Hash     { return hashOf(tx) }
func (tx *AddContent) Verify() bool {
	return crypto.Verify(tx.PubKey, tx.SigningPayload(), tx.Signature)
}

func (tx *AddContent) SigningPayload() []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, byte(KindAddContent))
	buf = append(buf, tx.PubKey[:]...)
	buf = append(buf, tx.Fingerprint[:]...)
	buf = wire.AppendString(buf, tx.Title)
	buf = wire.AppendU64le(buf, tx.PricePerListen)
	buf = wire.AppendU64le(buf, tx.MinPlays)
	buf = wire.AppendCompactSize(buf, uint64(len(tx.Shares)))
	for _, s := range tx.Shares {
		buf = wire.AppendU16le(buf, s.OwnerID)
		buf = append(buf, s.Percent)
	}
	buf = wire.AppendString(buf, tx.AdditionalConditions)
	return buf
}

func (tx *AddContent) Encode() []byte {
	return append(tx.SigningPayload(), tx.Signature[:]...)
}

func decodeAddContent(body []byte, sig crypto.Signature, pubKey crypto.PubKey) (*AddContent, error) {
	if len(body) < crypto.HashSize {
		return nil, wire.ErrShort
	}
	var fp crypto.Fingerprint
	copy(fp[:], body[:crypto.HashSize])
	rest := body[crypto.HashSize:]

	title, n, err := wire.ReadString(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[n:]

	price, n, err := wire.ReadU64le(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[n:]

	minPlays, n, err := wire.ReadU64le(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[n:]

	shareCount, n, err := wire.ReadCompactSize(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[n:]

	shares := make([]state.ContentShare, 0, shareCount)
	for i := uint64(0); i < shareCount; i++ {
		ownerID, n, err := wire.ReadU16le(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n:]
		if len(rest) < 1 {
			return nil, wire.ErrShort
		}
		shares = append(shares, state.ContentShare{OwnerID: ownerID, Percent: rest[0]})
		rest = rest[1:]
	}

	cond, _, err := wire.ReadString(rest)
	if err != nil {
		return nil, err
	}

	return &AddContent{
		PubKey:               pubKey,
		Fingerprint:          fp,
		Title:                title,
		PricePerListen:       price,
		MinPlays:             minPlays,
		Shares:               shares,
		AdditionalConditions: cond,
		Signature:            sig,
	}, nil
}

// AddContract links a distributor to an existing piece of content.
type AddContract struct {
	PubKey        crypto.PubKey
	DistributorID uint16
	Fingerprint   crypto.Fingerprint
	Signature     crypto.Signature
}

func (tx *AddContract) Kind() Kind            { return KindAddContract }
func (tx *AddContract) Author() crypto.PubKey { return tx.PubKey }
func (tx *AddContract) Hash() crypto.Hash     { return hashOf(tx) }
func (tx *AddContract) Verify() bool {
	return crypto.Verify(tx.PubKey, tx.SigningPayload(), tx.Signature)
}

func (tx *AddContract) SigningPayload() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(KindAddContract))
	buf = append(buf, tx.PubKey[:]...)
	buf = wire.AppendU16le(buf, tx.DistributorID)
	buf = append(buf, tx.Fingerprint[:]...)
	return buf
}

func (tx *AddContract) Encode() []byte {
	return append(tx.SigningPayload(), tx.Signature[:]...)
}

func decodeAddContract(body []byte, sig crypto.Signature, pubKey crypto.PubKey) (*AddContract, error) {
	distID, n, err := wire.ReadU16le(body)
	if err != nil {
		return nil, err
	}
	rest := body[n:]
	if len(rest) < crypto.HashSize {
		return nil, wire.ErrShort
	}
	var fp crypto.Fingerprint
	copy(fp[:], rest[:crypto.HashSize])
	return &AddContract{PubKey: pubKey, DistributorID: distID, Fingerprint: fp, Signature: sig}, nil
}

// Report records plays/revenue a distributor observed for a piece of
// content under an existing contract.
type Report struct {
	PubKey        crypto.PubKey
	Uuid          crypto.Uuid
	DistributorID uint16
	Fingerprint   crypto.Fingerprint
	Time          uint64
	Plays         uint64
	Amount        uint64
	Comment       string
	Signature     crypto.Signature
}

func (tx *Report) Kind() Kind            { return KindReport }
func (tx *Report) Author() crypto.PubKey { return tx.PubKey }
func (tx *Report) Hash() crypto.Hash     { return hashOf(tx) }
func (tx *Report) Verify() bool {
	return crypto.Verify(tx.PubKey, tx.SigningPayload(), tx.Signature)
}

func (tx *Report) SigningPayload() []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, byte(KindReport))
	buf = append(buf, tx.PubKey[:]...)
	buf = append(buf, tx.Uuid[:]...)
	buf = wire.AppendU16le(buf, tx.DistributorID)
	buf = append(buf, tx.Fingerprint[:]...)
	buf = wire.AppendU64le(buf, tx.Time)
	buf = wire.AppendU64le(buf, tx.Plays)
	buf = wire.AppendU64le(buf, tx.Amount)
	buf = wire.AppendString(buf, tx.Comment)
	return buf
}

func (tx *Report) Encode() []byte {
	return append(tx.SigningPayload(), tx.Signature[:]...)
}

func decodeReport(body []byte, sig crypto.Signature, pubKey crypto.PubKey) (*Report, error) {
	if len(body) < crypto.HashSize {
		return nil, wire.ErrShort
	}
	var uuid crypto.Uuid
	copy(uuid[:], body[:crypto.HashSize])
	rest := body[crypto.HashSize:]

	distID, n, err := wire.ReadU16le(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[n:]

	if len(rest) < crypto.HashSize {
		return nil, wire.ErrShort
	}
	var fp crypto.Fingerprint
	copy(fp[:], rest[:crypto.HashSize])
	rest = rest[crypto.HashSize:]

	t, n, err := wire.ReadU64le(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[n:]

	plays, n, err := wire.ReadU64le(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[n:]

	amount, n, err := wire.ReadU64le(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[n:]

	comment, _, err := wire.ReadString(rest)
	if err != nil {
		return nil, err
	}

	return &Report{
		PubKey: pubKey, Uuid: uuid, DistributorID: distID, Fingerprint: fp,
		Time: t, Plays: plays, Amount: amount, Comment: comment, Signature: sig,
	}, nil
}
