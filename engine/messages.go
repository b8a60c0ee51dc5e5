// Package engine implements C6 (consensus state) and C7 (the consensus
// handler's state machine): Propose/Prevote/Precommit/Commit, locking, and
// block execution, per spec.md §4.6-§4.7.
//
// The handler's control flow (Handle → handlePropose → haveBlock → lock →
// handlePrecommit → commit) and method names are grounded on
// original_source/src/node/consensus.rs's ConsensusHandler trait. Two
// deliberate departures from that source, both named in spec.md §9:
// Lock is iterative (an explicit work list) rather than recursive, and
// Handler takes a node.Context as an explicit parameter on every method
// instead of holding one behind a trait's implicit self.
package engine

import (
	"github.com/luxfi/digital-rights-bft/crypto"
	"github.com/luxfi/digital-rights-bft/wire"
)

// Proposal is a leader's claim that a block (an ordered list of tx hashes)
// extends the chain at a given height/round.
type Proposal struct {
	Validator crypto.PubKey
	Height    uint64
	Round     uint64
	PrevHash  crypto.Hash
	TxHashes  []crypto.Hash
	Time      uint64
	Signature crypto.Signature
}

func (p *Proposal) signingPayload() []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, p.Validator[:]...)
	buf = wire.AppendU64le(buf, p.Height)
	buf = wire.AppendU64le(buf, p.Round)
	buf = append(buf, p.PrevHash[:]...)
	buf = wire.AppendCompactSize(buf, uint64(len(p.TxHashes)))
	for _, h := range p.TxHashes {
		buf = append(buf, h[:]...)
	}
	buf = wire.AppendU64le(buf, p.Time)
	return buf
}

// Hash content-addresses the proposal, per spec.md §4.7's "content-
// addressed proposals" replay-tolerance note.
func (p *Proposal) Hash() crypto.Hash { return crypto.HashBytes(p.signingPayload()) }

// Sign fills in p.Signature.
func (p *Proposal) Sign(sk crypto.SecretKey) { p.Signature = crypto.Sign(sk, p.signingPayload()) }

// Verify checks p.Signature against p.Validator.
func (p *Proposal) Verify() bool {
	return crypto.Verify(p.Validator, p.signingPayload(), p.Signature)
}

// Encode/DecodeProposal give Proposal a canonical wire form for transport,
// per spec.md §6's "canonical length-prefixed little-endian self-
// describing frames".
func (p *Proposal) Encode() []byte { return append(p.signingPayload(), p.Signature[:]...) }

func DecodeProposal(buf []byte) (*Proposal, error) {
	if len(buf) < crypto.PubKeySize {
		return nil, wire.ErrShort
	}
	p := &Proposal{}
	copy(p.Validator[:], buf[:crypto.PubKeySize])
	rest := buf[crypto.PubKeySize:]

	height, n, err := wire.ReadU64le(rest)
	if err != nil {
		return nil, err
	}
	p.Height = height
	rest = rest[n:]

	round, n, err := wire.ReadU64le(rest)
	if err != nil {
		return nil, err
	}
	p.Round = round
	rest = rest[n:]

	if len(rest) < crypto.HashSize {
		return nil, wire.ErrShort
	}
	copy(p.PrevHash[:], rest[:crypto.HashSize])
	rest = rest[crypto.HashSize:]

	count, n, err := wire.ReadCompactSize(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[n:]
	p.TxHashes = make([]crypto.Hash, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(rest) < crypto.HashSize {
			return nil, wire.ErrShort
		}
		var h crypto.Hash
		copy(h[:], rest[:crypto.HashSize])
		p.TxHashes = append(p.TxHashes, h)
		rest = rest[crypto.HashSize:]
	}

	t, n, err := wire.ReadU64le(rest)
	if err != nil {
		return nil, err
	}
	p.Time = t
	rest = rest[n:]

	if len(rest) < crypto.SignatureSize {
		return nil, wire.ErrShort
	}
	copy(p.Signature[:], rest[:crypto.SignatureSize])
	return p, nil
}

// Prevote is a validator's vote that it has a proposal for (height, round)
// and considers block_hash the one to lock.
type Prevote struct {
	Validator crypto.PubKey
	Height    uint64
	Round     uint64
	BlockHash crypto.Hash
	Signature crypto.Signature
}

func (v *Prevote) signingPayload() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, v.Validator[:]...)
	buf = wire.AppendU64le(buf, v.Height)
	buf = wire.AppendU64le(buf, v.Round)
	buf = append(buf, v.BlockHash[:]...)
	return buf
}

func (v *Prevote) Sign(sk crypto.SecretKey) { v.Signature = crypto.Sign(sk, v.signingPayload()) }

func (v *Prevote) Verify() bool {
	return crypto.Verify(v.Validator, v.signingPayload(), v.Signature)
}

func (v *Prevote) Encode() []byte { return append(v.signingPayload(), v.Signature[:]...) }

func DecodePrevote(buf []byte) (*Prevote, error) {
	v := &Prevote{}
	if len(buf) < crypto.PubKeySize {
		return nil, wire.ErrShort
	}
	copy(v.Validator[:], buf[:crypto.PubKeySize])
	rest := buf[crypto.PubKeySize:]

	height, n, err := wire.ReadU64le(rest)
	if err != nil {
		return nil, err
	}
	v.Height = height
	rest = rest[n:]

	round, n, err := wire.ReadU64le(rest)
	if err != nil {
		return nil, err
	}
	v.Round = round
	rest = rest[n:]

	if len(rest) < crypto.HashSize+crypto.SignatureSize {
		return nil, wire.ErrShort
	}
	copy(v.BlockHash[:], rest[:crypto.HashSize])
	rest = rest[crypto.HashSize:]
	copy(v.Signature[:], rest[:crypto.SignatureSize])
	return v, nil
}

// Precommit is a validator's vote that block_hash, executed, produced
// state_hash at (height, round).
type Precommit struct {
	Validator crypto.PubKey
	Height    uint64
	Round     uint64
	BlockHash crypto.Hash
	StateHash crypto.Hash
	Signature crypto.Signature
}

func (c *Precommit) signingPayload() []byte {
	buf := make([]byte, 0, 96)
	buf = append(buf, c.Validator[:]...)
	buf = wire.AppendU64le(buf, c.Height)
	buf = wire.AppendU64le(buf, c.Round)
	buf = append(buf, c.BlockHash[:]...)
	buf = append(buf, c.StateHash[:]...)
	return buf
}

func (c *Precommit) Sign(sk crypto.SecretKey) { c.Signature = crypto.Sign(sk, c.signingPayload()) }

func (c *Precommit) Verify() bool {
	return crypto.Verify(c.Validator, c.signingPayload(), c.Signature)
}

func (c *Precommit) Encode() []byte { return append(c.signingPayload(), c.Signature[:]...) }

func DecodePrecommit(buf []byte) (*Precommit, error) {
	c := &Precommit{}
	if len(buf) < crypto.PubKeySize {
		return nil, wire.ErrShort
	}
	copy(c.Validator[:], buf[:crypto.PubKeySize])
	rest := buf[crypto.PubKeySize:]

	height, n, err := wire.ReadU64le(rest)
	if err != nil {
		return nil, err
	}
	c.Height = height
	rest = rest[n:]

	round, n, err := wire.ReadU64le(rest)
	if err != nil {
		return nil, err
	}
	c.Round = round
	rest = rest[n:]

	if len(rest) < crypto.HashSize*2+crypto.SignatureSize {
		return nil, wire.ErrShort
	}
	copy(c.BlockHash[:], rest[:crypto.HashSize])
	rest = rest[crypto.HashSize:]
	copy(c.StateHash[:], rest[:crypto.HashSize])
	rest = rest[crypto.HashSize:]
	copy(c.Signature[:], rest[:crypto.SignatureSize])
	return c, nil
}

// Commit is purely informational per spec.md §4.7: consensus is driven by
// +2/3 precommits, not by delivery of Commit messages.
type Commit struct {
	Validator crypto.PubKey
	Height    uint64
	Round     uint64
	BlockHash crypto.Hash
	Signature crypto.Signature
}

func (c *Commit) signingPayload() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, c.Validator[:]...)
	buf = wire.AppendU64le(buf, c.Height)
	buf = wire.AppendU64le(buf, c.Round)
	buf = append(buf, c.BlockHash[:]...)
	return buf
}

func (c *Commit) Sign(sk crypto.SecretKey) { c.Signature = crypto.Sign(sk, c.signingPayload()) }

func (c *Commit) Verify() bool {
	return crypto.Verify(c.Validator, c.signingPayload(), c.Signature)
}
