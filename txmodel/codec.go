package txmodel

import (
	"errors"

	"github.com/luxfi/digital-rights-bft/crypto"
)

// ErrUnknownKind is returned by Decode when the leading byte does not name
// one of the five closed variants, and also when buf is too short to hold
// the kind byte, a public key and a signature.
var ErrUnknownKind = errors.New("txmodel: unknown transaction kind")

// Decode parses buf (as produced by Encode) back into its concrete Tx type.
// This is the single exhaustive switch spec.md §9 asks for in place of
// virtual dispatch: every Kind byte value is listed, and an unrecognized
// one is rejected rather than silently defaulting.
func Decode(buf []byte) (Tx, error) {
	if len(buf) < 1 {
		return nil, ErrUnknownKind
	}
	kind := Kind(buf[0])
	rest := buf[1:]

	if len(rest) < crypto.PubKeySize {
		return nil, ErrUnknownKind
	}
	var pubKey crypto.PubKey
	copy(pubKey[:], rest[:crypto.PubKeySize])
	rest = rest[crypto.PubKeySize:]

	if len(rest) < crypto.SignatureSize {
		return nil, ErrUnknownKind
	}
	body := rest[:len(rest)-crypto.SignatureSize]
	var sig crypto.Signature
	copy(sig[:], rest[len(rest)-crypto.SignatureSize:])

	switch kind {
	case KindCreateOwner:
		return decodeCreateOwner(body, sig, pubKey)
	case KindCreateDistributor:
		return decodeCreateDistributor(body, sig, pubKey)
	case KindAddContent:
		return decodeAddContent(body, sig, pubKey)
	case KindAddContract:
		return decodeAddContract(body, sig, pubKey)
	case KindReport:
		return decodeReport(body, sig, pubKey)
	default:
		return nil, ErrUnknownKind
	}
}

// Sign fills in tx's signature field by signing its SigningPayload with sk.
// It is a convenience for tests and transaction generators; the consensus
// core itself never signs transactions.
func Sign(tx Tx, sk crypto.SecretKey) {
	sig := crypto.Sign(sk, tx.SigningPayload())
	switch t := tx.(type) {
	case *CreateOwner:
		t.Signature = sig
	case *CreateDistributor:
		t.Signature = sig
	case *AddContent:
		t.Signature = sig
	case *AddContract:
		t.Signature = sig
	case *Report:
		t.Signature = sig
	}
}
