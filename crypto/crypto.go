// Package crypto provides the fixed-width cryptographic values used
// throughout the protocol: a single hash function and a single signature
// scheme, as spec.md §1's Non-goals require ("cryptographic agility" is out
// of scope — one scheme is fixed).
//
// This adapts luxfi-consensus/crypto/bls, whose PubKey/SecretKey split and
// Sign/Verify function shape we keep, but whose bodies were placeholders
// (Verify always returned true). Here they are real: ed25519 signing of the
// raw payload, and blake2b-256 hashing.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/blake2b"
)

const (
	// HashSize is the width, in bytes, of every Hash in the system.
	HashSize = 32
	// PubKeySize is the width of an ed25519 public key.
	PubKeySize = ed25519.PublicKeySize
	// SecretKeySize is the width of an ed25519 private key.
	SecretKeySize = ed25519.PrivateKeySize
	// SignatureSize is the width of an ed25519 signature.
	SignatureSize = ed25519.SignatureSize
)

// Hash is the output of the protocol's single collision-resistant hash
// function (blake2b-256).
type Hash [HashSize]byte

// Fingerprint identifies a piece of content; an alias of Hash per spec.md §3.
type Fingerprint = Hash

// Uuid identifies a Report; an alias of Hash per spec.md §3.
type Uuid = Hash

// PubKey is a validator's or participant's ed25519 public key.
type PubKey [PubKeySize]byte

// SecretKey is an ed25519 private key.
type SecretKey [SecretKeySize]byte

// Signature is an ed25519 signature.
type Signature [SignatureSize]byte

// ZeroHash is the Hash of all zero bytes; a fresh consensus state uses it
// as the prev_hash of the first height.
var ZeroHash Hash

// HashBytes hashes an arbitrary byte slice.
func HashBytes(b []byte) Hash {
	return blake2b.Sum256(b)
}

// HashConcat hashes the concatenation of its arguments without an
// intermediate allocation-heavy append chain.
func HashConcat(parts ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors for bad key sizes; nil key never does.
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// GenerateKeyPair returns a fresh random ed25519 key pair.
func GenerateKeyPair() (PubKey, SecretKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return PubKey{}, SecretKey{}, err
	}
	var pk PubKey
	var sk SecretKey
	copy(pk[:], pub)
	copy(sk[:], priv)
	return pk, sk, nil
}

// Sign signs payload with sk, returning the signature.
func Sign(sk SecretKey, payload []byte) Signature {
	sig := ed25519.Sign(ed25519.PrivateKey(sk[:]), payload)
	var out Signature
	copy(out[:], sig)
	return out
}

// Verify reports whether sig is a valid signature by pk over payload.
func Verify(pk PubKey, payload []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pk[:]), payload, sig[:])
}

// PublicKey derives the public key matching sk.
func PublicKey(sk SecretKey) PubKey {
	priv := ed25519.PrivateKey(sk[:])
	pub := priv.Public().(ed25519.PublicKey)
	var pk PubKey
	copy(pk[:], pub)
	return pk
}

// ErrShortBuffer is returned by HashFromBytes when fewer than HashSize
// bytes remain.
var ErrShortBuffer = errors.New("crypto: buffer shorter than fixed width")

// HashFromBytes copies the first HashSize bytes of b into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) < HashSize {
		return h, ErrShortBuffer
	}
	copy(h[:], b)
	return h, nil
}

// Less reports whether h sorts before other in ascending byte order.
func (h Hash) Less(other Hash) bool {
	for i := range h {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == ZeroHash }
