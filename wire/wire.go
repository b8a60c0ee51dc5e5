// Package wire implements the canonical binary encoding every transaction
// and stored record uses: length-prefixed, little-endian, self-describing
// frames, per spec.md §6. The append/read helpers below are patterned
// directly on the Bitcoin-style CompactSize/AppendU*le helpers in
// 2tbmz9y2xt-lang-rubin-protocol/clients/go/consensus (wire_write.go,
// compactsize_write.go, compactsize_encode.go).
package wire

import (
	"encoding/binary"
	"errors"
)

// ErrShort is returned by every Read* helper when fewer bytes remain than
// the value being decoded requires.
var ErrShort = errors.New("wire: buffer shorter than expected")

// AppendU16le appends v as a 2-byte little-endian value to dst.
func AppendU16le(dst []byte, v uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return append(dst, buf[:]...)
}

// AppendU32le appends v as a 4-byte little-endian value to dst.
func AppendU32le(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// AppendU64le appends v as an 8-byte little-endian value to dst.
func AppendU64le(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// AppendCompactSize encodes n in Bitcoin-style CompactSize and appends it
// to dst: single byte below 0xfd, else a one-byte width marker followed by
// the fixed-width little-endian value.
func AppendCompactSize(dst []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(dst, byte(n))
	case n <= 0xffff:
		dst = append(dst, 0xfd)
		return AppendU16le(dst, uint16(n))
	case n <= 0xffffffff:
		dst = append(dst, 0xfe)
		return AppendU32le(dst, uint32(n))
	default:
		dst = append(dst, 0xff)
		return AppendU64le(dst, n)
	}
}

// AppendBytes appends a CompactSize length prefix followed by b itself —
// the self-describing frame every variable-length field uses.
func AppendBytes(dst []byte, b []byte) []byte {
	dst = AppendCompactSize(dst, uint64(len(b)))
	return append(dst, b...)
}

// AppendString appends s as a length-prefixed UTF-8 byte frame.
func AppendString(dst []byte, s string) []byte {
	return AppendBytes(dst, []byte(s))
}

// ReadU16le reads a 2-byte little-endian value from the front of buf,
// returning the value and the number of bytes consumed.
func ReadU16le(buf []byte) (uint16, int, error) {
	if len(buf) < 2 {
		return 0, 0, ErrShort
	}
	return binary.LittleEndian.Uint16(buf), 2, nil
}

// ReadU32le reads a 4-byte little-endian value from the front of buf.
func ReadU32le(buf []byte) (uint32, int, error) {
	if len(buf) < 4 {
		return 0, 0, ErrShort
	}
	return binary.LittleEndian.Uint32(buf), 4, nil
}

// ReadU64le reads an 8-byte little-endian value from the front of buf.
func ReadU64le(buf []byte) (uint64, int, error) {
	if len(buf) < 8 {
		return 0, 0, ErrShort
	}
	return binary.LittleEndian.Uint64(buf), 8, nil
}

// ReadCompactSize decodes one CompactSize value from the front of buf,
// returning the value and the number of bytes consumed.
func ReadCompactSize(buf []byte) (uint64, int, error) {
	if len(buf) < 1 {
		return 0, 0, ErrShort
	}
	switch b0 := buf[0]; {
	case b0 < 0xfd:
		return uint64(b0), 1, nil
	case b0 == 0xfd:
		v, n, err := ReadU16le(buf[1:])
		if err != nil {
			return 0, 0, err
		}
		return uint64(v), 1 + n, nil
	case b0 == 0xfe:
		v, n, err := ReadU32le(buf[1:])
		if err != nil {
			return 0, 0, err
		}
		return uint64(v), 1 + n, nil
	default:
		v, n, err := ReadU64le(buf[1:])
		if err != nil {
			return 0, 0, err
		}
		return v, 1 + n, nil
	}
}

// ReadBytes reads a CompactSize-prefixed byte slice from the front of buf,
// returning a fresh copy and the number of bytes consumed.
func ReadBytes(buf []byte) ([]byte, int, error) {
	n, consumed, err := ReadCompactSize(buf)
	if err != nil {
		return nil, 0, err
	}
	rest := buf[consumed:]
	if uint64(len(rest)) < n {
		return nil, 0, ErrShort
	}
	out := make([]byte, n)
	copy(out, rest[:n])
	return out, consumed + int(n), nil
}

// ReadString reads a CompactSize-prefixed UTF-8 string from the front of buf.
func ReadString(buf []byte) (string, int, error) {
	b, n, err := ReadBytes(buf)
	if err != nil {
		return "", 0, err
	}
	return string(b), n, nil
}
