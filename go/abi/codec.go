// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package abi defines the fixed-width, big-endian binary representation of
// all values and records crossing the engine's language-neutral boundary.
package abi

import (
	"math"

	"github.com/Fantom-foundation/Lucia/go/lucia"
	"github.com/holiman/uint256"
)

const (
	AddressSize = 20
	WordSize    = 32
)

// DecodeAddress converts a 20-byte wire address into an address.
func DecodeAddress(b [AddressSize]byte) lucia.Address {
	return lucia.Address(b)
}

func EncodeAddress(a lucia.Address) [AddressSize]byte {
	return a
}

// DecodeU256 interprets the given bytes as a big-endian unsigned integer.
// Every bit pattern is a valid integer, so decoding can not fail.
func DecodeU256(b [WordSize]byte) *uint256.Int {
	return new(uint256.Int).SetBytes32(b[:])
}

// EncodeU256 produces the big-endian, zero-padded encoding of v. A nil
// value is encoded as zero.
func EncodeU256(v *uint256.Int) [WordSize]byte {
	if v == nil {
		return [WordSize]byte{}
	}
	return v.Bytes32()
}

// DecodeValue converts a wire integer into a currency value. Values are
// kept in big-endian byte order internally, so this is a plain copy.
func DecodeValue(b [WordSize]byte) lucia.Value {
	return lucia.Value(b)
}

func EncodeValue(v lucia.Value) [WordSize]byte {
	return v
}

// DecodeGas converts a wire integer into an amount of gas. Amounts beyond
// the range of lucia.Gas saturate at its maximum.
func DecodeGas(b [WordSize]byte) lucia.Gas {
	return lucia.Gas(decodeSaturated(b, math.MaxInt64))
}

// EncodeGas encodes an amount of gas. Negative amounts are encoded as zero.
func EncodeGas(g lucia.Gas) [WordSize]byte {
	if g < 0 {
		return [WordSize]byte{}
	}
	return uint256.NewInt(uint64(g)).Bytes32()
}

// DecodeUint64 converts a wire integer into a 64-bit integer, saturating
// at math.MaxUint64.
func DecodeUint64(b [WordSize]byte) uint64 {
	return decodeSaturated(b, math.MaxUint64)
}

func EncodeUint64(v uint64) [WordSize]byte {
	return uint256.NewInt(v).Bytes32()
}

// DecodeInt64 converts a wire integer into a non-negative 64-bit signed
// integer, saturating at math.MaxInt64.
func DecodeInt64(b [WordSize]byte) int64 {
	return int64(decodeSaturated(b, math.MaxInt64))
}

func DecodeHash(b [WordSize]byte) lucia.Hash {
	return lucia.Hash(b)
}

func EncodeHash(h lucia.Hash) [WordSize]byte {
	return h
}

func decodeSaturated(b [WordSize]byte, limit uint64) uint64 {
	v := DecodeU256(b)
	if !v.IsUint64() || v.Uint64() > limit {
		return limit
	}
	return v.Uint64()
}

// readAddress and the helpers below access fixed offsets of record buffers.
// Callers guarantee the buffer is large enough.
func readAddress(buf []byte, offset int) (res lucia.Address) {
	copy(res[:], buf[offset:offset+AddressSize])
	return
}

func putAddress(buf []byte, offset int, a lucia.Address) {
	copy(buf[offset:offset+AddressSize], a[:])
}

func readWord(buf []byte, offset int) (res [WordSize]byte) {
	copy(res[:], buf[offset:offset+WordSize])
	return
}

func putWord(buf []byte, offset int, w [WordSize]byte) {
	copy(buf[offset:offset+WordSize], w[:])
}
