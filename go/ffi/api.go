// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ffi exposes machines through a flat, handle-based interface made
// of fixed-width values and caller-provided buffers. It is the layer host
// bindings are built on; see the capi sub-package for the C exports.
package ffi

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Lucia/go/abi"
	"github.com/Fantom-foundation/Lucia/go/machine"
	"github.com/Fantom-foundation/Lucia/go/patch"
	"github.com/ethereum/go-ethereum/log"
)

// New creates a machine for the given transaction and block header under
// the given patch and returns a handle to it. An unknown patch kind, a
// custom kind without a configured initial nonce and an invalid transaction
// action are contract violations and panic.
func New(tx abi.TransactionRecord, header abi.HeaderRecord, kind patch.Kind) Handle {
	p, err := patch.Select(kind)
	if err != nil {
		panic(fmt.Sprintf("failed to select patch: %v", err))
	}
	m := machine.New(p, abi.BuildTransaction(tx), abi.BuildBlockParameters(header), machine.Config{})
	return register(m)
}

// Advance runs the machine until it needs a fact or terminates. A record of
// kind RequireNone signals termination.
func Advance(h Handle) abi.RequirementRecord {
	return lookup(h).Advance().Record()
}

// Commit commits a commitment in its wire form. It reports whether the
// commitment was accepted. A truncated record is rejected; an unknown
// commitment kind is a contract violation and panics.
func Commit(h Handle, record []byte) bool {
	m := lookup(h)
	var commitment abi.CommitmentRecord
	if err := commitment.UnmarshalBinary(record); err != nil {
		if errors.Is(err, abi.ErrInvalidDiscriminant) {
			panic(fmt.Sprintf("failed to decode commitment: %v", err))
		}
		return rejected(h, err)
	}
	return accepted(h, m.CommitRecord(commitment))
}

func CommitAccount(h Handle, address [abi.AddressSize]byte, nonce, balance [abi.WordSize]byte, code []byte) bool {
	m := lookup(h)
	return accepted(h, m.CommitAccount(abi.DecodeAddress(address), abi.DecodeUint64(nonce), abi.DecodeValue(balance), code))
}

func CommitAccountCode(h Handle, address [abi.AddressSize]byte, code []byte) bool {
	return accepted(h, lookup(h).CommitAccountCode(abi.DecodeAddress(address), code))
}

func CommitAccountStorage(h Handle, address [abi.AddressSize]byte, key, value [abi.WordSize]byte) bool {
	return accepted(h, lookup(h).CommitAccountStorage(abi.DecodeAddress(address), key, value))
}

func CommitNonexistent(h Handle, address [abi.AddressSize]byte) bool {
	return accepted(h, lookup(h).CommitNonexist(abi.DecodeAddress(address)))
}

func CommitBlockhash(h Handle, number, hash [abi.WordSize]byte) bool {
	return accepted(h, lookup(h).CommitBlockhash(abi.DecodeValue(number), abi.DecodeHash(hash)))
}

func accepted(h Handle, err error) bool {
	if err != nil {
		return rejected(h, err)
	}
	return true
}

func rejected(h Handle, err error) bool {
	log.Debug("Commitment rejected", "handle", uint64(h), "err", err)
	return false
}

// LogsCount returns the number of logs of a terminated machine.
func LogsCount(h Handle) int {
	return len(lookup(h).Logs())
}

// LogsCopyInfo fills the buffer with log summaries and returns the number
// of records written.
func LogsCopyInfo(h Handle, buffer []abi.LogInfo) int {
	return lookup(h).CopyLogs(buffer)
}

// LogsTopic returns a topic of a log. Indices out of range are a contract
// violation.
func LogsTopic(h Handle, log, topic int) [abi.WordSize]byte {
	hash, ok := lookup(h).LogTopic(log, topic)
	if !ok {
		panic(fmt.Sprintf("topic %d of log %d out of range", topic, log))
	}
	return abi.EncodeHash(hash)
}

// LogsCopyData copies as much of the data of a log as fits into the buffer
// and returns the number of bytes written.
func LogsCopyData(h Handle, log int, buffer []byte) int {
	return lookup(h).CopyLogData(log, buffer)
}

// AccountChangesCount returns the number of account changes of a
// terminated machine.
func AccountChangesCount(h Handle) int {
	return len(lookup(h).AccountChanges())
}

func AccountChangesCopyInfo(h Handle, buffer []abi.AccountChangeInfo) int {
	return lookup(h).CopyAccountChanges(buffer)
}

// AccountChangesCopyStorage copies the storage of the Full or Create change
// of the given account. It returns false, leaving the buffer untouched, if
// there is no such change.
func AccountChangesCopyStorage(h Handle, address [abi.AddressSize]byte, buffer []abi.StorageItem) bool {
	_, found := lookup(h).CopyAccountStorage(abi.DecodeAddress(address), buffer)
	return found
}

// AccountChangesCopyCode copies the code of the Full or Create change of the
// given account. It returns false, leaving the buffer untouched, if there is
// no such change.
func AccountChangesCopyCode(h Handle, address [abi.AddressSize]byte, buffer []byte) bool {
	_, found := lookup(h).CopyAccountCode(abi.DecodeAddress(address), buffer)
	return found
}

func UsedGas(h Handle) [abi.WordSize]byte {
	return abi.EncodeGas(lookup(h).UsedGas())
}

// ExecutionFailed reports whether a terminated machine's transaction ended
// in an error.
func ExecutionFailed(h Handle) bool {
	return lookup(h).Failed()
}

// SetCustomInitialNonce configures the initial nonce of the custom patch
// kinds for the whole process. It reports false if a different value has
// been configured before or if the nonce does not fit into 64 bits.
func SetCustomInitialNonce(nonce [abi.WordSize]byte) bool {
	value := abi.DecodeU256(nonce)
	if !value.IsUint64() {
		log.Warn("Custom initial nonce exceeds 64 bits", "nonce", value)
		return false
	}
	if err := patch.SetCustomInitialNonce(value.Uint64()); err != nil {
		log.Warn("Custom initial nonce rejected", "err", err)
		return false
	}
	return true
}
