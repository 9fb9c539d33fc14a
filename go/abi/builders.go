// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package abi

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Fantom-foundation/Lucia/go/lucia"
)

// Action is the kind of a transaction: a call of an existing account or the
// creation of a new contract.
type Action uint32

const (
	ActionCall Action = iota
	ActionCreate
)

func (a Action) String() string {
	switch a {
	case ActionCall:
		return "Call"
	case ActionCreate:
		return "Create"
	}
	return fmt.Sprintf("Action(%d)", uint32(a))
}

// TransactionRecord is the flat wire form of a transaction.
//
//	offset  size  field
//	0       20    caller
//	20      32    gas price
//	52      32    gas limit
//	84      4     action
//	88      20    action address (ignored for Create)
//	108     32    value
//	140     32    nonce
//	172     4     input length
//	176     n     input
type TransactionRecord struct {
	Caller        [AddressSize]byte
	GasPrice      [WordSize]byte
	GasLimit      [WordSize]byte
	Action        Action
	ActionAddress [AddressSize]byte
	Value         [WordSize]byte
	Input         []byte
	Nonce         [WordSize]byte
}

// BuildTransaction translates a flat transaction record into a transaction.
// A nil input is equivalent to an empty input. An action other than Call
// or Create is a violation of the caller's contract and causes a panic.
func BuildTransaction(record TransactionRecord) lucia.Transaction {
	var recipient *lucia.Address
	switch record.Action {
	case ActionCall:
		target := DecodeAddress(record.ActionAddress)
		recipient = &target
	case ActionCreate:
	default:
		panic(fmt.Sprintf("invalid transaction action: %d", uint32(record.Action)))
	}
	input := make(lucia.Data, len(record.Input))
	copy(input, record.Input)
	return lucia.Transaction{
		Sender:    DecodeAddress(record.Caller),
		Recipient: recipient,
		Nonce:     DecodeUint64(record.Nonce),
		Input:     input,
		Value:     DecodeValue(record.Value),
		GasLimit:  DecodeGas(record.GasLimit),
		GasPrice:  DecodeValue(record.GasPrice),
	}
}

// NewTransactionRecord produces the wire form of a transaction.
func NewTransactionRecord(tx lucia.Transaction) TransactionRecord {
	record := TransactionRecord{
		Caller:   EncodeAddress(tx.Sender),
		GasPrice: EncodeValue(tx.GasPrice),
		GasLimit: EncodeGas(tx.GasLimit),
		Action:   ActionCreate,
		Value:    EncodeValue(tx.Value),
		Input:    tx.Input,
		Nonce:    EncodeUint64(tx.Nonce),
	}
	if tx.Recipient != nil {
		record.Action = ActionCall
		record.ActionAddress = EncodeAddress(*tx.Recipient)
	}
	return record
}

func (r TransactionRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, TransactionHeaderSize, TransactionHeaderSize+len(r.Input))
	copy(buf[0:20], r.Caller[:])
	putWord(buf, 20, r.GasPrice)
	putWord(buf, 52, r.GasLimit)
	binary.BigEndian.PutUint32(buf[84:88], uint32(r.Action))
	copy(buf[88:108], r.ActionAddress[:])
	putWord(buf, 108, r.Value)
	putWord(buf, 140, r.Nonce)
	binary.BigEndian.PutUint32(buf[172:176], uint32(len(r.Input)))
	return append(buf, r.Input...), nil
}

// UnmarshalBinary decodes a transaction record. The action tag is not
// validated here; BuildTransaction rejects invalid tags.
func (r *TransactionRecord) UnmarshalBinary(data []byte) error {
	if len(data) < TransactionHeaderSize {
		return fmt.Errorf("transaction: %w", ErrShortRecord)
	}
	length := binary.BigEndian.Uint32(data[172:176])
	if uint64(len(data)-TransactionHeaderSize) < uint64(length) {
		return fmt.Errorf("transaction input of %d bytes: %w", length, ErrShortRecord)
	}
	*r = TransactionRecord{
		Caller:        readAddress(data, 0),
		GasPrice:      readWord(data, 20),
		GasLimit:      readWord(data, 52),
		Action:        Action(binary.BigEndian.Uint32(data[84:88])),
		ActionAddress: readAddress(data, 88),
		Value:         readWord(data, 108),
		Nonce:         readWord(data, 140),
		Input:         append([]byte{}, data[TransactionHeaderSize:TransactionHeaderSize+int(length)]...),
	}
	return nil
}

// HeaderRecord is the flat wire form of the block header parameters.
//
//	offset  size  field
//	0       20    beneficiary
//	20      8     timestamp
//	28      32    number
//	60      32    difficulty
//	92      32    gas limit
type HeaderRecord struct {
	Beneficiary [AddressSize]byte
	Timestamp   uint64
	Number      [WordSize]byte
	Difficulty  [WordSize]byte
	GasLimit    [WordSize]byte
}

// BuildBlockParameters translates a header record into block parameters.
// The revision and chain ID are left unset; they are provided by the patch
// selected for an execution.
func BuildBlockParameters(record HeaderRecord) lucia.BlockParameters {
	timestamp := record.Timestamp
	if timestamp > math.MaxInt64 {
		timestamp = math.MaxInt64
	}
	return lucia.BlockParameters{
		Coinbase:    DecodeAddress(record.Beneficiary),
		Timestamp:   int64(timestamp),
		BlockNumber: DecodeInt64(record.Number),
		Difficulty:  DecodeValue(record.Difficulty),
		GasLimit:    DecodeGas(record.GasLimit),
	}
}

// NewHeaderRecord produces the wire form of the given block parameters.
func NewHeaderRecord(block lucia.BlockParameters) HeaderRecord {
	return HeaderRecord{
		Beneficiary: EncodeAddress(block.Coinbase),
		Timestamp:   uint64(max(block.Timestamp, 0)),
		Number:      EncodeUint64(uint64(max(block.BlockNumber, 0))),
		Difficulty:  EncodeValue(block.Difficulty),
		GasLimit:    EncodeGas(block.GasLimit),
	}
}

func (r HeaderRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderRecordSize)
	copy(buf[0:20], r.Beneficiary[:])
	binary.BigEndian.PutUint64(buf[20:28], r.Timestamp)
	putWord(buf, 28, r.Number)
	putWord(buf, 60, r.Difficulty)
	putWord(buf, 92, r.GasLimit)
	return buf, nil
}

func (r *HeaderRecord) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderRecordSize {
		return fmt.Errorf("header: %w", ErrShortRecord)
	}
	*r = HeaderRecord{
		Beneficiary: readAddress(data, 0),
		Timestamp:   binary.BigEndian.Uint64(data[20:28]),
		Number:      readWord(data, 28),
		Difficulty:  readWord(data, 60),
		GasLimit:    readWord(data, 92),
	}
	return nil
}
