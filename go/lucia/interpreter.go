// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package lucia

import "fmt"

//go:generate mockgen -source interpreter.go -destination interpreter_mock.go -package lucia

// Interpreter is the component executing the byte code of a single call
// frame. Implementations are external collaborators of this engine: the
// engine owns the state view handed to them, they own the instruction
// semantics.
type Interpreter interface {
	// Run executes the code provided by the parameters in the specified context
	// and returns the processing result. The resulting error is nil whenever the
	// code was correctly executed (even if the execution was aborted due do to
	// a code-internal issue). The error is not nil if some problem within the
	// interpreter caused the execution to fail to correctly process the provided
	// program. In such a case the result is undefined. During a call with an
	// unsupported Revision an ErrUnsupportedRevision Error is returned.
	Run(Parameters) (Result, error)
}

type Parameters struct {
	BlockParameters
	TransactionParameters
	Context   RunContext
	Kind      CallKind
	Depth     int
	Gas       Gas
	Recipient Address
	Sender    Address
	Input     Data
	Value     Value
	CodeHash  *Hash
	Code      Code
}

// BlockParameters describe the block a transaction is executed in.
type BlockParameters struct {
	ChainID     Word
	BlockNumber int64
	Timestamp   int64
	Coinbase    Address
	GasLimit    Gas
	Difficulty  Value
	Revision    Revision
}

type TransactionParameters struct {
	Origin   Address
	GasPrice Value
}

type RunContext interface {
	TransactionContext

	Call(kind CallKind, parameter CallParameters) (CallResult, error)
}

type TransactionContext interface {
	WorldState

	CreateSnapshot() Snapshot
	RestoreSnapshot(Snapshot)

	EmitLog(Log)
	GetLogs() []Log

	// GetBlockHash returns the hash of the block with the given number.
	GetBlockHash(number int64) Hash
}

type Result struct {
	Success   bool // false if the execution ended in a revert, true otherwise
	Output    Data
	GasLeft   Gas
	GasRefund Gas
}

type Data []byte

type Gas int64

type Snapshot int

type Log struct {
	Address Address
	Topics  []Hash
	Data    Data
}

type CallKind int

const (
	Call CallKind = iota
	DelegateCall
	CallCode
	Create
)

type CallParameters struct {
	Sender      Address
	Recipient   Address // < not relevant for CREATE
	Value       Value
	Input       Data
	Gas         Gas
	CodeAddress Address // < the account providing the code for CALLCODE and DELEGATECALL
}

type CallResult struct {
	Output         Data
	GasLeft        Gas
	GasRefund      Gas
	CreatedAddress Address // < only meaningful for CREATE
	Success        bool    // false if the execution ended in a revert, true otherwise
}

// Revision identifies the rule-set an execution is conducted under. The
// numeric values are part of the external interface and must not change.
type Revision int

const (
	R00_Frontier Revision = iota
	R01_Homestead
	R02_EIP150
	R03_EIP160
	numRevisions int = iota
)

// GetAllKnownRevisions lists all revisions in chronological order.
func GetAllKnownRevisions() []Revision {
	res := make([]Revision, 0, numRevisions)
	for i := 0; i < numRevisions; i++ {
		res = append(res, Revision(i))
	}
	return res
}

type ErrUnsupportedRevision struct {
	Revision Revision
}

func (e *ErrUnsupportedRevision) Error() string {
	return fmt.Sprintf("unsupported revision %d", e.Revision)
}
