// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package machine implements the resumable execution of a single
// transaction. Rather than reading state, an execution reports the state it
// lacks as a Requirement and waits for the host to commit the matching fact
// before it is advanced again.
package machine

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Lucia/go/abi"
	"github.com/Fantom-foundation/Lucia/go/lucia"
	"github.com/Fantom-foundation/Lucia/go/patch"
	"github.com/ethereum/go-ethereum/log"

	_ "github.com/Fantom-foundation/Lucia/go/interpreter/geth"
	_ "github.com/Fantom-foundation/Lucia/go/processor/frontier"
)

const (
	ErrNoRequirement         = lucia.ConstError("no outstanding requirement")
	ErrMismatchedCommitment  = lucia.ConstError("commitment does not match the outstanding requirement")
	ErrConflictingCommitment = lucia.ConstError("commitment conflicts with committed state")
	ErrTerminated            = lucia.ConstError("execution has terminated")

	// ErrExecutionFailed is the reason of executions ending in a failure of
	// the executed code, for instance by running out of gas.
	ErrExecutionFailed = lucia.ConstError("execution failed")
)

// DefaultInterpreter and DefaultProcessor name the registered components
// used by machines not configured otherwise.
const (
	DefaultInterpreter = "geth"
	DefaultProcessor   = "frontier"
)

type Config struct {
	// Interpreter runs the code of call frames; nil selects the
	// DefaultInterpreter.
	Interpreter lucia.Interpreter
}

// State is the position of a machine in its life cycle.
type State int

const (
	Created State = iota
	Running
	AwaitingCommitment
	Terminated
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Running:
		return "Running"
	case AwaitingCommitment:
		return "AwaitingCommitment"
	case Terminated:
		return "Terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Status is the outcome of an execution.
type Status int

const (
	StatusRunning Status = iota
	ExitedOk
	ExitedErr
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case ExitedOk:
		return "ExitedOk"
	case ExitedErr:
		return "ExitedErr"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Machine drives the execution of a single transaction. It is not safe for
// concurrent use; distinct machines are independent.
type Machine struct {
	patch       patch.Patch
	transaction lucia.Transaction
	block       lucia.BlockParameters
	processor   lucia.Processor

	facts   *facts
	state   State
	pending Requirement

	status  Status
	err     error
	usedGas lucia.Gas
	logs    []lucia.Log
	changes []AccountChange
}

// New creates a machine for the given transaction, executed in the given
// block under the rules of the given patch. Revision and chain ID of the
// block parameters are taken from the patch.
func New(p patch.Patch, transaction lucia.Transaction, block lucia.BlockParameters, config Config) *Machine {
	interpreter := config.Interpreter
	if interpreter == nil {
		interpreter = lucia.GetInterpreter(DefaultInterpreter)
		if interpreter == nil {
			panic(fmt.Sprintf("interpreter %q is not registered", DefaultInterpreter))
		}
	}
	processor := lucia.GetProcessor(DefaultProcessor, interpreter)
	if processor == nil {
		panic(fmt.Sprintf("processor %q is not registered", DefaultProcessor))
	}

	block.Revision = p.Revision
	block.ChainID = lucia.Word(lucia.NewValue(p.ChainID))

	transaction.Input = lucia.Data(cloneCode(lucia.Code(transaction.Input)))
	return &Machine{
		patch:       p,
		transaction: transaction,
		block:       block,
		processor:   processor,
		facts:       newFacts(),
		state:       Created,
	}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Patch() patch.Patch {
	return m.patch
}

// Advance runs the transaction as far as the committed facts allow. It
// returns the requirement blocking the execution, or the None requirement
// once the execution has terminated. While a requirement is outstanding it
// is returned unchanged; advancing a terminated machine has no effect.
func (m *Machine) Advance() Requirement {
	switch m.state {
	case AwaitingCommitment:
		return m.pending
	case Terminated:
		return Requirement{}
	}
	m.state = Running
	advanceCounter.Inc(1)

	requirement, done := m.execute()
	if !done {
		m.pending = requirement
		m.state = AwaitingCommitment
		countRequirement(requirement)
		log.Debug("Execution requires state", "requirement", requirement)
		return requirement
	}

	m.state = Terminated
	terminationCounter.Inc(1)
	log.Debug("Execution terminated", "status", m.status, "gas", m.usedGas, "changes", len(m.changes), "logs", len(m.logs), "err", m.err)
	return Requirement{}
}

// execute runs a full execution attempt on a fresh resolving state. If a
// fact is missing the attempt is abandoned together with all its
// modifications and the missing fact is returned.
func (m *Machine) execute() (requirement Requirement, done bool) {
	state := newResolvingState(m.facts, m.patch.AccountInitialNonce)
	defer func() {
		if recovered := recover(); recovered != nil {
			missing, ok := recovered.(missingFact)
			if !ok {
				panic(recovered)
			}
			requirement, done = missing.requirement, false
		}
	}()

	receipt, err := m.processor.Run(m.block, m.transaction, state)
	if err != nil {
		m.finish(ExitedErr, err, 0, nil, nil)
		return Requirement{}, true
	}

	changes := state.accountChanges()
	if !receipt.Success {
		m.finish(ExitedErr, ErrExecutionFailed, receipt.GasUsed, nil, changes)
		return Requirement{}, true
	}
	m.finish(ExitedOk, nil, receipt.GasUsed, receipt.Logs, changes)
	return Requirement{}, true
}

func (m *Machine) finish(status Status, err error, usedGas lucia.Gas, logs []lucia.Log, changes []AccountChange) {
	m.status = status
	m.err = err
	m.usedGas = usedGas
	m.logs = logs
	m.changes = changes
}

// Commit provides the fact answering the outstanding requirement. A
// commitment not answering it, or contradicting facts committed before, is
// rejected without any effect on the machine.
func (m *Machine) Commit(commitment Commitment) error {
	switch m.state {
	case Terminated:
		return ErrTerminated
	case AwaitingCommitment:
	default:
		return fmt.Errorf("%w: %v", ErrNoRequirement, commitment)
	}
	if !satisfies(commitment, m.pending) {
		return fmt.Errorf("%w: %v does not answer %v", ErrMismatchedCommitment, commitment, m.pending)
	}
	if err := m.facts.check(commitment); err != nil {
		return err
	}
	m.facts.add(commitment)
	commitCounter.Inc(1)
	log.Debug("State committed", "commitment", commitment)

	m.pending = Requirement{}
	m.state = Running
	return nil
}

func (m *Machine) CommitAccount(address lucia.Address, nonce uint64, balance lucia.Value, code lucia.Code) error {
	return m.Commit(FullCommitment{Address: address, Nonce: nonce, Balance: balance, Code: code})
}

func (m *Machine) CommitAccountCode(address lucia.Address, code lucia.Code) error {
	return m.Commit(CodeCommitment{Address: address, Code: code})
}

func (m *Machine) CommitAccountStorage(address lucia.Address, key lucia.Key, value lucia.Word) error {
	return m.Commit(StorageCommitment{Address: address, Key: key, Value: value})
}

func (m *Machine) CommitNonexist(address lucia.Address) error {
	return m.Commit(NonexistCommitment{Address: address})
}

func (m *Machine) CommitBlockhash(number lucia.Value, hash lucia.Hash) error {
	return m.Commit(BlockhashCommitment{Number: number, Hash: hash})
}

// CommitRecord commits the commitment in the given wire form.
func (m *Machine) CommitRecord(record abi.CommitmentRecord) error {
	commitment, err := CommitmentFromRecord(record)
	if err != nil {
		return errors.Join(ErrMismatchedCommitment, err)
	}
	return m.Commit(commitment)
}
