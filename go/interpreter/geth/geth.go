// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package geth adapts the go-ethereum interpreter to the lucia.Interpreter
// interface. All state accesses of the interpreter, including those of
// nested calls handled by geth itself, are routed to the lucia run context.
package geth

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/Lucia/go/lucia"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/stateless"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	geth "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie/utils"
	"github.com/holiman/uint256"
)

func init() {
	lucia.MustRegisterInterpreterFactory("geth", func(any) (lucia.Interpreter, error) {
		return &gethVm{}, nil
	})
}

type gethVm struct{}

const newestSupportedRevision = lucia.R03_EIP160

func (m *gethVm) Run(parameters lucia.Parameters) (lucia.Result, error) {
	if parameters.Revision > newestSupportedRevision {
		return lucia.Result{}, &lucia.ErrUnsupportedRevision{Revision: parameters.Revision}
	}
	evm, contract, stateDb := createGethInterpreterContext(parameters)

	output, err := evm.Interpreter().Run(contract, parameters.Input, false)

	result := lucia.Result{
		Output:    output,
		GasLeft:   lucia.Gas(contract.Gas),
		GasRefund: lucia.Gas(stateDb.refund),
		Success:   true,
	}

	// If no error is reported, the execution ended with a STOP, RETURN, or SUICIDE.
	if err == nil {
		return result, nil
	}

	// In case of an issue caused by the code execution, the result should indicate
	// a failed execution but no error should be reported.
	switch {
	case errors.Is(err, geth.ErrOutOfGas),
		errors.Is(err, geth.ErrCodeStoreOutOfGas),
		errors.Is(err, geth.ErrDepth),
		errors.Is(err, geth.ErrInsufficientBalance),
		errors.Is(err, geth.ErrContractAddressCollision),
		errors.Is(err, geth.ErrExecutionReverted),
		errors.Is(err, geth.ErrMaxCodeSizeExceeded),
		errors.Is(err, geth.ErrInvalidJump),
		errors.Is(err, geth.ErrWriteProtection),
		errors.Is(err, geth.ErrReturnDataOutOfBounds),
		errors.Is(err, geth.ErrGasUintOverflow),
		errors.Is(err, geth.ErrInvalidCode):
		return lucia.Result{Success: false}, nil
	}

	if _, ok := err.(*geth.ErrStackOverflow); ok {
		return lucia.Result{Success: false}, nil
	}
	if _, ok := err.(*geth.ErrStackUnderflow); ok {
		return lucia.Result{Success: false}, nil
	}
	if _, ok := err.(*geth.ErrInvalidOpCode); ok {
		return lucia.Result{Success: false}, nil
	}

	// In all other cases an EVM error should be reported.
	return lucia.Result{}, fmt.Errorf("internal EVM error in geth: %v", err)
}

// MakeChainConfig derives a chain configuration enabling exactly the rules
// of the given revision from block zero on. EIP160 is mapped to geth's
// EIP158 rule-set, the only one pricing EXP the EIP160 way.
func MakeChainConfig(chainId *big.Int, targetRevision lucia.Revision) params.ChainConfig {
	zero := big.NewInt(0)
	chainConfig := params.ChainConfig{
		ChainID: chainId,
		Ethash:  new(params.EthashConfig),
	}
	if targetRevision >= lucia.R01_Homestead {
		chainConfig.HomesteadBlock = zero
	}
	if targetRevision >= lucia.R02_EIP150 {
		chainConfig.EIP150Block = zero
	}
	if targetRevision >= lucia.R03_EIP160 {
		chainConfig.EIP155Block = zero
		chainConfig.EIP158Block = zero
	}
	return chainConfig
}

func createGethInterpreterContext(parameters lucia.Parameters) (*geth.EVM, *geth.Contract, *stateDbAdapter) {
	chainConfig := MakeChainConfig(
		new(big.Int).SetBytes(parameters.ChainID[:]),
		parameters.Revision,
	)

	// Hashing function used in the context for BLOCKHASH instruction
	getHash := func(num uint64) common.Hash {
		return common.Hash(parameters.Context.GetBlockHash(int64(num)))
	}

	blockCtx := geth.BlockContext{
		BlockNumber: big.NewInt(parameters.BlockNumber),
		Time:        uint64(parameters.Timestamp),
		Coinbase:    common.Address(parameters.Coinbase),
		Difficulty:  new(big.Int).SetBytes(parameters.Difficulty[:]),
		GasLimit:    uint64(parameters.GasLimit),
		GetHash:     getHash,
		BaseFee:     new(big.Int),
		BlobBaseFee: new(big.Int),
		Transfer:    transferFunc,
		CanTransfer: canTransferFunc,
	}

	txCtx := geth.TxContext{
		Origin:   common.Address(parameters.Origin),
		GasPrice: new(big.Int).SetBytes(parameters.GasPrice[:]),
	}

	stateDb := NewStateDbAdapter(parameters.Context)
	evm := geth.NewEVM(blockCtx, txCtx, stateDb, &chainConfig, geth.Config{})

	value := parameters.Value.ToUint256()
	addr := geth.AccountRef(parameters.Recipient)
	contract := geth.NewContract(addr, addr, value, uint64(parameters.Gas))
	contract.CallerAddress = common.Address(parameters.Sender)
	contract.Code = parameters.Code
	if parameters.CodeHash != nil {
		contract.CodeHash = common.Hash(*parameters.CodeHash)
	} else {
		contract.CodeHash = crypto.Keccak256Hash(parameters.Code)
	}
	contract.Input = parameters.Input

	return evm, contract, stateDb
}

func transferFunc(stateDB geth.StateDB, callerAddress common.Address, to common.Address, value *uint256.Int) {
	stateDB.SubBalance(callerAddress, value, tracing.BalanceChangeTransfer)
	stateDB.AddBalance(to, value, tracing.BalanceChangeTransfer)
}

func canTransferFunc(stateDB geth.StateDB, callerAddress common.Address, value *uint256.Int) bool {
	return stateDB.GetBalance(callerAddress).Cmp(value) >= 0
}

// stateDbAdapter implements geth's StateDB on top of a lucia transaction
// context. Refunds are tracked locally since they are a concern of the
// interpreter run only.
type stateDbAdapter struct {
	context       lucia.TransactionContext
	refund        uint64
	refundBackups map[lucia.Snapshot]uint64
}

func NewStateDbAdapter(context lucia.TransactionContext) *stateDbAdapter {
	return &stateDbAdapter{
		context: context,
	}
}

func (s *stateDbAdapter) CreateAccount(addr common.Address) {
	s.context.CreateAccount(lucia.Address(addr))
}

func (s *stateDbAdapter) CreateContract(addr common.Address) {
	s.context.CreateAccount(lucia.Address(addr))
}

func (s *stateDbAdapter) SubBalance(addr common.Address, diff *uint256.Int, _ tracing.BalanceChangeReason) {
	s.context.SubBalance(lucia.Address(addr), lucia.ValueFromUint256(diff))
}

func (s *stateDbAdapter) AddBalance(addr common.Address, diff *uint256.Int, _ tracing.BalanceChangeReason) {
	s.context.AddBalance(lucia.Address(addr), lucia.ValueFromUint256(diff))
}

func (s *stateDbAdapter) GetBalance(addr common.Address) *uint256.Int {
	value := s.context.GetBalance(lucia.Address(addr))
	return value.ToUint256()
}

func (s *stateDbAdapter) GetNonce(addr common.Address) uint64 {
	return s.context.GetNonce(lucia.Address(addr))
}

func (s *stateDbAdapter) SetNonce(addr common.Address, nonce uint64) {
	s.context.SetNonce(lucia.Address(addr), nonce)
}

func (s *stateDbAdapter) GetCodeHash(addr common.Address) common.Hash {
	return common.Hash(s.context.GetCodeHash(lucia.Address(addr)))
}

func (s *stateDbAdapter) GetCode(addr common.Address) []byte {
	return s.context.GetCode(lucia.Address(addr))
}

func (s *stateDbAdapter) SetCode(addr common.Address, code []byte) {
	s.context.SetCode(lucia.Address(addr), code)
}

func (s *stateDbAdapter) GetCodeSize(addr common.Address) int {
	return s.context.GetCodeSize(lucia.Address(addr))
}

func (s *stateDbAdapter) AddRefund(value uint64) {
	s.refund += value
}

func (s *stateDbAdapter) SubRefund(value uint64) {
	s.refund -= value
}

func (s *stateDbAdapter) GetRefund() uint64 {
	return s.refund
}

func (s *stateDbAdapter) GetCommittedState(addr common.Address, key common.Hash) common.Hash {
	return common.Hash(s.context.GetCommittedStorage(lucia.Address(addr), lucia.Key(key)))
}

func (s *stateDbAdapter) GetState(addr common.Address, key common.Hash) common.Hash {
	return common.Hash(s.context.GetStorage(lucia.Address(addr), lucia.Key(key)))
}

func (s *stateDbAdapter) SetState(addr common.Address, key common.Hash, value common.Hash) {
	s.context.SetStorage(lucia.Address(addr), lucia.Key(key), lucia.Word(value))
}

func (s *stateDbAdapter) GetStorageRoot(addr common.Address) common.Hash {
	// only consulted for collision checks, which are covered by nonce and code
	return common.Hash{}
}

func (s *stateDbAdapter) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	// transient storage does not exist in the supported revisions
	return common.Hash{}
}

func (s *stateDbAdapter) SetTransientState(addr common.Address, key, value common.Hash) {}

// SelfDestruct is invoked by geth after the balance of the destroyed account
// has been credited to the beneficiary. The account is thus destroyed in
// favor of itself, burning the remaining balance.
func (s *stateDbAdapter) SelfDestruct(addr common.Address) {
	s.context.SelfDestruct(lucia.Address(addr), lucia.Address(addr))
}

func (s *stateDbAdapter) HasSelfDestructed(addr common.Address) bool {
	return s.context.HasSelfDestructed(lucia.Address(addr))
}

func (s *stateDbAdapter) Selfdestruct6780(addr common.Address) {
	s.SelfDestruct(addr)
}

func (s *stateDbAdapter) Exist(addr common.Address) bool {
	return s.context.AccountExists(lucia.Address(addr))
}

func (s *stateDbAdapter) Empty(addr common.Address) bool {
	return s.GetBalance(addr).IsZero() && s.GetNonce(addr) == 0 && s.GetCodeSize(addr) == 0
}

// Access lists were introduced by Berlin; all accounts and slots count as
// warm in the supported revisions.

func (s *stateDbAdapter) PrepareAccessList(sender common.Address, dest *common.Address, precompiles []common.Address, txAccesses types.AccessList) {
}

func (s *stateDbAdapter) AddressInAccessList(addr common.Address) bool {
	return true
}

func (s *stateDbAdapter) SlotInAccessList(addr common.Address, slot common.Hash) (addressOk bool, slotOk bool) {
	return true, true
}

func (s *stateDbAdapter) AddAddressToAccessList(addr common.Address) {}

func (s *stateDbAdapter) AddSlotToAccessList(addr common.Address, slot common.Hash) {}

func (s *stateDbAdapter) Prepare(rules params.Rules, sender, coinbase common.Address, dest *common.Address, precompiles []common.Address, txAccesses types.AccessList) {
	// transaction level preparation is conducted by the processor
}

func (s *stateDbAdapter) RevertToSnapshot(snapshot int) {
	s.context.RestoreSnapshot(lucia.Snapshot(snapshot))
	s.refund = s.refundBackups[lucia.Snapshot(snapshot)]
}

func (s *stateDbAdapter) Snapshot() int {
	id := s.context.CreateSnapshot()
	if s.refundBackups == nil {
		s.refundBackups = make(map[lucia.Snapshot]uint64)
	}
	s.refundBackups[id] = s.refund
	return int(id)
}

func (s *stateDbAdapter) AddLog(log *types.Log) {
	topics := make([]lucia.Hash, 0, len(log.Topics))
	for _, cur := range log.Topics {
		topics = append(topics, lucia.Hash(cur))
	}
	s.context.EmitLog(lucia.Log{
		Address: lucia.Address(log.Address),
		Topics:  topics,
		Data:    log.Data,
	})
}

func (s *stateDbAdapter) GetLogs() []lucia.Log {
	return s.context.GetLogs()
}

func (s *stateDbAdapter) AddPreimage(common.Hash, []byte) {
	panic("preimages are not recorded")
}

func (s *stateDbAdapter) ForEachStorage(common.Address, func(common.Hash, common.Hash) bool) error {
	panic("storage can not be enumerated in a resolving state")
}

func (s *stateDbAdapter) PointCache() *utils.PointCache {
	// see https://eips.ethereum.org/EIPS/eip-4762
	panic("should not be needed by revisions up to EIP160")
}

func (s *stateDbAdapter) Witness() *stateless.Witness {
	return nil
}
