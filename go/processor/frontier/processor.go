// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package frontier implements a transaction processor for the Frontier,
// Homestead, EIP150 and EIP160 rule-sets.
package frontier

import (
	"fmt"

	"github.com/Fantom-foundation/Lucia/go/lucia"
	"github.com/holiman/uint256"
)

const (
	TxGas                    = 21_000
	TxGasContractCreation    = 53_000
	TxDataNonZeroGasFrontier = 68
	TxDataZeroGas            = 4
	CreateDataGas            = 200
	MaxRecursiveDepth        = 1024
)

func init() {
	lucia.RegisterProcessorFactory("frontier", NewProcessor)
}

// NewProcessor creates a processor running call frames on the given
// interpreter.
func NewProcessor(interpreter lucia.Interpreter) lucia.Processor {
	return &processor{
		interpreter: interpreter,
	}
}

type processor struct {
	interpreter lucia.Interpreter
}

// Run executes the given transaction. Transactions failing validation are
// reported through an error wrapping lucia.ErrInvalidTransaction; the
// context is not modified in this case. Any other error is an issue of the
// interpreter.
func (p *processor) Run(
	blockParams lucia.BlockParameters,
	transaction lucia.Transaction,
	context lucia.TransactionContext,
) (lucia.Receipt, error) {
	if err := checkNonce(transaction, context); err != nil {
		return lucia.Receipt{}, err
	}

	intrinsicGas := setupGasBilling(transaction, blockParams.Revision)
	if transaction.GasLimit < intrinsicGas {
		return lucia.Receipt{}, fmt.Errorf("%w: intrinsic gas %d exceeds gas limit %d",
			lucia.ErrInvalidTransaction, intrinsicGas, transaction.GasLimit)
	}

	if err := buyGas(transaction, context); err != nil {
		return lucia.Receipt{}, err
	}
	gas := transaction.GasLimit - intrinsicGas

	runContext := runContext{
		TransactionContext: context,
		interpreter:        p.interpreter,
		blockParameters:    blockParams,
		transactionParameters: lucia.TransactionParameters{
			Origin:   transaction.Sender,
			GasPrice: transaction.GasPrice,
		},
	}

	var result lucia.CallResult
	var err error
	if transaction.Recipient == nil {
		result, err = runContext.Call(lucia.Create, lucia.CallParameters{
			Sender: transaction.Sender,
			Value:  transaction.Value,
			Input:  transaction.Input,
			Gas:    gas,
		})
	} else {
		context.SetNonce(transaction.Sender, transaction.Nonce+1)
		result, err = runContext.Call(lucia.Call, lucia.CallParameters{
			Sender:      transaction.Sender,
			Recipient:   *transaction.Recipient,
			Value:       transaction.Value,
			Input:       transaction.Input,
			Gas:         gas,
			CodeAddress: *transaction.Recipient,
		})
	}
	if err != nil {
		return lucia.Receipt{}, err
	}

	// Both amounts are bounded by the gas purchase checked in buyGas.
	gasUsed, gasLeft := settleGas(transaction, result)
	context.AddBalance(transaction.Sender, transaction.GasPrice.Scale(uint64(gasLeft)))
	context.AddBalance(blockParams.Coinbase, transaction.GasPrice.Scale(uint64(gasUsed)))

	receipt := lucia.Receipt{
		Success: result.Success,
		Output:  result.Output,
		GasUsed: gasUsed,
		Logs:    context.GetLogs(),
	}
	if transaction.Recipient == nil && result.Success {
		createdAddress := result.CreatedAddress
		receipt.ContractAddress = &createdAddress
	}
	return receipt, nil
}

// settleGas computes the gas charged for a transaction and the gas returned
// to the sender. Refunds are capped at half of the gas used.
func settleGas(transaction lucia.Transaction, result lucia.CallResult) (used, left lucia.Gas) {
	used = transaction.GasLimit - result.GasLeft
	refund := min(result.GasRefund, used/2)
	if refund < 0 {
		refund = 0
	}
	return used - refund, result.GasLeft + refund
}

func setupGasBilling(transaction lucia.Transaction, revision lucia.Revision) lucia.Gas {
	var gas lucia.Gas = TxGas
	if transaction.Recipient == nil && revision.IsHomestead() {
		gas = TxGasContractCreation
	}

	nonZeroBytes := lucia.Gas(0)
	for _, inputByte := range transaction.Input {
		if inputByte != 0 {
			nonZeroBytes++
		}
	}
	zeroBytes := lucia.Gas(len(transaction.Input)) - nonZeroBytes
	gas += zeroBytes * TxDataZeroGas
	gas += nonZeroBytes * TxDataNonZeroGasFrontier
	return gas
}

func checkNonce(transaction lucia.Transaction, context lucia.TransactionContext) error {
	stateNonce := context.GetNonce(transaction.Sender)
	if transaction.Nonce != stateNonce {
		return fmt.Errorf("%w: nonce mismatch: %v != %v",
			lucia.ErrInvalidTransaction, transaction.Nonce, stateNonce)
	}
	if stateNonce+1 < stateNonce {
		return fmt.Errorf("%w: nonce overflow", lucia.ErrInvalidTransaction)
	}
	return nil
}

// upfrontCost returns the gas purchase gasLimit*gasPrice and the balance
// gasLimit*gasPrice + value a sender needs before execution starts. The
// last result is false if either amount exceeds 256 bits.
func upfrontCost(transaction lucia.Transaction) (gas, total lucia.Value, ok bool) {
	gasLimit := uint256.NewInt(uint64(transaction.GasLimit))
	product, overflow := new(uint256.Int).MulOverflow(transaction.GasPrice.ToUint256(), gasLimit)
	if overflow {
		return gas, total, false
	}
	sum, overflow := new(uint256.Int).AddOverflow(product, transaction.Value.ToUint256())
	if overflow {
		return gas, total, false
	}
	return lucia.ValueFromUint256(product), lucia.ValueFromUint256(sum), true
}

// buyGas deducts the gas purchase from the sender. A sender unable to cover
// both the gas and the transferred value makes the transaction invalid.
func buyGas(transaction lucia.Transaction, context lucia.TransactionContext) error {
	gas, total, ok := upfrontCost(transaction)
	if !ok {
		return fmt.Errorf("%w: upfront cost exceeds 256 bits", lucia.ErrInvalidTransaction)
	}

	senderBalance := context.GetBalance(transaction.Sender)
	if senderBalance.Cmp(total) < 0 {
		return fmt.Errorf("%w: insufficient balance: %v < %v",
			lucia.ErrInvalidTransaction, senderBalance, total)
	}
	context.SetBalance(transaction.Sender, lucia.Sub(senderBalance, gas))
	return nil
}
