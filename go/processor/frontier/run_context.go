// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package frontier

import (
	"github.com/Fantom-foundation/Lucia/go/lucia"

	// geth dependencies
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// runContext is the lucia.RunContext handed to interpreters. Nested calls
// issued by an interpreter are routed back through Call.
type runContext struct {
	lucia.TransactionContext
	interpreter           lucia.Interpreter
	blockParameters       lucia.BlockParameters
	transactionParameters lucia.TransactionParameters
	depth                 int
}

func (r runContext) Call(kind lucia.CallKind, parameters lucia.CallParameters) (lucia.CallResult, error) {
	if kind == lucia.Create {
		return r.executeCreate(parameters)
	}
	return r.executeCall(kind, parameters)
}

func (r runContext) executeCall(kind lucia.CallKind, parameters lucia.CallParameters) (lucia.CallResult, error) {
	errResult := lucia.CallResult{
		Success: false,
		GasLeft: parameters.Gas,
	}
	if r.depth > MaxRecursiveDepth {
		return errResult, nil
	}
	r.depth++

	if kind == lucia.Call || kind == lucia.CallCode {
		if !canTransferValue(r, parameters.Value, parameters.Sender) {
			return errResult, nil
		}
	}
	snapshot := r.CreateSnapshot()
	recipient := parameters.Recipient

	if kind == lucia.Call {
		transferValue(r, parameters.Value, parameters.Sender, recipient)
	}

	codeAddress := recipient
	if kind == lucia.CallCode || kind == lucia.DelegateCall {
		codeAddress = parameters.CodeAddress
	}

	result, isPrecompiled := handlePrecompiled(parameters.Input, codeAddress, parameters.Gas)
	if isPrecompiled {
		if !result.Success {
			r.RestoreSnapshot(snapshot)
			result.GasLeft = 0
		}
		return result, nil
	}

	code := r.GetCode(codeAddress)
	if len(code) == 0 {
		return lucia.CallResult{Success: true, GasLeft: parameters.Gas}, nil
	}
	codeHash := lucia.HashCode(code)

	interpreterParameters := lucia.Parameters{
		BlockParameters:       r.blockParameters,
		TransactionParameters: r.transactionParameters,
		Context:               r,
		Kind:                  kind,
		Depth:                 r.depth - 1, // depth has already been incremented
		Gas:                   parameters.Gas,
		Recipient:             recipient,
		Sender:                parameters.Sender,
		Input:                 parameters.Input,
		Value:                 parameters.Value,
		CodeHash:              &codeHash,
		Code:                  code,
	}

	callResult, err := r.interpreter.Run(interpreterParameters)
	if err != nil || !callResult.Success {
		// There is no REVERT in the supported revisions, failures consume all gas.
		r.RestoreSnapshot(snapshot)
		return lucia.CallResult{}, err
	}

	return lucia.CallResult{
		Output:    callResult.Output,
		GasLeft:   callResult.GasLeft,
		GasRefund: callResult.GasRefund,
		Success:   true,
	}, nil
}

func (r runContext) executeCreate(parameters lucia.CallParameters) (lucia.CallResult, error) {
	errResult := lucia.CallResult{
		Success: false,
		GasLeft: parameters.Gas,
	}
	if r.depth > MaxRecursiveDepth {
		return errResult, nil
	}
	r.depth++

	if !canTransferValue(r, parameters.Value, parameters.Sender) {
		return errResult, nil
	}
	nonce, ok := incrementNonce(r, parameters.Sender)
	if !ok {
		return errResult, nil
	}

	code := lucia.Code(parameters.Input)
	codeHash := lucia.HashCode(code)
	createdAddress := createAddress(parameters.Sender, nonce)

	if r.GetNonce(createdAddress) != 0 || len(r.GetCode(createdAddress)) != 0 {
		return lucia.CallResult{CreatedAddress: createdAddress}, nil
	}
	snapshot := r.CreateSnapshot()
	r.CreateAccount(createdAddress)

	transferValue(r, parameters.Value, parameters.Sender, createdAddress)

	result := lucia.Result{Success: true, GasLeft: parameters.Gas}
	if len(code) > 0 {
		interpreterParameters := lucia.Parameters{
			BlockParameters:       r.blockParameters,
			TransactionParameters: r.transactionParameters,
			Context:               r,
			Kind:                  lucia.Create,
			Depth:                 r.depth - 1, // depth has already been incremented
			Gas:                   parameters.Gas,
			Recipient:             createdAddress,
			Sender:                parameters.Sender,
			Input:                 nil,
			Value:                 parameters.Value,
			CodeHash:              &codeHash,
			Code:                  code,
		}

		var err error
		result, err = r.interpreter.Run(interpreterParameters)
		if err != nil || !result.Success {
			r.RestoreSnapshot(snapshot)
			return lucia.CallResult{CreatedAddress: createdAddress}, err
		}
	}

	outCode := result.Output
	createGas := lucia.Gas(len(outCode) * CreateDataGas)
	if result.GasLeft >= createGas {
		result.GasLeft -= createGas
		r.SetCode(createdAddress, lucia.Code(outCode))
	} else if r.blockParameters.Revision.IsHomestead() {
		r.RestoreSnapshot(snapshot)
		return lucia.CallResult{CreatedAddress: createdAddress}, nil
	}
	// Frontier keeps the account without code if the deposit can not be paid.

	return lucia.CallResult{
		Output:         outCode,
		GasLeft:        result.GasLeft,
		GasRefund:      result.GasRefund,
		Success:        true,
		CreatedAddress: createdAddress,
	}, nil
}

func createAddress(sender lucia.Address, nonce uint64) lucia.Address {
	return lucia.Address(crypto.CreateAddress(common.Address(sender), nonce))
}

func canTransferValue(
	context lucia.TransactionContext,
	value lucia.Value,
	sender lucia.Address,
) bool {
	if value.IsZero() {
		return true
	}
	return context.GetBalance(sender).Cmp(value) >= 0
}

// incrementNonce bumps the nonce of the given account and returns the nonce
// it had before.
func incrementNonce(context lucia.TransactionContext, address lucia.Address) (uint64, bool) {
	nonce := context.GetNonce(address)
	if nonce+1 < nonce {
		return nonce, false
	}
	context.SetNonce(address, nonce+1)
	return nonce, true
}

// transferValue moves value between accounts. The recipient is credited
// without reading its balance.
func transferValue(
	context lucia.TransactionContext,
	value lucia.Value,
	sender lucia.Address,
	recipient lucia.Address,
) {
	if value.IsZero() || sender == recipient {
		return
	}
	context.SubBalance(sender, value)
	context.AddBalance(recipient, value)
}
