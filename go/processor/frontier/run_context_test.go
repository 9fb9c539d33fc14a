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
	"bytes"
	"testing"

	"github.com/Fantom-foundation/Lucia/go/lucia"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/mock/gomock"
)

func TestRunContext_InterpreterResultIsHandledCorrectly(t *testing.T) {
	tests := map[string]struct {
		result  lucia.Result
		success bool
		gasLeft lucia.Gas
		output  []byte
	}{
		"successful": {
			result:  lucia.Result{Success: true, GasLeft: 10},
			success: true,
			gasLeft: 10,
		},
		"failed": {
			result:  lucia.Result{Success: false, GasLeft: 10, Output: []byte("ignored")},
			success: false,
			gasLeft: 0,
		},
		"output": {
			result:  lucia.Result{Success: true, Output: []byte("some output")},
			success: true,
			output:  []byte("some output"),
		},
	}

	params := lucia.CallParameters{
		Sender:    lucia.Address{1},
		Recipient: lucia.Address{2},
		Gas:       1000,
		Input:     []byte{},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			context := lucia.NewMockTransactionContext(ctrl)
			interpreter := lucia.NewMockInterpreter(ctrl)

			context.EXPECT().GetCode(params.Recipient).Return(lucia.Code{byte(0x00)})
			context.EXPECT().CreateSnapshot()
			if !test.success {
				context.EXPECT().RestoreSnapshot(gomock.Any())
			}
			interpreter.EXPECT().Run(gomock.Any()).Return(test.result, nil)

			runContext := runContext{TransactionContext: context, interpreter: interpreter}
			result, err := runContext.Call(lucia.Call, params)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Success != test.success {
				t.Errorf("unexpected success, wanted %v, got %v", test.success, result.Success)
			}
			if result.GasLeft != test.gasLeft {
				t.Errorf("unexpected gas left, wanted %d, got %d", test.gasLeft, result.GasLeft)
			}
			if !bytes.Equal(result.Output, test.output) {
				t.Errorf("unexpected output, wanted %x, got %x", test.output, result.Output)
			}
		})
	}
}

func TestRunContext_DepthLimitIsEnforced(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := lucia.NewMockTransactionContext(ctrl)
	interpreter := lucia.NewMockInterpreter(ctrl)

	runContext := runContext{
		TransactionContext: context,
		interpreter:        interpreter,
		depth:              MaxRecursiveDepth + 1,
	}

	for _, kind := range []lucia.CallKind{lucia.Call, lucia.CallCode, lucia.DelegateCall, lucia.Create} {
		result, err := runContext.Call(kind, lucia.CallParameters{Gas: 42})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Success || result.GasLeft != 42 {
			t.Errorf("%v beyond the depth limit should fail keeping its gas, got %+v", kind, result)
		}
	}
}

func TestRunContext_NestedCallsReportIncreasedDepth(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := lucia.NewMockTransactionContext(ctrl)
	interpreter := lucia.NewMockInterpreter(ctrl)

	outer := lucia.Address{1}
	inner := lucia.Address{2}

	context.EXPECT().CreateSnapshot().Times(2)
	context.EXPECT().GetCode(gomock.Any()).Return(lucia.Code{0x00}).Times(2)

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params lucia.Parameters) (lucia.Result, error) {
		if params.Depth != 0 {
			t.Errorf("unexpected depth of outer call: %d", params.Depth)
		}
		result, err := params.Context.Call(lucia.Call, lucia.CallParameters{
			Sender:    outer,
			Recipient: inner,
			Gas:       params.Gas / 2,
		})
		if err != nil || !result.Success {
			t.Errorf("nested call failed: %v", err)
		}
		return lucia.Result{Success: true, GasLeft: result.GasLeft}, nil
	})
	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params lucia.Parameters) (lucia.Result, error) {
		if params.Depth != 1 {
			t.Errorf("unexpected depth of inner call: %d", params.Depth)
		}
		return lucia.Result{Success: true, GasLeft: params.Gas}, nil
	})

	runContext := runContext{TransactionContext: context, interpreter: interpreter}
	result, err := runContext.Call(lucia.Call, lucia.CallParameters{Recipient: outer, Gas: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.GasLeft != 50 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestRunContext_ValueTransferRequiresSufficientBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := lucia.NewMockTransactionContext(ctrl)
	interpreter := lucia.NewMockInterpreter(ctrl)

	sender := lucia.Address{1}
	context.EXPECT().GetBalance(sender).Return(lucia.NewValue(9))

	runContext := runContext{TransactionContext: context, interpreter: interpreter}
	result, err := runContext.Call(lucia.Call, lucia.CallParameters{
		Sender:    sender,
		Recipient: lucia.Address{2},
		Value:     lucia.NewValue(10),
		Gas:       100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || result.GasLeft != 100 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestRunContext_DelegateCallRunsCodeOfCodeAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := lucia.NewMockTransactionContext(ctrl)
	interpreter := lucia.NewMockInterpreter(ctrl)

	recipient := lucia.Address{1}
	codeAddress := lucia.Address{2}
	code := lucia.Code{0x60, 0x00}

	context.EXPECT().CreateSnapshot()
	context.EXPECT().GetCode(codeAddress).Return(code)
	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params lucia.Parameters) (lucia.Result, error) {
		if params.Recipient != recipient {
			t.Errorf("unexpected recipient: %v", params.Recipient)
		}
		if !bytes.Equal(params.Code, code) {
			t.Errorf("unexpected code: %x", params.Code)
		}
		if want := lucia.HashCode(code); *params.CodeHash != want {
			t.Errorf("unexpected code hash: %v", *params.CodeHash)
		}
		return lucia.Result{Success: true}, nil
	})

	runContext := runContext{TransactionContext: context, interpreter: interpreter}
	_, err := runContext.Call(lucia.DelegateCall, lucia.CallParameters{
		Recipient:   recipient,
		CodeAddress: codeAddress,
		Value:       lucia.NewValue(12),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunContext_CreateDerivesAddressFromSenderNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := lucia.NewMockTransactionContext(ctrl)
	interpreter := lucia.NewMockInterpreter(ctrl)

	sender := lucia.Address{1}
	created := lucia.Address(crypto.CreateAddress(common.Address(sender), 7))
	runtimeCode := []byte{0x60, 0x00}

	context.EXPECT().GetNonce(sender).Return(uint64(7))
	context.EXPECT().SetNonce(sender, uint64(8))
	context.EXPECT().GetNonce(created).Return(uint64(0))
	context.EXPECT().GetCode(created).Return(nil)
	context.EXPECT().CreateSnapshot()
	context.EXPECT().CreateAccount(created)
	context.EXPECT().SetCode(created, lucia.Code(runtimeCode))
	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params lucia.Parameters) (lucia.Result, error) {
		if params.Recipient != created {
			t.Errorf("unexpected recipient: %v", params.Recipient)
		}
		return lucia.Result{Success: true, GasLeft: 1000, Output: runtimeCode}, nil
	})

	runContext := runContext{TransactionContext: context, interpreter: interpreter}
	result, err := runContext.Call(lucia.Create, lucia.CallParameters{
		Sender: sender,
		Input:  []byte{0x01},
		Gas:    1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.CreatedAddress != created {
		t.Errorf("unexpected result: %+v", result)
	}
	if want := lucia.Gas(1000 - 2*CreateDataGas); result.GasLeft != want {
		t.Errorf("unexpected gas left, wanted %d, got %d", want, result.GasLeft)
	}
}

func TestRunContext_CreateCollisionConsumesAllGas(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := lucia.NewMockTransactionContext(ctrl)
	interpreter := lucia.NewMockInterpreter(ctrl)

	sender := lucia.Address{1}
	created := lucia.Address(crypto.CreateAddress(common.Address(sender), 0))

	context.EXPECT().GetNonce(sender).Return(uint64(0))
	context.EXPECT().SetNonce(sender, uint64(1))
	context.EXPECT().GetNonce(created).Return(uint64(0))
	context.EXPECT().GetCode(created).Return(lucia.Code{0x00})

	runContext := runContext{TransactionContext: context, interpreter: interpreter}
	result, err := runContext.Call(lucia.Create, lucia.CallParameters{Sender: sender, Gas: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || result.GasLeft != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestRunContext_CodeDepositShortOfGasDependsOnRevision(t *testing.T) {
	tests := map[lucia.Revision]bool{
		lucia.R00_Frontier:  true,
		lucia.R01_Homestead: false,
		lucia.R02_EIP150:    false,
		lucia.R03_EIP160:    false,
	}

	for revision, success := range tests {
		t.Run(revision.String(), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			context := lucia.NewMockTransactionContext(ctrl)
			interpreter := lucia.NewMockInterpreter(ctrl)

			sender := lucia.Address{1}
			created := lucia.Address(crypto.CreateAddress(common.Address(sender), 0))

			context.EXPECT().GetNonce(sender).Return(uint64(0))
			context.EXPECT().SetNonce(sender, uint64(1))
			context.EXPECT().GetNonce(created).Return(uint64(0))
			context.EXPECT().GetCode(created).Return(nil)
			context.EXPECT().CreateSnapshot()
			context.EXPECT().CreateAccount(created)
			if !success {
				context.EXPECT().RestoreSnapshot(gomock.Any())
			}
			interpreter.EXPECT().Run(gomock.Any()).Return(lucia.Result{
				Success: true,
				GasLeft: CreateDataGas - 1,
				Output:  []byte{0x00},
			}, nil)

			runContext := runContext{
				TransactionContext: context,
				interpreter:        interpreter,
				blockParameters:    lucia.BlockParameters{Revision: revision},
			}
			result, err := runContext.Call(lucia.Create, lucia.CallParameters{
				Sender: sender,
				Input:  []byte{0x01},
				Gas:    1000,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Success != success {
				t.Errorf("unexpected success, wanted %v, got %v", success, result.Success)
			}
			if success && result.GasLeft != CreateDataGas-1 {
				t.Errorf("gas should not be consumed for the missing deposit, got %d", result.GasLeft)
			}
			if !success && result.GasLeft != 0 {
				t.Errorf("failed creation should consume all gas, got %d", result.GasLeft)
			}
		})
	}
}

func TestTransferValue_SkipsEmptyAndSelfTransfers(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := lucia.NewMockTransactionContext(ctrl)

	a := lucia.Address{1}
	b := lucia.Address{2}
	transferValue(context, lucia.Value{}, a, b)
	transferValue(context, lucia.NewValue(1), a, a)

	context.EXPECT().SubBalance(a, lucia.NewValue(5))
	context.EXPECT().AddBalance(b, lucia.NewValue(5))
	transferValue(context, lucia.NewValue(5), a, b)
}
