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
	"errors"
	"math"
	"testing"

	"github.com/Fantom-foundation/Lucia/go/lucia"
	"go.uber.org/mock/gomock"
)

func TestProcessor_IsRegistered(t *testing.T) {
	factory := lucia.GetProcessorFactory("frontier")
	if factory == nil {
		t.Fatalf("frontier processor is not registered")
	}
}

func TestProcessor_SimpleValueTransferIsExecuted(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := lucia.NewMockTransactionContext(ctrl)
	interpreter := lucia.NewMockInterpreter(ctrl)

	sender := lucia.Address{1}
	recipient := lucia.Address{2}
	coinbase := lucia.Address{3}
	gasPrice := lucia.NewValue(2)
	value := lucia.NewValue(1000)

	transaction := lucia.Transaction{
		Sender:    sender,
		Recipient: &recipient,
		Nonce:     4,
		Value:     value,
		GasLimit:  30_000,
		GasPrice:  gasPrice,
	}

	context.EXPECT().GetNonce(sender).Return(uint64(4))
	context.EXPECT().GetBalance(sender).Return(lucia.NewValue(1_000_000)).AnyTimes()
	context.EXPECT().SetBalance(sender, lucia.NewValue(1_000_000-60_000))
	context.EXPECT().SetNonce(sender, uint64(5))
	context.EXPECT().CreateSnapshot().Return(lucia.Snapshot(0))
	context.EXPECT().SubBalance(sender, value)
	context.EXPECT().AddBalance(recipient, value)
	context.EXPECT().GetCode(recipient).Return(nil)
	context.EXPECT().AddBalance(sender, lucia.NewValue(2*9_000))
	context.EXPECT().AddBalance(coinbase, lucia.NewValue(2*21_000))
	context.EXPECT().GetLogs().Return(nil)

	processor := NewProcessor(interpreter)
	receipt, err := processor.Run(lucia.BlockParameters{Coinbase: coinbase}, transaction, context)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !receipt.Success {
		t.Errorf("transfer should succeed")
	}
	if want, got := lucia.Gas(21_000), receipt.GasUsed; want != got {
		t.Errorf("unexpected gas used, wanted %d, got %d", want, got)
	}
	if receipt.ContractAddress != nil {
		t.Errorf("no contract should be created by a call")
	}
}

func TestProcessor_InvalidTransactionsAreRejectedWithoutSideEffects(t *testing.T) {
	sender := lucia.Address{1}
	recipient := lucia.Address{2}

	tests := map[string]struct {
		setup       func(*lucia.MockTransactionContext)
		transaction lucia.Transaction
	}{
		"nonce too low": {
			setup: func(context *lucia.MockTransactionContext) {
				context.EXPECT().GetNonce(sender).Return(uint64(5))
			},
			transaction: lucia.Transaction{Sender: sender, Recipient: &recipient, Nonce: 4, GasLimit: TxGas},
		},
		"nonce too high": {
			setup: func(context *lucia.MockTransactionContext) {
				context.EXPECT().GetNonce(sender).Return(uint64(5))
			},
			transaction: lucia.Transaction{Sender: sender, Recipient: &recipient, Nonce: 6, GasLimit: TxGas},
		},
		"intrinsic gas exceeds limit": {
			setup: func(context *lucia.MockTransactionContext) {
				context.EXPECT().GetNonce(sender).Return(uint64(0))
			},
			transaction: lucia.Transaction{Sender: sender, Recipient: &recipient, GasLimit: TxGas - 1},
		},
		"insufficient balance for gas": {
			setup: func(context *lucia.MockTransactionContext) {
				context.EXPECT().GetNonce(sender).Return(uint64(0))
				context.EXPECT().GetBalance(sender).Return(lucia.NewValue(TxGas - 1))
			},
			transaction: lucia.Transaction{
				Sender:    sender,
				Recipient: &recipient,
				GasLimit:  TxGas,
				GasPrice:  lucia.NewValue(1),
			},
		},
		"gas cost exceeds 256 bits": {
			setup: func(context *lucia.MockTransactionContext) {
				context.EXPECT().GetNonce(sender).Return(uint64(0))
			},
			transaction: lucia.Transaction{
				Sender:    sender,
				Recipient: &recipient,
				GasLimit:  1 << 16,
				GasPrice:  lucia.NewValue(1<<48, 0, 0, 0),
			},
		},
		"gas cost plus value exceeds 256 bits": {
			setup: func(context *lucia.MockTransactionContext) {
				context.EXPECT().GetNonce(sender).Return(uint64(0))
			},
			transaction: lucia.Transaction{
				Sender:    sender,
				Recipient: &recipient,
				GasLimit:  TxGas,
				GasPrice:  lucia.NewValue(1),
				Value:     lucia.NewValue(math.MaxUint64, math.MaxUint64, math.MaxUint64, math.MaxUint64),
			},
		},
		"insufficient balance for value of call": {
			setup: func(context *lucia.MockTransactionContext) {
				context.EXPECT().GetNonce(sender).Return(uint64(0))
				context.EXPECT().GetBalance(sender).Return(lucia.NewValue(200_000))
			},
			transaction: lucia.Transaction{
				Sender:    sender,
				Recipient: &recipient,
				GasLimit:  TxGas,
				GasPrice:  lucia.NewValue(1),
				Value:     lucia.NewValue(1_000_000),
			},
		},
		"insufficient balance for value of create": {
			setup: func(context *lucia.MockTransactionContext) {
				context.EXPECT().GetNonce(sender).Return(uint64(0))
				context.EXPECT().GetBalance(sender).Return(lucia.NewValue(200_000))
			},
			transaction: lucia.Transaction{
				Sender:   sender,
				GasLimit: TxGasContractCreation,
				GasPrice: lucia.NewValue(1),
				Value:    lucia.NewValue(1_000_000),
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			context := lucia.NewMockTransactionContext(ctrl)
			interpreter := lucia.NewMockInterpreter(ctrl)
			test.setup(context)

			processor := NewProcessor(interpreter)
			_, err := processor.Run(lucia.BlockParameters{}, test.transaction, context)
			if !errors.Is(err, lucia.ErrInvalidTransaction) {
				t.Errorf("expected invalid transaction error, got %v", err)
			}
		})
	}
}

func TestProcessor_FailedCallConsumesAllGas(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := lucia.NewMockTransactionContext(ctrl)
	interpreter := lucia.NewMockInterpreter(ctrl)

	sender := lucia.Address{1}
	recipient := lucia.Address{2}
	coinbase := lucia.Address{3}

	transaction := lucia.Transaction{
		Sender:    sender,
		Recipient: &recipient,
		GasLimit:  50_000,
		GasPrice:  lucia.NewValue(1),
	}

	context.EXPECT().GetNonce(sender).Return(uint64(0))
	context.EXPECT().GetBalance(sender).Return(lucia.NewValue(100_000))
	context.EXPECT().SetBalance(sender, lucia.NewValue(50_000))
	context.EXPECT().SetNonce(sender, uint64(1))
	context.EXPECT().CreateSnapshot().Return(lucia.Snapshot(1))
	context.EXPECT().GetCode(recipient).Return(lucia.Code{0xfe})
	interpreter.EXPECT().Run(gomock.Any()).Return(lucia.Result{Success: false, GasLeft: 100}, nil)
	context.EXPECT().RestoreSnapshot(lucia.Snapshot(1))
	context.EXPECT().AddBalance(sender, lucia.NewValue(0))
	context.EXPECT().AddBalance(coinbase, lucia.NewValue(50_000))
	context.EXPECT().GetLogs().Return(nil)

	processor := NewProcessor(interpreter)
	receipt, err := processor.Run(lucia.BlockParameters{Coinbase: coinbase}, transaction, context)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.Success {
		t.Errorf("call should have failed")
	}
	if want, got := lucia.Gas(50_000), receipt.GasUsed; want != got {
		t.Errorf("unexpected gas used, wanted %d, got %d", want, got)
	}
}

func TestProcessor_InterpreterErrorsAreForwarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := lucia.NewMockTransactionContext(ctrl)
	interpreter := lucia.NewMockInterpreter(ctrl)

	sender := lucia.Address{1}
	recipient := lucia.Address{2}
	injected := errors.New("injected")

	context.EXPECT().GetNonce(sender).Return(uint64(0))
	context.EXPECT().GetBalance(sender).Return(lucia.NewValue(0))
	context.EXPECT().SetBalance(sender, lucia.NewValue(0))
	context.EXPECT().SetNonce(sender, uint64(1))
	context.EXPECT().CreateSnapshot().Return(lucia.Snapshot(0))
	context.EXPECT().GetCode(recipient).Return(lucia.Code{0x00})
	context.EXPECT().RestoreSnapshot(lucia.Snapshot(0))
	interpreter.EXPECT().Run(gomock.Any()).Return(lucia.Result{}, injected)

	processor := NewProcessor(interpreter)
	_, err := processor.Run(lucia.BlockParameters{}, lucia.Transaction{
		Sender:    sender,
		Recipient: &recipient,
		GasLimit:  TxGas,
	}, context)
	if !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}
}

func TestSetupGasBilling_ChargesBaseAndDataGas(t *testing.T) {
	recipient := lucia.Address{1}
	tests := map[string]struct {
		recipient *lucia.Address
		input     lucia.Data
		revision  lucia.Revision
		want      lucia.Gas
	}{
		"empty call": {
			recipient: &recipient,
			want:      TxGas,
		},
		"call with data": {
			recipient: &recipient,
			input:     lucia.Data{0, 1, 0, 2},
			want:      TxGas + 2*TxDataZeroGas + 2*TxDataNonZeroGasFrontier,
		},
		"frontier create": {
			revision: lucia.R00_Frontier,
			want:     TxGas,
		},
		"homestead create": {
			revision: lucia.R01_Homestead,
			want:     TxGasContractCreation,
		},
		"eip160 create with data": {
			revision: lucia.R03_EIP160,
			input:    lucia.Data{0xff},
			want:     TxGasContractCreation + TxDataNonZeroGasFrontier,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			transaction := lucia.Transaction{Recipient: test.recipient, Input: test.input}
			if got := setupGasBilling(transaction, test.revision); got != test.want {
				t.Errorf("unexpected intrinsic gas, wanted %d, got %d", test.want, got)
			}
		})
	}
}

func TestSettleGas_RefundIsCappedAtHalfOfUsedGas(t *testing.T) {
	tests := map[string]struct {
		gasLeft  lucia.Gas
		refund   lucia.Gas
		wantUsed lucia.Gas
		wantLeft lucia.Gas
	}{
		"no refund":     {gasLeft: 400, refund: 0, wantUsed: 600, wantLeft: 400},
		"small refund":  {gasLeft: 400, refund: 100, wantUsed: 500, wantLeft: 500},
		"capped refund": {gasLeft: 400, refund: 1000, wantUsed: 300, wantLeft: 700},
		"all gas used":  {gasLeft: 0, refund: 1000, wantUsed: 500, wantLeft: 500},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			used, left := settleGas(
				lucia.Transaction{GasLimit: 1000},
				lucia.CallResult{GasLeft: test.gasLeft, GasRefund: test.refund},
			)
			if used != test.wantUsed || left != test.wantLeft {
				t.Errorf("unexpected settlement, wanted %d/%d, got %d/%d",
					test.wantUsed, test.wantLeft, used, left)
			}
		})
	}
}

func TestUpfrontCost_DetectsOverflow(t *testing.T) {
	maxValue := lucia.NewValue(math.MaxUint64, math.MaxUint64, math.MaxUint64, math.MaxUint64)
	tests := map[string]struct {
		transaction lucia.Transaction
		gas         lucia.Value
		total       lucia.Value
		ok          bool
	}{
		"small": {
			transaction: lucia.Transaction{GasLimit: 21_000, GasPrice: lucia.NewValue(3), Value: lucia.NewValue(7)},
			gas:         lucia.NewValue(63_000),
			total:       lucia.NewValue(63_007),
			ok:          true,
		},
		"maximum price with unit limit": {
			transaction: lucia.Transaction{GasLimit: 1, GasPrice: maxValue},
			gas:         maxValue,
			total:       maxValue,
			ok:          true,
		},
		"product wraps to zero": {
			transaction: lucia.Transaction{GasLimit: 1 << 16, GasPrice: lucia.NewValue(1<<48, 0, 0, 0)},
		},
		"sum exceeds 256 bits": {
			transaction: lucia.Transaction{GasLimit: 1, GasPrice: maxValue, Value: lucia.NewValue(1)},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			gas, total, ok := upfrontCost(test.transaction)
			if ok != test.ok {
				t.Fatalf("unexpected overflow result, wanted %t, got %t", test.ok, ok)
			}
			if !ok {
				return
			}
			if gas != test.gas {
				t.Errorf("unexpected gas cost, wanted %v, got %v", test.gas, gas)
			}
			if total != test.total {
				t.Errorf("unexpected total cost, wanted %v, got %v", test.total, total)
			}
		})
	}
}
