// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package host

import (
	"context"
	"math/big"

	"github.com/Fantom-foundation/Lucia/go/lucia"
	"github.com/Fantom-foundation/Lucia/go/machine"
	"github.com/Fantom-foundation/Lucia/go/patch"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

// Result summarizes a transaction executed against a state.
type Result struct {
	Status  machine.Status
	Err     error
	UsedGas lucia.Gas
	Logs    []lucia.Log
	Changes []machine.AccountChange
	Receipt *types.Receipt
}

// Execute runs a transaction to termination with facts taken from the given
// source. The state is not modified; use Apply to write the changes.
func Execute(ctx context.Context, p patch.Patch, tx lucia.Transaction, block lucia.BlockParameters, source StateSource) (*Result, error) {
	m := machine.New(p, tx, block, machine.Config{})
	if err := Resolve(ctx, m, source); err != nil {
		return nil, err
	}
	result := &Result{
		Status:  m.Status(),
		Err:     m.Err(),
		UsedGas: m.UsedGas(),
		Logs:    m.Logs(),
		Changes: m.AccountChanges(),
	}
	result.Receipt = NewReceipt(tx, result, uint64(result.UsedGas), big.NewInt(block.BlockNumber))
	log.Debug("Executed transaction", "sender", tx.Sender, "status", result.Status, "gas", result.UsedGas, "changes", len(result.Changes))
	return result, nil
}

// NewReceipt produces the receipt of an executed transaction in the form
// used by go-ethereum.
func NewReceipt(tx lucia.Transaction, result *Result, cumulativeGasUsed uint64, blockNumber *big.Int) *types.Receipt {
	receipt := &types.Receipt{
		Type:              types.LegacyTxType,
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: cumulativeGasUsed,
		GasUsed:           uint64(result.UsedGas),
		EffectiveGasPrice: tx.GasPrice.ToBig(),
		BlockNumber:       blockNumber,
		Logs:              make([]*types.Log, 0, len(result.Logs)),
	}
	if result.Status != machine.ExitedOk {
		receipt.Status = types.ReceiptStatusFailed
	}
	for i, l := range result.Logs {
		topics := make([]common.Hash, 0, len(l.Topics))
		for _, topic := range l.Topics {
			topics = append(topics, common.Hash(topic))
		}
		receipt.Logs = append(receipt.Logs, &types.Log{
			Address:     common.Address(l.Address),
			Topics:      topics,
			Data:        common.CopyBytes(l.Data),
			BlockNumber: blockNumber.Uint64(),
			Index:       uint(i),
		})
	}
	if tx.Recipient == nil && receipt.Status == types.ReceiptStatusSuccessful {
		receipt.ContractAddress = crypto.CreateAddress(common.Address(tx.Sender), tx.Nonce)
	}
	receipt.Bloom = types.CreateBloom(types.Receipts{receipt})
	return receipt
}
