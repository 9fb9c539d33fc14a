// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/Fantom-foundation/Lucia/go/abi"
	"github.com/Fantom-foundation/Lucia/go/host"
	"github.com/Fantom-foundation/Lucia/go/lucia"
	"github.com/Fantom-foundation/Lucia/go/machine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// stateFile is the JSON form of a pre-state.
type stateFile struct {
	Accounts    map[common.Address]accountJSON `json:"accounts"`
	BlockHashes map[uint64]common.Hash         `json:"blockHashes,omitempty"`
}

type accountJSON struct {
	Nonce   hexutil.Uint64              `json:"nonce"`
	Balance *hexutil.Big                `json:"balance"`
	Code    hexutil.Bytes               `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
}

// txFile is the JSON form of a transaction. A missing recipient denotes a
// contract creation.
type txFile struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Nonce    hexutil.Uint64  `json:"nonce"`
	Value    *hexutil.Big    `json:"value"`
	Gas      hexutil.Uint64  `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Input    hexutil.Bytes   `json:"input"`
}

func readJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func toValue(b *hexutil.Big) (lucia.Value, error) {
	if b == nil {
		return lucia.Value{}, nil
	}
	v, overflow := uint256.FromBig((*big.Int)(b))
	if overflow || (*big.Int)(b).Sign() < 0 {
		return lucia.Value{}, fmt.Errorf("value %v out of range", b)
	}
	return lucia.ValueFromUint256(v), nil
}

func loadTransaction(path string) (lucia.Transaction, error) {
	var file txFile
	if err := readJSON(path, &file); err != nil {
		return lucia.Transaction{}, err
	}
	value, err := toValue(file.Value)
	if err != nil {
		return lucia.Transaction{}, fmt.Errorf("invalid transaction value: %w", err)
	}
	price, err := toValue(file.GasPrice)
	if err != nil {
		return lucia.Transaction{}, fmt.Errorf("invalid gas price: %w", err)
	}
	tx := lucia.Transaction{
		Sender:   lucia.Address(file.From),
		Nonce:    uint64(file.Nonce),
		Input:    lucia.Data(file.Input),
		Value:    value,
		GasLimit: abi.DecodeGas(abi.EncodeUint64(uint64(file.Gas))),
		GasPrice: price,
	}
	if file.To != nil {
		recipient := lucia.Address(*file.To)
		tx.Recipient = &recipient
	}
	return tx, nil
}

// seedableState is a state that can be populated from a state file.
type seedableState interface {
	host.StateSink
	SetBlockHash(number lucia.Value, hash lucia.Hash) error
}

func seedState(path string, state seedableState) error {
	var file stateFile
	if err := readJSON(path, &file); err != nil {
		return err
	}
	for address, account := range file.Accounts {
		balance, err := toValue(account.Balance)
		if err != nil {
			return fmt.Errorf("invalid balance of %v: %w", address, err)
		}
		err = state.SetAccount(lucia.Address(address), host.Account{
			Nonce:   uint64(account.Nonce),
			Balance: balance,
			Code:    lucia.Code(account.Code),
		})
		if err != nil {
			return err
		}
		for key, value := range account.Storage {
			if err := state.SetStorage(lucia.Address(address), lucia.Key(key), lucia.Word(value)); err != nil {
				return err
			}
		}
	}
	for number, hash := range file.BlockHashes {
		if err := state.SetBlockHash(lucia.NewValue(number), lucia.Hash(hash)); err != nil {
			return err
		}
	}
	return nil
}

// report is the JSON output of an execution.
type report struct {
	Patch           string          `json:"patch"`
	Status          string          `json:"status"`
	Error           string          `json:"error,omitempty"`
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	ContractAddress *common.Address `json:"contractAddress,omitempty"`
	Bloom           types.Bloom     `json:"logsBloom"`
	Logs            []*types.Log    `json:"logs"`
	Changes         []changeJSON    `json:"changes"`
}

type changeJSON struct {
	Kind    string                      `json:"kind"`
	Address common.Address              `json:"address"`
	Amount  *hexutil.Big                `json:"amount,omitempty"`
	Nonce   *hexutil.Uint64             `json:"nonce,omitempty"`
	Balance *hexutil.Big                `json:"balance,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
	Code    hexutil.Bytes               `json:"code,omitempty"`
}

func newReport(patchName string, result *host.Result) report {
	res := report{
		Patch:   patchName,
		Status:  result.Status.String(),
		GasUsed: hexutil.Uint64(result.UsedGas),
		Bloom:   result.Receipt.Bloom,
		Logs:    result.Receipt.Logs,
		Changes: make([]changeJSON, 0, len(result.Changes)),
	}
	if result.Err != nil {
		res.Error = result.Err.Error()
	}
	if result.Receipt.ContractAddress != (common.Address{}) {
		address := result.Receipt.ContractAddress
		res.ContractAddress = &address
	}
	for _, change := range result.Changes {
		res.Changes = append(res.Changes, newChangeJSON(change))
	}
	return res
}

func newChangeJSON(change machine.AccountChange) changeJSON {
	res := changeJSON{
		Kind:    change.Kind.String(),
		Address: common.Address(change.Address),
	}
	switch change.Kind {
	case abi.ChangeIncreaseBalance, abi.ChangeDecreaseBalance:
		res.Amount = (*hexutil.Big)(change.Amount.ToBig())
	case abi.ChangeFull, abi.ChangeCreate:
		nonce := hexutil.Uint64(change.Nonce)
		res.Nonce = &nonce
		res.Balance = (*hexutil.Big)(change.Balance.ToBig())
		res.Code = hexutil.Bytes(change.Code)
		if len(change.Storage) > 0 {
			res.Storage = make(map[common.Hash]common.Hash, len(change.Storage))
			for _, item := range change.Storage {
				res.Storage[common.Hash(item.Key)] = common.Hash(item.Value)
			}
		}
	}
	return res
}
