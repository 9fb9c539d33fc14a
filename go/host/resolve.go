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
	"fmt"

	"github.com/Fantom-foundation/Lucia/go/abi"
	"github.com/Fantom-foundation/Lucia/go/machine"
	"github.com/ethereum/go-ethereum/log"
)

// Resolve advances the machine until it terminates, answering every
// requirement from the given source. Accounts missing in the source are
// committed as nonexistent; unknown block hashes are committed as zero.
// The loop stops early if the context is cancelled.
func Resolve(ctx context.Context, m *machine.Machine, source StateSource) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		requirement := m.Advance()
		if requirement.IsNone() {
			return nil
		}
		commitment, err := lookupFact(source, requirement)
		if err != nil {
			return fmt.Errorf("failed to resolve %v: %w", requirement, err)
		}
		log.Trace("Resolved requirement", "requirement", requirement, "commitment", commitment)
		if err := m.Commit(commitment); err != nil {
			return fmt.Errorf("failed to commit %v: %w", commitment, err)
		}
	}
}

func lookupFact(source StateSource, requirement machine.Requirement) (machine.Commitment, error) {
	switch requirement.Kind {
	case abi.RequireAccount, abi.RequireAccountCode, abi.RequireAccountStorage:
		account, found, err := source.Account(requirement.Address)
		if err != nil {
			return nil, err
		}
		if !found {
			return machine.NonexistCommitment{Address: requirement.Address}, nil
		}
		switch requirement.Kind {
		case abi.RequireAccount:
			return machine.FullCommitment{
				Address: requirement.Address,
				Nonce:   account.Nonce,
				Balance: account.Balance,
				Code:    account.Code,
			}, nil
		case abi.RequireAccountCode:
			return machine.CodeCommitment{Address: requirement.Address, Code: account.Code}, nil
		}
		value, err := source.Storage(requirement.Address, requirement.Key)
		if err != nil {
			return nil, err
		}
		return machine.StorageCommitment{Address: requirement.Address, Key: requirement.Key, Value: value}, nil
	case abi.RequireBlockhash:
		hash, _, err := source.BlockHash(requirement.Number)
		if err != nil {
			return nil, err
		}
		return machine.BlockhashCommitment{Number: requirement.Number, Hash: hash}, nil
	}
	return nil, fmt.Errorf("unsupported requirement kind %v", requirement.Kind)
}

// Apply writes account changes into the given sink. Created accounts
// replace any previous account at their address.
func Apply(changes []machine.AccountChange, sink StateSink) error {
	for _, change := range changes {
		if err := applyChange(change, sink); err != nil {
			return fmt.Errorf("failed to apply %v change of %v: %w", change.Kind, change.Address, err)
		}
	}
	return nil
}

func applyChange(change machine.AccountChange, sink StateSink) error {
	switch change.Kind {
	case abi.ChangeIncreaseBalance:
		return sink.AddBalance(change.Address, change.Amount)
	case abi.ChangeDecreaseBalance:
		return sink.SubBalance(change.Address, change.Amount)
	case abi.ChangeNonexist:
		return sink.Delete(change.Address)
	case abi.ChangeCreate:
		if err := sink.Delete(change.Address); err != nil {
			return err
		}
		fallthrough
	case abi.ChangeFull:
		err := sink.SetAccount(change.Address, Account{
			Nonce:   change.Nonce,
			Balance: change.Balance,
			Code:    change.Code,
		})
		if err != nil {
			return err
		}
		for _, item := range change.Storage {
			if err := sink.SetStorage(change.Address, item.Key, item.Value); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unsupported change kind %v", change.Kind)
}
