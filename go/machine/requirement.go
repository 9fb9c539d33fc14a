// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package machine

import (
	"fmt"

	"github.com/Fantom-foundation/Lucia/go/abi"
	"github.com/Fantom-foundation/Lucia/go/lucia"
)

// Requirement names a single piece of external state an execution needs
// before it can make progress. The zero value is the None requirement.
type Requirement struct {
	Kind    abi.RequirementKind
	Address lucia.Address // Account, AccountCode and AccountStorage
	Key     lucia.Key     // AccountStorage
	Number  lucia.Value   // Blockhash
}

func RequireAccount(address lucia.Address) Requirement {
	return Requirement{Kind: abi.RequireAccount, Address: address}
}

func RequireAccountCode(address lucia.Address) Requirement {
	return Requirement{Kind: abi.RequireAccountCode, Address: address}
}

func RequireAccountStorage(address lucia.Address, key lucia.Key) Requirement {
	return Requirement{Kind: abi.RequireAccountStorage, Address: address, Key: key}
}

func RequireBlockhash(number lucia.Value) Requirement {
	return Requirement{Kind: abi.RequireBlockhash, Number: number}
}

// IsNone is true if no state is required, in which case the execution has
// terminated.
func (r Requirement) IsNone() bool {
	return r.Kind == abi.RequireNone
}

func (r Requirement) String() string {
	switch r.Kind {
	case abi.RequireNone:
		return "None"
	case abi.RequireAccount, abi.RequireAccountCode:
		return fmt.Sprintf("%v(%v)", r.Kind, r.Address)
	case abi.RequireAccountStorage:
		return fmt.Sprintf("%v(%v, %v)", r.Kind, r.Address, r.Key)
	case abi.RequireBlockhash:
		return fmt.Sprintf("%v(%v)", r.Kind, r.Number)
	}
	return fmt.Sprintf("Requirement(%d)", uint32(r.Kind))
}

// Record converts the requirement into its wire form.
func (r Requirement) Record() abi.RequirementRecord {
	return abi.RequirementRecord{
		Kind:    r.Kind,
		Address: r.Address,
		Key:     r.Key,
		Number:  abi.EncodeValue(r.Number),
	}
}

// missingFact is the panic payload used by the resolving state to abandon an
// execution lacking a fact. It never escapes the machine.
type missingFact struct {
	requirement Requirement
}
