// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package host drives machines against a concrete world state. It answers
// the requirements of a machine from a StateSource and writes the resulting
// account changes into a StateSink.
package host

import (
	"fmt"

	"github.com/Fantom-foundation/Lucia/go/lucia"
)

const (
	ErrNotFound            = lucia.ConstError("not found")
	ErrInsufficientBalance = lucia.ConstError("insufficient balance")
)

// Account is the stored image of an account, excluding its storage.
type Account struct {
	Nonce   uint64
	Balance lucia.Value
	Code    lucia.Code
}

// StateSource provides the facts requested by machines.
type StateSource interface {
	// Account returns the account stored at the given address. False is
	// returned if there is no such account.
	Account(address lucia.Address) (Account, bool, error)
	// Storage returns a storage slot of an existing account. Unset slots
	// are zero.
	Storage(address lucia.Address, key lucia.Key) (lucia.Word, error)
	// BlockHash returns the hash of a past block. False is returned if
	// the hash is not known.
	BlockHash(number lucia.Value) (lucia.Hash, bool, error)
}

// StateSink receives the account changes of executed transactions.
type StateSink interface {
	// AddBalance credits an account, creating it if needed.
	AddBalance(address lucia.Address, amount lucia.Value) error
	// SubBalance debits an account; ErrInsufficientBalance is returned if
	// the balance does not cover the amount.
	SubBalance(address lucia.Address, amount lucia.Value) error
	// SetAccount replaces nonce, balance and code of an account, creating
	// it if needed. Storage is not affected.
	SetAccount(address lucia.Address, account Account) error
	// SetStorage updates a storage slot; zero values clear the slot.
	SetStorage(address lucia.Address, key lucia.Key, value lucia.Word) error
	// Delete removes an account including its storage.
	Delete(address lucia.Address) error
}

// State is a world state that can both serve and receive facts.
type State interface {
	StateSource
	StateSink
}

func debit(address lucia.Address, balance, amount lucia.Value) (lucia.Value, error) {
	if balance.Cmp(amount) < 0 {
		return lucia.Value{}, fmt.Errorf("%w: account %v holds %v, debit of %v", ErrInsufficientBalance, address, balance, amount)
	}
	return lucia.Sub(balance, amount), nil
}
