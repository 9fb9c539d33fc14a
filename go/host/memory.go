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
	"github.com/Fantom-foundation/Lucia/go/lucia"
	"golang.org/x/exp/maps"
)

// MemoryState is a State kept in memory. It is not safe for concurrent use.
type MemoryState struct {
	accounts    map[lucia.Address]Account
	storage     map[lucia.Address]map[lucia.Key]lucia.Word
	blockHashes map[lucia.Value]lucia.Hash
}

func NewMemoryState() *MemoryState {
	return &MemoryState{
		accounts:    map[lucia.Address]Account{},
		storage:     map[lucia.Address]map[lucia.Key]lucia.Word{},
		blockHashes: map[lucia.Value]lucia.Hash{},
	}
}

func (s *MemoryState) Account(address lucia.Address) (Account, bool, error) {
	account, found := s.accounts[address]
	if !found {
		return Account{}, false, nil
	}
	account.Code = cloneCode(account.Code)
	return account, true, nil
}

func (s *MemoryState) Storage(address lucia.Address, key lucia.Key) (lucia.Word, error) {
	return s.storage[address][key], nil
}

func (s *MemoryState) BlockHash(number lucia.Value) (lucia.Hash, bool, error) {
	hash, found := s.blockHashes[number]
	return hash, found, nil
}

func (s *MemoryState) SetBlockHash(number lucia.Value, hash lucia.Hash) error {
	s.blockHashes[number] = hash
	return nil
}

func (s *MemoryState) AddBalance(address lucia.Address, amount lucia.Value) error {
	account := s.accounts[address]
	account.Balance = lucia.Add(account.Balance, amount)
	s.accounts[address] = account
	return nil
}

func (s *MemoryState) SubBalance(address lucia.Address, amount lucia.Value) error {
	account := s.accounts[address]
	balance, err := debit(address, account.Balance, amount)
	if err != nil {
		return err
	}
	account.Balance = balance
	s.accounts[address] = account
	return nil
}

func (s *MemoryState) SetAccount(address lucia.Address, account Account) error {
	account.Code = cloneCode(account.Code)
	s.accounts[address] = account
	return nil
}

func (s *MemoryState) SetStorage(address lucia.Address, key lucia.Key, value lucia.Word) error {
	slots := s.storage[address]
	if value == (lucia.Word{}) {
		delete(slots, key)
		return nil
	}
	if slots == nil {
		slots = map[lucia.Key]lucia.Word{}
		s.storage[address] = slots
	}
	slots[key] = value
	return nil
}

func (s *MemoryState) Delete(address lucia.Address) error {
	delete(s.accounts, address)
	delete(s.storage, address)
	return nil
}

// Accounts returns a copy of all stored accounts.
func (s *MemoryState) Accounts() map[lucia.Address]Account {
	return maps.Clone(s.accounts)
}

// StorageOf returns a copy of the non-zero storage slots of an account.
func (s *MemoryState) StorageOf(address lucia.Address) map[lucia.Key]lucia.Word {
	return maps.Clone(s.storage[address])
}

func cloneCode(code lucia.Code) lucia.Code {
	if code == nil {
		return nil
	}
	return append(lucia.Code{}, code...)
}
