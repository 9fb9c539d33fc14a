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
	"bytes"

	"github.com/Fantom-foundation/Lucia/go/lucia"
)

// accountState records the modifications of a single account by the
// ongoing execution attempt. Balance adjustments of accounts whose balance
// was never read are kept as blind credits and debits.
type accountState struct {
	created   bool
	destroyed bool

	balanceSet bool
	balance    lucia.Value
	credit     lucia.Value
	debit      lucia.Value

	nonceSet bool
	nonce    uint64

	codeSet bool
	code    lucia.Code
}

// resolvingState is the lucia.TransactionContext of a single execution
// attempt. Reads are served from the overlay of the attempt or from the
// committed facts; a read of a fact not committed yet abandons the attempt
// by panicking with a missingFact. All modifications are journaled.
type resolvingState struct {
	facts        *facts
	initialNonce uint64

	accounts map[lucia.Address]*accountState
	storage  map[lucia.Address]map[lucia.Key]lucia.Word
	order    []lucia.Address
	logs     []lucia.Log
	journal  []func()
}

func newResolvingState(facts *facts, initialNonce uint64) *resolvingState {
	return &resolvingState{
		facts:        facts,
		initialNonce: initialNonce,
		accounts:     map[lucia.Address]*accountState{},
		storage:      map[lucia.Address]map[lucia.Key]lucia.Word{},
	}
}

func require(requirement Requirement) {
	panic(missingFact{requirement: requirement})
}

// --- committed facts ---

func (s *resolvingState) committedAccount(address lucia.Address) accountFact {
	account, found := s.facts.accounts[address]
	if !found {
		require(RequireAccount(address))
	}
	return account
}

func (s *resolvingState) committedCode(address lucia.Address) lucia.Code {
	if code, found := s.facts.codes[address]; found {
		return code
	}
	if account, found := s.facts.accounts[address]; found && !account.exists {
		return nil
	}
	require(RequireAccountCode(address))
	return nil
}

func (s *resolvingState) committedStorage(address lucia.Address, key lucia.Key) lucia.Word {
	if account, found := s.facts.accounts[address]; found && !account.exists {
		return lucia.Word{}
	}
	if value, found := s.facts.storage[address][key]; found {
		return value
	}
	require(RequireAccountStorage(address, key))
	return lucia.Word{}
}

// --- modifications ---

func (s *resolvingState) update(address lucia.Address, change func(*accountState)) {
	account, found := s.accounts[address]
	if !found {
		account = &accountState{}
		s.accounts[address] = account
		s.order = append(s.order, address)
	}
	backup := *account
	s.journal = append(s.journal, func() { *account = backup })
	change(account)
}

func (s *resolvingState) resetStorage(address lucia.Address) {
	backup, found := s.storage[address]
	s.storage[address] = map[lucia.Key]lucia.Word{}
	s.journal = append(s.journal, func() {
		if found {
			s.storage[address] = backup
		} else {
			delete(s.storage, address)
		}
	})
}

// --- lucia.WorldState ---

func (s *resolvingState) AccountExists(address lucia.Address) bool {
	account := s.accounts[address]
	if account != nil && account.created {
		return true
	}
	if s.committedAccount(address).exists {
		return true
	}
	return account != nil && account.modified(s.storage[address])
}

func (s *resolvingState) CreateAccount(address lucia.Address) {
	s.update(address, func(account *accountState) {
		account.created = true
		account.destroyed = false
		account.nonceSet = true
		account.nonce = s.initialNonce
		account.codeSet = true
		account.code = nil
	})
	s.resetStorage(address)
}

func (s *resolvingState) GetBalance(address lucia.Address) lucia.Value {
	account := s.accounts[address]
	if account == nil {
		return s.committedAccount(address).balance
	}
	base := account.balance
	if !account.balanceSet {
		base = s.committedAccount(address).balance
	}
	return lucia.Sub(lucia.Add(base, account.credit), account.debit)
}

func (s *resolvingState) SetBalance(address lucia.Address, value lucia.Value) {
	s.update(address, func(account *accountState) {
		account.balanceSet = true
		account.balance = value
		account.credit = lucia.Value{}
		account.debit = lucia.Value{}
	})
}

func (s *resolvingState) AddBalance(address lucia.Address, value lucia.Value) {
	s.update(address, func(account *accountState) {
		account.credit = lucia.Add(account.credit, value)
	})
}

func (s *resolvingState) SubBalance(address lucia.Address, value lucia.Value) {
	s.update(address, func(account *accountState) {
		account.debit = lucia.Add(account.debit, value)
	})
}

func (s *resolvingState) GetNonce(address lucia.Address) uint64 {
	if account := s.accounts[address]; account != nil && account.nonceSet {
		return account.nonce
	}
	return s.committedAccount(address).nonce
}

func (s *resolvingState) SetNonce(address lucia.Address, nonce uint64) {
	s.update(address, func(account *accountState) {
		account.nonceSet = true
		account.nonce = nonce
	})
}

func (s *resolvingState) GetCode(address lucia.Address) lucia.Code {
	if account := s.accounts[address]; account != nil && account.codeSet {
		return account.code
	}
	return s.committedCode(address)
}

func (s *resolvingState) GetCodeHash(address lucia.Address) lucia.Hash {
	code := s.GetCode(address)
	if len(code) > 0 {
		return lucia.HashCode(code)
	}
	if !s.AccountExists(address) {
		return lucia.Hash{}
	}
	return lucia.EmptyCodeHash
}

func (s *resolvingState) GetCodeSize(address lucia.Address) int {
	return len(s.GetCode(address))
}

func (s *resolvingState) SetCode(address lucia.Address, code lucia.Code) {
	code = cloneCode(code)
	s.update(address, func(account *accountState) {
		account.codeSet = true
		account.code = code
	})
}

func (s *resolvingState) GetStorage(address lucia.Address, key lucia.Key) lucia.Word {
	if value, found := s.storage[address][key]; found {
		return value
	}
	if account := s.accounts[address]; account != nil && account.created {
		return lucia.Word{}
	}
	return s.committedStorage(address, key)
}

func (s *resolvingState) GetCommittedStorage(address lucia.Address, key lucia.Key) lucia.Word {
	if account := s.accounts[address]; account != nil && account.created {
		return lucia.Word{}
	}
	return s.committedStorage(address, key)
}

func (s *resolvingState) SetStorage(address lucia.Address, key lucia.Key, value lucia.Word) lucia.StorageStatus {
	original := s.GetCommittedStorage(address, key)
	current := s.GetStorage(address, key)

	// registers the account as touched
	s.update(address, func(*accountState) {})

	slots, found := s.storage[address]
	if !found {
		slots = map[lucia.Key]lucia.Word{}
		s.storage[address] = slots
	}
	backup, written := slots[key]
	s.journal = append(s.journal, func() {
		if written {
			slots[key] = backup
		} else {
			delete(slots, key)
		}
	})
	slots[key] = value
	return lucia.GetStorageStatus(original, current, value)
}

func (s *resolvingState) SelfDestruct(address lucia.Address, beneficiary lucia.Address) bool {
	balance := s.GetBalance(address)
	if beneficiary != address {
		s.AddBalance(beneficiary, balance)
	}
	first := !s.HasSelfDestructed(address)
	s.update(address, func(account *accountState) {
		account.destroyed = true
		account.balanceSet = true
		account.balance = lucia.Value{}
		account.credit = lucia.Value{}
		account.debit = lucia.Value{}
	})
	return first
}

func (s *resolvingState) HasSelfDestructed(address lucia.Address) bool {
	account := s.accounts[address]
	return account != nil && account.destroyed
}

// --- lucia.TransactionContext ---

func (s *resolvingState) CreateSnapshot() lucia.Snapshot {
	return lucia.Snapshot(len(s.journal))
}

func (s *resolvingState) RestoreSnapshot(snapshot lucia.Snapshot) {
	for len(s.journal) > int(snapshot) {
		last := len(s.journal) - 1
		s.journal[last]()
		s.journal = s.journal[:last]
	}
}

func (s *resolvingState) EmitLog(log lucia.Log) {
	size := len(s.logs)
	s.journal = append(s.journal, func() { s.logs = s.logs[:size] })
	s.logs = append(s.logs, log)
}

func (s *resolvingState) GetLogs() []lucia.Log {
	return cloneLogs(s.logs)
}

func (s *resolvingState) GetBlockHash(number int64) lucia.Hash {
	if number < 0 {
		return lucia.Hash{}
	}
	key := lucia.NewValue(uint64(number))
	if hash, found := s.facts.blockhashes[key]; found {
		return hash
	}
	require(RequireBlockhash(key))
	return lucia.Hash{}
}

// modified reports whether the account carries any state beyond what it
// had before the transaction.
func (a *accountState) modified(slots map[lucia.Key]lucia.Word) bool {
	return a.balanceSet || a.nonceSet || a.codeSet || len(slots) > 0 ||
		!a.credit.IsZero() || !a.debit.IsZero()
}

func cloneLogs(logs []lucia.Log) []lucia.Log {
	if len(logs) == 0 {
		return nil
	}
	res := make([]lucia.Log, len(logs))
	for i, log := range logs {
		res[i] = lucia.Log{
			Address: log.Address,
			Topics:  append([]lucia.Hash(nil), log.Topics...),
			Data:    bytes.Clone(log.Data),
		}
	}
	return res
}
