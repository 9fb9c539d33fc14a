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

	"github.com/Fantom-foundation/Lucia/go/abi"
	"github.com/Fantom-foundation/Lucia/go/lucia"
	"golang.org/x/exp/slices"
)

// AccountChange is the net effect of a transaction on a single account.
// Amount is set for balance changes; Nonce, Balance, Storage and Code for
// Full and Create changes.
type AccountChange struct {
	Kind    abi.AccountChangeKind
	Address lucia.Address
	Amount  lucia.Value
	Nonce   uint64
	Balance lucia.Value
	Storage []abi.StorageItem
	Code    lucia.Code
}

// Info returns the summary record of the change.
func (c AccountChange) Info() abi.AccountChangeInfo {
	return abi.AccountChangeInfo{
		Kind:       c.Kind,
		Address:    c.Address,
		Amount:     c.Amount,
		Nonce:      c.Nonce,
		Balance:    c.Balance,
		StorageLen: uint32(len(c.Storage)),
		CodeLen:    uint32(len(c.Code)),
	}
}

// accountChanges classifies the modifications of the execution attempt
// against the committed facts. Accounts are reported in the order they
// have been modified first, at most once each. Classifying may require
// facts not committed yet.
func (s *resolvingState) accountChanges() []AccountChange {
	var changes []AccountChange
	for _, address := range s.order {
		if change, ok := s.accountChange(address); ok {
			changes = append(changes, change)
		}
	}
	return changes
}

func (s *resolvingState) accountChange(address lucia.Address) (AccountChange, bool) {
	account := s.accounts[address]
	slots := s.storage[address]
	fact, known := s.facts.accounts[address]

	if account.destroyed {
		return AccountChange{Kind: abi.ChangeNonexist, Address: address}, true
	}

	if account.created || (known && !fact.exists && s.hasImage(address, account, slots, fact)) {
		return AccountChange{
			Kind:    abi.ChangeCreate,
			Address: address,
			Nonce:   s.GetNonce(address),
			Balance: s.GetBalance(address),
			Storage: sortedSlots(slots, true),
			Code:    cloneCode(s.GetCode(address)),
		}, true
	}

	if !known && (account.balanceSet || account.nonceSet || account.codeSet || len(slots) > 0) {
		// only blind balance adjustments can be described without knowing the account
		fact = s.committedAccount(address)
		known = true
		if !fact.exists {
			return s.accountChange(address)
		}
	}

	if known && fact.exists && s.hasImage(address, account, slots, fact) {
		return AccountChange{
			Kind:    abi.ChangeFull,
			Address: address,
			Nonce:   s.GetNonce(address),
			Balance: s.GetBalance(address),
			Storage: sortedSlots(slots, false),
			Code:    cloneCode(s.GetCode(address)),
		}, true
	}

	var amount lucia.Value
	var negative bool
	if known {
		amount, negative = lucia.Diff(s.GetBalance(address), fact.balance)
	} else {
		amount, negative = lucia.Diff(account.credit, account.debit)
	}
	if amount.IsZero() {
		return AccountChange{}, false
	}
	kind := abi.ChangeIncreaseBalance
	if negative {
		kind = abi.ChangeDecreaseBalance
	}
	return AccountChange{Kind: kind, Address: address, Amount: amount}, true
}

// hasImage reports whether nonce, code or storage of the account differ
// from the committed fact, requiring a full account image to be reported.
func (s *resolvingState) hasImage(address lucia.Address, account *accountState, slots map[lucia.Key]lucia.Word, fact accountFact) bool {
	if account.nonceSet && account.nonce != fact.nonce {
		return true
	}
	if account.codeSet {
		committed, found := s.facts.codes[address]
		if !found || !bytes.Equal(committed, account.code) {
			return true
		}
	}
	for _, value := range slots {
		if fact.exists || value != (lucia.Word{}) {
			return true
		}
	}
	return false
}

func sortedSlots(slots map[lucia.Key]lucia.Word, skipZero bool) []abi.StorageItem {
	items := make([]abi.StorageItem, 0, len(slots))
	for key, value := range slots {
		if skipZero && value == (lucia.Word{}) {
			continue
		}
		items = append(items, abi.StorageItem{Key: key, Value: value})
	}
	slices.SortFunc(items, func(a, b abi.StorageItem) int {
		return bytes.Compare(a.Key[:], b.Key[:])
	})
	return items
}
