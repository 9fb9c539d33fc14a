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
	"fmt"

	"github.com/Fantom-foundation/Lucia/go/lucia"
)

type accountFact struct {
	exists  bool
	nonce   uint64
	balance lucia.Value
}

// facts is the set of committed external state. It only grows; every
// execution attempt of a machine starts from the facts collected so far.
type facts struct {
	accounts    map[lucia.Address]accountFact
	codes       map[lucia.Address]lucia.Code
	storage     map[lucia.Address]map[lucia.Key]lucia.Word
	blockhashes map[lucia.Value]lucia.Hash
}

func newFacts() *facts {
	return &facts{
		accounts:    map[lucia.Address]accountFact{},
		codes:       map[lucia.Address]lucia.Code{},
		storage:     map[lucia.Address]map[lucia.Key]lucia.Word{},
		blockhashes: map[lucia.Value]lucia.Hash{},
	}
}

// check reports a conflict between the commitment and facts committed
// before. It does not modify the facts.
func (f *facts) check(c Commitment) error {
	switch c := c.(type) {
	case FullCommitment:
		if account, found := f.accounts[c.Address]; found && !account.exists {
			return fmt.Errorf("%w: %v was committed as nonexistent", ErrConflictingCommitment, c.Address)
		}
		if code, found := f.codes[c.Address]; found && !bytes.Equal(code, c.Code) {
			return fmt.Errorf("%w: code of %v differs from committed code", ErrConflictingCommitment, c.Address)
		}
	case CodeCommitment:
		if account, found := f.accounts[c.Address]; found && !account.exists && len(c.Code) > 0 {
			return fmt.Errorf("%w: %v was committed as nonexistent", ErrConflictingCommitment, c.Address)
		}
	case StorageCommitment:
		if account, found := f.accounts[c.Address]; found && !account.exists && c.Value != (lucia.Word{}) {
			return fmt.Errorf("%w: %v was committed as nonexistent", ErrConflictingCommitment, c.Address)
		}
	case NonexistCommitment:
		if account, found := f.accounts[c.Address]; found && account.exists {
			return fmt.Errorf("%w: %v was committed as existing", ErrConflictingCommitment, c.Address)
		}
		if code := f.codes[c.Address]; len(code) > 0 {
			return fmt.Errorf("%w: %v was committed with code", ErrConflictingCommitment, c.Address)
		}
		for key, value := range f.storage[c.Address] {
			if value != (lucia.Word{}) {
				return fmt.Errorf("%w: %v was committed with storage at %v", ErrConflictingCommitment, c.Address, key)
			}
		}
	case BlockhashCommitment:
		if hash, found := f.blockhashes[c.Number]; found && hash != c.Hash {
			return fmt.Errorf("%w: hash of block %v differs from committed hash", ErrConflictingCommitment, c.Number)
		}
	}
	return nil
}

func (f *facts) add(c Commitment) {
	switch c := c.(type) {
	case FullCommitment:
		f.accounts[c.Address] = accountFact{exists: true, nonce: c.Nonce, balance: c.Balance}
		f.codes[c.Address] = cloneCode(c.Code)
	case CodeCommitment:
		f.codes[c.Address] = cloneCode(c.Code)
	case StorageCommitment:
		slots, found := f.storage[c.Address]
		if !found {
			slots = map[lucia.Key]lucia.Word{}
			f.storage[c.Address] = slots
		}
		slots[c.Key] = c.Value
	case NonexistCommitment:
		f.accounts[c.Address] = accountFact{}
		f.codes[c.Address] = nil
	case BlockhashCommitment:
		f.blockhashes[c.Number] = c.Hash
	}
}

func cloneCode(code lucia.Code) lucia.Code {
	if len(code) == 0 {
		return nil
	}
	return bytes.Clone(code)
}
