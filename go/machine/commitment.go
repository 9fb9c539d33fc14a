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

// Commitment is a fact supplied by the host in response to a Requirement.
// The variants are FullCommitment, CodeCommitment, StorageCommitment,
// NonexistCommitment and BlockhashCommitment.
type Commitment interface {
	Kind() abi.CommitmentKind
	fmt.Stringer
}

// FullCommitment describes an existing account. Storage is not part of it.
type FullCommitment struct {
	Address lucia.Address
	Nonce   uint64
	Balance lucia.Value
	Code    lucia.Code
}

// CodeCommitment provides the code of an account only.
type CodeCommitment struct {
	Address lucia.Address
	Code    lucia.Code
}

type StorageCommitment struct {
	Address lucia.Address
	Key     lucia.Key
	Value   lucia.Word
}

// NonexistCommitment states that an account does not exist. It implies an
// empty code and an all-zero storage.
type NonexistCommitment struct {
	Address lucia.Address
}

type BlockhashCommitment struct {
	Number lucia.Value
	Hash   lucia.Hash
}

func (FullCommitment) Kind() abi.CommitmentKind      { return abi.CommitFull }
func (CodeCommitment) Kind() abi.CommitmentKind      { return abi.CommitCode }
func (StorageCommitment) Kind() abi.CommitmentKind   { return abi.CommitStorage }
func (NonexistCommitment) Kind() abi.CommitmentKind  { return abi.CommitNonexist }
func (BlockhashCommitment) Kind() abi.CommitmentKind { return abi.CommitBlockhash }

func (c FullCommitment) String() string {
	return fmt.Sprintf("Full(%v, nonce=%d, balance=%v, code=%d bytes)", c.Address, c.Nonce, c.Balance, len(c.Code))
}

func (c CodeCommitment) String() string {
	return fmt.Sprintf("Code(%v, %d bytes)", c.Address, len(c.Code))
}

func (c StorageCommitment) String() string {
	return fmt.Sprintf("Storage(%v, %v, %v)", c.Address, c.Key, c.Value)
}

func (c NonexistCommitment) String() string {
	return fmt.Sprintf("Nonexist(%v)", c.Address)
}

func (c BlockhashCommitment) String() string {
	return fmt.Sprintf("Blockhash(%v, %v)", c.Number, c.Hash)
}

// CommitmentFromRecord converts the wire form of a commitment.
func CommitmentFromRecord(record abi.CommitmentRecord) (Commitment, error) {
	switch record.Kind {
	case abi.CommitFull:
		return FullCommitment{
			Address: record.Address,
			Nonce:   record.Nonce,
			Balance: record.Balance,
			Code:    record.Code,
		}, nil
	case abi.CommitCode:
		return CodeCommitment{Address: record.Address, Code: record.Code}, nil
	case abi.CommitStorage:
		return StorageCommitment{Address: record.Address, Key: record.Key, Value: record.Value}, nil
	case abi.CommitNonexist:
		return NonexistCommitment{Address: record.Address}, nil
	case abi.CommitBlockhash:
		return BlockhashCommitment{Number: abi.DecodeValue(record.Number), Hash: record.Hash}, nil
	}
	return nil, fmt.Errorf("%w: commitment kind %d", abi.ErrInvalidDiscriminant, uint32(record.Kind))
}

// satisfies checks whether the commitment answers the given requirement.
func satisfies(c Commitment, r Requirement) bool {
	switch r.Kind {
	case abi.RequireAccount:
		switch c := c.(type) {
		case FullCommitment:
			return c.Address == r.Address
		case NonexistCommitment:
			return c.Address == r.Address
		}
	case abi.RequireAccountCode:
		switch c := c.(type) {
		case FullCommitment:
			return c.Address == r.Address
		case CodeCommitment:
			return c.Address == r.Address
		case NonexistCommitment:
			return c.Address == r.Address
		}
	case abi.RequireAccountStorage:
		switch c := c.(type) {
		case StorageCommitment:
			return c.Address == r.Address && c.Key == r.Key
		case NonexistCommitment:
			return c.Address == r.Address
		}
	case abi.RequireBlockhash:
		if c, ok := c.(BlockhashCommitment); ok {
			return c.Number == r.Number
		}
	}
	return false
}
