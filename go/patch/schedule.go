// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package patch

import (
	"github.com/Fantom-foundation/Lucia/go/lucia"
)

// Schedule lists the first block of each fork of a chain. A negative block
// number disables the fork.
type Schedule struct {
	HomesteadBlock int64
	EIP150Block    int64
	EIP160Block    int64
}

var (
	MainnetSchedule = Schedule{
		HomesteadBlock: 1_150_000,
		EIP150Block:    2_500_000,
		EIP160Block:    3_000_000,
	}
	MordenSchedule = Schedule{
		HomesteadBlock: 494_000,
		EIP150Block:    1_783_000,
		EIP160Block:    1_915_000,
	}
)

// Revision returns the rule-set active at the given block.
func (s Schedule) Revision(number int64) lucia.Revision {
	switch {
	case active(s.EIP160Block, number):
		return lucia.R03_EIP160
	case active(s.EIP150Block, number):
		return lucia.R02_EIP150
	case active(s.HomesteadBlock, number):
		return lucia.R01_Homestead
	}
	return lucia.R00_Frontier
}

func active(fork, number int64) bool {
	return fork >= 0 && number >= fork
}

// ForBlock selects the patch for a block of a chain whose accounts start
// with the given nonce. Chains starting at zero use the mainnet variants,
// chains starting at MordenInitialNonce the Morden variants, and all other
// chains a custom patch carrying the nonce explicitly.
func ForBlock(schedule Schedule, number int64, startingNonce uint64) (Patch, error) {
	revision := schedule.Revision(number)
	switch startingNonce {
	case 0:
		return Select(Kind(revision))
	case MordenInitialNonce:
		return Select(Kind(int(MordenFrontier) + int(revision)))
	}
	return NewCustom(revision, startingNonce), nil
}
