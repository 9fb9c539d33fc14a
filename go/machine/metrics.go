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
	"github.com/Fantom-foundation/Lucia/go/abi"
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	advanceCounter     = metrics.NewRegisteredCounter("lucia/machine/advance", nil)
	commitCounter      = metrics.NewRegisteredCounter("lucia/machine/commit", nil)
	terminationCounter = metrics.NewRegisteredCounter("lucia/machine/terminated", nil)

	accountRequirements   = metrics.NewRegisteredCounter("lucia/machine/require/account", nil)
	codeRequirements      = metrics.NewRegisteredCounter("lucia/machine/require/code", nil)
	storageRequirements   = metrics.NewRegisteredCounter("lucia/machine/require/storage", nil)
	blockhashRequirements = metrics.NewRegisteredCounter("lucia/machine/require/blockhash", nil)
)

func countRequirement(requirement Requirement) {
	switch requirement.Kind {
	case abi.RequireAccount:
		accountRequirements.Inc(1)
	case abi.RequireAccountCode:
		codeRequirements.Inc(1)
	case abi.RequireAccountStorage:
		storageRequirements.Inc(1)
	case abi.RequireBlockhash:
		blockhashRequirements.Inc(1)
	}
}
