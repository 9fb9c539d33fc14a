// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package frontier

import (
	"github.com/Fantom-foundation/Lucia/go/lucia"
	"github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/vm"
)

func handlePrecompiled(input lucia.Data, address lucia.Address, gas lucia.Gas) (lucia.CallResult, bool) {
	contract, ok := precompiledContract(address)
	if !ok {
		return lucia.CallResult{}, false
	}
	gasCost := contract.RequiredGas(input)
	if gasCost > uint64(gas) {
		return lucia.CallResult{}, true
	}
	gas -= lucia.Gas(gasCost)
	output, err := contract.Run(input)

	return lucia.CallResult{
		Success: err == nil, // precompiled contracts only return errors on invalid input
		Output:  output,
		GasLeft: gas,
	}, true
}

// precompiledContract resolves the contracts at addresses 1 to 4, the only
// ones known to the supported revisions.
func precompiledContract(address lucia.Address) (geth.PrecompiledContract, bool) {
	if !lucia.IsPrecompiledContract(address) {
		return nil, false
	}
	contract, ok := geth.PrecompiledContractsHomestead[common.Address(address)]
	return contract, ok
}
