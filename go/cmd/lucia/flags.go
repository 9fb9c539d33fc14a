// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"

	"github.com/Fantom-foundation/Lucia/go/lucia"
	"github.com/Fantom-foundation/Lucia/go/patch"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var StateFlag = &cli.StringFlag{
	Name:  "state",
	Usage: "JSON file describing the pre-state; seeds the database if --db is given",
}

var DbFlag = &cli.StringFlag{
	Name:  "db",
	Usage: "LevelDB directory holding the state",
}

var TxFlag = &cli.StringFlag{
	Name:     "tx",
	Usage:    "JSON file describing the transaction",
	Required: true,
}

var CommitFlag = &cli.BoolFlag{
	Name:  "commit",
	Usage: "write the account changes back to the database",
}

var NumberFlag = &cli.Int64Flag{
	Name:  "number",
	Usage: "number of the block the transaction is executed in",
}

var GasLimitFlag = &cli.Uint64Flag{
	Name:  "gaslimit",
	Usage: "gas limit of the block the transaction is executed in",
	Value: 8_000_000,
}

type patchFlagType struct {
	cli.StringFlag
}

var PatchFlag = &patchFlagType{
	cli.StringFlag{
		Name:  "patch",
		Usage: "patch to execute under, e.g. Frontier, Homestead, MordenEIP150 or CustomEIP160",
		Value: patch.Frontier.String(),
	},
}

func (f *patchFlagType) Fetch(context *cli.Context) (patch.Kind, error) {
	return patch.ParseKind(context.String(f.Name))
}

type initialNonceFlagType struct {
	cli.Uint64Flag
}

var InitialNonceFlag = &initialNonceFlagType{
	cli.Uint64Flag{
		Name:  "initial-nonce",
		Usage: "initial nonce of fresh accounts for custom patches",
	},
}

// Configure sets the custom initial nonce if the flag is set.
func (f *initialNonceFlagType) Configure(context *cli.Context) error {
	if !context.IsSet(f.Name) {
		return nil
	}
	return patch.SetCustomInitialNonce(context.Uint64(f.Name))
}

type coinbaseFlagType struct {
	cli.StringFlag
}

var CoinbaseFlag = &coinbaseFlagType{
	cli.StringFlag{
		Name:  "coinbase",
		Usage: "beneficiary of the block",
		Value: common.Address{}.Hex(),
	},
}

func (f *coinbaseFlagType) Fetch(context *cli.Context) (lucia.Address, error) {
	value := context.String(f.Name)
	if !common.IsHexAddress(value) {
		return lucia.Address{}, fmt.Errorf("invalid coinbase address %q", value)
	}
	return lucia.Address(common.HexToAddress(value)), nil
}

type verbosityFlagType struct {
	cli.IntFlag
}

var VerbosityFlag = &verbosityFlagType{
	cli.IntFlag{
		Name:  "verbosity",
		Usage: "log level: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	},
}

// Install sets up the default logger at the requested level.
func (f *verbosityFlagType) Install(context *cli.Context) {
	handler := log.NewTerminalHandlerWithLevel(context.App.ErrWriter, log.FromLegacyLevel(context.Int(f.Name)), false)
	log.SetDefault(log.NewLogger(handler))
}
