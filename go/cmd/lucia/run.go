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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Fantom-foundation/Lucia/go/host"
	"github.com/Fantom-foundation/Lucia/go/lucia"
	"github.com/Fantom-foundation/Lucia/go/patch"
	"github.com/dsnet/golib/unitconv"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

const codeCacheSize = 1 << 10

var RunCmd = cli.Command{
	Action: doRun,
	Name:   "run",
	Usage:  "Executes a transaction against a state and reports its account changes",
	Flags: []cli.Flag{
		StateFlag,
		DbFlag,
		TxFlag,
		PatchFlag,
		InitialNonceFlag,
		NumberFlag,
		GasLimitFlag,
		CoinbaseFlag,
		CommitFlag,
		VerbosityFlag,
	},
}

func doRun(context *cli.Context) (err error) {
	VerbosityFlag.Install(context)

	if err := InitialNonceFlag.Configure(context); err != nil {
		return err
	}
	kind, err := PatchFlag.Fetch(context)
	if err != nil {
		return err
	}
	p, err := patch.Select(kind)
	if err != nil {
		return err
	}
	coinbase, err := CoinbaseFlag.Fetch(context)
	if err != nil {
		return err
	}
	tx, err := loadTransaction(context.String(TxFlag.Name))
	if err != nil {
		return err
	}

	var state host.State
	statePath, dbPath := context.String(StateFlag.Name), context.String(DbFlag.Name)
	switch {
	case dbPath != "":
		db, openErr := host.OpenLevelDbState(dbPath, codeCacheSize)
		if openErr != nil {
			return openErr
		}
		defer func() {
			err = errors.Join(err, db.Close())
		}()
		if statePath != "" {
			if err := seedState(statePath, db); err != nil {
				return err
			}
		}
		state = db
	case statePath != "":
		memory := host.NewMemoryState()
		if err := seedState(statePath, memory); err != nil {
			return err
		}
		state = memory
	default:
		return fmt.Errorf("either --%s or --%s is required", StateFlag.Name, DbFlag.Name)
	}
	if context.Bool(CommitFlag.Name) && dbPath == "" {
		return fmt.Errorf("--%s requires --%s", CommitFlag.Name, DbFlag.Name)
	}

	block := lucia.BlockParameters{
		BlockNumber: context.Int64(NumberFlag.Name),
		Coinbase:    coinbase,
		GasLimit:    lucia.Gas(min(context.Uint64(GasLimitFlag.Name), uint64(1<<63-1))),
	}

	log.Info("Executing transaction", "patch", p.Name, "sender", tx.Sender, "block", block.BlockNumber)
	start := time.Now()
	result, err := host.Execute(context.Context, p, tx, block, state)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if context.Bool(CommitFlag.Name) {
		if err := host.Apply(result.Changes, state); err != nil {
			return fmt.Errorf("failed to commit changes: %w", err)
		}
		log.Info("Committed account changes", "changes", len(result.Changes))
	}

	out, err := json.MarshalIndent(newReport(p.Name, result), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(context.App.Writer, string(out))

	rate := float64(result.UsedGas) / max(elapsed.Seconds(), 1e-9)
	fmt.Fprintf(context.App.ErrWriter, "Executed in %v, ~%sgas per second\n", elapsed.Round(time.Microsecond), unitconv.FormatPrefix(rate, unitconv.SI, 1))
	return nil
}
