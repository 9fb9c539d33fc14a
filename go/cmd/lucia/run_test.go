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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Fantom-foundation/Lucia/go/host"
	"github.com/Fantom-foundation/Lucia/go/lucia"
	"github.com/stretchr/testify/require"
)

const (
	testSender    = "0xaa00000000000000000000000000000000000000"
	testRecipient = "0xbb00000000000000000000000000000000000000"
	testCoinbase  = "0xcc00000000000000000000000000000000000000"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runApp(t *testing.T, args ...string) (report, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"lucia", "run", "--verbosity", "0"}, args...))
	var res report
	if err == nil {
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
		require.Contains(t, stderr.String(), "gas per second")
	}
	return res, err
}

func transferFiles(t *testing.T) (state, tx string) {
	state = writeFile(t, "state.json", `{
		"accounts": {
			"`+testSender+`": {"nonce": "0x0", "balance": "0xf4240"}
		}
	}`)
	tx = writeFile(t, "tx.json", `{
		"from": "`+testSender+`",
		"to": "`+testRecipient+`",
		"nonce": "0x0",
		"value": "0x64",
		"gas": "0x5208",
		"gasPrice": "0x2"
	}`)
	return state, tx
}

func TestRun_ValueTransferIsReported(t *testing.T) {
	state, tx := transferFiles(t)
	res, err := runApp(t, "--state", state, "--tx", tx, "--coinbase", testCoinbase)
	require.NoError(t, err)

	require.Equal(t, "Frontier", res.Patch)
	require.Equal(t, "ExitedOk", res.Status)
	require.Equal(t, uint64(21_000), uint64(res.GasUsed))
	require.Len(t, res.Changes, 3)
	require.Equal(t, "Full", res.Changes[0].Kind)
	require.Equal(t, uint64(1), uint64(*res.Changes[0].Nonce))
	require.Equal(t, int64(100), res.Changes[1].Amount.ToInt().Int64())
	require.Equal(t, int64(42_000), res.Changes[2].Amount.ToInt().Int64())
}

func TestRun_ChangesAreCommittedToDatabase(t *testing.T) {
	state, tx := transferFiles(t)
	dir := t.TempDir()
	_, err := runApp(t, "--state", state, "--db", dir, "--tx", tx, "--coinbase", testCoinbase, "--commit")
	require.NoError(t, err)

	db, err := host.OpenLevelDbState(dir, 16)
	require.NoError(t, err)
	defer db.Close()

	var sender lucia.Address
	require.NoError(t, sender.UnmarshalText([]byte(testSender)))
	account, found, err := db.Account(sender)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(1), account.Nonce)
	require.Equal(t, lucia.NewValue(1_000_000-100-42_000), account.Balance)
}

func TestRun_InvalidArgumentsAreRejected(t *testing.T) {
	state, tx := transferFiles(t)
	tests := map[string][]string{
		"no state":         {"--tx", tx},
		"unknown patch":    {"--state", state, "--tx", tx, "--patch", "Byzantium"},
		"invalid coinbase": {"--state", state, "--tx", tx, "--coinbase", "0x12"},
		"commit to memory": {"--state", state, "--tx", tx, "--commit"},
		"missing tx file":  {"--state", state, "--tx", filepath.Join(t.TempDir(), "missing.json")},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := runApp(t, args...)
			require.Error(t, err)
		})
	}
}
