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
	"reflect"
	"testing"

	"github.com/Fantom-foundation/Lucia/go/abi"
	"github.com/Fantom-foundation/Lucia/go/lucia"
)

// requirementOf runs the given operation and returns the requirement it
// raised, or the None requirement if it completed.
func requirementOf(operation func()) (requirement Requirement) {
	defer func() {
		if recovered := recover(); recovered != nil {
			requirement = recovered.(missingFact).requirement
		}
	}()
	operation()
	return Requirement{}
}

func TestResolvingState_MissingFactsRaiseRequirements(t *testing.T) {
	address := lucia.Address{1}
	tests := map[string]struct {
		operation func(*resolvingState)
		want      Requirement
	}{
		"balance":      {func(s *resolvingState) { s.GetBalance(address) }, RequireAccount(address)},
		"nonce":        {func(s *resolvingState) { s.GetNonce(address) }, RequireAccount(address)},
		"existence":    {func(s *resolvingState) { s.AccountExists(address) }, RequireAccount(address)},
		"code":         {func(s *resolvingState) { s.GetCode(address) }, RequireAccountCode(address)},
		"code size":    {func(s *resolvingState) { s.GetCodeSize(address) }, RequireAccountCode(address)},
		"storage":      {func(s *resolvingState) { s.GetStorage(address, lucia.Key{2}) }, RequireAccountStorage(address, lucia.Key{2})},
		"block hash":   {func(s *resolvingState) { s.GetBlockHash(12) }, RequireBlockhash(lucia.NewValue(12))},
		"blind credit": {func(s *resolvingState) { s.AddBalance(address, lucia.NewValue(1)) }, Requirement{}},
		"blind debit":  {func(s *resolvingState) { s.SubBalance(address, lucia.NewValue(1)) }, Requirement{}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			state := newResolvingState(newFacts(), 0)
			got := requirementOf(func() { test.operation(state) })
			if got != test.want {
				t.Errorf("unexpected requirement, wanted %v, got %v", test.want, got)
			}
		})
	}
}

func TestResolvingState_NonexistentAccountsNeedNoFurtherFacts(t *testing.T) {
	address := lucia.Address{1}
	facts := newFacts()
	facts.add(NonexistCommitment{Address: address})
	state := newResolvingState(facts, 0)

	requirement := requirementOf(func() {
		if state.AccountExists(address) {
			t.Errorf("account should not exist")
		}
		if len(state.GetCode(address)) != 0 {
			t.Errorf("nonexistent account should have no code")
		}
		if state.GetStorage(address, lucia.Key{1}) != (lucia.Word{}) {
			t.Errorf("nonexistent account should have empty storage")
		}
		if state.GetCodeHash(address) != (lucia.Hash{}) {
			t.Errorf("nonexistent account should have a zero code hash")
		}
	})
	if !requirement.IsNone() {
		t.Errorf("unexpected requirement %v", requirement)
	}
}

func TestResolvingState_SnapshotsRestoreModifications(t *testing.T) {
	address := lucia.Address{1}
	facts := newFacts()
	facts.add(FullCommitment{Address: address, Nonce: 1, Balance: lucia.NewValue(10)})
	facts.add(StorageCommitment{Address: address, Key: lucia.Key{1}, Value: lucia.Word{1}})
	state := newResolvingState(facts, 0)

	state.SetNonce(address, 2)
	snapshot := state.CreateSnapshot()
	state.SetNonce(address, 3)
	state.AddBalance(address, lucia.NewValue(5))
	state.SetStorage(address, lucia.Key{1}, lucia.Word{2})
	state.SetCode(address, lucia.Code{0x01})
	state.EmitLog(lucia.Log{Address: address})
	state.CreateAccount(address)

	state.RestoreSnapshot(snapshot)

	if want, got := uint64(2), state.GetNonce(address); want != got {
		t.Errorf("unexpected nonce, wanted %d, got %d", want, got)
	}
	if want, got := lucia.NewValue(10), state.GetBalance(address); want != got {
		t.Errorf("unexpected balance, wanted %v, got %v", want, got)
	}
	if want, got := (lucia.Word{1}), state.GetStorage(address, lucia.Key{1}); want != got {
		t.Errorf("unexpected storage, wanted %v, got %v", want, got)
	}
	if len(state.GetCode(address)) != 0 {
		t.Errorf("code should have been restored")
	}
	if len(state.GetLogs()) != 0 {
		t.Errorf("logs should have been restored")
	}
}

func TestResolvingState_CreateAccountResetsStorageAndKeepsBalance(t *testing.T) {
	address := lucia.Address{1}
	facts := newFacts()
	facts.add(FullCommitment{Address: address, Nonce: 5, Balance: lucia.NewValue(7), Code: lucia.Code{0x01}})
	facts.add(StorageCommitment{Address: address, Key: lucia.Key{1}, Value: lucia.Word{3}})
	state := newResolvingState(facts, 42)

	state.SetStorage(address, lucia.Key{1}, lucia.Word{1})
	state.CreateAccount(address)

	if want, got := uint64(42), state.GetNonce(address); want != got {
		t.Errorf("unexpected nonce, wanted %d, got %d", want, got)
	}
	if want, got := lucia.NewValue(7), state.GetBalance(address); want != got {
		t.Errorf("unexpected balance, wanted %v, got %v", want, got)
	}
	if state.GetStorage(address, lucia.Key{1}) != (lucia.Word{}) || state.GetStorage(address, lucia.Key{2}) != (lucia.Word{}) {
		t.Errorf("storage of created account should be empty")
	}
	if len(state.GetCode(address)) != 0 {
		t.Errorf("code of created account should be empty")
	}
}

func TestResolvingState_SelfDestructTransfersBalance(t *testing.T) {
	address := lucia.Address{1}
	beneficiary := lucia.Address{2}
	facts := newFacts()
	facts.add(FullCommitment{Address: address, Balance: lucia.NewValue(7)})
	state := newResolvingState(facts, 0)

	if !state.SelfDestruct(address, beneficiary) {
		t.Errorf("first destruction should be reported")
	}
	if state.SelfDestruct(address, beneficiary) {
		t.Errorf("second destruction should not be reported")
	}
	if !state.HasSelfDestructed(address) {
		t.Errorf("account should be marked as destroyed")
	}
	if !state.GetBalance(address).IsZero() {
		t.Errorf("balance of destroyed account should be zero")
	}

	want := []AccountChange{
		{Kind: abi.ChangeIncreaseBalance, Address: beneficiary, Amount: lucia.NewValue(7)},
		{Kind: abi.ChangeNonexist, Address: address},
	}
	if got := state.accountChanges(); !reflect.DeepEqual(want, got) {
		t.Errorf("unexpected changes\nwanted %+v\n   got %+v", want, got)
	}
}

func TestResolvingState_StorageStatusIsReported(t *testing.T) {
	address := lucia.Address{1}
	facts := newFacts()
	facts.add(FullCommitment{Address: address})
	facts.add(StorageCommitment{Address: address, Key: lucia.Key{1}})
	state := newResolvingState(facts, 0)

	if want, got := lucia.StorageAdded, state.SetStorage(address, lucia.Key{1}, lucia.Word{1}); want != got {
		t.Errorf("unexpected status, wanted %v, got %v", want, got)
	}
	if want, got := lucia.StorageAddedDeleted, state.SetStorage(address, lucia.Key{1}, lucia.Word{}); want != got {
		t.Errorf("unexpected status, wanted %v, got %v", want, got)
	}
}

func TestResolvingState_ChangesAreClassified(t *testing.T) {
	existing := lucia.Address{1}
	missing := lucia.Address{2}
	unknown := lucia.Address{3}

	tests := map[string]struct {
		setup  func(*resolvingState)
		wanted []AccountChange
	}{
		"nothing": {
			setup:  func(*resolvingState) {},
			wanted: nil,
		},
		"blind credit": {
			setup: func(s *resolvingState) {
				s.AddBalance(unknown, lucia.NewValue(5))
				s.SubBalance(unknown, lucia.NewValue(2))
			},
			wanted: []AccountChange{{Kind: abi.ChangeIncreaseBalance, Address: unknown, Amount: lucia.NewValue(3)}},
		},
		"blind debit": {
			setup: func(s *resolvingState) {
				s.SubBalance(unknown, lucia.NewValue(5))
			},
			wanted: []AccountChange{{Kind: abi.ChangeDecreaseBalance, Address: unknown, Amount: lucia.NewValue(5)}},
		},
		"balanced blind updates": {
			setup: func(s *resolvingState) {
				s.AddBalance(unknown, lucia.NewValue(5))
				s.SubBalance(unknown, lucia.NewValue(5))
			},
			wanted: nil,
		},
		"known balance decrease": {
			setup: func(s *resolvingState) {
				s.SetBalance(existing, lucia.NewValue(60))
			},
			wanted: []AccountChange{{Kind: abi.ChangeDecreaseBalance, Address: existing, Amount: lucia.NewValue(40)}},
		},
		"unchanged nonce": {
			setup: func(s *resolvingState) {
				s.SetNonce(existing, 3)
			},
			wanted: nil,
		},
		"nonce increment": {
			setup: func(s *resolvingState) {
				s.SetNonce(existing, 4)
			},
			wanted: []AccountChange{{
				Kind: abi.ChangeFull, Address: existing, Nonce: 4, Balance: lucia.NewValue(100),
				Code: lucia.Code{0x01}, Storage: []abi.StorageItem{},
			}},
		},
		"storage update": {
			setup: func(s *resolvingState) {
				s.SetStorage(existing, lucia.Key{2}, lucia.Word{})
				s.SetStorage(existing, lucia.Key{1}, lucia.Word{1})
			},
			wanted: []AccountChange{{
				Kind: abi.ChangeFull, Address: existing, Nonce: 3, Balance: lucia.NewValue(100),
				Code: lucia.Code{0x01},
				Storage: []abi.StorageItem{
					{Key: lucia.Key{1}, Value: lucia.Word{1}},
					{Key: lucia.Key{2}, Value: lucia.Word{}},
				},
			}},
		},
		"nonexistent gaining code": {
			setup: func(s *resolvingState) {
				s.SetCode(missing, lucia.Code{0x02})
			},
			wanted: []AccountChange{{
				Kind: abi.ChangeCreate, Address: missing, Code: lucia.Code{0x02}, Storage: []abi.StorageItem{},
			}},
		},
		"nonexistent receiving value": {
			setup: func(s *resolvingState) {
				s.AddBalance(missing, lucia.NewValue(9))
			},
			wanted: []AccountChange{{Kind: abi.ChangeIncreaseBalance, Address: missing, Amount: lucia.NewValue(9)}},
		},
		"created account": {
			setup: func(s *resolvingState) {
				s.CreateAccount(missing)
				s.SetStorage(missing, lucia.Key{1}, lucia.Word{})
				s.SetStorage(missing, lucia.Key{2}, lucia.Word{2})
			},
			wanted: []AccountChange{{
				Kind: abi.ChangeCreate, Address: missing, Nonce: 0,
				Storage: []abi.StorageItem{{Key: lucia.Key{2}, Value: lucia.Word{2}}},
			}},
		},
		"first touch order": {
			setup: func(s *resolvingState) {
				s.AddBalance(unknown, lucia.NewValue(1))
				s.SetBalance(existing, lucia.NewValue(101))
				s.AddBalance(unknown, lucia.NewValue(1))
			},
			wanted: []AccountChange{
				{Kind: abi.ChangeIncreaseBalance, Address: unknown, Amount: lucia.NewValue(2)},
				{Kind: abi.ChangeIncreaseBalance, Address: existing, Amount: lucia.NewValue(1)},
			},
		},
		"destroyed account": {
			setup: func(s *resolvingState) {
				s.SetNonce(existing, 10)
				s.SelfDestruct(existing, existing)
			},
			wanted: []AccountChange{{Kind: abi.ChangeNonexist, Address: existing}},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			facts := newFacts()
			facts.add(FullCommitment{Address: existing, Nonce: 3, Balance: lucia.NewValue(100), Code: lucia.Code{0x01}})
			facts.add(StorageCommitment{Address: existing, Key: lucia.Key{1}})
			facts.add(StorageCommitment{Address: existing, Key: lucia.Key{2}, Value: lucia.Word{2}})
			facts.add(NonexistCommitment{Address: missing})
			state := newResolvingState(facts, 0)

			var got []AccountChange
			requirement := requirementOf(func() {
				test.setup(state)
				got = state.accountChanges()
			})
			if !requirement.IsNone() {
				t.Fatalf("unexpected requirement %v", requirement)
			}
			if !reflect.DeepEqual(test.wanted, got) {
				t.Errorf("unexpected changes\nwanted %+v\n   got %+v", test.wanted, got)
			}
		})
	}
}

func TestResolvingState_ClassifyingModifiedUnknownAccountRequiresIt(t *testing.T) {
	address := lucia.Address{1}
	state := newResolvingState(newFacts(), 0)
	state.SetBalance(address, lucia.NewValue(1))

	if want, got := RequireAccount(address), requirementOf(func() { state.accountChanges() }); want != got {
		t.Errorf("unexpected requirement, wanted %v, got %v", want, got)
	}
}
