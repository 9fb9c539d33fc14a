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
	"errors"
	"testing"

	"github.com/Fantom-foundation/Lucia/go/lucia"
)

func TestKind_HasFixedDiscriminants(t *testing.T) {
	names := []string{
		"Frontier", "Homestead", "EIP150", "EIP160",
		"MordenFrontier", "MordenHomestead", "MordenEIP150", "MordenEIP160",
		"CustomFrontier", "CustomHomestead", "CustomEIP150", "CustomEIP160",
	}
	for i, name := range names {
		if got := Kind(i).String(); got != name {
			t.Errorf("kind %d: wanted %v, got %v", i, name, got)
		}
		kind, err := ParseKind(name)
		if err != nil || kind != Kind(i) {
			t.Errorf("failed to parse %v: %v, %v", name, kind, err)
		}
	}
	if _, err := ParseKind("Byzantium"); !errors.Is(err, ErrUnknownPatch) {
		t.Errorf("expected unknown patch error, got %v", err)
	}
}

func TestSelect_MainnetAndMorden(t *testing.T) {
	tests := []struct {
		kind     Kind
		revision lucia.Revision
		nonce    uint64
		chainID  uint64
	}{
		{Frontier, lucia.R00_Frontier, 0, MainnetChainID},
		{Homestead, lucia.R01_Homestead, 0, MainnetChainID},
		{EIP150, lucia.R02_EIP150, 0, MainnetChainID},
		{EIP160, lucia.R03_EIP160, 0, MainnetChainID},
		{MordenFrontier, lucia.R00_Frontier, 1048576, MordenChainID},
		{MordenHomestead, lucia.R01_Homestead, 1048576, MordenChainID},
		{MordenEIP150, lucia.R02_EIP150, 1048576, MordenChainID},
		{MordenEIP160, lucia.R03_EIP160, 1048576, MordenChainID},
	}
	for _, test := range tests {
		got, err := Select(test.kind)
		if err != nil {
			t.Fatalf("failed to select %v: %v", test.kind, err)
		}
		if got.Revision != test.revision || got.AccountInitialNonce != test.nonce || got.ChainID != test.chainID {
			t.Errorf("unexpected patch for %v: %+v", test.kind, got)
		}
		if got.Name != test.kind.String() {
			t.Errorf("unexpected name, wanted %v, got %v", test.kind, got.Name)
		}
	}
}

func TestSelect_UnknownKindFails(t *testing.T) {
	if _, err := Select(Kind(12)); !errors.Is(err, ErrUnknownPatch) {
		t.Errorf("expected unknown patch error, got %v", err)
	}
}

func TestSelect_CustomRequiresConfiguration(t *testing.T) {
	resetCustomInitialNonce()
	t.Cleanup(resetCustomInitialNonce)

	if _, err := Select(CustomHomestead); !errors.Is(err, ErrCustomNonceNotConfigured) {
		t.Fatalf("expected missing configuration error, got %v", err)
	}
	if err := SetCustomInitialNonce(42); err != nil {
		t.Fatalf("failed to configure nonce: %v", err)
	}
	got, err := Select(CustomHomestead)
	if err != nil {
		t.Fatalf("failed to select custom patch: %v", err)
	}
	if got.AccountInitialNonce != 42 || got.Revision != lucia.R01_Homestead {
		t.Errorf("unexpected patch: %+v", got)
	}
}

func TestSetCustomInitialNonce_IsWriteOnce(t *testing.T) {
	resetCustomInitialNonce()
	t.Cleanup(resetCustomInitialNonce)

	if err := SetCustomInitialNonce(7); err != nil {
		t.Fatalf("failed to configure nonce: %v", err)
	}
	if err := SetCustomInitialNonce(7); err != nil {
		t.Errorf("repeating the same nonce should be accepted, got %v", err)
	}
	if err := SetCustomInitialNonce(8); !errors.Is(err, ErrCustomNonceAlreadySet) {
		t.Errorf("expected already-set error, got %v", err)
	}
	got, err := Select(CustomFrontier)
	if err != nil || got.AccountInitialNonce != 7 {
		t.Errorf("unexpected patch %+v, err %v", got, err)
	}
}

func TestNewCustom_DoesNotDependOnGlobalConfiguration(t *testing.T) {
	resetCustomInitialNonce()
	got := NewCustom(lucia.R02_EIP150, 99)
	if got.AccountInitialNonce != 99 || got.Revision != lucia.R02_EIP150 || got.Name != "CustomEIP150" {
		t.Errorf("unexpected patch: %+v", got)
	}
}

func TestSchedule_Revision(t *testing.T) {
	tests := []struct {
		number int64
		want   lucia.Revision
	}{
		{0, lucia.R00_Frontier},
		{1_149_999, lucia.R00_Frontier},
		{1_150_000, lucia.R01_Homestead},
		{2_500_000, lucia.R02_EIP150},
		{2_999_999, lucia.R02_EIP150},
		{3_000_000, lucia.R03_EIP160},
	}
	for _, test := range tests {
		if got := MainnetSchedule.Revision(test.number); got != test.want {
			t.Errorf("block %d: wanted %v, got %v", test.number, test.want, got)
		}
	}
	disabled := Schedule{HomesteadBlock: 10, EIP150Block: -1, EIP160Block: -1}
	if got := disabled.Revision(1_000_000); got != lucia.R01_Homestead {
		t.Errorf("disabled forks must not activate, got %v", got)
	}
}

func TestForBlock_SelectsVariantByStartingNonce(t *testing.T) {
	resetCustomInitialNonce()

	got, err := ForBlock(MainnetSchedule, 3_000_000, 0)
	if err != nil || got.Name != "EIP160" {
		t.Errorf("unexpected mainnet patch %+v, err %v", got, err)
	}
	got, err = ForBlock(MordenSchedule, 500_000, MordenInitialNonce)
	if err != nil || got.Name != "MordenHomestead" {
		t.Errorf("unexpected morden patch %+v, err %v", got, err)
	}
	got, err = ForBlock(MainnetSchedule, 0, 5)
	if err != nil || got.Name != "CustomFrontier" || got.AccountInitialNonce != 5 {
		t.Errorf("unexpected custom patch %+v, err %v", got, err)
	}
}
