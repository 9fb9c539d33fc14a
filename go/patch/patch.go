// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package patch maps rule-set identifiers to execution configurations.
package patch

import (
	"fmt"
	"sync"

	"github.com/Fantom-foundation/Lucia/go/lucia"
)

// Kind identifies a patch at the external interface. The numeric values are
// fixed: hosts pass them positionally.
type Kind uint32

const (
	Frontier Kind = iota
	Homestead
	EIP150
	EIP160
	MordenFrontier
	MordenHomestead
	MordenEIP150
	MordenEIP160
	CustomFrontier
	CustomHomestead
	CustomEIP150
	CustomEIP160
	numKinds int = iota
)

// MordenInitialNonce is the nonce of fresh accounts on the Morden test network.
const MordenInitialNonce = 1 << 20

const (
	MainnetChainID = 61
	MordenChainID  = 62
)

const (
	ErrUnknownPatch             = lucia.ConstError("unknown patch")
	ErrCustomNonceNotConfigured = lucia.ConstError("custom initial nonce has not been configured")
	ErrCustomNonceAlreadySet    = lucia.ConstError("custom initial nonce has already been configured with a different value")
)

// Patch is the execution configuration selected for a handle.
type Patch struct {
	Name                string
	Revision            lucia.Revision
	AccountInitialNonce uint64
	ChainID             uint64
}

func (k Kind) String() string {
	if int(k) >= numKinds {
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
	prefix := ""
	switch k.network() {
	case morden:
		prefix = "Morden"
	case custom:
		prefix = "Custom"
	}
	return prefix + k.Revision().String()
}

// Revision is the rule-set of the patch kind.
func (k Kind) Revision() lucia.Revision {
	return lucia.Revision(int(k) % 4)
}

type network int

const (
	mainnet network = iota
	morden
	custom
)

func (k Kind) network() network {
	return network(int(k) / 4)
}

// ParseKind resolves the name of a patch kind as produced by String.
func ParseKind(name string) (Kind, error) {
	for i := 0; i < numKinds; i++ {
		if Kind(i).String() == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPatch, name)
}

// Select produces the configuration of the given patch kind. Custom kinds
// read the process-wide initial nonce, which must have been configured
// through SetCustomInitialNonce before; otherwise ErrCustomNonceNotConfigured
// is returned.
func Select(kind Kind) (Patch, error) {
	if int(kind) >= numKinds {
		return Patch{}, fmt.Errorf("%w: %d", ErrUnknownPatch, uint32(kind))
	}
	revision := kind.Revision()
	switch kind.network() {
	case morden:
		return Patch{
			Name:                kind.String(),
			Revision:            revision,
			AccountInitialNonce: MordenInitialNonce,
			ChainID:             MordenChainID,
		}, nil
	case custom:
		nonce, err := customInitialNonce()
		if err != nil {
			return Patch{}, err
		}
		return NewCustom(revision, nonce), nil
	}
	return Patch{
		Name:     kind.String(),
		Revision: revision,
		ChainID:  MainnetChainID,
	}, nil
}

// NewCustom creates a custom patch with an explicit initial nonce. Unlike
// selecting a custom kind, it does not depend on process-wide state.
func NewCustom(revision lucia.Revision, initialNonce uint64) Patch {
	return Patch{
		Name:                "Custom" + revision.String(),
		Revision:            revision,
		AccountInitialNonce: initialNonce,
		ChainID:             MainnetChainID,
	}
}

var (
	customNonceLock       sync.Mutex
	customNonce           uint64
	customNonceConfigured bool
)

// SetCustomInitialNonce configures the initial nonce used by custom patch
// kinds. The value can be set once; repeating the same value is accepted,
// a different value is rejected.
func SetCustomInitialNonce(nonce uint64) error {
	customNonceLock.Lock()
	defer customNonceLock.Unlock()
	if customNonceConfigured && customNonce != nonce {
		return fmt.Errorf("%w: %d, requested %d", ErrCustomNonceAlreadySet, customNonce, nonce)
	}
	customNonce = nonce
	customNonceConfigured = true
	return nil
}

func customInitialNonce() (uint64, error) {
	customNonceLock.Lock()
	defer customNonceLock.Unlock()
	if !customNonceConfigured {
		return 0, ErrCustomNonceNotConfigured
	}
	return customNonce, nil
}

// resetCustomInitialNonce reverts the configuration; tests only.
func resetCustomInitialNonce() {
	customNonceLock.Lock()
	defer customNonceLock.Unlock()
	customNonce = 0
	customNonceConfigured = false
}
