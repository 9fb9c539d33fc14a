// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ffi

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Fantom-foundation/Lucia/go/machine"
)

// Handle is an opaque reference to a machine owned by this package. The
// zero handle is never issued and acts as a null reference for hosts.
type Handle uintptr

var (
	handleMap sync.Map // Handle -> *machine.Machine
	handleSeq uintptr
)

func register(m *machine.Machine) Handle {
	h := Handle(atomic.AddUintptr(&handleSeq, 1))
	handleMap.Store(h, m)
	return h
}

// Free releases the machine referenced by the handle. Freeing the zero
// handle or a handle that is not live, for instance because it has been
// freed before, is a contract violation and panics.
func Free(h Handle) {
	if h == 0 {
		panic("free of null handle")
	}
	if _, loaded := handleMap.LoadAndDelete(h); !loaded {
		panic(fmt.Sprintf("free of unknown handle %d", h))
	}
}

// lookup resolves a live handle. Unknown handles are a contract violation.
func lookup(h Handle) *machine.Machine {
	if h == 0 {
		panic("use of null handle")
	}
	v, ok := handleMap.Load(h)
	if !ok {
		panic(fmt.Sprintf("use of unknown handle %d", h))
	}
	return v.(*machine.Machine)
}

