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
	"github.com/Fantom-foundation/Lucia/go/lucia"
)

// Status returns the outcome of the execution, StatusRunning until the
// machine has terminated.
func (m *Machine) Status() Status {
	return m.status
}

// Err returns the reason of an ExitedErr status, nil otherwise.
func (m *Machine) Err() error {
	return m.err
}

// Failed is true if the execution terminated with an ExitedErr status.
func (m *Machine) Failed() bool {
	return m.status == ExitedErr
}

// UsedGas returns the gas charged for the transaction, refunds deducted.
func (m *Machine) UsedGas() lucia.Gas {
	return m.usedGas
}

// Logs returns the logs produced by a successful execution. The result must
// not be modified.
func (m *Machine) Logs() []lucia.Log {
	return m.logs
}

// AccountChanges returns the account changes of a terminated execution, at
// most one per address. The result must not be modified.
func (m *Machine) AccountChanges() []AccountChange {
	return m.changes
}

// CopyLogs fills the given buffer with the summaries of the first logs and
// returns the number of records written.
func (m *Machine) CopyLogs(buffer []abi.LogInfo) int {
	n := min(len(buffer), len(m.logs))
	for i := 0; i < n; i++ {
		log := m.logs[i]
		buffer[i] = abi.LogInfo{
			Address:  log.Address,
			TopicLen: uint32(len(log.Topics)),
			DataLen:  uint32(len(log.Data)),
		}
	}
	return n
}

// LogTopic returns a topic of a log; false if either index is out of range.
func (m *Machine) LogTopic(log, topic int) (lucia.Hash, bool) {
	if log < 0 || log >= len(m.logs) {
		return lucia.Hash{}, false
	}
	topics := m.logs[log].Topics
	if topic < 0 || topic >= len(topics) {
		return lucia.Hash{}, false
	}
	return topics[topic], true
}

// CopyLogData copies as much of the data of a log as fits into the buffer
// and returns the number of bytes written.
func (m *Machine) CopyLogData(log int, buffer []byte) int {
	if log < 0 || log >= len(m.logs) {
		return 0
	}
	return copy(buffer, m.logs[log].Data)
}

// CopyAccountChanges fills the given buffer with the summaries of the first
// account changes and returns the number of records written.
func (m *Machine) CopyAccountChanges(buffer []abi.AccountChangeInfo) int {
	n := min(len(buffer), len(m.changes))
	for i := 0; i < n; i++ {
		buffer[i] = m.changes[i].Info()
	}
	return n
}

// CopyAccountStorage copies the storage items of the first Full or Create
// change of the given address into the buffer. If there is no such change
// false is returned and the buffer is left untouched.
func (m *Machine) CopyAccountStorage(address lucia.Address, buffer []abi.StorageItem) (int, bool) {
	change, found := m.fullChange(address)
	if !found {
		return 0, false
	}
	return copy(buffer, change.Storage), true
}

// CopyAccountCode copies the code of the first Full or Create change of the
// given address into the buffer. If there is no such change false is
// returned and the buffer is left untouched.
func (m *Machine) CopyAccountCode(address lucia.Address, buffer []byte) (int, bool) {
	change, found := m.fullChange(address)
	if !found {
		return 0, false
	}
	return copy(buffer, change.Code), true
}

func (m *Machine) fullChange(address lucia.Address) (AccountChange, bool) {
	for _, change := range m.changes {
		if change.Address == address && change.Kind.HasStorageAndCode() {
			return change, true
		}
	}
	return AccountChange{}, false
}
