//go:build cgo && lucia_capi

// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Command capi builds the C interface of the machine as a shared library:
//
//	go build -tags lucia_capi -buildmode=c-shared -o liblucia.so ./go/ffi/capi
//
// Addresses are passed as 20-byte arrays and words as 32-byte big-endian
// arrays. Records use the layouts of the abi package. Handles are opaque
// non-zero integers; zero signals the absence of a handle.
package main

/*
#include <stdbool.h>
#include <stddef.h>
#include <stdint.h>

typedef struct {
    uint8_t bytes[20];
} lucia_address;

typedef struct {
    uint8_t bytes[32];
} lucia_word;
*/
import "C"

import (
	"unsafe"

	"github.com/Fantom-foundation/Lucia/go/abi"
	"github.com/Fantom-foundation/Lucia/go/ffi"
	"github.com/Fantom-foundation/Lucia/go/patch"
)

func main() {}

func goAddress(a C.lucia_address) [abi.AddressSize]byte {
	return *(*[abi.AddressSize]byte)(unsafe.Pointer(&a))
}

func goWord(w C.lucia_word) [abi.WordSize]byte {
	return *(*[abi.WordSize]byte)(unsafe.Pointer(&w))
}

func cWord(w [abi.WordSize]byte) C.lucia_word {
	return *(*C.lucia_word)(unsafe.Pointer(&w))
}

// goBytes views a C buffer as a byte slice without copying.
func goBytes(data *C.uint8_t, length C.size_t) []byte {
	if data == nil || length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(data)), int(length))
}

//export lucia_new
func lucia_new(tx *C.uint8_t, txLen C.size_t, header *C.uint8_t, headerLen C.size_t, kind C.uint32_t) C.uintptr_t {
	var txRecord abi.TransactionRecord
	if err := txRecord.UnmarshalBinary(goBytes(tx, txLen)); err != nil {
		panic(err)
	}
	var headerRecord abi.HeaderRecord
	if err := headerRecord.UnmarshalBinary(goBytes(header, headerLen)); err != nil {
		panic(err)
	}
	return C.uintptr_t(ffi.New(txRecord, headerRecord, patch.Kind(kind)))
}

//export lucia_free
func lucia_free(h C.uintptr_t) {
	ffi.Free(ffi.Handle(h))
}

// lucia_advance writes a requirement record of abi.RequirementRecordSize
// bytes to out.
//
//export lucia_advance
func lucia_advance(h C.uintptr_t, out *C.uint8_t) {
	ffi.Advance(ffi.Handle(h)).Put(goBytes(out, abi.RequirementRecordSize))
}

//export lucia_commit
func lucia_commit(h C.uintptr_t, record *C.uint8_t, length C.size_t) C.bool {
	return C.bool(ffi.Commit(ffi.Handle(h), goBytes(record, length)))
}

//export lucia_commit_account
func lucia_commit_account(h C.uintptr_t, address C.lucia_address, nonce, balance C.lucia_word, code *C.uint8_t, codeLen C.size_t) C.bool {
	return C.bool(ffi.CommitAccount(ffi.Handle(h), goAddress(address), goWord(nonce), goWord(balance), goBytes(code, codeLen)))
}

//export lucia_commit_account_code
func lucia_commit_account_code(h C.uintptr_t, address C.lucia_address, code *C.uint8_t, codeLen C.size_t) C.bool {
	return C.bool(ffi.CommitAccountCode(ffi.Handle(h), goAddress(address), goBytes(code, codeLen)))
}

//export lucia_commit_account_storage
func lucia_commit_account_storage(h C.uintptr_t, address C.lucia_address, key, value C.lucia_word) C.bool {
	return C.bool(ffi.CommitAccountStorage(ffi.Handle(h), goAddress(address), goWord(key), goWord(value)))
}

//export lucia_commit_nonexist
func lucia_commit_nonexist(h C.uintptr_t, address C.lucia_address) C.bool {
	return C.bool(ffi.CommitNonexistent(ffi.Handle(h), goAddress(address)))
}

//export lucia_commit_blockhash
func lucia_commit_blockhash(h C.uintptr_t, number, hash C.lucia_word) C.bool {
	return C.bool(ffi.CommitBlockhash(ffi.Handle(h), goWord(number), goWord(hash)))
}

//export lucia_logs_count
func lucia_logs_count(h C.uintptr_t) C.size_t {
	return C.size_t(ffi.LogsCount(ffi.Handle(h)))
}

// lucia_logs_copy_info writes up to capacity log records of
// abi.LogInfoSize bytes each and returns the number written.
//
//export lucia_logs_copy_info
func lucia_logs_copy_info(h C.uintptr_t, out *C.uint8_t, capacity C.size_t) C.size_t {
	infos := make([]abi.LogInfo, int(capacity))
	n := ffi.LogsCopyInfo(ffi.Handle(h), infos)
	buf := goBytes(out, capacity*abi.LogInfoSize)
	for i := 0; i < n; i++ {
		infos[i].Put(buf[i*abi.LogInfoSize:])
	}
	return C.size_t(n)
}

//export lucia_logs_topic
func lucia_logs_topic(h C.uintptr_t, log, topic C.size_t) C.lucia_word {
	return cWord(ffi.LogsTopic(ffi.Handle(h), int(log), int(topic)))
}

//export lucia_logs_copy_data
func lucia_logs_copy_data(h C.uintptr_t, log C.size_t, out *C.uint8_t, capacity C.size_t) C.size_t {
	return C.size_t(ffi.LogsCopyData(ffi.Handle(h), int(log), goBytes(out, capacity)))
}

//export lucia_account_changes_count
func lucia_account_changes_count(h C.uintptr_t) C.size_t {
	return C.size_t(ffi.AccountChangesCount(ffi.Handle(h)))
}

// lucia_account_changes_copy_info writes up to capacity change records of
// abi.AccountChangeRecordSize bytes each and returns the number written.
//
//export lucia_account_changes_copy_info
func lucia_account_changes_copy_info(h C.uintptr_t, out *C.uint8_t, capacity C.size_t) C.size_t {
	infos := make([]abi.AccountChangeInfo, int(capacity))
	n := ffi.AccountChangesCopyInfo(ffi.Handle(h), infos)
	buf := goBytes(out, capacity*abi.AccountChangeRecordSize)
	for i := 0; i < n; i++ {
		infos[i].Put(buf[i*abi.AccountChangeRecordSize:])
	}
	return C.size_t(n)
}

//export lucia_account_changes_copy_storage
func lucia_account_changes_copy_storage(h C.uintptr_t, address C.lucia_address, out *C.uint8_t, capacity C.size_t) C.bool {
	buf := goBytes(out, capacity*abi.StorageItemSize)
	// Items past the copied ones are written back unchanged.
	items := make([]abi.StorageItem, int(capacity))
	for i := range items {
		record := buf[i*abi.StorageItemSize : (i+1)*abi.StorageItemSize]
		copy(items[i].Key[:], record[:abi.WordSize])
		copy(items[i].Value[:], record[abi.WordSize:])
	}
	if !ffi.AccountChangesCopyStorage(ffi.Handle(h), goAddress(address), items) {
		return false
	}
	for i := range items {
		items[i].Put(buf[i*abi.StorageItemSize:])
	}
	return true
}

//export lucia_account_changes_copy_code
func lucia_account_changes_copy_code(h C.uintptr_t, address C.lucia_address, out *C.uint8_t, capacity C.size_t) C.bool {
	return C.bool(ffi.AccountChangesCopyCode(ffi.Handle(h), goAddress(address), goBytes(out, capacity)))
}

//export lucia_used_gas
func lucia_used_gas(h C.uintptr_t) C.lucia_word {
	return cWord(ffi.UsedGas(ffi.Handle(h)))
}

//export lucia_execution_failed
func lucia_execution_failed(h C.uintptr_t) C.bool {
	return C.bool(ffi.ExecutionFailed(ffi.Handle(h)))
}

//export lucia_set_custom_initial_nonce
func lucia_set_custom_initial_nonce(nonce C.lucia_word) C.bool {
	return C.bool(ffi.SetCustomInitialNonce(goWord(nonce)))
}
