// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package abi

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Fantom-foundation/Lucia/go/lucia"
)

func TestRecords_KindsHaveFixedDiscriminants(t *testing.T) {
	requirements := []RequirementKind{RequireNone, RequireAccount, RequireAccountCode, RequireAccountStorage, RequireBlockhash}
	for i, kind := range requirements {
		if int(kind) != i {
			t.Errorf("%v has discriminant %d, wanted %d", kind, kind, i)
		}
	}
	commitments := []CommitmentKind{CommitFull, CommitCode, CommitStorage, CommitNonexist, CommitBlockhash}
	for i, kind := range commitments {
		if int(kind) != i {
			t.Errorf("%v has discriminant %d, wanted %d", kind, kind, i)
		}
	}
	changes := []AccountChangeKind{ChangeIncreaseBalance, ChangeDecreaseBalance, ChangeFull, ChangeCreate, ChangeNonexist}
	for i, kind := range changes {
		if int(kind) != i {
			t.Errorf("%v has discriminant %d, wanted %d", kind, kind, i)
		}
	}
}

func TestRequirementRecord_PayloadLayout(t *testing.T) {
	address := lucia.Address{1, 2, 3}
	key := lucia.Key{31: 7}
	number := EncodeUint64(12)

	tests := map[string]struct {
		record RequirementRecord
		check  func([]byte) bool
	}{
		"none": {
			RequirementRecord{Kind: RequireNone, Address: address},
			func(b []byte) bool { return bytes.Equal(b[4:], make([]byte, 52)) },
		},
		"account": {
			RequirementRecord{Kind: RequireAccount, Address: address},
			func(b []byte) bool { return bytes.Equal(b[4:24], address[:]) },
		},
		"storage": {
			RequirementRecord{Kind: RequireAccountStorage, Address: address, Key: key},
			func(b []byte) bool { return bytes.Equal(b[4:24], address[:]) && bytes.Equal(b[24:56], key[:]) },
		},
		"blockhash": {
			RequirementRecord{Kind: RequireBlockhash, Number: number},
			func(b []byte) bool { return bytes.Equal(b[4:36], number[:]) },
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			data, err := test.record.MarshalBinary()
			if err != nil {
				t.Fatalf("failed to encode: %v", err)
			}
			if len(data) != RequirementRecordSize {
				t.Fatalf("unexpected size %d", len(data))
			}
			if got := RequirementKind(data[3]); got != test.record.Kind {
				t.Errorf("unexpected kind, wanted %v, got %v", test.record.Kind, got)
			}
			if !test.check(data) {
				t.Errorf("unexpected payload %x", data)
			}
			var restored RequirementRecord
			if err := restored.UnmarshalBinary(data); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if test.record.Kind != RequireNone && restored != test.record {
				t.Errorf("unexpected record, wanted %v, got %v", test.record, restored)
			}
		})
	}
}

func TestRequirementRecord_InvalidInputIsRejected(t *testing.T) {
	var record RequirementRecord
	if err := record.UnmarshalBinary(make([]byte, 10)); !errors.Is(err, ErrShortRecord) {
		t.Errorf("expected short record error, got %v", err)
	}
	data := make([]byte, RequirementRecordSize)
	data[3] = 9
	if err := record.UnmarshalBinary(data); !errors.Is(err, ErrInvalidDiscriminant) {
		t.Errorf("expected invalid discriminant error, got %v", err)
	}
}

func TestCommitmentRecord_EncodingCanBeDecoded(t *testing.T) {
	records := []CommitmentRecord{
		{Kind: CommitFull, Address: lucia.Address{1}, Nonce: 3, Balance: lucia.NewValue(100), Code: lucia.Code{0x60, 0x00}},
		{Kind: CommitCode, Address: lucia.Address{2}, Code: lucia.Code{}},
		{Kind: CommitStorage, Address: lucia.Address{3}, Key: lucia.Key{1}, Value: lucia.Word{2}},
		{Kind: CommitNonexist, Address: lucia.Address{4}},
		{Kind: CommitBlockhash, Number: EncodeUint64(99), Hash: lucia.Hash{5}},
	}
	for _, record := range records {
		data, err := record.MarshalBinary()
		if err != nil {
			t.Fatalf("failed to encode %v: %v", record.Kind, err)
		}
		var restored CommitmentRecord
		if err := restored.UnmarshalBinary(data); err != nil {
			t.Fatalf("failed to decode %v: %v", record.Kind, err)
		}
		if restored.Kind != record.Kind || restored.Address != record.Address ||
			restored.Nonce != record.Nonce || restored.Balance != record.Balance ||
			restored.Key != record.Key || restored.Value != record.Value ||
			restored.Number != record.Number || restored.Hash != record.Hash ||
			!bytes.Equal(restored.Code, record.Code) {
			t.Errorf("unexpected record, wanted %v, got %v", record, restored)
		}
	}
}

func TestCommitmentRecord_TruncatedCodeIsRejected(t *testing.T) {
	data, err := CommitmentRecord{Kind: CommitCode, Code: lucia.Code{1, 2, 3}}.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	var restored CommitmentRecord
	if err := restored.UnmarshalBinary(data[:len(data)-1]); !errors.Is(err, ErrShortRecord) {
		t.Errorf("expected short record error, got %v", err)
	}
	if _, err := (CommitmentRecord{Kind: 42}).MarshalBinary(); !errors.Is(err, ErrInvalidDiscriminant) {
		t.Errorf("expected invalid discriminant error, got %v", err)
	}
}

func TestAccountChangeInfo_LayoutPerKind(t *testing.T) {
	full := AccountChangeInfo{
		Kind:       ChangeFull,
		Address:    lucia.Address{9},
		Nonce:      5,
		Balance:    lucia.NewValue(77),
		StorageLen: 2,
		CodeLen:    3,
	}
	buf := make([]byte, AccountChangeRecordSize)
	full.Put(buf)
	if buf[3] != byte(ChangeFull) || buf[4] != 9 || buf[55] != 5 || buf[87] != 77 || buf[91] != 2 || buf[95] != 3 {
		t.Errorf("unexpected layout: %x", buf)
	}

	var restored AccountChangeInfo
	if err := restored.UnmarshalBinary(buf); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if restored != full {
		t.Errorf("unexpected record, wanted %v, got %v", full, restored)
	}

	increase := AccountChangeInfo{Kind: ChangeIncreaseBalance, Address: lucia.Address{1}, Amount: lucia.NewValue(8)}
	increase.Put(buf)
	if buf[55] != 8 || !bytes.Equal(buf[56:], make([]byte, 40)) {
		t.Errorf("unexpected layout: %x", buf)
	}
}

func TestLogInfoAndStorageItem_Layout(t *testing.T) {
	buf := make([]byte, LogInfoSize)
	LogInfo{Address: lucia.Address{1}, TopicLen: 2, DataLen: 300}.Put(buf)
	var info LogInfo
	if err := info.UnmarshalBinary(buf); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if want := (LogInfo{Address: lucia.Address{1}, TopicLen: 2, DataLen: 300}); info != want {
		t.Errorf("unexpected log info, wanted %v, got %v", want, info)
	}

	buf = make([]byte, StorageItemSize)
	StorageItem{Key: lucia.Key{31: 1}, Value: lucia.Word{31: 2}}.Put(buf)
	if buf[31] != 1 || buf[63] != 2 {
		t.Errorf("unexpected layout: %x", buf)
	}
}
