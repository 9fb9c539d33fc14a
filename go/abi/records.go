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
	"encoding/binary"
	"fmt"

	"github.com/Fantom-foundation/Lucia/go/lucia"
)

// The numeric values of the kinds below are part of the external interface.
// Hosts decode them positionally, so they must never be renumbered.

// RequirementKind discriminates the facts an execution may request.
type RequirementKind uint32

const (
	RequireNone RequirementKind = iota
	RequireAccount
	RequireAccountCode
	RequireAccountStorage
	RequireBlockhash
)

func (k RequirementKind) String() string {
	switch k {
	case RequireNone:
		return "None"
	case RequireAccount:
		return "Account"
	case RequireAccountCode:
		return "AccountCode"
	case RequireAccountStorage:
		return "AccountStorage"
	case RequireBlockhash:
		return "Blockhash"
	}
	return fmt.Sprintf("RequirementKind(%d)", uint32(k))
}

// CommitmentKind discriminates the facts a host may supply.
type CommitmentKind uint32

const (
	CommitFull CommitmentKind = iota
	CommitCode
	CommitStorage
	CommitNonexist
	CommitBlockhash
)

func (k CommitmentKind) String() string {
	switch k {
	case CommitFull:
		return "Full"
	case CommitCode:
		return "Code"
	case CommitStorage:
		return "Storage"
	case CommitNonexist:
		return "Nonexist"
	case CommitBlockhash:
		return "Blockhash"
	}
	return fmt.Sprintf("CommitmentKind(%d)", uint32(k))
}

// AccountChangeKind discriminates the effects of an execution on accounts.
type AccountChangeKind uint32

const (
	ChangeIncreaseBalance AccountChangeKind = iota
	ChangeDecreaseBalance
	ChangeFull
	ChangeCreate
	ChangeNonexist
)

func (k AccountChangeKind) String() string {
	switch k {
	case ChangeIncreaseBalance:
		return "IncreaseBalance"
	case ChangeDecreaseBalance:
		return "DecreaseBalance"
	case ChangeFull:
		return "Full"
	case ChangeCreate:
		return "Create"
	case ChangeNonexist:
		return "Nonexist"
	}
	return fmt.Sprintf("AccountChangeKind(%d)", uint32(k))
}

// HasStorageAndCode is true for the kinds carrying a full account image.
func (k AccountChangeKind) HasStorageAndCode() bool {
	return k == ChangeFull || k == ChangeCreate
}

// Record sizes in bytes. Every record starts with a 4-byte big-endian kind
// (where applicable) followed by a payload region sized to the largest
// variant. Unused payload bytes are zero.
const (
	RequirementRecordSize   = 4 + 52
	CommitmentHeaderSize    = 4 + 88
	AccountChangeRecordSize = 4 + 92
	LogInfoSize             = AddressSize + 4 + 4
	StorageItemSize         = 2 * WordSize
	TransactionHeaderSize   = 176
	HeaderRecordSize        = 124
)

const (
	ErrShortRecord         = lucia.ConstError("record too short")
	ErrInvalidDiscriminant = lucia.ConstError("invalid discriminant")
)

// RequirementRecord is the wire form of a requirement.
//
//	offset  size  field
//	0       4     kind
//	4       20    address        (Account, AccountCode, AccountStorage)
//	24      32    key            (AccountStorage)
//	4       32    block number   (Blockhash)
type RequirementRecord struct {
	Kind    RequirementKind
	Address lucia.Address
	Key     lucia.Key
	Number  [WordSize]byte
}

// Put writes the record into the first RequirementRecordSize bytes of buf.
func (r RequirementRecord) Put(buf []byte) {
	buf = buf[:RequirementRecordSize]
	clear(buf)
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.Kind))
	switch r.Kind {
	case RequireAccount, RequireAccountCode:
		putAddress(buf, 4, r.Address)
	case RequireAccountStorage:
		putAddress(buf, 4, r.Address)
		putWord(buf, 24, r.Key)
	case RequireBlockhash:
		putWord(buf, 4, r.Number)
	}
}

func (r RequirementRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RequirementRecordSize)
	r.Put(buf)
	return buf, nil
}

func (r *RequirementRecord) UnmarshalBinary(data []byte) error {
	if len(data) < RequirementRecordSize {
		return fmt.Errorf("requirement: %w", ErrShortRecord)
	}
	kind := RequirementKind(binary.BigEndian.Uint32(data[0:4]))
	*r = RequirementRecord{Kind: kind}
	switch kind {
	case RequireNone:
	case RequireAccount, RequireAccountCode:
		r.Address = readAddress(data, 4)
	case RequireAccountStorage:
		r.Address = readAddress(data, 4)
		r.Key = readWord(data, 24)
	case RequireBlockhash:
		r.Number = readWord(data, 4)
	default:
		return fmt.Errorf("requirement kind %d: %w", kind, ErrInvalidDiscriminant)
	}
	return nil
}

// CommitmentRecord is the wire form of a commitment. The fixed header is
// followed by CodeLen bytes of code for Full and Code commitments.
//
//	offset  size  field
//	0       4     kind
//	4       20    address        (Full, Code, Storage, Nonexist)
//	24      32    nonce | key    (Full | Storage)
//	56      32    balance|value  (Full | Storage)
//	88      4     code length    (Full, Code)
//	4       32    block number   (Blockhash)
//	36      32    block hash     (Blockhash)
type CommitmentRecord struct {
	Kind    CommitmentKind
	Address lucia.Address
	Nonce   uint64
	Balance lucia.Value
	Key     lucia.Key
	Value   lucia.Word
	Number  [WordSize]byte
	Hash    lucia.Hash
	Code    lucia.Code
}

func (r CommitmentRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, CommitmentHeaderSize, CommitmentHeaderSize+len(r.Code))
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.Kind))
	switch r.Kind {
	case CommitFull:
		putAddress(buf, 4, r.Address)
		putWord(buf, 24, EncodeUint64(r.Nonce))
		putWord(buf, 56, r.Balance)
		binary.BigEndian.PutUint32(buf[88:92], uint32(len(r.Code)))
		buf = append(buf, r.Code...)
	case CommitCode:
		putAddress(buf, 4, r.Address)
		binary.BigEndian.PutUint32(buf[88:92], uint32(len(r.Code)))
		buf = append(buf, r.Code...)
	case CommitStorage:
		putAddress(buf, 4, r.Address)
		putWord(buf, 24, r.Key)
		putWord(buf, 56, r.Value)
	case CommitNonexist:
		putAddress(buf, 4, r.Address)
	case CommitBlockhash:
		putWord(buf, 4, r.Number)
		putWord(buf, 36, r.Hash)
	default:
		return nil, fmt.Errorf("commitment kind %d: %w", r.Kind, ErrInvalidDiscriminant)
	}
	return buf, nil
}

func (r *CommitmentRecord) UnmarshalBinary(data []byte) error {
	if len(data) < CommitmentHeaderSize {
		return fmt.Errorf("commitment: %w", ErrShortRecord)
	}
	kind := CommitmentKind(binary.BigEndian.Uint32(data[0:4]))
	*r = CommitmentRecord{Kind: kind}
	readCode := func() error {
		length := int(binary.BigEndian.Uint32(data[88:92]))
		if len(data)-CommitmentHeaderSize < length {
			return fmt.Errorf("commitment code of %d bytes: %w", length, ErrShortRecord)
		}
		r.Code = append(lucia.Code{}, data[CommitmentHeaderSize:CommitmentHeaderSize+length]...)
		return nil
	}
	switch kind {
	case CommitFull:
		r.Address = readAddress(data, 4)
		r.Nonce = DecodeUint64(readWord(data, 24))
		r.Balance = readWord(data, 56)
		return readCode()
	case CommitCode:
		r.Address = readAddress(data, 4)
		return readCode()
	case CommitStorage:
		r.Address = readAddress(data, 4)
		r.Key = readWord(data, 24)
		r.Value = readWord(data, 56)
	case CommitNonexist:
		r.Address = readAddress(data, 4)
	case CommitBlockhash:
		r.Number = readWord(data, 4)
		r.Hash = readWord(data, 36)
	default:
		return fmt.Errorf("commitment kind %d: %w", kind, ErrInvalidDiscriminant)
	}
	return nil
}

// LogInfo summarizes a log; topics and data are retrieved separately.
//
//	offset  size  field
//	0       20    address
//	20      4     number of topics
//	24      4     data length
type LogInfo struct {
	Address  lucia.Address
	TopicLen uint32
	DataLen  uint32
}

func (l LogInfo) Put(buf []byte) {
	putAddress(buf, 0, l.Address)
	binary.BigEndian.PutUint32(buf[20:24], l.TopicLen)
	binary.BigEndian.PutUint32(buf[24:28], l.DataLen)
}

func (l *LogInfo) UnmarshalBinary(data []byte) error {
	if len(data) < LogInfoSize {
		return fmt.Errorf("log info: %w", ErrShortRecord)
	}
	l.Address = readAddress(data, 0)
	l.TopicLen = binary.BigEndian.Uint32(data[20:24])
	l.DataLen = binary.BigEndian.Uint32(data[24:28])
	return nil
}

// AccountChangeInfo summarizes an account change; storage and code of
// Full and Create changes are retrieved separately.
//
//	offset  size  field
//	0       4     kind
//	4       20    address
//	24      32    amount         (IncreaseBalance, DecreaseBalance)
//	24      32    nonce          (Full, Create)
//	56      32    balance        (Full, Create)
//	88      4     storage length (Full, Create)
//	92      4     code length    (Full, Create)
type AccountChangeInfo struct {
	Kind       AccountChangeKind
	Address    lucia.Address
	Amount     lucia.Value
	Nonce      uint64
	Balance    lucia.Value
	StorageLen uint32
	CodeLen    uint32
}

func (c AccountChangeInfo) Put(buf []byte) {
	buf = buf[:AccountChangeRecordSize]
	clear(buf)
	binary.BigEndian.PutUint32(buf[0:4], uint32(c.Kind))
	putAddress(buf, 4, c.Address)
	switch c.Kind {
	case ChangeIncreaseBalance, ChangeDecreaseBalance:
		putWord(buf, 24, c.Amount)
	case ChangeFull, ChangeCreate:
		putWord(buf, 24, EncodeUint64(c.Nonce))
		putWord(buf, 56, c.Balance)
		binary.BigEndian.PutUint32(buf[88:92], c.StorageLen)
		binary.BigEndian.PutUint32(buf[92:96], c.CodeLen)
	}
}

func (c *AccountChangeInfo) UnmarshalBinary(data []byte) error {
	if len(data) < AccountChangeRecordSize {
		return fmt.Errorf("account change: %w", ErrShortRecord)
	}
	kind := AccountChangeKind(binary.BigEndian.Uint32(data[0:4]))
	*c = AccountChangeInfo{Kind: kind, Address: readAddress(data, 4)}
	switch kind {
	case ChangeIncreaseBalance, ChangeDecreaseBalance:
		c.Amount = readWord(data, 24)
	case ChangeFull, ChangeCreate:
		c.Nonce = DecodeUint64(readWord(data, 24))
		c.Balance = readWord(data, 56)
		c.StorageLen = binary.BigEndian.Uint32(data[88:92])
		c.CodeLen = binary.BigEndian.Uint32(data[92:96])
	case ChangeNonexist:
	default:
		return fmt.Errorf("account change kind %d: %w", kind, ErrInvalidDiscriminant)
	}
	return nil
}

// StorageItem is a single storage slot: a 32-byte key followed by a
// 32-byte value.
type StorageItem struct {
	Key   lucia.Key
	Value lucia.Word
}

func (s StorageItem) Put(buf []byte) {
	putWord(buf, 0, s.Key)
	putWord(buf, WordSize, s.Value)
}

func (s *StorageItem) UnmarshalBinary(data []byte) error {
	if len(data) < StorageItemSize {
		return fmt.Errorf("storage item: %w", ErrShortRecord)
	}
	s.Key = readWord(data, 0)
	s.Value = readWord(data, WordSize)
	return nil
}
