// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package host

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Lucia/go/lucia"
	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	accountPrefix   = 'a'
	codePrefix      = 'c'
	storagePrefix   = 's'
	blockHashPrefix = 'h'

	accountRecordSize = 8 + 32 + 32
)

// LevelDbState is a State persisted in a LevelDB database. Code is stored
// snappy-compressed under its hash and decoded code is kept in an LRU
// cache. Storage of deleted accounts is removed, code is retained.
type LevelDbState struct {
	db    *leveldb.DB
	codes *lru.Cache[lucia.Hash, lucia.Code]
}

// OpenLevelDbState opens or creates the database in the given directory.
func OpenLevelDbState(path string, codeCacheSize int) (*LevelDbState, error) {
	codes, err := lru.New[lucia.Hash, lucia.Code](codeCacheSize)
	if err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database %s: %w", path, err)
	}
	return &LevelDbState{db: db, codes: codes}, nil
}

func (s *LevelDbState) Close() error {
	return s.db.Close()
}

func (s *LevelDbState) get(key []byte) ([]byte, error) {
	data, err := s.db.Get(key, &opt.ReadOptions{})
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

func accountKey(address lucia.Address) []byte {
	return append([]byte{accountPrefix}, address[:]...)
}

func codeKey(hash lucia.Hash) []byte {
	return append([]byte{codePrefix}, hash[:]...)
}

func storageKey(address lucia.Address, key lucia.Key) []byte {
	res := make([]byte, 0, 1+len(address)+len(key))
	res = append(res, storagePrefix)
	res = append(res, address[:]...)
	return append(res, key[:]...)
}

func blockHashKey(number lucia.Value) []byte {
	return append([]byte{blockHashPrefix}, number[:]...)
}

func (s *LevelDbState) Account(address lucia.Address) (Account, bool, error) {
	data, err := s.get(accountKey(address))
	if errors.Is(err, ErrNotFound) {
		return Account{}, false, nil
	}
	if err != nil {
		return Account{}, false, err
	}
	if len(data) != accountRecordSize {
		return Account{}, false, fmt.Errorf("corrupted account record of %v: %d bytes", address, len(data))
	}
	account := Account{Nonce: binary.BigEndian.Uint64(data[0:8])}
	copy(account.Balance[:], data[8:40])
	var hash lucia.Hash
	copy(hash[:], data[40:72])
	account.Code, err = s.code(hash)
	if err != nil {
		return Account{}, false, err
	}
	return account, true, nil
}

func (s *LevelDbState) code(hash lucia.Hash) (lucia.Code, error) {
	if hash == lucia.EmptyCodeHash {
		return nil, nil
	}
	if code, found := s.codes.Get(hash); found {
		return cloneCode(code), nil
	}
	data, err := s.get(codeKey(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to load code %v: %w", hash, err)
	}
	code, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress code %v: %w", hash, err)
	}
	s.codes.Add(hash, code)
	return cloneCode(code), nil
}

func (s *LevelDbState) Storage(address lucia.Address, key lucia.Key) (lucia.Word, error) {
	var value lucia.Word
	data, err := s.get(storageKey(address, key))
	if errors.Is(err, ErrNotFound) {
		return value, nil
	}
	if err != nil {
		return value, err
	}
	copy(value[:], data)
	return value, nil
}

func (s *LevelDbState) BlockHash(number lucia.Value) (lucia.Hash, bool, error) {
	var hash lucia.Hash
	data, err := s.get(blockHashKey(number))
	if errors.Is(err, ErrNotFound) {
		return hash, false, nil
	}
	if err != nil {
		return hash, false, err
	}
	copy(hash[:], data)
	return hash, true, nil
}

func (s *LevelDbState) SetBlockHash(number lucia.Value, hash lucia.Hash) error {
	return s.db.Put(blockHashKey(number), hash[:], &opt.WriteOptions{})
}

func (s *LevelDbState) AddBalance(address lucia.Address, amount lucia.Value) error {
	account, _, err := s.Account(address)
	if err != nil {
		return err
	}
	account.Balance = lucia.Add(account.Balance, amount)
	return s.SetAccount(address, account)
}

func (s *LevelDbState) SubBalance(address lucia.Address, amount lucia.Value) error {
	account, _, err := s.Account(address)
	if err != nil {
		return err
	}
	if account.Balance, err = debit(address, account.Balance, amount); err != nil {
		return err
	}
	return s.SetAccount(address, account)
}

func (s *LevelDbState) SetAccount(address lucia.Address, account Account) error {
	hash := lucia.HashCode(account.Code)
	record := make([]byte, accountRecordSize)
	binary.BigEndian.PutUint64(record[0:8], account.Nonce)
	copy(record[8:40], account.Balance[:])
	copy(record[40:72], hash[:])

	batch := new(leveldb.Batch)
	batch.Put(accountKey(address), record)
	if len(account.Code) > 0 {
		batch.Put(codeKey(hash), snappy.Encode(nil, account.Code))
		s.codes.Add(hash, cloneCode(account.Code))
	}
	return s.db.Write(batch, &opt.WriteOptions{})
}

func (s *LevelDbState) SetStorage(address lucia.Address, key lucia.Key, value lucia.Word) error {
	if value == (lucia.Word{}) {
		return s.db.Delete(storageKey(address, key), &opt.WriteOptions{})
	}
	return s.db.Put(storageKey(address, key), value[:], &opt.WriteOptions{})
}

func (s *LevelDbState) Delete(address lucia.Address) error {
	batch := new(leveldb.Batch)
	batch.Delete(accountKey(address))

	prefix := append([]byte{storagePrefix}, address[:]...)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	for iter.Next() {
		batch.Delete(iter.Key())
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("failed to enumerate storage of %v: %w", address, err)
	}
	return s.db.Write(batch, &opt.WriteOptions{})
}
