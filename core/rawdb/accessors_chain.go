// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package rawdb

import (
	"github.com/golang/snappy"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/ethdb"
	"github.com/dominant-strategies/go-quai-l2/log"
)

// ReadHeadBlockHash retrieves the hash of the current canonical head block.
func ReadHeadBlockHash(db ethdb.KeyValueReader) common.Hash {
	data, _ := db.Get(headBlockKey)
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

// WriteHeadBlockHash stores the head block's hash.
func WriteHeadBlockHash(db ethdb.KeyValueWriter, hash common.Hash) {
	if err := db.Put(headBlockKey, hash.Bytes()); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to store last block's hash")
	}
}

// ReadCanonicalHash retrieves the hash assigned to a canonical block number.
func ReadCanonicalHash(db ethdb.KeyValueReader, number uint64) common.Hash {
	data, _ := db.Get(blockNumberKey(number))
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

// WriteCanonicalHash stores the hash assigned to a canonical block number.
func WriteCanonicalHash(db ethdb.KeyValueWriter, hash common.Hash, number uint64) {
	if err := db.Put(blockNumberKey(number), hash.Bytes()); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to store number to hash mapping")
	}
}

// ReadBlock retrieves the block corresponding to the hash.
func ReadBlock(db ethdb.KeyValueReader, hash common.Hash) *types.L2Block {
	data, _ := db.Get(blockKey(hash))
	if len(data) == 0 {
		return nil
	}
	block := new(types.L2Block)
	if err := types.Decode(data, block); err != nil {
		log.Global.WithFields(log.Fields{
			"hash": hash,
			"err":  err,
		}).Error("Invalid block encoding")
		return nil
	}
	return block
}

// WriteBlock stores a block into the database.
func WriteBlock(db ethdb.KeyValueWriter, block *types.L2Block) {
	data, err := types.Encode(block)
	if err != nil {
		log.Global.WithField("err", err).Fatal("Failed to encode block")
	}
	if err := db.Put(blockKey(block.Hash()), data); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to store block")
	}
}

// HasBlock verifies the existence of a block corresponding to the hash.
func HasBlock(db ethdb.KeyValueReader, hash common.Hash) bool {
	has, err := db.Has(blockKey(hash))
	return err == nil && has
}

// ReadBlockDeposits retrieves the deposits packaged into the block.
func ReadBlockDeposits(db ethdb.KeyValueReader, hash common.Hash) []*types.DepositInfo {
	data, _ := db.Get(blockDepositsKey(hash))
	if len(data) == 0 {
		return nil
	}
	var deposits []*types.DepositInfo
	if err := types.Decode(data, &deposits); err != nil {
		log.Global.WithFields(log.Fields{
			"hash": hash,
			"err":  err,
		}).Error("Invalid block deposits encoding")
		return nil
	}
	return deposits
}

// WriteBlockDeposits stores the deposits packaged into the block.
func WriteBlockDeposits(db ethdb.KeyValueWriter, hash common.Hash, deposits []*types.DepositInfo) {
	data, err := types.Encode(deposits)
	if err != nil {
		log.Global.WithField("err", err).Fatal("Failed to encode block deposits")
	}
	if err := db.Put(blockDepositsKey(hash), data); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to store block deposits")
	}
}

// ReadBlockPostFinalizedCustodianCapacity retrieves the finalized custodian
// capacity after the block was applied.
func ReadBlockPostFinalizedCustodianCapacity(db ethdb.KeyValueReader, hash common.Hash) *types.FinalizedCustodianCapacity {
	data, _ := db.Get(blockCustodianKey(hash))
	if len(data) == 0 {
		return nil
	}
	capacity := new(types.FinalizedCustodianCapacity)
	if err := types.Decode(data, capacity); err != nil {
		log.Global.WithFields(log.Fields{
			"hash": hash,
			"err":  err,
		}).Error("Invalid finalized custodian capacity encoding")
		return nil
	}
	return capacity
}

// WriteBlockPostFinalizedCustodianCapacity stores the finalized custodian
// capacity after the block was applied.
func WriteBlockPostFinalizedCustodianCapacity(db ethdb.KeyValueWriter, hash common.Hash, capacity *types.FinalizedCustodianCapacity) {
	data, err := types.Encode(capacity)
	if err != nil {
		log.Global.WithField("err", err).Fatal("Failed to encode finalized custodian capacity")
	}
	if err := db.Put(blockCustodianKey(hash), data); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to store finalized custodian capacity")
	}
}

// ReadBlockStateDump retrieves the encoded account state after the block.
func ReadBlockStateDump(db ethdb.KeyValueReader, hash common.Hash) []byte {
	data, _ := db.Get(blockStateKey(hash))
	if len(data) == 0 {
		return nil
	}
	dump, err := snappy.Decode(nil, data)
	if err != nil {
		log.Global.WithFields(log.Fields{
			"hash": hash,
			"err":  err,
		}).Error("Invalid block state compression")
		return nil
	}
	return dump
}

// WriteBlockStateDump stores the encoded account state after the block.
func WriteBlockStateDump(db ethdb.KeyValueWriter, hash common.Hash, dump []byte) {
	if err := db.Put(blockStateKey(hash), snappy.Encode(nil, dump)); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to store block state")
	}
}

// ReadWithdrawal retrieves a withdrawal included in a block.
func ReadWithdrawal(db ethdb.KeyValueReader, hash common.Hash) *types.WithdrawalRequestExtra {
	return readWithdrawalExtra(db, withdrawalKey(hash))
}

// WriteWithdrawal stores a withdrawal included in a block.
func WriteWithdrawal(db ethdb.KeyValueWriter, w *types.WithdrawalRequestExtra) {
	writeWithdrawalExtra(db, withdrawalKey(w.Hash()), w)
}

// ReadAssetScript retrieves the script with the given hash.
func ReadAssetScript(db ethdb.KeyValueReader, hash common.Hash) []byte {
	data, _ := db.Get(assetScriptKey(hash))
	if len(data) == 0 {
		return nil
	}
	return data
}

// WriteAssetScript stores a script under its hash.
func WriteAssetScript(db ethdb.KeyValueWriter, hash common.Hash, script []byte) {
	if err := db.Put(assetScriptKey(hash), script); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to store asset script")
	}
}

func readWithdrawalExtra(db ethdb.KeyValueReader, key []byte) *types.WithdrawalRequestExtra {
	data, _ := db.Get(key)
	if len(data) == 0 {
		return nil
	}
	w := new(types.WithdrawalRequestExtra)
	if err := types.Decode(data, w); err != nil {
		log.Global.WithField("err", err).Error("Invalid withdrawal encoding")
		return nil
	}
	return w
}

func writeWithdrawalExtra(db ethdb.KeyValueWriter, key []byte, w *types.WithdrawalRequestExtra) {
	data, err := types.Encode(w)
	if err != nil {
		log.Global.WithField("err", err).Fatal("Failed to encode withdrawal")
	}
	if err := db.Put(key, data); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to store withdrawal")
	}
}
