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

// Package rawdb contains a collection of low level database accessors.
package rawdb

import (
	"encoding/binary"

	"github.com/dominant-strategies/go-quai-l2/common"
)

// The fields below define the low level database schema prefixing.
var (
	// databaseVersionKey tracks the current database version.
	databaseVersionKey = []byte("DatabaseVersion")

	// headBlockKey tracks the latest known block's hash.
	headBlockKey = []byte("LastBlock")

	// Data item prefixes (use single byte to avoid mixing data types, avoid `i`, used for indexes).
	blockPrefix          = []byte("b") // blockPrefix + hash -> block
	blockNumberPrefix    = []byte("n") // blockNumberPrefix + num (uint64 big endian) -> hash
	blockDepositsPrefix  = []byte("d") // blockDepositsPrefix + hash -> deposit infos
	blockCustodianPrefix = []byte("c") // blockCustodianPrefix + hash -> post finalized custodian capacity
	blockStatePrefix     = []byte("s") // blockStatePrefix + hash -> snappy(state dump)
	withdrawalPrefix     = []byte("w") // withdrawalPrefix + hash -> included withdrawal request extra
	assetScriptPrefix    = []byte("a") // assetScriptPrefix + script hash -> script

	memPoolTxPrefix         = []byte("Mt") // memPoolTxPrefix + hash -> transaction
	memPoolWithdrawalPrefix = []byte("Mw") // memPoolWithdrawalPrefix + hash -> withdrawal request extra
	memPoolReceiptPrefix    = []byte("Mr") // memPoolReceiptPrefix + hash -> receipt

	restoreMemBlockPrefix = []byte("R") // restoreMemBlockPrefix + timestamp (uint64 big endian) -> snappy(saved mem block)
)

// encodeBlockNumber encodes a block number as big endian uint64
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

func blockKey(hash common.Hash) []byte {
	return append(append([]byte{}, blockPrefix...), hash.Bytes()...)
}

func blockNumberKey(number uint64) []byte {
	return append(append([]byte{}, blockNumberPrefix...), encodeBlockNumber(number)...)
}

func blockDepositsKey(hash common.Hash) []byte {
	return append(append([]byte{}, blockDepositsPrefix...), hash.Bytes()...)
}

func blockCustodianKey(hash common.Hash) []byte {
	return append(append([]byte{}, blockCustodianPrefix...), hash.Bytes()...)
}

func blockStateKey(hash common.Hash) []byte {
	return append(append([]byte{}, blockStatePrefix...), hash.Bytes()...)
}

func withdrawalKey(hash common.Hash) []byte {
	return append(append([]byte{}, withdrawalPrefix...), hash.Bytes()...)
}

func assetScriptKey(hash common.Hash) []byte {
	return append(append([]byte{}, assetScriptPrefix...), hash.Bytes()...)
}

func memPoolTxKey(hash common.Hash) []byte {
	return append(append([]byte{}, memPoolTxPrefix...), hash.Bytes()...)
}

func memPoolWithdrawalKey(hash common.Hash) []byte {
	return append(append([]byte{}, memPoolWithdrawalPrefix...), hash.Bytes()...)
}

func memPoolReceiptKey(hash common.Hash) []byte {
	return append(append([]byte{}, memPoolReceiptPrefix...), hash.Bytes()...)
}

func restoreMemBlockKey(timestamp uint64) []byte {
	return append(append([]byte{}, restoreMemBlockPrefix...), encodeBlockNumber(timestamp)...)
}
