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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/ethdb"
	"github.com/dominant-strategies/go-quai-l2/ethdb/leveldb"
	"github.com/dominant-strategies/go-quai-l2/ethdb/pebble"
	"github.com/dominant-strategies/go-quai-l2/log"
)

const (
	dbPebble  = "pebble"
	dbLeveldb = "leveldb"
)

// OpenOptions contains the options to apply when opening a database.
type OpenOptions struct {
	Type      string // "leveldb" | "pebble"
	Directory string // the datadir
	Cache     int    // the capacity(in megabytes) of the data caching
	Handles   int    // number of files to be open simultaneously
	ReadOnly  bool
}

// Open opens a disk backed key-value store of the requested type.
func Open(o OpenOptions, logger *log.Logger) (ethdb.Database, error) {
	switch o.Type {
	case dbPebble:
		logger.WithField("database", o.Directory).Info("Using pebble as the backing database")
		return pebble.New(o.Directory, o.Cache, o.Handles, o.ReadOnly, logger)
	case dbLeveldb, "":
		logger.WithField("database", o.Directory).Info("Using leveldb as the backing database")
		return leveldb.New(o.Directory, o.Cache, o.Handles, o.ReadOnly, logger)
	default:
		return nil, fmt.Errorf("unknown db.engine %v", o.Type)
	}
}

// NewMemoryDatabase creates an ephemeral in-memory key-value database.
func NewMemoryDatabase(logger *log.Logger) ethdb.Database {
	return leveldb.NewMemory(logger)
}

// ReadDatabaseVersion retrieves the version number of the database.
func ReadDatabaseVersion(db ethdb.KeyValueReader) *uint64 {
	enc, _ := db.Get(databaseVersionKey)
	if len(enc) != 8 {
		return nil
	}
	version := binary.BigEndian.Uint64(enc)
	return &version
}

// WriteDatabaseVersion stores the version number of the database
func WriteDatabaseVersion(db ethdb.KeyValueWriter, version uint64) {
	if err := db.Put(databaseVersionKey, encodeBlockNumber(version)); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to store the database version")
	}
}

type counter uint64

func (c counter) String() string {
	return fmt.Sprintf("%d", c)
}

// stat stores sizes and count for a parameter
type stat struct {
	size  common.StorageSize
	count counter
}

// Add size to the stat and increase the counter by 1
func (s *stat) Add(size common.StorageSize) {
	s.size += size
	s.count++
}

func (s *stat) Size() string {
	return s.size.String()
}

func (s *stat) Count() string {
	return s.count.String()
}

// InspectDatabase traverses the entire database and writes the size of all
// different categories of data to out as a table.
func InspectDatabase(db ethdb.Reader, keyPrefix, keyStart []byte, out io.Writer, logger *log.Logger) error {
	it := db.NewIterator(keyPrefix, keyStart)
	defer it.Release()

	var (
		count  int64
		start  = time.Now()
		logged = time.Now()

		blocks         stat
		numHashes      stat
		deposits       stat
		custodians     stat
		states         stat
		withdrawals    stat
		scripts        stat
		poolTxs        stat
		poolWithdraws  stat
		poolReceipts   stat
		savedMemBlocks stat

		metadata    stat
		unaccounted stat

		total common.StorageSize
	)
	hashKey := func(prefix []byte) bool {
		return len(it.Key()) == len(prefix)+common.HashLength && bytes.HasPrefix(it.Key(), prefix)
	}
	for it.Next() {
		var (
			key  = it.Key()
			size = common.StorageSize(len(key) + len(it.Value()))
		)
		total += size
		switch {
		case hashKey(memPoolTxPrefix):
			poolTxs.Add(size)
		case hashKey(memPoolWithdrawalPrefix):
			poolWithdraws.Add(size)
		case hashKey(memPoolReceiptPrefix):
			poolReceipts.Add(size)
		case hashKey(blockPrefix):
			blocks.Add(size)
		case bytes.HasPrefix(key, blockNumberPrefix) && len(key) == len(blockNumberPrefix)+8:
			numHashes.Add(size)
		case hashKey(blockDepositsPrefix):
			deposits.Add(size)
		case hashKey(blockCustodianPrefix):
			custodians.Add(size)
		case hashKey(blockStatePrefix):
			states.Add(size)
		case hashKey(withdrawalPrefix):
			withdrawals.Add(size)
		case hashKey(assetScriptPrefix):
			scripts.Add(size)
		case bytes.HasPrefix(key, restoreMemBlockPrefix) && len(key) == len(restoreMemBlockPrefix)+8:
			savedMemBlocks.Add(size)
		case bytes.Equal(key, databaseVersionKey) || bytes.Equal(key, headBlockKey):
			metadata.Add(size)
		default:
			unaccounted.Add(size)
		}
		count++
		if count%1000 == 0 && time.Since(logged) > 8*time.Second {
			logger.WithFields(log.Fields{
				"count":   count,
				"elapsed": common.PrettyDuration(time.Since(start)),
			}).Info("Inspecting database")
			logged = time.Now()
		}
	}
	if err := it.Error(); err != nil {
		return err
	}
	stats := [][]string{
		{"Chain", "Blocks", blocks.Size(), blocks.Count()},
		{"Chain", "Block number->hash", numHashes.Size(), numHashes.Count()},
		{"Chain", "Block deposits", deposits.Size(), deposits.Count()},
		{"Chain", "Finalized custodians", custodians.Size(), custodians.Count()},
		{"Chain", "Account states", states.Size(), states.Count()},
		{"Chain", "Withdrawals", withdrawals.Size(), withdrawals.Count()},
		{"Chain", "Asset scripts", scripts.Size(), scripts.Count()},
		{"Chain", "Singleton metadata", metadata.Size(), metadata.Count()},
		{"Mem-pool", "Transactions", poolTxs.Size(), poolTxs.Count()},
		{"Mem-pool", "Withdrawals", poolWithdraws.Size(), poolWithdraws.Count()},
		{"Mem-pool", "Receipts", poolReceipts.Size(), poolReceipts.Count()},
		{"Mem-pool", "Saved mem blocks", savedMemBlocks.Size(), savedMemBlocks.Count()},
	}
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Database", "Category", "Size", "Items"})
	table.SetFooter([]string{"", "Total", total.String(), " "})
	table.AppendBulk(stats)
	table.Render()

	if unaccounted.size > 0 {
		logger.WithFields(log.Fields{
			"size":  unaccounted.size,
			"count": unaccounted.count,
		}).Warn("Database contains unaccounted data")
	}
	return nil
}
