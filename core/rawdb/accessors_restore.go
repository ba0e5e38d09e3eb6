package rawdb

import (
	"encoding/binary"

	"github.com/golang/snappy"

	"github.com/dominant-strategies/go-quai-l2/ethdb"
	"github.com/dominant-strategies/go-quai-l2/log"
)

// WriteRestoreMemBlock stores an encoded mem block snapshot under timestamp.
func WriteRestoreMemBlock(db ethdb.KeyValueWriter, timestamp uint64, enc []byte) {
	if err := db.Put(restoreMemBlockKey(timestamp), snappy.Encode(nil, enc)); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to store mem block snapshot")
	}
}

// ReadLatestRestoreMemBlock returns the newest mem block snapshot and its
// timestamp, or nil if none is stored.
func ReadLatestRestoreMemBlock(db ethdb.Reader) (uint64, []byte) {
	it := db.NewIterator(restoreMemBlockPrefix, nil)
	defer it.Release()

	var (
		latest uint64
		data   []byte
	)
	// Keys are big endian timestamps so the last one is the newest.
	for it.Next() {
		key := it.Key()
		if len(key) != len(restoreMemBlockPrefix)+8 {
			continue
		}
		latest = binary.BigEndian.Uint64(key[len(restoreMemBlockPrefix):])
		data = append(data[:0], it.Value()...)
	}
	if data == nil {
		return 0, nil
	}
	dec, err := snappy.Decode(nil, data)
	if err != nil {
		log.Global.WithFields(log.Fields{
			"timestamp": latest,
			"err":       err,
		}).Error("Invalid mem block snapshot compression")
		return 0, nil
	}
	return latest, dec
}

// ReadRestoreMemBlockTimestamps lists the timestamps of stored snapshots in
// ascending order.
func ReadRestoreMemBlockTimestamps(db ethdb.Iteratee) []uint64 {
	it := db.NewIterator(restoreMemBlockPrefix, nil)
	defer it.Release()

	var timestamps []uint64
	for it.Next() {
		key := it.Key()
		if len(key) != len(restoreMemBlockPrefix)+8 {
			continue
		}
		timestamps = append(timestamps, binary.BigEndian.Uint64(key[len(restoreMemBlockPrefix):]))
	}
	return timestamps
}

// DeleteRestoreMemBlocksBefore removes every snapshot older than timestamp
// and returns how many were removed.
func DeleteRestoreMemBlocksBefore(db ethdb.KeyValueStore, timestamp uint64) int {
	batch := db.NewBatch()
	removed := 0
	for _, ts := range ReadRestoreMemBlockTimestamps(db) {
		if ts >= timestamp {
			break
		}
		if err := batch.Delete(restoreMemBlockKey(ts)); err != nil {
			log.Global.WithField("err", err).Fatal("Failed to delete mem block snapshot")
		}
		removed++
	}
	if err := batch.Write(); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to delete mem block snapshots")
	}
	return removed
}
