package rawdb

import (
	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/ethdb"
	"github.com/dominant-strategies/go-quai-l2/log"
)

// ReadMemPoolTransaction retrieves a transaction admitted to the mem-pool.
func ReadMemPoolTransaction(db ethdb.KeyValueReader, hash common.Hash) *types.L2Transaction {
	data, _ := db.Get(memPoolTxKey(hash))
	if len(data) == 0 {
		return nil
	}
	tx := new(types.L2Transaction)
	if err := types.Decode(data, tx); err != nil {
		log.Global.WithFields(log.Fields{
			"hash": hash,
			"err":  err,
		}).Error("Invalid mem-pool transaction encoding")
		return nil
	}
	return tx
}

// WriteMemPoolTransaction stores a transaction admitted to the mem-pool.
func WriteMemPoolTransaction(db ethdb.KeyValueWriter, tx *types.L2Transaction) {
	data, err := types.Encode(tx)
	if err != nil {
		log.Global.WithField("err", err).Fatal("Failed to encode mem-pool transaction")
	}
	if err := db.Put(memPoolTxKey(tx.Hash()), data); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to store mem-pool transaction")
	}
}

// DeleteMemPoolTransaction removes a mem-pool transaction and its receipt.
func DeleteMemPoolTransaction(db ethdb.KeyValueWriter, hash common.Hash) {
	if err := db.Delete(memPoolTxKey(hash)); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to delete mem-pool transaction")
	}
	if err := db.Delete(memPoolReceiptKey(hash)); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to delete mem-pool receipt")
	}
}

// ReadMemPoolTransactionHashes returns the hashes of all stored mem-pool
// transactions.
func ReadMemPoolTransactionHashes(db ethdb.Iteratee) []common.Hash {
	return iterateHashes(db, memPoolTxPrefix)
}

// ReadMemPoolTransactionReceipt retrieves the receipt of a mem-pool transaction.
func ReadMemPoolTransactionReceipt(db ethdb.KeyValueReader, hash common.Hash) *types.TxReceipt {
	data, _ := db.Get(memPoolReceiptKey(hash))
	if len(data) == 0 {
		return nil
	}
	receipt := new(types.TxReceipt)
	if err := types.Decode(data, receipt); err != nil {
		log.Global.WithFields(log.Fields{
			"hash": hash,
			"err":  err,
		}).Error("Invalid mem-pool receipt encoding")
		return nil
	}
	return receipt
}

// WriteMemPoolTransactionReceipt stores the receipt of a mem-pool transaction.
func WriteMemPoolTransactionReceipt(db ethdb.KeyValueWriter, receipt *types.TxReceipt) {
	data, err := types.Encode(receipt)
	if err != nil {
		log.Global.WithField("err", err).Fatal("Failed to encode mem-pool receipt")
	}
	if err := db.Put(memPoolReceiptKey(receipt.TxHash), data); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to store mem-pool receipt")
	}
}

// ReadMemPoolWithdrawal retrieves a withdrawal admitted to the mem-pool.
func ReadMemPoolWithdrawal(db ethdb.KeyValueReader, hash common.Hash) *types.WithdrawalRequestExtra {
	return readWithdrawalExtra(db, memPoolWithdrawalKey(hash))
}

// WriteMemPoolWithdrawal stores a withdrawal admitted to the mem-pool.
func WriteMemPoolWithdrawal(db ethdb.KeyValueWriter, w *types.WithdrawalRequestExtra) {
	writeWithdrawalExtra(db, memPoolWithdrawalKey(w.Hash()), w)
}

// HasMemPoolWithdrawal reports whether the withdrawal is stored.
func HasMemPoolWithdrawal(db ethdb.KeyValueReader, hash common.Hash) bool {
	has, err := db.Has(memPoolWithdrawalKey(hash))
	return err == nil && has
}

// DeleteMemPoolWithdrawal removes a mem-pool withdrawal.
func DeleteMemPoolWithdrawal(db ethdb.KeyValueWriter, hash common.Hash) {
	if err := db.Delete(memPoolWithdrawalKey(hash)); err != nil {
		log.Global.WithField("err", err).Fatal("Failed to delete mem-pool withdrawal")
	}
}

// ReadMemPoolWithdrawals returns every stored mem-pool withdrawal in key order.
func ReadMemPoolWithdrawals(db ethdb.Reader) []*types.WithdrawalRequestExtra {
	it := db.NewIterator(memPoolWithdrawalPrefix, nil)
	defer it.Release()

	var withdrawals []*types.WithdrawalRequestExtra
	for it.Next() {
		if len(it.Key()) != len(memPoolWithdrawalPrefix)+common.HashLength {
			continue
		}
		w := new(types.WithdrawalRequestExtra)
		if err := types.Decode(it.Value(), w); err != nil {
			log.Global.WithField("err", err).Error("Invalid mem-pool withdrawal encoding")
			continue
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals
}

func iterateHashes(db ethdb.Iteratee, prefix []byte) []common.Hash {
	it := db.NewIterator(prefix, nil)
	defer it.Release()

	var hashes []common.Hash
	for it.Next() {
		key := it.Key()
		if len(key) != len(prefix)+common.HashLength {
			continue
		}
		hashes = append(hashes, common.BytesToHash(key[len(prefix):]))
	}
	return hashes
}
