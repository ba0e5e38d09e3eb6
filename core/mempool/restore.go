package mempool

import (
	"time"

	"github.com/pkg/errors"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/rawdb"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/ethdb"
	"github.com/dominant-strategies/go-quai-l2/log"
)

// RestoredMemBlock is the saved content of a mem block.
type RestoredMemBlock struct {
	_            struct{} `cbor:",toarray"`
	BlockInfo    types.BlockInfo
	Withdrawals  []common.Hash
	Txs          []common.Hash
	Deposits     []*types.DepositInfo
	NewAddresses []common.Hash
}

// RestoreManager saves mem blocks so that their content survives a restart.
type RestoreManager struct {
	db     ethdb.KeyValueStore
	maxAge time.Duration
	logger *log.Logger
}

func NewRestoreManager(db ethdb.KeyValueStore, maxAge time.Duration, logger *log.Logger) *RestoreManager {
	return &RestoreManager{db: db, maxAge: maxAge, logger: logger}
}

// Save stores the content of block and drops older records. pendingTxs are
// transactions waiting to be replayed; they are saved ahead of the block's
// own.
func (m *RestoreManager) Save(block *MemBlock, deposits []*types.DepositInfo, pendingTxs []common.Hash) error {
	txs := make([]common.Hash, 0, len(pendingTxs)+len(block.Txs()))
	txs = append(txs, pendingTxs...)
	txs = append(txs, block.Txs()...)
	enc, err := types.Encode(&RestoredMemBlock{
		BlockInfo:    block.Info(),
		Withdrawals:  block.Withdrawals(),
		Txs:          txs,
		Deposits:     deposits,
		NewAddresses: block.NewAddresses(),
	})
	if err != nil {
		return errors.Wrap(err, "encode mem block")
	}
	ts := uint64(time.Now().UnixMilli())
	rawdb.WriteRestoreMemBlock(m.db, ts, enc)
	rawdb.DeleteRestoreMemBlocksBefore(m.db, ts)
	return nil
}

// Latest returns the newest saved mem block, or nil.
func (m *RestoreManager) Latest() (*RestoredMemBlock, error) {
	ts, enc := rawdb.ReadLatestRestoreMemBlock(m.db)
	if enc == nil {
		return nil, nil
	}
	restored := new(RestoredMemBlock)
	if err := types.Decode(enc, restored); err != nil {
		return nil, errors.Wrapf(err, "decode mem block saved at %d", ts)
	}
	m.logger.WithFields(log.Fields{
		"savedAt":     time.UnixMilli(int64(ts)),
		"number":      restored.BlockInfo.Number,
		"withdrawals": len(restored.Withdrawals),
		"txs":         len(restored.Txs),
		"deposits":    len(restored.Deposits),
	}).Info("Found saved mem block")
	return restored, nil
}

// Prune deletes saved mem blocks older than the max age.
func (m *RestoreManager) Prune(now time.Time) int {
	removed := rawdb.DeleteRestoreMemBlocksBefore(m.db, uint64(now.Add(-m.maxAge).UnixMilli()))
	if removed > 0 {
		m.logger.WithField("removed", removed).Debug("Pruned saved mem blocks")
	}
	return removed
}
