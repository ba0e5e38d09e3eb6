// Package store is the layer 2 chain store: blocks, their deposits and
// withdrawals, and the account state after each block.
package store

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/rawdb"
	"github.com/dominant-strategies/go-quai-l2/core/state"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/ethdb"
	"github.com/dominant-strategies/go-quai-l2/log"
)

const (
	blockCacheLimit = 256
	stateCacheLimit = 16

	// databaseVersion is bumped whenever the schema changes.
	databaseVersion = 1
)

var ErrBlockNotFound = errors.New("block not found")

// Store reads and writes the chain tables of a key-value database.
type Store struct {
	db     ethdb.Database
	blocks *lru.Cache[common.Hash, *types.L2Block]
	states *lru.Cache[common.Hash, *state.StateDB]
	logger *log.Logger
}

// New opens a store over db, stamping the schema version on first use.
func New(db ethdb.Database, logger *log.Logger) (*Store, error) {
	if version := rawdb.ReadDatabaseVersion(db); version == nil {
		rawdb.WriteDatabaseVersion(db, databaseVersion)
	} else if *version != databaseVersion {
		return nil, errors.Errorf("database version mismatch: have %d want %d", *version, databaseVersion)
	}
	blocks, _ := lru.New[common.Hash, *types.L2Block](blockCacheLimit)
	states, _ := lru.New[common.Hash, *state.StateDB](stateCacheLimit)
	return &Store{db: db, blocks: blocks, states: states, logger: logger}, nil
}

// Database returns the underlying key-value store.
func (s *Store) Database() ethdb.Database { return s.db }

func (s *Store) GetBlock(hash common.Hash) *types.L2Block {
	if block, ok := s.blocks.Get(hash); ok {
		return block
	}
	block := rawdb.ReadBlock(s.db, hash)
	if block != nil {
		s.blocks.Add(hash, block)
	}
	return block
}

func (s *Store) GetTipBlockHash() common.Hash {
	return rawdb.ReadHeadBlockHash(s.db)
}

func (s *Store) GetTipBlock() *types.L2Block {
	hash := s.GetTipBlockHash()
	if hash == (common.Hash{}) {
		return nil
	}
	return s.GetBlock(hash)
}

func (s *Store) GetCanonicalHash(number uint64) common.Hash {
	return rawdb.ReadCanonicalHash(s.db, number)
}

func (s *Store) GetBlockDeposits(hash common.Hash) []*types.DepositInfo {
	return rawdb.ReadBlockDeposits(s.db, hash)
}

func (s *Store) GetBlockPostFinalizedCustodianCapacity(hash common.Hash) *types.FinalizedCustodianCapacity {
	return rawdb.ReadBlockPostFinalizedCustodianCapacity(s.db, hash)
}

func (s *Store) GetWithdrawal(hash common.Hash) *types.WithdrawalRequestExtra {
	return rawdb.ReadWithdrawal(s.db, hash)
}

func (s *Store) GetAssetScript(hash common.Hash) []byte {
	return rawdb.ReadAssetScript(s.db, hash)
}

// StateAt returns an independent copy of the account state after the block.
func (s *Store) StateAt(hash common.Hash) (state.State, error) {
	if st, ok := s.states.Get(hash); ok {
		return st.Copy(), nil
	}
	dump := rawdb.ReadBlockStateDump(s.db, hash)
	if dump == nil {
		return nil, errors.Wrapf(ErrBlockNotFound, "state of block %s", hash.TerminalString())
	}
	st, err := state.Load(dump)
	if err != nil {
		return nil, errors.Wrapf(err, "decode state of block %s", hash.TerminalString())
	}
	s.states.Add(hash, st)
	return st.Copy(), nil
}

// BlockData is everything recorded for a block besides the block itself.
type BlockData struct {
	Deposits    []*types.DepositInfo
	Withdrawals []*types.WithdrawalRequestExtra
	// PostState is the account state after the block.
	PostState state.State
	// PostCustodian is the finalized custodian capacity after the block.
	PostCustodian *types.FinalizedCustodianCapacity
}

// InsertBlock records a block. The block becomes the tip if it is not lower
// than the current one; canonical number mappings follow the tip.
func (s *Store) InsertBlock(block *types.L2Block, data BlockData) error {
	dump, err := data.PostState.Dump()
	if err != nil {
		return errors.Wrap(err, "dump post state")
	}
	hash := block.Hash()
	batch := s.db.NewBatch()
	rawdb.WriteBlock(batch, block)
	rawdb.WriteBlockDeposits(batch, hash, data.Deposits)
	for _, w := range data.Withdrawals {
		rawdb.WriteWithdrawal(batch, w)
	}
	for _, d := range data.Deposits {
		if d.Request.SudtScriptHash != (common.Hash{}) && len(d.SudtScript) > 0 {
			rawdb.WriteAssetScript(batch, d.Request.SudtScriptHash, d.SudtScript)
		}
	}
	custodian := data.PostCustodian
	if custodian == nil {
		custodian = &types.FinalizedCustodianCapacity{}
	}
	rawdb.WriteBlockPostFinalizedCustodianCapacity(batch, hash, custodian)
	rawdb.WriteBlockStateDump(batch, hash, dump)

	tip := s.GetTipBlock()
	if tip == nil || block.NumberU64() >= tip.NumberU64() {
		rawdb.WriteCanonicalHash(batch, hash, block.NumberU64())
		rawdb.WriteHeadBlockHash(batch, hash)
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "write block")
	}
	s.blocks.Add(hash, block)
	s.logger.WithFields(log.Fields{
		"number":      block.NumberU64(),
		"hash":        hash,
		"txs":         len(block.Transactions),
		"withdrawals": len(block.Withdrawals),
		"deposits":    len(data.Deposits),
	}).Debug("Inserted block")
	return nil
}

// SetHead makes hash the tip and rewrites the canonical mappings back to the
// first ancestor that is already canonical.
func (s *Store) SetHead(hash common.Hash) error {
	block := s.GetBlock(hash)
	if block == nil {
		return errors.Wrapf(ErrBlockNotFound, "set head %s", hash.TerminalString())
	}
	batch := s.db.NewBatch()
	for cur := block; cur != nil; cur = s.GetBlock(cur.ParentHash()) {
		if s.GetCanonicalHash(cur.NumberU64()) == cur.Hash() {
			break
		}
		rawdb.WriteCanonicalHash(batch, cur.Hash(), cur.NumberU64())
		if cur.NumberU64() == 0 {
			break
		}
	}
	rawdb.WriteHeadBlockHash(batch, hash)
	return errors.Wrap(batch.Write(), "set head")
}

// InitGenesis writes the genesis block built on st if the store is empty and
// returns the tip.
func (s *Store) InitGenesis(st state.State, timestamp uint64) (*types.L2Block, error) {
	if tip := s.GetTipBlock(); tip != nil {
		return tip, nil
	}
	post := st.CalculateMerkleState()
	genesis := types.NewBlock(types.RawL2Block{
		Number:      0,
		Timestamp:   timestamp,
		PrevAccount: post,
		PostAccount: post,
	}, nil, nil, nil)
	if err := s.InsertBlock(genesis, BlockData{PostState: st}); err != nil {
		return nil, err
	}
	s.logger.WithField("hash", genesis.Hash()).Info("Wrote genesis block")
	return genesis, nil
}
