package mempool

import (
	"context"
	"time"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/config"
	"github.com/dominant-strategies/go-quai-l2/core/generator"
	"github.com/dominant-strategies/go-quai-l2/core/state"
	"github.com/dominant-strategies/go-quai-l2/core/store"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/ethdb"
	"github.com/dominant-strategies/go-quai-l2/log"
)

// State is the account state the pool executes against.
type State = state.State

// BlockLookup resolves blocks and their withdrawals by hash.
type BlockLookup interface {
	GetBlock(hash common.Hash) *types.L2Block
	GetWithdrawal(hash common.Hash) *types.WithdrawalRequestExtra
}

// ChainStore is the part of the chain store the pool reads.
type ChainStore interface {
	BlockLookup

	Database() ethdb.Database
	GetTipBlock() *types.L2Block
	GetCanonicalHash(number uint64) common.Hash
	GetBlockDeposits(hash common.Hash) []*types.DepositInfo
	GetBlockPostFinalizedCustodianCapacity(hash common.Hash) *types.FinalizedCustodianCapacity
	GetAssetScript(hash common.Hash) []byte
	StateAt(hash common.Hash) (state.State, error)
}

var _ ChainStore = (*store.Store)(nil)

// ExecutionEngine checks signatures and runs transactions.
type ExecutionEngine interface {
	ChainID() uint64
	CheckTransactionSignature(st state.State, tx *types.L2Transaction) error
	CheckWithdrawalSignature(st state.State, w *types.WithdrawalRequest) error
	ExecuteTransaction(st state.State, info *types.BlockInfo, tx *types.RawL2Transaction, cycles *generator.CyclesPool) (*types.RunResult, error)
}

var _ ExecutionEngine = (*generator.Generator)(nil)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_provider.go -package=mocks Provider,SyncPublisher

// Provider supplies the base chain inputs of a mem block.
type Provider interface {
	// EstimateNextBlocktime returns the expected timestamp of the next
	// block as a duration since the unix epoch.
	EstimateNextBlocktime(ctx context.Context) (time.Duration, error)
	// CollectDepositCells returns the deposits waiting on the base chain.
	CollectDepositCells(ctx context.Context) ([]*types.DepositInfo, error)
}

// SyncPublisher forwards mem block changes to read-only followers.
type SyncPublisher interface {
	PublishNextMemBlock(next *types.NextMemBlock)
	PublishTransaction(tx *types.L2Transaction)
}

// Backend bundles the collaborators of a MemPool. AccountCreator,
// SyncPublisher, DynamicConfig and RestoreDB are optional.
type Backend struct {
	Store          ChainStore
	Generator      ExecutionEngine
	Provider       Provider
	AccountCreator *generator.AccountCreator
	SyncPublisher  SyncPublisher
	DynamicConfig  *config.DynamicConfigManager
	RestoreDB      ethdb.KeyValueStore
	Logger         *log.Logger
}
