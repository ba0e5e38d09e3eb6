package mempool

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/config"
	"github.com/dominant-strategies/go-quai-l2/core/generator"
	"github.com/dominant-strategies/go-quai-l2/core/mempool/mocks"
	"github.com/dominant-strategies/go-quai-l2/core/rawdb"
	"github.com/dominant-strategies/go-quai-l2/core/state"
	"github.com/dominant-strategies/go-quai-l2/core/store"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/log"
)

var (
	testProducer  = common.HexToHash("0xb10c")
	testCustodian = &types.FinalizedCustodianCapacity{Capacity: *uint256.NewInt(1_000_000_000)}
)

type testEnv struct {
	t         *testing.T
	store     *store.Store
	generator *generator.Generator
	provider  *mocks.MockProvider
	config    Config
	backend   Backend
	deposits  []*types.DepositInfo

	alice, bob *testAccount
	tip        *types.L2Block
	pool       *MemPool
}

func newTestEnv(t *testing.T, configure ...func(*Config, *Backend)) *testEnv {
	t.Helper()
	logger := log.NewNullLogger()
	s, err := store.New(rawdb.NewMemoryDatabase(logger), logger)
	require.NoError(t, err)

	env := &testEnv{
		t:         t,
		store:     s,
		generator: generator.New(testChainID, logger),
		provider:  mocks.NewMockProvider(gomock.NewController(t)),
	}
	env.provider.EXPECT().EstimateNextBlocktime(gomock.Any()).Return(time.Duration(0), errors.New("no estimate")).AnyTimes()
	env.provider.EXPECT().CollectDepositCells(gomock.Any()).DoAndReturn(func(context.Context) ([]*types.DepositInfo, error) {
		return env.deposits, nil
	}).AnyTimes()

	st := state.New()
	env.alice = newTestAccount(t, st, 1_000_000)
	env.bob = newTestAccount(t, st, 1_000_000)
	genesis, err := s.InitGenesis(st, 1000)
	require.NoError(t, err)
	// Withdrawals need a tip past genesis with finalized custodian capacity.
	env.tip = env.insert(genesis, 0, nil)

	env.config = DefaultConfig
	env.config.BlockProducer = testProducer
	env.backend = Backend{
		Store:     s,
		Generator: env.generator,
		Provider:  env.provider,
		Logger:    logger,
	}
	for _, c := range configure {
		c(&env.config, &env.backend)
	}
	env.pool = env.open()
	return env
}

func (e *testEnv) open() *MemPool {
	e.t.Helper()
	p, err := New(context.Background(), e.config, e.backend)
	require.NoError(e.t, err)
	return p
}

// insert executes txs on top of parent and stores the resulting block.
// salt tells siblings apart.
func (e *testEnv) insert(parent *types.L2Block, salt byte, txs types.Transactions, ws ...*types.WithdrawalRequestExtra) *types.L2Block {
	e.t.Helper()
	st, err := e.store.StateAt(parent.Hash())
	require.NoError(e.t, err)
	producer := common.BytesToHash([]byte{salt})
	info := types.BlockInfo{BlockProducer: producer, Number: parent.NumberU64() + 1}
	reqs := make([]*types.WithdrawalRequest, len(ws))
	for i, w := range ws {
		require.NoError(e.t, st.ApplyWithdrawalRequest(producer, w.Raw()))
		reqs[i] = &w.Request
	}
	for _, tx := range txs {
		_, err := e.generator.ExecuteTransaction(st, &info, &tx.Raw, generator.NewUnlimitedCyclesPool())
		require.NoError(e.t, err)
	}
	st.Finalise()
	b := types.NewBlock(types.RawL2Block{
		Number:          info.Number,
		ParentBlockHash: parent.Hash(),
		BlockProducer:   producer,
		Timestamp:       parent.Timestamp() + 1000,
		PrevAccount:     parent.Raw.PostAccount,
		PostAccount:     st.CalculateMerkleState(),
	}, txs, reqs, nil)
	require.NoError(e.t, e.store.InsertBlock(b, store.BlockData{
		Withdrawals:   ws,
		PostState:     st,
		PostCustodian: testCustodian,
	}))
	return b
}

func (e *testEnv) nonce(a *testAccount) uint32 {
	e.t.Helper()
	nonce, err := e.pool.State().State().GetNonce(a.id)
	require.NoError(e.t, err)
	return nonce
}

func (e *testEnv) balance(a *testAccount) uint64 {
	return e.pool.State().State().GetBalance(state.CKBSudtID, a.scriptHash).Uint64()
}

func TestNewBuildsOnTip(t *testing.T) {
	env := newTestEnv(t)
	shared := env.pool.State()
	assert.Equal(t, env.tip.Hash(), env.pool.CurrentTip())
	assert.Equal(t, env.tip.NumberU64()+1, shared.MemBlock().Info().Number)
	assert.Equal(t, testProducer, shared.MemBlock().Info().BlockProducer)
	// No estimate, so the minimum interval after the tip.
	assert.Equal(t, env.tip.Timestamp()+1000, shared.MemBlock().Info().Timestamp)
	assert.Equal(t, env.tip.Raw.PostAccount, shared.MemBlock().PrevMerkleState())
	assert.Zero(t, shared.MemBlock().Len())
}

func TestPushTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx := env.alice.transfer(t, 0, env.bob.scriptHash, 100, 1)
	require.NoError(t, env.pool.PushTransaction(ctx, tx))

	shared := env.pool.State()
	assert.Equal(t, []common.Hash{tx.Hash()}, shared.MemBlock().Txs())
	assert.Equal(t, uint64(1_000_100), env.balance(env.bob))
	assert.Equal(t, uint64(1_000_000-101), env.balance(env.alice))
	assert.Equal(t, uint32(1), env.nonce(env.alice))
	assert.Equal(t, shared.State().CalculateMerkleState(), shared.MemBlock().PostMerkleState())

	receipt := env.pool.GetTransactionReceipt(tx.Hash())
	require.NotNil(t, receipt)
	assert.Equal(t, shared.MemBlock().PostMerkleState(), receipt.PostState)
	assert.Equal(t, tx.Hash(), env.pool.GetTransaction(tx.Hash()).Hash())

	err := env.pool.PushTransaction(ctx, tx)
	require.ErrorIs(t, err, ErrDuplicateTx)
	assert.Equal(t, ClassValidation, ClassOf(err))

	err = env.pool.PushTransaction(ctx, env.alice.transfer(t, 0, env.bob.scriptHash, 5, 1))
	require.ErrorIs(t, err, ErrNonceTooLow)
	assert.Equal(t, ClassValidation, ClassOf(err))
}

func TestPushTransactionRejectsForgedSignature(t *testing.T) {
	env := newTestEnv(t)
	args := &generator.CallArgs{Kind: generator.ArgsTransfer, To: env.alice.scriptHash, Amount: *uint256.NewInt(100)}
	tx, err := types.SignTransaction(types.RawL2Transaction{
		ChainID: testChainID,
		FromID:  env.bob.id,
		ToID:    state.CKBSudtID,
		Args:    args.Encode(),
	}, env.alice.key)
	require.NoError(t, err)

	err = env.pool.PushTransaction(context.Background(), tx)
	require.ErrorIs(t, err, generator.ErrInvalidSignature)
	assert.Equal(t, ClassValidation, ClassOf(err))
}

func TestPushTransactionExecutionFailureLeavesState(t *testing.T) {
	env := newTestEnv(t)
	before := env.pool.State()

	err := env.pool.PushTransaction(context.Background(), env.alice.transfer(t, 0, env.bob.scriptHash, 10_000_000, 1))
	require.ErrorIs(t, err, generator.ErrInsufficientBalance)
	assert.Equal(t, ClassExecution, ClassOf(err))

	after := env.pool.State()
	assert.Equal(t, before.State().CalculateMerkleState(), after.State().CalculateMerkleState())
	assert.Zero(t, after.MemBlock().Len())
	assert.Zero(t, env.nonce(env.alice))
}

func TestPushTransactionMemBlockFull(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *Backend) { c.MaxTxs = 1 })
	ctx := context.Background()

	require.False(t, env.pool.IsMemTxsFull(1))
	require.NoError(t, env.pool.PushTransaction(ctx, env.alice.transfer(t, 0, env.bob.scriptHash, 1, 1)))
	require.True(t, env.pool.IsMemTxsFull(1))

	err := env.pool.PushTransaction(ctx, env.bob.transfer(t, 0, env.alice.scriptHash, 1, 1))
	require.ErrorIs(t, err, ErrMemBlockFull)
	assert.Equal(t, ClassResourceExhausted, ClassOf(err))
}

func TestPushTransactionCyclesExhausted(t *testing.T) {
	// Enough for one transfer, not two.
	limit := generator.DefaultSyscallCycles.Base*3/2 + 5_000
	env := newTestEnv(t, func(c *Config, _ *Backend) { c.MaxCyclesLimit = limit })
	ctx := context.Background()

	require.NoError(t, env.pool.PushTransaction(ctx, env.alice.transfer(t, 0, env.bob.scriptHash, 1, 1)))
	err := env.pool.PushTransaction(ctx, env.bob.transfer(t, 0, env.alice.scriptHash, 1, 1))
	require.ErrorIs(t, err, generator.ErrExceededMaxBlockCycles)
	assert.Equal(t, ClassResourceExhausted, ClassOf(err))
	assert.Len(t, env.pool.State().MemBlock().Txs(), 1)
}

func TestCreatorAllowlists(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "dynamic.toml")
	require.NoError(t, config.WriteDynamicConfig(path, &config.DynamicConfigFile{
		ContractCreatorAllowlist:  []common.Hash{env.bob.scriptHash},
		SudtProxyCreatorAllowlist: []common.Hash{env.bob.scriptHash},
	}))
	manager, err := config.NewDynamicConfigManager(path, log.NewNullLogger())
	require.NoError(t, err)
	env.backend.DynamicConfig = manager
	env.pool = env.open()
	ctx := context.Background()

	createContract := &generator.CallArgs{Kind: generator.ArgsCreateContract}
	err = env.pool.PushTransaction(ctx, env.alice.sign(t, 0, createContract))
	require.ErrorIs(t, err, ErrContractCreatorDenied)
	assert.Equal(t, ClassValidation, ClassOf(err))
	require.NoError(t, env.pool.PushTransaction(ctx, env.bob.sign(t, 0, createContract)))

	count := env.pool.State().State().GetAccountCount()
	createProxy := &generator.CallArgs{Kind: generator.ArgsCreateSudtProxy, SudtScriptHash: common.HexToHash("0x5d")}
	err = env.pool.PushTransaction(ctx, env.alice.sign(t, 0, createProxy))
	require.ErrorIs(t, err, ErrSudtProxyCreatorDenied)
	assert.Equal(t, count, env.pool.State().State().GetAccountCount(), "denied proxy creation is reverted")
	assert.Zero(t, env.nonce(env.alice))
	require.NoError(t, env.pool.PushTransaction(ctx, env.bob.sign(t, 1, createProxy)))
}

func TestWithdrawalsPackedInNonceOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w1 := env.alice.withdrawal(t, 0, 1000, 10)
	w2 := env.alice.withdrawal(t, 1, 2000, 10)
	require.NoError(t, env.pool.PushWithdrawalRequest(ctx, w1))
	require.NoError(t, env.pool.PushWithdrawalRequest(ctx, w2))
	assert.Empty(t, env.pool.State().MemBlock().Withdrawals(), "withdrawals wait for the next reset")
	assert.NotNil(t, env.pool.GetWithdrawal(w2.Hash()))

	require.NoError(t, env.pool.ResetMemBlock(ctx))
	shared := env.pool.State()
	assert.Equal(t, []common.Hash{w1.Hash(), w2.Hash()}, shared.MemBlock().Withdrawals())
	assert.Equal(t, uint32(2), env.nonce(env.alice))
	assert.Equal(t, uint64(1_000_000-3020), env.balance(env.alice))
	assert.Equal(t, uint64(20), shared.State().GetBalance(state.CKBSudtID, testProducer).Uint64())
	assert.Equal(t, uint64(1_000_000_000-3000), shared.MemBlock().FinalizedCustodian().Capacity.Uint64())
	assert.Len(t, shared.MemBlock().StateCheckpoints(), 2)
	assert.Equal(t, state.Checkpoint(shared.MemBlock().PostMerkleState()), shared.MemBlock().TxsPrevStateCheckpoint())

	err := env.pool.PushWithdrawalRequest(ctx, w1)
	require.ErrorIs(t, err, ErrDuplicateWithdrawal)
	assert.Equal(t, ClassValidation, ClassOf(err))

	// Transactions build on the withdrawals.
	require.NoError(t, env.pool.PushTransaction(ctx, env.alice.transfer(t, 2, env.bob.scriptHash, 1, 1)))
}

func TestPushWithdrawalRejections(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *Backend) { c.MinWithdrawalCapacity = 100 })
	ctx := context.Background()

	otherLock := env.alice.withdrawal(t, 0, 500, 0)
	otherLock.OwnerLock = []byte("another lock")

	cases := []struct {
		name string
		w    *types.WithdrawalRequestExtra
		want error
	}{
		{"too small", env.alice.withdrawal(t, 0, 99, 0), ErrWithdrawalTooSmall},
		{"insufficient balance", env.alice.withdrawal(t, 0, 999_995, 10), ErrInsufficientBalance},
		{"insufficient custodian", env.alice.withdrawal(t, 0, 1_000_000_001, 0), ErrInsufficientCustodian},
		{"owner lock", otherLock, ErrOwnerLockMismatch},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := env.pool.PushWithdrawalRequest(ctx, c.w)
			require.ErrorIs(t, err, c.want)
			assert.Equal(t, ClassValidation, ClassOf(err))
			assert.Nil(t, env.pool.GetWithdrawal(c.w.Hash()))
		})
	}
}

func TestDepositsAppliedOnReset(t *testing.T) {
	env := newTestEnv(t)
	carol := common.HexToHash("0xca101")
	deposit := &types.DepositInfo{Request: types.DepositRequest{Capacity: 500, ScriptHash: carol}}
	env.deposits = []*types.DepositInfo{deposit, deposit}

	require.NoError(t, env.pool.ResetMemBlock(context.Background()))
	shared := env.pool.State()
	require.Len(t, shared.MemBlock().Deposits(), 1, "duplicate deposits are dropped")
	_, ok := shared.State().GetAccountIDByScriptHash(carol)
	assert.True(t, ok)
	assert.Equal(t, uint64(500), shared.State().GetBalance(state.CKBSudtID, carol).Uint64())
	assert.Equal(t, state.Checkpoint(shared.MemBlock().PostMerkleState()), shared.MemBlock().TxsPrevStateCheckpoint())
	assert.NotEmpty(t, shared.MemBlock().TouchedKeys())
}

func TestResetIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.pool.PushWithdrawalRequest(ctx, env.alice.withdrawal(t, 0, 1000, 1)))
	require.NoError(t, env.pool.ResetMemBlock(ctx))
	require.NoError(t, env.pool.PushTransaction(ctx, env.bob.transfer(t, 0, env.alice.scriptHash, 7, 1)))

	first := env.pool.State().MemBlock()
	require.NoError(t, env.pool.ResetMemBlock(ctx))
	second := env.pool.State().MemBlock()
	assert.True(t, first.Equal(second))
	assert.Equal(t, uint64(1_000_000-8), env.balance(env.bob))
}

func TestNotifyNewTipReplaysMemBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	included := env.alice.transfer(t, 0, env.bob.scriptHash, 10, 1)
	pending := env.bob.transfer(t, 0, env.alice.scriptHash, 20, 1)
	require.NoError(t, env.pool.PushTransaction(ctx, included))
	require.NoError(t, env.pool.PushTransaction(ctx, pending))

	next := env.insert(env.tip, 1, types.Transactions{included})
	require.NoError(t, env.pool.NotifyNewTip(ctx, next.Hash()))

	shared := env.pool.State()
	assert.Equal(t, next.Hash(), env.pool.CurrentTip())
	assert.Equal(t, []common.Hash{pending.Hash()}, shared.MemBlock().Txs())
	assert.Nil(t, env.pool.GetTransaction(included.Hash()), "included transactions leave the mem-pool tables")
	assert.Equal(t, uint32(1), env.nonce(env.bob))

	// Same tip again is a no-op.
	require.NoError(t, env.pool.NotifyNewTip(ctx, next.Hash()))
	assert.Same(t, shared, env.pool.State())
}

func TestNotifyNewTipReorg(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.alice.transfer(t, 0, env.bob.scriptHash, 1, 1)
	b := env.alice.transfer(t, 1, env.bob.scriptHash, 2, 1)
	c := env.bob.transfer(t, 0, env.alice.scriptHash, 3, 1)
	h := env.tip
	a1 := env.insert(h, 'a', types.Transactions{a})
	a2 := env.insert(a1, 'a', types.Transactions{b})
	a3 := env.insert(a2, 'a', types.Transactions{c})
	for _, blk := range []*types.L2Block{a1, a2, a3} {
		require.NoError(t, env.pool.NotifyNewTip(ctx, blk.Hash()))
	}
	require.Zero(t, env.pool.State().MemBlock().Len())

	// The other chain is shorter and already holds a.
	b1 := env.insert(h, 'b', types.Transactions{a})
	b2 := env.insert(b1, 'b', nil)
	require.NoError(t, env.store.SetHead(b2.Hash()))
	require.NoError(t, env.pool.NotifyNewTip(ctx, b2.Hash()))

	shared := env.pool.State()
	assert.Equal(t, b2.Hash(), env.pool.CurrentTip())
	assert.Equal(t, []common.Hash{b.Hash(), c.Hash()}, shared.MemBlock().Txs())
	assert.Equal(t, uint32(2), env.nonce(env.alice))
	assert.Equal(t, uint32(1), env.nonce(env.bob))
}

func TestNotifyNewTipReinjectsWithdrawals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w := env.alice.withdrawal(t, 0, 1000, 1)
	h := env.tip
	a1 := env.insert(h, 'a', nil, w)
	require.NoError(t, env.pool.NotifyNewTip(ctx, a1.Hash()))

	b1 := env.insert(h, 'b', nil)
	b2 := env.insert(b1, 'b', nil)
	require.NoError(t, env.pool.NotifyNewTip(ctx, b2.Hash()))

	assert.Equal(t, []common.Hash{w.Hash()}, env.pool.State().MemBlock().Withdrawals())
	assert.Equal(t, uint32(1), env.nonce(env.alice))
}

func TestNotifyNewTipUnknownBlockPanics(t *testing.T) {
	env := newTestEnv(t)
	require.Panics(t, func() {
		_ = env.pool.NotifyNewTip(context.Background(), common.HexToHash("0xdead"))
	})
}

func TestSnapshotIsolation(t *testing.T) {
	env := newTestEnv(t)
	before := env.pool.State()
	require.NoError(t, env.pool.PushTransaction(context.Background(), env.alice.transfer(t, 0, env.bob.scriptHash, 1, 1)))

	assert.Zero(t, before.MemBlock().Len())
	nonce, err := before.State().GetNonce(env.alice.id)
	require.NoError(t, err)
	assert.Zero(t, nonce)
	assert.Len(t, env.pool.State().MemBlock().Txs(), 1)
}

func TestOutputMemBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := uint32(0); i < 4; i++ {
		require.NoError(t, env.pool.PushTransaction(ctx, env.alice.transfer(t, i, env.bob.scriptHash, 1, 1)))
	}
	block, post := env.pool.OutputMemBlock(1)
	assert.Len(t, block.Txs(), 2)
	assert.Equal(t, env.pool.State().MemBlock().Txs()[:2], block.Txs())
	assert.Equal(t, block.PostMerkleState(), post)
}

func TestPublishedGenerationIsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.pool.PushTransaction(ctx, env.alice.transfer(t, 0, env.bob.scriptHash, 1, 1)))

	a, b := env.pool.State(), env.pool.State()
	_, writable := a.State().(state.State)
	require.False(t, writable, "readers must not reach the state mutators")

	root := b.State().CalculateMerkleState()
	txs := b.MemBlock().Txs()
	custodian := b.MemBlock().FinalizedCustodian()
	want, wantPost := env.pool.OutputMemBlock(0)

	a.MemBlock().Txs()[0] = common.HexToHash("0xbad")
	a.MemBlock().FinalizedCustodian().Capacity.SetUint64(12345)
	packaged, _ := env.pool.OutputMemBlock(0)
	packaged.PushTx(common.HexToHash("0xff"), types.AccountMerkleState{})
	packaged.FinalizedCustodian().Capacity.SetUint64(12345)

	assert.Equal(t, root, b.State().CalculateMerkleState())
	assert.Equal(t, txs, b.MemBlock().Txs())
	assert.Equal(t, custodian, b.MemBlock().FinalizedCustodian())
	assert.Equal(t, env.tip.Hash(), b.TipHash())
	assert.Equal(t, env.tip.Raw.PostAccount, b.TipHeader().PostAccount)
	assert.False(t, b.MemBlock().HasTx(common.HexToHash("0xff")))

	got, gotPost := env.pool.OutputMemBlock(0)
	assert.True(t, want.Equal(got))
	assert.Equal(t, wantPost, gotPost)
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, custodian, got.FinalizedCustodian())
}

func TestEstimateTimestamp(t *testing.T) {
	tip := types.NewBlock(types.RawL2Block{Number: 1, Timestamp: 2000}, nil, nil, nil)
	cases := []struct {
		name     string
		estimate time.Duration
		err      error
		want     uint64
	}{
		{name: "estimator error", err: errors.New("unavailable"), want: 3000},
		{name: "zero estimate", want: 3000},
		{name: "equal to tip", estimate: 2000 * time.Millisecond, want: 3000},
		{name: "below tip plus interval", estimate: 2500 * time.Millisecond, want: 3000},
		{name: "at tip plus interval", estimate: 3000 * time.Millisecond, want: 3000},
		{name: "later", estimate: 7000 * time.Millisecond, want: 7000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			provider := mocks.NewMockProvider(gomock.NewController(t))
			provider.EXPECT().EstimateNextBlocktime(gomock.Any()).Return(c.estimate, c.err)
			p := &MemPool{
				config:   Config{MinBlockInterval: time.Second},
				provider: provider,
				logger:   log.NewNullLogger(),
			}
			assert.Equal(t, c.want, p.estimateTimestamp(context.Background(), tip))
		})
	}
}

func TestRecoverSavedMemBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w := env.alice.withdrawal(t, 0, 1000, 1)
	require.NoError(t, env.pool.PushWithdrawalRequest(ctx, w))
	require.NoError(t, env.pool.ResetMemBlock(ctx))
	tx0 := env.bob.transfer(t, 0, env.alice.scriptHash, 5, 1)
	tx1 := env.bob.transfer(t, 1, env.alice.scriptHash, 6, 1)
	require.NoError(t, env.pool.PushTransaction(ctx, tx0))
	require.NoError(t, env.pool.PushTransaction(ctx, tx1))
	saved := env.pool.State().MemBlock()
	require.NoError(t, env.pool.Close())

	env.pool = env.open()
	restored := env.pool.State().MemBlock()
	assert.Equal(t, saved.Withdrawals(), restored.Withdrawals())
	assert.Equal(t, saved.Txs(), restored.Txs())
	assert.Equal(t, saved.PostMerkleState(), restored.PostMerkleState())
	assert.Empty(t, env.pool.PendingRestoredTxHashes())
}

func TestRecoverDropsUnknownTransactions(t *testing.T) {
	env := newTestEnv(t)
	orphan := env.bob.transfer(t, 0, env.alice.scriptHash, 5, 1)
	rawdb.WriteMemPoolTransaction(env.store.Database(), orphan)

	env.pool = env.open()
	assert.Nil(t, env.pool.GetTransaction(orphan.Hash()))
	assert.Zero(t, env.pool.State().MemBlock().Len())
}

func TestReadOnlyRefreshMemBlock(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *Backend) { c.NodeMode = ReadOnlyNode })
	ctx := context.Background()
	w := env.alice.withdrawal(t, 0, 1000, 1)

	info := types.BlockInfo{BlockProducer: testProducer, Number: env.tip.NumberU64() + 1, Timestamp: 99_000}
	require.NoError(t, env.pool.RefreshMemBlock(ctx, &types.NextMemBlock{
		BlockInfo:   info,
		Withdrawals: []*types.WithdrawalRequestExtra{w},
	}))
	shared := env.pool.State()
	assert.Equal(t, info, shared.MemBlock().Info())
	assert.Equal(t, []common.Hash{w.Hash()}, shared.MemBlock().Withdrawals())

	// Past announcements are ignored.
	stale := info
	stale.Number = env.tip.NumberU64()
	require.NoError(t, env.pool.RefreshMemBlock(ctx, &types.NextMemBlock{BlockInfo: stale}))
	assert.Same(t, shared, env.pool.State())

	ahead := info
	ahead.Number += 2
	require.ErrorIs(t, env.pool.RefreshMemBlock(ctx, &types.NextMemBlock{BlockInfo: ahead}), ErrNotSynced)
}

func TestReadOnlyRejectsWithdrawals(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *Backend) { c.NodeMode = ReadOnlyNode })
	w := env.alice.withdrawal(t, 0, 1000, 1)

	err := env.pool.PushWithdrawalRequest(context.Background(), w)
	require.ErrorIs(t, err, ErrReadOnlyNode)
	assert.Equal(t, ClassValidation, ClassOf(err))
	assert.Nil(t, env.pool.GetWithdrawal(w.Hash()))
}

func TestReadOnlyResetPrunesBacklog(t *testing.T) {
	env := newTestEnv(t, func(c *Config, _ *Backend) { c.NodeMode = ReadOnlyNode })
	ctx := context.Background()

	included := env.alice.transfer(t, 0, env.bob.scriptHash, 10, 1)
	waiting := env.bob.transfer(t, 0, env.alice.scriptHash, 20, 1)
	require.NoError(t, env.pool.PushTransaction(ctx, included))
	require.NoError(t, env.pool.PushTransaction(ctx, waiting))
	require.True(t, env.pool.gen.pending.Contains(included.Hash()))

	next := env.insert(env.tip, 1, types.Transactions{included})
	require.NoError(t, env.pool.NotifyNewTip(ctx, next.Hash()))

	assert.Equal(t, next.Hash(), env.pool.CurrentTip())
	assert.False(t, env.pool.gen.pending.Contains(included.Hash()))
	assert.Nil(t, env.pool.GetTransaction(included.Hash()))
	assert.True(t, env.pool.gen.pending.Contains(waiting.Hash()))
	assert.Zero(t, env.pool.State().MemBlock().Len())
}

func TestSyncPublisherSeesMemBlocks(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockSyncPublisher(ctrl)
	var announced []*types.NextMemBlock
	publisher.EXPECT().PublishNextMemBlock(gomock.Any()).Do(func(next *types.NextMemBlock) {
		announced = append(announced, next)
	}).AnyTimes()
	publisher.EXPECT().PublishTransaction(gomock.Any()).Times(1)

	env := newTestEnv(t, func(_ *Config, b *Backend) { b.SyncPublisher = publisher })
	ctx := context.Background()
	w := env.alice.withdrawal(t, 0, 1000, 1)
	require.NoError(t, env.pool.PushWithdrawalRequest(ctx, w))
	require.NoError(t, env.pool.ResetMemBlock(ctx))
	require.NoError(t, env.pool.PushTransaction(ctx, env.bob.transfer(t, 0, env.alice.scriptHash, 1, 1)))

	require.NotEmpty(t, announced)
	last := announced[len(announced)-1]
	assert.Equal(t, env.pool.State().MemBlock().Info(), last.BlockInfo)
	require.Len(t, last.Withdrawals, 1)
	assert.Equal(t, w.Hash(), last.Withdrawals[0].Hash())
}

func TestAccountCreatorRegistersNewAddresses(t *testing.T) {
	env := newTestEnv(t)
	env.backend.AccountCreator = generator.NewAccountCreator(env.alice.key, testChainID)
	env.pool = env.open()
	ctx := context.Background()

	fresh := common.HexToHash("0xf4e54")
	require.NoError(t, env.pool.PushTransaction(ctx, env.bob.transfer(t, 0, fresh, 10, 1)))
	assert.Equal(t, []common.Hash{fresh}, env.pool.State().MemBlock().NewAddresses())

	require.NoError(t, env.pool.ResetMemBlock(ctx))
	shared := env.pool.State()
	_, ok := shared.State().GetAccountIDByScriptHash(fresh)
	assert.True(t, ok)
	assert.Empty(t, shared.MemBlock().NewAddresses())
	assert.Len(t, shared.MemBlock().Txs(), 2)
}
