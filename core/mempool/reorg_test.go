package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/log"
)

type mapLookup struct {
	blocks      map[common.Hash]*types.L2Block
	withdrawals map[common.Hash]*types.WithdrawalRequestExtra
	lookups     int
}

func newMapLookup() *mapLookup {
	return &mapLookup{
		blocks:      make(map[common.Hash]*types.L2Block),
		withdrawals: make(map[common.Hash]*types.WithdrawalRequestExtra),
	}
}

func (l *mapLookup) GetBlock(hash common.Hash) *types.L2Block {
	l.lookups++
	return l.blocks[hash]
}

func (l *mapLookup) GetWithdrawal(hash common.Hash) *types.WithdrawalRequestExtra {
	return l.withdrawals[hash]
}

// child adds a block on parent carrying txs and ws. salt tells siblings apart.
func (l *mapLookup) child(parent *types.L2Block, salt byte, txs types.Transactions, ws ...*types.WithdrawalRequestExtra) *types.L2Block {
	reqs := make([]*types.WithdrawalRequest, len(ws))
	for i, w := range ws {
		reqs[i] = &w.Request
		l.withdrawals[w.Hash()] = w
	}
	var (
		number     uint64
		parentHash common.Hash
	)
	if parent != nil {
		number, parentHash = parent.NumberU64()+1, parent.Hash()
	}
	b := types.NewBlock(types.RawL2Block{
		Number:          number,
		ParentBlockHash: parentHash,
		BlockProducer:   common.BytesToHash([]byte{salt}),
	}, txs, reqs, nil)
	l.blocks[b.Hash()] = b
	return b
}

func (l *mapLookup) chain(from *types.L2Block, n int, salt byte) []*types.L2Block {
	blocks := make([]*types.L2Block, n)
	for i := range blocks {
		from = l.child(from, salt, nil)
		blocks[i] = from
	}
	return blocks
}

func TestReorgPlanOrder(t *testing.T) {
	l := newMapLookup()
	genesis := l.child(nil, 0, nil)
	h := l.chain(genesis, 3, 0)[2]

	shared := fakeTx(1, 0)
	wShared, wDropped := fakeWithdrawal(1, 0, 1, 0), fakeWithdrawal(2, 0, 1, 0)
	a1 := l.child(h, 'a', types.Transactions{fakeTx(1, 1), shared}, wDropped)
	a2 := l.child(a1, 'a', types.Transactions{fakeTx(1, 2)}, wShared)
	a3 := l.child(a2, 'a', types.Transactions{fakeTx(1, 3), fakeTx(2, 0)})
	b1 := l.child(h, 'b', types.Transactions{shared})
	b2 := l.child(b1, 'b', nil, wShared)

	plan, err := NewReorgResolver(l, log.NewNullLogger()).Plan(a3, b2)
	require.NoError(t, err)
	assert.False(t, plan.DepthExceeded)
	assert.Equal(t, uint64(1), plan.Depth)
	assert.Equal(t, types.Transactions{fakeTx(1, 1), fakeTx(1, 2), fakeTx(1, 3), fakeTx(2, 0)}, types.Transactions(plan.Txs))
	assert.Equal(t, []*types.WithdrawalRequestExtra{wDropped}, plan.Withdrawals)
}

func TestReorgPlanShorterOldChain(t *testing.T) {
	l := newMapLookup()
	genesis := l.child(nil, 0, nil)
	a1 := l.child(genesis, 'a', types.Transactions{fakeTx(1, 0)})
	b := l.chain(genesis, 4, 'b')

	plan, err := NewReorgResolver(l, log.NewNullLogger()).Plan(a1, b[3])
	require.NoError(t, err)
	assert.Equal(t, uint64(3), plan.Depth)
	assert.Equal(t, []*types.L2Transaction{fakeTx(1, 0)}, plan.Txs)
}

func TestReorgPlanTooDeep(t *testing.T) {
	l := newMapLookup()
	genesis := l.child(nil, 0, nil)
	a := l.chain(genesis, maxReorgDepth+2, 'a')
	b1 := l.child(genesis, 'b', nil)
	l.lookups = 0

	plan, err := NewReorgResolver(l, log.NewNullLogger()).Plan(a[len(a)-1], b1)
	require.NoError(t, err)
	assert.True(t, plan.DepthExceeded)
	assert.Empty(t, plan.Txs)
	assert.Empty(t, plan.Withdrawals)
	assert.Zero(t, l.lookups, "no ancestor is visited past the depth bound")
}

func TestReorgPlanWithinBound(t *testing.T) {
	l := newMapLookup()
	genesis := l.child(nil, 0, nil)
	a := l.chain(genesis, maxReorgDepth, 'a')
	b1 := l.child(genesis, 'b', nil)

	plan, err := NewReorgResolver(l, log.NewNullLogger()).Plan(a[len(a)-1], b1)
	require.NoError(t, err)
	assert.False(t, plan.DepthExceeded)
	assert.LessOrEqual(t, l.lookups, maxReorgSteps)
}

func TestReorgPlanMissingAncestor(t *testing.T) {
	l := newMapLookup()
	genesis := l.child(nil, 0, nil)
	a := l.chain(genesis, 3, 'a')
	b := l.chain(genesis, 2, 'b')
	delete(l.blocks, a[0].Hash())

	_, err := NewReorgResolver(l, log.NewNullLogger()).Plan(a[2], b[1])
	require.ErrorIs(t, err, ErrStorageInvariant)
}

func TestReorgPlanMissingWithdrawal(t *testing.T) {
	l := newMapLookup()
	genesis := l.child(nil, 0, nil)
	w := fakeWithdrawal(1, 0, 1, 0)
	a1 := l.child(genesis, 'a', nil, w)
	b1 := l.child(genesis, 'b', nil)
	delete(l.withdrawals, w.Hash())

	_, err := NewReorgResolver(l, log.NewNullLogger()).Plan(a1, b1)
	require.ErrorIs(t, err, ErrStorageInvariant)
}
