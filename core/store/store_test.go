package store

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/rawdb"
	"github.com/dominant-strategies/go-quai-l2/core/state"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/log"
)

func newTestStore(t *testing.T) *Store {
	s, err := New(rawdb.NewMemoryDatabase(log.NewNullLogger()), log.NewNullLogger())
	require.NoError(t, err)
	return s
}

func child(parent *types.L2Block, salt byte) *types.L2Block {
	return types.NewBlock(types.RawL2Block{
		Number:          parent.NumberU64() + 1,
		ParentBlockHash: parent.Hash(),
		Timestamp:       parent.Timestamp() + 1000,
		BlockProducer:   common.BytesToHash([]byte{salt}),
	}, nil, nil, nil)
}

func TestGenesisAndState(t *testing.T) {
	s := newTestStore(t)
	require.Nil(t, s.GetTipBlock())

	st := state.New()
	owner := common.HexToHash("0xaa")
	require.NoError(t, st.ApplyDepositRequest(&types.DepositRequest{Capacity: 10, ScriptHash: owner}))
	genesis, err := s.InitGenesis(st, 1000)
	require.NoError(t, err)
	require.Equal(t, genesis.Hash(), s.GetTipBlockHash())

	again, err := s.InitGenesis(state.New(), 5)
	require.NoError(t, err)
	require.Equal(t, genesis.Hash(), again.Hash())

	loaded, err := s.StateAt(genesis.Hash())
	require.NoError(t, err)
	require.Equal(t, uint64(10), loaded.GetBalance(state.CKBSudtID, owner).Uint64())

	// Copies never alias the cached state.
	require.NoError(t, loaded.AddBalance(state.CKBSudtID, owner, uint256.NewInt(1)))
	reloaded, err := s.StateAt(genesis.Hash())
	require.NoError(t, err)
	require.Equal(t, uint64(10), reloaded.GetBalance(state.CKBSudtID, owner).Uint64())

	_, err = s.StateAt(common.HexToHash("0x01"))
	require.ErrorIs(t, err, ErrBlockNotFound)
}

func TestInsertAndSetHead(t *testing.T) {
	s := newTestStore(t)
	genesis, err := s.InitGenesis(state.New(), 0)
	require.NoError(t, err)

	a1 := child(genesis, 1)
	a2 := child(a1, 1)
	b1 := child(genesis, 2)
	deposit := &types.DepositInfo{
		Request:    types.DepositRequest{Capacity: 5, SudtScriptHash: common.HexToHash("0x5d"), Amount: *uint256.NewInt(1)},
		SudtScript: []byte("script"),
	}
	for _, b := range []*types.L2Block{a1, a2} {
		require.NoError(t, s.InsertBlock(b, BlockData{PostState: state.New(), Deposits: []*types.DepositInfo{deposit}}))
	}
	require.Equal(t, a2.Hash(), s.GetTipBlockHash())
	require.Equal(t, []byte("script"), s.GetAssetScript(common.HexToHash("0x5d")))
	require.Len(t, s.GetBlockDeposits(a1.Hash()), 1)
	require.NotNil(t, s.GetBlockPostFinalizedCustodianCapacity(a1.Hash()))

	// A lower block does not move the tip.
	require.NoError(t, s.InsertBlock(b1, BlockData{PostState: state.New()}))
	require.Equal(t, a2.Hash(), s.GetTipBlockHash())
	require.Equal(t, a1.Hash(), s.GetCanonicalHash(1))

	require.NoError(t, s.SetHead(b1.Hash()))
	require.Equal(t, b1.Hash(), s.GetTipBlockHash())
	require.Equal(t, b1.Hash(), s.GetCanonicalHash(1))
	require.Equal(t, genesis.Hash(), s.GetCanonicalHash(0))

	require.ErrorIs(t, s.SetHead(common.HexToHash("0x02")), ErrBlockNotFound)
}

func TestVersionMismatch(t *testing.T) {
	db := rawdb.NewMemoryDatabase(log.NewNullLogger())
	rawdb.WriteDatabaseVersion(db, databaseVersion+1)
	_, err := New(db, log.NewNullLogger())
	require.Error(t, err)
}
