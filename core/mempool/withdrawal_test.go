package mempool

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/crypto"
)

func TestWithdrawalGeneratorCapacity(t *testing.T) {
	custodian := &types.FinalizedCustodianCapacity{Capacity: *uint256.NewInt(150)}
	g := NewWithdrawalGenerator(custodian)

	require.NoError(t, g.IncludeAndVerify(fakeWithdrawal(1, 0, 100, 0)))
	err := g.IncludeAndVerify(fakeWithdrawal(1, 1, 100, 0))
	require.ErrorIs(t, err, ErrInsufficientCustodian)
	require.NoError(t, g.IncludeAndVerify(fakeWithdrawal(1, 1, 50, 0)))

	assert.True(t, g.RemainingCapacity().Capacity.IsZero())
	assert.Len(t, g.Included(), 2)
	assert.Equal(t, uint64(150), custodian.Capacity.Uint64(), "the input capacity is copied")
}

func TestWithdrawalGeneratorSudt(t *testing.T) {
	sudt := common.HexToHash("0x5d")
	g := NewWithdrawalGenerator(&types.FinalizedCustodianCapacity{
		Capacity: *uint256.NewInt(1000),
		Sudt:     []types.SudtCustodian{{ScriptHash: sudt, Amount: *uint256.NewInt(10)}},
	})

	w := fakeWithdrawal(1, 0, 10, 0)
	w.Request.Raw.SudtScriptHash = sudt
	w.Request.Raw.Amount = *uint256.NewInt(7)
	require.NoError(t, g.IncludeAndVerify(w))

	amount, ok := g.RemainingCapacity().SudtAmount(sudt)
	require.True(t, ok)
	assert.Equal(t, uint64(3), amount.Uint64())
	assert.Equal(t, uint64(990), g.RemainingCapacity().Capacity.Uint64())

	w2 := fakeWithdrawal(1, 1, 10, 0)
	w2.Request.Raw.SudtScriptHash = sudt
	w2.Request.Raw.Amount = *uint256.NewInt(4)
	require.ErrorIs(t, g.VerifyRemainingAmount(w2.Raw()), ErrInsufficientCustodian)

	w2.Request.Raw.SudtScriptHash = common.HexToHash("0x5e")
	require.ErrorIs(t, g.VerifyRemainingAmount(w2.Raw()), ErrInsufficientCustodian)
}

func TestWithdrawalGeneratorOwnerLock(t *testing.T) {
	g := NewWithdrawalGenerator(&types.FinalizedCustodianCapacity{Capacity: *uint256.NewInt(1000)})
	w := fakeWithdrawal(1, 0, 10, 0)
	w.OwnerLock = []byte("someone else")
	require.ErrorIs(t, g.IncludeAndVerify(w), ErrOwnerLockMismatch)

	w.Request.Raw.OwnerLockHash = crypto.Keccak256Hash(w.OwnerLock)
	require.NoError(t, g.IncludeAndVerify(w))
	assert.Equal(t, uint64(990), g.RemainingCapacity().Capacity.Uint64())
}

func TestWithdrawalCost(t *testing.T) {
	w := fakeWithdrawal(1, 0, ^uint64(0), 1)
	want := new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	assert.Equal(t, want, withdrawalCost(w.Raw()), "capacity and fee add without wrapping")
}
