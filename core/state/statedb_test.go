package state

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
)

var (
	alice = common.HexToHash("0xa11ce")
	bob   = common.HexToHash("0xb0b")
	sudt  = common.HexToHash("0x5d7")
)

func deposit(t *testing.T, s *StateDB, owner common.Hash, capacity uint64) uint32 {
	t.Helper()
	require.NoError(t, s.ApplyDepositRequest(&types.DepositRequest{Capacity: capacity, ScriptHash: owner}))
	id, ok := s.GetAccountIDByScriptHash(owner)
	require.True(t, ok)
	return id
}

func TestReservedAccounts(t *testing.T) {
	s := New()
	require.Equal(t, uint32(2), s.GetAccountCount())
	h, err := s.GetScriptHash(CKBSudtID)
	require.NoError(t, err)
	require.Equal(t, CKBSudtScriptHash, h)
	require.Empty(t, s.TouchedKeys())

	_, err = s.GetNonce(5)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestDepositCreatesAccounts(t *testing.T) {
	s := New()
	id := deposit(t, s, alice, 1000)
	require.Equal(t, uint32(2), id)
	require.Equal(t, uint64(1000), s.GetBalance(CKBSudtID, alice).Uint64())

	require.NoError(t, s.ApplyDepositRequest(&types.DepositRequest{
		Capacity:       10,
		Amount:         *uint256.NewInt(50),
		SudtScriptHash: sudt,
		ScriptHash:     alice,
	}))
	sudtID, ok := s.GetSudtID(sudt)
	require.True(t, ok)
	require.Equal(t, uint32(3), sudtID)
	require.Equal(t, uint64(50), s.GetBalance(sudtID, alice).Uint64())
	require.Equal(t, uint64(1010), s.GetBalance(CKBSudtID, alice).Uint64())
	require.Equal(t, uint32(4), s.GetAccountCount())
}

func TestApplyWithdrawal(t *testing.T) {
	s := New()
	producer := common.HexToHash("0x9999")
	id := deposit(t, s, alice, 1000)

	req := &types.RawWithdrawalRequest{AccountScriptHash: alice, Capacity: 600, Fee: 10}
	require.NoError(t, s.ApplyWithdrawalRequest(producer, req))
	assert.Equal(t, uint64(390), s.GetBalance(CKBSudtID, alice).Uint64())
	assert.Equal(t, uint64(10), s.GetBalance(CKBSudtID, producer).Uint64())
	nonce, err := s.GetNonce(id)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), nonce)

	// replay of the same nonce
	require.ErrorIs(t, s.ApplyWithdrawalRequest(producer, req), ErrNonceMismatch)

	req = &types.RawWithdrawalRequest{AccountScriptHash: alice, Capacity: 600, Nonce: 1}
	require.ErrorIs(t, s.ApplyWithdrawalRequest(producer, req), ErrInsufficientBalance)

	req = &types.RawWithdrawalRequest{AccountScriptHash: bob, Capacity: 1}
	require.ErrorIs(t, s.ApplyWithdrawalRequest(producer, req), ErrAccountNotFound)
}

func TestSnapshotRevert(t *testing.T) {
	s := New()
	deposit(t, s, alice, 1000)
	s.Finalise()
	before := s.CalculateMerkleState()

	rev := s.Snapshot()
	deposit(t, s, bob, 5)
	require.NotEmpty(t, s.TouchedKeys())
	require.NotEqual(t, before, s.CalculateMerkleState())

	s.RevertToSnapshot(rev)
	require.Equal(t, before, s.CalculateMerkleState())
	require.Empty(t, s.TouchedKeys())
	_, ok := s.GetAccountIDByScriptHash(bob)
	require.False(t, ok)

	require.Panics(t, func() { s.RevertToSnapshot(rev) })
}

func TestNestedSnapshotKeepsOuterTouches(t *testing.T) {
	s := New()
	deposit(t, s, alice, 1000)
	touched := s.TouchedKeys()

	rev := s.Snapshot()
	require.NoError(t, s.AddBalance(CKBSudtID, alice, uint256.NewInt(1)))
	s.RevertToSnapshot(rev)
	require.Equal(t, touched, s.TouchedKeys())

	s.Finalise()
	require.Empty(t, s.TouchedKeys())
}

func TestCheckpointTracksCount(t *testing.T) {
	s := New()
	m := s.CalculateMerkleState()
	require.Equal(t, Checkpoint(m), s.CalculateStateCheckpoint())
	require.NotEqual(t, Checkpoint(m), Checkpoint(types.AccountMerkleState{MerkleRoot: m.MerkleRoot, Count: m.Count + 1}))
}

func TestCopyAndDump(t *testing.T) {
	s := New()
	deposit(t, s, alice, 1000)

	cpy := s.Copy()
	require.NoError(t, cpy.AddBalance(CKBSudtID, alice, uint256.NewInt(1)))
	require.Equal(t, uint64(1000), s.GetBalance(CKBSudtID, alice).Uint64())

	enc, err := s.Dump()
	require.NoError(t, err)
	loaded, err := Load(enc)
	require.NoError(t, err)
	require.Equal(t, s.CalculateMerkleState(), loaded.CalculateMerkleState())
	require.Equal(t, uint64(1000), loaded.GetBalance(CKBSudtID, alice).Uint64())
}

func freshRoot(t *testing.T, s *StateDB) types.AccountMerkleState {
	t.Helper()
	enc, err := s.Dump()
	require.NoError(t, err)
	loaded, err := Load(enc)
	require.NoError(t, err)
	return loaded.CalculateMerkleState()
}

func TestMerkleStateCacheFollowsWrites(t *testing.T) {
	s := New()
	deposit(t, s, alice, 1000)
	s.Finalise()
	before := s.CalculateMerkleState()
	require.Equal(t, before, s.CalculateMerkleState())

	rev := s.Snapshot()
	require.NoError(t, s.AddBalance(CKBSudtID, alice, uint256.NewInt(5)))
	afterWrite := s.CalculateMerkleState()
	assert.NotEqual(t, before, afterWrite)
	assert.Equal(t, freshRoot(t, s), afterWrite)

	_, err := s.CreateAccount(bob)
	require.NoError(t, err)
	afterCreate := s.CalculateMerkleState()
	assert.Equal(t, afterWrite.Count+1, afterCreate.Count)
	assert.Equal(t, freshRoot(t, s), afterCreate)

	s.RevertToSnapshot(rev)
	assert.Equal(t, before, s.CalculateMerkleState())
}

func TestCopyKeepsRootIndependent(t *testing.T) {
	s := New()
	deposit(t, s, alice, 1000)
	root := s.CalculateMerkleState()

	cpy := s.Copy()
	assert.Equal(t, root, cpy.CalculateMerkleState())
	require.NoError(t, cpy.AddBalance(CKBSudtID, alice, uint256.NewInt(1)))
	assert.NotEqual(t, root, cpy.CalculateMerkleState())
	assert.Equal(t, root, s.CalculateMerkleState())
}

func TestReadOnlyHidesMutators(t *testing.T) {
	s := New()
	deposit(t, s, alice, 1000)

	r := ReadOnly(s)
	_, ok := r.(State)
	assert.False(t, ok)
	assert.Equal(t, uint64(1000), r.GetBalance(CKBSudtID, alice).Uint64())
	assert.Equal(t, s.CalculateMerkleState(), r.CalculateMerkleState())
	assert.Equal(t, s.CalculateStateCheckpoint(), r.CalculateStateCheckpoint())
	assert.Equal(t, s.GetAccountCount(), r.GetAccountCount())
}
