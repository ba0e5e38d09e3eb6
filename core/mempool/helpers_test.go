package mempool

import (
	"fmt"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/generator"
	"github.com/dominant-strategies/go-quai-l2/core/state"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/crypto"
)

const testChainID = 7

type testAccount struct {
	key        *secp256k1.PrivateKey
	scriptHash common.Hash
	id         uint32
	ownerLock  []byte
}

func newTestAccount(t *testing.T, st state.State, capacity uint64) *testAccount {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToScriptHash(key.PubKey())
	require.NoError(t, st.ApplyDepositRequest(&types.DepositRequest{Capacity: capacity, ScriptHash: owner}))
	st.Finalise()
	id, ok := st.GetAccountIDByScriptHash(owner)
	require.True(t, ok)
	return &testAccount{
		key:        key,
		scriptHash: owner,
		id:         id,
		ownerLock:  []byte(fmt.Sprintf("lock-%d", id)),
	}
}

func (a *testAccount) sign(t *testing.T, nonce uint32, args *generator.CallArgs) *types.L2Transaction {
	t.Helper()
	tx, err := types.SignTransaction(types.RawL2Transaction{
		ChainID: testChainID,
		FromID:  a.id,
		ToID:    state.CKBSudtID,
		Nonce:   nonce,
		Args:    args.Encode(),
	}, a.key)
	require.NoError(t, err)
	return tx
}

func (a *testAccount) transfer(t *testing.T, nonce uint32, to common.Hash, amount, fee uint64) *types.L2Transaction {
	t.Helper()
	return a.sign(t, nonce, &generator.CallArgs{
		Kind:   generator.ArgsTransfer,
		To:     to,
		Amount: *uint256.NewInt(amount),
		Fee:    fee,
	})
}

func (a *testAccount) withdrawal(t *testing.T, nonce uint32, capacity, fee uint64) *types.WithdrawalRequestExtra {
	t.Helper()
	req, err := types.SignWithdrawal(types.RawWithdrawalRequest{
		Nonce:             nonce,
		ChainID:           testChainID,
		Capacity:          capacity,
		AccountScriptHash: a.scriptHash,
		OwnerLockHash:     crypto.Keccak256Hash(a.ownerLock),
		Fee:               fee,
	}, a.key)
	require.NoError(t, err)
	return &types.WithdrawalRequestExtra{Request: *req, OwnerLock: a.ownerLock}
}

// fakeTx returns an unsigned transaction that is unique per (from, nonce).
func fakeTx(from, nonce uint32) *types.L2Transaction {
	return &types.L2Transaction{Raw: types.RawL2Transaction{ChainID: testChainID, FromID: from, Nonce: nonce}}
}

// fakeWithdrawal returns an unsigned withdrawal of account with the given
// capacity and fee.
func fakeWithdrawal(account byte, nonce uint32, capacity, fee uint64) *types.WithdrawalRequestExtra {
	lock := []byte{account}
	return &types.WithdrawalRequestExtra{
		Request: types.WithdrawalRequest{Raw: types.RawWithdrawalRequest{
			Nonce:             nonce,
			ChainID:           testChainID,
			Capacity:          capacity,
			AccountScriptHash: common.BytesToHash([]byte{account}),
			OwnerLockHash:     crypto.Keccak256Hash(lock),
			Fee:               fee,
		}},
		OwnerLock: lock,
	}
}

func merkleState(n byte) types.AccountMerkleState {
	return types.AccountMerkleState{MerkleRoot: common.BytesToHash([]byte{n}), Count: uint32(n)}
}

func fakeDeposit(n byte) *types.DepositInfo {
	return &types.DepositInfo{Request: types.DepositRequest{
		Capacity:   uint64(n) + 1,
		ScriptHash: common.BytesToHash([]byte{0xde, n}),
	}}
}
