// Package state provides the account state the mem-pool executes against.
package state

import (
	"github.com/holiman/uint256"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
)

// Reader is the read half of State.
type Reader interface {
	GetAccountCount() uint32
	GetNonce(id uint32) (uint32, error)
	GetScriptHash(id uint32) (common.Hash, error)
	GetAccountIDByScriptHash(scriptHash common.Hash) (uint32, bool)

	// Balances are keyed by the owner's registry address, which may not
	// have an account yet.
	GetBalance(sudtID uint32, owner common.Hash) *uint256.Int
	GetSudtID(l1SudtScriptHash common.Hash) (uint32, bool)

	CalculateMerkleState() types.AccountMerkleState
	CalculateStateCheckpoint() common.Hash
}

// State is the mutable account state view. Every mutation is journaled so
// that it can be reverted to an earlier Snapshot until Finalise is called.
type State interface {
	Reader

	SetNonce(id uint32, nonce uint32) error
	CreateAccount(scriptHash common.Hash) (uint32, error)
	AddBalance(sudtID uint32, owner common.Hash, amount *uint256.Int) error
	SubBalance(sudtID uint32, owner common.Hash, amount *uint256.Int) error

	ApplyDepositRequest(req *types.DepositRequest) error
	ApplyWithdrawalRequest(producer common.Hash, req *types.RawWithdrawalRequest) error

	Snapshot() int
	RevertToSnapshot(revid int)
	Finalise()
	TouchedKeys() []common.Hash

	Copy() State
	Dump() ([]byte, error)
}

// ReadOnly returns a Reader of st that cannot be converted back to a State.
// The caller must stop writing to st once the Reader is shared.
func ReadOnly(st State) Reader {
	return readOnly{st: st}
}

type readOnly struct {
	st State
}

func (r readOnly) GetAccountCount() uint32 { return r.st.GetAccountCount() }

func (r readOnly) GetNonce(id uint32) (uint32, error) { return r.st.GetNonce(id) }

func (r readOnly) GetScriptHash(id uint32) (common.Hash, error) { return r.st.GetScriptHash(id) }

func (r readOnly) GetAccountIDByScriptHash(scriptHash common.Hash) (uint32, bool) {
	return r.st.GetAccountIDByScriptHash(scriptHash)
}

func (r readOnly) GetBalance(sudtID uint32, owner common.Hash) *uint256.Int {
	return r.st.GetBalance(sudtID, owner)
}

func (r readOnly) GetSudtID(l1SudtScriptHash common.Hash) (uint32, bool) {
	return r.st.GetSudtID(l1SudtScriptHash)
}

func (r readOnly) CalculateMerkleState() types.AccountMerkleState {
	return r.st.CalculateMerkleState()
}

func (r readOnly) CalculateStateCheckpoint() common.Hash { return r.st.CalculateStateCheckpoint() }
