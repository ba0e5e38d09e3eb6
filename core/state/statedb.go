package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/holiman/uint256"
	"lukechampine.com/blake3"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/crypto"
)

const (
	// MetaAccountID is reserved for the rollup's meta contract.
	MetaAccountID uint32 = 0
	// CKBSudtID is the account of the native CKB token.
	CKBSudtID uint32 = 1
)

var (
	MetaScriptHash    = crypto.Keccak256Hash([]byte("meta"))
	CKBSudtScriptHash = crypto.Keccak256Hash([]byte("ckb-sudt"))
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrSudtNotFound        = errors.New("sudt account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrNonceMismatch       = errors.New("nonce mismatch")
)

var _ State = (*StateDB)(nil)

type revision struct {
	id           int
	journalIndex int
}

// StateDB is a flat, in-memory account state. Keys are derived hashes of the
// account fields and the root commits to every non-empty key in order.
type StateDB struct {
	kv    map[common.Hash][]byte
	count uint32

	journal        *journal
	validRevisions []revision
	nextRevisionId int

	// keys written since the last Finalise, with their write count
	touched map[common.Hash]int

	// root caches CalculateMerkleState until the next write.
	root atomic.Pointer[types.AccountMerkleState]
}

// New returns a state holding only the reserved accounts.
func New() *StateDB {
	s := newEmpty()
	s.mustCreate(MetaScriptHash)
	s.mustCreate(CKBSudtScriptHash)
	s.Finalise()
	return s
}

func newEmpty() *StateDB {
	return &StateDB{
		kv:      make(map[common.Hash][]byte),
		journal: new(journal),
		touched: make(map[common.Hash]int),
	}
}

func (s *StateDB) mustCreate(scriptHash common.Hash) {
	if _, err := s.CreateAccount(scriptHash); err != nil {
		panic(err)
	}
}

func (s *StateDB) get(key common.Hash) []byte {
	return s.kv[key]
}

func (s *StateDB) set(key common.Hash, value []byte) {
	prev, existed := s.kv[key]
	s.journal.append(storageChange{key: key, prev: prev, existed: existed})
	if len(value) == 0 {
		delete(s.kv, key)
	} else {
		s.kv[key] = common.CopyBytes(value)
	}
	s.touched[key]++
	s.root.Store(nil)
}

func (s *StateDB) untouch(key common.Hash) {
	if s.touched[key] <= 1 {
		delete(s.touched, key)
		return
	}
	s.touched[key]--
}

func (s *StateDB) GetAccountCount() uint32 {
	return s.count
}

func (s *StateDB) GetNonce(id uint32) (uint32, error) {
	if id >= s.count {
		return 0, fmt.Errorf("%w: id %d", ErrAccountNotFound, id)
	}
	data := s.get(nonceKey(id))
	if len(data) != 4 {
		return 0, nil
	}
	return binary.BigEndian.Uint32(data), nil
}

func (s *StateDB) SetNonce(id uint32, nonce uint32) error {
	if id >= s.count {
		return fmt.Errorf("%w: id %d", ErrAccountNotFound, id)
	}
	if nonce == 0 {
		s.set(nonceKey(id), nil)
		return nil
	}
	enc := make([]byte, 4)
	binary.BigEndian.PutUint32(enc, nonce)
	s.set(nonceKey(id), enc)
	return nil
}

func (s *StateDB) GetScriptHash(id uint32) (common.Hash, error) {
	data := s.get(scriptHashKey(id))
	if len(data) == 0 {
		return common.Hash{}, fmt.Errorf("%w: id %d", ErrAccountNotFound, id)
	}
	return common.BytesToHash(data), nil
}

func (s *StateDB) GetAccountIDByScriptHash(scriptHash common.Hash) (uint32, bool) {
	data := s.get(accountIDKey(scriptHash))
	if len(data) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(data), true
}

// CreateAccount registers scriptHash under the next account id.
func (s *StateDB) CreateAccount(scriptHash common.Hash) (uint32, error) {
	if _, ok := s.GetAccountIDByScriptHash(scriptHash); ok {
		return 0, fmt.Errorf("%w: %s", ErrAccountExists, scriptHash.TerminalString())
	}
	id := s.count
	enc := make([]byte, 4)
	binary.BigEndian.PutUint32(enc, id)
	s.set(accountIDKey(scriptHash), enc)
	s.set(scriptHashKey(id), scriptHash.Bytes())
	s.journal.append(accountCountChange{prev: s.count})
	s.count++
	s.root.Store(nil)
	return id, nil
}

func (s *StateDB) GetBalance(sudtID uint32, owner common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes(s.get(balanceKey(sudtID, owner)))
}

func (s *StateDB) setBalance(sudtID uint32, owner common.Hash, amount *uint256.Int) {
	if amount.IsZero() {
		s.set(balanceKey(sudtID, owner), nil)
		return
	}
	enc := amount.Bytes32()
	s.set(balanceKey(sudtID, owner), enc[:])
}

func (s *StateDB) AddBalance(sudtID uint32, owner common.Hash, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	sum, overflow := new(uint256.Int).AddOverflow(s.GetBalance(sudtID, owner), amount)
	if overflow {
		return ErrBalanceOverflow
	}
	s.setBalance(sudtID, owner, sum)
	return nil
}

func (s *StateDB) SubBalance(sudtID uint32, owner common.Hash, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	balance := s.GetBalance(sudtID, owner)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: have %s want %s", ErrInsufficientBalance, balance.ToBig(), amount.ToBig())
	}
	s.setBalance(sudtID, owner, balance.Sub(balance, amount))
	return nil
}

// GetSudtID returns the layer 2 account of the base chain token with the
// given script hash.
func (s *StateDB) GetSudtID(l1SudtScriptHash common.Hash) (uint32, bool) {
	if l1SudtScriptHash == (common.Hash{}) {
		return CKBSudtID, true
	}
	return s.GetAccountIDByScriptHash(SudtAccountScriptHash(l1SudtScriptHash))
}

// ApplyDepositRequest credits a deposit, registering the depositor and the
// token account if they are missing.
func (s *StateDB) ApplyDepositRequest(req *types.DepositRequest) error {
	if _, ok := s.GetAccountIDByScriptHash(req.ScriptHash); !ok {
		if _, err := s.CreateAccount(req.ScriptHash); err != nil {
			return err
		}
	}
	if err := s.AddBalance(CKBSudtID, req.ScriptHash, uint256.NewInt(req.Capacity)); err != nil {
		return err
	}
	if req.SudtScriptHash == (common.Hash{}) || req.Amount.IsZero() {
		return nil
	}
	sudtID, ok := s.GetSudtID(req.SudtScriptHash)
	if !ok {
		var err error
		if sudtID, err = s.CreateAccount(SudtAccountScriptHash(req.SudtScriptHash)); err != nil {
			return err
		}
	}
	return s.AddBalance(sudtID, req.ScriptHash, &req.Amount)
}

// ApplyWithdrawalRequest debits a withdrawal from its owner, pays the fee to
// the block producer and bumps the owner's nonce.
func (s *StateDB) ApplyWithdrawalRequest(producer common.Hash, req *types.RawWithdrawalRequest) error {
	id, ok := s.GetAccountIDByScriptHash(req.AccountScriptHash)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, req.AccountScriptHash.TerminalString())
	}
	nonce, err := s.GetNonce(id)
	if err != nil {
		return err
	}
	if nonce != req.Nonce {
		return fmt.Errorf("%w: expected %d got %d", ErrNonceMismatch, nonce, req.Nonce)
	}
	if req.SudtScriptHash != (common.Hash{}) && !req.Amount.IsZero() {
		sudtID, ok := s.GetSudtID(req.SudtScriptHash)
		if !ok {
			return ErrSudtNotFound
		}
		if err := s.SubBalance(sudtID, req.AccountScriptHash, &req.Amount); err != nil {
			return err
		}
	}
	if err := s.SubBalance(CKBSudtID, req.AccountScriptHash, uint256.NewInt(req.Capacity)); err != nil {
		return err
	}
	if req.Fee > 0 {
		fee := uint256.NewInt(req.Fee)
		if err := s.SubBalance(CKBSudtID, req.AccountScriptHash, fee); err != nil {
			return err
		}
		if err := s.AddBalance(CKBSudtID, producer, fee); err != nil {
			return err
		}
	}
	return s.SetNonce(id, nonce+1)
}

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	id := s.nextRevisionId
	s.nextRevisionId++
	s.validRevisions = append(s.validRevisions, revision{id, s.journal.length()})
	return id
}

// RevertToSnapshot reverts all state changes made since the given revision.
func (s *StateDB) RevertToSnapshot(revid int) {
	// Find the snapshot in the stack of valid snapshots.
	idx := sort.Search(len(s.validRevisions), func(i int) bool {
		return s.validRevisions[i].id >= revid
	})
	if idx == len(s.validRevisions) || s.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snapshot := s.validRevisions[idx].journalIndex

	// Replay the journal to undo changes and remove invalidated snapshots
	s.journal.revert(s, snapshot)
	s.validRevisions = s.validRevisions[:idx]
}

// Finalise drops the journal and the touched key set. Changes made so far
// can no longer be reverted.
func (s *StateDB) Finalise() {
	s.journal = new(journal)
	s.validRevisions = s.validRevisions[:0]
	s.touched = make(map[common.Hash]int)
}

// TouchedKeys returns the keys written since the last Finalise in ascending
// order.
func (s *StateDB) TouchedKeys() []common.Hash {
	keys := make([]common.Hash, 0, len(s.touched))
	for k := range s.touched {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func (s *StateDB) sortedKeys() []common.Hash {
	keys := make([]common.Hash, 0, len(s.kv))
	for k := range s.kv {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// CalculateMerkleState commits to the full key set and the account count.
// Concurrent callers are safe as long as nobody writes.
func (s *StateDB) CalculateMerkleState() types.AccountMerkleState {
	if root := s.root.Load(); root != nil {
		return *root
	}
	hasher := blake3.New(common.HashLength, nil)
	for _, k := range s.sortedKeys() {
		hasher.Write(k[:])
		hasher.Write(s.kv[k])
	}
	root := &types.AccountMerkleState{
		MerkleRoot: common.BytesToHash(hasher.Sum(nil)),
		Count:      s.count,
	}
	s.root.Store(root)
	return *root
}

// CalculateStateCheckpoint binds the current root and account count.
func (s *StateDB) CalculateStateCheckpoint() common.Hash {
	return Checkpoint(s.CalculateMerkleState())
}

// Checkpoint computes the state checkpoint of a merkle state.
func Checkpoint(m types.AccountMerkleState) common.Hash {
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], m.Count)
	return crypto.Keccak256Hash(m.MerkleRoot.Bytes(), count[:])
}

// Copy returns an independent state with an empty journal.
func (s *StateDB) Copy() State {
	cpy := newEmpty()
	for k, v := range s.kv {
		cpy.kv[k] = v
	}
	cpy.count = s.count
	cpy.root.Store(s.root.Load())
	return cpy
}
