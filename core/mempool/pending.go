package mempool

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/btree"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
)

const pendingBTreeDegree = 8

// PendingEntry is the backlog of one account, ordered by nonce.
type PendingEntry struct {
	txs         *btree.BTreeG[*types.L2Transaction]
	withdrawals *btree.BTreeG[*types.WithdrawalRequestExtra]
}

func newPendingEntry() *PendingEntry {
	return &PendingEntry{
		txs: btree.NewG(pendingBTreeDegree, func(a, b *types.L2Transaction) bool {
			return a.Nonce() < b.Nonce()
		}),
		withdrawals: btree.NewG(pendingBTreeDegree, func(a, b *types.WithdrawalRequestExtra) bool {
			return a.Raw().Nonce < b.Raw().Nonce
		}),
	}
}

// Transactions returns the pending transactions in nonce order.
func (e *PendingEntry) Transactions() []*types.L2Transaction {
	txs := make([]*types.L2Transaction, 0, e.txs.Len())
	e.txs.Ascend(func(tx *types.L2Transaction) bool {
		txs = append(txs, tx)
		return true
	})
	return txs
}

// Withdrawals returns the pending withdrawals in nonce order.
func (e *PendingEntry) Withdrawals() []*types.WithdrawalRequestExtra {
	ws := make([]*types.WithdrawalRequestExtra, 0, e.withdrawals.Len())
	e.withdrawals.Ascend(func(w *types.WithdrawalRequestExtra) bool {
		ws = append(ws, w)
		return true
	})
	return ws
}

func (e *PendingEntry) empty() bool {
	return e.txs.Len() == 0 && e.withdrawals.Len() == 0
}

// withdrawalCost is the CKB an account must hold to pay out w.
func withdrawalCost(w *types.RawWithdrawalRequest) *uint256.Int {
	cost := uint256.NewInt(w.Capacity)
	if _, overflow := cost.AddOverflow(cost, uint256.NewInt(w.Fee)); overflow {
		cost.SetAllOne()
	}
	return cost
}

// PendingQueue is the per-account backlog of items that are not yet part of
// a block. Accounts are kept in order of their first admission.
type PendingQueue struct {
	entries *orderedmap.OrderedMap[uint32, *PendingEntry]
	known   mapset.Set[common.Hash]
}

func NewPendingQueue() *PendingQueue {
	return &PendingQueue{
		entries: orderedmap.New[uint32, *PendingEntry](),
		known:   mapset.NewThreadUnsafeSet[common.Hash](),
	}
}

// Clone returns an independent copy of q.
func (q *PendingQueue) Clone() *PendingQueue {
	cpy := &PendingQueue{
		entries: orderedmap.New[uint32, *PendingEntry](orderedmap.WithCapacity[uint32, *PendingEntry](q.entries.Len())),
		known:   q.known.Clone(),
	}
	for pair := q.entries.Oldest(); pair != nil; pair = pair.Next() {
		cpy.entries.Set(pair.Key, &PendingEntry{
			txs:         pair.Value.txs.Clone(),
			withdrawals: pair.Value.withdrawals.Clone(),
		})
	}
	return cpy
}

func (q *PendingQueue) entry(id uint32) *PendingEntry {
	e, ok := q.entries.Get(id)
	if !ok {
		e = newPendingEntry()
		q.entries.Set(id, e)
	}
	return e
}

// AdmitTransaction adds tx to the backlog of account id, whose state nonce
// is currentNonce.
func (q *PendingQueue) AdmitTransaction(id uint32, tx *types.L2Transaction, currentNonce uint32) error {
	hash := tx.Hash()
	if q.known.Contains(hash) {
		return classify(ClassValidation, errors.Wrapf(ErrDuplicateTx, "%s", hash.TerminalString()))
	}
	if tx.Nonce() < currentNonce {
		return classify(ClassValidation, errors.Wrapf(ErrNonceTooLow, "account %d: have %d want %d", id, tx.Nonce(), currentNonce))
	}
	e := q.entry(id)
	if e.txs.Has(tx) {
		if e.empty() {
			q.entries.Delete(id)
		}
		return classify(ClassValidation, errors.Wrapf(ErrNonceAlreadyPending, "account %d nonce %d", id, tx.Nonce()))
	}
	e.txs.ReplaceOrInsert(tx)
	q.known.Add(hash)
	return nil
}

// AdmitWithdrawal adds w to the backlog of account id, whose state nonce is
// currentNonce.
func (q *PendingQueue) AdmitWithdrawal(id uint32, w *types.WithdrawalRequestExtra, currentNonce uint32) error {
	hash := w.Hash()
	if q.known.Contains(hash) {
		return classify(ClassValidation, errors.Wrapf(ErrDuplicateWithdrawal, "%s", hash.TerminalString()))
	}
	if w.Raw().Nonce < currentNonce {
		return classify(ClassValidation, errors.Wrapf(ErrNonceTooLow, "account %d: have %d want %d", id, w.Raw().Nonce, currentNonce))
	}
	e := q.entry(id)
	if e.withdrawals.Has(w) {
		if e.empty() {
			q.entries.Delete(id)
		}
		return classify(ClassValidation, errors.Wrapf(ErrNonceAlreadyPending, "account %d nonce %d", id, w.Raw().Nonce))
	}
	e.withdrawals.ReplaceOrInsert(w)
	q.known.Add(hash)
	return nil
}

// Contains reports whether a transaction or withdrawal is pending.
func (q *PendingQueue) Contains(hash common.Hash) bool {
	return q.known.Contains(hash)
}

// RemoveStale drops the transactions of account id with a nonce below
// nonce, and the withdrawals below nonce or costing more than balance. It
// returns the hashes of the removed items.
func (q *PendingQueue) RemoveStale(id uint32, nonce uint32, balance *uint256.Int) []common.Hash {
	e, ok := q.entries.Get(id)
	if !ok {
		return nil
	}
	var removed []common.Hash

	var staleTxs []*types.L2Transaction
	e.txs.AscendLessThan(&types.L2Transaction{Raw: types.RawL2Transaction{Nonce: nonce}}, func(tx *types.L2Transaction) bool {
		staleTxs = append(staleTxs, tx)
		return true
	})
	for _, tx := range staleTxs {
		e.txs.Delete(tx)
		removed = append(removed, q.forget(tx.Hash()))
	}

	var staleWithdrawals []*types.WithdrawalRequestExtra
	e.withdrawals.Ascend(func(w *types.WithdrawalRequestExtra) bool {
		if w.Raw().Nonce < nonce || withdrawalCost(w.Raw()).Gt(balance) {
			staleWithdrawals = append(staleWithdrawals, w)
		}
		return true
	})
	for _, w := range staleWithdrawals {
		e.withdrawals.Delete(w)
		removed = append(removed, q.forget(w.Hash()))
	}

	if e.empty() {
		q.entries.Delete(id)
	}
	return removed
}

// RemoveAccount drops the whole backlog of account id.
func (q *PendingQueue) RemoveAccount(id uint32) []common.Hash {
	e, ok := q.entries.Delete(id)
	if !ok {
		return nil
	}
	var removed []common.Hash
	for _, tx := range e.Transactions() {
		removed = append(removed, q.forget(tx.Hash()))
	}
	for _, w := range e.Withdrawals() {
		removed = append(removed, q.forget(w.Hash()))
	}
	return removed
}

// ClearTransactions drops every pending transaction, keeping withdrawals.
func (q *PendingQueue) ClearTransactions() {
	var emptied []uint32
	for pair := q.entries.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.txs.Ascend(func(tx *types.L2Transaction) bool {
			q.known.Remove(tx.Hash())
			return true
		})
		pair.Value.txs.Clear(false)
		if pair.Value.empty() {
			emptied = append(emptied, pair.Key)
		}
	}
	for _, id := range emptied {
		q.entries.Delete(id)
	}
}

func (q *PendingQueue) forget(hash common.Hash) common.Hash {
	q.known.Remove(hash)
	return hash
}

// Accounts returns the ids with a backlog in admission order.
func (q *PendingQueue) Accounts() []uint32 {
	ids := make([]uint32, 0, q.entries.Len())
	for pair := q.entries.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	return ids
}

// Entry returns the backlog of account id, or nil.
func (q *PendingQueue) Entry(id uint32) *PendingEntry {
	e, _ := q.entries.Get(id)
	return e
}

// Len returns the number of accounts with a backlog.
func (q *PendingQueue) Len() int { return q.entries.Len() }

// Withdrawals returns up to limit pending withdrawals, account by account
// in admission order and by nonce within an account.
func (q *PendingQueue) Withdrawals(limit int) []*types.WithdrawalRequestExtra {
	var ws []*types.WithdrawalRequestExtra
	for pair := q.entries.Oldest(); pair != nil && len(ws) < limit; pair = pair.Next() {
		pair.Value.withdrawals.Ascend(func(w *types.WithdrawalRequestExtra) bool {
			ws = append(ws, w)
			return len(ws) < limit
		})
	}
	return ws
}

// Stats returns the number of pending transactions and withdrawals.
func (q *PendingQueue) Stats() (txs int, withdrawals int) {
	for pair := q.entries.Oldest(); pair != nil; pair = pair.Next() {
		txs += pair.Value.txs.Len()
		withdrawals += pair.Value.withdrawals.Len()
	}
	return txs, withdrawals
}
