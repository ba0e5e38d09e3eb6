package mempool

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/log"
)

const (
	// maxReorgDepth is the largest tip height difference whose discarded
	// content is replayed.
	maxReorgDepth = 64
	// maxReorgSteps bounds the ancestor lookups of a single walk.
	maxReorgSteps = 2*maxReorgDepth + 2
)

// ReorgPlan is the content to re-inject after a tip change.
type ReorgPlan struct {
	// Txs and Withdrawals were in blocks that left the canonical chain and
	// are not in the new one, oldest first.
	Txs         []*types.L2Transaction
	Withdrawals []*types.WithdrawalRequestExtra

	Depth         uint64
	DepthExceeded bool
}

// ReorgResolver computes the content dropped by a tip change.
type ReorgResolver struct {
	lookup BlockLookup
	logger *log.Logger
}

func NewReorgResolver(lookup BlockLookup, logger *log.Logger) *ReorgResolver {
	return &ReorgResolver{lookup: lookup, logger: logger}
}

// Plan walks back from both tips to their common ancestor. A plan with
// DepthExceeded set is empty. A missing ancestor returns an error wrapping
// ErrStorageInvariant.
func (r *ReorgResolver) Plan(oldTip, newTip *types.L2Block) (*ReorgPlan, error) {
	oldNum, newNum := oldTip.NumberU64(), newTip.NumberU64()
	depth := oldNum - newNum
	if newNum > oldNum {
		depth = newNum - oldNum
	}
	plan := &ReorgPlan{Depth: depth}
	if depth > maxReorgDepth {
		r.tooDeep(plan, oldTip, newTip)
		return plan, nil
	}

	var (
		discardedTxs         []*types.L2Transaction
		discardedWithdrawals []common.Hash
		includedTxs          = mapset.NewThreadUnsafeSet[common.Hash]()
		includedWithdrawals  = mapset.NewThreadUnsafeSet[common.Hash]()
		steps                int
	)
	parent := func(b *types.L2Block) (*types.L2Block, bool, error) {
		if steps++; steps > maxReorgSteps {
			return nil, false, nil
		}
		p := r.lookup.GetBlock(b.ParentHash())
		if p == nil {
			return nil, false, errors.Wrapf(ErrStorageInvariant, "missing parent %s of block %d", b.ParentHash().TerminalString(), b.NumberU64())
		}
		return p, true, nil
	}
	// Blocks are visited newest first, so each block's content goes in front.
	discard := func(b *types.L2Block) {
		discardedTxs = append(append(make([]*types.L2Transaction, 0, len(b.Transactions)+len(discardedTxs)), b.Transactions...), discardedTxs...)
		discardedWithdrawals = append(b.WithdrawalHashes(), discardedWithdrawals...)
	}
	include := func(b *types.L2Block) {
		for _, tx := range b.Transactions {
			includedTxs.Add(tx.Hash())
		}
		for _, h := range b.WithdrawalHashes() {
			includedWithdrawals.Add(h)
		}
	}

	rem, add := oldTip, newTip
	var (
		ok  bool
		err error
	)
	for rem.NumberU64() > add.NumberU64() {
		discard(rem)
		if rem, ok, err = parent(rem); !ok {
			return r.abort(plan, oldTip, newTip, err)
		}
	}
	for add.NumberU64() > rem.NumberU64() {
		include(add)
		if add, ok, err = parent(add); !ok {
			return r.abort(plan, oldTip, newTip, err)
		}
	}
	for rem.Hash() != add.Hash() {
		discard(rem)
		if rem, ok, err = parent(rem); !ok {
			return r.abort(plan, oldTip, newTip, err)
		}
		include(add)
		if add, ok, err = parent(add); !ok {
			return r.abort(plan, oldTip, newTip, err)
		}
	}

	for _, tx := range discardedTxs {
		if !includedTxs.Contains(tx.Hash()) {
			plan.Txs = append(plan.Txs, tx)
		}
	}
	for _, h := range discardedWithdrawals {
		if includedWithdrawals.Contains(h) {
			continue
		}
		w := r.lookup.GetWithdrawal(h)
		if w == nil {
			return nil, errors.Wrapf(ErrStorageInvariant, "missing withdrawal %s", h.TerminalString())
		}
		plan.Withdrawals = append(plan.Withdrawals, w)
	}
	r.logger.WithFields(log.Fields{
		"old":         oldTip.Hash(),
		"new":         newTip.Hash(),
		"ancestor":    rem.NumberU64(),
		"txs":         len(plan.Txs),
		"withdrawals": len(plan.Withdrawals),
	}).Debug("Resolved reorg")
	return plan, nil
}

func (r *ReorgResolver) abort(plan *ReorgPlan, oldTip, newTip *types.L2Block, err error) (*ReorgPlan, error) {
	if err != nil {
		return nil, err
	}
	r.tooDeep(plan, oldTip, newTip)
	return plan, nil
}

func (r *ReorgResolver) tooDeep(plan *ReorgPlan, oldTip, newTip *types.L2Block) {
	plan.DepthExceeded = true
	plan.Txs, plan.Withdrawals = nil, nil
	reorgTooDeepCounter.Inc()
	r.logger.WithFields(log.Fields{
		"depth":  plan.Depth,
		"old":    oldTip.Hash(),
		"oldnum": oldTip.NumberU64(),
		"new":    newTip.Hash(),
		"newnum": newTip.NumberU64(),
		"err":    ErrReorgTooDeep,
	}).Warn("Dropping backlog of deep reorg")
}
