package mempool

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/state"
	"github.com/dominant-strategies/go-quai-l2/core/types"
)

// MemBlockContent is what a mem block held when it was replaced.
type MemBlockContent struct {
	Withdrawals  []common.Hash
	Txs          []common.Hash
	NewAddresses []common.Hash
}

// MemBlock is the candidate next block. Withdrawals come first, then
// deposits, then transactions, each with the account state after it.
//
// A MemBlock has a single writer. Readers get a MemBlockView.
type MemBlock struct {
	info            types.BlockInfo
	prevMerkleState types.AccountMerkleState

	withdrawals      []common.Hash
	withdrawalStates []types.AccountMerkleState
	deposits         []*types.DepositInfo
	depositStates    []types.AccountMerkleState
	txs              []common.Hash
	txStates         []types.AccountMerkleState

	// txsPrevStateCheckpoint commits to the state after withdrawals and
	// deposits.
	txsPrevStateCheckpoint common.Hash
	finalizedCustodian     *types.FinalizedCustodianCapacity
	newAddresses           []common.Hash

	knownWithdrawals mapset.Set[common.Hash]
	knownTxs         mapset.Set[common.Hash]
	touchedKeys      mapset.Set[common.Hash] // keys touched by withdrawals and deposits
	addrs            mapset.Set[common.Hash]
}

// NewMemBlock starts an empty mem block on top of a block whose post state
// is prev.
func NewMemBlock(info types.BlockInfo, prev types.AccountMerkleState) *MemBlock {
	return &MemBlock{
		info:                   info,
		prevMerkleState:        prev,
		txsPrevStateCheckpoint: state.Checkpoint(prev),
		finalizedCustodian:     &types.FinalizedCustodianCapacity{},
		knownWithdrawals:       mapset.NewThreadUnsafeSet[common.Hash](),
		knownTxs:               mapset.NewThreadUnsafeSet[common.Hash](),
		touchedKeys:            mapset.NewThreadUnsafeSet[common.Hash](),
		addrs:                  mapset.NewThreadUnsafeSet[common.Hash](),
	}
}

// Reset starts the mem block following tip and returns it together with
// the content of b that is waiting to be re-injected. b is not modified.
func (b *MemBlock) Reset(tip *types.L2Block, timestamp uint64) (*MemBlock, MemBlockContent) {
	next := NewMemBlock(types.BlockInfo{
		BlockProducer: b.info.BlockProducer,
		Number:        tip.NumberU64() + 1,
		Timestamp:     timestamp,
	}, tip.Raw.PostAccount)
	return next, MemBlockContent{
		Withdrawals:  slices.Clone(b.withdrawals),
		Txs:          slices.Clone(b.txs),
		NewAddresses: slices.Clone(b.newAddresses),
	}
}

func (b *MemBlock) Info() types.BlockInfo { return b.info }

func (b *MemBlock) PrevMerkleState() types.AccountMerkleState { return b.prevMerkleState }

func (b *MemBlock) Withdrawals() []common.Hash { return b.withdrawals }

func (b *MemBlock) Deposits() []*types.DepositInfo { return b.deposits }

func (b *MemBlock) Txs() []common.Hash { return b.txs }

func (b *MemBlock) NewAddresses() []common.Hash { return b.newAddresses }

func (b *MemBlock) TxsPrevStateCheckpoint() common.Hash { return b.txsPrevStateCheckpoint }

// FinalizedCustodian returns the custodian capacity left after the
// withdrawals of the block.
func (b *MemBlock) FinalizedCustodian() *types.FinalizedCustodianCapacity {
	return b.finalizedCustodian
}

func (b *MemBlock) HasTx(hash common.Hash) bool { return b.knownTxs.ContainsOne(hash) }

func (b *MemBlock) HasWithdrawal(hash common.Hash) bool { return b.knownWithdrawals.ContainsOne(hash) }

// Len returns the number of items in the block.
func (b *MemBlock) Len() int {
	return len(b.withdrawals) + len(b.deposits) + len(b.txs)
}

// StateCheckpoints returns the checkpoint after every withdrawal and every
// transaction.
func (b *MemBlock) StateCheckpoints() []common.Hash {
	checkpoints := make([]common.Hash, 0, len(b.withdrawalStates)+len(b.txStates))
	for _, s := range b.withdrawalStates {
		checkpoints = append(checkpoints, state.Checkpoint(s))
	}
	for _, s := range b.txStates {
		checkpoints = append(checkpoints, state.Checkpoint(s))
	}
	return checkpoints
}

// PostMerkleState returns the state after the last item.
func (b *MemBlock) PostMerkleState() types.AccountMerkleState {
	switch {
	case len(b.txStates) > 0:
		return b.txStates[len(b.txStates)-1]
	case len(b.depositStates) > 0:
		return b.depositStates[len(b.depositStates)-1]
	case len(b.withdrawalStates) > 0:
		return b.withdrawalStates[len(b.withdrawalStates)-1]
	default:
		return b.prevMerkleState
	}
}

// TouchedKeys returns the state keys written by withdrawals and deposits.
func (b *MemBlock) TouchedKeys() []common.Hash {
	keys := b.touchedKeys.ToSlice()
	slices.SortFunc(keys, func(a, b common.Hash) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return keys
}

// PushWithdrawal appends a finalized withdrawal.
func (b *MemBlock) PushWithdrawal(hash common.Hash, post types.AccountMerkleState, touched []common.Hash) {
	if len(b.deposits) > 0 || len(b.txs) > 0 {
		panic(fmt.Sprintf("withdrawal %s pushed after deposits or transactions", hash.TerminalString()))
	}
	b.withdrawals = append(b.withdrawals, hash)
	b.withdrawalStates = append(b.withdrawalStates, post)
	b.knownWithdrawals.Add(hash)
	b.touchedKeys.Append(touched...)
	b.txsPrevStateCheckpoint = state.Checkpoint(post)
}

// SetFinalizedCustodian records the custodian capacity left after the
// withdrawals.
func (b *MemBlock) SetFinalizedCustodian(c *types.FinalizedCustodianCapacity) {
	if c == nil {
		c = &types.FinalizedCustodianCapacity{}
	}
	b.finalizedCustodian = c
}

// PushDeposit appends an applied deposit.
func (b *MemBlock) PushDeposit(d *types.DepositInfo, post types.AccountMerkleState, touched []common.Hash) {
	if len(b.txs) > 0 {
		panic(fmt.Sprintf("deposit %s pushed after transactions", d.Hash().TerminalString()))
	}
	b.deposits = append(b.deposits, d)
	b.depositStates = append(b.depositStates, post)
	b.touchedKeys.Append(touched...)
}

// SetTxsPrevStateCheckpoint seals the withdrawal and deposit prefix.
func (b *MemBlock) SetTxsPrevStateCheckpoint(checkpoint common.Hash) {
	b.txsPrevStateCheckpoint = checkpoint
}

// PushTx appends an executed transaction.
func (b *MemBlock) PushTx(hash common.Hash, post types.AccountMerkleState) {
	b.txs = append(b.txs, hash)
	b.txStates = append(b.txStates, post)
	b.knownTxs.Add(hash)
}

// ForceReinjectWithdrawalHashes adds withdrawals that were never applied to
// this block, so that the next Reset hands them back. Used on recovery.
func (b *MemBlock) ForceReinjectWithdrawalHashes(hashes []common.Hash) {
	for _, h := range hashes {
		if !b.knownWithdrawals.Add(h) {
			continue
		}
		b.withdrawals = append(b.withdrawals, h)
		b.withdrawalStates = append(b.withdrawalStates, b.prevMerkleState)
	}
}

// ForceReinjectTxHashes is ForceReinjectWithdrawalHashes for transactions.
func (b *MemBlock) ForceReinjectTxHashes(hashes []common.Hash) {
	for _, h := range hashes {
		if !b.knownTxs.Add(h) {
			continue
		}
		b.txs = append(b.txs, h)
		b.txStates = append(b.txStates, b.prevMerkleState)
	}
}

// AppendNewAddresses records addresses that received funds but have no
// account yet.
func (b *MemBlock) AppendNewAddresses(addrs []common.Hash) {
	for _, a := range addrs {
		if b.addrs.Add(a) {
			b.newAddresses = append(b.newAddresses, a)
		}
	}
}

// TakeNewAddresses clears and returns the new addresses.
func (b *MemBlock) TakeNewAddresses() []common.Hash {
	addrs := b.newAddresses
	b.newAddresses = nil
	b.addrs.Clear()
	return addrs
}

// Snapshot returns an independent copy of b.
func (b *MemBlock) Snapshot() *MemBlock {
	return b.view(len(b.withdrawals), len(b.deposits), len(b.txs), b.txsPrevStateCheckpoint)
}

// view copies a prefix of b. Nothing in the result aliases b.
func (b *MemBlock) view(withdrawals, deposits, txs int, checkpoint common.Hash) *MemBlock {
	v := &MemBlock{
		info:                   b.info,
		prevMerkleState:        b.prevMerkleState,
		withdrawals:            slices.Clone(b.withdrawals[:withdrawals]),
		withdrawalStates:       slices.Clone(b.withdrawalStates[:withdrawals]),
		deposits:               copyDeposits(b.deposits[:deposits]),
		depositStates:          slices.Clone(b.depositStates[:deposits]),
		txs:                    slices.Clone(b.txs[:txs]),
		txStates:               slices.Clone(b.txStates[:txs]),
		txsPrevStateCheckpoint: checkpoint,
		finalizedCustodian:     b.finalizedCustodian.Copy(),
		newAddresses:           slices.Clone(b.newAddresses),
		knownWithdrawals:       mapset.NewThreadUnsafeSetWithSize[common.Hash](withdrawals),
		knownTxs:               mapset.NewThreadUnsafeSetWithSize[common.Hash](txs),
		touchedKeys:            b.touchedKeys.Clone(),
		addrs:                  b.addrs.Clone(),
	}
	v.knownWithdrawals.Append(v.withdrawals...)
	v.knownTxs.Append(v.txs...)
	return v
}

func copyDeposits(deposits []*types.DepositInfo) []*types.DepositInfo {
	if deposits == nil {
		return nil
	}
	cpy := make([]*types.DepositInfo, len(deposits))
	for i, d := range deposits {
		d := *d
		cpy[i] = &d
	}
	return cpy
}

// Package returns the prefix of b that is submitted after retry failed
// attempts, and the state after its last item. The prefix holds
// max(1, Len() >> retry) items, taken from withdrawals first, then
// deposits, then transactions.
func (b *MemBlock) Package(retry uint) (*MemBlock, types.AccountMerkleState) {
	remain := max(1, b.Len()>>retry)
	nw := min(remain, len(b.withdrawals))
	remain -= nw
	nd := min(remain, len(b.deposits))
	remain -= nd
	nt := min(remain, len(b.txs))

	post := b.prevMerkleState
	if nw > 0 {
		post = b.withdrawalStates[nw-1]
	}
	if nd > 0 {
		post = b.depositStates[nd-1]
	}
	checkpoint := b.txsPrevStateCheckpoint
	if nw < len(b.withdrawals) || nd < len(b.deposits) {
		checkpoint = state.Checkpoint(post)
	}
	if nt > 0 {
		post = b.txStates[nt-1]
	}
	return b.view(nw, nd, nt, checkpoint), post
}

// Equal reports whether b and other have the same content.
func (b *MemBlock) Equal(other *MemBlock) bool {
	if b.info != other.info || b.prevMerkleState != other.prevMerkleState ||
		b.txsPrevStateCheckpoint != other.txsPrevStateCheckpoint {
		return false
	}
	if !slices.Equal(b.withdrawals, other.withdrawals) || !slices.Equal(b.withdrawalStates, other.withdrawalStates) ||
		!slices.Equal(b.txs, other.txs) || !slices.Equal(b.txStates, other.txStates) ||
		!slices.Equal(b.depositStates, other.depositStates) {
		return false
	}
	return slices.Equal(types.DepositHashes(b.deposits), types.DepositHashes(other.deposits))
}

// MemBlockView is the read-only face of a published mem block. Every
// accessor returns a copy, so callers cannot change what other readers see.
type MemBlockView struct {
	b *MemBlock
}

func newMemBlockView(b *MemBlock) *MemBlockView {
	return &MemBlockView{b: b.Snapshot()}
}

func (v *MemBlockView) Info() types.BlockInfo { return v.b.info }

func (v *MemBlockView) PrevMerkleState() types.AccountMerkleState { return v.b.prevMerkleState }

func (v *MemBlockView) PostMerkleState() types.AccountMerkleState { return v.b.PostMerkleState() }

func (v *MemBlockView) Withdrawals() []common.Hash { return slices.Clone(v.b.withdrawals) }

func (v *MemBlockView) Deposits() []*types.DepositInfo { return copyDeposits(v.b.deposits) }

func (v *MemBlockView) Txs() []common.Hash { return slices.Clone(v.b.txs) }

func (v *MemBlockView) NewAddresses() []common.Hash { return slices.Clone(v.b.newAddresses) }

func (v *MemBlockView) TxsPrevStateCheckpoint() common.Hash { return v.b.txsPrevStateCheckpoint }

func (v *MemBlockView) FinalizedCustodian() *types.FinalizedCustodianCapacity {
	return v.b.finalizedCustodian.Copy()
}

func (v *MemBlockView) StateCheckpoints() []common.Hash { return v.b.StateCheckpoints() }

func (v *MemBlockView) TouchedKeys() []common.Hash { return v.b.TouchedKeys() }

func (v *MemBlockView) HasTx(hash common.Hash) bool { return v.b.HasTx(hash) }

func (v *MemBlockView) HasWithdrawal(hash common.Hash) bool { return v.b.HasWithdrawal(hash) }

func (v *MemBlockView) Len() int { return v.b.Len() }

func (v *MemBlockView) Equal(other *MemBlockView) bool { return v.b.Equal(other.b) }

// Package is MemBlock.Package on the published content.
func (v *MemBlockView) Package(retry uint) (*MemBlock, types.AccountMerkleState) {
	return v.b.Package(retry)
}
