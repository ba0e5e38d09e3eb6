package mempool

import (
	"github.com/pkg/errors"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/log"
)

// collectFinalizedCustodianCapacity returns the capacity that backs the
// withdrawals of the block after tip: the post capacity of tip plus the
// deposits of the block that becomes final with it.
func (p *MemPool) collectFinalizedCustodianCapacity(tip *types.L2Block) *types.FinalizedCustodianCapacity {
	if tip.NumberU64() == 0 {
		return &types.FinalizedCustodianCapacity{}
	}
	post := p.store.GetBlockPostFinalizedCustodianCapacity(tip.Hash())
	if post == nil {
		invariant(errors.Wrapf(ErrStorageInvariant, "missing finalized custodian of block %d", tip.NumberU64()))
	}
	capacity := post.Copy()

	if tip.NumberU64()+1 <= p.config.FinalityBlocks {
		return capacity
	}
	finalizing := tip.NumberU64() + 1 - p.config.FinalityBlocks
	hash := p.store.GetCanonicalHash(finalizing)
	if hash == (common.Hash{}) {
		return capacity
	}
	for _, d := range p.store.GetBlockDeposits(hash) {
		if err := capacity.CheckedAddDeposit(d); err != nil {
			p.logger.WithFields(log.Fields{
				"block":   finalizing,
				"deposit": d.Hash(),
				"err":     err,
			}).Error("Failed to fold finalized deposit")
		}
	}
	return capacity
}
