package mempool

import (
	"context"
	"time"

	"github.com/avast/retry-go"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/log"
)

const depositRetryDelay = 200 * time.Millisecond

// collectDeposits fetches the waiting deposits, retrying transient
// provider failures.
func (p *MemPool) collectDeposits(ctx context.Context) ([]*types.DepositInfo, error) {
	var deposits []*types.DepositInfo
	err := retry.Do(
		func() error {
			var err error
			deposits, err = p.provider.CollectDepositCells(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(p.config.DepositCollectRetries),
		retry.Delay(depositRetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.logger.WithFields(log.Fields{
				"attempt": n + 1,
				"err":     err,
			}).Warn("Failed to collect deposit cells")
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "collect deposit cells")
	}
	return p.sanitizeDeposits(deposits), nil
}

// sanitizeDeposits drops duplicate and undersized deposits and caps the
// list at MaxDeposits.
func (p *MemPool) sanitizeDeposits(deposits []*types.DepositInfo) []*types.DepositInfo {
	var (
		out  = make([]*types.DepositInfo, 0, min(len(deposits), p.config.MaxDeposits))
		seen = mapset.NewThreadUnsafeSet[common.Hash]()
	)
	for _, d := range deposits {
		if len(out) >= p.config.MaxDeposits {
			break
		}
		if d.Request.Capacity < p.config.MinDepositCapacity {
			p.logger.WithFields(log.Fields{
				"deposit":  d.Hash(),
				"capacity": d.Request.Capacity,
			}).Debug("Skipping undersized deposit")
			continue
		}
		if !seen.Add(d.Hash()) {
			continue
		}
		out = append(out, d)
	}
	return out
}
