package mempool

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dominant-strategies/go-quai-l2/core/types"
)

// StaticProvider estimates the next block a fixed interval from now and
// serves deposits queued by the caller. Test nodes and tools run on it.
type StaticProvider struct {
	interval time.Duration

	mu       sync.Mutex
	deposits []*types.DepositInfo
}

func NewStaticProvider(interval time.Duration) *StaticProvider {
	return &StaticProvider{interval: interval}
}

func (p *StaticProvider) EstimateNextBlocktime(ctx context.Context) (time.Duration, error) {
	return time.Duration(time.Now().Add(p.interval).UnixNano()), nil
}

// CollectDepositCells returns the queued deposits. They stay queued until
// replaced with SetDeposits.
func (p *StaticProvider) CollectDepositCells(ctx context.Context) ([]*types.DepositInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.deposits), nil
}

func (p *StaticProvider) SetDeposits(deposits []*types.DepositInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deposits = slices.Clone(deposits)
}
