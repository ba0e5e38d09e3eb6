package mempool

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/dominant-strategies/go-quai-l2/core/types"
)

// WithdrawalGenerator tracks the finalized custodian capacity left while
// withdrawals are included in a block.
type WithdrawalGenerator struct {
	remaining *types.FinalizedCustodianCapacity
	included  []*types.WithdrawalRequestExtra
}

// NewWithdrawalGenerator starts from a copy of capacity.
func NewWithdrawalGenerator(capacity *types.FinalizedCustodianCapacity) *WithdrawalGenerator {
	if capacity == nil {
		capacity = &types.FinalizedCustodianCapacity{}
	}
	return &WithdrawalGenerator{remaining: capacity.Copy()}
}

// VerifyRemainingAmount checks that the remaining capacity covers req.
func (g *WithdrawalGenerator) VerifyRemainingAmount(req *types.RawWithdrawalRequest) error {
	if g.remaining.Capacity.Lt(uint256.NewInt(req.Capacity)) {
		return errors.Wrapf(ErrInsufficientCustodian, "capacity: have %s want %d", g.remaining.Capacity.Dec(), req.Capacity)
	}
	if req.SudtScriptHash.IsZero() || req.Amount.IsZero() {
		return nil
	}
	amount, ok := g.remaining.SudtAmount(req.SudtScriptHash)
	if !ok || amount.Lt(&req.Amount) {
		have := "0"
		if ok {
			have = amount.Dec()
		}
		return errors.Wrapf(ErrInsufficientCustodian, "sudt %s: have %s want %s", req.SudtScriptHash.TerminalString(), have, req.Amount.Dec())
	}
	return nil
}

// IncludeAndVerify checks w and deducts it from the remaining capacity.
// Nothing is deducted on failure.
func (g *WithdrawalGenerator) IncludeAndVerify(w *types.WithdrawalRequestExtra) error {
	raw := w.Raw()
	if w.OwnerLockHash() != raw.OwnerLockHash {
		return errors.Wrapf(ErrOwnerLockMismatch, "withdrawal %s", w.Hash().TerminalString())
	}
	if err := g.VerifyRemainingAmount(raw); err != nil {
		return err
	}
	g.remaining.Capacity.Sub(&g.remaining.Capacity, uint256.NewInt(raw.Capacity))
	if !raw.SudtScriptHash.IsZero() && !raw.Amount.IsZero() {
		amount, _ := g.remaining.SudtAmount(raw.SudtScriptHash)
		g.remaining.SetSudtAmount(raw.SudtScriptHash, amount.Sub(amount, &raw.Amount))
	}
	g.included = append(g.included, w)
	return nil
}

// RemainingCapacity returns a copy of the capacity left.
func (g *WithdrawalGenerator) RemainingCapacity() *types.FinalizedCustodianCapacity {
	return g.remaining.Copy()
}

// Included returns the withdrawals included so far.
func (g *WithdrawalGenerator) Included() []*types.WithdrawalRequestExtra {
	return g.included
}
