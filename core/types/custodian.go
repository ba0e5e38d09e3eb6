package types

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/dominant-strategies/go-quai-l2/common"
)

var ErrCustodianOverflow = errors.New("finalized custodian capacity overflow")

// SudtCustodian is the finalized amount of one simple UDT.
type SudtCustodian struct {
	_          struct{} `cbor:",toarray"`
	ScriptHash common.Hash
	Amount     uint256.Int
	Script     []byte
}

// FinalizedCustodianCapacity is the base chain value available to pay out
// withdrawals.
type FinalizedCustodianCapacity struct {
	_        struct{} `cbor:",toarray"`
	Capacity uint256.Int
	Sudt     []SudtCustodian
}

// Copy returns a deep copy of c.
func (c *FinalizedCustodianCapacity) Copy() *FinalizedCustodianCapacity {
	cpy := &FinalizedCustodianCapacity{Capacity: c.Capacity}
	if len(c.Sudt) > 0 {
		cpy.Sudt = make([]SudtCustodian, len(c.Sudt))
		for i, s := range c.Sudt {
			cpy.Sudt[i] = SudtCustodian{ScriptHash: s.ScriptHash, Amount: s.Amount, Script: common.CopyBytes(s.Script)}
		}
	}
	return cpy
}

// SudtAmount returns the finalized amount of the sudt with script hash h.
func (c *FinalizedCustodianCapacity) SudtAmount(h common.Hash) (*uint256.Int, bool) {
	for i := range c.Sudt {
		if c.Sudt[i].ScriptHash == h {
			amount := c.Sudt[i].Amount
			return &amount, true
		}
	}
	return nil, false
}

// SetSudtAmount overwrites the finalized amount of the sudt with script hash h.
func (c *FinalizedCustodianCapacity) SetSudtAmount(h common.Hash, amount *uint256.Int) {
	for i := range c.Sudt {
		if c.Sudt[i].ScriptHash == h {
			c.Sudt[i].Amount = *amount
			return
		}
	}
	c.Sudt = append(c.Sudt, SudtCustodian{ScriptHash: h, Amount: *amount})
}

// CheckedAddDeposit folds a finalized deposit into c.
func (c *FinalizedCustodianCapacity) CheckedAddDeposit(d *DepositInfo) error {
	var capacity uint256.Int
	if _, overflow := capacity.AddOverflow(&c.Capacity, uint256.NewInt(d.Request.Capacity)); overflow {
		return ErrCustodianOverflow
	}
	c.Capacity = capacity

	if d.Request.SudtScriptHash.IsZero() || d.Request.Amount.IsZero() {
		return nil
	}
	for i := range c.Sudt {
		if c.Sudt[i].ScriptHash != d.Request.SudtScriptHash {
			continue
		}
		var amount uint256.Int
		if _, overflow := amount.AddOverflow(&c.Sudt[i].Amount, &d.Request.Amount); overflow {
			return ErrCustodianOverflow
		}
		c.Sudt[i].Amount = amount
		return nil
	}
	c.Sudt = append(c.Sudt, SudtCustodian{
		ScriptHash: d.Request.SudtScriptHash,
		Amount:     d.Request.Amount,
		Script:     common.CopyBytes(d.SudtScript),
	})
	return nil
}
