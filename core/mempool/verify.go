package mempool

import (
	"github.com/pkg/errors"

	"github.com/dominant-strategies/go-quai-l2/core/generator"
	"github.com/dominant-strategies/go-quai-l2/core/state"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/crypto"
)

// verifyTransaction checks the structure of tx and its nonce against st.
func (p *MemPool) verifyTransaction(st State, tx *types.L2Transaction) error {
	if tx.Raw.ChainID != p.generator.ChainID() {
		return errors.Wrapf(generator.ErrInvalidChainID, "have %d want %d", tx.Raw.ChainID, p.generator.ChainID())
	}
	if len(tx.Raw.Args) > p.config.MaxTxArgsSize {
		return errors.Wrapf(ErrOversizedArgs, "%d bytes, limit %d", len(tx.Raw.Args), p.config.MaxTxArgsSize)
	}
	if len(tx.Signature) != crypto.SignatureLength {
		return types.ErrInvalidSig
	}
	nonce, err := st.GetNonce(tx.From())
	if err != nil {
		return errors.Wrapf(ErrUnknownAccount, "sender %d", tx.From())
	}
	if tx.Nonce() < nonce {
		return errors.Wrapf(ErrNonceTooLow, "have %d want %d", tx.Nonce(), nonce)
	}
	return nil
}

// verifyWithdrawal checks the amounts of w against st. An exact withdrawal
// must be applicable now; otherwise a later nonce is accepted.
func (p *MemPool) verifyWithdrawal(st State, w *types.WithdrawalRequestExtra, exact bool) error {
	raw := w.Raw()
	if raw.ChainID != p.generator.ChainID() {
		return errors.Wrapf(generator.ErrInvalidChainID, "have %d want %d", raw.ChainID, p.generator.ChainID())
	}
	if raw.Capacity < p.config.MinWithdrawalCapacity {
		return errors.Wrapf(ErrWithdrawalTooSmall, "have %d want %d", raw.Capacity, p.config.MinWithdrawalCapacity)
	}
	if len(w.OwnerLock) == 0 || w.OwnerLockHash() != raw.OwnerLockHash {
		return errors.Wrapf(ErrOwnerLockMismatch, "withdrawal %s", w.Hash().TerminalString())
	}
	id, ok := st.GetAccountIDByScriptHash(raw.AccountScriptHash)
	if !ok {
		return errors.Wrapf(ErrUnknownAccount, "%s", raw.AccountScriptHash.TerminalString())
	}
	nonce, err := st.GetNonce(id)
	if err != nil {
		return errors.Wrapf(ErrUnknownAccount, "account %d", id)
	}
	switch {
	case exact && raw.Nonce != nonce:
		return errors.Wrapf(generator.ErrInvalidNonce, "have %d want %d", raw.Nonce, nonce)
	case raw.Nonce < nonce:
		return errors.Wrapf(ErrNonceTooLow, "have %d want %d", raw.Nonce, nonce)
	}

	if !raw.SudtScriptHash.IsZero() && !raw.Amount.IsZero() {
		if p.store.GetAssetScript(raw.SudtScriptHash) == nil {
			return errors.Wrapf(ErrUnknownAsset, "%s", raw.SudtScriptHash.TerminalString())
		}
		sudtID, ok := st.GetSudtID(raw.SudtScriptHash)
		if !ok {
			return errors.Wrapf(ErrUnknownAsset, "no proxy for %s", raw.SudtScriptHash.TerminalString())
		}
		if balance := st.GetBalance(sudtID, raw.AccountScriptHash); balance.Lt(&raw.Amount) {
			return errors.Wrapf(ErrInsufficientBalance, "sudt %d: have %s want %s", sudtID, balance.Dec(), raw.Amount.Dec())
		}
	}
	cost := withdrawalCost(raw)
	if balance := st.GetBalance(state.CKBSudtID, raw.AccountScriptHash); balance.Lt(cost) {
		return errors.Wrapf(ErrInsufficientBalance, "have %s want %s", balance.Dec(), cost.Dec())
	}
	return nil
}
