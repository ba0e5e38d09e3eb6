package generator

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/state"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/crypto"
)

// MaxCreateAccountsPerBatch bounds a single account creation transaction.
const MaxCreateAccountsPerBatch = 50

var ErrCreatorNotRegistered = errors.New("account creator is not registered")

// AccountCreator registers addresses that received funds before they had an
// account, signing the creation transactions with its own key.
type AccountCreator struct {
	key        *secp256k1.PrivateKey
	scriptHash common.Hash
	chainID    uint64
}

func NewAccountCreator(key *secp256k1.PrivateKey, chainID uint64) *AccountCreator {
	return &AccountCreator{
		key:        key,
		scriptHash: crypto.PubkeyToScriptHash(key.PubKey()),
		chainID:    chainID,
	}
}

// ScriptHash returns the address the creator sends from.
func (c *AccountCreator) ScriptHash() common.Hash { return c.scriptHash }

// BuildBatchCreateTx returns a transaction creating the unregistered
// addresses, along with the addresses left for a later batch. It returns a
// nil transaction when nothing needs to be created.
func (c *AccountCreator) BuildBatchCreateTx(st state.State, addrs []common.Hash) (*types.L2Transaction, []common.Hash, error) {
	var (
		batch []common.Hash
		next  []common.Hash
		seen  = make(map[common.Hash]struct{})
	)
	for _, addr := range addrs {
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		if _, ok := st.GetAccountIDByScriptHash(addr); ok {
			continue
		}
		if len(batch) < MaxCreateAccountsPerBatch {
			batch = append(batch, addr)
		} else {
			next = append(next, addr)
		}
	}
	if len(batch) == 0 {
		return nil, next, nil
	}

	id, ok := st.GetAccountIDByScriptHash(c.scriptHash)
	if !ok {
		return nil, nil, ErrCreatorNotRegistered
	}
	nonce, err := st.GetNonce(id)
	if err != nil {
		return nil, nil, err
	}
	args := &CallArgs{Kind: ArgsCreateAccounts, ScriptHashes: batch}
	tx, err := types.SignTransaction(types.RawL2Transaction{
		ChainID: c.chainID,
		FromID:  id,
		ToID:    state.MetaAccountID,
		Nonce:   nonce,
		Args:    args.Encode(),
	}, c.key)
	if err != nil {
		return nil, nil, err
	}
	return tx, next, nil
}
