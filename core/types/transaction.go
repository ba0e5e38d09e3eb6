package types

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/crypto"
)

var ErrInvalidSig = errors.New("invalid transaction v, r, s values")

// RawL2Transaction is the signed part of a layer 2 transaction.
type RawL2Transaction struct {
	_       struct{} `cbor:",toarray"`
	ChainID uint64
	FromID  uint32
	ToID    uint32
	Nonce   uint32
	Args    []byte
}

// L2Transaction is a layer 2 transaction sent by account FromID.
type L2Transaction struct {
	_         struct{} `cbor:",toarray"`
	Raw       RawL2Transaction
	Signature []byte
}

// Hash returns the transaction hash. It covers the raw part only, so it is
// also the message the sender signs.
func (tx *L2Transaction) Hash() common.Hash {
	return hashOf(&tx.Raw)
}

// Nonce returns the sender nonce the transaction was signed with.
func (tx *L2Transaction) Nonce() uint32 { return tx.Raw.Nonce }

// From returns the sender account id.
func (tx *L2Transaction) From() uint32 { return tx.Raw.FromID }

// SignTransaction signs raw with key.
func SignTransaction(raw RawL2Transaction, key *secp256k1.PrivateKey) (*L2Transaction, error) {
	tx := &L2Transaction{Raw: raw}
	h := tx.Hash()
	sig, err := crypto.Sign(h[:], key)
	if err != nil {
		return nil, err
	}
	tx.Signature = sig
	return tx, nil
}

// Sender recovers the script hash of the key that signed tx.
func (tx *L2Transaction) Sender() (common.Hash, error) {
	if len(tx.Signature) != crypto.SignatureLength {
		return common.Hash{}, ErrInvalidSig
	}
	return crypto.RecoverScriptHash(tx.Hash(), tx.Signature)
}

// Transactions is an ordered list of transactions.
type Transactions []*L2Transaction

// Hashes returns the hashes of the transactions in order.
func (s Transactions) Hashes() []common.Hash {
	hashes := make([]common.Hash, len(s))
	for i, tx := range s {
		hashes[i] = tx.Hash()
	}
	return hashes
}
