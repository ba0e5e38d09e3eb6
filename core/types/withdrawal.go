package types

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/holiman/uint256"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/crypto"
)

// RawWithdrawalRequest moves value from a layer 2 account back to the base
// chain. A zero SudtScriptHash withdraws CKB only.
type RawWithdrawalRequest struct {
	_                 struct{} `cbor:",toarray"`
	Nonce             uint32
	ChainID           uint64
	Capacity          uint64
	Amount            uint256.Int
	SudtScriptHash    common.Hash
	AccountScriptHash common.Hash
	RegistryID        uint32
	OwnerLockHash     common.Hash
	Fee               uint64
}

type WithdrawalRequest struct {
	_         struct{} `cbor:",toarray"`
	Raw       RawWithdrawalRequest
	Signature []byte
}

// Hash returns the withdrawal hash, which is also the signed message.
func (w *WithdrawalRequest) Hash() common.Hash {
	return hashOf(&w.Raw)
}

// Nonce returns the account nonce the withdrawal must be applied at.
func (w *WithdrawalRequest) Nonce() uint32 { return w.Raw.Nonce }

// Sender recovers the script hash of the key that signed w.
func (w *WithdrawalRequest) Sender() (common.Hash, error) {
	if len(w.Signature) != crypto.SignatureLength {
		return common.Hash{}, ErrInvalidSig
	}
	return crypto.RecoverScriptHash(w.Hash(), w.Signature)
}

// SignWithdrawal signs raw with key.
func SignWithdrawal(raw RawWithdrawalRequest, key *secp256k1.PrivateKey) (*WithdrawalRequest, error) {
	w := &WithdrawalRequest{Raw: raw}
	h := w.Hash()
	sig, err := crypto.Sign(h[:], key)
	if err != nil {
		return nil, err
	}
	w.Signature = sig
	return w, nil
}

// WithdrawalRequestExtra carries the withdrawal together with the owner lock
// script the base chain output is paid to.
type WithdrawalRequestExtra struct {
	_         struct{} `cbor:",toarray"`
	Request   WithdrawalRequest
	OwnerLock []byte
}

func (w *WithdrawalRequestExtra) Hash() common.Hash { return w.Request.Hash() }

func (w *WithdrawalRequestExtra) Raw() *RawWithdrawalRequest { return &w.Request.Raw }

// OwnerLockHash returns the hash of the attached owner lock.
func (w *WithdrawalRequestExtra) OwnerLockHash() common.Hash {
	return crypto.Keccak256Hash(w.OwnerLock)
}
