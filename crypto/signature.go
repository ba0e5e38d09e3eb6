// Copyright 2017 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package crypto

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/dominant-strategies/go-quai-l2/common"
)

// SignatureLength indicates the byte length required to carry a signature with recovery id.
const SignatureLength = 64 + 1 // 64 bytes ECDSA signature + 1 byte recovery id

var errInvalidSignatureLength = errors.New("invalid signature length")

// GenerateKey creates a new secp256k1 private key.
func GenerateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// ToKey builds a private key from its 32 byte scalar.
func ToKey(b []byte) *secp256k1.PrivateKey {
	return secp256k1.PrivKeyFromBytes(b)
}

// Sign calculates a recoverable ECDSA signature over hash.
//
// The produced signature is in the [R || S || V] format where V is 0 or 1.
func Sign(hash []byte, prv *secp256k1.PrivateKey) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash is required to be exactly 32 bytes (%d)", len(hash))
	}
	sig := ecdsa.SignCompact(prv, hash, true)
	// Move the recovery id from the front to the end.
	v := sig[0] - 27 - 4
	copy(sig, sig[1:])
	sig[64] = v
	return sig, nil
}

// SigToPub returns the public key that created the given signature.
func SigToPub(hash, sig []byte) (*secp256k1.PublicKey, error) {
	if len(sig) != SignatureLength {
		return nil, errInvalidSignatureLength
	}
	if sig[64] > 1 {
		return nil, fmt.Errorf("invalid recovery id %d", sig[64])
	}
	compact := make([]byte, SignatureLength)
	compact[0] = sig[64] + 27 + 4
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

// PubkeyToScriptHash returns the lock script hash owning accounts controlled
// by pub. It is the keccak hash of the compressed public key.
func PubkeyToScriptHash(pub *secp256k1.PublicKey) common.Hash {
	return Keccak256Hash(pub.SerializeCompressed())
}

// RecoverScriptHash recovers the signer of hash and returns its script hash.
func RecoverScriptHash(hash common.Hash, sig []byte) (common.Hash, error) {
	pub, err := SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Hash{}, err
	}
	return PubkeyToScriptHash(pub), nil
}
