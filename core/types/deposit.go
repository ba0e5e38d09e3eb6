package types

import (
	"github.com/holiman/uint256"

	"github.com/dominant-strategies/go-quai-l2/common"
)

// DepositRequest credits base chain value to the layer 2 account owned by
// ScriptHash. A zero SudtScriptHash deposits CKB only.
type DepositRequest struct {
	_              struct{} `cbor:",toarray"`
	Capacity       uint64
	Amount         uint256.Int
	SudtScriptHash common.Hash
	ScriptHash     common.Hash
	RegistryID     uint32
}

// OutPoint locates a base chain cell.
type OutPoint struct {
	_      struct{} `cbor:",toarray"`
	TxHash common.Hash
	Index  uint32
}

// DepositInfo is a deposit request together with the cell carrying it.
type DepositInfo struct {
	_          struct{} `cbor:",toarray"`
	Request    DepositRequest
	Cell       OutPoint
	SudtScript []byte
}

// Hash identifies the deposit by its cell.
func (d *DepositInfo) Hash() common.Hash {
	return hashOf(&d.Cell)
}

// DepositHashes returns the identifying hashes of deposits in order.
func DepositHashes(deposits []*DepositInfo) []common.Hash {
	hashes := make([]common.Hash, len(deposits))
	for i, d := range deposits {
		hashes[i] = d.Hash()
	}
	return hashes
}
