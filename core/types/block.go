package types

import (
	"github.com/dominant-strategies/go-quai-l2/common"
)

// AccountMerkleState commits to the whole account state.
type AccountMerkleState struct {
	_          struct{} `cbor:",toarray"`
	MerkleRoot common.Hash
	Count      uint32
}

// BlockInfo is the execution context of a block.
type BlockInfo struct {
	_             struct{} `cbor:",toarray"`
	BlockProducer common.Hash
	Number        uint64
	Timestamp     uint64 // milliseconds
}

// RawL2Block is the hashed header of a layer 2 block.
type RawL2Block struct {
	_                struct{} `cbor:",toarray"`
	Number           uint64
	ParentBlockHash  common.Hash
	BlockProducer    common.Hash
	Timestamp        uint64
	PrevAccount      AccountMerkleState
	PostAccount      AccountMerkleState
	StateCheckpoints []common.Hash
	TxsRoot          common.Hash
	WithdrawalsRoot  common.Hash
	DepositsRoot     common.Hash
}

// L2Block is a layer 2 block as submitted to the base chain.
type L2Block struct {
	_            struct{} `cbor:",toarray"`
	Raw          RawL2Block
	Transactions Transactions
	Withdrawals  []*WithdrawalRequest
}

// NewBlock assembles a block and fills in the content roots.
func NewBlock(raw RawL2Block, txs Transactions, withdrawals []*WithdrawalRequest, deposits []*DepositInfo) *L2Block {
	raw.TxsRoot = DeriveRoot(txs.Hashes())
	whashes := make([]common.Hash, len(withdrawals))
	for i, w := range withdrawals {
		whashes[i] = w.Hash()
	}
	raw.WithdrawalsRoot = DeriveRoot(whashes)
	raw.DepositsRoot = DeriveRoot(DepositHashes(deposits))
	return &L2Block{Raw: raw, Transactions: txs, Withdrawals: withdrawals}
}

// Hash returns the block hash.
func (b *L2Block) Hash() common.Hash { return hashOf(&b.Raw) }

func (b *L2Block) NumberU64() uint64 { return b.Raw.Number }

func (b *L2Block) ParentHash() common.Hash { return b.Raw.ParentBlockHash }

func (b *L2Block) Timestamp() uint64 { return b.Raw.Timestamp }

// WithdrawalHashes returns the hashes of the included withdrawals in order.
func (b *L2Block) WithdrawalHashes() []common.Hash {
	hashes := make([]common.Hash, len(b.Withdrawals))
	for i, w := range b.Withdrawals {
		hashes[i] = w.Hash()
	}
	return hashes
}

// Info returns the execution context of the block.
func (b *L2Block) Info() BlockInfo {
	return BlockInfo{
		BlockProducer: b.Raw.BlockProducer,
		Number:        b.Raw.Number,
		Timestamp:     b.Raw.Timestamp,
	}
}
