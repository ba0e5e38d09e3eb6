package types

// NextMemBlock is what a full node announces to read-only followers after a
// reset: the context and base chain inputs of its next mem block.
type NextMemBlock struct {
	_           struct{} `cbor:",toarray"`
	BlockInfo   BlockInfo
	Withdrawals []*WithdrawalRequestExtra
	Deposits    []*DepositInfo
}
