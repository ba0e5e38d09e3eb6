package types

import (
	"github.com/dominant-strategies/go-quai-l2/common"
)

// Log service flags emitted by the execution engine.
const (
	LogFlagTransfer       uint8 = 1
	LogFlagNewAddress     uint8 = 2 // Data is the script hash of an address without an account
	LogFlagAccountCreated uint8 = 3
	LogFlagSudtProxy      uint8 = 4 // a layer 2 proxy of a base chain token was created
)

// LogItem is a log emitted while executing a transaction.
type LogItem struct {
	_           struct{} `cbor:",toarray"`
	AccountID   uint32
	ServiceFlag uint8
	Data        []byte
}

// RunResult is the outcome of executing a transaction.
type RunResult struct {
	ReturnData []byte
	Logs       []LogItem
	ExitCode   int8
	CyclesUsed uint64
}

// TxReceipt is stored for every executed mem-pool transaction.
type TxReceipt struct {
	_          struct{} `cbor:",toarray"`
	TxHash     common.Hash
	PostState  AccountMerkleState
	Logs       []LogItem
	ExitCode   int8
	CyclesUsed uint64
}

// NewTxReceipt builds the receipt of tx from its run result.
func NewTxReceipt(tx *L2Transaction, result *RunResult, postState AccountMerkleState) *TxReceipt {
	return &TxReceipt{
		TxHash:     tx.Hash(),
		PostState:  postState,
		Logs:       result.Logs,
		ExitCode:   result.ExitCode,
		CyclesUsed: result.CyclesUsed,
	}
}

// NewAddresses returns the script hashes announced by LogFlagNewAddress logs.
func (r *TxReceipt) NewAddresses() []common.Hash {
	var addrs []common.Hash
	for _, l := range r.Logs {
		if l.ServiceFlag == LogFlagNewAddress && len(l.Data) == common.HashLength {
			addrs = append(addrs, common.BytesToHash(l.Data))
		}
	}
	return addrs
}
