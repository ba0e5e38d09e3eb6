package generator

import (
	"github.com/holiman/uint256"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/types"
)

// ArgsKind selects the operation encoded in a transaction's args.
type ArgsKind uint8

const (
	// ArgsTransfer moves Amount of the token ToID to the address To.
	ArgsTransfer ArgsKind = iota
	// ArgsCreateAccounts registers every script hash in ScriptHashes.
	ArgsCreateAccounts
	// ArgsCreateContract registers a contract account owned by the sender.
	ArgsCreateContract
	// ArgsCreateSudtProxy registers the layer 2 proxy of SudtScriptHash.
	ArgsCreateSudtProxy
)

// CallArgs is the decoded form of RawL2Transaction.Args.
type CallArgs struct {
	_              struct{} `cbor:",toarray"`
	Kind           ArgsKind
	To             common.Hash
	Amount         uint256.Int
	Fee            uint64
	ScriptHashes   []common.Hash
	SudtScriptHash common.Hash
}

// Encode returns the args bytes carried by a transaction.
func (a *CallArgs) Encode() []byte {
	enc, err := types.Encode(a)
	if err != nil {
		panic(err)
	}
	return enc
}

// DecodeArgs parses transaction args.
func DecodeArgs(data []byte) (*CallArgs, error) {
	args := new(CallArgs)
	if err := types.Decode(data, args); err != nil {
		return nil, err
	}
	return args, nil
}

// IsContractCreation reports whether tx creates a contract account.
func IsContractCreation(tx *types.RawL2Transaction) bool {
	args, err := DecodeArgs(tx.Args)
	return err == nil && args.Kind == ArgsCreateContract
}
