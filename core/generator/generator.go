package generator

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/state"
	"github.com/dominant-strategies/go-quai-l2/core/types"
	"github.com/dominant-strategies/go-quai-l2/crypto"
	"github.com/dominant-strategies/go-quai-l2/log"
)

var (
	ErrInvalidChainID         = errors.New("invalid chain id")
	ErrInvalidNonce           = errors.New("invalid nonce")
	ErrInvalidSignature       = errors.New("signature does not match the sender")
	ErrUnknownSender          = errors.New("unknown sender account")
	ErrInvalidArgs            = errors.New("invalid transaction args")
	ErrExceededMaxBlockCycles = errors.New("exceeded max block cycles")
	ErrInsufficientBalance    = errors.New("insufficient balance")
)

// Generator is the reference execution engine. It understands the CallArgs
// operations and charges cycles from the SyscallCycles table.
type Generator struct {
	chainID uint64
	logger  *log.Logger
}

// New creates a generator for the given rollup chain.
func New(chainID uint64, logger *log.Logger) *Generator {
	return &Generator{chainID: chainID, logger: logger}
}

func (g *Generator) ChainID() uint64 { return g.chainID }

// CheckTransactionSignature verifies that tx was signed by the owner of its
// sender account.
func (g *Generator) CheckTransactionSignature(st state.State, tx *types.L2Transaction) error {
	if tx.Raw.ChainID != g.chainID {
		return fmt.Errorf("%w: have %d want %d", ErrInvalidChainID, tx.Raw.ChainID, g.chainID)
	}
	owner, err := st.GetScriptHash(tx.Raw.FromID)
	if err != nil {
		return fmt.Errorf("%w: %d", ErrUnknownSender, tx.Raw.FromID)
	}
	sender, err := tx.Sender()
	if err != nil {
		return err
	}
	if sender != owner {
		return ErrInvalidSignature
	}
	return nil
}

// CheckWithdrawalSignature verifies that w was signed by the owner of the
// withdrawing account.
func (g *Generator) CheckWithdrawalSignature(st state.State, w *types.WithdrawalRequest) error {
	if w.Raw.ChainID != g.chainID {
		return fmt.Errorf("%w: have %d want %d", ErrInvalidChainID, w.Raw.ChainID, g.chainID)
	}
	if _, ok := st.GetAccountIDByScriptHash(w.Raw.AccountScriptHash); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSender, w.Raw.AccountScriptHash.TerminalString())
	}
	sender, err := w.Sender()
	if err != nil {
		return err
	}
	if sender != w.Raw.AccountScriptHash {
		return ErrInvalidSignature
	}
	return nil
}

// ExecuteTransaction runs tx on st. Everything is checked and the cycles are
// charged before st is modified, so a failed call leaves st unchanged.
func (g *Generator) ExecuteTransaction(st state.State, info *types.BlockInfo, tx *types.RawL2Transaction, cycles *CyclesPool) (*types.RunResult, error) {
	sender, err := st.GetScriptHash(tx.FromID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSender, tx.FromID)
	}
	nonce, err := st.GetNonce(tx.FromID)
	if err != nil {
		return nil, err
	}
	if nonce != tx.Nonce {
		return nil, fmt.Errorf("%w: expected %d got %d", ErrInvalidNonce, nonce, tx.Nonce)
	}
	args, err := DecodeArgs(tx.Args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}

	var (
		run      func() error
		logs     []types.LogItem
		creating int
	)
	switch args.Kind {
	case ArgsTransfer:
		if _, err := st.GetScriptHash(tx.ToID); err != nil {
			return nil, fmt.Errorf("%w: unknown token %d", ErrInvalidArgs, tx.ToID)
		}
		need := new(uint256.Int).Set(&args.Amount)
		fee := uint256.NewInt(args.Fee)
		if tx.ToID != state.CKBSudtID {
			if st.GetBalance(state.CKBSudtID, sender).Lt(fee) {
				return nil, ErrInsufficientBalance
			}
		} else if _, overflow := need.AddOverflow(need, fee); overflow {
			return nil, ErrInsufficientBalance
		}
		if st.GetBalance(tx.ToID, sender).Lt(need) {
			return nil, ErrInsufficientBalance
		}
		logs = append(logs, types.LogItem{AccountID: tx.ToID, ServiceFlag: types.LogFlagTransfer, Data: args.To.Bytes()})
		if _, ok := st.GetAccountIDByScriptHash(args.To); !ok {
			logs = append(logs, types.LogItem{AccountID: tx.ToID, ServiceFlag: types.LogFlagNewAddress, Data: args.To.Bytes()})
		}
		run = func() error {
			if err := st.SubBalance(tx.ToID, sender, &args.Amount); err != nil {
				return err
			}
			if err := st.AddBalance(tx.ToID, args.To, &args.Amount); err != nil {
				return err
			}
			if err := st.SubBalance(state.CKBSudtID, sender, fee); err != nil {
				return err
			}
			return st.AddBalance(state.CKBSudtID, info.BlockProducer, fee)
		}

	case ArgsCreateAccounts:
		var fresh []common.Hash
		seen := make(map[common.Hash]struct{})
		for _, h := range args.ScriptHashes {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			if _, ok := st.GetAccountIDByScriptHash(h); !ok {
				fresh = append(fresh, h)
			}
		}
		for _, h := range fresh {
			logs = append(logs, types.LogItem{ServiceFlag: types.LogFlagAccountCreated, Data: h.Bytes()})
		}
		creating = len(fresh)
		run = func() error {
			for _, h := range fresh {
				if _, err := st.CreateAccount(h); err != nil {
					return err
				}
			}
			return nil
		}

	case ArgsCreateContract:
		contract := ContractScriptHash(sender, tx.Nonce)
		if _, ok := st.GetAccountIDByScriptHash(contract); ok {
			return nil, fmt.Errorf("%w: contract exists", ErrInvalidArgs)
		}
		logs = append(logs, types.LogItem{ServiceFlag: types.LogFlagAccountCreated, Data: contract.Bytes()})
		creating = 1
		run = func() error {
			_, err := st.CreateAccount(contract)
			return err
		}

	case ArgsCreateSudtProxy:
		if args.SudtScriptHash == (common.Hash{}) {
			return nil, fmt.Errorf("%w: empty sudt script hash", ErrInvalidArgs)
		}
		if _, ok := st.GetSudtID(args.SudtScriptHash); ok {
			return nil, fmt.Errorf("%w: sudt proxy exists", ErrInvalidArgs)
		}
		proxy := state.SudtAccountScriptHash(args.SudtScriptHash)
		logs = append(logs, types.LogItem{ServiceFlag: types.LogFlagSudtProxy, Data: proxy.Bytes()})
		creating = 1
		run = func() error {
			_, err := st.CreateAccount(proxy)
			return err
		}

	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidArgs, args.Kind)
	}

	cost := g.cycles(cycles.SyscallCycles(), len(tx.Args), len(logs), creating)
	if !cycles.TryConsume(cost) {
		return nil, fmt.Errorf("%w: need %d remaining %d", ErrExceededMaxBlockCycles, cost, cycles.Remaining())
	}
	if err := run(); err != nil {
		return nil, err
	}
	if err := st.SetNonce(tx.FromID, nonce+1); err != nil {
		return nil, err
	}
	g.logger.WithFields(log.Fields{
		"from":   tx.FromID,
		"nonce":  tx.Nonce,
		"kind":   args.Kind,
		"cycles": cost,
	}).Trace("Executed transaction")
	return &types.RunResult{Logs: logs, CyclesUsed: cost}, nil
}

func (g *Generator) cycles(table SyscallCycles, argBytes, logs, creating int) uint64 {
	return table.Base +
		table.PerArgByte*uint64(argBytes) +
		table.PerLog*uint64(logs) +
		table.CreateAccount*uint64(creating)
}

// ContractScriptHash derives the script hash of a contract created by
// sender at nonce.
func ContractScriptHash(sender common.Hash, nonce uint32) common.Hash {
	return crypto.Keccak256Hash([]byte("contract"), sender.Bytes(), []byte{
		byte(nonce >> 24), byte(nonce >> 16), byte(nonce >> 8), byte(nonce),
	})
}
