package mempool

import (
	"github.com/pkg/errors"

	"github.com/dominant-strategies/go-quai-l2/core/generator"
)

// ErrorClass tells callers how a rejected item should be treated.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	// ClassValidation is a malformed, badly signed, stale, duplicate or
	// denied item. Resubmitting it unchanged fails again.
	ClassValidation
	// ClassResourceExhausted is a full mem block or an exhausted cycle
	// budget. The caller may retry after the next block.
	ClassResourceExhausted
	// ClassExecution is a failed execution. The state was reverted.
	ClassExecution
	// ClassReorgDepthExceeded marks a reorg whose backlog was dropped.
	ClassReorgDepthExceeded
	// ClassStorageInvariant is an expected block or account that is missing.
	// It is never returned to callers; the pool panics with it.
	ClassStorageInvariant
)

func (c ErrorClass) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassResourceExhausted:
		return "resource exhausted"
	case ClassExecution:
		return "execution"
	case ClassReorgDepthExceeded:
		return "reorg depth exceeded"
	case ClassStorageInvariant:
		return "storage invariant"
	default:
		return "unknown"
	}
}

var (
	ErrDuplicateTx            = errors.New("duplicate transaction")
	ErrDuplicateWithdrawal    = errors.New("duplicate withdrawal request")
	ErrNonceTooLow            = errors.New("nonce too low")
	ErrNonceAlreadyPending    = errors.New("nonce already pending")
	ErrUnknownAccount         = errors.New("unknown account")
	ErrUnknownAsset           = errors.New("unknown asset script")
	ErrOversizedArgs          = errors.New("transaction args too large")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrWithdrawalTooSmall     = errors.New("withdrawal capacity below minimum")
	ErrOwnerLockMismatch      = errors.New("owner lock does not match the request")
	ErrInsufficientCustodian  = errors.New("insufficient finalized custodian")
	ErrContractCreatorDenied  = errors.New("sender is not allowed to create contracts")
	ErrSudtProxyCreatorDenied = errors.New("sender is not allowed to create sudt proxies")
	ErrMemBlockFull           = errors.New("mem block is full")
	ErrNotSynced              = errors.New("mem block is not synced to the tip")
	ErrReadOnlyNode           = errors.New("read-only node takes withdrawals from announcements only")
	ErrReorgTooDeep           = errors.New("reorg too deep")
	ErrStorageInvariant       = errors.New("storage invariant violated")
)

// PoolError attaches an ErrorClass to a rejection.
type PoolError struct {
	Class ErrorClass
	Err   error
}

func (e *PoolError) Error() string { return e.Err.Error() }

func (e *PoolError) Unwrap() error { return e.Err }

func classify(class ErrorClass, err error) error {
	if err == nil {
		return nil
	}
	var pe *PoolError
	if errors.As(err, &pe) {
		return err
	}
	return &PoolError{Class: class, Err: err}
}

// ClassOf returns the class of an error returned by the pool.
func ClassOf(err error) ErrorClass {
	var pe *PoolError
	if errors.As(err, &pe) {
		return pe.Class
	}
	return ClassUnknown
}

// classifyExecution maps execution engine errors onto pool classes.
func classifyExecution(err error) error {
	switch {
	case errors.Is(err, generator.ErrExceededMaxBlockCycles):
		return classify(ClassResourceExhausted, err)
	case errors.Is(err, generator.ErrInvalidNonce),
		errors.Is(err, generator.ErrInvalidSignature),
		errors.Is(err, generator.ErrInvalidChainID),
		errors.Is(err, generator.ErrUnknownSender),
		errors.Is(err, generator.ErrInvalidArgs):
		return classify(ClassValidation, err)
	default:
		return classify(ClassExecution, err)
	}
}

// invariant reports a violated storage invariant. These are unrecoverable.
func invariant(err error) {
	if !errors.Is(err, ErrStorageInvariant) {
		err = errors.Wrap(ErrStorageInvariant, err.Error())
	}
	panic(&PoolError{Class: ClassStorageInvariant, Err: err})
}
