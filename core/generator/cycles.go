// Package generator executes layer 2 transactions against an account state.
package generator

import (
	"fmt"
	"math"
)

// SyscallCycles is the cycle cost table charged by the execution engine.
type SyscallCycles struct {
	Base          uint64 `mapstructure:"base"`
	PerArgByte    uint64 `mapstructure:"per-arg-byte"`
	PerLog        uint64 `mapstructure:"per-log"`
	CreateAccount uint64 `mapstructure:"create-account"`
}

// DefaultSyscallCycles is the cost table used when none is configured.
var DefaultSyscallCycles = SyscallCycles{
	Base:          10_000,
	PerArgByte:    10,
	PerLog:        1_000,
	CreateAccount: 5_000,
}

// CyclesPool tracks the cycles consumed by the candidate block against its
// limit.
type CyclesPool struct {
	limit    uint64
	consumed uint64
	syscall  SyscallCycles
}

// NewCyclesPool creates a pool with the given limit.
func NewCyclesPool(limit uint64, syscall SyscallCycles) *CyclesPool {
	return &CyclesPool{limit: limit, syscall: syscall}
}

// NewUnlimitedCyclesPool creates a pool that never runs out, charged with the
// default cost table.
func NewUnlimitedCyclesPool() *CyclesPool {
	return NewCyclesPool(math.MaxUint64, DefaultSyscallCycles)
}

// TryConsume charges n cycles if they fit in the remaining budget. Nothing
// is charged otherwise.
func (p *CyclesPool) TryConsume(n uint64) bool {
	if n > p.Remaining() {
		return false
	}
	p.consumed += n
	return true
}

// Consume charges n cycles unconditionally. The remaining budget saturates
// at zero.
func (p *CyclesPool) Consume(n uint64) {
	if p.consumed > math.MaxUint64-n {
		panic(fmt.Sprintf("cycles pool overflow: consumed %d, charging %d", p.consumed, n))
	}
	p.consumed += n
}

func (p *CyclesPool) Consumed() uint64 { return p.consumed }

func (p *CyclesPool) Limit() uint64 { return p.limit }

// Remaining returns the cycles left before the limit is reached.
func (p *CyclesPool) Remaining() uint64 {
	if p.consumed >= p.limit {
		return 0
	}
	return p.limit - p.consumed
}

func (p *CyclesPool) SyscallCycles() SyscallCycles { return p.syscall }

// Reset re-arms the pool with a new limit and cost table.
func (p *CyclesPool) Reset(limit uint64, syscall SyscallCycles) {
	p.limit = limit
	p.consumed = 0
	p.syscall = syscall
}
