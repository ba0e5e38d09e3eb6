package mempool

import (
	"time"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/generator"
	"github.com/dominant-strategies/go-quai-l2/log"
)

// NodeMode selects how the pool follows the chain.
type NodeMode string

const (
	FullNode     NodeMode = "full"
	TestNode     NodeMode = "test"
	ReadOnlyNode NodeMode = "readonly"
)

// Config are the configuration parameters of the mem-pool.
type Config struct {
	NodeMode      NodeMode
	BlockProducer common.Hash // receives transaction and withdrawal fees

	MaxTxs         int // transactions per mem block
	MaxWithdrawals int // withdrawals per mem block
	MaxDeposits    int // deposits per mem block
	MaxTxArgsSize  int

	MaxCyclesLimit uint64
	SyscallCycles  generator.SyscallCycles

	// MinBlockInterval is the least a mem block timestamp may follow its
	// parent by.
	MinBlockInterval time.Duration
	// FinalityBlocks is the number of blocks after which deposits become
	// finalized custodian capacity.
	FinalityBlocks uint64

	MinDepositCapacity    uint64
	MinWithdrawalCapacity uint64

	DepositCollectRetries uint

	RestorePath   string // separate database for saved mem blocks, chain database if empty
	RestoreMaxAge time.Duration
}

// DefaultConfig contains the default configurations for the mem-pool.
var DefaultConfig = Config{
	NodeMode: FullNode,

	MaxTxs:         1000,
	MaxWithdrawals: 50,
	MaxDeposits:    50,
	MaxTxArgsSize:  64 * 1024,

	MaxCyclesLimit: 70_000_000,
	SyscallCycles:  generator.DefaultSyscallCycles,

	MinBlockInterval: time.Second,
	FinalityBlocks:   100,

	MinDepositCapacity:    0,
	MinWithdrawalCapacity: 0,

	DepositCollectRetries: 3,

	RestoreMaxAge: time.Hour,
}

// sanitize checks the provided user configurations and changes anything that's
// unreasonable or unworkable.
func (config *Config) sanitize(logger *log.Logger) Config {
	conf := *config
	switch conf.NodeMode {
	case FullNode, TestNode, ReadOnlyNode:
	default:
		logger.WithFields(log.Fields{
			"provided": conf.NodeMode,
			"updated":  DefaultConfig.NodeMode,
		}).Warn("Sanitizing invalid mem-pool node mode")
		conf.NodeMode = DefaultConfig.NodeMode
	}
	if conf.MaxTxs < 1 {
		logger.WithFields(log.Fields{
			"provided": conf.MaxTxs,
			"updated":  DefaultConfig.MaxTxs,
		}).Warn("Sanitizing invalid mem-pool max txs")
		conf.MaxTxs = DefaultConfig.MaxTxs
	}
	if conf.MaxWithdrawals < 1 {
		logger.WithFields(log.Fields{
			"provided": conf.MaxWithdrawals,
			"updated":  DefaultConfig.MaxWithdrawals,
		}).Warn("Sanitizing invalid mem-pool max withdrawals")
		conf.MaxWithdrawals = DefaultConfig.MaxWithdrawals
	}
	if conf.MaxDeposits < 1 {
		logger.WithFields(log.Fields{
			"provided": conf.MaxDeposits,
			"updated":  DefaultConfig.MaxDeposits,
		}).Warn("Sanitizing invalid mem-pool max deposits")
		conf.MaxDeposits = DefaultConfig.MaxDeposits
	}
	if conf.MaxTxArgsSize < 1 {
		logger.WithFields(log.Fields{
			"provided": conf.MaxTxArgsSize,
			"updated":  DefaultConfig.MaxTxArgsSize,
		}).Warn("Sanitizing invalid mem-pool max args size")
		conf.MaxTxArgsSize = DefaultConfig.MaxTxArgsSize
	}
	if conf.MaxCyclesLimit == 0 {
		logger.WithFields(log.Fields{
			"provided": conf.MaxCyclesLimit,
			"updated":  DefaultConfig.MaxCyclesLimit,
		}).Warn("Sanitizing invalid mem-pool cycles limit")
		conf.MaxCyclesLimit = DefaultConfig.MaxCyclesLimit
	}
	if conf.SyscallCycles == (generator.SyscallCycles{}) {
		conf.SyscallCycles = DefaultConfig.SyscallCycles
	}
	if conf.MinBlockInterval < time.Millisecond {
		logger.WithFields(log.Fields{
			"provided": conf.MinBlockInterval,
			"updated":  DefaultConfig.MinBlockInterval,
		}).Warn("Sanitizing invalid mem-pool block interval")
		conf.MinBlockInterval = DefaultConfig.MinBlockInterval
	}
	if conf.FinalityBlocks == 0 {
		logger.WithFields(log.Fields{
			"provided": conf.FinalityBlocks,
			"updated":  DefaultConfig.FinalityBlocks,
		}).Warn("Sanitizing invalid mem-pool finality")
		conf.FinalityBlocks = DefaultConfig.FinalityBlocks
	}
	if conf.DepositCollectRetries < 1 {
		conf.DepositCollectRetries = 1
	}
	if conf.RestoreMaxAge < time.Minute {
		logger.WithFields(log.Fields{
			"provided": conf.RestoreMaxAge,
			"updated":  DefaultConfig.RestoreMaxAge,
		}).Warn("Sanitizing invalid mem-pool restore age")
		conf.RestoreMaxAge = DefaultConfig.RestoreMaxAge
	}
	return conf
}
