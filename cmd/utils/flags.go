package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dominant-strategies/go-quai-l2/common/constants"
	"github.com/dominant-strategies/go-quai-l2/core/mempool"
	"github.com/dominant-strategies/go-quai-l2/log"
)

var GlobalFlags = []Flag{
	ConfigDirFlag,
	DataDirFlag,
	LogLevelFlag,
	SaveConfigFlag,
}

var NodeFlags = []Flag{
	DBEngineFlag,
	ChainIDFlag,
	BlockProducerFlag,
	NodeModeFlag,
	AccountCreatorKeyFlag,
	BlockIntervalFlag,
}

var MemPoolFlags = []Flag{
	MaxTxsFlag,
	MaxWithdrawalsFlag,
	MaxDepositsFlag,
	MaxCyclesFlag,
	MinBlockIntervalFlag,
	FinalityBlocksFlag,
	MinDepositCapacityFlag,
	MinWithdrawalCapacityFlag,
	RestorePathFlag,
	RestoreMaxAgeFlag,
}

var MetricsFlags = []Flag{
	MetricsEnabledFlag,
	MetricsAddrFlag,
}

// Flags groups every flag written to the default config file.
var Flags = [][]Flag{
	NodeFlags,
	MemPoolFlags,
	MetricsFlags,
}

var (
	// ****************************************
	// **                                    **
	// **         GLOBAL FLAGS               **
	// **                                    **
	// ****************************************
	ConfigDirFlag = Flag{
		Name:         "config-dir",
		Abbreviation: "c",
		Value:        xdg.ConfigHome + "/" + constants.APP_NAME + "/",
		Usage:        "config directory" + generateEnvDoc("config-dir"),
	}

	DataDirFlag = Flag{
		Name:         "data-dir",
		Abbreviation: "d",
		Value:        xdg.DataHome + "/" + constants.APP_NAME + "/",
		Usage:        "data directory" + generateEnvDoc("data-dir"),
	}

	LogLevelFlag = Flag{
		Name:         "log-level",
		Abbreviation: "l",
		Value:        "info",
		Usage:        "log level (trace, debug, info, warn, error, fatal, panic)" + generateEnvDoc("log-level"),
	}

	SaveConfigFlag = Flag{
		Name:         "save-config",
		Abbreviation: "S",
		Value:        false,
		Usage:        "save/update config file with current config parameters" + generateEnvDoc("save-config"),
	}

	// ****************************************
	// **                                    **
	// **         NODE FLAGS                 **
	// **                                    **
	// ****************************************
	DBEngineFlag = Flag{
		Name:  "db.engine",
		Value: "leveldb",
		Usage: "backing database implementation to use ('leveldb' or 'pebble')" + generateEnvDoc("db.engine"),
	}

	ChainIDFlag = Flag{
		Name:  "chain-id",
		Value: uint64(1),
		Usage: "rollup chain id that signatures commit to" + generateEnvDoc("chain-id"),
	}

	BlockProducerFlag = Flag{
		Name:  "block-producer",
		Value: "",
		Usage: "script hash credited with transaction and withdrawal fees" + generateEnvDoc("block-producer"),
	}

	NodeModeFlag = Flag{
		Name:  "node-mode",
		Value: string(mempool.DefaultConfig.NodeMode),
		Usage: "mem-pool mode (full, test, readonly)" + generateEnvDoc("node-mode"),
	}

	AccountCreatorKeyFlag = Flag{
		Name:  "account-creator.key",
		Value: "",
		Usage: "file holding the hex private key that registers new addresses" + generateEnvDoc("account-creator.key"),
	}

	BlockIntervalFlag = Flag{
		Name:  "block-interval",
		Value: 3 * time.Second,
		Usage: "expected time between blocks, used to estimate mem block timestamps" + generateEnvDoc("block-interval"),
	}

	// ****************************************
	// **                                    **
	// **         MEM-POOL FLAGS             **
	// **                                    **
	// ****************************************
	MaxTxsFlag = Flag{
		Name:  "mempool.maxtxs",
		Value: mempool.DefaultConfig.MaxTxs,
		Usage: "maximum number of transactions in a mem block" + generateEnvDoc("mempool.maxtxs"),
	}

	MaxWithdrawalsFlag = Flag{
		Name:  "mempool.maxwithdrawals",
		Value: mempool.DefaultConfig.MaxWithdrawals,
		Usage: "maximum number of withdrawals in a mem block" + generateEnvDoc("mempool.maxwithdrawals"),
	}

	MaxDepositsFlag = Flag{
		Name:  "mempool.maxdeposits",
		Value: mempool.DefaultConfig.MaxDeposits,
		Usage: "maximum number of deposits in a mem block" + generateEnvDoc("mempool.maxdeposits"),
	}

	MaxCyclesFlag = Flag{
		Name:  "mempool.maxcycles",
		Value: mempool.DefaultConfig.MaxCyclesLimit,
		Usage: "execution cycles available to a mem block" + generateEnvDoc("mempool.maxcycles"),
	}

	MinBlockIntervalFlag = Flag{
		Name:  "mempool.minblockinterval",
		Value: mempool.DefaultConfig.MinBlockInterval,
		Usage: "minimum timestamp distance between a mem block and its parent" + generateEnvDoc("mempool.minblockinterval"),
	}

	FinalityBlocksFlag = Flag{
		Name:  "mempool.finalityblocks",
		Value: mempool.DefaultConfig.FinalityBlocks,
		Usage: "blocks after which deposits become finalized custodian capacity" + generateEnvDoc("mempool.finalityblocks"),
	}

	MinDepositCapacityFlag = Flag{
		Name:  "mempool.mindeposit",
		Value: mempool.DefaultConfig.MinDepositCapacity,
		Usage: "minimum capacity of a deposit" + generateEnvDoc("mempool.mindeposit"),
	}

	MinWithdrawalCapacityFlag = Flag{
		Name:  "mempool.minwithdrawal",
		Value: mempool.DefaultConfig.MinWithdrawalCapacity,
		Usage: "minimum capacity of a withdrawal" + generateEnvDoc("mempool.minwithdrawal"),
	}

	RestorePathFlag = Flag{
		Name:  "mempool.restorepath",
		Value: "",
		Usage: "separate database for saved mem blocks (default = chain database)" + generateEnvDoc("mempool.restorepath"),
	}

	RestoreMaxAgeFlag = Flag{
		Name:  "mempool.restoremaxage",
		Value: mempool.DefaultConfig.RestoreMaxAge,
		Usage: "saved mem blocks older than this are pruned" + generateEnvDoc("mempool.restoremaxage"),
	}

	// ****************************************
	// **                                    **
	// **         METRICS FLAGS              **
	// **                                    **
	// ****************************************
	MetricsEnabledFlag = Flag{
		Name:  "metrics",
		Value: false,
		Usage: "enable metrics collection and reporting" + generateEnvDoc("metrics"),
	}

	MetricsAddrFlag = Flag{
		Name:  "metrics-addr",
		Value: "127.0.0.1:2112",
		Usage: "address the prometheus endpoint listens on" + generateEnvDoc("metrics-addr"),
	}
)

func CreateAndBindFlag(flag Flag, cmd *cobra.Command) {
	switch val := flag.Value.(type) {
	case string:
		cmd.PersistentFlags().StringP(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	case bool:
		cmd.PersistentFlags().BoolP(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	case []string:
		cmd.PersistentFlags().StringSliceP(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	case time.Duration:
		cmd.PersistentFlags().DurationP(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	case int:
		cmd.PersistentFlags().IntP(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	case int64:
		cmd.PersistentFlags().Int64P(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	case uint64:
		cmd.PersistentFlags().Uint64P(flag.GetName(), flag.GetAbbreviation(), val, flag.GetUsage())
	default:
		log.Error("Flag type not supported: " + flag.GetName() + ", " + fmt.Sprintf("%T", val))
	}
	viper.BindPFlag(flag.GetName(), cmd.PersistentFlags().Lookup(flag.GetName()))
}

// helper function that given a cobra flag name, returns the corresponding
// help legend for the equivalent environment variable
func generateEnvDoc(flag string) string {
	envVar := constants.ENV_PREFIX + "_" + strings.ReplaceAll(strings.ToUpper(flag), "-", "_")
	return fmt.Sprintf(" [%s]", envVar)
}
