package utils

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/common/constants"
	"github.com/dominant-strategies/go-quai-l2/core/mempool"
	"github.com/dominant-strategies/go-quai-l2/log"
)

// InitConfig initializes the viper config instance ensuring that environment variables
// take precedence over config file parameters.
// Environment variables should be prefixed with the application name (e.g. GO_QUAI_L2_LOG_LEVEL).
// It panics if an error occurs while reading the config file.
func InitConfig() {
	// read in config file and merge with defaults
	log.Global.Infof("Loading config from file: %s", viper.ConfigFileUsed())
	err := viper.ReadInConfig()
	if err != nil {
		// if error is type ConfigFileNotFoundError or fs.PathError, ignore error
		if _, ok := err.(*fs.PathError); ok || errors.Is(err, viper.ConfigFileNotFoundError{}) {
			log.Global.Warnf("Config file not found: %s", viper.ConfigFileUsed())
		} else {
			log.Global.Errorf("Error reading config file: %s", err)
			// config file was found but another error was produced. Cannot continue
			panic(err)
		}
	}

	log.Global.Infof("Loading config from environment variables with prefix: '%s_'", constants.ENV_PREFIX)
	viper.SetEnvPrefix(constants.ENV_PREFIX)
	viper.AutomaticEnv()
}

// SaveConfig writes the current config parameters to the config file in use.
// An existing file is kept as a backup copy ending with .bak.
func SaveConfig() error {
	configFile := viper.ConfigFileUsed()
	log.Global.Debugf("saving/updating config file: %s", configFile)
	if _, err := os.Stat(configFile); err == nil {
		if err := os.Rename(configFile, configFile+".bak"); err != nil {
			return err
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
			return err
		}
	} else {
		return err
	}
	return viper.WriteConfigAs(configFile)
}

// WriteDefaultConfigFile writes every flag of Flags with its current value
// to configDir/fileName.
func WriteDefaultConfigFile(configDir string, fileName string, configType string) error {
	v := viper.New()
	v.SetConfigType(configType)
	for _, group := range Flags {
		for _, flag := range group {
			if viper.IsSet(flag.GetName()) {
				v.Set(flag.GetName(), viper.Get(flag.GetName()))
			} else {
				v.Set(flag.GetName(), flag.GetValue())
			}
		}
	}
	return v.WriteConfigAs(filepath.Join(configDir, fileName))
}

// MemPoolConfig builds the mem-pool configuration from the bound flags.
func MemPoolConfig() mempool.Config {
	cfg := mempool.DefaultConfig
	cfg.NodeMode = mempool.NodeMode(viper.GetString(NodeModeFlag.Name))
	cfg.BlockProducer = common.HexToHash(viper.GetString(BlockProducerFlag.Name))
	cfg.MaxTxs = viper.GetInt(MaxTxsFlag.Name)
	cfg.MaxWithdrawals = viper.GetInt(MaxWithdrawalsFlag.Name)
	cfg.MaxDeposits = viper.GetInt(MaxDepositsFlag.Name)
	cfg.MaxCyclesLimit = viper.GetUint64(MaxCyclesFlag.Name)
	cfg.MinBlockInterval = viper.GetDuration(MinBlockIntervalFlag.Name)
	cfg.FinalityBlocks = viper.GetUint64(FinalityBlocksFlag.Name)
	cfg.MinDepositCapacity = viper.GetUint64(MinDepositCapacityFlag.Name)
	cfg.MinWithdrawalCapacity = viper.GetUint64(MinWithdrawalCapacityFlag.Name)
	cfg.RestorePath = viper.GetString(RestorePathFlag.Name)
	cfg.RestoreMaxAge = viper.GetDuration(RestoreMaxAgeFlag.Name)
	return cfg
}
