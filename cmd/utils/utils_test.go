package utils

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/common/constants"
	"github.com/dominant-strategies/go-quai-l2/core/mempool"
	"github.com/dominant-strategies/go-quai-l2/crypto"
)

// testXDGConfigLoading tests the loading of the config file from the XDG config home
// and verifies values are correctly set in viper.
// This test is nested within the TestCobraFlagConfigLoading test.
func testXDGConfigLoading(t *testing.T) {
	tempFile := createMockXDGConfigFile(t, t.TempDir())
	defer tempFile.Close()

	// write 'log-level = debug' config to mock config.toml file
	_, err := tempFile.WriteString(LogLevelFlag.Name + " = " + "\"debug\"\n")
	require.NoError(t, err)

	// Set config path to the temporary config directory
	viper.SetConfigFile(tempFile.Name())

	InitConfig()

	// Assert log level is set to "debug" as per the mock config file
	assert.Equal(t, "debug", viper.GetString(LogLevelFlag.Name))
}

// TestCobraFlagConfigLoading tests the loading of the config file from the XDG config home,
// the loading of the environment variable and the loading of the cobra flag.
// It verifies the expected order of precedence of config loading.
func TestCobraFlagConfigLoading(t *testing.T) {
	// Clear viper instance to simulate a fresh start
	viper.Reset()
	defer viper.Reset()
	viper.AutomaticEnv()
	viper.SetEnvPrefix(constants.ENV_PREFIX)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_")) // Replace hyphens with underscores

	// Test loading config from XDG config home
	testXDGConfigLoading(t)
	assert.Equal(t, "debug", viper.GetString(LogLevelFlag.Name))

	// Test loading config from environment variable
	t.Setenv(constants.ENV_PREFIX+"_"+"LOG_LEVEL", "error")
	assert.Equal(t, "error", viper.GetString("LOG_LEVEL"))

	// Test loading config from cobra flag
	rootCmd := &cobra.Command{}
	rootCmd.PersistentFlags().StringP(LogLevelFlag.Name, "l", "warn", "log level (trace, debug, info, warn, error, fatal, panic")
	err := rootCmd.PersistentFlags().Set(LogLevelFlag.Name, "trace")
	require.NoError(t, err)
	viper.BindPFlags(rootCmd.PersistentFlags())
	assert.Equal(t, "trace", viper.GetString(LogLevelFlag.Name))
}

func TestMemPoolConfigFromFlags(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{}
	for _, group := range Flags {
		for _, flag := range group {
			CreateAndBindFlag(flag, cmd)
		}
	}
	require.NoError(t, cmd.PersistentFlags().Set(MaxTxsFlag.Name, "12"))
	require.NoError(t, cmd.PersistentFlags().Set(MinBlockIntervalFlag.Name, "250ms"))
	require.NoError(t, cmd.PersistentFlags().Set(BlockProducerFlag.Name, "0xb10c"))
	require.NoError(t, cmd.PersistentFlags().Set(NodeModeFlag.Name, "readonly"))

	cfg := MemPoolConfig()
	assert.Equal(t, 12, cfg.MaxTxs)
	assert.Equal(t, 250*time.Millisecond, cfg.MinBlockInterval)
	assert.Equal(t, common.HexToHash("0xb10c"), cfg.BlockProducer)
	assert.Equal(t, mempool.ReadOnlyNode, cfg.NodeMode)
	assert.Equal(t, mempool.DefaultConfig.MaxWithdrawals, cfg.MaxWithdrawals)
	assert.Equal(t, mempool.DefaultConfig.MaxCyclesLimit, cfg.MaxCyclesLimit)
	assert.Equal(t, mempool.DefaultConfig.RestoreMaxAge, cfg.RestoreMaxAge)
}

func TestWriteDefaultConfigFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set(MaxDepositsFlag.Name, 7)

	dir := t.TempDir()
	require.NoError(t, WriteDefaultConfigFile(dir, constants.CONFIG_FILE_NAME, constants.CONFIG_FILE_TYPE))

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, constants.CONFIG_FILE_NAME))
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, 7, v.GetInt(MaxDepositsFlag.Name))
	assert.Equal(t, mempool.DefaultConfig.MaxTxs, v.GetInt(MaxTxsFlag.Name))
	assert.Equal(t, "leveldb", v.GetString(DBEngineFlag.Name))
}

func TestReadKeyFile(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "creator.key")
	require.NoError(t, os.WriteFile(path, []byte("0x"+hex.EncodeToString(key.Serialize())+"\n"), 0600))
	loaded, err := ReadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToScriptHash(key.PubKey()), crypto.PubkeyToScriptHash(loaded.PubKey()))

	require.NoError(t, os.WriteFile(path, []byte("0x1234"), 0600))
	_, err = ReadKeyFile(path)
	require.Error(t, err)
}

// helper function to create a mock XDG directory and config file
func createMockXDGConfigFile(t *testing.T, dir string) *os.File {
	t.Helper()
	err := os.MkdirAll(dir, 0755)
	require.NoError(t, err)
	tmpFile, err := os.Create(filepath.Join(dir, constants.CONFIG_FILE_NAME))
	require.NoError(t, err)
	return tmpFile
}
