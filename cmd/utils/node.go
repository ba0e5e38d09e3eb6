package utils

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/common/constants"
	"github.com/dominant-strategies/go-quai-l2/config"
	"github.com/dominant-strategies/go-quai-l2/core/generator"
	"github.com/dominant-strategies/go-quai-l2/core/mempool"
	"github.com/dominant-strategies/go-quai-l2/core/rawdb"
	"github.com/dominant-strategies/go-quai-l2/core/state"
	"github.com/dominant-strategies/go-quai-l2/core/store"
	"github.com/dominant-strategies/go-quai-l2/crypto"
	"github.com/dominant-strategies/go-quai-l2/ethdb"
	"github.com/dominant-strategies/go-quai-l2/log"
)

const (
	databaseCache   = 128
	databaseHandles = 256
)

// Node bundles the databases and services behind a running mem-pool.
type Node struct {
	ChainDB   ethdb.Database
	RestoreDB ethdb.KeyValueStore // nil when saved mem blocks share the chain database
	Store     *store.Store
	Provider  *mempool.StaticProvider
	Dynamic   *config.DynamicConfigManager
	Pool      *mempool.MemPool

	logger *log.Logger
}

// OpenChainDatabase opens the chain database under the data dir.
func OpenChainDatabase(readOnly bool, logger *log.Logger) (ethdb.Database, error) {
	return rawdb.Open(rawdb.OpenOptions{
		Type:      viper.GetString(DBEngineFlag.Name),
		Directory: filepath.Join(viper.GetString(DataDirFlag.Name), constants.CHAINDATA_DIR_NAME),
		Cache:     databaseCache,
		Handles:   databaseHandles,
		ReadOnly:  readOnly,
	}, logger)
}

// MakeNode opens the chain database, writes a genesis block into an empty
// one and starts the mem-pool on the current tip.
func MakeNode(ctx context.Context, logger *log.Logger) (*Node, error) {
	n := &Node{logger: logger}
	db, err := OpenChainDatabase(false, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open chain database")
	}
	n.ChainDB = db

	if n.Store, err = store.New(db, logger); err != nil {
		n.Close()
		return nil, err
	}
	if _, err := n.Store.InitGenesis(state.New(), uint64(time.Now().UnixMilli())); err != nil {
		n.Close()
		return nil, errors.Wrap(err, "init genesis")
	}

	cfg := MemPoolConfig()
	if cfg.RestorePath != "" {
		path := cfg.RestorePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(viper.GetString(DataDirFlag.Name), path)
		}
		restoreDB, err := rawdb.Open(rawdb.OpenOptions{
			Type:      viper.GetString(DBEngineFlag.Name),
			Directory: path,
			Cache:     databaseCache / 8,
			Handles:   databaseHandles / 8,
		}, logger)
		if err != nil {
			n.Close()
			return nil, errors.Wrap(err, "open mem block database")
		}
		n.RestoreDB = restoreDB
	}

	dynamicPath := filepath.Join(viper.GetString(ConfigDirFlag.Name), constants.DYNAMIC_CONFIG_FILE_NAME)
	if n.Dynamic, err = config.NewDynamicConfigManager(dynamicPath, logger); err != nil {
		n.Close()
		return nil, err
	}

	var creator *generator.AccountCreator
	chainID := viper.GetUint64(ChainIDFlag.Name)
	if keyFile := viper.GetString(AccountCreatorKeyFlag.Name); keyFile != "" {
		key, err := ReadKeyFile(keyFile)
		if err != nil {
			n.Close()
			return nil, err
		}
		creator = generator.NewAccountCreator(key, chainID)
		logger.WithField("scriptHash", creator.ScriptHash()).Info("Account creator enabled")
	}

	n.Provider = mempool.NewStaticProvider(viper.GetDuration(BlockIntervalFlag.Name))
	backend := mempool.Backend{
		Store:          n.Store,
		Generator:      generator.New(chainID, logger),
		Provider:       n.Provider,
		AccountCreator: creator,
		DynamicConfig:  n.Dynamic,
		RestoreDB:      n.RestoreDB,
		Logger:         logger,
	}
	if n.Pool, err = mempool.New(ctx, cfg, backend); err != nil {
		n.Close()
		return nil, errors.Wrap(err, "start mem-pool")
	}
	return n, nil
}

// Close saves the mem block and closes the databases.
func (n *Node) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if n.Pool != nil {
		keep(n.Pool.Close())
	}
	if n.RestoreDB != nil {
		keep(n.RestoreDB.Close())
	}
	if n.ChainDB != nil {
		keep(n.ChainDB.Close())
	}
	return firstErr
}

// ReadKeyFile loads a hex encoded secp256k1 private key.
func ReadKeyFile(path string) (*secp256k1.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read key file")
	}
	raw := common.FromHex(strings.TrimSpace(string(data)))
	if len(raw) != secp256k1.PrivKeyBytesLen {
		return nil, errors.Errorf("invalid key length %d in %s", len(raw), path)
	}
	return crypto.ToKey(raw), nil
}
