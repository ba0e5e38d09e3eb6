// Package config holds the node settings that can change while it runs.
package config

import (
	"os"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/log"
)

// DynamicConfigFile is the on-disk layout of the dynamic config.
type DynamicConfigFile struct {
	ContractCreatorAllowlist  []common.Hash `toml:"contract_creator_allowlist"`
	SudtProxyCreatorAllowlist []common.Hash `toml:"sudt_proxy_creator_allowlist"`
}

// DynamicConfig is an immutable, loaded dynamic config. An empty allow list
// lets every sender through.
type DynamicConfig struct {
	contractCreators  mapset.Set[common.Hash]
	sudtProxyCreators mapset.Set[common.Hash]
}

// NewDynamicConfig builds a config from its on-disk layout.
func NewDynamicConfig(file *DynamicConfigFile) *DynamicConfig {
	return &DynamicConfig{
		contractCreators:  mapset.NewSet(file.ContractCreatorAllowlist...),
		sudtProxyCreators: mapset.NewSet(file.SudtProxyCreatorAllowlist...),
	}
}

// ContractCreatorAllowed reports whether sender may create contracts.
func (c *DynamicConfig) ContractCreatorAllowed(sender common.Hash) bool {
	return c.contractCreators.Cardinality() == 0 || c.contractCreators.Contains(sender)
}

// SudtProxyCreatorAllowed reports whether sender may create token proxies.
func (c *DynamicConfig) SudtProxyCreatorAllowed(sender common.Hash) bool {
	return c.sudtProxyCreators.Cardinality() == 0 || c.sudtProxyCreators.Contains(sender)
}

// DynamicConfigManager serves the current dynamic config and swaps in a new
// one on Reload.
type DynamicConfigManager struct {
	path    string
	current atomic.Pointer[DynamicConfig]
	logger  *log.Logger
}

// NewDynamicConfigManager loads the config at path. An empty path or a
// missing file yields a config without restrictions.
func NewDynamicConfigManager(path string, logger *log.Logger) (*DynamicConfigManager, error) {
	m := &DynamicConfigManager{path: path, logger: logger}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns the current config.
func (m *DynamicConfigManager) Get() *DynamicConfig {
	return m.current.Load()
}

// Reload reads the config file again. The previous config stays in place if
// the file cannot be parsed.
func (m *DynamicConfigManager) Reload() error {
	file := new(DynamicConfigFile)
	if m.path != "" {
		data, err := os.ReadFile(m.path)
		switch {
		case os.IsNotExist(err):
			m.logger.WithField("path", m.path).Warn("Dynamic config file not found, allow lists are disabled")
		case err != nil:
			return errors.Wrap(err, "read dynamic config")
		default:
			if err := toml.Unmarshal(data, file); err != nil {
				return errors.Wrapf(err, "parse dynamic config %s", m.path)
			}
		}
	}
	m.current.Store(NewDynamicConfig(file))
	m.logger.WithFields(log.Fields{
		"contractCreators":  len(file.ContractCreatorAllowlist),
		"sudtProxyCreators": len(file.SudtProxyCreatorAllowlist),
	}).Info("Loaded dynamic config")
	return nil
}

// WriteDynamicConfig stores file at path.
func WriteDynamicConfig(path string, file *DynamicConfigFile) error {
	data, err := toml.Marshal(file)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
