package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/common/constants"
	"github.com/dominant-strategies/go-quai-l2/log"
)

func TestDynamicConfigReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), constants.DYNAMIC_CONFIG_FILE_NAME)
	alice := common.HexToHash("0xa11ce")
	bob := common.HexToHash("0xb0b")

	m, err := NewDynamicConfigManager(path, log.NewNullLogger())
	require.NoError(t, err)
	assert.True(t, m.Get().ContractCreatorAllowed(alice), "missing file disables the lists")

	require.NoError(t, WriteDynamicConfig(path, &DynamicConfigFile{
		ContractCreatorAllowlist: []common.Hash{alice},
	}))
	old := m.Get()
	require.NoError(t, m.Reload())
	assert.True(t, m.Get().ContractCreatorAllowed(alice))
	assert.False(t, m.Get().ContractCreatorAllowed(bob))
	assert.True(t, m.Get().SudtProxyCreatorAllowed(bob))
	assert.True(t, old.ContractCreatorAllowed(bob), "loaded configs are immutable")

	require.NoError(t, os.WriteFile(path, []byte("contract_creator_allowlist = 3"), 0o644))
	require.Error(t, m.Reload())
	assert.False(t, m.Get().ContractCreatorAllowed(bob), "failed reload keeps the previous config")
}

func TestDynamicConfigFromText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dynamic.toml")
	text := `sudt_proxy_creator_allowlist = ["0x000000000000000000000000000000000000000000000000000000000000b0b0"]`
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	m, err := NewDynamicConfigManager(path, log.NewNullLogger())
	require.NoError(t, err)
	assert.True(t, m.Get().SudtProxyCreatorAllowed(common.HexToHash("0xb0b0")))
	assert.False(t, m.Get().SudtProxyCreatorAllowed(common.HexToHash("0xb0b1")))
}
