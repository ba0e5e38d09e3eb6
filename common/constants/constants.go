package constants

const (
	APP_NAME = "go-quai-l2"
	// prefix used to read config parameters from environment variables
	ENV_PREFIX = "GO_QUAI_L2"
	// config file name
	CONFIG_FILE_NAME = "config.toml"
	// config file type
	CONFIG_FILE_TYPE = "toml"
	// dynamic config file holding the allow lists, reloaded at runtime
	DYNAMIC_CONFIG_FILE_NAME = "dynamic.toml"
	// directory under the data dir holding the chain database
	CHAINDATA_DIR_NAME = "chaindata"
	// directory under the data dir holding saved mem blocks
	RESTORE_DIR_NAME = "mem_block"
)
