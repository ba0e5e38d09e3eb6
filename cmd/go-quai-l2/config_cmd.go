package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dominant-strategies/go-quai-l2/cmd/utils"
	"github.com/dominant-strategies/go-quai-l2/common/constants"
	"github.com/dominant-strategies/go-quai-l2/config"
	"github.com/dominant-strategies/go-quai-l2/log"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "creates the default config files",
	Long: `creates the default config file and an empty dynamic config in the location
specified by the --config-dir flag. The config file will contain all the default
values for the flags. Any flags passed in the command line here will also
overwrite the default values in the config file.`,
	RunE:                       runConfig,
	SilenceUsage:               true,
	SuggestionsMinimumDistance: 2,
	Example:                    `go-quai-l2 config --mempool.maxtxs=500`,
}

func init() {
	rootCmd.AddCommand(configCmd)

	for _, flagGroup := range utils.Flags {
		for _, flag := range flagGroup {
			utils.CreateAndBindFlag(flag, configCmd)
		}
	}
}

func runConfig(cmd *cobra.Command, args []string) error {
	configDir := filepath.Clean(cmd.Flag(utils.ConfigDirFlag.Name).Value.String())

	_, err := os.Stat(configDir)
	if err != nil && os.IsNotExist(err) {
		// If the directory does not exist, create it
		if err := os.MkdirAll(configDir, 0755); err != nil {
			log.Global.Fatalf("Failed to create config directory: %s, Error: %v", configDir, err)
		}
		log.Global.Debugf("Config directory created: %s", configDir)
	} else if err != nil {
		log.Global.Fatalf("Error accessing config directory: %s, Error: %v", configDir, err)
	}

	configPath := filepath.Join(configDir, constants.CONFIG_FILE_NAME)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := utils.WriteDefaultConfigFile(configDir, constants.CONFIG_FILE_NAME, constants.CONFIG_FILE_TYPE); err != nil {
			return err
		}
		log.Global.WithField("path", configPath).Info("Initialized new config file.")
	} else {
		log.Global.WithField("path", configPath).Fatal("Cannot init config file. File already exists. Either remove this option to run with the existing config file, or delete the existing config file to re-initialize a new one.")
	}

	dynamicPath := filepath.Join(configDir, constants.DYNAMIC_CONFIG_FILE_NAME)
	if _, err := os.Stat(dynamicPath); os.IsNotExist(err) {
		if err := config.WriteDynamicConfig(dynamicPath, &config.DynamicConfigFile{}); err != nil {
			return err
		}
		log.Global.WithField("path", dynamicPath).Info("Initialized new dynamic config file.")
	}
	return nil
}
