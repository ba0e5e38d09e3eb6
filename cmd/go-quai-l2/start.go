package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dominant-strategies/go-quai-l2/cmd/utils"
	"github.com/dominant-strategies/go-quai-l2/log"
	"github.com/dominant-strategies/go-quai-l2/metrics_config"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "starts the mem-pool daemon",
	Long: `starts the mem-pool daemon. The daemon opens the chain database under
the data dir, writes a genesis block if it is empty and builds the next mem
block on the current tip. Send SIGHUP to reload the dynamic config.`,
	RunE:                       runStart,
	SilenceUsage:               true,
	SuggestionsMinimumDistance: 2,
	Example:                    `go-quai-l2 start --log-level=debug`,
}

func init() {
	rootCmd.AddCommand(startCmd)

	for _, flagGroup := range utils.Flags {
		for _, flag := range flagGroup {
			utils.CreateAndBindFlag(flag, startCmd)
		}
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	log.Global.Info("Starting go-quai-l2")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if viper.GetBool(utils.MetricsEnabledFlag.Name) {
		log.Global.Info("Starting metrics")
		metrics_config.EnableMetrics()
		metrics_config.StartProcessMetrics(viper.GetString(utils.MetricsAddrFlag.Name))
	}

	node, err := utils.MakeNode(ctx, log.Global)
	if err != nil {
		log.Global.WithField("error", err).Fatal("error starting node")
	}

	// wait for a SIGINT or SIGTERM signal, reload the dynamic config on SIGHUP
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range ch {
		if sig != syscall.SIGHUP {
			break
		}
		if err := node.Dynamic.Reload(); err != nil {
			log.Global.WithField("error", err).Error("error reloading dynamic config")
		}
	}
	log.Global.Warn("Received 'stop' signal, shutting down gracefully...")
	cancel()
	if err := node.Close(); err != nil {
		log.Global.WithField("error", err).Error("error closing node")
	}
	log.Global.Warn("Node is offline")
	return nil
}
