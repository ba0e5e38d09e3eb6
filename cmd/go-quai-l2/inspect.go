package main

import (
	"fmt"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dominant-strategies/go-quai-l2/cmd/utils"
	"github.com/dominant-strategies/go-quai-l2/common"
	"github.com/dominant-strategies/go-quai-l2/core/mempool"
	"github.com/dominant-strategies/go-quai-l2/core/rawdb"
	"github.com/dominant-strategies/go-quai-l2/log"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [<prefix> [<start>]]",
	Short: "inspects the storage size of each type of data in the database",
	Long: `inspects the chain database and prints the size and count of every
record kind followed by the chain tip and the latest saved mem block. The
optional hex prefix and start key restrict the scan. --dump prints the
whole saved mem block.`,
	RunE:         runInspect,
	SilenceUsage: true,
	Args:         cobra.RangeArgs(0, 2),
	Example:      `go-quai-l2 inspect --db.engine=pebble`,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	utils.CreateAndBindFlag(utils.DBEngineFlag, inspectCmd)
	utils.CreateAndBindFlag(utils.RestoreMaxAgeFlag, inspectCmd)
	inspectCmd.Flags().Bool("dump", false, "dump the saved mem block")
}

func runInspect(cmd *cobra.Command, args []string) error {
	var prefix, start []byte
	if len(args) > 0 {
		prefix = common.FromHex(args[0])
	}
	if len(args) > 1 {
		start = common.FromHex(args[1])
	}

	db, err := utils.OpenChainDatabase(true, log.Global)
	if err != nil {
		return errors.Wrap(err, "open chain database")
	}
	defer db.Close()

	if err := rawdb.InspectDatabase(db, prefix, start, os.Stdout, log.Global); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Item", "Value"})
	if tip := rawdb.ReadBlock(db, rawdb.ReadHeadBlockHash(db)); tip != nil {
		table.Append([]string{"Tip", tip.Hash().Hex()})
		table.Append([]string{"Tip number", fmt.Sprint(tip.NumberU64())})
	}
	restored, err := mempool.NewRestoreManager(db, utils.MemPoolConfig().RestoreMaxAge, log.Global).Latest()
	if err != nil {
		return err
	}
	if restored != nil {
		table.Append([]string{"Saved mem block", fmt.Sprint(restored.BlockInfo.Number)})
		ts := time.UnixMilli(int64(restored.BlockInfo.Timestamp))
		table.Append([]string{"Saved timestamp", ts.UTC().String()})
		table.Append([]string{"Saved age", common.PrettyAge(ts).String()})
		table.Append([]string{"Saved withdrawals", fmt.Sprint(len(restored.Withdrawals))})
		table.Append([]string{"Saved deposits", fmt.Sprint(len(restored.Deposits))})
		table.Append([]string{"Saved txs", fmt.Sprint(len(restored.Txs))})
	}
	table.Render()

	if dump, _ := cmd.Flags().GetBool("dump"); dump && restored != nil {
		spew.Fdump(os.Stdout, restored)
	}
	return nil
}
