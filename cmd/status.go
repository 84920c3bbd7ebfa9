package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fast-swap/pkg/client"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the status of a FastRPC transaction",
	Long: `Check the status of a transaction submitted through FastRPC.

Examples:
  fast-swap status 0x1234...abcd
  fast-swap status 0x1234...abcd --watch
  fast-swap status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	hash := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg := loadConfig()

	fastRPC := client.NewFastRPCClient(cfg.FastRPCURL, cfg.FastRPCToken, logger)

	if watchStatus {
		watchTxStatus(cmd.Context(), fastRPC, hash, jsonOutput)
	} else {
		checkTxStatus(cmd.Context(), fastRPC, hash, jsonOutput)
	}
}

func checkTxStatus(ctx context.Context, fastRPC *client.FastRPCClient, hash string, jsonOutput bool) {
	s := newSpinner("Checking transaction status...", jsonOutput)
	data, err := fastRPC.TransactionStatus(ctx, hash)
	s.Stop()

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		fmt.Println(string(data))
		return
	}
	displayStatus(hash, data)
}

func watchTxStatus(ctx context.Context, fastRPC *client.FastRPCClient, hash string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString(hash))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	checkAndDisplayStatus(ctx, fastRPC, hash)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkAndDisplayStatus(ctx, fastRPC, hash)
		}
	}
}

func checkAndDisplayStatus(ctx context.Context, fastRPC *client.FastRPCClient, hash string) {
	data, err := fastRPC.TransactionStatus(ctx, hash)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	displayStatus(hash, data)
}

func displayStatus(hash string, data json.RawMessage) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                 TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\n  Hash:      %s\n", color.CyanString(hash))
	fmt.Printf("  Checked:   %s\n\n", time.Now().Format(time.RFC3339))

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "  ", "  "); err != nil {
		fmt.Printf("  %s\n", data)
	} else {
		fmt.Printf("  %s\n", pretty.String())
	}
	fmt.Println("\n" + strings.Repeat("=", 60))
}
