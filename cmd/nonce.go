package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fast-swap/pkg/chain"
	"fast-swap/pkg/journal"
	"fast-swap/pkg/permit2"
)

var ignoreJournal bool

var nonceCmd = &cobra.Command{
	Use:   "nonce <owner-address>",
	Short: "Find the next unused Permit2 nonce",
	Long: `Scan the Permit2 nonce bitmap of an owner and print the lowest unused
nonce. Nonces already recorded in the local intent journal are skipped.

Examples:
  fast-swap nonce 0x1234...abcd
  fast-swap nonce 0x1234...abcd --ignore-journal`,
	Args: cobra.ExactArgs(1),
	Run:  runNonce,
}

func init() {
	rootCmd.AddCommand(nonceCmd)

	nonceCmd.Flags().BoolVar(&ignoreJournal, "ignore-journal", false, "Do not skip nonces from the intent journal")
}

func runNonce(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if !common.IsHexAddress(args[0]) {
		printError(fmt.Errorf("invalid owner address: %s", args[0]))
		os.Exit(1)
	}
	owner := common.HexToAddress(args[0])
	cfg := loadConfig()

	if cfg.EthRPCURL == "" {
		printError(fmt.Errorf("no Ethereum RPC configured (set FAST_ETH_RPC_URL or ALCHEMY_API_KEY)"))
		os.Exit(1)
	}

	var reserved *permit2.Reservations
	if !ignoreJournal {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		reserved = j.Reservations()
	}

	eth, err := chain.Dial(cmd.Context(), cfg.EthRPCURL, cfg.Permit2Address)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer eth.Close()

	s := newSpinner("Reading Permit2 nonce bitmap...", jsonOutput)
	nonce, err := permit2.NextNonce(cmd.Context(), eth, owner, cfg.NonceWordLimit, reserved)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	word, bit := permit2.SplitNonce(nonce)
	if jsonOutput {
		printJSON(map[string]interface{}{
			"owner":   owner.Hex(),
			"nonce":   nonce.String(),
			"wordPos": word.String(),
			"bitPos":  bit,
		})
		return
	}

	fmt.Printf("\n  Owner:   %s\n", color.CyanString(owner.Hex()))
	fmt.Printf("  Nonce:   %s\n", color.GreenString(nonce.String()))
	fmt.Printf("  Word:    %s  Bit: %d\n\n", word.String(), bit)
}
