package cmd

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fast-swap/config"
	"fast-swap/pkg/analytics"
	"fast-swap/pkg/chain"
	"fast-swap/pkg/client"
	"fast-swap/pkg/journal"
	"fast-swap/pkg/parser"
	"fast-swap/pkg/permit2"
	"fast-swap/pkg/types"
)

var (
	minOut          string
	intentRecipient string
	relayURL        string
	deadlineMinutes int
	noConfirm       bool
	listOwner       string
)

var intentCmd = &cobra.Command{
	Use:   "intent",
	Short: "Build, sign and relay Permit2 swap intents",
}

var intentSignCmd = &cobra.Command{
	Use:   "sign <amount> <input-token> to <output-token> [min <amount>]",
	Short: "Sign a swap intent with the configured key",
	Long: `Build a Permit2 witness transfer for a swap, sign it with the configured
private key and record it in the local journal. With --relay the signed
intent is posted to a relay endpoint.

IMPORTANT:
  - The key is read from FAST_PRIVATE_KEY (hex, no 0x prefix needed)
  - The settlement contract must be configured as the Permit2 spender

Examples:
  fast-swap intent sign 100 USDC to ETH --min-out 0.03
  fast-swap intent sign 1.5 WETH for USDC min 3000 --relay http://localhost:8080/api/relay
  fast-swap intent sign 250 DAI to USDC --min-out 249 --recipient 0x1234...abcd --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runIntentSign,
}

var intentShowCmd = &cobra.Command{
	Use:   "show <intent-id>",
	Short: "Show one journaled intent and whether its nonce is spent",
	Long: `Show a journaled intent. When an Ethereum RPC is configured the Permit2
bitmap is read to tell whether the intent's nonce has been consumed.

Examples:
  fast-swap intent show 5f0c...`,
	Args: cobra.ExactArgs(1),
	Run:  runIntentShow,
}

var intentListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show journaled intents",
	Long: `Show intents signed by this CLI, newest last.

Examples:
  fast-swap intent list
  fast-swap intent list --owner 0x1234...abcd`,
	Run: runIntentList,
}

func init() {
	rootCmd.AddCommand(intentCmd)
	intentCmd.AddCommand(intentSignCmd)
	intentCmd.AddCommand(intentListCmd)
	intentCmd.AddCommand(intentShowCmd)

	intentSignCmd.Flags().StringVar(&minOut, "min-out", "", "Minimum output amount (overrides 'min' in the command)")
	intentSignCmd.Flags().StringVar(&intentRecipient, "recipient", "", "Recipient of the output tokens (defaults to the signer)")
	intentSignCmd.Flags().StringVar(&relayURL, "relay", "", "Relay endpoint to submit the signed intent to")
	intentSignCmd.Flags().IntVar(&deadlineMinutes, "deadline", 0, "Signature validity in minutes (defaults to config)")
	intentSignCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")

	intentListCmd.Flags().StringVar(&listOwner, "owner", "", "Only show intents signed by this address")
}

func runIntentSign(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	swapReq, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if minOut != "" {
		swapReq.MinAmountOut = minOut
	}
	if intentRecipient != "" {
		swapReq.Recipient = intentRecipient
	}
	if err := parser.ValidateSwapRequest(swapReq); err != nil {
		printError(err)
		os.Exit(1)
	}
	if swapReq.MinAmountOut == "" {
		printError(fmt.Errorf("minimum output amount is required (use --min-out or 'min <amount>')"))
		os.Exit(1)
	}

	cfg := loadConfig()
	if cfg.PrivateKey == "" {
		printError(fmt.Errorf("no signing key configured (set FAST_PRIVATE_KEY)"))
		os.Exit(1)
	}
	if !common.IsHexAddress(cfg.SettlementAddress) || common.HexToAddress(cfg.SettlementAddress) == (common.Address{}) {
		printError(fmt.Errorf("invalid settlement address: %q", cfg.SettlementAddress))
		os.Exit(1)
	}
	if cfg.EthRPCURL == "" {
		printError(fmt.Errorf("no Ethereum RPC configured (set FAST_ETH_RPC_URL or ALCHEMY_API_KEY)"))
		os.Exit(1)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		printError(fmt.Errorf("invalid private key: %w", err))
		os.Exit(1)
	}
	owner := crypto.PubkeyToAddress(key.PublicKey)

	var recipient common.Address
	if swapReq.Recipient != "" {
		if !common.IsHexAddress(swapReq.Recipient) {
			printError(fmt.Errorf("invalid recipient address: %s", swapReq.Recipient))
			os.Exit(1)
		}
		recipient = common.HexToAddress(swapReq.Recipient)
	}

	s := newSpinner("Resolving tokens...", jsonOutput)
	tokenList := client.NewTokenListClient(cfg.TokenListURL, logger)
	inputToken, err := tokenList.Resolve(ctx, swapReq.InputSymbol)
	if err != nil {
		s.Stop()
		printError(err)
		os.Exit(1)
	}
	outputToken, err := tokenList.Resolve(ctx, swapReq.OutputSymbol)
	if err != nil {
		s.Stop()
		printError(err)
		os.Exit(1)
	}

	s.Suffix = " Reading Permit2 nonce bitmap..."
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		s.Stop()
		printError(err)
		os.Exit(1)
	}
	eth, err := chain.Dial(ctx, cfg.EthRPCURL, cfg.Permit2Address)
	if err != nil {
		s.Stop()
		printError(err)
		os.Exit(1)
	}
	defer eth.Close()

	nonce, err := permit2.NextNonce(ctx, eth, owner, cfg.NonceWordLimit, j.Reservations())
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	minutes := deadlineMinutes
	if minutes == 0 {
		minutes = cfg.DeadlineMinutes
	}

	permit, intent, err := permit2.BuildIntent(permit2.IntentParams{
		Owner:           owner,
		InputToken:      *inputToken,
		OutputToken:     *outputToken,
		AmountIn:        swapReq.Amount,
		MinAmountOut:    swapReq.MinAmountOut,
		Nonce:           nonce,
		Spender:         common.HexToAddress(cfg.SettlementAddress),
		Recipient:       recipient,
		DeadlineMinutes: minutes,
	}, time.Now())
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displayIntent(swapReq, permit, intent)
		if !noConfirm && !confirm("Sign this intent?") {
			fmt.Println("\nSigning cancelled.")
			return
		}
	}

	if err := signAndRelay(ctx, cfg, j, swapReq, key, permit, intent, jsonOutput); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// signAndRelay signs the pair, journals it and optionally posts it to the
// relay. The journal entry reflects the relay outcome.
func signAndRelay(ctx context.Context, cfg *config.Config, j *journal.Journal, swapReq *types.SwapRequest,
	key *ecdsa.PrivateKey, permit *types.PermitTransferFrom, intent *types.SwapIntent, jsonOutput bool) error {
	sig, err := permit2.Sign(permit2.NewSwapTypedData(cfg.ChainID, permit, intent), key)
	if err != nil {
		return err
	}

	deadline, err := permit.Deadline.Big()
	if err != nil {
		return err
	}
	entry := &journal.Entry{
		Owner:        intent.User,
		InputSymbol:  swapReq.InputSymbol,
		OutputSymbol: swapReq.OutputSymbol,
		AmountIn:     swapReq.Amount,
		MinAmountOut: swapReq.MinAmountOut,
		Nonce:        string(permit.Nonce),
		Deadline:     deadline.Int64(),
		Signature:    hexutil.Encode(sig),
		Status:       journal.StatusSigned,
	}
	if err := j.Record(entry); err != nil {
		return err
	}

	relayReq := &types.RelayRequest{
		Signature: entry.Signature,
		Intent:    intent,
		Permit:    permit,
	}

	var relayResp *types.RelayResponse
	if relayURL != "" {
		relayResp, err = client.NewRelayClient(relayURL, logger).Submit(ctx, relayReq)
		status, message := journal.StatusRelayed, ""
		if relayResp != nil {
			message = relayResp.Message
		}
		if err != nil {
			status = journal.StatusRejected
			if message == "" {
				message = err.Error()
			}
		}
		if setErr := j.SetStatus(entry.ID, status, message); setErr != nil {
			return setErr
		}
		if err != nil {
			return fmt.Errorf("relay rejected intent %s: %s", entry.ID, message)
		}
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"id":      entry.ID,
			"request": relayReq,
			"relay":   relayResp,
		})
		return nil
	}

	color.Green("\n✓ Intent signed")
	fmt.Printf("  ID:        %s\n", color.CyanString(entry.ID))
	fmt.Printf("  Signature: %s\n", entry.Signature)
	if relayResp != nil {
		color.Green("✓ Relayed: %s", relayResp.Message)
	} else {
		fmt.Println("\nRe-run with --relay <url> to submit it, or use --json to print the relay payload.")
	}
	fmt.Println()
	return nil
}

func displayIntent(swapReq *types.SwapRequest, permit *types.PermitTransferFrom, intent *types.SwapIntent) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP INTENT")
	fmt.Println(strings.Repeat("=", 60))

	deadline, _ := permit.Deadline.Big()
	fmt.Printf("\n  Signer:      %s\n", color.CyanString(intent.User))
	fmt.Printf("  Sell:        %s %s\n", swapReq.Amount, color.YellowString(swapReq.InputSymbol))
	fmt.Printf("  Receive:     >= %s %s\n", swapReq.MinAmountOut, color.YellowString(swapReq.OutputSymbol))
	fmt.Printf("  Recipient:   %s\n", intent.Recipient)
	fmt.Printf("  Spender:     %s\n", permit.Spender)
	fmt.Printf("  Nonce:       %s\n", permit.Nonce)
	fmt.Printf("  Expires:     %s\n", time.Unix(deadline.Int64(), 0).Format(time.RFC3339))

	fmt.Println("\n" + strings.Repeat("=", 60))
}

func runIntentList(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg := loadConfig()

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	entries := j.List(listOwner)
	if jsonOutput {
		printJSON(entries)
		return
	}

	if len(entries) == 0 {
		fmt.Printf("\nNo intents in %s\n\n", j.FilePath())
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                                 SIGNED INTENTS")
	fmt.Println(strings.Repeat("=", 90))

	for _, e := range entries {
		fmt.Printf("\n  %s  %s\n", color.CyanString(e.ID), statusColor(e.Status))
		fmt.Printf("    %s %s -> >= %s %s\n", e.AmountIn, e.InputSymbol, e.MinAmountOut, e.OutputSymbol)
		fmt.Printf("    Signer: %s  Nonce: %s  Created: %s\n",
			analytics.TrimWallet(e.Owner), e.Nonce, e.Created.Format("2006-01-02 15:04"))
		if e.Message != "" {
			fmt.Printf("    %s\n", color.HiBlackString(e.Message))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nShowing %d of %d intents\n\n", len(entries), j.Count())
}

func runIntentShow(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg := loadConfig()

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	e, err := j.Get(args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	var spent *bool
	if cfg.EthRPCURL != "" {
		eth, err := chain.Dial(cmd.Context(), cfg.EthRPCURL, cfg.Permit2Address)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		defer eth.Close()

		s := newSpinner("Reading Permit2 nonce bitmap...", jsonOutput)
		used, err := j.Spent(cmd.Context(), eth, e.ID)
		s.Stop()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		spent = &used
	}

	if jsonOutput {
		printJSON(map[string]interface{}{"intent": e, "nonceSpent": spent})
		return
	}

	fmt.Printf("\n  ID:         %s  %s\n", color.CyanString(e.ID), statusColor(e.Status))
	fmt.Printf("  Signer:     %s\n", e.Owner)
	fmt.Printf("  Swap:       %s %s -> >= %s %s\n", e.AmountIn, e.InputSymbol, e.MinAmountOut, e.OutputSymbol)
	fmt.Printf("  Nonce:      %s\n", e.Nonce)
	fmt.Printf("  Expires:    %s\n", time.Unix(e.Deadline, 0).Format(time.RFC3339))
	fmt.Printf("  Signature:  %s\n", e.Signature)
	switch {
	case spent == nil:
		fmt.Printf("  On chain:   %s\n", color.HiBlackString("unknown (no RPC configured)"))
	case *spent:
		fmt.Printf("  On chain:   %s\n", color.GreenString("nonce spent"))
	default:
		fmt.Printf("  On chain:   %s\n", color.YellowString("nonce unused"))
	}
	if e.Message != "" {
		fmt.Printf("  Message:    %s\n", e.Message)
	}
	fmt.Println()
}

func statusColor(s journal.Status) string {
	switch s {
	case journal.StatusRelayed:
		return color.GreenString(string(s))
	case journal.StatusRejected:
		return color.RedString(string(s))
	default:
		return color.YellowString(string(s))
	}
}

func confirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", prompt)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
