package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fast-swap/pkg/client"
	"fast-swap/pkg/types"
)

var filterSymbol string

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"list-tokens", "ls"},
	Short:   "List swappable mainnet tokens",
	Long: `List the Ethereum mainnet tokens from the configured token list.

Examples:
  fast-swap tokens
  fast-swap tokens --symbol USD`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg := loadConfig()

	tokenList := client.NewTokenListClient(cfg.TokenListURL, logger)

	s := newSpinner("Fetching token list...", jsonOutput)
	tokens, err := tokenList.Tokens(cmd.Context())
	s.Stop()

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	filtered := tokens
	if filterSymbol != "" {
		var temp []types.Token
		for _, token := range filtered {
			if strings.Contains(strings.ToUpper(token.Symbol), strings.ToUpper(filterSymbol)) {
				temp = append(temp, token)
			}
		}
		filtered = temp
	}

	if jsonOutput {
		printJSON(filtered)
		return
	}
	displayTokens(filtered)
}

func displayTokens(tokens []types.Token) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	sort.Slice(tokens, func(i, j int) bool {
		return strings.ToUpper(tokens[i].Symbol) < strings.ToUpper(tokens[j].Symbol)
	})

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            MAINNET TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	for _, token := range tokens {
		name := token.Name
		if len(name) > 28 {
			name = name[:25] + "..."
		}
		fmt.Printf("  %-10s  %2d decimals  %s  %s\n",
			color.YellowString(token.Symbol),
			token.Decimals,
			color.HiBlackString(token.Address),
			name)
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens\n\n", len(tokens))
}
