package parser

import (
	"fmt"
	"regexp"
	"strings"

	"fast-swap/pkg/types"
)

var swapPattern = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9.]+)\s+(?:TO|FOR)\s+([A-Z0-9.]+)(?:\s+MIN\s+(\d+\.?\d*))?$`)

// ParseSwapCommand parses a swap intent command
// Examples:
//   - "swap 100 USDC to ETH"
//   - "1.5 WETH for USDC min 3000"
func ParseSwapCommand(command string) (*types.SwapRequest, error) {
	command = strings.Join(strings.Fields(strings.ToUpper(command)), " ")
	command = strings.TrimPrefix(command, "SWAP ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> to <token> [min <amount>]' (e.g., 'swap 100 USDC to ETH')")
	}

	return &types.SwapRequest{
		Amount:       matches[1],
		InputSymbol:  NormalizeTokenSymbol(matches[2]),
		OutputSymbol: NormalizeTokenSymbol(matches[3]),
		MinAmountOut: matches[4],
	}, nil
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req *types.SwapRequest) error {
	if req.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if req.InputSymbol == "" {
		return fmt.Errorf("input token is required")
	}
	if req.OutputSymbol == "" {
		return fmt.Errorf("output token is required")
	}
	if req.InputSymbol == req.OutputSymbol {
		return fmt.Errorf("input and output tokens must differ")
	}
	return nil
}

// NormalizeTokenSymbol normalizes token symbols to token list format
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	aliases := map[string]string{
		"ETHER":   "ETH",
		"BTC":     "WBTC",
		"BITCOIN": "WBTC",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
