package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// Token is an entry of the token list served to the swap UI
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	LogoURI  string `json:"logoURI,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Quantity is an unsigned integer carried as a decimal string on the wire.
// JSON numbers are accepted as well since some wallets serialize small
// values that way. A numeric zero counts as absent, like an empty string.
type Quantity string

// UnmarshalJSON accepts "123", "0x7b" and 123. Other numbers are kept
// verbatim and only rejected by Big.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid quantity: %s", data)
	}
	f, ok := new(big.Float).SetString(n.String())
	if !ok {
		return fmt.Errorf("invalid quantity: %s", data)
	}
	if f.Sign() == 0 {
		*q = ""
		return nil
	}
	*q = Quantity(n.String())
	return nil
}

// Big parses the quantity. Hex values need the 0x prefix.
func (q Quantity) Big() (*big.Int, error) {
	if q == "" {
		return nil, fmt.Errorf("empty quantity")
	}
	n, ok := new(big.Int).SetString(string(q), 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid quantity: %s", q)
	}
	return n, nil
}

// NewQuantity formats n as a decimal Quantity
func NewQuantity(n *big.Int) Quantity {
	return Quantity(n.String())
}

// SwapIntent is the witness signed alongside the Permit2 transfer. Field
// order matches the settlement contract's Intent struct.
type SwapIntent struct {
	User        string   `json:"user" validate:"required"`
	InputToken  string   `json:"inputToken" validate:"required"`
	OutputToken string   `json:"outputToken" validate:"required"`
	InputAmt    Quantity `json:"inputAmt" validate:"required"`
	UserAmtOut  Quantity `json:"userAmtOut" validate:"required"`
	Recipient   string   `json:"recipient" validate:"required"`
	Deadline    Quantity `json:"deadline" validate:"required"`
	Nonce       Quantity `json:"nonce" validate:"required"`
}

// TokenPermissions is the Permit2 TokenPermissions struct
type TokenPermissions struct {
	Token  string   `json:"token" validate:"required"`
	Amount Quantity `json:"amount" validate:"required"`
}

// PermitTransferFrom is the Permit2 PermitTransferFrom struct
type PermitTransferFrom struct {
	Permitted *TokenPermissions `json:"permitted" validate:"required"`
	Spender   string            `json:"spender" validate:"required"`
	Nonce     Quantity          `json:"nonce" validate:"required"`
	Deadline  Quantity          `json:"deadline" validate:"required"`
}

// RelayRequest is the body accepted by the relay endpoint
type RelayRequest struct {
	Signature string              `json:"signature" validate:"required"`
	Intent    *SwapIntent         `json:"intent" validate:"required"`
	Permit    *PermitTransferFrom `json:"permit" validate:"required"`
}

// RelayResponse is returned by the relay endpoint
type RelayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// SwapRequest represents a user's swap command
type SwapRequest struct {
	Amount       string
	InputSymbol  string
	OutputSymbol string
	MinAmountOut string
	Recipient    string
}
