package permit2

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"

	"fast-swap/pkg/types"
)

const (
	// Address is the canonical Permit2 deployment, identical on every chain
	Address = "0x000000000022D473030F116dDEE9F6B43aC78BA3"

	// DomainName is the EIP-712 domain name of the Permit2 contract
	DomainName = "Permit2"

	// PrimaryType is the struct signed for a witness transfer
	PrimaryType = "PermitWitnessTransferFrom"

	// IntentWitnessTypeString must equal the settlement contract's
	// WITNESS_TYPE_STRING byte for byte.
	IntentWitnessTypeString = "Intent witness)Intent(address user,address inputToken,address outputToken,uint256 inputAmt,uint256 userAmtOut,address recipient,uint256 deadline,uint256 nonce)TokenPermissions(address token,uint256 amount)"

	// PermitWitnessTypeStub is the part of the PermitWitnessTransferFrom type
	// string that Permit2 prepends to the witness type string.
	PermitWitnessTypeStub = "PermitWitnessTransferFrom(TokenPermissions permitted,address spender,uint256 nonce,uint256 deadline,"

	DefaultDeadlineMinutes = 20
	MinDeadlineMinutes     = 5
	MaxDeadlineMinutes     = 1440
)

// SwapIntentTypes returns the EIP-712 type dictionary for a Permit2 witness
// transfer carrying an Intent. The result never depends on any input.
func SwapIntentTypes() apitypes.Types {
	return apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		PrimaryType: {
			{Name: "permitted", Type: "TokenPermissions"},
			{Name: "spender", Type: "address"},
			{Name: "nonce", Type: "uint256"},
			{Name: "deadline", Type: "uint256"},
			{Name: "witness", Type: "Intent"},
		},
		"TokenPermissions": {
			{Name: "token", Type: "address"},
			{Name: "amount", Type: "uint256"},
		},
		"Intent": {
			{Name: "user", Type: "address"},
			{Name: "inputToken", Type: "address"},
			{Name: "outputToken", Type: "address"},
			{Name: "inputAmt", Type: "uint256"},
			{Name: "userAmtOut", Type: "uint256"},
			{Name: "recipient", Type: "address"},
			{Name: "deadline", Type: "uint256"},
			{Name: "nonce", Type: "uint256"},
		},
	}
}

// NewSwapTypedData assembles the typed data a wallet signs for the given
// permit and intent.
func NewSwapTypedData(chainID int64, permit *types.PermitTransferFrom, intent *types.SwapIntent) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       SwapIntentTypes(),
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: Address,
		},
		Message: apitypes.TypedDataMessage{
			"permitted": map[string]interface{}{
				"token":  permit.Permitted.Token,
				"amount": string(permit.Permitted.Amount),
			},
			"spender":  permit.Spender,
			"nonce":    string(permit.Nonce),
			"deadline": string(permit.Deadline),
			"witness": map[string]interface{}{
				"user":        intent.User,
				"inputToken":  intent.InputToken,
				"outputToken": intent.OutputToken,
				"inputAmt":    string(intent.InputAmt),
				"userAmtOut":  string(intent.UserAmtOut),
				"recipient":   intent.Recipient,
				"deadline":    string(intent.Deadline),
				"nonce":       string(intent.Nonce),
			},
		},
	}
}

// Hash returns the EIP-712 digest of td
func Hash(td apitypes.TypedData) (common.Hash, error) {
	digest, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return common.BytesToHash(digest), nil
}

// Sign hashes td and signs the digest. The recovery id is shifted to 27/28
// the way wallets return it.
func Sign(td apitypes.TypedData, key *ecdsa.PrivateKey) ([]byte, error) {
	digest, err := Hash(td)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign typed data: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverSigner returns the address that produced sig over td
func RecoverSigner(td apitypes.TypedData, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	digest, err := Hash(td)
	if err != nil {
		return common.Address{}, err
	}

	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// IntentParams are the user inputs needed to build a swap intent
type IntentParams struct {
	Owner           common.Address
	InputToken      types.Token
	OutputToken     types.Token
	AmountIn        string
	MinAmountOut    string
	Nonce           *big.Int
	Spender         common.Address
	Recipient       common.Address // zero means Owner
	DeadlineMinutes int
}

// ClampDeadlineMinutes applies the default and bounds of the signing window
func ClampDeadlineMinutes(minutes int) int {
	if minutes == 0 {
		return DefaultDeadlineMinutes
	}
	if minutes < MinDeadlineMinutes {
		return MinDeadlineMinutes
	}
	if minutes > MaxDeadlineMinutes {
		return MaxDeadlineMinutes
	}
	return minutes
}

// BuildIntent builds the permit and its witness. The intent's amount,
// deadline and nonce are copied from the permit so the pair always matches.
func BuildIntent(p IntentParams, now time.Time) (*types.PermitTransferFrom, *types.SwapIntent, error) {
	if p.Nonce == nil || p.Nonce.Sign() < 0 {
		return nil, nil, fmt.Errorf("nonce is required")
	}
	if !common.IsHexAddress(p.InputToken.Address) {
		return nil, nil, fmt.Errorf("invalid input token address: %s", p.InputToken.Address)
	}
	if !common.IsHexAddress(p.OutputToken.Address) {
		return nil, nil, fmt.Errorf("invalid output token address: %s", p.OutputToken.Address)
	}

	amountIn, err := ParseUnits(p.AmountIn, p.InputToken.Decimals)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid input amount: %w", err)
	}
	if amountIn.Sign() == 0 {
		return nil, nil, fmt.Errorf("input amount must be greater than zero")
	}
	minOut, err := ParseUnits(p.MinAmountOut, p.OutputToken.Decimals)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid minimum output amount: %w", err)
	}

	recipient := p.Recipient
	if recipient == (common.Address{}) {
		recipient = p.Owner
	}

	minutes := ClampDeadlineMinutes(p.DeadlineMinutes)
	deadline := big.NewInt(now.Unix() + int64(minutes)*60)

	permit := &types.PermitTransferFrom{
		Permitted: &types.TokenPermissions{
			Token:  common.HexToAddress(p.InputToken.Address).Hex(),
			Amount: types.NewQuantity(amountIn),
		},
		Spender:  p.Spender.Hex(),
		Nonce:    types.NewQuantity(p.Nonce),
		Deadline: types.NewQuantity(deadline),
	}
	intent := &types.SwapIntent{
		User:        p.Owner.Hex(),
		InputToken:  permit.Permitted.Token,
		OutputToken: common.HexToAddress(p.OutputToken.Address).Hex(),
		InputAmt:    permit.Permitted.Amount,
		UserAmtOut:  types.NewQuantity(minOut),
		Recipient:   recipient.Hex(),
		Deadline:    permit.Deadline,
		Nonce:       permit.Nonce,
	}
	return permit, intent, nil
}

// ParseUnits converts a human decimal amount into base units. Digits past
// the token's precision are rounded.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative: %s", amount)
	}
	return d.Shift(int32(decimals)).Round(0).BigInt(), nil
}

// FormatUnits renders base units as a decimal string
func FormatUnits(amount *big.Int, decimals int) string {
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
