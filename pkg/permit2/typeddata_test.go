package permit2

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fast-swap/pkg/types"
)

var (
	weth = types.Token{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Symbol: "WETH", Decimals: 18}
	usdc = types.Token{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6}
)

func TestTypeHashMatchesWitnessTypeString(t *testing.T) {
	td := NewSwapTypedData(1, samplePermit(), sampleIntent())

	want := crypto.Keccak256([]byte(PermitWitnessTypeStub + IntentWitnessTypeString))
	assert.Equal(t, want, []byte(td.TypeHash(PrimaryType)))
}

func TestSwapIntentTypesFieldOrder(t *testing.T) {
	tt := SwapIntentTypes()

	names := func(typ string) []string {
		var out []string
		for _, f := range tt[typ] {
			out = append(out, f.Name)
		}
		return out
	}

	assert.Equal(t, []string{"permitted", "spender", "nonce", "deadline", "witness"}, names(PrimaryType))
	assert.Equal(t, []string{"token", "amount"}, names("TokenPermissions"))
	assert.Equal(t, []string{"user", "inputToken", "outputToken", "inputAmt", "userAmtOut", "recipient", "deadline", "nonce"}, names("Intent"))
	assert.Equal(t, SwapIntentTypes(), tt)
}

func TestHashDependsOnChainID(t *testing.T) {
	h1, err := Hash(NewSwapTypedData(1, samplePermit(), sampleIntent()))
	require.NoError(t, err)
	h2, err := Hash(NewSwapTypedData(1, samplePermit(), sampleIntent()))
	require.NoError(t, err)
	h3, err := Hash(NewSwapTypedData(8453, samplePermit(), sampleIntent()))
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestSignAndRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)

	permit, intent, err := BuildIntent(IntentParams{
		Owner:        owner,
		InputToken:   weth,
		OutputToken:  usdc,
		AmountIn:     "1.5",
		MinAmountOut: "3000",
		Nonce:        big.NewInt(7),
		Spender:      common.HexToAddress("0x1111111111111111111111111111111111111111"),
	}, time.Unix(1700000000, 0))
	require.NoError(t, err)

	td := NewSwapTypedData(1, permit, intent)
	sig, err := Sign(td, key)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	signer, err := RecoverSigner(td, sig)
	require.NoError(t, err)
	assert.Equal(t, owner, signer)

	intent.UserAmtOut = "1"
	other, err := RecoverSigner(NewSwapTypedData(1, permit, intent), sig)
	require.NoError(t, err)
	assert.NotEqual(t, owner, other)
}

func TestRecoverSignerRejectsShortSignature(t *testing.T) {
	_, err := RecoverSigner(NewSwapTypedData(1, samplePermit(), sampleIntent()), []byte{1, 2, 3})
	assert.Error(t, err)
}

func TestBuildIntentDerivesFromPermit(t *testing.T) {
	owner := common.HexToAddress("0x2222222222222222222222222222222222222222")
	now := time.Unix(1700000000, 0)

	permit, intent, err := BuildIntent(IntentParams{
		Owner:        owner,
		InputToken:   usdc,
		OutputToken:  weth,
		AmountIn:     "100.25",
		MinAmountOut: "0.03",
		Nonce:        big.NewInt(258),
		Spender:      common.HexToAddress("0x3333333333333333333333333333333333333333"),
	}, now)
	require.NoError(t, err)

	assert.Equal(t, types.Quantity("100250000"), permit.Permitted.Amount)
	assert.Equal(t, types.Quantity("30000000000000000"), intent.UserAmtOut)
	assert.Equal(t, types.Quantity("1700001200"), permit.Deadline)
	assert.Equal(t, permit.Permitted.Amount, intent.InputAmt)
	assert.Equal(t, permit.Deadline, intent.Deadline)
	assert.Equal(t, permit.Nonce, intent.Nonce)
	assert.Equal(t, permit.Permitted.Token, intent.InputToken)
	assert.Equal(t, owner.Hex(), intent.User)
	assert.Equal(t, owner.Hex(), intent.Recipient)

	other := common.HexToAddress("0x4444444444444444444444444444444444444444")
	_, intent, err = BuildIntent(IntentParams{
		Owner:        owner,
		InputToken:   usdc,
		OutputToken:  weth,
		AmountIn:     "1",
		MinAmountOut: "0",
		Nonce:        big.NewInt(1),
		Recipient:    other,
	}, now)
	require.NoError(t, err)
	assert.Equal(t, other.Hex(), intent.Recipient)
	assert.Equal(t, owner.Hex(), intent.User)
}

func TestBuildIntentErrors(t *testing.T) {
	base := IntentParams{
		InputToken:   weth,
		OutputToken:  usdc,
		AmountIn:     "1",
		MinAmountOut: "1",
		Nonce:        big.NewInt(0),
	}

	cases := map[string]func(p *IntentParams){
		"missing nonce":     func(p *IntentParams) { p.Nonce = nil },
		"bad input token":   func(p *IntentParams) { p.InputToken.Address = "nope" },
		"bad output token":  func(p *IntentParams) { p.OutputToken.Address = "0x12" },
		"zero amount":       func(p *IntentParams) { p.AmountIn = "0" },
		"negative amount":   func(p *IntentParams) { p.AmountIn = "-1" },
		"unparsable amount": func(p *IntentParams) { p.MinAmountOut = "abc" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			mutate(&p)
			_, _, err := BuildIntent(p, time.Now())
			assert.Error(t, err)
		})
	}
}

func TestClampDeadlineMinutes(t *testing.T) {
	assert.Equal(t, 20, ClampDeadlineMinutes(0))
	assert.Equal(t, 5, ClampDeadlineMinutes(1))
	assert.Equal(t, 5, ClampDeadlineMinutes(-30))
	assert.Equal(t, 60, ClampDeadlineMinutes(60))
	assert.Equal(t, 1440, ClampDeadlineMinutes(5000))
}

func TestParseAndFormatUnits(t *testing.T) {
	n, err := ParseUnits("1.000001", 6)
	require.NoError(t, err)
	assert.Equal(t, "1000001", n.String())

	n, err = ParseUnits("2", 18)
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", n.String())

	assert.Equal(t, "1.5", FormatUnits(big.NewInt(1500000), 6))

	_, err = ParseUnits("", 6)
	assert.Error(t, err)
}

func samplePermit() *types.PermitTransferFrom {
	return &types.PermitTransferFrom{
		Permitted: &types.TokenPermissions{Token: weth.Address, Amount: "1000000000000000000"},
		Spender:   "0x1111111111111111111111111111111111111111",
		Nonce:     "1",
		Deadline:  "1700001200",
	}
}

func sampleIntent() *types.SwapIntent {
	return &types.SwapIntent{
		User:        "0x2222222222222222222222222222222222222222",
		InputToken:  weth.Address,
		OutputToken: usdc.Address,
		InputAmt:    "1000000000000000000",
		UserAmtOut:  "3000000000",
		Recipient:   "0x2222222222222222222222222222222222222222",
		Deadline:    "1700001200",
		Nonce:       "1",
	}
}
