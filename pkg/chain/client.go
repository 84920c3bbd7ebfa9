package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// nonceBitmap(address owner, uint256 wordPos) view returns (uint256)
const permit2NonceBitmapABI = `[{"inputs":[{"name":"owner","type":"address"},{"name":"wordPos","type":"uint256"}],"name":"nonceBitmap","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// Backend is the subset of ethclient.Client used here
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Client reads Permit2 state and gas prices from an Ethereum node
type Client struct {
	backend Backend
	closer  func()
	permit2 common.Address
	abi     abi.ABI
}

// Dial connects to the RPC endpoint
func Dial(ctx context.Context, rpcURL, permit2Address string) (*Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("ethereum RPC URL not configured")
	}

	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	c, err := NewClient(ec, permit2Address)
	if err != nil {
		ec.Close()
		return nil, err
	}
	c.closer = ec.Close
	return c, nil
}

// NewClient wraps an existing backend
func NewClient(backend Backend, permit2Address string) (*Client, error) {
	if !common.IsHexAddress(permit2Address) {
		return nil, fmt.Errorf("invalid Permit2 address: %s", permit2Address)
	}

	parsedABI, err := abi.JSON(strings.NewReader(permit2NonceBitmapABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Permit2 ABI: %w", err)
	}

	return &Client{
		backend: backend,
		permit2: common.HexToAddress(permit2Address),
		abi:     parsedABI,
	}, nil
}

// NonceBitmap calls Permit2.nonceBitmap(owner, wordPos) at the latest block
func (c *Client) NonceBitmap(ctx context.Context, owner common.Address, wordPos *big.Int) (*big.Int, error) {
	data, err := c.abi.Pack("nonceBitmap", owner, wordPos)
	if err != nil {
		return nil, fmt.Errorf("failed to pack nonceBitmap data: %w", err)
	}

	msg := ethereum.CallMsg{
		To:   &c.permit2,
		Data: data,
	}

	result, err := c.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call nonceBitmap: %w", err)
	}

	out, err := c.abi.Unpack("nonceBitmap", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack nonceBitmap result: %w", err)
	}
	bitmap, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected nonceBitmap result type %T", out[0])
	}

	return bitmap, nil
}

// GasPrice returns the node's suggested gas price in wei
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

// Close closes the client connection
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}
