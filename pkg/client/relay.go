package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"fast-swap/pkg/types"
)

// RelayClient posts signed intents to a relay endpoint
type RelayClient struct {
	url  string
	http httpDoer
}

// NewRelayClient creates a relay client. url is the full relay endpoint,
// e.g. https://app.example/api/relay
func NewRelayClient(url string, logger *zap.Logger) *RelayClient {
	return &RelayClient{
		url:  strings.TrimRight(url, "/"),
		http: newHTTPDoer("relay", logger),
	}
}

// Submit sends req. A rejection by the relay is returned as the decoded
// response together with an *UpstreamError.
func (c *RelayClient) Submit(ctx context.Context, req *types.RelayRequest) (*types.RelayResponse, error) {
	if c.url == "" {
		return nil, fmt.Errorf("relay url: %w", ErrNotConfigured)
	}

	body, _, err := c.http.do(ctx, http.MethodPost, c.url, nil, req)

	var upstream *UpstreamError
	if err != nil && !errors.As(err, &upstream) {
		return nil, err
	}

	var resp types.RelayResponse
	if decodeErr := json.Unmarshal(body, &resp); decodeErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to decode relay response: %w", decodeErr)
	}
	return &resp, err
}
