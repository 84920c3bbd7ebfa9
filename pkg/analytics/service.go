package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fast-swap/pkg/client"
)

// ErrNoData means the query succeeded but produced no usable value
var ErrNoData = errors.New("No data returned from analytics API")

// ErrInvalidAddress is returned for malformed wallet addresses
var ErrInvalidAddress = errors.New("Invalid address format")

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex address
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// NormalizeAddress trims, validates and lowercases an address
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !IsValidAddress(s) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(s), nil
}

// Querier runs raw SQL against an analytics catalog
type Querier interface {
	Query(ctx context.Context, catalog client.Catalog, sql string) ([]client.Row, error)
}

// Service runs registered queries and extracts the aggregates the API
// serves
type Service struct {
	querier Querier
	logger  *zap.Logger
}

// NewService creates an analytics service
func NewService(querier Querier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{querier: querier, logger: logger}
}

// Execute loads the query for key, formats params into it and runs it
func (s *Service) Execute(ctx context.Context, key string, params map[string]interface{}, catalog client.Catalog) ([]client.Row, error) {
	tmpl, err := LoadSQL(key)
	if err != nil {
		return nil, err
	}
	sql, err := Format(tmpl, params)
	if err != nil {
		return nil, fmt.Errorf("failed to format query %s: %w", key, err)
	}

	rows, err := s.querier.Query(ctx, catalog, sql)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", key, err)
	}
	return rows, nil
}

// ExecuteOne returns the first row, or nil when there is none
func (s *Service) ExecuteOne(ctx context.Context, key string, params map[string]interface{}, catalog client.Catalog) (client.Row, error) {
	rows, err := s.Execute(ctx, key, params, catalog)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// latestValue returns the value at idx of the latest row, falling back to
// the chart column when the primary one is null
func (s *Service) latestValue(ctx context.Context, key string, catalog client.Catalog, idx, fallback int) (decimal.Decimal, error) {
	rows, err := s.Execute(ctx, key, nil, catalog)
	if err != nil {
		return decimal.Zero, err
	}
	if len(rows) == 0 {
		return decimal.Zero, ErrNoData
	}
	if v, ok := cell(rows[0], idx); ok {
		return v, nil
	}
	if fallback >= 0 {
		if v, ok := cell(rows[0], fallback); ok {
			return v, nil
		}
	}
	return decimal.Zero, ErrNoData
}

// CumulativeSuccessfulTransactions is the running count of confirmed
// FastRPC transactions as of the latest day
func (s *Service) CumulativeSuccessfulTransactions(ctx context.Context) (int64, error) {
	v, err := s.latestValue(ctx, QueryTransactionsAnalytics, client.FastRPCCatalog, 3, 5)
	return v.IntPart(), err
}

// ActiveTraders is the running count of unique senders
func (s *Service) ActiveTraders(ctx context.Context) (int64, error) {
	v, err := s.latestValue(ctx, QueryActiveTraders, client.FastRPCCatalog, 4, 6)
	return v.IntPart(), err
}

// SwapCount is the number of swaps that went through FastRPC
func (s *Service) SwapCount(ctx context.Context) (int64, error) {
	v, err := s.latestValue(ctx, QuerySwapCount, client.DefaultCatalog, 0, -1)
	return v.IntPart(), err
}

// CumulativeTxVolume is the running total transaction volume in ETH
func (s *Service) CumulativeTxVolume(ctx context.Context) (float64, error) {
	v, err := s.latestValue(ctx, QuerySwapVolume, client.DefaultCatalog, 1, -1)
	return v.InexactFloat64(), err
}

// CumulativeSwapVolume is the running total swap volume in ETH
func (s *Service) CumulativeSwapVolume(ctx context.Context) (float64, error) {
	v, err := s.latestValue(ctx, QuerySwapVolume, client.DefaultCatalog, 2, -1)
	return v.InexactFloat64(), err
}

// UserSwapVolume is the total swap volume of address in ETH, 0 when the
// user never swapped
func (s *Service) UserSwapVolume(ctx context.Context, address string) (decimal.Decimal, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return decimal.Zero, err
	}

	row, err := s.ExecuteOne(ctx, QueryUserSwapVolume, map[string]interface{}{"addr": addr}, client.DefaultCatalog)
	if err != nil {
		return decimal.Zero, err
	}
	if v, ok := cell(row, 0); ok {
		return v, nil
	}
	return decimal.Zero, nil
}

// cell converts row[idx] to a decimal. Nulls and non-numeric values
// report false.
func cell(row client.Row, idx int) (decimal.Decimal, bool) {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return decimal.Zero, false
	}

	switch v := row[idx].(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	}
	return decimal.Zero, false
}

func cellOrZero(row client.Row, idx int) decimal.Decimal {
	v, _ := cell(row, idx)
	return v
}
