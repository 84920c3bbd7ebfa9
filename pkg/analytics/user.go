package analytics

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fast-swap/pkg/client"
)

// TransactionCounter returns FastRPC's per-wallet counters
type TransactionCounter interface {
	UserTransactions(ctx context.Context, address string) (*client.UserTransactions, error)
}

// UserMetrics summarises one wallet's activity
type UserMetrics struct {
	TotalTxs        int64    `json:"totalTxs"`
	SwapTxs         int64    `json:"swapTxs"`
	TotalSwapVolEth float64  `json:"totalSwapVolEth"`
	EthPrice        *float64 `json:"ethPrice"`
}

// UserMetrics combines FastRPC counters with analytics swap volume and the
// ETH price. The counters are required; volume and price are best effort.
func (s *Service) UserMetrics(ctx context.Context, counter TransactionCounter, prices PriceSource, address string) (*UserMetrics, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	txs, err := counter.UserTransactions(ctx, addr)
	if err != nil {
		return nil, err
	}

	metrics := &UserMetrics{
		TotalTxs: txs.TxnCount,
		SwapTxs:  txs.SwapCount,
	}

	var volume decimal.Decimal
	var price *decimal.Decimal

	// Neither lookup fails the group: errors are logged and the field keeps
	// its zero value.
	var g errgroup.Group
	g.Go(func() error {
		v, err := s.UserSwapVolume(ctx, addr)
		if err != nil {
			s.logger.Warn("user swap volume unavailable", zap.String("wallet", addr), zap.Error(err))
			return nil
		}
		volume = v
		return nil
	})
	if prices != nil {
		g.Go(func() error {
			p, err := prices.EthPrice(ctx)
			if err != nil {
				s.logger.Warn("eth price unavailable", zap.Error(err))
				return nil
			}
			price = &p
			return nil
		})
	}
	_ = g.Wait()

	metrics.TotalSwapVolEth = volume.InexactFloat64()
	if price != nil {
		f := price.InexactFloat64()
		metrics.EthPrice = &f
	}
	return metrics, nil
}
