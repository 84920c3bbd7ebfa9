package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fast-swap/pkg/metrics"
)

// GasPriceSource returns the current gas price in wei
type GasPriceSource interface {
	GasPrice(ctx context.Context) (*big.Int, error)
}

// GasSnapshot is the last observed gas price
type GasSnapshot struct {
	Wei       *big.Int
	Gwei      decimal.Decimal
	UpdatedAt time.Time
}

// GasPoller refreshes the gas price on a fixed interval
type GasPoller struct {
	source   GasPriceSource
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.RWMutex
	last *GasSnapshot
}

// NewGasPoller creates a poller; call Run to start it
func NewGasPoller(source GasPriceSource, interval time.Duration, logger *zap.Logger) *GasPoller {
	return &GasPoller{
		source:   source,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run polls immediately and then on every tick until ctx is done
func (p *GasPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *GasPoller) poll(ctx context.Context) {
	wei, err := p.source.GasPrice(ctx)
	if err != nil {
		p.logger.Warn("gas price poll failed", zap.Error(err))
		return
	}

	snap := &GasSnapshot{
		Wei:       wei,
		Gwei:      decimal.NewFromBigInt(wei, -9),
		UpdatedAt: p.now(),
	}

	p.mu.Lock()
	p.last = snap
	p.mu.Unlock()

	metrics.GasPriceGwei.Set(snap.Gwei.InexactFloat64())
	p.logger.Debug("gas price updated", zap.String("wei", wei.String()))
}

// Latest returns the most recent snapshot, or nil before the first success
func (p *GasPoller) Latest() *GasSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}
