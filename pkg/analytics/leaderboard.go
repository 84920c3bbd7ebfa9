package analytics

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fast-swap/pkg/client"
)

const (
	DefaultLeaderboardSize = 15
	MaxLeaderboardSize     = 100
)

// PriceSource provides the ETH/USD price
type PriceSource interface {
	EthPrice(ctx context.Context) (decimal.Decimal, error)
}

// LeaderboardEntry is one ranked wallet. Volumes are in USD when an ETH
// price was available and in ETH otherwise.
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	Wallet        string  `json:"wallet"`
	SwapVolume24h float64 `json:"swapVolume24h"`
	SwapCount     int64   `json:"swapCount"`
	Change24h     float64 `json:"change24h"`
	IsCurrentUser bool    `json:"isCurrentUser"`
}

// Leaderboard is the ranked list plus the current user's standing
type Leaderboard struct {
	Entries        []LeaderboardEntry `json:"leaderboard"`
	UserPosition   *int               `json:"userPosition"`
	UserVolume     *float64           `json:"userVolume"`
	NextRankVolume *float64           `json:"nextRankVolume"`
	EthPrice       *float64           `json:"ethPrice"`
}

// ClampLeaderboardSize bounds limit to [1, MaxLeaderboardSize]
func ClampLeaderboardSize(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxLeaderboardSize {
		return MaxLeaderboardSize
	}
	return limit
}

// TrimWallet shortens an address to 0x12...abcd
func TrimWallet(address string) string {
	if len(address) < 8 || strings.Contains(address, "...") {
		return address
	}
	return address[:4] + "..." + address[len(address)-4:]
}

// Leaderboard ranks wallets by all-time swap volume. When currentUser is
// set and outside the top list, its rank and the volume needed for the
// next rank are looked up separately; failures there are logged and
// leave the user fields empty.
func (s *Service) Leaderboard(ctx context.Context, prices PriceSource, currentUser string, limit int) (*Leaderboard, error) {
	limit = ClampLeaderboardSize(limit)

	rows, err := s.Execute(ctx, QueryMainLeaderboard, map[string]interface{}{"limit": limit}, client.DefaultCatalog)
	if err != nil {
		return nil, err
	}

	var ethPrice *decimal.Decimal
	if prices != nil {
		if p, err := prices.EthPrice(ctx); err != nil {
			s.logger.Warn("eth price unavailable for leaderboard", zap.Error(err))
		} else {
			ethPrice = &p
		}
	}
	toUSD := func(eth decimal.Decimal) float64 {
		if ethPrice == nil {
			return eth.InexactFloat64()
		}
		return eth.Mul(*ethPrice).InexactFloat64()
	}

	currentUser = strings.ToLower(strings.TrimSpace(currentUser))

	board := &Leaderboard{Entries: make([]LeaderboardEntry, 0, len(rows))}
	if ethPrice != nil {
		f := ethPrice.InexactFloat64()
		board.EthPrice = &f
	}

	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		wallet, _ := row[0].(string)
		wallet = strings.ToLower(wallet)
		board.Entries = append(board.Entries, LeaderboardEntry{
			Rank:          len(board.Entries) + 1,
			Wallet:        wallet,
			SwapVolume24h: toUSD(cellOrZero(row, 1)),
			SwapCount:     cellOrZero(row, 2).IntPart(),
			Change24h:     cellOrZero(row, 4).InexactFloat64(),
			IsCurrentUser: currentUser != "" && wallet == currentUser,
		})
	}

	if currentUser == "" {
		return board, nil
	}

	for _, entry := range board.Entries {
		if !entry.IsCurrentUser {
			continue
		}
		rank, volume := entry.Rank, entry.SwapVolume24h
		board.UserPosition = &rank
		board.UserVolume = &volume
		if rank > 1 {
			next := board.Entries[rank-2].SwapVolume24h
			board.NextRankVolume = &next
		}
		return board, nil
	}

	s.placeUser(ctx, board, currentUser, limit, toUSD)
	return board, nil
}

func (s *Service) placeUser(ctx context.Context, board *Leaderboard, user string, limit int, toUSD func(decimal.Decimal) float64) {
	if !IsValidAddress(user) {
		return
	}
	params := map[string]interface{}{"addr": user}

	var userRow, rankRow client.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		userRow, err = s.ExecuteOne(gctx, QueryUserData, params, client.DefaultCatalog)
		return err
	})
	g.Go(func() error {
		var err error
		rankRow, err = s.ExecuteOne(gctx, QueryUserRank, params, client.DefaultCatalog)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to fetch user position", zap.String("wallet", user), zap.Error(err))
		return
	}

	volumeEth := cellOrZero(userRow, 0)
	rankValue, ok := cell(rankRow, 0)
	if !ok || !volumeEth.IsPositive() {
		return
	}

	rank := int(rankValue.IntPart())
	volume := toUSD(volumeEth)
	board.UserPosition = &rank
	board.UserVolume = &volume

	if rank > 1 {
		if rank-1 <= len(board.Entries) {
			next := board.Entries[rank-2].SwapVolume24h
			board.NextRankVolume = &next
		} else {
			row, err := s.ExecuteOne(ctx, QueryNextRankThreshold, params, client.DefaultCatalog)
			if err != nil {
				s.logger.Error("failed to fetch next rank volume", zap.String("wallet", user), zap.Error(err))
			} else if v, ok := cell(row, 0); ok && v.IsPositive() {
				next := toUSD(v)
				board.NextRankVolume = &next
			}
		}
	}

	if rank > limit {
		board.Entries = append(board.Entries, LeaderboardEntry{
			Rank:          rank,
			Wallet:        user,
			SwapVolume24h: volume,
			SwapCount:     cellOrZero(userRow, 1).IntPart(),
			Change24h:     cellOrZero(userRow, 3).InexactFloat64(),
			IsCurrentUser: true,
		})
	}
}
