package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fast-swap/pkg/client"
)

const (
	walletA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	walletB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	walletZ = "0xffffffffffffffffffffffffffffffffffffffff"
)

func topTwo() []client.Row {
	return []client.Row{
		{walletA, num("10"), num("7"), num("1"), num("50")},
		{walletB, num("4"), num("2"), num("0"), num("0")},
	}
}

func TestLeaderboardConvertsToUSD(t *testing.T) {
	q := newScriptedQuerier()
	q.on(QueryMainLeaderboard, topTwo()...)
	svc := NewService(q, zap.NewNop())

	board, err := svc.Leaderboard(context.Background(), fixedPrice{price: decimal.NewFromInt(2000)}, "", 0)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)

	assert.Equal(t, LeaderboardEntry{Rank: 1, Wallet: walletA, SwapVolume24h: 20000, SwapCount: 7, Change24h: 50}, board.Entries[0])
	assert.Equal(t, 2, board.Entries[1].Rank)
	assert.Nil(t, board.UserPosition)
	require.NotNil(t, board.EthPrice)
	assert.Equal(t, 2000.0, *board.EthPrice)
	assert.Contains(t, q.seen[0], "LIMIT 1")
}

func TestLeaderboardWithoutPriceKeepsEth(t *testing.T) {
	q := newScriptedQuerier()
	q.on(QueryMainLeaderboard, topTwo()...)

	board, err := NewService(q, zap.NewNop()).Leaderboard(context.Background(), fixedPrice{err: errors.New("down")}, "", 15)
	require.NoError(t, err)
	assert.Equal(t, 10.0, board.Entries[0].SwapVolume24h)
	assert.Nil(t, board.EthPrice)
	assert.Contains(t, q.seen[0], "LIMIT 15")
}

func TestLeaderboardCurrentUserInTop(t *testing.T) {
	q := newScriptedQuerier()
	q.on(QueryMainLeaderboard, topTwo()...)

	board, err := NewService(q, zap.NewNop()).Leaderboard(context.Background(), nil, "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", 15)
	require.NoError(t, err)

	assert.True(t, board.Entries[1].IsCurrentUser)
	require.NotNil(t, board.UserPosition)
	assert.Equal(t, 2, *board.UserPosition)
	assert.Equal(t, 4.0, *board.UserVolume)
	assert.Equal(t, 10.0, *board.NextRankVolume)
	assert.Len(t, q.seen, 1)
}

func TestLeaderboardCurrentUserOutsideTop(t *testing.T) {
	q := newScriptedQuerier()
	q.on(QueryMainLeaderboard, topTwo()...)
	q.on(QueryUserData, client.Row{num("1.5"), num("3"), num("0.5"), num("25")})
	q.on(QueryUserRank, client.Row{num("40")})
	q.on(QueryNextRankThreshold, client.Row{num("1.75")})

	board, err := NewService(q, zap.NewNop()).Leaderboard(context.Background(), fixedPrice{price: decimal.NewFromInt(2)}, walletZ, 15)
	require.NoError(t, err)

	require.Len(t, board.Entries, 3)
	last := board.Entries[2]
	assert.Equal(t, LeaderboardEntry{Rank: 40, Wallet: walletZ, SwapVolume24h: 3, SwapCount: 3, Change24h: 25, IsCurrentUser: true}, last)
	assert.Equal(t, 40, *board.UserPosition)
	assert.Equal(t, 3.0, *board.UserVolume)
	assert.Equal(t, 3.5, *board.NextRankVolume)
}

func TestLeaderboardUserLookupFailureIsTolerated(t *testing.T) {
	q := newScriptedQuerier()
	q.on(QueryMainLeaderboard, topTwo()...)
	q.fail(QueryUserRank, errors.New("timeout"))

	board, err := NewService(q, zap.NewNop()).Leaderboard(context.Background(), nil, walletZ, 15)
	require.NoError(t, err)
	assert.Len(t, board.Entries, 2)
	assert.Nil(t, board.UserPosition)
	assert.Nil(t, board.NextRankVolume)
}

func TestLeaderboardMainQueryFailure(t *testing.T) {
	q := newScriptedQuerier()
	q.fail(QueryMainLeaderboard, &client.UpstreamError{Service: "analytics", StatusCode: 502})

	_, err := NewService(q, zap.NewNop()).Leaderboard(context.Background(), nil, "", 15)
	require.Error(t, err)
	assert.Equal(t, 502, client.StatusOf(err, 500))
}

func TestClampLeaderboardSizeAndTrimWallet(t *testing.T) {
	assert.Equal(t, 1, ClampLeaderboardSize(-3))
	assert.Equal(t, 100, ClampLeaderboardSize(1000))
	assert.Equal(t, 15, ClampLeaderboardSize(15))

	assert.Equal(t, "0xaa...aaaa", TrimWallet(walletA))
	assert.Equal(t, "0x1", TrimWallet("0x1"))
	assert.Equal(t, "0xaa...aaaa", TrimWallet("0xaa...aaaa"))
}
