package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fast-swap/pkg/analytics"
	"fast-swap/pkg/client"
)

const analyticsNotConfigured = "Analytics DB auth token not configured"

// analyticsError writes the error body shared by the aggregate routes
func (s *Server) analyticsError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, client.ErrNotConfigured):
		errorJSON(c, http.StatusInternalServerError, analyticsNotConfigured)
	case errors.Is(err, analytics.ErrNoData):
		errorJSON(c, http.StatusInternalServerError, err.Error())
	default:
		var upstream *client.UpstreamError
		if errors.As(err, &upstream) {
			errorJSON(c, upstream.StatusCode, fmt.Sprintf("Analytics API returned status %d", upstream.StatusCode))
			return
		}
		s.logger.Error(fallback, zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, fallback)
	}
}

func (s *Server) aggregate(key, fallback string, fetch func(ctx context.Context) (interface{}, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Analytics == nil {
			errorJSON(c, http.StatusInternalServerError, analyticsNotConfigured)
			return
		}
		v, err := fetch(c.Request.Context())
		if err != nil {
			s.analyticsError(c, err, fallback)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, key: v})
	}
}

func (s *Server) cumulativeTransactions(c *gin.Context) {
	s.aggregate("cumulativeSuccessfulTxs", "Failed to fetch transaction analytics", func(ctx context.Context) (interface{}, error) {
		return s.deps.Analytics.CumulativeSuccessfulTransactions(ctx)
	})(c)
}

func (s *Server) activeTraders(c *gin.Context) {
	s.aggregate("activeTraders", "Failed to fetch active traders", func(ctx context.Context) (interface{}, error) {
		return s.deps.Analytics.ActiveTraders(ctx)
	})(c)
}

func (s *Server) swapCount(c *gin.Context) {
	s.aggregate("swapTxCount", "Failed to fetch swap count", func(ctx context.Context) (interface{}, error) {
		return s.deps.Analytics.SwapCount(ctx)
	})(c)
}

func (s *Server) txVolume(c *gin.Context) {
	s.aggregate("cumulativeTotalTxVolEth", "Failed to fetch transaction volume", func(ctx context.Context) (interface{}, error) {
		return s.deps.Analytics.CumulativeTxVolume(ctx)
	})(c)
}

func (s *Server) swapVolume(c *gin.Context) {
	s.aggregate("cumulativeSwapVolEth", "Failed to fetch swap volume", func(ctx context.Context) (interface{}, error) {
		return s.deps.Analytics.CumulativeSwapVolume(ctx)
	})(c)
}

type leaderboardResponse struct {
	Success bool `json:"success"`
	*analytics.Leaderboard
}

func (s *Server) leaderboard(c *gin.Context) {
	if s.deps.Analytics == nil {
		errorJSON(c, http.StatusInternalServerError, analyticsNotConfigured)
		return
	}

	limit := analytics.DefaultLeaderboardSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errorJSON(c, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	var prices analytics.PriceSource
	if s.deps.Prices != nil {
		prices = s.deps.Prices
	}

	board, err := s.deps.Analytics.Leaderboard(c.Request.Context(), prices, c.Query("currentUser"), limit)
	if err != nil {
		if errors.Is(err, client.ErrNotConfigured) {
			errorJSON(c, http.StatusInternalServerError, analyticsNotConfigured)
			return
		}
		s.logger.Error("failed to fetch leaderboard", zap.Error(err))
		c.JSON(upstreamStatus(err), gin.H{"error": "Failed to fetch leaderboard", "details": upstreamBody(err)})
		return
	}

	c.JSON(http.StatusOK, leaderboardResponse{Success: true, Leaderboard: board})
}

func (s *Server) userMetrics(c *gin.Context) {
	address := c.Param("address")
	if !analytics.IsValidAddress(address) {
		errorJSON(c, http.StatusBadRequest, analytics.ErrInvalidAddress.Error())
		return
	}
	if s.deps.FastRPC == nil || !s.deps.FastRPC.Configured() {
		errorJSON(c, http.StatusInternalServerError, "Fast RPC API token not configured")
		return
	}
	if s.deps.Analytics == nil {
		errorJSON(c, http.StatusInternalServerError, analyticsNotConfigured)
		return
	}

	var prices analytics.PriceSource
	if s.deps.Prices != nil {
		prices = s.deps.Prices
	}

	m, err := s.deps.Analytics.UserMetrics(c.Request.Context(), s.deps.FastRPC, prices, address)
	if err != nil {
		var upstream *client.UpstreamError
		if errors.As(err, &upstream) {
			errorJSON(c, upstream.StatusCode, fmt.Sprintf("FastRPC API returned status %d", upstream.StatusCode))
			return
		}
		s.logger.Error("failed to fetch user metrics", zap.String("address", address), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Failed to fetch user metrics")
		return
	}
	c.JSON(http.StatusOK, m)
}
