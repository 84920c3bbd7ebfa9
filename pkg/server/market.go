package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fast-swap/pkg/analytics"
	"fast-swap/pkg/client"
	"fast-swap/pkg/permit2"
	"fast-swap/pkg/types"
)

func (s *Server) tokens(c *gin.Context) {
	if s.deps.Tokens == nil {
		c.JSON(http.StatusInternalServerError, []types.Token{})
		return
	}
	tokens, err := s.deps.Tokens.Tokens(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to fetch token list", zap.Error(err))
		c.JSON(http.StatusInternalServerError, []types.Token{})
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (s *Server) tokenPrice(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		errorJSON(c, http.StatusBadRequest, "Symbol parameter is required")
		return
	}
	if s.deps.Prices == nil {
		errorJSON(c, http.StatusInternalServerError, "Failed to fetch token price")
		return
	}

	price, err := s.deps.Prices.TokenPrice(c.Request.Context(), symbol)
	if err != nil {
		s.logger.Warn("token price unavailable", zap.String("symbol", symbol), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch %s price", symbol))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"symbol":  strings.ToUpper(symbol),
		"price":   price.InexactFloat64(),
	})
}

func (s *Server) ethPrice(c *gin.Context) {
	if s.deps.Prices == nil {
		errorJSON(c, http.StatusInternalServerError, "Failed to fetch ETH price")
		return
	}
	price, err := s.deps.Prices.EthPrice(c.Request.Context())
	if err != nil {
		s.logger.Warn("eth price unavailable", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Failed to fetch ETH price")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ethPrice": price.InexactFloat64()})
}

const fastRPCNotConfigured = "Fast RPC not properly configured"

func (s *Server) transactionStatus(c *gin.Context) {
	hash := c.Param("hash")
	if s.deps.FastRPC == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": fastRPCNotConfigured})
		return
	}

	data, err := s.deps.FastRPC.TransactionStatus(c.Request.Context(), hash)
	if err != nil {
		var upstream *client.UpstreamError
		if errors.As(err, &upstream) {
			msg := upstream.Body
			if msg == "" {
				msg = fmt.Sprintf("API returned status %d", upstream.StatusCode)
			}
			c.JSON(upstream.StatusCode, gin.H{"success": false, "error": msg})
			return
		}
		s.logger.Error("transaction status failed", zap.String("hash", hash), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": fastRPCNotConfigured})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "hash": hash, "data": data})
}

func (s *Server) gasPrice(c *gin.Context) {
	if s.deps.Gas == nil {
		errorJSON(c, http.StatusInternalServerError, "Ethereum RPC not configured")
		return
	}
	snap := s.deps.Gas.Latest()
	if snap == nil {
		errorJSON(c, http.StatusServiceUnavailable, "Gas price not available yet")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"wei":       snap.Wei.String(),
		"gwei":      snap.Gwei.InexactFloat64(),
		"updatedAt": snap.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) nextNonce(c *gin.Context) {
	address := c.Param("address")
	if !analytics.IsValidAddress(address) {
		errorJSON(c, http.StatusBadRequest, analytics.ErrInvalidAddress.Error())
		return
	}
	if s.deps.Nonces == nil {
		errorJSON(c, http.StatusInternalServerError, "Ethereum RPC not configured")
		return
	}

	owner := common.HexToAddress(address)
	nonce, err := permit2.NextNonce(c.Request.Context(), s.deps.Nonces, owner, s.deps.NonceWordLimit, nil)
	if err != nil {
		s.logger.Error("nonce lookup failed", zap.String("owner", owner.Hex()), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Failed to fetch Permit2 nonce")
		return
	}

	word, bit := permit2.SplitNonce(nonce)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"owner":   owner.Hex(),
		"nonce":   nonce.String(),
		"wordPos": word.String(),
		"bitPos":  bit,
	})
}
