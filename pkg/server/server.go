package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fast-swap/pkg/analytics"
	"fast-swap/pkg/chain"
	"fast-swap/pkg/client"
	"fast-swap/pkg/feedback"
	"fast-swap/pkg/metrics"
	"fast-swap/pkg/permit2"
	"fast-swap/pkg/store"
	"fast-swap/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// TokenLister serves the mainnet token list
type TokenLister interface {
	Tokens(ctx context.Context) ([]types.Token, error)
}

// PriceSource quotes USD prices
type PriceSource interface {
	TokenPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	EthPrice(ctx context.Context) (decimal.Decimal, error)
}

// FastRPC reads transaction status and per-wallet counters
type FastRPC interface {
	Configured() bool
	TransactionStatus(ctx context.Context, hash string) (json.RawMessage, error)
	UserTransactions(ctx context.Context, address string) (*client.UserTransactions, error)
}

// Fuul proxies referral payouts and wallet events
type Fuul interface {
	Configured() bool
	PayoutsSummary(ctx context.Context, currency string) (json.RawMessage, error)
	IdentifyUser(ctx context.Context, req client.IdentifyUserRequest) (json.RawMessage, error)
}

// Waitlist captures emails for the launch list
type Waitlist interface {
	Configured() bool
	CaptureEmail(ctx context.Context, in client.CaptureEmailInput) (*client.CaptureEmailResult, error)
}

// UserStore persists onboarding progress and community activity
type UserStore interface {
	ListUsers(ctx context.Context) ([]store.Onboarding, error)
	GetOnboarding(ctx context.Context, wallet string) (*store.Onboarding, error)
	SaveOnboarding(ctx context.Context, wallet string, u store.OnboardingUpdate, replace bool) (*store.Onboarding, bool, error)
	CommunityActivity(ctx context.Context, wallet string) (map[string]bool, error)
	RecordActivity(ctx context.Context, wallet, entity string, activity bool) error
}

// FeedbackSink records post-swap feedback
type FeedbackSink interface {
	Submit(ctx context.Context, sub feedback.Submission) error
}

// GasSource returns the last polled gas price, nil before the first poll
type GasSource interface {
	Latest() *chain.GasSnapshot
}

// Deps are the collaborators behind the routes. Nil members make their
// routes answer with a configuration error.
type Deps struct {
	Tokens         TokenLister
	Prices         PriceSource
	FastRPC        FastRPC
	Analytics      *analytics.Service
	Fuul           Fuul
	Waitlist       Waitlist
	Users          UserStore
	Feedback       FeedbackSink
	Gas            GasSource
	Nonces         permit2.BitmapReader
	NonceWordLimit int
}

// Server is the dApp HTTP API
type Server struct {
	deps   Deps
	logger *zap.Logger
	engine *gin.Engine
}

// New builds the router
func New(deps Deps, logger *zap.Logger) *Server {
	if deps.NonceWordLimit <= 0 {
		deps.NonceWordLimit = 1
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger), requestMetrics())

	s := &Server{deps: deps, logger: logger, engine: engine}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	api.POST("/relay", s.relay)

	api.GET("/tokens", s.tokens)
	api.GET("/token-price", s.tokenPrice)
	api.GET("/transaction-status/:hash", s.transactionStatus)
	api.GET("/gas-price", s.gasPrice)
	api.GET("/permit2/nonce/:address", s.nextNonce)

	a := api.Group("/analytics")
	a.GET("/transactions", s.cumulativeTransactions)
	a.GET("/active-traders", s.activeTraders)
	a.GET("/swap-count", s.swapCount)
	a.GET("/volume", s.txVolume)
	a.GET("/volume/swap", s.swapVolume)
	a.GET("/eth-price", s.ethPrice)
	a.GET("/leaderboard", s.leaderboard)
	a.GET("/user/:address", s.userMetrics)

	api.GET("/fuul/payouts-summary", s.payoutsSummary)
	api.POST("/fuul/identify-user", s.identifyUser)

	api.GET("/users", s.listUsers)
	api.GET("/user-onboarding/:wallet_address", s.getOnboarding)
	api.POST("/user-onboarding/:wallet_address", s.saveOnboarding(false))
	api.PUT("/user-onboarding/:wallet_address", s.saveOnboarding(true))
	api.GET("/user-community-activity/:wallet_address", s.communityActivity)
	api.POST("/user-community-activity/:wallet_address", s.recordActivity)

	api.POST("/waitlist", s.waitlist)
	api.POST("/feedback", s.feedback)
}

// Handler exposes the router for tests and custom servers
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func errorJSON(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// upstreamStatus keeps an upstream's status code and maps everything else to 500
func upstreamStatus(err error) int {
	if errors.Is(err, client.ErrNotConfigured) {
		return http.StatusInternalServerError
	}
	return client.StatusOf(err, http.StatusInternalServerError)
}

func upstreamBody(err error) string {
	var upstream *client.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Body
	}
	return err.Error()
}
