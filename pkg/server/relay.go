package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fast-swap/pkg/metrics"
	"fast-swap/pkg/types"
)

const relayAccepted = "Intent received and validated"

// relay accepts a signed intent after presence checks only. Settlement
// happens elsewhere; nothing is stored.
func (s *Server) relay(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		s.rejectRelay(c, http.StatusBadRequest, "invalid_json", types.RelayResponse{Message: "Invalid JSON body"})
		return
	}

	var req types.RelayRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.rejectRelay(c, http.StatusBadRequest, "invalid_json", types.RelayResponse{Message: "Invalid JSON body"})
		return
	}

	if err := req.Validate(); err != nil {
		var verr *types.RelayValidationError
		if !errors.As(err, &verr) {
			s.logger.Error("relay validation failed", zap.Error(err))
			s.rejectRelay(c, http.StatusInternalServerError, "error", types.RelayResponse{Message: "Internal server error"})
			return
		}
		s.rejectRelay(c, http.StatusBadRequest, "rejected", types.RelayResponse{Message: verr.Error(), Field: verr.Field})
		return
	}

	metrics.RelayIntents.WithLabelValues("accepted").Inc()
	s.logger.Info("intent received",
		zap.String("user", req.Intent.User),
		zap.String("inputToken", req.Intent.InputToken),
		zap.String("outputToken", req.Intent.OutputToken),
		zap.String("inputAmt", string(req.Intent.InputAmt)),
		zap.String("nonce", string(req.Intent.Nonce)))

	c.JSON(http.StatusOK, types.RelayResponse{Success: true, Message: relayAccepted})
}

func (s *Server) rejectRelay(c *gin.Context, status int, outcome string, resp types.RelayResponse) {
	metrics.RelayIntents.WithLabelValues(outcome).Inc()
	resp.Success = false
	c.JSON(status, resp)
}
