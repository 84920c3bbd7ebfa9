package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gopkg.in/go-playground/validator.v9"

	"fast-swap/pkg/client"
	"fast-swap/pkg/feedback"
)

const serverConfigError = "Server configuration error"

var validate = validator.New()

func (s *Server) payoutsSummary(c *gin.Context) {
	if s.deps.Fuul == nil || !s.deps.Fuul.Configured() {
		errorJSON(c, http.StatusInternalServerError, serverConfigError)
		return
	}

	data, err := s.deps.Fuul.PayoutsSummary(c.Request.Context(), c.Query("currency"))
	if err != nil {
		var upstream *client.UpstreamError
		if errors.As(err, &upstream) {
			c.JSON(upstream.StatusCode, gin.H{"error": "Failed to fetch payout summary from Fuul", "details": upstream.Body})
			return
		}
		s.logger.Error("fuul payouts summary failed", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Failed to parse response from Fuul API")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func (s *Server) identifyUser(c *gin.Context) {
	var req client.IdentifyUserRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Identifier == "" || req.TrackingID == "" {
		errorJSON(c, http.StatusBadRequest, "Missing required fields")
		return
	}
	if req.IdentifierType == "" {
		req.IdentifierType = "evm_address"
	}
	if req.IdentifierType == "evm_address" && !common.IsHexAddress(req.Identifier) {
		errorJSON(c, http.StatusBadRequest, "Invalid EVM address")
		return
	}
	if s.deps.Fuul == nil || !s.deps.Fuul.Configured() {
		errorJSON(c, http.StatusInternalServerError, serverConfigError)
		return
	}

	data, err := s.deps.Fuul.IdentifyUser(c.Request.Context(), req)
	if err != nil {
		var upstream *client.UpstreamError
		if errors.As(err, &upstream) {
			c.JSON(upstream.StatusCode, gin.H{"error": "Failed to identify user with Fuul", "details": upstream.Body})
			return
		}
		s.logger.Error("fuul identify user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to identify user", "details": err.Error()})
		return
	}

	if len(data) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func (s *Server) waitlist(c *gin.Context) {
	var in client.CaptureEmailInput
	if err := json.NewDecoder(c.Request.Body).Decode(&in); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validate.Struct(in); err != nil {
		errorJSON(c, http.StatusBadRequest, "A valid email is required")
		return
	}
	if s.deps.Waitlist == nil || !s.deps.Waitlist.Configured() {
		errorJSON(c, http.StatusInternalServerError, serverConfigError)
		return
	}

	res, err := s.deps.Waitlist.CaptureEmail(c.Request.Context(), in)
	if err != nil {
		var upstream *client.UpstreamError
		if errors.As(err, &upstream) {
			errorJSON(c, http.StatusBadGateway, upstream.Body)
			return
		}
		s.logger.Error("waitlist signup failed", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Failed to join waitlist")
		return
	}

	if res.AlreadySubscribed {
		c.JSON(http.StatusOK, gin.H{"success": true, "alreadySubscribed": true, "message": res.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) feedback(c *gin.Context) {
	var sub feedback.Submission
	if err := json.NewDecoder(c.Request.Body).Decode(&sub); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var err error
	if s.deps.Feedback == nil {
		err = sub.Validate()
		if err == nil {
			err = feedback.ErrNotConfigured
		}
	} else {
		err = s.deps.Feedback.Submit(c.Request.Context(), sub)
	}

	if err != nil {
		status := http.StatusInternalServerError
		if feedback.IsBadRequest(err) {
			status = http.StatusBadRequest
		}
		errorJSON(c, status, feedback.ErrorMessage(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Feedback submitted successfully"})
}
