package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fast-swap/pkg/analytics"
	"fast-swap/pkg/store"
)

const databaseNotConfigured = "Database not configured"

// walletParam validates :wallet_address and writes the 400 itself
func walletParam(c *gin.Context) (string, bool) {
	wallet := c.Param("wallet_address")
	if wallet == "" {
		errorJSON(c, http.StatusBadRequest, "Wallet address is required")
		return "", false
	}
	if !analytics.IsValidAddress(wallet) {
		errorJSON(c, http.StatusBadRequest, "Invalid wallet address format")
		return "", false
	}
	return strings.ToLower(wallet), true
}

func (s *Server) usersReady(c *gin.Context) bool {
	if s.deps.Users == nil {
		errorJSON(c, http.StatusInternalServerError, databaseNotConfigured)
		return false
	}
	return true
}

func (s *Server) listUsers(c *gin.Context) {
	if !s.usersReady(c) {
		return
	}
	users, err := s.deps.Users.ListUsers(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Database query failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) getOnboarding(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok || !s.usersReady(c) {
		return
	}

	user, err := s.deps.Users.GetOnboarding(c.Request.Context(), wallet)
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("failed to fetch user onboarding", zap.String("wallet", wallet), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Database query failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// saveOnboarding serves POST (partial upsert) and PUT (full replace)
func (s *Server) saveOnboarding(replace bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet, ok := walletParam(c)
		if !ok || !s.usersReady(c) {
			return
		}

		var update store.OnboardingUpdate
		if err := json.NewDecoder(c.Request.Body).Decode(&update); err != nil {
			errorJSON(c, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		user, created, err := s.deps.Users.SaveOnboarding(c.Request.Context(), wallet, update, replace)
		if errors.Is(err, store.ErrNoFields) {
			errorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			s.logger.Error("failed to save user onboarding", zap.String("wallet", wallet), zap.Error(err))
			errorJSON(c, http.StatusInternalServerError, "Database operation failed")
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"user": user})
	}
}

func (s *Server) communityActivity(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok || !s.usersReady(c) {
		return
	}

	activities, err := s.deps.Users.CommunityActivity(c.Request.Context(), wallet)
	if err != nil {
		s.logger.Error("failed to fetch community activity", zap.String("wallet", wallet), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Database query failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

type activityRequest struct {
	Entity   interface{} `json:"entity"`
	Activity interface{} `json:"activity"`
}

func (s *Server) recordActivity(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok || !s.usersReady(c) {
		return
	}

	var req activityRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	entity, _ := req.Entity.(string)
	entity = strings.TrimSpace(entity)
	if entity == "" {
		errorJSON(c, http.StatusBadRequest, "entity is required and must be a non-empty string")
		return
	}
	// true or "true"; anything else records false
	activity := req.Activity == true || req.Activity == "true"

	if err := s.deps.Users.RecordActivity(c.Request.Context(), wallet, entity, activity); err != nil {
		s.logger.Error("failed to record community activity", zap.String("wallet", wallet), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Database operation failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "entity": entity, "activity": activity})
}
