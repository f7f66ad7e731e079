package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"crypto-signal-bot/internal/auth"
)

// handleHealth reports process and database liveness.
func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	if err := s.repo.HealthCheck(c.Request.Context()); err != nil {
		status = "degraded"
		dbStatus = err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"database":   dbStatus,
		"ws_clients": s.wsHub.GetClientCount(),
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	token, err := s.authManager.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   s.authManager.TokenDuration(),
	})
}

func (s *Server) handleOpenSignals(c *gin.Context) {
	signals, err := s.repo.GetOpenSignals(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load open signals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load signals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(signals),
		"signals": signals,
	})
}

func (s *Server) handleSignalByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signal id"})
		return
	}

	sig, err := s.repo.GetSignalByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
			return
		}
		s.logger.Error().Err(err).Int64("signal_id", id).Msg("failed to load signal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load signal"})
		return
	}

	c.JSON(http.StatusOK, sig)
}

func (s *Server) handleStats(c *gin.Context) {
	report, err := s.reporter.Build(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build stats report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build stats"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// handleScan runs a scan cycle synchronously and returns its summary.
func (s *Server) handleScan(c *gin.Context) {
	result := s.scanTrigger.Scan()
	if result == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "scan already in progress"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleScannerStatus(c *gin.Context) {
	result := s.scanTrigger.GetLastResult()
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"last_scan": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"last_scan": result})
}
