package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/domain/entities"
	"github.com/NotSquiz/atlas-bridge/internal/auth"
	"github.com/NotSquiz/atlas-bridge/internal/bridge"
	"github.com/NotSquiz/atlas-bridge/internal/websocket"
	"github.com/NotSquiz/atlas-bridge/usecase"
)

// Server wires the HTTP surface: health, session status snapshots, the
// rolling exchange buffer, device authentication, and the websocket
// endpoint.
type Server struct {
	hub          *websocket.Hub
	conversation *usecase.ConversationService
	bridgeDir    *bridge.Dir
	issuer       *auth.TokenIssuer
	deviceSecret string
	logger       *zap.Logger
}

// NewServer creates the API server. bridgeDir may be nil when no control
// channel is configured; the status endpoint then reports empty snapshots.
func NewServer(
	hub *websocket.Hub,
	conversation *usecase.ConversationService,
	bridgeDir *bridge.Dir,
	issuer *auth.TokenIssuer,
	deviceSecret string,
	logger *zap.Logger,
) *Server {
	return &Server{
		hub:          hub,
		conversation: conversation,
		bridgeDir:    bridgeDir,
		issuer:       issuer,
		deviceSecret: deviceSecret,
		logger:       logger,
	}
}

// InitRoutes registers all API routes.
func (s *Server) InitRoutes(e *echo.Echo) {
	e.GET("/health", s.health)

	v1 := e.Group("/api/v1")
	v1.POST("/device/auth", s.deviceAuth)
	v1.GET("/status", s.sessionStatus)
	v1.GET("/exchanges", s.exchanges)

	e.GET("/ws", s.websocketWithAuth)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "atlas-bridge",
		"clients": s.hub.ClientCount(),
	})
}

// deviceAuth validates the shared device secret and issues a JWT.
func (s *Server) deviceAuth(c echo.Context) error {
	var req DeviceAuthRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Error("Failed to bind device auth request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.SerialNumber == "" || req.SecretKey == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Serial number and secret key are required",
		})
	}

	if req.SecretKey != s.deviceSecret {
		s.logger.Warn("Device authentication failed",
			zap.String("serial_number", req.SerialNumber))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid device credentials",
		})
	}

	deviceID := uuid.NewString()
	token, expiresAt, err := s.issuer.IssueDeviceToken(deviceID)
	if err != nil {
		s.logger.Error("Failed to generate device token",
			zap.String("device_id", deviceID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	s.logger.Info("Device authenticated",
		zap.String("device_id", deviceID),
		zap.String("serial_number", req.SerialNumber))

	return c.JSON(http.StatusOK, DeviceAuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		DeviceID:  deviceID,
	})
}

// sessionStatus serves the most recent status snapshot.
func (s *Server) sessionStatus(c echo.Context) error {
	if s.bridgeDir == nil {
		return c.JSON(http.StatusOK, bridge.SessionStatus{})
	}
	status, err := bridge.ReadSessionStatus(*s.bridgeDir)
	if err != nil {
		s.logger.Error("Failed to read session status", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "status_unavailable",
			Message: "Session status snapshot could not be read",
		})
	}
	return c.JSON(http.StatusOK, status)
}

// exchanges serves the rolling conversation context, oldest first.
func (s *Server) exchanges(c echo.Context) error {
	maxN := entities.MaxExchanges
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			maxN = limit
		}
	}

	exchanges, err := s.conversation.RecentExchanges(c.Request().Context(), maxN)
	if err != nil {
		s.logger.Error("Failed to load exchanges", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "exchanges_unavailable",
			Message: "Session buffer could not be read",
		})
	}
	if exchanges == nil {
		exchanges = []entities.Exchange{}
	}

	return c.JSON(http.StatusOK, ExchangesResponse{
		Exchanges: exchanges,
		Count:     len(exchanges),
	})
}

// websocketWithAuth upgrades authenticated connections.
func (s *Server) websocketWithAuth(c echo.Context) error {
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}

	if token == "" {
		s.logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required in Authorization header",
		})
	}

	claims, err := s.issuer.ValidateToken(token)
	if err != nil {
		s.logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	if claims.Role != "device" {
		s.logger.Warn("WebSocket connection rejected: invalid role",
			zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only device tokens are allowed for WebSocket connections",
		})
	}

	if claims.DeviceID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "Device ID not found in token",
		})
	}

	s.logger.Info("WebSocket connection authenticated",
		zap.String("device_id", claims.DeviceID))

	return websocket.HandleWebSocketWithAuth(s.hub, c, claims.DeviceID, s.logger)
}
