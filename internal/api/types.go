package api

import (
	"time"

	"github.com/NotSquiz/atlas-bridge/domain/entities"
)

// DeviceAuthRequest is the device authentication payload.
type DeviceAuthRequest struct {
	SerialNumber string `json:"serial_number"`
	SecretKey    string `json:"secret_key"`
}

// DeviceAuthResponse carries the issued token.
type DeviceAuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	DeviceID  string    `json:"device_id"`
}

// ExchangesResponse lists the rolling conversation context.
type ExchangesResponse struct {
	Exchanges []entities.Exchange `json:"exchanges"`
	Count     int                 `json:"count"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
