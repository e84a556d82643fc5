package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Retention policy for the session buffer.
const (
	MaxExchanges = 5
	ExchangeTTL  = 10 * time.Minute
)

// Exchange is one completed user-input/response pair with a topic label.
// Immutable once created.
type Exchange struct {
	ID           int64   `json:"id"`
	Timestamp    float64 `json:"timestamp"` // unix seconds
	UserText     string  `json:"user_text"`
	ResponseText string  `json:"response_text"`
	Category     string  `json:"category"`
}

// NewExchange creates an exchange stamped with the current wall clock.
func NewExchange(userText, responseText, category string) Exchange {
	return Exchange{
		Timestamp:    float64(time.Now().UnixNano()) / 1e9,
		UserText:     userText,
		ResponseText: responseText,
		Category:     category,
	}
}

// Age returns how long ago the exchange was created relative to now.
func (e Exchange) Age(now time.Time) time.Duration {
	created := time.Unix(0, int64(e.Timestamp*1e9))
	return now.Sub(created)
}

// Expired reports whether the exchange is older than the TTL.
func (e Exchange) Expired(now time.Time, ttl time.Duration) bool {
	return e.Age(now) > ttl
}

// Validate validates the exchange data.
func (e Exchange) Validate() error {
	if e.Timestamp <= 0 {
		return errors.New("timestamp is required")
	}
	if e.UserText == "" {
		return errors.New("user_text is required")
	}
	return nil
}

// FormatForContext renders exchanges as alternating User:/Response: lines
// for inclusion in a downstream prompt. Returns "" when empty.
func FormatForContext(exchanges []Exchange) string {
	if len(exchanges) == 0 {
		return ""
	}
	var b strings.Builder
	for _, ex := range exchanges {
		fmt.Fprintf(&b, "User: %s\n", ex.UserText)
		fmt.Fprintf(&b, "Response: %s\n", ex.ResponseText)
	}
	return strings.TrimRight(b.String(), "\n")
}
