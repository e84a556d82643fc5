package entities

import (
	"strings"
	"testing"
	"time"
)

func TestNewExchange(t *testing.T) {
	before := float64(time.Now().UnixNano()) / 1e9
	ex := NewExchange("how do I sleep better", "Try a regular bedtime.", "sleep")
	after := float64(time.Now().UnixNano()) / 1e9

	if ex.Timestamp < before || ex.Timestamp > after {
		t.Errorf("Timestamp = %f, want between %f and %f", ex.Timestamp, before, after)
	}
	if ex.ID != 0 {
		t.Errorf("ID = %d, want 0 before persistence", ex.ID)
	}
	if ex.Category != "sleep" {
		t.Errorf("Category = %q, want %q", ex.Category, "sleep")
	}
}

func TestExchangeExpired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		age     time.Duration
		expired bool
	}{
		{"fresh", time.Minute, false},
		{"at boundary", ExchangeTTL, false},
		{"just past boundary", ExchangeTTL + time.Second, true},
		{"old", time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := Exchange{Timestamp: float64(now.Add(-tt.age).UnixNano()) / 1e9}
			if got := ex.Expired(now, ExchangeTTL); got != tt.expired {
				t.Errorf("Expired() = %v, want %v", got, tt.expired)
			}
		})
	}
}

func TestExchangeValidate(t *testing.T) {
	tests := []struct {
		name     string
		exchange Exchange
		wantErr  bool
	}{
		{
			name:     "valid",
			exchange: Exchange{Timestamp: 1700000000, UserText: "hello", ResponseText: "hi"},
			wantErr:  false,
		},
		{
			name:     "missing timestamp",
			exchange: Exchange{UserText: "hello"},
			wantErr:  true,
		},
		{
			name:     "missing user text",
			exchange: Exchange{Timestamp: 1700000000},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.exchange.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatForContext(t *testing.T) {
	exchanges := []Exchange{
		{UserText: "how was my workout", ResponseText: "Solid session today."},
		{UserText: "and my sleep", ResponseText: "Seven hours, good recovery."},
	}

	got := FormatForContext(exchanges)
	want := "User: how was my workout\n" +
		"Response: Solid session today.\n" +
		"User: and my sleep\n" +
		"Response: Seven hours, good recovery."
	if got != want {
		t.Errorf("FormatForContext() = %q, want %q", got, want)
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("FormatForContext() has trailing newline")
	}
}

func TestFormatForContextEmpty(t *testing.T) {
	if got := FormatForContext(nil); got != "" {
		t.Errorf("FormatForContext(nil) = %q, want empty", got)
	}
}
