package auth

import (
	"testing"
	"time"
)

func TestIssueAndValidate(t *testing.T) {
	issuer, err := NewTokenIssuer([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}

	token, expiresAt, err := issuer.IssueDeviceToken("device-42")
	if err != nil {
		t.Fatalf("IssueDeviceToken() error = %v", err)
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 59*time.Minute {
		t.Errorf("expiresAt = %s, want about an hour out", expiresAt)
	}

	claims, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.DeviceID != "device-42" {
		t.Errorf("DeviceID = %q, want device-42", claims.DeviceID)
	}
	if claims.Role != "device" {
		t.Errorf("Role = %q, want device", claims.Role)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewTokenIssuer([]byte("secret-a"), 0)
	other, _ := NewTokenIssuer([]byte("secret-b"), 0)

	token, _, err := issuer.IssueDeviceToken("device-1")
	if err != nil {
		t.Fatalf("IssueDeviceToken() error = %v", err)
	}
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("ValidateToken() accepted a token signed with another secret")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	issuer, _ := NewTokenIssuer([]byte("secret"), 0)
	if _, err := issuer.ValidateToken("not.a.token"); err == nil {
		t.Error("ValidateToken() accepted garbage")
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer(nil, 0); err == nil {
		t.Error("NewTokenIssuer(nil) error = nil, want error")
	}
}
