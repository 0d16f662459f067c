package security_test

import (
	"testing"
	"time"

	"github.com/srishtiii28/alphascan/internal/security"
)

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := security.NewJWTManager("test-secret-key-with-32-chars!!", 7*24*time.Hour)

	token, err := manager.GenerateToken("u1", "+15550001111")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if token == "" {
		t.Error("token is empty")
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("user ID mismatch: got %v, want u1", claims.UserID)
	}
	if claims.Phone != "+15550001111" {
		t.Errorf("phone mismatch: got %v", claims.Phone)
	}
}

func TestJWTManager_ValidateExpired(t *testing.T) {
	manager := security.NewJWTManager("test-secret-key-with-32-chars!!", -time.Minute)

	token, err := manager.GenerateToken("u1", "")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := manager.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestJWTManager_ValidateWrongSecret(t *testing.T) {
	manager := security.NewJWTManager("secret-a", time.Hour)
	other := security.NewJWTManager("secret-b", time.Hour)

	token, err := manager.GenerateToken("u1", "")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Error("expected error for token signed with different secret")
	}
}
