package auth

import (
	"testing"
	"time"
)

func TestBuildAndParseJWT(t *testing.T) {
	secret := []byte("test-secret-min-32-chars!!")
	userID := "user-123"
	clinicID := "clinic-456"
	tok, err := BuildJWT(secret, userID, RoleAtendente, &clinicID, time.Hour)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	claims, err := ParseJWT(secret, tok)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != userID || claims.Role != RoleAtendente || claims.ClinicID == nil || *claims.ClinicID != clinicID {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	tok, err := BuildJWT([]byte("secret-a-min-32-chars-long-enough!"), "u1", RoleAdmin, nil, time.Hour)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	if _, err := ParseJWT([]byte("secret-b-min-32-chars-long-enough!"), tok); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseJWT_Expired(t *testing.T) {
	secret := []byte("test-secret-min-32-chars!!")
	tok, err := BuildJWT(secret, "u1", RoleAtendente, nil, -time.Minute)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	if _, err := ParseJWT(secret, tok); err == nil {
		t.Fatal("expected error for expired token")
	}
}
