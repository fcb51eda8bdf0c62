package utils

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	SetSecret("test-secret")

	token, err := GenerateToken("u-1", []string{"admin"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "u-1" || len(claims.Roles) != 1 || claims.Roles[0] != "admin" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	SetSecret("test-secret")
	expired, _ := GenerateToken("u-1", nil, -time.Minute)

	SetSecret("other-secret")
	foreign, _ := GenerateToken("u-1", nil, time.Hour)
	SetSecret("test-secret")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateToken(tt.token); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
