package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("admin", true, time.Hour, secret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseToken(token, secret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if !claims.Admin || claims.Subject != "admin" || claims.Issuer != Issuer {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	secret := []byte("test-secret")
	valid, err := GenerateToken("admin", true, time.Hour, secret)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		token  string
		secret []byte
	}{
		{name: "密钥不匹配", token: valid, secret: []byte("other")},
		{name: "格式错误", token: "not-a-jwt", secret: secret},
		{name: "空密钥", token: valid, secret: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGenerateToken_EmptySecret(t *testing.T) {
	if _, err := GenerateToken("admin", true, time.Hour, nil); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("err = %v, want ErrEmptySecret", err)
	}
}
