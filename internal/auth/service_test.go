package auth

import (
	"strconv"
	"testing"
	"time"

	"chat-gateway/internal/config"
	"chat-gateway/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

func testService(secret string) *Service {
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: []byte(secret), ExpiresIn: time.Hour},
	}
	return NewService(nil, cfg)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := testService("secret-a")

	token, err := svc.generateToken(&models.User{ID: 42, Username: "alice"})
	if err != nil {
		t.Fatalf("generateToken: %v", err)
	}

	userID, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if userID != 42 {
		t.Fatalf("userID = %d, want 42", userID)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc := testService("secret-a")

	if _, err := svc.VerifyToken("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	minter := testService("secret-a")
	verifier := testService("secret-b")

	token, err := minter.generateToken(&models.User{ID: 1})
	if err != nil {
		t.Fatalf("generateToken: %v", err)
	}

	if _, err := verifier.VerifyToken(token); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	svc := testService("secret-a")

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret-a"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.VerifyToken(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestVerifyTokenRejectsNonNumericSubject(t *testing.T) {
	svc := testService("secret-a")

	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret-a"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.VerifyToken(token); err == nil {
		t.Fatal("expected error for non-numeric subject")
	}
}

func TestValidateRegistrationRequest(t *testing.T) {
	svc := testService("secret-a")

	valid := func() *models.RegisterRequest {
		return &models.RegisterRequest{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "long-enough",
		}
	}

	if err := svc.validateRegistrationRequest(valid()); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*models.RegisterRequest)
	}{
		{"missing username", func(r *models.RegisterRequest) { r.Username = "" }},
		{"bad email", func(r *models.RegisterRequest) { r.Email = "not-an-email" }},
		{"short password", func(r *models.RegisterRequest) { r.Password = "short" }},
		{"short username", func(r *models.RegisterRequest) { r.Username = "ab" }},
		{"long username", func(r *models.RegisterRequest) { r.Username = string(make([]byte, 31)) }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := valid()
			c.mutate(req)
			if err := svc.validateRegistrationRequest(req); err == nil {
				t.Errorf("expected error for %s", c.name)
			}
		})
	}
}

func TestSubjectMatchesUser(t *testing.T) {
	svc := testService("secret-a")

	for _, id := range []int{1, 42, 9999} {
		token, err := svc.generateToken(&models.User{ID: id})
		if err != nil {
			t.Fatalf("generateToken: %v", err)
		}
		got, err := svc.VerifyToken(token)
		if err != nil {
			t.Fatalf("VerifyToken: %v", err)
		}
		if got != id {
			t.Errorf("round trip for %s: got %d", strconv.Itoa(id), got)
		}
	}
}
