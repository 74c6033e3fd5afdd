package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"weather_station/internal/models"
	"weather_station/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// memOperators hands out admin to the first operator, like the sqlite repo.
type memOperators struct {
	byName map[string]models.Operator
	err    error
}

func newMemOperators() *memOperators {
	return &memOperators{byName: map[string]models.Operator{}}
}

func (m *memOperators) Create(ctx context.Context, username, hash string) (models.Operator, error) {
	if m.err != nil {
		return models.Operator{}, m.err
	}
	if _, ok := m.byName[username]; ok {
		return models.Operator{}, repository.ErrOperatorExists
	}
	role := models.RoleViewer
	if len(m.byName) == 0 {
		role = models.RoleAdmin
	}
	op := models.Operator{ID: len(m.byName) + 1, Username: username, PasswordHash: hash, Role: role}
	m.byName[username] = op
	return op, nil
}

func (m *memOperators) GetByUsername(ctx context.Context, username string) (*models.Operator, error) {
	if m.err != nil {
		return nil, m.err
	}
	op, ok := m.byName[username]
	if !ok {
		return nil, nil
	}
	return &op, nil
}

const testSigningKey = "test-signing-key"

func TestAuthService_RolesTravelInTheToken(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(newMemOperators(), testSigningKey, time.Hour)

	owner, err := svc.SignUp(ctx, "ana", "pw-ana")
	if err != nil {
		t.Fatalf("SignUp owner: %v", err)
	}
	guest, err := svc.SignUp(ctx, " luis ", "pw-luis")
	if err != nil {
		t.Fatalf("SignUp guest: %v", err)
	}
	if owner.Role != models.RoleAdmin || guest.Role != models.RoleViewer {
		t.Fatalf("roles = %s/%s, want admin/viewer", owner.Role, guest.Role)
	}
	if guest.PasswordHash == "pw-luis" {
		t.Fatal("password stored in clear")
	}

	for _, tc := range []struct {
		user, pass string
		want       Principal
	}{
		{"ana", "pw-ana", Principal{OperatorID: owner.ID, Username: "ana", Role: models.RoleAdmin}},
		{"luis", "pw-luis", Principal{OperatorID: guest.ID, Username: "luis", Role: models.RoleViewer}},
	} {
		tok, err := svc.GenerateToken(ctx, tc.user, tc.pass)
		if err != nil {
			t.Fatalf("GenerateToken(%s): %v", tc.user, err)
		}
		got, err := svc.ParseToken(tok)
		if err != nil {
			t.Fatalf("ParseToken(%s): %v", tc.user, err)
		}
		if got != tc.want {
			t.Fatalf("principal = %+v, want %+v", got, tc.want)
		}
	}
}

func TestAuthService_SignUpErrors(t *testing.T) {
	ctx := context.Background()
	repo := newMemOperators()
	svc := NewAuthService(repo, testSigningKey, 0)
	if svc.tokenTTL != defaultTokenTTL {
		t.Fatalf("ttl = %v, want default %v", svc.tokenTTL, defaultTokenTTL)
	}

	if _, err := svc.SignUp(ctx, "ana", "   "); err == nil {
		t.Fatal("expected an error for a blank password")
	}
	if _, err := svc.SignUp(ctx, "  ", "pw"); err == nil {
		t.Fatal("expected an error for a blank username")
	}
	if len(repo.byName) != 0 {
		t.Fatalf("rejected sign-ups reached the repository: %v", repo.byName)
	}

	if _, err := svc.SignUp(ctx, "ana", "pw"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := svc.SignUp(ctx, "ana", "other"); !errors.Is(err, ErrOperatorExists) {
		t.Fatalf("duplicate sign-up err = %v, want ErrOperatorExists", err)
	}
}

func TestAuthService_GenerateTokenErrors(t *testing.T) {
	ctx := context.Background()
	repo := newMemOperators()
	svc := NewAuthService(repo, testSigningKey, time.Hour)
	if _, err := svc.SignUp(ctx, "ana", "right"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if _, err := svc.GenerateToken(ctx, "ghost", "x"); !errors.Is(err, ErrOperatorNotFound) {
		t.Fatalf("unknown operator err = %v", err)
	}
	if _, err := svc.GenerateToken(ctx, "ana", "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("wrong password err = %v", err)
	}

	repo.err = errors.New("db down")
	if _, err := svc.GenerateToken(ctx, "ana", "right"); err == nil {
		t.Fatal("expected the repository error")
	}
}

func TestAuthService_ParseTokenRejects(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewAuthService(newMemOperators(), testSigningKey, time.Minute)
	svc.now = func() time.Time { return now }

	sign := func(key string, c Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &c).SignedString([]byte(key))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := func() Claims {
		return Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    tokenIssuer,
				Subject:   "3",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
			Username: "ana",
			Role:     models.RoleAdmin,
		}
	}

	if _, err := svc.ParseToken(sign(testSigningKey, valid())); err != nil {
		t.Fatalf("baseline token rejected: %v", err)
	}

	cases := map[string]string{
		"garbage":       "not-a-jwt",
		"other key":     sign("other-key", valid()),
		"other issuer":  sign(testSigningKey, func() Claims { c := valid(); c.Issuer = "furnace"; return c }()),
		"expired":       sign(testSigningKey, func() Claims { c := valid(); c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Second)); return c }()),
		"no expiry":     sign(testSigningKey, func() Claims { c := valid(); c.ExpiresAt = nil; return c }()),
		"bad subject":   sign(testSigningKey, func() Claims { c := valid(); c.Subject = "ana"; return c }()),
		"unknown role":  sign(testSigningKey, func() Claims { c := valid(); c.Role = "root"; return c }()),
		"hs512 instead": func() string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodHS512, valid()).SignedString([]byte(testSigningKey))
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			return s
		}(),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestAuthService_TokenLifetimeFollowsTTL(t *testing.T) {
	ctx := context.Background()
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewAuthService(newMemOperators(), testSigningKey, 10*time.Minute)
	svc.now = func() time.Time { return issued }
	if _, err := svc.SignUp(ctx, "ana", "pw"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	tok, err := svc.GenerateToken(ctx, "ana", "pw")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(9 * time.Minute) }
	if _, err := svc.ParseToken(tok); err != nil {
		t.Fatalf("token rejected before expiry: %v", err)
	}
	svc.now = func() time.Time { return issued.Add(11 * time.Minute) }
	if _, err := svc.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token accepted after expiry: %v", err)
	}
}
