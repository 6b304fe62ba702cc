package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/space-reservations/internal/persistence"
)

func newAuthServiceForTest(repo *userRepoStub, now *time.Time) *AuthService {
	verify := func(hashedPassword, password string) error {
		if hashedPassword != "hashed:"+password {
			return ErrInvalidCredentials
		}
		return nil
	}
	return NewAuthService(repo, verify, []byte("test-secret"), time.Hour, func() time.Time { return *now }, nil)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepoStub(persistence.User{
		ID: "user-1", FirstName: "Ana", LastName: "Marino",
		Email: "ana@example.com", PasswordHash: "hashed:correct horse", Role: "coordinator",
	})
	now := testNow
	service := newAuthServiceForTest(repo, &now)

	t.Run("issues a token for valid credentials", func(t *testing.T) {
		result, err := service.Login(ctx, LoginParams{Email: "Ana@Example.com", Password: "correct horse"})
		if err != nil {
			t.Fatalf("Login returned error: %v", err)
		}
		if result.Token == "" {
			t.Fatal("expected a signed token")
		}
		if !result.ExpiresAt.Equal(testNow.Add(time.Hour)) {
			t.Fatalf("unexpected expiry %s", result.ExpiresAt)
		}
		if result.User.ID != "user-1" || result.User.Role != RoleCoordinator {
			t.Fatalf("unexpected user in result: %+v", result.User)
		}

		principal, err := service.VerifyToken(ctx, result.Token)
		if err != nil {
			t.Fatalf("VerifyToken returned error: %v", err)
		}
		if principal.UserID != "user-1" || principal.Role != RoleCoordinator {
			t.Fatalf("unexpected principal: %+v", principal)
		}
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		_, err := service.Login(ctx, LoginParams{Email: "ana@example.com", Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects an unknown email", func(t *testing.T) {
		_, err := service.Login(ctx, LoginParams{Email: "ghost@example.com", Password: "correct horse"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects blank credentials", func(t *testing.T) {
		_, err := service.Login(ctx, LoginParams{})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_VerifyToken(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepoStub(persistence.User{
		ID: "user-1", Email: "ana@example.com", PasswordHash: "hashed:correct horse", Role: "requester",
	})
	now := testNow
	service := newAuthServiceForTest(repo, &now)

	login := func(t *testing.T) string {
		t.Helper()
		result, err := service.Login(ctx, LoginParams{Email: "ana@example.com", Password: "correct horse"})
		if err != nil {
			t.Fatalf("Login returned error: %v", err)
		}
		return result.Token
	}

	t.Run("rejects an empty token", func(t *testing.T) {
		_, err := service.VerifyToken(ctx, "  ")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := service.VerifyToken(ctx, "not.a.token")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		token := login(t)
		now = testNow.Add(2 * time.Hour)
		defer func() { now = testNow }()

		_, err := service.VerifyToken(ctx, token)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		claims := tokenClaims{
			Role: "requester",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				IssuedAt:  jwt.NewNumericDate(testNow),
				ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
			},
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		if _, err := service.VerifyToken(ctx, forged); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects a token carrying an unknown role", func(t *testing.T) {
		claims := tokenClaims{
			Role: "superuser",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				IssuedAt:  jwt.NewNumericDate(testNow),
				ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		if _, err := service.VerifyToken(ctx, token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects a token without a subject", func(t *testing.T) {
		claims := tokenClaims{
			Role: "requester",
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(testNow),
				ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		if _, err := service.VerifyToken(ctx, token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}
