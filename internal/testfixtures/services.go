package testfixtures

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/example/space-reservations/internal/application"
)

// testTokenSecret signs access tokens in tests. Never use outside tests.
var testTokenSecret = []byte("testfixtures-token-secret")

// ServiceFactory builds application services over a SQLite harness with a
// controllable clock and deterministic ID generation, so service tests can
// assert on identifiers and timestamps.
type ServiceFactory struct {
	Harness *SQLiteHarness
	Clock   *Clock
	IDs     *IDGenerator

	logger *slog.Logger
}

// NewServiceFactory constructs a factory whose clock starts at ReferenceTime.
func NewServiceFactory(harness *SQLiteHarness) *ServiceFactory {
	return &ServiceFactory{
		Harness: harness,
		Clock:   NewClock(ReferenceTime()),
		IDs:     NewIDGenerator("id"),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// HashPassword is the cheap deterministic password hasher used across the
// factory so tests avoid the cost of real argon2id derivation.
func HashPassword(password string) (string, error) {
	return fmt.Sprintf("plain:%s", password), nil
}

// VerifyPassword checks a hash produced by HashPassword.
func VerifyPassword(hashedPassword, password string) error {
	if hashedPassword != fmt.Sprintf("plain:%s", password) {
		return application.ErrInvalidCredentials
	}
	return nil
}

// AuthService returns an auth service backed by the harness user repository,
// verifying passwords hashed with HashPassword.
func (f *ServiceFactory) AuthService(tokenTTL time.Duration) *application.AuthService {
	return application.NewAuthService(f.Harness.Users, VerifyPassword, testTokenSecret, tokenTTL, f.Clock.NowFunc(), f.logger)
}

// UserService returns a user service hashing passwords with HashPassword.
func (f *ServiceFactory) UserService() *application.UserService {
	return application.NewUserService(f.Harness.Users, HashPassword, f.IDs.NextFunc(), f.Clock.NowFunc(), f.logger)
}

// SpaceService returns a space service backed by the harness repositories.
func (f *ServiceFactory) SpaceService() *application.SpaceService {
	return application.NewSpaceService(f.Harness.Spaces, f.Harness.Reservations, f.IDs.NextFunc(), f.Clock.NowFunc(), f.logger)
}

// ReservationService returns a reservation service backed by the harness
// repositories.
func (f *ServiceFactory) ReservationService() *application.ReservationService {
	return application.NewReservationService(f.Harness.Reservations, f.Harness.Spaces, f.Harness.Users, f.IDs.NextFunc(), f.Clock.NowFunc(), f.logger)
}
