package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/example/space-reservations/internal/persistence"
)

type userRepoStub struct {
	users map[string]persistence.User

	deleteErr error
}

func newUserRepoStub(seed ...persistence.User) *userRepoStub {
	stub := &userRepoStub{users: make(map[string]persistence.User)}
	for _, user := range seed {
		stub.users[user.ID] = user
	}
	return stub
}

func (s *userRepoStub) CreateUser(ctx context.Context, user persistence.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return persistence.ErrDuplicate
		}
	}
	user.CreatedAt = testNow
	user.UpdatedAt = testNow
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) UpdateUser(ctx context.Context, user persistence.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && existing.Email == user.Email {
			return persistence.ErrDuplicate
		}
	}
	user.UpdatedAt = testNow
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) GetUser(ctx context.Context, id string) (persistence.User, error) {
	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	for _, user := range s.users {
		if user.Email == strings.ToLower(email) {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *userRepoStub) ListUsers(ctx context.Context) ([]persistence.User, error) {
	out := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *userRepoStub) DeleteUser(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func newUserServiceForTest(repo *userRepoStub) *UserService {
	counter := 0
	idGenerator := func() string {
		counter++
		return fmt.Sprintf("generated-%d", counter)
	}
	hash := func(password string) (string, error) {
		return "hashed:" + password, nil
	}
	return NewUserService(repo, hash, idGenerator, func() time.Time { return testNow }, nil)
}

func validUserInput() UserInput {
	return UserInput{
		FirstName: "Ana",
		LastName:  "Marino",
		Email:     "ana@example.com",
		Password:  "correct horse",
		Role:      RoleRequester,
	}
}

func TestUserService_CreateUser(t *testing.T) {
	ctx := context.Background()
	admin := Principal{UserID: "admin-1", Role: RoleAdministrator}

	t.Run("persists a valid account", func(t *testing.T) {
		repo := newUserRepoStub()
		service := newUserServiceForTest(repo)

		input := validUserInput()
		input.Email = "Ana@Example.com"
		created, err := service.CreateUser(ctx, CreateUserParams{Principal: admin, Input: input})
		if err != nil {
			t.Fatalf("CreateUser returned error: %v", err)
		}
		if created.ID != "generated-1" {
			t.Fatalf("expected generated ID, got %q", created.ID)
		}
		if created.Email != "ana@example.com" {
			t.Fatalf("expected lower-cased email, got %q", created.Email)
		}
		if repo.users["generated-1"].PasswordHash != "hashed:correct horse" {
			t.Fatalf("expected stored hash, got %q", repo.users["generated-1"].PasswordHash)
		}
	})

	t.Run("forbids non-administrators", func(t *testing.T) {
		service := newUserServiceForTest(newUserRepoStub())

		_, err := service.CreateUser(ctx, CreateUserParams{
			Principal: Principal{UserID: "user-1", Role: RoleCoordinator},
			Input:     validUserInput(),
		})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("validates required fields", func(t *testing.T) {
		service := newUserServiceForTest(newUserRepoStub())

		_, err := service.CreateUser(ctx, CreateUserParams{Principal: admin, Input: UserInput{}})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"first_name", "last_name", "email", "password", "role"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected a %s field error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects a short password", func(t *testing.T) {
		service := newUserServiceForTest(newUserRepoStub())

		input := validUserInput()
		input.Password = "short"
		_, err := service.CreateUser(ctx, CreateUserParams{Principal: admin, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["password"]; !ok {
			t.Fatalf("expected a password field error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects an invalid email", func(t *testing.T) {
		service := newUserServiceForTest(newUserRepoStub())

		input := validUserInput()
		input.Email = "not-an-address"
		_, err := service.CreateUser(ctx, CreateUserParams{Principal: admin, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["email"]; !ok {
			t.Fatalf("expected an email field error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("maps duplicate emails to a conflict", func(t *testing.T) {
		repo := newUserRepoStub(persistence.User{ID: "user-1", Email: "ana@example.com"})
		service := newUserServiceForTest(repo)

		_, err := service.CreateUser(ctx, CreateUserParams{Principal: admin, Input: validUserInput()})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func TestUserService_UpdateUser(t *testing.T) {
	ctx := context.Background()
	admin := Principal{UserID: "admin-1", Role: RoleAdministrator}

	seed := persistence.User{
		ID: "user-1", FirstName: "Ana", LastName: "Marino",
		Email: "ana@example.com", PasswordHash: "hashed:original", Role: "requester",
	}

	t.Run("keeps the credential when the password is empty", func(t *testing.T) {
		repo := newUserRepoStub(seed)
		service := newUserServiceForTest(repo)

		input := validUserInput()
		input.Password = ""
		input.Role = RoleCoordinator
		updated, err := service.UpdateUser(ctx, UpdateUserParams{Principal: admin, UserID: "user-1", Input: input})
		if err != nil {
			t.Fatalf("UpdateUser returned error: %v", err)
		}
		if updated.Role != RoleCoordinator {
			t.Fatalf("expected role to change, got %q", updated.Role)
		}
		if repo.users["user-1"].PasswordHash != "hashed:original" {
			t.Fatalf("expected the stored hash to survive, got %q", repo.users["user-1"].PasswordHash)
		}
	})

	t.Run("replaces the credential when a password is given", func(t *testing.T) {
		repo := newUserRepoStub(seed)
		service := newUserServiceForTest(repo)

		input := validUserInput()
		input.Password = "fresh password"
		if _, err := service.UpdateUser(ctx, UpdateUserParams{Principal: admin, UserID: "user-1", Input: input}); err != nil {
			t.Fatalf("UpdateUser returned error: %v", err)
		}
		if repo.users["user-1"].PasswordHash != "hashed:fresh password" {
			t.Fatalf("expected a fresh hash, got %q", repo.users["user-1"].PasswordHash)
		}
	})

	t.Run("reports an unknown user", func(t *testing.T) {
		service := newUserServiceForTest(newUserRepoStub())

		_, err := service.UpdateUser(ctx, UpdateUserParams{Principal: admin, UserID: "user-99", Input: validUserInput()})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUserService_AccessControl(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepoStub(
		persistence.User{ID: "user-1", Email: "one@example.com", Role: "requester"},
		persistence.User{ID: "user-2", Email: "two@example.com", Role: "requester"},
	)
	service := newUserServiceForTest(repo)

	t.Run("users read their own account", func(t *testing.T) {
		user, err := service.GetUser(ctx, Principal{UserID: "user-1", Role: RoleRequester}, "user-1")
		if err != nil {
			t.Fatalf("GetUser returned error: %v", err)
		}
		if user.ID != "user-1" {
			t.Fatalf("unexpected user %q", user.ID)
		}
	})

	t.Run("users cannot read other accounts", func(t *testing.T) {
		_, err := service.GetUser(ctx, Principal{UserID: "user-1", Role: RoleRequester}, "user-2")
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("listing is administrator only", func(t *testing.T) {
		_, err := service.ListUsers(ctx, Principal{UserID: "user-1", Role: RoleCoordinator})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		users, err := service.ListUsers(ctx, Principal{UserID: "admin-1", Role: RoleAdministrator})
		if err != nil {
			t.Fatalf("ListUsers returned error: %v", err)
		}
		if len(users) != 2 {
			t.Fatalf("expected 2 users, got %d", len(users))
		}
	})
}

func TestUserService_DeleteUser(t *testing.T) {
	ctx := context.Background()
	admin := Principal{UserID: "admin-1", Role: RoleAdministrator}

	t.Run("removes an account", func(t *testing.T) {
		repo := newUserRepoStub(persistence.User{ID: "user-1", Email: "one@example.com"})
		service := newUserServiceForTest(repo)

		if err := service.DeleteUser(ctx, admin, "user-1"); err != nil {
			t.Fatalf("DeleteUser returned error: %v", err)
		}
	})

	t.Run("maps reservation owners to a conflict", func(t *testing.T) {
		repo := newUserRepoStub(persistence.User{ID: "user-1", Email: "one@example.com"})
		repo.deleteErr = persistence.ErrForeignKeyViolation
		service := newUserServiceForTest(repo)

		err := service.DeleteUser(ctx, admin, "user-1")
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}
