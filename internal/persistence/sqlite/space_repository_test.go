package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/space-reservations/internal/persistence"
	"github.com/example/space-reservations/internal/testfixtures"
)

func TestSpaceRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)

	space := testfixtures.NewSpaceFixture().Persistence()

	if err := harness.Spaces.CreateSpace(ctx, space); err != nil {
		t.Fatalf("CreateSpace returned error: %v", err)
	}

	stored, err := harness.Spaces.GetSpace(ctx, space.ID)
	if err != nil {
		t.Fatalf("GetSpace returned error: %v", err)
	}
	if stored.Code != space.Code || stored.Kind != space.Kind {
		t.Fatalf("stored space does not match input: %+v", stored)
	}
	if stored.CreatedAt.IsZero() || stored.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set on insert")
	}

	stored.Name = "Renamed Hall"
	if err := harness.Spaces.UpdateSpace(ctx, stored); err != nil {
		t.Fatalf("UpdateSpace returned error: %v", err)
	}
	updated, err := harness.Spaces.GetSpace(ctx, space.ID)
	if err != nil {
		t.Fatalf("GetSpace returned error: %v", err)
	}
	if updated.Name != "Renamed Hall" {
		t.Fatalf("expected updated name, got %q", updated.Name)
	}

	if err := harness.Spaces.DeleteSpace(ctx, space.ID); err != nil {
		t.Fatalf("DeleteSpace returned error: %v", err)
	}
	if _, err := harness.Spaces.GetSpace(ctx, space.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSpaceRepository_Errors(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)

	t.Run("missing rows map to ErrNotFound", func(t *testing.T) {
		if _, err := harness.Spaces.GetSpace(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := harness.Spaces.DeleteSpace(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		missing := testfixtures.NewSpaceFixture(testfixtures.WithSpaceID("missing")).Persistence()
		if err := harness.Spaces.UpdateSpace(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate codes map to ErrDuplicate", func(t *testing.T) {
		first := testfixtures.NewSpaceFixture().Persistence()
		if err := harness.Spaces.CreateSpace(ctx, first); err != nil {
			t.Fatalf("CreateSpace returned error: %v", err)
		}
		second := testfixtures.NewSpaceFixture(testfixtures.WithSpaceCode(first.Code)).Persistence()
		if err := harness.Spaces.CreateSpace(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("unknown kinds map to ErrConstraintViolation", func(t *testing.T) {
		space := testfixtures.NewSpaceFixture().Persistence()
		space.Kind = "warehouse"
		if err := harness.Spaces.CreateSpace(ctx, space); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})

	t.Run("referenced spaces map to ErrForeignKeyViolation", func(t *testing.T) {
		space := testfixtures.NewSpaceFixture().Persistence()
		user := testfixtures.NewUserFixture().Persistence()
		if err := harness.Spaces.CreateSpace(ctx, space); err != nil {
			t.Fatalf("CreateSpace returned error: %v", err)
		}
		if err := harness.Users.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser returned error: %v", err)
		}
		reservation := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(space.ID),
			testfixtures.WithReservationUser(user.ID),
		).Persistence()
		if err := harness.Reservations.CreateReservation(ctx, reservation); err != nil {
			t.Fatalf("CreateReservation returned error: %v", err)
		}

		if err := harness.Spaces.DeleteSpace(ctx, space.ID); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})
}

func TestSpaceRepository_ListOrdersByCode(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)

	codes := []string{"E2/P1/E201", "E1/P1/E101", "E1/P2/E150"}
	for _, code := range codes {
		space := testfixtures.NewSpaceFixture(testfixtures.WithSpaceCode(code)).Persistence()
		if err := harness.Spaces.CreateSpace(ctx, space); err != nil {
			t.Fatalf("CreateSpace returned error: %v", err)
		}
	}

	spaces, err := harness.Spaces.ListSpaces(ctx)
	if err != nil {
		t.Fatalf("ListSpaces returned error: %v", err)
	}
	if len(spaces) != 3 {
		t.Fatalf("expected 3 spaces, got %d", len(spaces))
	}
	want := []string{"E1/P1/E101", "E1/P2/E150", "E2/P1/E201"}
	for i, space := range spaces {
		if space.Code != want[i] {
			t.Fatalf("expected code order %v, got %q at index %d", want, space.Code, i)
		}
	}
}
