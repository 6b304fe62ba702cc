package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/space-reservations/internal/booking"
	"github.com/example/space-reservations/internal/persistence"
	"github.com/example/space-reservations/internal/testfixtures"
)

// seedCatalog creates one space and one user to satisfy the reservation
// foreign keys and returns their IDs.
func seedCatalog(t *testing.T, harness *testfixtures.SQLiteHarness) (spaceID, userID string) {
	t.Helper()
	ctx := context.Background()

	space := testfixtures.NewSpaceFixture().Persistence()
	if err := harness.Spaces.CreateSpace(ctx, space); err != nil {
		t.Fatalf("CreateSpace returned error: %v", err)
	}
	user := testfixtures.NewUserFixture().Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	return space.ID, user.ID
}

// insertReservation writes a reservation row directly, bypassing the
// repository's conflict guard, so tests can stage states the guard would
// normally prevent.
func insertReservation(t *testing.T, harness *testfixtures.SQLiteHarness, reservation persistence.Reservation) {
	t.Helper()

	stamp := time.Now().UTC().Format(time.RFC3339)
	_, err := harness.Pool.DB().Exec(`
		INSERT INTO reservations (id, user_id, space_id, date, start_minute, end_minute, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		reservation.ID,
		reservation.UserID,
		reservation.SpaceID,
		reservation.Date.String(),
		reservation.Start.Minutes(),
		reservation.End.Minutes(),
		reservation.Description,
		reservation.Status,
		stamp,
		stamp,
	)
	if err != nil {
		t.Fatalf("failed to insert reservation %s: %v", reservation.ID, err)
	}
}

func TestReservationRepository_CreateReservation(t *testing.T) {
	ctx := context.Background()
	date := testfixtures.ReferenceDate()

	t.Run("round trips a pending reservation", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		spaceID, userID := seedCatalog(t, harness)

		fixture := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(9*60, 11*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, fixture.Persistence()); err != nil {
			t.Fatalf("CreateReservation returned error: %v", err)
		}

		stored, err := harness.Reservations.GetReservation(ctx, fixture.ID)
		if err != nil {
			t.Fatalf("GetReservation returned error: %v", err)
		}
		if stored.Status != booking.StatusPending {
			t.Fatalf("expected pending status, got %q", stored.Status)
		}
		if stored.Date != date || stored.Start != 9*60 || stored.End != 11*60 {
			t.Fatalf("stored window does not match input: %+v", stored)
		}
	})

	t.Run("rejects an overlap with a pending peer", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		spaceID, userID := seedCatalog(t, harness)

		first := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(9*60, 11*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, first.Persistence()); err != nil {
			t.Fatalf("CreateReservation returned error: %v", err)
		}

		second := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(10*60, 12*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, second.Persistence()); !errors.Is(err, persistence.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("allows back-to-back and rejected peers", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		spaceID, userID := seedCatalog(t, harness)

		first := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(9*60, 10*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, first.Persistence()); err != nil {
			t.Fatalf("CreateReservation returned error: %v", err)
		}

		adjacent := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(10*60, 11*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, adjacent.Persistence()); err != nil {
			t.Fatalf("expected back-to-back windows to be compatible, got %v", err)
		}

		if _, err := harness.Reservations.RejectReservation(ctx, first.ID, time.Now()); err != nil {
			t.Fatalf("RejectReservation returned error: %v", err)
		}
		replacement := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(9*60, 10*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, replacement.Persistence()); err != nil {
			t.Fatalf("rejected peers must not block, got %v", err)
		}
	})

	t.Run("other dates and spaces never conflict", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		spaceID, userID := seedCatalog(t, harness)
		otherSpaceID, _ := seedCatalog(t, harness)

		first := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(9*60, 11*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, first.Persistence()); err != nil {
			t.Fatalf("CreateReservation returned error: %v", err)
		}

		sameWindowOtherDay := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date.AddDays(1)),
			testfixtures.WithReservationWindow(9*60, 11*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, sameWindowOtherDay.Persistence()); err != nil {
			t.Fatalf("another date must not conflict, got %v", err)
		}

		sameWindowOtherSpace := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(otherSpaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(9*60, 11*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, sameWindowOtherSpace.Persistence()); err != nil {
			t.Fatalf("another space must not conflict, got %v", err)
		}
	})

	t.Run("unknown references map to ErrForeignKeyViolation", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)

		orphan := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace("missing-space"),
			testfixtures.WithReservationUser("missing-user"),
			testfixtures.WithReservationDate(date),
		)
		if err := harness.Reservations.CreateReservation(ctx, orphan.Persistence()); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("windows above the duration cap map to ErrConstraintViolation", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		spaceID, userID := seedCatalog(t, harness)

		tooLong := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(8*60, 17*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, tooLong.Persistence()); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})
}

func TestReservationRepository_ApproveReservation(t *testing.T) {
	ctx := context.Background()
	date := testfixtures.ReferenceDate()
	now := time.Now()

	t.Run("rejects every overlapping pending peer in one step", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		spaceID, userID := seedCatalog(t, harness)

		stage := func(id string, start, end booking.TimeOfDay) {
			insertReservation(t, harness, testfixtures.NewReservationFixture(
				testfixtures.WithReservationID(id),
				testfixtures.WithReservationSpace(spaceID),
				testfixtures.WithReservationUser(userID),
				testfixtures.WithReservationDate(date),
				testfixtures.WithReservationWindow(start, end),
			).Persistence())
		}
		stage("r-target", 10*60, 12*60)
		stage("r-overlap-a", 11*60, 13*60)
		stage("r-overlap-b", 9*60+30, 10*60+30)
		stage("r-adjacent", 12*60, 13*60)

		approved, displaced, err := harness.Reservations.ApproveReservation(ctx, "r-target", now)
		if err != nil {
			t.Fatalf("ApproveReservation returned error: %v", err)
		}
		if approved.Status != booking.StatusApproved {
			t.Fatalf("expected approved status, got %q", approved.Status)
		}

		got := make(map[string]bool, len(displaced))
		for _, reservation := range displaced {
			got[reservation.ID] = true
		}
		if len(got) != 2 || !got["r-overlap-a"] || !got["r-overlap-b"] {
			t.Fatalf("expected exactly the overlapping peers to be displaced, got %v", got)
		}

		for id, want := range map[string]booking.Status{
			"r-target":    booking.StatusApproved,
			"r-overlap-a": booking.StatusRejected,
			"r-overlap-b": booking.StatusRejected,
			"r-adjacent":  booking.StatusPending,
		} {
			stored, err := harness.Reservations.GetReservation(ctx, id)
			if err != nil {
				t.Fatalf("GetReservation(%s) returned error: %v", id, err)
			}
			if stored.Status != want {
				t.Fatalf("reservation %s: expected status %q, got %q", id, want, stored.Status)
			}
		}
	})

	t.Run("refuses a reservation that is not pending", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		spaceID, userID := seedCatalog(t, harness)

		fixture := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(9*60, 10*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, fixture.Persistence()); err != nil {
			t.Fatalf("CreateReservation returned error: %v", err)
		}
		if _, _, err := harness.Reservations.ApproveReservation(ctx, fixture.ID, now); err != nil {
			t.Fatalf("ApproveReservation returned error: %v", err)
		}

		if _, _, err := harness.Reservations.ApproveReservation(ctx, fixture.ID, now); !errors.Is(err, persistence.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("reports an unknown reservation", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)

		if _, _, err := harness.Reservations.ApproveReservation(ctx, "missing", now); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReservationRepository_RejectAndDelete(t *testing.T) {
	ctx := context.Background()
	date := testfixtures.ReferenceDate()
	now := time.Now()

	t.Run("reject leaves peers untouched", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		spaceID, userID := seedCatalog(t, harness)

		insertReservation(t, harness, testfixtures.NewReservationFixture(
			testfixtures.WithReservationID("r-target"),
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(10*60, 12*60),
		).Persistence())
		insertReservation(t, harness, testfixtures.NewReservationFixture(
			testfixtures.WithReservationID("r-overlap"),
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(11*60, 13*60),
		).Persistence())

		rejected, err := harness.Reservations.RejectReservation(ctx, "r-target", now)
		if err != nil {
			t.Fatalf("RejectReservation returned error: %v", err)
		}
		if rejected.Status != booking.StatusRejected {
			t.Fatalf("expected rejected status, got %q", rejected.Status)
		}

		peer, err := harness.Reservations.GetReservation(ctx, "r-overlap")
		if err != nil {
			t.Fatalf("GetReservation returned error: %v", err)
		}
		if peer.Status != booking.StatusPending {
			t.Fatalf("peer must stay pending after a reject, got %q", peer.Status)
		}
	})

	t.Run("delete removes only pending reservations", func(t *testing.T) {
		harness := testfixtures.NewSQLiteHarness(t)
		spaceID, userID := seedCatalog(t, harness)

		fixture := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(9*60, 10*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, fixture.Persistence()); err != nil {
			t.Fatalf("CreateReservation returned error: %v", err)
		}
		if err := harness.Reservations.DeletePendingReservation(ctx, fixture.ID); err != nil {
			t.Fatalf("DeletePendingReservation returned error: %v", err)
		}
		if _, err := harness.Reservations.GetReservation(ctx, fixture.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}

		approvedFixture := testfixtures.NewReservationFixture(
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(userID),
			testfixtures.WithReservationDate(date),
			testfixtures.WithReservationWindow(11*60, 12*60),
		)
		if err := harness.Reservations.CreateReservation(ctx, approvedFixture.Persistence()); err != nil {
			t.Fatalf("CreateReservation returned error: %v", err)
		}
		if _, _, err := harness.Reservations.ApproveReservation(ctx, approvedFixture.ID, now); err != nil {
			t.Fatalf("ApproveReservation returned error: %v", err)
		}
		if err := harness.Reservations.DeletePendingReservation(ctx, approvedFixture.ID); !errors.Is(err, persistence.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})
}

func TestReservationRepository_Listing(t *testing.T) {
	ctx := context.Background()
	date := testfixtures.ReferenceDate()
	harness := testfixtures.NewSQLiteHarness(t)

	classroom := testfixtures.NewSpaceFixture(testfixtures.WithSpaceKind("classroom")).Persistence()
	laboratory := testfixtures.NewSpaceFixture(testfixtures.WithSpaceKind("laboratory")).Persistence()
	if err := harness.Spaces.CreateSpace(ctx, classroom); err != nil {
		t.Fatalf("CreateSpace returned error: %v", err)
	}
	if err := harness.Spaces.CreateSpace(ctx, laboratory); err != nil {
		t.Fatalf("CreateSpace returned error: %v", err)
	}
	user := testfixtures.NewUserFixture().Persistence()
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	stage := func(id, spaceID string, day booking.Date, start, end booking.TimeOfDay, status booking.Status) {
		fixture := testfixtures.NewReservationFixture(
			testfixtures.WithReservationID(id),
			testfixtures.WithReservationSpace(spaceID),
			testfixtures.WithReservationUser(user.ID),
			testfixtures.WithReservationDate(day),
			testfixtures.WithReservationWindow(start, end),
			testfixtures.WithReservationStatus(status),
		)
		insertReservation(t, harness, fixture.Persistence())
	}

	stage("r-1", classroom.ID, date, 9*60, 10*60, booking.StatusPending)
	stage("r-2", classroom.ID, date, 10*60, 11*60, booking.StatusApproved)
	stage("r-3", classroom.ID, date.AddDays(1), 9*60, 10*60, booking.StatusRejected)
	stage("r-4", laboratory.ID, date, 9*60, 10*60, booking.StatusApproved)

	t.Run("lists a space and date ordered by start", func(t *testing.T) {
		reservations, err := harness.Reservations.ListForSpaceDate(ctx, classroom.ID, date, nil)
		if err != nil {
			t.Fatalf("ListForSpaceDate returned error: %v", err)
		}
		if len(reservations) != 2 || reservations[0].ID != "r-1" || reservations[1].ID != "r-2" {
			t.Fatalf("unexpected listing: %v", reservations)
		}
	})

	t.Run("narrows a space listing to a status set", func(t *testing.T) {
		reservations, err := harness.Reservations.ListForSpaceDate(ctx, classroom.ID, date, []booking.Status{booking.StatusApproved})
		if err != nil {
			t.Fatalf("ListForSpaceDate returned error: %v", err)
		}
		if len(reservations) != 1 || reservations[0].ID != "r-2" {
			t.Fatalf("unexpected listing: %v", reservations)
		}
	})

	t.Run("lists a date across spaces", func(t *testing.T) {
		reservations, err := harness.Reservations.ListForDate(ctx, date, []booking.Status{booking.StatusApproved})
		if err != nil {
			t.Fatalf("ListForDate returned error: %v", err)
		}
		if len(reservations) != 2 {
			t.Fatalf("expected 2 approved reservations, got %d", len(reservations))
		}
	})

	t.Run("filters by space kind via the catalog join", func(t *testing.T) {
		reservations, err := harness.Reservations.ListReservations(ctx, persistence.ReservationFilter{SpaceKind: "laboratory"})
		if err != nil {
			t.Fatalf("ListReservations returned error: %v", err)
		}
		if len(reservations) != 1 || reservations[0].ID != "r-4" {
			t.Fatalf("unexpected listing: %v", reservations)
		}
	})

	t.Run("filters by status and date range", func(t *testing.T) {
		reservations, err := harness.Reservations.ListReservations(ctx, persistence.ReservationFilter{
			Status:   booking.StatusRejected,
			FromDate: date.AddDays(1),
			ToDate:   date.AddDays(1),
		})
		if err != nil {
			t.Fatalf("ListReservations returned error: %v", err)
		}
		if len(reservations) != 1 || reservations[0].ID != "r-3" {
			t.Fatalf("unexpected listing: %v", reservations)
		}
	})

	t.Run("orders by date then start time", func(t *testing.T) {
		reservations, err := harness.Reservations.ListReservations(ctx, persistence.ReservationFilter{SpaceID: classroom.ID})
		if err != nil {
			t.Fatalf("ListReservations returned error: %v", err)
		}
		want := []string{"r-1", "r-2", "r-3"}
		if len(reservations) != len(want) {
			t.Fatalf("expected %d reservations, got %d", len(want), len(reservations))
		}
		for i, id := range want {
			if reservations[i].ID != id {
				t.Fatalf("expected order %v, got %q at index %d", want, reservations[i].ID, i)
			}
		}
	})
}
