package tracking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	memmembershiprepo "github.com/ecocommute/carpool-api/internal/adapters/memory/membershiprepo"
	mempositionstore "github.com/ecocommute/carpool-api/internal/adapters/memory/positionstore"
	memtriprepo "github.com/ecocommute/carpool-api/internal/adapters/memory/triprepo"
	"github.com/ecocommute/carpool-api/internal/app/tracking"
	"github.com/ecocommute/carpool-api/internal/domain"
	"github.com/ecocommute/carpool-api/internal/ports/out/membershiprepo"
	"github.com/ecocommute/carpool-api/internal/ports/out/triprepo"
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

type fixture struct {
	svc       *tracking.Service
	trips     *memtriprepo.Repo
	members   *memmembershiprepo.Repo
	positions *mempositionstore.Store
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	trips := memtriprepo.NewRepo()
	members := memmembershiprepo.NewRepo()
	positions := mempositionstore.NewStore()
	now := time.Unix(1700000000, 0).UTC()
	return &fixture{
		svc:       tracking.NewService(trips, members, positions, stubClock{now: now}, nil),
		trips:     trips,
		members:   members,
		positions: positions,
		now:       now,
	}
}

func (fx *fixture) seedTrip(t *testing.T, id domain.TripID, owner domain.SubjectID, riders ...domain.SubjectID) {
	t.Helper()
	ctx := context.Background()
	err := fx.trips.Create(ctx, triprepo.Trip{
		ID:             id,
		Origin:         "A",
		Destination:    "B",
		ScheduledAt:    fx.now,
		VehicleType:    domain.VehicleTypePetrolCar,
		VehicleNumber:  "N1",
		DistanceKM:     5,
		TotalSeats:     4,
		SeatsAvailable: 3 - len(riders),
		Owner:          owner,
		Status:         domain.TripStatusCreated,
		CreatedAt:      fx.now,
		UpdatedAt:      fx.now,
	})
	if err != nil {
		t.Fatalf("seed trip: %v", err)
	}
	for _, r := range riders {
		err := fx.members.Create(ctx, membershiprepo.Membership{
			Trip:        id,
			Subject:     r,
			PickupPoint: "X",
			JoinedAt:    fx.now,
		})
		if err != nil {
			t.Fatalf("seed member: %v", err)
		}
	}
}

func assertTrackingError(t *testing.T, err error, status int, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %s", code)
	}
	var ae *tracking.Error
	if !errors.As(err, &ae) {
		t.Fatalf("err=%v (not a tracking.Error)", err)
	}
	if ae.Status != status || ae.Code != code {
		t.Fatalf("got %d/%s want %d/%s", ae.Status, ae.Code, status, code)
	}
}

func TestReportAndRead_RoundTrip(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()
	fx.seedTrip(t, "t1", "owner", "rider")

	pos, err := fx.svc.Report(ctx, "rider", "t1", 12.9716, 77.5946, true)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if pos.Subject != "rider" || pos.Latitude != 12.9716 || pos.Longitude != 77.5946 {
		t.Fatalf("pos=%+v", pos)
	}
	if !pos.UpdatedAt.Equal(fx.now) {
		t.Fatalf("updatedAt=%v", pos.UpdatedAt)
	}

	got, err := fx.svc.GetPosition(ctx, "owner", "rider", "t1")
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if got != pos {
		t.Fatalf("got=%+v want %+v", got, pos)
	}
}

func TestReport_Gates(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()
	fx.seedTrip(t, "t1", "owner", "rider")

	_, err := fx.svc.Report(ctx, "rider", "nope", 1, 1, true)
	assertTrackingError(t, err, 404, "TRIP_NOT_FOUND")

	_, err = fx.svc.Report(ctx, "stranger", "t1", 1, 1, true)
	assertTrackingError(t, err, 403, "NOT_A_MEMBER")

	// The owner holds the implicit seat, not a membership, so owners cannot
	// report either.
	_, err = fx.svc.Report(ctx, "owner", "t1", 1, 1, true)
	assertTrackingError(t, err, 403, "NOT_A_MEMBER")

	for _, c := range []struct{ lat, lon float64 }{
		{91, 0}, {-91, 0}, {0, 181}, {0, -181},
	} {
		_, err = fx.svc.Report(ctx, "rider", "t1", c.lat, c.lon, true)
		assertTrackingError(t, err, 422, "INVALID_COORDINATE")
	}

	// Boundary values are valid.
	if _, err := fx.svc.Report(ctx, "rider", "t1", 90, -180, true); err != nil {
		t.Fatalf("boundary report: %v", err)
	}
}

func TestGetPosition_UniformNotFound(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()
	fx.seedTrip(t, "t1", "owner", "rider")
	fx.seedTrip(t, "t2", "owner2", "rider")

	// Never shared.
	_, err := fx.svc.GetPosition(ctx, "owner", "rider", "t1")
	assertTrackingError(t, err, 404, "POSITION_NOT_FOUND")

	// Sharing disabled.
	if _, err := fx.svc.Report(ctx, "rider", "t1", 1, 1, false); err != nil {
		t.Fatalf("Report: %v", err)
	}
	_, err = fx.svc.GetPosition(ctx, "owner", "rider", "t1")
	assertTrackingError(t, err, 404, "POSITION_NOT_FOUND")

	// Sharing for a different trip.
	if _, err := fx.svc.Report(ctx, "rider", "t2", 1, 1, true); err != nil {
		t.Fatalf("Report: %v", err)
	}
	_, err = fx.svc.GetPosition(ctx, "owner", "rider", "t1")
	assertTrackingError(t, err, 404, "POSITION_NOT_FOUND")
}

func TestGetPosition_OwnerOnly(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()
	fx.seedTrip(t, "t1", "owner", "rider", "other")

	if _, err := fx.svc.Report(ctx, "rider", "t1", 1, 1, true); err != nil {
		t.Fatalf("Report: %v", err)
	}

	// Another member of the same trip still may not look.
	_, err := fx.svc.GetPosition(ctx, "other", "rider", "t1")
	assertTrackingError(t, err, 403, "FORBIDDEN")

	_, err = fx.svc.GetPosition(ctx, "owner", "rider", "nope")
	assertTrackingError(t, err, 404, "TRIP_NOT_FOUND")
}

func TestReport_RetargetsSingleRecord(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()
	fx.seedTrip(t, "t1", "owner1", "rider")
	fx.seedTrip(t, "t2", "owner2", "rider")

	if _, err := fx.svc.Report(ctx, "rider", "t1", 1, 1, true); err != nil {
		t.Fatalf("Report t1: %v", err)
	}
	if _, err := fx.svc.Report(ctx, "rider", "t2", 2, 2, true); err != nil {
		t.Fatalf("Report t2: %v", err)
	}

	// One record per subject: the old trip's owner lost visibility.
	_, err := fx.svc.GetPosition(ctx, "owner1", "rider", "t1")
	assertTrackingError(t, err, 404, "POSITION_NOT_FOUND")

	got, err := fx.svc.GetPosition(ctx, "owner2", "rider", "t2")
	if err != nil {
		t.Fatalf("GetPosition t2: %v", err)
	}
	if got.Latitude != 2 || got.Longitude != 2 {
		t.Fatalf("got=%+v", got)
	}
}

func TestStop_IsIdempotent(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()
	fx.seedTrip(t, "t1", "owner", "rider")

	if err := fx.svc.Stop(ctx, "rider"); err != nil {
		t.Fatalf("Stop without record: %v", err)
	}

	if _, err := fx.svc.Report(ctx, "rider", "t1", 1, 1, true); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if err := fx.svc.Stop(ctx, "rider"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	_, err := fx.svc.GetPosition(ctx, "owner", "rider", "t1")
	assertTrackingError(t, err, 404, "POSITION_NOT_FOUND")

	if err := fx.svc.Stop(ctx, "rider"); err != nil {
		t.Fatalf("Stop repeat: %v", err)
	}
}

func TestCascadeOnCompletion_DropsOnlyTargetTrip(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()
	fx.seedTrip(t, "t1", "owner1", "r1", "r2")
	fx.seedTrip(t, "t2", "owner2", "r3")

	for _, c := range []struct {
		subject domain.SubjectID
		trip    domain.TripID
	}{
		{"r1", "t1"}, {"r2", "t1"}, {"r3", "t2"},
	} {
		if _, err := fx.svc.Report(ctx, c.subject, c.trip, 1, 1, true); err != nil {
			t.Fatalf("Report %s: %v", c.subject, err)
		}
	}

	if err := fx.svc.CascadeOnCompletion(ctx, "t1"); err != nil {
		t.Fatalf("CascadeOnCompletion: %v", err)
	}

	for _, subject := range []domain.SubjectID{"r1", "r2"} {
		_, err := fx.svc.GetPosition(ctx, "owner1", subject, "t1")
		assertTrackingError(t, err, 404, "POSITION_NOT_FOUND")
	}
	if _, err := fx.svc.GetPosition(ctx, "owner2", "r3", "t2"); err != nil {
		t.Fatalf("t2 position lost in cascade: %v", err)
	}

	// Cascading again is harmless.
	if err := fx.svc.CascadeOnCompletion(ctx, "t1"); err != nil {
		t.Fatalf("repeat cascade: %v", err)
	}
}
