package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ecocommute/carpool-api/internal/domain"
	idempotencyport "github.com/ecocommute/carpool-api/internal/ports/out/idempotency"
	membershipport "github.com/ecocommute/carpool-api/internal/ports/out/membershiprepo"
	positionport "github.com/ecocommute/carpool-api/internal/ports/out/positionstore"
	profileport "github.com/ecocommute/carpool-api/internal/ports/out/profilerepo"
	tripport "github.com/ecocommute/carpool-api/internal/ports/out/triprepo"
)

type CleanupFunc = func()

type TripRepoFactory func(t *testing.T) (tripport.Repository, CleanupFunc)
type MembershipRepoFactory func(t *testing.T) (membershipport.Repository, CleanupFunc)
type PositionStoreFactory func(t *testing.T) (positionport.Store, CleanupFunc)
type ProfileRepoFactory func(t *testing.T) (profileport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func newTrip(id domain.TripID, owner domain.SubjectID, scheduledAt time.Time) tripport.Trip {
	return tripport.Trip{
		ID:             id,
		Origin:         "Koramangala",
		Destination:    "Whitefield",
		ScheduledAt:    scheduledAt,
		VehicleType:    domain.VehicleTypePetrolCar,
		VehicleNumber:  "KA01AB1234",
		DistanceKM:     18.5,
		TotalSeats:     4,
		SeatsAvailable: 3,
		Owner:          owner,
		Status:         domain.TripStatusCreated,
		CreatedAt:      scheduledAt,
		UpdatedAt:      scheduledAt,
	}
}

func RunTripRepo(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	aID := domain.TripID(uuid.NewString())
	if err := repo.Create(ctx, newTrip(aID, "sub-a", now.Add(2*time.Hour))); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	got, err := repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ID != aID || got.Status != domain.TripStatusCreated || got.SeatsAvailable != 3 {
		t.Fatalf("unexpected trip: %#v", got)
	}

	// ID uniqueness.
	if err := repo.Create(ctx, newTrip(aID, "sub-a", now)); !errors.Is(err, tripport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Save persists ledger and confirmation flags.
	got.SeatsAvailable = 2
	got.OwnerConfirmedStart = true
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID after save: %v", err)
	}
	if got.SeatsAvailable != 2 || !got.OwnerConfirmedStart || got.RiderConfirmedStart {
		t.Fatalf("save not persisted: %#v", got)
	}

	// List ordering by ScheduledAt ascending.
	bID := domain.TripID(uuid.NewString())
	if err := repo.Create(ctx, newTrip(bID, "sub-b", now.Add(time.Hour))); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != bID || all[1].ID != aID {
		t.Fatalf("unexpected ordering: %#v", all)
	}

	// Delete, then misses report ErrNotFound.
	if err := repo.Delete(ctx, aID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, aID); !errors.Is(err, tripport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, aID); !errors.Is(err, tripport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
	if err := repo.Save(ctx, newTrip(domain.TripID(uuid.NewString()), "sub-x", now)); !errors.Is(err, tripport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound saving unknown trip, got %v", err)
	}
}

func RunMembershipRepo(t *testing.T, newRepo MembershipRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(2000, 0).UTC()
	trip := domain.TripID(uuid.NewString())
	other := domain.TripID(uuid.NewString())

	if err := repo.Create(ctx, membershipport.Membership{
		Trip:        trip,
		Subject:     "sub-b",
		PickupPoint: "Silk Board",
		JoinedAt:    now.Add(time.Minute),
	}); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	if err := repo.Create(ctx, membershipport.Membership{
		Trip:        trip,
		Subject:     "sub-a",
		PickupPoint: "Domlur",
		PickupNotes: "gate 2",
		JoinedAt:    now,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if err := repo.Create(ctx, membershipport.Membership{
		Trip:        other,
		Subject:     "sub-a",
		PickupPoint: "Domlur",
		JoinedAt:    now,
	}); err != nil {
		t.Fatalf("Create on other trip: %v", err)
	}

	// (Trip, Subject) uniqueness.
	if err := repo.Create(ctx, membershipport.Membership{
		Trip:        trip,
		Subject:     "sub-a",
		PickupPoint: "Domlur",
		JoinedAt:    now,
	}); !errors.Is(err, membershipport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	m, err := repo.Get(ctx, trip, "sub-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.PickupPoint != "Domlur" || m.PickupNotes != "gate 2" {
		t.Fatalf("unexpected membership: %#v", m)
	}
	if _, err := repo.Get(ctx, trip, "sub-z"); !errors.Is(err, membershipport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// ListByTrip orders by JoinedAt ascending and scopes to the trip.
	ms, err := repo.ListByTrip(ctx, trip)
	if err != nil {
		t.Fatalf("ListByTrip: %v", err)
	}
	if len(ms) != 2 || ms[0].Subject != "sub-a" || ms[1].Subject != "sub-b" {
		t.Fatalf("unexpected list: %#v", ms)
	}

	if err := repo.Delete(ctx, trip, "sub-b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, trip, "sub-b"); !errors.Is(err, membershipport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}

	// DeleteByTrip removes the remaining member and leaves other trips alone.
	n, err := repo.DeleteByTrip(ctx, trip)
	if err != nil || n != 1 {
		t.Fatalf("DeleteByTrip: n=%d err=%v", n, err)
	}
	if _, err := repo.Get(ctx, other, "sub-a"); err != nil {
		t.Fatalf("other trip membership lost: %v", err)
	}
	n, err = repo.DeleteByTrip(ctx, trip)
	if err != nil || n != 0 {
		t.Fatalf("repeat DeleteByTrip: n=%d err=%v", n, err)
	}
}

func RunPositionStore(t *testing.T, newStore PositionStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(3000, 0).UTC()
	t1 := domain.TripID(uuid.NewString())
	t2 := domain.TripID(uuid.NewString())

	if _, err := store.GetBySubject(ctx, "sub-a"); !errors.Is(err, positionport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Upsert(ctx, positionport.Record{
		Subject:        "sub-a",
		Trip:           t1,
		Latitude:       12.97,
		Longitude:      77.59,
		UpdatedAt:      now,
		SharingEnabled: true,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	rec, err := store.GetBySubject(ctx, "sub-a")
	if err != nil {
		t.Fatalf("GetBySubject: %v", err)
	}
	if rec.Trip != t1 || rec.Latitude != 12.97 || !rec.SharingEnabled {
		t.Fatalf("unexpected record: %#v", rec)
	}

	// Upsert for another trip replaces, never duplicates.
	if err := store.Upsert(ctx, positionport.Record{
		Subject:        "sub-a",
		Trip:           t2,
		Latitude:       13.0,
		Longitude:      77.6,
		UpdatedAt:      now.Add(time.Second),
		SharingEnabled: false,
	}); err != nil {
		t.Fatalf("Upsert retarget: %v", err)
	}
	rec, err = store.GetBySubject(ctx, "sub-a")
	if err != nil {
		t.Fatalf("GetBySubject after retarget: %v", err)
	}
	if rec.Trip != t2 || rec.SharingEnabled {
		t.Fatalf("retarget not applied: %#v", rec)
	}
	if n, err := store.DeleteByTrip(ctx, t1); err != nil || n != 0 {
		t.Fatalf("old trip still holds records: n=%d err=%v", n, err)
	}

	// DeleteByTrip removes every record targeting the trip.
	if err := store.Upsert(ctx, positionport.Record{
		Subject: "sub-b", Trip: t2, Latitude: 1, Longitude: 1, UpdatedAt: now, SharingEnabled: true,
	}); err != nil {
		t.Fatalf("Upsert sub-b: %v", err)
	}
	if err := store.Upsert(ctx, positionport.Record{
		Subject: "sub-c", Trip: t1, Latitude: 1, Longitude: 1, UpdatedAt: now, SharingEnabled: true,
	}); err != nil {
		t.Fatalf("Upsert sub-c: %v", err)
	}
	n, err := store.DeleteByTrip(ctx, t2)
	if err != nil || n != 2 {
		t.Fatalf("DeleteByTrip: n=%d err=%v", n, err)
	}
	if _, err := store.GetBySubject(ctx, "sub-a"); !errors.Is(err, positionport.ErrNotFound) {
		t.Fatalf("sub-a survived DeleteByTrip: %v", err)
	}
	if _, err := store.GetBySubject(ctx, "sub-c"); err != nil {
		t.Fatalf("sub-c lost in DeleteByTrip: %v", err)
	}

	// DeleteBySubject reports whether anything was removed.
	ok, err := store.DeleteBySubject(ctx, "sub-c")
	if err != nil || !ok {
		t.Fatalf("DeleteBySubject: ok=%v err=%v", ok, err)
	}
	ok, err = store.DeleteBySubject(ctx, "sub-c")
	if err != nil || ok {
		t.Fatalf("repeat DeleteBySubject: ok=%v err=%v", ok, err)
	}
}

func RunProfileRepo(t *testing.T, newRepo ProfileRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(4000, 0).UTC()
	if err := repo.Create(ctx, profileport.Profile{
		Subject:     "sub-a",
		DisplayName: "Asha Rao",
		PhoneNumber: "919876543210",
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, profileport.Profile{
		Subject:     "sub-a",
		DisplayName: "Dup",
		PhoneNumber: "919876543211",
		CreatedAt:   now,
		UpdatedAt:   now,
	}); !errors.Is(err, profileport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	p, err := repo.GetBySubject(ctx, "sub-a")
	if err != nil {
		t.Fatalf("GetBySubject: %v", err)
	}
	if p.DisplayName != "Asha Rao" || p.Verified {
		t.Fatalf("unexpected profile: %#v", p)
	}

	p.Verified = true
	p.UpdatedAt = now.Add(time.Minute)
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p, err = repo.GetBySubject(ctx, "sub-a")
	if err != nil || !p.Verified {
		t.Fatalf("save not persisted: %#v err=%v", p, err)
	}

	if _, err := repo.GetBySubject(ctx, "sub-z"); !errors.Is(err, profileport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Save(ctx, profileport.Profile{Subject: "sub-z"}); !errors.Is(err, profileport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound saving unknown profile, got %v", err)
	}
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Subject:  domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "POST /trips",
		BodyHash: "abc",
	}
	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"id":"t-1"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.StatusCode != 201 || string(got.Body) != `{"id":"t-1"}` {
		t.Fatalf("unexpected record: %+v", got)
	}

	// A different body hash is a different fingerprint.
	fp2 := fp
	fp2.BodyHash = "def"
	if _, ok, err := store.Get(ctx, fp2); err != nil || ok {
		t.Fatalf("expected miss for new hash, ok=%v err=%v", ok, err)
	}
}
