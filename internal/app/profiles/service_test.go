package profiles_test

import (
	"context"
	"errors"
	"testing"
	"time"

	memprofilerepo "github.com/ecocommute/carpool-api/internal/adapters/memory/profilerepo"
	"github.com/ecocommute/carpool-api/internal/app/profiles"
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

func newService() *profiles.Service {
	return profiles.NewService(memprofilerepo.NewRepo(), stubClock{now: time.Unix(1700000000, 0).UTC()})
}

func assertProfileError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var ae *profiles.Error
	if !errors.As(err, &ae) {
		t.Fatalf("err=%v (not a profiles.Error)", err)
	}
	if ae.Status != status || ae.Code != code {
		t.Fatalf("got %d/%s want %d/%s", ae.Status, ae.Code, status, code)
	}
}

func TestUpsert_CreateThenUpdate(t *testing.T) {
	t.Parallel()
	svc := newService()
	ctx := context.Background()

	p, err := svc.Upsert(ctx, "s1", profiles.UpsertInput{DisplayName: "  Asha   Rao ", PhoneNumber: "919876543210"})
	if err != nil {
		t.Fatalf("Upsert create: %v", err)
	}
	if p.DisplayName != "Asha Rao" || p.PhoneNumber != "919876543210" || p.Verified {
		t.Fatalf("profile=%+v", p)
	}

	p, err = svc.Upsert(ctx, "s1", profiles.UpsertInput{DisplayName: "Asha R", PhoneNumber: "919876543211"})
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if p.DisplayName != "Asha R" || p.PhoneNumber != "919876543211" {
		t.Fatalf("profile=%+v", p)
	}

	got, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != p {
		t.Fatalf("got=%+v want %+v", got, p)
	}
}

func TestUpsert_Validation(t *testing.T) {
	t.Parallel()
	svc := newService()
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "s1", profiles.UpsertInput{DisplayName: "   ", PhoneNumber: "919876543210"})
	assertProfileError(t, err, 422, "VALIDATION_ERROR")

	for _, phone := range []string{"", "9876543210", "9198765432", "91987654321012", "91abcdefghij"} {
		_, err := svc.Upsert(ctx, "s1", profiles.UpsertInput{DisplayName: "Asha", PhoneNumber: phone})
		assertProfileError(t, err, 422, "VALIDATION_ERROR")
	}
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()
	svc := newService()

	_, err := svc.Get(context.Background(), "nobody")
	assertProfileError(t, err, 404, "PROFILE_NOT_FOUND")

	_, err = svc.MarkVerified(context.Background(), "nobody")
	assertProfileError(t, err, 404, "PROFILE_NOT_FOUND")
}

func TestMayTransact(t *testing.T) {
	t.Parallel()
	svc := newService()
	ctx := context.Background()

	ok, err := svc.MayTransact(ctx, "s1")
	if err != nil || ok {
		t.Fatalf("no profile: ok=%v err=%v", ok, err)
	}

	if _, err := svc.Upsert(ctx, "s1", profiles.UpsertInput{DisplayName: "Asha", PhoneNumber: "919876543210"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	ok, err = svc.MayTransact(ctx, "s1")
	if err != nil || ok {
		t.Fatalf("unverified: ok=%v err=%v", ok, err)
	}

	p, err := svc.MarkVerified(ctx, "s1")
	if err != nil || !p.Verified {
		t.Fatalf("MarkVerified: p=%+v err=%v", p, err)
	}
	ok, err = svc.MayTransact(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("verified: ok=%v err=%v", ok, err)
	}

	// Re-verifying and re-upserting both leave the flag intact.
	if _, err := svc.MarkVerified(ctx, "s1"); err != nil {
		t.Fatalf("MarkVerified repeat: %v", err)
	}
	if _, err := svc.Upsert(ctx, "s1", profiles.UpsertInput{DisplayName: "Asha Rao", PhoneNumber: "919876543210"}); err != nil {
		t.Fatalf("Upsert after verify: %v", err)
	}
	ok, _ = svc.MayTransact(ctx, "s1")
	if !ok {
		t.Fatalf("upsert cleared verification")
	}
}
