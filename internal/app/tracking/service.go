package tracking

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ecocommute/carpool-api/internal/domain"
	"github.com/ecocommute/carpool-api/internal/platform/metrics"
	clockport "github.com/ecocommute/carpool-api/internal/ports/out/clock"
	"github.com/ecocommute/carpool-api/internal/ports/out/membershiprepo"
	"github.com/ecocommute/carpool-api/internal/ports/out/positionstore"
	"github.com/ecocommute/carpool-api/internal/ports/out/triprepo"
)

// Service owns the ephemeral position cache and the access gateway in front
// of it. Reports are consent-gated and membership-gated; reads are
// owner-only and deliberately cannot distinguish "never shared", "sharing
// disabled" and "sharing for a different trip".
type Service struct {
	trips       triprepo.Repository
	memberships membershiprepo.Repository
	positions   positionstore.Store
	clk         clockport.Clock
	log         *slog.Logger
}

func NewService(trips triprepo.Repository, memberships membershiprepo.Repository, positions positionstore.Store, clk clockport.Clock, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		trips:       trips,
		memberships: memberships,
		positions:   positions,
		clk:         clk,
		log:         log,
	}
}

// Report upserts the subject's single system-wide position record. A report
// for a different trip silently re-targets the existing record: a subject
// can usefully share for only one trip at a time. Owners do not report.
func (s *Service) Report(ctx context.Context, subject domain.SubjectID, tripID domain.TripID, lat, lon float64, sharingEnabled bool) (domain.Position, error) {
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			metrics.PositionReport("trip_not_found")
			return domain.Position{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return domain.Position{}, err
	}
	if _, err := s.memberships.Get(ctx, tripID, subject); err != nil {
		if errors.Is(err, membershiprepo.ErrNotFound) {
			metrics.PositionReport("not_a_member")
			return domain.Position{}, &Error{Status: 403, Code: "NOT_A_MEMBER", Message: "not a member of this trip"}
		}
		return domain.Position{}, err
	}
	if !domain.ValidCoordinate(lat, lon) {
		metrics.PositionReport("invalid_coordinate")
		return domain.Position{}, &Error{Status: 422, Code: "INVALID_COORDINATE", Message: "coordinates out of range", Details: map[string]any{"latitude": "[-90,90]", "longitude": "[-180,180]"}}
	}

	rec := positionstore.Record{
		Subject:        subject,
		Trip:           tripID,
		Latitude:       lat,
		Longitude:      lon,
		UpdatedAt:      s.clk.Now(),
		SharingEnabled: sharingEnabled,
	}
	if err := s.positions.Upsert(ctx, rec); err != nil {
		return domain.Position{}, err
	}
	metrics.PositionReport("ok")
	return domain.Position{
		Subject:   rec.Subject,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// Stop deletes the subject's position record. Calling it without an active
// record is a no-op.
func (s *Service) Stop(ctx context.Context, subject domain.SubjectID) error {
	deleted, err := s.positions.DeleteBySubject(ctx, subject)
	if err != nil {
		return err
	}
	if deleted {
		s.log.Info("position sharing stopped", "subject", string(subject))
	}
	return nil
}

// GetPosition is the polling read. Only the trip owner may look, and a
// missing record, a record targeting another trip, and a record with sharing
// disabled are all reported as the same NOT_FOUND. Staleness is the
// caller's problem: no freshness threshold is applied.
func (s *Service) GetPosition(ctx context.Context, viewer, subject domain.SubjectID, tripID domain.TripID) (domain.Position, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			metrics.PositionRead("trip_not_found")
			return domain.Position{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return domain.Position{}, err
	}
	if t.Owner != viewer {
		metrics.PositionRead("forbidden")
		return domain.Position{}, &Error{Status: 403, Code: "FORBIDDEN", Message: "only the trip owner can view positions"}
	}

	rec, err := s.positions.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, positionstore.ErrNotFound) {
			metrics.PositionRead("not_found")
			return domain.Position{}, notFound()
		}
		return domain.Position{}, err
	}
	if rec.Trip != tripID || !rec.SharingEnabled {
		metrics.PositionRead("not_found")
		return domain.Position{}, notFound()
	}

	metrics.PositionRead("ok")
	return domain.Position{
		Subject:   rec.Subject,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// CascadeOnCompletion drops every position record targeting the trip. The
// rides service calls this synchronously on the Completed transition and on
// deletion of a Created trip.
func (s *Service) CascadeOnCompletion(ctx context.Context, trip domain.TripID) error {
	n, err := s.positions.DeleteByTrip(ctx, trip)
	if err != nil {
		return err
	}
	if n > 0 {
		metrics.CascadeDeleted(n)
		s.log.Info("position cascade", "trip", string(trip), "deleted", n)
	}
	return nil
}

func notFound() *Error {
	// Missing record, mismatched trip and disabled sharing must be
	// indistinguishable to the viewer.
	return &Error{Status: 404, Code: "POSITION_NOT_FOUND", Message: "position not available"}
}
