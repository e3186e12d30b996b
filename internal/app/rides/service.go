package rides

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ecocommute/carpool-api/internal/domain"
	"github.com/ecocommute/carpool-api/internal/platform/keylock"
	"github.com/ecocommute/carpool-api/internal/platform/metrics"
	clockport "github.com/ecocommute/carpool-api/internal/ports/out/clock"
	"github.com/ecocommute/carpool-api/internal/ports/out/membershiprepo"
	"github.com/ecocommute/carpool-api/internal/ports/out/triprepo"
)

// PositionCleaner removes every position record targeting a trip. The rides
// service invokes it synchronously when a trip reaches Completed, and when a
// Created trip is deleted.
type PositionCleaner interface {
	CascadeOnCompletion(ctx context.Context, trip domain.TripID) error
}

// Service owns the seat ledger and the two-party confirmation state machine.
//
// Every mutation of a trip's combined (status, flags, seats) state runs
// inside that trip's exclusive critical section, so concurrent joins cannot
// both consume the last seat and the per-phase conjunction check-and-set is
// atomic. Different trips never contend.
type Service struct {
	trips       triprepo.Repository
	memberships membershiprepo.Repository
	positions   PositionCleaner
	clk         clockport.Clock

	locks     *keylock.KeyLock
	newTripID func() domain.TripID
}

func NewService(trips triprepo.Repository, memberships membershiprepo.Repository, positions PositionCleaner, clk clockport.Clock) *Service {
	return &Service{
		trips:       trips,
		memberships: memberships,
		positions:   positions,
		clk:         clk,
		locks:       keylock.New(),
		newTripID: func() domain.TripID {
			return domain.TripID(uuid.NewString())
		},
	}
}

// SetNewTripIDForTest overrides trip ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTripIDForTest(fn func() domain.TripID) {
	if fn != nil {
		s.newTripID = fn
	}
}

func (s *Service) Create(ctx context.Context, owner domain.SubjectID, in CreateTripInput) (domain.TripSummary, error) {
	origin := domain.NormalizeLabel(in.Origin)
	destination := domain.NormalizeLabel(in.Destination)
	if origin == "" {
		return domain.TripSummary{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid origin", Details: map[string]any{"origin": "must be non-empty"}}
	}
	if destination == "" {
		return domain.TripSummary{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid destination", Details: map[string]any{"destination": "must be non-empty"}}
	}
	vehicleNumber := domain.NormalizeVehicleNumber(in.VehicleNumber)
	if vehicleNumber == "" {
		return domain.TripSummary{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid vehicleNumber", Details: map[string]any{"vehicleNumber": "must be non-empty"}}
	}
	switch in.VehicleType {
	case domain.VehicleTypePetrolCar, domain.VehicleTypeBike:
	default:
		return domain.TripSummary{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid vehicleType", Details: map[string]any{"vehicleType": "must be CAR_PETROL or BIKE"}}
	}
	if in.DistanceKM <= 0 {
		return domain.TripSummary{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid distanceKm", Details: map[string]any{"distanceKm": "must be > 0"}}
	}
	if in.TotalSeats < 1 {
		return domain.TripSummary{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid totalSeats", Details: map[string]any{"totalSeats": "must be >= 1"}}
	}

	now := s.clk.Now()
	t := triprepo.Trip{
		ID:            s.newTripID(),
		Origin:        origin,
		Destination:   destination,
		ScheduledAt:   in.ScheduledAt.UTC(),
		VehicleType:   in.VehicleType,
		VehicleNumber: vehicleNumber,
		DistanceKM:    in.DistanceKM,
		TotalSeats:    in.TotalSeats,
		// The owner occupies one seat from the start.
		SeatsAvailable: in.TotalSeats - 1,
		Owner:          owner,
		Status:         domain.TripStatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.trips.Create(ctx, t); err != nil {
		if errors.Is(err, triprepo.ErrAlreadyExists) {
			return domain.TripSummary{}, &Error{Status: 409, Code: "TRIP_ID_CONFLICT", Message: "trip id conflict"}
		}
		return domain.TripSummary{}, err
	}
	metrics.TripTransition(string(domain.TripStatusCreated))
	return toSummary(t), nil
}

// Delete removes a Created trip. Owner-only; trips with members must be
// emptied first. Any position records already targeting the trip are
// cascaded away.
func (s *Service) Delete(ctx context.Context, caller domain.SubjectID, tripID domain.TripID) error {
	unlock := s.locks.Lock(string(tripID))
	defer unlock()

	t, err := s.getTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if t.Owner != caller {
		return &Error{Status: 403, Code: "FORBIDDEN", Message: "only the trip owner can delete the trip"}
	}
	if t.Status != domain.TripStatusCreated {
		return &Error{Status: 409, Code: "RIDE_NOT_JOINABLE", Message: "a started or completed trip cannot be deleted"}
	}
	members, err := s.memberships.ListByTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if len(members) > 0 {
		return &Error{Status: 409, Code: "RIDE_HAS_MEMBERS", Message: "trip still has members", Details: map[string]any{"members": len(members)}}
	}

	if err := s.positions.CascadeOnCompletion(ctx, tripID); err != nil {
		return err
	}
	if _, err := s.memberships.DeleteByTrip(ctx, tripID); err != nil {
		return err
	}
	if err := s.trips.Delete(ctx, tripID); err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return err
	}
	return nil
}

func (s *Service) Join(ctx context.Context, subject domain.SubjectID, tripID domain.TripID, in JoinInput) (domain.MembershipSummary, error) {
	pickup := domain.NormalizeLabel(in.PickupPoint)
	if pickup == "" {
		return domain.MembershipSummary{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid pickupPoint", Details: map[string]any{"pickupPoint": "must be non-empty"}}
	}

	unlock := s.locks.Lock(string(tripID))
	defer unlock()

	t, err := s.getTrip(ctx, tripID)
	if err != nil {
		metrics.SeatOperation("join", "error")
		return domain.MembershipSummary{}, err
	}
	if t.Status != domain.TripStatusCreated {
		metrics.SeatOperation("join", "not_joinable")
		return domain.MembershipSummary{}, &Error{Status: 409, Code: "RIDE_NOT_JOINABLE", Message: "trip is not open for joining"}
	}
	if t.Owner == subject {
		// The owner occupies the implicit seat and never holds a membership.
		metrics.SeatOperation("join", "already_member")
		return domain.MembershipSummary{}, &Error{Status: 409, Code: "ALREADY_MEMBER", Message: "the owner occupies the implicit seat"}
	}
	if _, err := s.memberships.Get(ctx, tripID, subject); err == nil {
		metrics.SeatOperation("join", "already_member")
		return domain.MembershipSummary{}, &Error{Status: 409, Code: "ALREADY_MEMBER", Message: "already joined this trip"}
	} else if !errors.Is(err, membershiprepo.ErrNotFound) {
		return domain.MembershipSummary{}, err
	}
	if t.SeatsAvailable == 0 {
		metrics.SeatOperation("join", "no_seats")
		return domain.MembershipSummary{}, &Error{Status: 409, Code: "NO_SEATS_AVAILABLE", Message: "no seats available"}
	}

	m := membershiprepo.Membership{
		Trip:        tripID,
		Subject:     subject,
		PickupPoint: pickup,
		PickupNotes: domain.NormalizeLabel(in.PickupNotes),
		JoinedAt:    s.clk.Now(),
	}
	if err := s.memberships.Create(ctx, m); err != nil {
		if errors.Is(err, membershiprepo.ErrAlreadyExists) {
			return domain.MembershipSummary{}, &Error{Status: 409, Code: "ALREADY_MEMBER", Message: "already joined this trip"}
		}
		return domain.MembershipSummary{}, err
	}

	t.SeatsAvailable--
	t.UpdatedAt = s.clk.Now()
	if err := s.trips.Save(ctx, t); err != nil {
		// Roll the membership back so a rejected join leaves no partial state.
		_ = s.memberships.Delete(ctx, tripID, subject)
		return domain.MembershipSummary{}, err
	}

	metrics.SeatOperation("join", "ok")
	return toMembershipSummary(m), nil
}

// Leave cancels a membership. Permitted only while the trip is still
// Created: cancellation after start is not supported.
func (s *Service) Leave(ctx context.Context, subject domain.SubjectID, tripID domain.TripID) error {
	unlock := s.locks.Lock(string(tripID))
	defer unlock()

	t, err := s.getTrip(ctx, tripID)
	if err != nil {
		metrics.SeatOperation("leave", "error")
		return err
	}
	if _, err := s.memberships.Get(ctx, tripID, subject); err != nil {
		if errors.Is(err, membershiprepo.ErrNotFound) {
			metrics.SeatOperation("leave", "not_a_member")
			return &Error{Status: 403, Code: "NOT_A_MEMBER", Message: "not a member of this trip"}
		}
		return err
	}
	if t.Status != domain.TripStatusCreated {
		metrics.SeatOperation("leave", "not_joinable")
		return &Error{Status: 409, Code: "RIDE_NOT_JOINABLE", Message: "cannot leave a started or completed trip"}
	}

	if err := s.memberships.Delete(ctx, tripID, subject); err != nil {
		if errors.Is(err, membershiprepo.ErrNotFound) {
			return &Error{Status: 403, Code: "NOT_A_MEMBER", Message: "not a member of this trip"}
		}
		return err
	}
	t.SeatsAvailable++
	t.UpdatedAt = s.clk.Now()
	if err := s.trips.Save(ctx, t); err != nil {
		return err
	}
	metrics.SeatOperation("leave", "ok")
	return nil
}

// Confirm records one role's acknowledgement of one phase and advances the
// trip status when both sides of that phase have confirmed. Owner and rider
// order is commutative; a repeat confirmation is an error, not a no-op.
func (s *Service) Confirm(ctx context.Context, actor domain.SubjectID, tripID domain.TripID, role domain.ConfirmRole, phase domain.ConfirmPhase) (ConfirmResult, error) {
	switch role {
	case domain.RoleOwner, domain.RoleRider:
	default:
		return ConfirmResult{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid role", Details: map[string]any{"role": "must be OWNER or RIDER"}}
	}
	switch phase {
	case domain.PhaseStart, domain.PhaseEnd:
	default:
		return ConfirmResult{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid phase", Details: map[string]any{"phase": "must be START or END"}}
	}

	unlock := s.locks.Lock(string(tripID))
	defer unlock()

	t, err := s.getTrip(ctx, tripID)
	if err != nil {
		return ConfirmResult{}, err
	}

	switch role {
	case domain.RoleOwner:
		if t.Owner != actor {
			metrics.Confirmation(string(role), string(phase), "unauthorized")
			return ConfirmResult{}, &Error{Status: 403, Code: "UNAUTHORIZED", Message: "only the trip owner can confirm as owner"}
		}
	case domain.RoleRider:
		if _, err := s.memberships.Get(ctx, tripID, actor); err != nil {
			if errors.Is(err, membershiprepo.ErrNotFound) {
				metrics.Confirmation(string(role), string(phase), "unauthorized")
				return ConfirmResult{}, &Error{Status: 403, Code: "UNAUTHORIZED", Message: "only a trip member can confirm as rider"}
			}
			return ConfirmResult{}, err
		}
	}

	// A repeat confirmation reports ALREADY_CONFIRMED even when the trip has
	// since moved past the phase's window.
	flag := confirmFlag(&t, role, phase)
	if *flag {
		metrics.Confirmation(string(role), string(phase), "already_confirmed")
		return ConfirmResult{}, &Error{Status: 409, Code: "ALREADY_CONFIRMED", Message: "this confirmation was already recorded"}
	}

	switch phase {
	case domain.PhaseStart:
		if t.Status != domain.TripStatusCreated {
			metrics.Confirmation(string(role), string(phase), "invalid_phase")
			return ConfirmResult{}, &Error{Status: 409, Code: "INVALID_PHASE", Message: "start can only be confirmed on a created trip"}
		}
	case domain.PhaseEnd:
		if t.Status != domain.TripStatusStarted {
			metrics.Confirmation(string(role), string(phase), "invalid_phase")
			return ConfirmResult{}, &Error{Status: 409, Code: "INVALID_PHASE", Message: "end can only be confirmed on a started trip"}
		}
	}
	*flag = true

	res := ConfirmResult{Status: t.Status}
	switch phase {
	case domain.PhaseStart:
		if t.OwnerConfirmedStart && t.RiderConfirmedStart {
			t.Status = domain.TripStatusStarted
			res.Status = t.Status
			res.PhaseComplete = true
			metrics.TripTransition(string(domain.TripStatusStarted))
		} else {
			res.PendingRole = pendingRole(role)
		}
	case domain.PhaseEnd:
		if t.OwnerConfirmedEnd && t.RiderConfirmedEnd {
			t.Status = domain.TripStatusCompleted
			res.Status = t.Status
			res.PhaseComplete = true
			metrics.TripTransition(string(domain.TripStatusCompleted))
		} else {
			res.PendingRole = pendingRole(role)
		}
	}

	t.UpdatedAt = s.clk.Now()
	if err := s.trips.Save(ctx, t); err != nil {
		return ConfirmResult{}, err
	}
	metrics.Confirmation(string(role), string(phase), "ok")

	// Terminal transition: drop every live position for this trip, before
	// the caller hears about completion.
	if t.Status == domain.TripStatusCompleted {
		if err := s.positions.CascadeOnCompletion(ctx, tripID); err != nil {
			return ConfirmResult{}, err
		}
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, tripID domain.TripID) (domain.TripDetails, error) {
	t, err := s.getTrip(ctx, tripID)
	if err != nil {
		return domain.TripDetails{}, err
	}
	members, err := s.memberships.ListByTrip(ctx, tripID)
	if err != nil {
		return domain.TripDetails{}, err
	}

	d := domain.TripDetails{
		TripSummary: toSummary(t),
		Confirmations: domain.Confirmations{
			OwnerStart: t.OwnerConfirmedStart,
			RiderStart: t.RiderConfirmedStart,
			OwnerEnd:   t.OwnerConfirmedEnd,
			RiderEnd:   t.RiderConfirmedEnd,
		},
		Members:   make([]domain.MembershipSummary, 0, len(members)),
		CreatedAt: t.CreatedAt,
	}
	for _, m := range members {
		d.Members = append(d.Members, toMembershipSummary(m))
	}
	d.Emissions = domain.EmissionSavings(t.DistanceKM, t.VehicleType, d.Occupants())
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]domain.TripSummary, error) {
	ts, err := s.trips.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TripSummary, 0, len(ts))
	for _, t := range ts {
		out = append(out, toSummary(t))
	}
	return out, nil
}

func (s *Service) getTrip(ctx context.Context, tripID domain.TripID) (triprepo.Trip, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return triprepo.Trip{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return triprepo.Trip{}, err
	}
	return t, nil
}

func confirmFlag(t *triprepo.Trip, role domain.ConfirmRole, phase domain.ConfirmPhase) *bool {
	if phase == domain.PhaseStart {
		if role == domain.RoleOwner {
			return &t.OwnerConfirmedStart
		}
		return &t.RiderConfirmedStart
	}
	if role == domain.RoleOwner {
		return &t.OwnerConfirmedEnd
	}
	return &t.RiderConfirmedEnd
}

func pendingRole(confirmed domain.ConfirmRole) *domain.ConfirmRole {
	other := domain.RoleOwner
	if confirmed == domain.RoleOwner {
		other = domain.RoleRider
	}
	return &other
}

func toSummary(t triprepo.Trip) domain.TripSummary {
	return domain.TripSummary{
		ID:             t.ID,
		Origin:         t.Origin,
		Destination:    t.Destination,
		ScheduledAt:    t.ScheduledAt,
		VehicleType:    t.VehicleType,
		VehicleNumber:  t.VehicleNumber,
		DistanceKM:     t.DistanceKM,
		TotalSeats:     t.TotalSeats,
		SeatsAvailable: t.SeatsAvailable,
		Owner:          t.Owner,
		Status:         t.Status,
	}
}

func toMembershipSummary(m membershiprepo.Membership) domain.MembershipSummary {
	return domain.MembershipSummary{
		Subject:     m.Subject,
		PickupPoint: m.PickupPoint,
		PickupNotes: m.PickupNotes,
		JoinedAt:    m.JoinedAt,
	}
}
