package profiles

import (
	"context"
	"errors"
	"regexp"

	"github.com/ecocommute/carpool-api/internal/domain"
	clockport "github.com/ecocommute/carpool-api/internal/ports/out/clock"
	"github.com/ecocommute/carpool-api/internal/ports/out/profilerepo"
)

// phoneRE accepts international-format numbers: 91 followed by ten digits.
var phoneRE = regexp.MustCompile(`^91\d{10}$`)

// Service manages rider/owner profiles and exposes the "may transact"
// capability. Identity verification itself (OTP flows) lives in an external
// collaborator that calls MarkVerified once it succeeds.
type Service struct {
	repo profilerepo.Repository
	clk  clockport.Clock
}

func NewService(repo profilerepo.Repository, clk clockport.Clock) *Service {
	return &Service{repo: repo, clk: clk}
}

type UpsertInput struct {
	DisplayName string
	PhoneNumber string
}

func (s *Service) Get(ctx context.Context, subject domain.SubjectID) (domain.Profile, error) {
	p, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, profilerepo.ErrNotFound) {
			return domain.Profile{}, &Error{Status: 404, Code: "PROFILE_NOT_FOUND", Message: "no profile exists for the authenticated subject"}
		}
		return domain.Profile{}, err
	}
	return toDomain(p), nil
}

// Upsert creates the subject's profile or updates its mutable fields.
// Verification status is never touched here.
func (s *Service) Upsert(ctx context.Context, subject domain.SubjectID, in UpsertInput) (domain.Profile, error) {
	name := domain.NormalizeLabel(in.DisplayName)
	if name == "" {
		return domain.Profile{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid displayName", Details: map[string]any{"displayName": "must be non-empty"}}
	}
	if !phoneRE.MatchString(in.PhoneNumber) {
		return domain.Profile{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid phoneNumber", Details: map[string]any{"phoneNumber": "must start with 91 and contain exactly 12 digits"}}
	}

	now := s.clk.Now()
	p, err := s.repo.GetBySubject(ctx, subject)
	switch {
	case err == nil:
		p.DisplayName = name
		p.PhoneNumber = in.PhoneNumber
		p.UpdatedAt = now
		if err := s.repo.Save(ctx, p); err != nil {
			return domain.Profile{}, err
		}
	case errors.Is(err, profilerepo.ErrNotFound):
		p = profilerepo.Profile{
			Subject:     subject,
			DisplayName: name,
			PhoneNumber: in.PhoneNumber,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return domain.Profile{}, err
		}
	default:
		return domain.Profile{}, err
	}
	return toDomain(p), nil
}

// MarkVerified flips the may-transact capability for a subject. Called by
// the external identity-verification collaborator on success.
func (s *Service) MarkVerified(ctx context.Context, subject domain.SubjectID) (domain.Profile, error) {
	p, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, profilerepo.ErrNotFound) {
			return domain.Profile{}, &Error{Status: 404, Code: "PROFILE_NOT_FOUND", Message: "no profile exists for the authenticated subject"}
		}
		return domain.Profile{}, err
	}
	if !p.Verified {
		p.Verified = true
		p.UpdatedAt = s.clk.Now()
		if err := s.repo.Save(ctx, p); err != nil {
			return domain.Profile{}, err
		}
	}
	return toDomain(p), nil
}

// MayTransact reports whether the subject may create/join trips and confirm
// phases. Subjects without a profile may not.
func (s *Service) MayTransact(ctx context.Context, subject domain.SubjectID) (bool, error) {
	p, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, profilerepo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.Verified, nil
}

func toDomain(p profilerepo.Profile) domain.Profile {
	return domain.Profile{
		Subject:     p.Subject,
		DisplayName: p.DisplayName,
		PhoneNumber: p.PhoneNumber,
		Verified:    p.Verified,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
