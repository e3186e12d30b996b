package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ecocommute/carpool-api/internal/app/profiles"
	"github.com/ecocommute/carpool-api/internal/app/rides"
	"github.com/ecocommute/carpool-api/internal/app/tracking"
	"github.com/ecocommute/carpool-api/internal/domain"
	clockport "github.com/ecocommute/carpool-api/internal/ports/out/clock"
	"github.com/ecocommute/carpool-api/internal/ports/out/idempotency"
)

// Server is the HTTP adapter. It decodes requests, applies the
// verified-profile gate and maps app-layer errors onto the JSON envelope.
type Server struct {
	Rides    *rides.Service
	Tracking *tracking.Service
	Profiles *profiles.Service
	Idem     idempotency.Store
	Clock    clockport.Clock
}

func NewServer(ridesSvc *rides.Service, trackingSvc *tracking.Service, profilesSvc *profiles.Service, idem idempotency.Store, clk clockport.Clock) *Server {
	return &Server{
		Rides:    ridesSvc,
		Tracking: trackingSvc,
		Profiles: profilesSvc,
		Idem:     idem,
		Clock:    clk,
	}
}

// --- wire shapes ---

type createTripRequest struct {
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	ScheduledAt   time.Time `json:"scheduledAt"`
	VehicleType   string    `json:"vehicleType"`
	VehicleNumber string    `json:"vehicleNumber"`
	DistanceKM    float64   `json:"distanceKm"`
	TotalSeats    int       `json:"totalSeats"`
}

type tripResponse struct {
	ID             string    `json:"id"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	ScheduledAt    time.Time `json:"scheduledAt"`
	VehicleType    string    `json:"vehicleType"`
	VehicleNumber  string    `json:"vehicleNumber"`
	DistanceKM     float64   `json:"distanceKm"`
	TotalSeats     int       `json:"totalSeats"`
	SeatsAvailable int       `json:"seatsAvailable"`
	Owner          string    `json:"owner"`
	Status         string    `json:"status"`
}

type confirmationsResponse struct {
	OwnerStart bool `json:"ownerStart"`
	RiderStart bool `json:"riderStart"`
	OwnerEnd   bool `json:"ownerEnd"`
	RiderEnd   bool `json:"riderEnd"`
}

type memberResponse struct {
	Subject     string    `json:"subject"`
	PickupPoint string    `json:"pickupPoint"`
	PickupNotes string    `json:"pickupNotes,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

type emissionsResponse struct {
	SoloKg           float64 `json:"soloKg"`
	SharedKg         float64 `json:"sharedKg"`
	SavedPerPersonKg float64 `json:"savedPerPersonKg"`
}

type tripDetailsResponse struct {
	tripResponse
	Confirmations confirmationsResponse `json:"confirmations"`
	Members       []memberResponse      `json:"members"`
	Emissions     emissionsResponse     `json:"emissions"`
	CreatedAt     time.Time             `json:"createdAt"`
}

type joinRequest struct {
	PickupPoint string `json:"pickupPoint"`
	PickupNotes string `json:"pickupNotes"`
}

type confirmRequest struct {
	Role  string `json:"role"`
	Phase string `json:"phase"`
}

type confirmResponse struct {
	Status        string  `json:"status"`
	PhaseComplete bool    `json:"phaseComplete"`
	PendingRole   *string `json:"pendingRole,omitempty"`
}

type reportPositionRequest struct {
	TripID         string  `json:"tripId"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	SharingEnabled bool    `json:"sharingEnabled"`
}

type positionResponse struct {
	Subject   string    `json:"subject"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type profileRequest struct {
	DisplayName string `json:"displayName"`
	PhoneNumber string `json:"phoneNumber"`
}

type profileResponse struct {
	Subject     string    `json:"subject"`
	DisplayName string    `json:"displayName"`
	PhoneNumber string    `json:"phoneNumber"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toTripResponse(t domain.TripSummary) tripResponse {
	return tripResponse{
		ID:             string(t.ID),
		Origin:         t.Origin,
		Destination:    t.Destination,
		ScheduledAt:    t.ScheduledAt,
		VehicleType:    string(t.VehicleType),
		VehicleNumber:  t.VehicleNumber,
		DistanceKM:     t.DistanceKM,
		TotalSeats:     t.TotalSeats,
		SeatsAvailable: t.SeatsAvailable,
		Owner:          string(t.Owner),
		Status:         string(t.Status),
	}
}

func toProfileResponse(p domain.Profile) profileResponse {
	return profileResponse{
		Subject:     string(p.Subject),
		DisplayName: p.DisplayName,
		PhoneNumber: p.PhoneNumber,
		Verified:    p.Verified,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAppError maps an app-layer *Error onto the envelope. Anything else is
// an internal error.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		re *rides.Error
		te *tracking.Error
		pe *profiles.Error
	)
	switch {
	case errors.As(err, &re):
		writeError(w, r, re.Status, re.Code, re.Message, re.Details)
	case errors.As(err, &te):
		writeError(w, r, te.Status, te.Code, te.Message, te.Details)
	case errors.As(err, &pe):
		writeError(w, r, pe.Status, pe.Code, pe.Message, pe.Details)
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func (s *Server) subject(w http.ResponseWriter, r *http.Request) (domain.SubjectID, bool) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return "", false
	}
	return domain.SubjectID(sub), true
}

// requireVerified applies the may-transact gate: create/join/confirm are
// reachable only with a verified profile.
func (s *Server) requireVerified(w http.ResponseWriter, r *http.Request, sub domain.SubjectID) bool {
	ok, err := s.Profiles.MayTransact(r.Context(), sub)
	if err != nil {
		writeAppError(w, r, err)
		return false
	}
	if !ok {
		writeError(w, r, http.StatusForbidden, "NOT_VERIFIED", "a verified profile is required", nil)
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, body []byte, v any) bool {
	if len(body) == 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing request body", nil)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed JSON body", nil)
		return false
	}
	return true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "request body too large", nil)
		return nil, false
	}
	return body, true
}

// --- handlers ---

func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	if !s.requireVerified(w, r, sub) {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	// Replay a previously stored response for a repeated Idempotency-Key.
	var fp idempotency.Fingerprint
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" {
		sum := sha256.Sum256(body)
		fp = idempotency.Fingerprint{
			Key:      idempotency.Key(idemKey),
			Subject:  sub,
			Method:   http.MethodPost,
			Route:    "POST /trips",
			BodyHash: hex.EncodeToString(sum[:]),
		}
		rec, found, err := s.Idem.Get(r.Context(), fp)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if found {
			w.Header().Set("Content-Type", rec.ContentType)
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	var req createTripRequest
	if !decodeJSON(w, r, body, &req) {
		return
	}
	ts, err := s.Rides.Create(r.Context(), sub, rides.CreateTripInput{
		Origin:        req.Origin,
		Destination:   req.Destination,
		ScheduledAt:   req.ScheduledAt,
		VehicleType:   domain.VehicleType(req.VehicleType),
		VehicleNumber: req.VehicleNumber,
		DistanceKM:    req.DistanceKM,
		TotalSeats:    req.TotalSeats,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	resp, err := json.Marshal(toTripResponse(ts))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if idemKey != "" {
		_ = s.Idem.Put(r.Context(), fp, idempotency.Record{
			StatusCode:  http.StatusCreated,
			ContentType: "application/json",
			Body:        resp,
			CreatedAt:   s.Clock.Now(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(resp)
}

func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.subject(w, r); !ok {
		return
	}
	ts, err := s.Rides.List(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]tripResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTripResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"trips": out})
}

func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.subject(w, r); !ok {
		return
	}
	d, err := s.Rides.Get(r.Context(), domain.TripID(chi.URLParam(r, "tripID")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	resp := tripDetailsResponse{
		tripResponse: toTripResponse(d.TripSummary),
		Confirmations: confirmationsResponse{
			OwnerStart: d.Confirmations.OwnerStart,
			RiderStart: d.Confirmations.RiderStart,
			OwnerEnd:   d.Confirmations.OwnerEnd,
			RiderEnd:   d.Confirmations.RiderEnd,
		},
		Members: make([]memberResponse, 0, len(d.Members)),
		Emissions: emissionsResponse{
			SoloKg:           d.Emissions.SoloKg,
			SharedKg:         d.Emissions.SharedKg,
			SavedPerPersonKg: d.Emissions.SavedPerPersonKg,
		},
		CreatedAt: d.CreatedAt,
	}
	for _, m := range d.Members {
		resp.Members = append(resp.Members, memberResponse{
			Subject:     string(m.Subject),
			PickupPoint: m.PickupPoint,
			PickupNotes: m.PickupNotes,
			JoinedAt:    m.JoinedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	if err := s.Rides.Delete(r.Context(), sub, domain.TripID(chi.URLParam(r, "tripID"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) JoinTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	if !s.requireVerified(w, r, sub) {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req joinRequest
	if !decodeJSON(w, r, body, &req) {
		return
	}

	m, err := s.Rides.Join(r.Context(), sub, domain.TripID(chi.URLParam(r, "tripID")), rides.JoinInput{
		PickupPoint: req.PickupPoint,
		PickupNotes: req.PickupNotes,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, memberResponse{
		Subject:     string(m.Subject),
		PickupPoint: m.PickupPoint,
		PickupNotes: m.PickupNotes,
		JoinedAt:    m.JoinedAt,
	})
}

func (s *Server) LeaveTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	if err := s.Rides.Leave(r.Context(), sub, domain.TripID(chi.URLParam(r, "tripID"))); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ConfirmTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	if !s.requireVerified(w, r, sub) {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if !decodeJSON(w, r, body, &req) {
		return
	}

	res, err := s.Rides.Confirm(r.Context(), sub, domain.TripID(chi.URLParam(r, "tripID")),
		domain.ConfirmRole(req.Role), domain.ConfirmPhase(req.Phase))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := confirmResponse{
		Status:        string(res.Status),
		PhaseComplete: res.PhaseComplete,
	}
	if res.PendingRole != nil {
		role := string(*res.PendingRole)
		out.PendingRole = &role
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) ReportPosition(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req reportPositionRequest
	if !decodeJSON(w, r, body, &req) {
		return
	}

	pos, err := s.Tracking.Report(r.Context(), sub, domain.TripID(req.TripID), req.Latitude, req.Longitude, req.SharingEnabled)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{
		Subject:   string(pos.Subject),
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		UpdatedAt: pos.UpdatedAt,
	})
}

func (s *Server) StopSharing(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	if err := s.Tracking.Stop(r.Context(), sub); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetMemberPosition(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.subject(w, r)
	if !ok {
		return
	}
	pos, err := s.Tracking.GetPosition(r.Context(), viewer,
		domain.SubjectID(chi.URLParam(r, "subject")),
		domain.TripID(chi.URLParam(r, "tripID")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{
		Subject:   string(pos.Subject),
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		UpdatedAt: pos.UpdatedAt,
	})
}

func (s *Server) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	p, err := s.Profiles.Get(r.Context(), sub)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

func (s *Server) PutMyProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeJSON(w, r, body, &req) {
		return
	}
	p, err := s.Profiles.Upsert(r.Context(), sub, profiles.UpsertInput{
		DisplayName: req.DisplayName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

func (s *Server) VerifyMyProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	p, err := s.Profiles.MarkVerified(r.Context(), sub)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}
