package domain

// SubjectID is the authenticated actor identity resolved by the surrounding
// application (login/session handling is not this service's concern).
// We model it as an opaque identifier.
type SubjectID string

// TripID is an internal identifier for a trip record.
type TripID string
