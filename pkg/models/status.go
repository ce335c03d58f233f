package models

import "fmt"

// Application lifecycle statuses. New is the ingest default; the rest are
// user-set through the dashboard. Archival is a separate soft-delete flag,
// not a status.
const (
	StatusNew          = "new"
	StatusInterested   = "interested"
	StatusApplied      = "applied"
	StatusInterviewing = "interviewing"
	StatusOffer        = "offer"
	StatusRejected     = "rejected"
)

var validStatuses = map[string]bool{
	StatusNew:          true,
	StatusInterested:   true,
	StatusApplied:      true,
	StatusInterviewing: true,
	StatusOffer:        true,
	StatusRejected:     true,
}

// ParseStatus validates a raw status string.
func ParseStatus(s string) (string, error) {
	if validStatuses[s] {
		return s, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// HiddenByDefault reports whether a status is excluded from the default
// dashboard list (the user already acted on these).
func HiddenByDefault(status string) bool {
	switch status {
	case StatusApplied, StatusInterviewing, StatusOffer, StatusRejected:
		return true
	}
	return false
}
