package enums

import "fmt"

// AdoptionStatus tracks the lifecycle of an adoption request.
type AdoptionStatus string

const (
	AdoptionStatusPending  AdoptionStatus = "pending"
	AdoptionStatusApproved AdoptionStatus = "approved"
	AdoptionStatusRejected AdoptionStatus = "rejected"
)

var validAdoptionStatuses = []AdoptionStatus{
	AdoptionStatusPending,
	AdoptionStatusApproved,
	AdoptionStatusRejected,
}

// String implements fmt.Stringer.
func (a AdoptionStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AdoptionStatus.
func (a AdoptionStatus) IsValid() bool {
	for _, candidate := range validAdoptionStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAdoptionStatus converts raw input into an AdoptionStatus.
func ParseAdoptionStatus(value string) (AdoptionStatus, error) {
	for _, candidate := range validAdoptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid adoption status %q", value)
}
