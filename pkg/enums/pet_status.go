package enums

import "fmt"

// PetStatus tracks whether a pet can still be claimed for adoption.
type PetStatus string

const (
	PetStatusAvailable PetStatus = "available"
	PetStatusPending   PetStatus = "pending"
	PetStatusAdopted   PetStatus = "adopted"
)

var validPetStatuses = []PetStatus{
	PetStatusAvailable,
	PetStatusPending,
	PetStatusAdopted,
}

// String implements fmt.Stringer.
func (p PetStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PetStatus.
func (p PetStatus) IsValid() bool {
	for _, candidate := range validPetStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePetStatus converts raw input into a PetStatus.
func ParsePetStatus(value string) (PetStatus, error) {
	for _, candidate := range validPetStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pet status %q", value)
}
