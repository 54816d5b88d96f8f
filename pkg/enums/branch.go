package enums

import "fmt"

// BranchRequestStatus tracks a seller application through review.
type BranchRequestStatus string

const (
	BranchRequestStatusPending  BranchRequestStatus = "pending"
	BranchRequestStatusApproved BranchRequestStatus = "approved"
	BranchRequestStatusRejected BranchRequestStatus = "rejected"
)

// IsValid reports whether the value is a known BranchRequestStatus.
func (b BranchRequestStatus) IsValid() bool {
	switch b {
	case BranchRequestStatusPending, BranchRequestStatusApproved, BranchRequestStatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the request can no longer change state.
func (b BranchRequestStatus) IsTerminal() bool {
	return b == BranchRequestStatusApproved || b == BranchRequestStatusRejected
}

// ParseBranchRequestStatus converts raw input into a BranchRequestStatus.
func ParseBranchRequestStatus(value string) (BranchRequestStatus, error) {
	switch BranchRequestStatus(value) {
	case BranchRequestStatusPending:
		return BranchRequestStatusPending, nil
	case BranchRequestStatusApproved:
		return BranchRequestStatusApproved, nil
	case BranchRequestStatusRejected:
		return BranchRequestStatusRejected, nil
	default:
		return "", fmt.Errorf("invalid branch request status %q", value)
	}
}

// BranchStatus tracks whether a seller storefront is live.
type BranchStatus string

const (
	BranchStatusActive    BranchStatus = "active"
	BranchStatusSuspended BranchStatus = "suspended"
)

// IsValid reports whether the value is a known BranchStatus.
func (b BranchStatus) IsValid() bool {
	return b == BranchStatusActive || b == BranchStatusSuspended
}
