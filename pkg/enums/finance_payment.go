package enums

import "fmt"

// FinancePaymentType classifies what a branch settlement payment covers.
type FinancePaymentType string

const (
	FinancePaymentTypeTax          FinancePaymentType = "tax"
	FinancePaymentTypeSubscription FinancePaymentType = "subscription"
)

// IsValid reports whether the value is a known FinancePaymentType.
func (f FinancePaymentType) IsValid() bool {
	return f == FinancePaymentTypeTax || f == FinancePaymentTypeSubscription
}

// ParseFinancePaymentType converts raw input into a FinancePaymentType.
func ParseFinancePaymentType(value string) (FinancePaymentType, error) {
	switch FinancePaymentType(value) {
	case FinancePaymentTypeTax:
		return FinancePaymentTypeTax, nil
	case FinancePaymentTypeSubscription:
		return FinancePaymentTypeSubscription, nil
	default:
		return "", fmt.Errorf("invalid finance payment type %q", value)
	}
}

// FinancePaymentStatus tracks the approval workflow of a settlement payment.
type FinancePaymentStatus string

const (
	FinancePaymentStatusPending  FinancePaymentStatus = "pending"
	FinancePaymentStatusApproved FinancePaymentStatus = "approved"
	FinancePaymentStatusRejected FinancePaymentStatus = "rejected"
)

// IsValid reports whether the value is a known FinancePaymentStatus.
func (f FinancePaymentStatus) IsValid() bool {
	switch f {
	case FinancePaymentStatusPending, FinancePaymentStatusApproved, FinancePaymentStatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status permits no further transition.
func (f FinancePaymentStatus) IsTerminal() bool {
	return f == FinancePaymentStatusApproved || f == FinancePaymentStatusRejected
}
