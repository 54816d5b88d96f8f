package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregateDispute        OutboxAggregateType = "dispute"
	AggregateBranch         OutboxAggregateType = "branch"
	AggregateFinancePayment OutboxAggregateType = "finance_payment"
	AggregateUser           OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateDispute,
	AggregateBranch,
	AggregateFinancePayment,
	AggregateUser,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventDisputeOpened         OutboxEventType = "dispute_opened"
	EventDisputeResolved       OutboxEventType = "dispute_resolved"
	EventDisputeClosed         OutboxEventType = "dispute_closed"
	EventFinancePaymentDecided OutboxEventType = "finance_payment_decided"
	EventBranchApproved        OutboxEventType = "branch_approved"
	EventBranchRequestRejected OutboxEventType = "branch_request_rejected"
	EventUserSuspended         OutboxEventType = "user_suspended"
	EventInventoryPartialApply OutboxEventType = "inventory_partial_apply"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventDisputeOpened,
	EventDisputeResolved,
	EventDisputeClosed,
	EventFinancePaymentDecided,
	EventBranchApproved,
	EventBranchRequestRejected,
	EventUserSuspended,
	EventInventoryPartialApply,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
