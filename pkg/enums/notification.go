package enums

// NotificationKind classifies in-app notification payloads.
type NotificationKind string

const (
	NotificationKindOrder      NotificationKind = "order"
	NotificationKindDispute    NotificationKind = "dispute"
	NotificationKindFinance    NotificationKind = "finance"
	NotificationKindOnboarding NotificationKind = "onboarding"
	NotificationKindAccount    NotificationKind = "account"
)

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	switch n {
	case NotificationKindOrder,
		NotificationKindDispute,
		NotificationKindFinance,
		NotificationKindOnboarding,
		NotificationKindAccount:
		return true
	default:
		return false
	}
}
