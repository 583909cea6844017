package enums

import "fmt"

// MarketStatus is the lifecycle state of a market storefront.
type MarketStatus string

const (
	MarketStatusUnpaidUnderCreation    MarketStatus = "unpaid_under_creation"
	MarketStatusPaymentPending         MarketStatus = "payment_pending"
	MarketStatusPaidUnderCreation      MarketStatus = "paid_under_creation"
	MarketStatusPaidInPublicationQueue MarketStatus = "paid_in_publication_queue"
	MarketStatusPaidNonPublication     MarketStatus = "paid_non_publication"
	MarketStatusPublished              MarketStatus = "published"
	MarketStatusPaidNeedsEditing       MarketStatus = "paid_needs_editing"
	MarketStatusInactive               MarketStatus = "inactive"
)

var validMarketStatuses = []MarketStatus{
	MarketStatusUnpaidUnderCreation,
	MarketStatusPaymentPending,
	MarketStatusPaidUnderCreation,
	MarketStatusPaidInPublicationQueue,
	MarketStatusPaidNonPublication,
	MarketStatusPublished,
	MarketStatusPaidNeedsEditing,
	MarketStatusInactive,
}

// String implements fmt.Stringer.
func (s MarketStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s MarketStatus) IsValid() bool {
	for _, candidate := range validMarketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsPaidFamily reports whether the state requires an active subscription.
func (s MarketStatus) IsPaidFamily() bool {
	switch s {
	case MarketStatusPaidUnderCreation,
		MarketStatusPaidInPublicationQueue,
		MarketStatusPaidNonPublication,
		MarketStatusPublished,
		MarketStatusPaidNeedsEditing:
		return true
	default:
		return false
	}
}

// ParseMarketStatus converts raw input into a MarketStatus.
func ParseMarketStatus(value string) (MarketStatus, error) {
	for _, candidate := range validMarketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid market status %q", value)
}
