package enums

import "fmt"

// ApprovalRequestType identifies what a market owner is asking review for.
type ApprovalRequestType string

const (
	ApprovalRequestTypePublication  ApprovalRequestType = "publication"
	ApprovalRequestTypeEditing      ApprovalRequestType = "editing"
	ApprovalRequestTypeReactivation ApprovalRequestType = "reactivation"
)

var validApprovalRequestTypes = []ApprovalRequestType{
	ApprovalRequestTypePublication,
	ApprovalRequestTypeEditing,
	ApprovalRequestTypeReactivation,
}

// String implements fmt.Stringer.
func (t ApprovalRequestType) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t ApprovalRequestType) IsValid() bool {
	for _, candidate := range validApprovalRequestTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseApprovalRequestType converts raw input into an ApprovalRequestType.
func ParseApprovalRequestType(value string) (ApprovalRequestType, error) {
	for _, candidate := range validApprovalRequestTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid approval request type %q", value)
}

// ApprovalRequestStatus is the review state of an approval request.
type ApprovalRequestStatus string

const (
	ApprovalRequestStatusPending  ApprovalRequestStatus = "pending"
	ApprovalRequestStatusApproved ApprovalRequestStatus = "approved"
	ApprovalRequestStatusRejected ApprovalRequestStatus = "rejected"
)

var validApprovalRequestStatuses = []ApprovalRequestStatus{
	ApprovalRequestStatusPending,
	ApprovalRequestStatusApproved,
	ApprovalRequestStatusRejected,
}

// String implements fmt.Stringer.
func (s ApprovalRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ApprovalRequestStatus) IsValid() bool {
	for _, candidate := range validApprovalRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsDecided reports whether the request reached a terminal decision.
func (s ApprovalRequestStatus) IsDecided() bool {
	return s == ApprovalRequestStatusApproved || s == ApprovalRequestStatusRejected
}

// ParseApprovalRequestStatus converts raw input into an ApprovalRequestStatus.
func ParseApprovalRequestStatus(value string) (ApprovalRequestStatus, error) {
	for _, candidate := range validApprovalRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid approval request status %q", value)
}
