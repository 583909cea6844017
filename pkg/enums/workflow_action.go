package enums

import "fmt"

// WorkflowAction labels the trigger that produced a status transition.
type WorkflowAction string

const (
	WorkflowActionPaymentInitiated     WorkflowAction = "payment_initiated"
	WorkflowActionPaymentSettled       WorkflowAction = "payment_settled"
	WorkflowActionPaymentFailed        WorkflowAction = "payment_failed"
	WorkflowActionPublicationRequested WorkflowAction = "publication_requested"
	WorkflowActionValidationFailed     WorkflowAction = "validation_failed"
	WorkflowActionPublicationApproved  WorkflowAction = "publication_approved"
	WorkflowActionPublicationRejected  WorkflowAction = "publication_rejected"
	WorkflowActionDeactivated          WorkflowAction = "deactivated"
	WorkflowActionEditingApproved      WorkflowAction = "editing_approved"
	WorkflowActionResubmitted          WorkflowAction = "resubmitted"
	WorkflowActionReactivationApproved WorkflowAction = "reactivation_approved"
	WorkflowActionSubscriptionExpired  WorkflowAction = "subscription_expired"
	WorkflowActionOperatorForced       WorkflowAction = "operator_forced"
)

var validWorkflowActions = []WorkflowAction{
	WorkflowActionPaymentInitiated,
	WorkflowActionPaymentSettled,
	WorkflowActionPaymentFailed,
	WorkflowActionPublicationRequested,
	WorkflowActionValidationFailed,
	WorkflowActionPublicationApproved,
	WorkflowActionPublicationRejected,
	WorkflowActionDeactivated,
	WorkflowActionEditingApproved,
	WorkflowActionResubmitted,
	WorkflowActionReactivationApproved,
	WorkflowActionSubscriptionExpired,
	WorkflowActionOperatorForced,
}

// String implements fmt.Stringer.
func (a WorkflowAction) String() string {
	return string(a)
}

// IsValid reports whether the value is known.
func (a WorkflowAction) IsValid() bool {
	for _, candidate := range validWorkflowActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseWorkflowAction converts raw input into a WorkflowAction.
func ParseWorkflowAction(value string) (WorkflowAction, error) {
	for _, candidate := range validWorkflowActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid workflow action %q", value)
}
