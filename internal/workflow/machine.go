package workflow

import (
	"github.com/bazario-app/bazario-backend/pkg/enums"
)

// ApprovalRule pins the decided request an edge demands before it may fire.
type ApprovalRule struct {
	RequestType enums.ApprovalRequestType
	Decision    enums.ApprovalRequestStatus
}

// Edge is one legal move in the market status machine. The machine is
// closed-world: a (from, to, action) triple absent from the table is rejected
// outright, whatever the caller's role.
type Edge struct {
	From     enums.MarketStatus
	To       enums.MarketStatus
	Action   enums.WorkflowAction
	Approval *ApprovalRule
	// NeedsActiveSubscription is derived from the target: every paid-family
	// destination demands a live paid window at transition time.
	NeedsActiveSubscription bool
}

type edgeKey struct {
	from   enums.MarketStatus
	to     enums.MarketStatus
	action enums.WorkflowAction
}

var edgeIndex = buildEdgeIndex([]Edge{
	{
		From:   enums.MarketStatusUnpaidUnderCreation,
		To:     enums.MarketStatusPaymentPending,
		Action: enums.WorkflowActionPaymentInitiated,
	},
	{
		From:   enums.MarketStatusUnpaidUnderCreation,
		To:     enums.MarketStatusPaidUnderCreation,
		Action: enums.WorkflowActionPaymentSettled,
	},
	{
		From:   enums.MarketStatusPaymentPending,
		To:     enums.MarketStatusPaidUnderCreation,
		Action: enums.WorkflowActionPaymentSettled,
	},
	{
		From:   enums.MarketStatusPaymentPending,
		To:     enums.MarketStatusUnpaidUnderCreation,
		Action: enums.WorkflowActionPaymentFailed,
	},
	{
		From:   enums.MarketStatusPaidUnderCreation,
		To:     enums.MarketStatusPaidInPublicationQueue,
		Action: enums.WorkflowActionPublicationRequested,
	},
	{
		From:   enums.MarketStatusPaidUnderCreation,
		To:     enums.MarketStatusPaidNeedsEditing,
		Action: enums.WorkflowActionValidationFailed,
	},
	{
		From:   enums.MarketStatusPaidInPublicationQueue,
		To:     enums.MarketStatusPublished,
		Action: enums.WorkflowActionPublicationApproved,
		Approval: &ApprovalRule{
			RequestType: enums.ApprovalRequestTypePublication,
			Decision:    enums.ApprovalRequestStatusApproved,
		},
	},
	{
		From:   enums.MarketStatusPaidInPublicationQueue,
		To:     enums.MarketStatusPaidNonPublication,
		Action: enums.WorkflowActionPublicationRejected,
		Approval: &ApprovalRule{
			RequestType: enums.ApprovalRequestTypePublication,
			Decision:    enums.ApprovalRequestStatusRejected,
		},
	},
	{
		From:   enums.MarketStatusPublished,
		To:     enums.MarketStatusInactive,
		Action: enums.WorkflowActionDeactivated,
	},
	{
		From:   enums.MarketStatusPublished,
		To:     enums.MarketStatusInactive,
		Action: enums.WorkflowActionSubscriptionExpired,
	},
	{
		From:   enums.MarketStatusPublished,
		To:     enums.MarketStatusPaidNeedsEditing,
		Action: enums.WorkflowActionEditingApproved,
		Approval: &ApprovalRule{
			RequestType: enums.ApprovalRequestTypeEditing,
			Decision:    enums.ApprovalRequestStatusApproved,
		},
	},
	{
		From:   enums.MarketStatusPaidNeedsEditing,
		To:     enums.MarketStatusPaidInPublicationQueue,
		Action: enums.WorkflowActionResubmitted,
		Approval: &ApprovalRule{
			RequestType: enums.ApprovalRequestTypeEditing,
			Decision:    enums.ApprovalRequestStatusApproved,
		},
	},
	{
		From:   enums.MarketStatusInactive,
		To:     enums.MarketStatusPaidInPublicationQueue,
		Action: enums.WorkflowActionReactivationApproved,
		Approval: &ApprovalRule{
			RequestType: enums.ApprovalRequestTypeReactivation,
			Decision:    enums.ApprovalRequestStatusApproved,
		},
	},
})

func buildEdgeIndex(edges []Edge) map[edgeKey]Edge {
	index := make(map[edgeKey]Edge, len(edges))
	for _, edge := range edges {
		edge.NeedsActiveSubscription = edge.To.IsPaidFamily()
		index[edgeKey{from: edge.From, to: edge.To, action: edge.Action}] = edge
	}
	return index
}

// EdgeFor resolves the edge for a (from, to, action) triple.
func EdgeFor(from, to enums.MarketStatus, action enums.WorkflowAction) (Edge, bool) {
	edge, ok := edgeIndex[edgeKey{from: from, to: to, action: action}]
	return edge, ok
}

// Edges returns a copy of the full transition table.
func Edges() []Edge {
	edges := make([]Edge, 0, len(edgeIndex))
	for _, edge := range edgeIndex {
		edges = append(edges, edge)
	}
	return edges
}

// ForceTargets are the only statuses an operator override may land on.
var ForceTargets = []enums.MarketStatus{
	enums.MarketStatusInactive,
	enums.MarketStatusPaidNeedsEditing,
}

// IsForceTarget reports whether the status is a legal operator-override target.
func IsForceTarget(status enums.MarketStatus) bool {
	for _, candidate := range ForceTargets {
		if candidate == status {
			return true
		}
	}
	return false
}
