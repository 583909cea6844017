package workflow

import (
	"testing"

	"github.com/bazario-app/bazario-backend/pkg/enums"
)

func TestEdgeForLegalEdges(t *testing.T) {
	legal := []struct {
		from   enums.MarketStatus
		to     enums.MarketStatus
		action enums.WorkflowAction
	}{
		{enums.MarketStatusUnpaidUnderCreation, enums.MarketStatusPaymentPending, enums.WorkflowActionPaymentInitiated},
		{enums.MarketStatusUnpaidUnderCreation, enums.MarketStatusPaidUnderCreation, enums.WorkflowActionPaymentSettled},
		{enums.MarketStatusPaymentPending, enums.MarketStatusPaidUnderCreation, enums.WorkflowActionPaymentSettled},
		{enums.MarketStatusPaymentPending, enums.MarketStatusUnpaidUnderCreation, enums.WorkflowActionPaymentFailed},
		{enums.MarketStatusPaidUnderCreation, enums.MarketStatusPaidInPublicationQueue, enums.WorkflowActionPublicationRequested},
		{enums.MarketStatusPaidUnderCreation, enums.MarketStatusPaidNeedsEditing, enums.WorkflowActionValidationFailed},
		{enums.MarketStatusPaidInPublicationQueue, enums.MarketStatusPublished, enums.WorkflowActionPublicationApproved},
		{enums.MarketStatusPaidInPublicationQueue, enums.MarketStatusPaidNonPublication, enums.WorkflowActionPublicationRejected},
		{enums.MarketStatusPublished, enums.MarketStatusInactive, enums.WorkflowActionDeactivated},
		{enums.MarketStatusPublished, enums.MarketStatusInactive, enums.WorkflowActionSubscriptionExpired},
		{enums.MarketStatusPublished, enums.MarketStatusPaidNeedsEditing, enums.WorkflowActionEditingApproved},
		{enums.MarketStatusPaidNeedsEditing, enums.MarketStatusPaidInPublicationQueue, enums.WorkflowActionResubmitted},
		{enums.MarketStatusInactive, enums.MarketStatusPaidInPublicationQueue, enums.WorkflowActionReactivationApproved},
	}

	for _, tc := range legal {
		edge, ok := EdgeFor(tc.from, tc.to, tc.action)
		if !ok {
			t.Fatalf("expected edge %s -> %s via %s", tc.from, tc.to, tc.action)
		}
		if edge.From != tc.from || edge.To != tc.to || edge.Action != tc.action {
			t.Fatalf("edge mismatch: %+v", edge)
		}
	}

	if got := len(Edges()); got != len(legal) {
		t.Fatalf("transition table should hold exactly %d edges, got %d", len(legal), got)
	}
}

func TestEdgeForClosedWorld(t *testing.T) {
	illegal := []struct {
		from   enums.MarketStatus
		to     enums.MarketStatus
		action enums.WorkflowAction
	}{
		// No path out of paid_non_publication without an operator.
		{enums.MarketStatusPaidNonPublication, enums.MarketStatusPublished, enums.WorkflowActionPublicationApproved},
		{enums.MarketStatusPaidNonPublication, enums.MarketStatusPaidInPublicationQueue, enums.WorkflowActionResubmitted},
		// Publishing requires passing through the queue.
		{enums.MarketStatusPaidUnderCreation, enums.MarketStatusPublished, enums.WorkflowActionPublicationApproved},
		{enums.MarketStatusUnpaidUnderCreation, enums.MarketStatusPublished, enums.WorkflowActionPublicationApproved},
		// Self-loops are not transitions.
		{enums.MarketStatusPublished, enums.MarketStatusPublished, enums.WorkflowActionPublicationApproved},
		// Right pair, wrong trigger.
		{enums.MarketStatusPaymentPending, enums.MarketStatusPaidUnderCreation, enums.WorkflowActionPaymentInitiated},
		{enums.MarketStatusPublished, enums.MarketStatusInactive, enums.WorkflowActionPaymentFailed},
		// Reactivation never lands straight on published.
		{enums.MarketStatusInactive, enums.MarketStatusPublished, enums.WorkflowActionReactivationApproved},
	}

	for _, tc := range illegal {
		if _, ok := EdgeFor(tc.from, tc.to, tc.action); ok {
			t.Fatalf("edge %s -> %s via %s should not exist", tc.from, tc.to, tc.action)
		}
	}
}

func TestEdgeSubscriptionGuardTracksPaidFamily(t *testing.T) {
	for _, edge := range Edges() {
		if edge.NeedsActiveSubscription != edge.To.IsPaidFamily() {
			t.Fatalf("edge %s -> %s subscription guard out of sync with paid family", edge.From, edge.To)
		}
	}
}

func TestEdgeApprovalRules(t *testing.T) {
	expect := map[[2]enums.MarketStatus]ApprovalRule{
		{enums.MarketStatusPaidInPublicationQueue, enums.MarketStatusPublished}:           {enums.ApprovalRequestTypePublication, enums.ApprovalRequestStatusApproved},
		{enums.MarketStatusPaidInPublicationQueue, enums.MarketStatusPaidNonPublication}:  {enums.ApprovalRequestTypePublication, enums.ApprovalRequestStatusRejected},
		{enums.MarketStatusPublished, enums.MarketStatusPaidNeedsEditing}:                 {enums.ApprovalRequestTypeEditing, enums.ApprovalRequestStatusApproved},
		{enums.MarketStatusPaidNeedsEditing, enums.MarketStatusPaidInPublicationQueue}:    {enums.ApprovalRequestTypeEditing, enums.ApprovalRequestStatusApproved},
		{enums.MarketStatusInactive, enums.MarketStatusPaidInPublicationQueue}:            {enums.ApprovalRequestTypeReactivation, enums.ApprovalRequestStatusApproved},
	}

	gated := 0
	for _, edge := range Edges() {
		rule, ok := expect[[2]enums.MarketStatus{edge.From, edge.To}]
		if edge.Approval == nil {
			if ok {
				t.Fatalf("edge %s -> %s via %s should carry an approval rule", edge.From, edge.To, edge.Action)
			}
			continue
		}
		gated++
		if !ok {
			t.Fatalf("unexpected approval rule on %s -> %s", edge.From, edge.To)
		}
		if edge.Approval.RequestType != rule.RequestType || edge.Approval.Decision != rule.Decision {
			t.Fatalf("approval rule mismatch on %s -> %s: %+v", edge.From, edge.To, edge.Approval)
		}
	}
	if gated != len(expect) {
		t.Fatalf("expected %d approval-gated edges, got %d", len(expect), gated)
	}
}

func TestIsForceTarget(t *testing.T) {
	if !IsForceTarget(enums.MarketStatusInactive) || !IsForceTarget(enums.MarketStatusPaidNeedsEditing) {
		t.Fatal("inactive and paid_needs_editing must be force targets")
	}
	if IsForceTarget(enums.MarketStatusPublished) || IsForceTarget(enums.MarketStatusPaymentPending) {
		t.Fatal("only inactive and paid_needs_editing are force targets")
	}
}
