package approvals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazario-app/bazario-backend/internal/workflow"
	"github.com/bazario-app/bazario-backend/pkg/db"
	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/outbox"
	"github.com/bazario-app/bazario-backend/pkg/outbox/payloads"
)

type approvalRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error)
	ListPending(ctx context.Context) ([]models.ApprovalRequest, error)
	ListByMarketID(ctx context.Context, marketID uuid.UUID) ([]models.ApprovalRequest, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.ApprovalRequest, error)
	FindPendingWithTx(tx *gorm.DB, marketID uuid.UUID, requestType enums.ApprovalRequestType) (*models.ApprovalRequest, error)
	CreateWithTx(tx *gorm.DB, request *models.ApprovalRequest) error
	UpdateWithTx(tx *gorm.DB, request *models.ApprovalRequest) error
}

type marketSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Market, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Market, error)
}

type transitionEngine interface {
	Transition(ctx context.Context, params workflow.TransitionParams) (*workflow.Result, error)
	TransitionInTx(ctx context.Context, tx *gorm.DB, params workflow.TransitionParams) (*workflow.Result, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the petition/decision flow around admin review. Submitting a
// PUBLICATION request auto-queues the market; deciding a request resolves the
// matching status move and runs it in the same transaction as the decision.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.ApprovalRequest, error)
	Decide(ctx context.Context, input DecideInput) (*models.ApprovalRequest, error)
	ListPending(ctx context.Context, actor workflow.Actor) ([]models.ApprovalRequest, error)
	ListByMarket(ctx context.Context, actor workflow.Actor, marketID uuid.UUID) ([]models.ApprovalRequest, error)
}

// ServiceParams wires the approval service's collaborators.
type ServiceParams struct {
	Repo    approvalRepository
	Markets marketSource
	Engine  transitionEngine
	Tx      txRunner
	Outbox  outboxPublisher
}

type service struct {
	repo    approvalRepository
	markets marketSource
	engine  transitionEngine
	tx      txRunner
	outbox  outboxPublisher
}

// NewService builds the approval service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("approval repository required")
	}
	if params.Markets == nil {
		return nil, fmt.Errorf("market source required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("workflow engine required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    params.Repo,
		markets: params.Markets,
		engine:  params.Engine,
		tx:      params.Tx,
		outbox:  params.Outbox,
	}, nil
}

// SubmitInput is an owner's petition for review.
type SubmitInput struct {
	MarketID    uuid.UUID
	RequestType enums.ApprovalRequestType
	Note        *string
	Actor       workflow.Actor
}

// DecideInput is an admin verdict on a pending request.
type DecideInput struct {
	RequestID     uuid.UUID
	Outcome       enums.ApprovalRequestStatus
	AdminResponse *string
	Actor         workflow.Actor
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.ApprovalRequest, error) {
	if input.MarketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "market id required")
	}
	if !input.RequestType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request type")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Actor.Role != enums.ActorRoleOwner {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only market owners may submit requests")
	}

	market, err := s.loadMarket(ctx, input.MarketID)
	if err != nil {
		return nil, err
	}
	if market.OwnerID != input.Actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "market belongs to another owner")
	}
	if err := submitPrecondition(input.RequestType, market.Status); err != nil {
		return nil, err
	}

	if input.RequestType == enums.ApprovalRequestTypePublication {
		if missing := validateForPublication(market); len(missing) > 0 {
			// An incomplete profile cannot sit in the review queue; park the
			// market in needs_editing so the owner sees what to fix.
			note := "profile incomplete: " + strings.Join(missing, ", ")
			if _, err := s.engine.Transition(ctx, workflow.TransitionParams{
				MarketID: market.ID,
				To:       enums.MarketStatusPaidNeedsEditing,
				Action:   enums.WorkflowActionValidationFailed,
				Actor:    input.Actor,
				Note:     &note,
			}); err != nil {
				return nil, err
			}
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "market profile incomplete").
				WithDetails(map[string]any{"missing": missing})
		}
	}

	request := &models.ApprovalRequest{
		ID:          uuid.New(),
		MarketID:    market.ID,
		RequestType: input.RequestType,
		Status:      enums.ApprovalRequestStatusPending,
		Note:        cloneStringPtr(input.Note),
		RequestedBy: input.Actor.UserID,
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.FindPendingWithTx(tx, market.ID, input.RequestType); err == nil {
			return pkgerrors.New(pkgerrors.CodeDuplicateRequest,
				fmt.Sprintf("a pending %s request already exists", input.RequestType))
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending requests")
		}

		if err := s.repo.CreateWithTx(tx, request); err != nil {
			if db.IsUniqueViolation(err, "uq_approval_requests_pending") {
				return pkgerrors.New(pkgerrors.CodeDuplicateRequest,
					fmt.Sprintf("a pending %s request already exists", input.RequestType))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create approval request")
		}

		if input.RequestType == enums.ApprovalRequestTypePublication {
			// Auto-queue: the submit and the queue move commit or fail as one.
			if _, err := s.engine.TransitionInTx(ctx, tx, workflow.TransitionParams{
				MarketID: market.ID,
				To:       enums.MarketStatusPaidInPublicationQueue,
				Action:   enums.WorkflowActionPublicationRequested,
				Actor:    input.Actor,
				Note:     input.Note,
			}); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventApprovalRequested,
			AggregateType: enums.AggregateApprovalRequest,
			AggregateID:   request.ID,
			Version:       1,
			Actor:         buildActor(input.Actor, market.ID),
			Data: payloads.ApprovalRequestedEvent{
				ApprovalRequestID: request.ID,
				MarketID:          market.ID,
				RequestType:       request.RequestType,
				RequestedBy:       request.RequestedBy,
				Note:              deref(request.Note),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if txErr != nil {
		return nil, txErr
	}
	return request, nil
}

func (s *service) Decide(ctx context.Context, input DecideInput) (*models.ApprovalRequest, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if !input.Outcome.IsDecided() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outcome must be approved or rejected")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may decide requests")
	}

	var decided *models.ApprovalRequest
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		request, err := s.repo.FindByIDWithTx(tx, input.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "approval request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load approval request")
		}
		if request.Status != enums.ApprovalRequestStatusPending {
			return pkgerrors.New(pkgerrors.CodeAlreadyDecided, "request already decided")
		}

		market, err := s.markets.FindByIDWithTx(tx, request.MarketID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "market not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load market")
		}

		now := time.Now().UTC()
		adminID := input.Actor.UserID
		request.Status = input.Outcome
		request.AdminResponse = cloneStringPtr(input.AdminResponse)
		request.DecidedBy = &adminID
		request.DecidedAt = &now
		if err := s.repo.UpdateWithTx(tx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update approval request")
		}

		move, err := resolveDecision(request.RequestType, input.Outcome, market.Status)
		if err != nil {
			return err
		}
		if move != nil {
			// The decision row is already stamped in this tx, so the engine's
			// approval guard sees the verdict it demands.
			requestID := request.ID
			if _, err := s.engine.TransitionInTx(ctx, tx, workflow.TransitionParams{
				MarketID:          market.ID,
				To:                move.to,
				Action:            move.action,
				Actor:             input.Actor,
				Note:              request.AdminResponse,
				ApprovalRequestID: &requestID,
			}); err != nil {
				return err
			}
		}

		decided = request
		event := outbox.DomainEvent{
			EventType:     enums.EventApprovalDecided,
			AggregateType: enums.AggregateApprovalRequest,
			AggregateID:   request.ID,
			Version:       1,
			Actor:         buildActor(input.Actor, market.ID),
			Data: payloads.ApprovalDecidedEvent{
				ApprovalRequestID: request.ID,
				MarketID:          market.ID,
				RequestType:       request.RequestType,
				Outcome:           request.Status,
				DecidedBy:         adminID,
				AdminResponse:     deref(request.AdminResponse),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if txErr != nil {
		return nil, txErr
	}
	return decided, nil
}

func (s *service) ListPending(ctx context.Context, actor workflow.Actor) ([]models.ApprovalRequest, error) {
	if actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may view the review queue")
	}
	requests, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending requests")
	}
	return requests, nil
}

func (s *service) ListByMarket(ctx context.Context, actor workflow.Actor, marketID uuid.UUID) ([]models.ApprovalRequest, error) {
	if marketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "market id required")
	}
	if actor.Role != enums.ActorRoleAdmin {
		market, err := s.loadMarket(ctx, marketID)
		if err != nil {
			return nil, err
		}
		if market.OwnerID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "market belongs to another owner")
		}
	}
	requests, err := s.repo.ListByMarketID(ctx, marketID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list market requests")
	}
	return requests, nil
}

func (s *service) loadMarket(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	market, err := s.markets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "market not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load market")
	}
	return market, nil
}

// submitPrecondition pins the market states each request type may be filed
// from. A wrong-state submit is a conflict, not a validation slip: the
// caller's view of the market is stale.
func submitPrecondition(requestType enums.ApprovalRequestType, status enums.MarketStatus) error {
	switch requestType {
	case enums.ApprovalRequestTypePublication:
		if status == enums.MarketStatusPaidUnderCreation {
			return nil
		}
	case enums.ApprovalRequestTypeEditing:
		if status == enums.MarketStatusPublished || status == enums.MarketStatusPaidNeedsEditing {
			return nil
		}
	case enums.ApprovalRequestTypeReactivation:
		if status == enums.MarketStatusInactive {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot submit a %s request while market is %s", requestType, status))
}

// validateForPublication lists what the review queue requires but the profile
// is missing.
func validateForPublication(market *models.Market) []string {
	var missing []string
	if strings.TrimSpace(market.Name) == "" {
		missing = append(missing, "name")
	}
	if market.Description == nil || strings.TrimSpace(*market.Description) == "" {
		missing = append(missing, "description")
	}
	if market.ContactEmail == nil || strings.TrimSpace(*market.ContactEmail) == "" {
		missing = append(missing, "contact_email")
	}
	if strings.TrimSpace(market.Address.Line1) == "" {
		missing = append(missing, "address.line1")
	}
	if strings.TrimSpace(market.Address.City) == "" {
		missing = append(missing, "address.city")
	}
	return missing
}

type decisionMove struct {
	to     enums.MarketStatus
	action enums.WorkflowAction
}

// resolveDecision maps (request type, outcome, current status) onto the status
// move the decision triggers. A nil move decides the request without touching
// the market; rejected EDITING and REACTIVATION requests end that way.
func resolveDecision(requestType enums.ApprovalRequestType, outcome enums.ApprovalRequestStatus, current enums.MarketStatus) (*decisionMove, error) {
	switch requestType {
	case enums.ApprovalRequestTypePublication:
		if current != enums.MarketStatusPaidInPublicationQueue {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("market is %s, publication decisions need %s", current, enums.MarketStatusPaidInPublicationQueue))
		}
		if outcome == enums.ApprovalRequestStatusApproved {
			return &decisionMove{to: enums.MarketStatusPublished, action: enums.WorkflowActionPublicationApproved}, nil
		}
		return &decisionMove{to: enums.MarketStatusPaidNonPublication, action: enums.WorkflowActionPublicationRejected}, nil
	case enums.ApprovalRequestTypeEditing:
		if outcome != enums.ApprovalRequestStatusApproved {
			return nil, nil
		}
		switch current {
		case enums.MarketStatusPublished:
			return &decisionMove{to: enums.MarketStatusPaidNeedsEditing, action: enums.WorkflowActionEditingApproved}, nil
		case enums.MarketStatusPaidNeedsEditing:
			return &decisionMove{to: enums.MarketStatusPaidInPublicationQueue, action: enums.WorkflowActionResubmitted}, nil
		default:
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("market is %s, editing decisions need %s or %s",
					current, enums.MarketStatusPublished, enums.MarketStatusPaidNeedsEditing))
		}
	case enums.ApprovalRequestTypeReactivation:
		if outcome != enums.ApprovalRequestStatusApproved {
			return nil, nil
		}
		if current != enums.MarketStatusInactive {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("market is %s, reactivation decisions need %s", current, enums.MarketStatusInactive))
		}
		return &decisionMove{to: enums.MarketStatusPaidInPublicationQueue, action: enums.WorkflowActionReactivationApproved}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown request type")
	}
}

func buildActor(actor workflow.Actor, marketID uuid.UUID) *outbox.ActorRef {
	market := marketID
	return &outbox.ActorRef{
		UserID:   actor.UserID,
		MarketID: &market,
		Role:     actor.Role.String(),
	}
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	cpy := *value
	return &cpy
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
