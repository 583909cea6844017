package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazario-app/bazario-backend/internal/history"
	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/logger"
	"github.com/bazario-app/bazario-backend/pkg/metrics"
	"github.com/bazario-app/bazario-backend/pkg/outbox"
	"github.com/bazario-app/bazario-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type marketSource interface {
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Market, error)
	UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, from, to enums.MarketStatus) (int64, error)
}

type approvalSource interface {
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.ApprovalRequest, error)
}

type subscriptionSource interface {
	HasActiveWithTx(tx *gorm.DB, marketID uuid.UUID) (bool, error)
}

type historyRecorder interface {
	RecordTransition(ctx context.Context, tx *gorm.DB, input history.RecordTransitionInput) (*models.WorkflowHistoryEntry, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies who is driving a transition for audit and outbox stamps.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// SystemActor is the audited identity for sweeps and other unattended moves.
func SystemActor() Actor {
	return Actor{Role: enums.ActorRoleSystem}
}

// AuditID renders the performed_by value stored in history entries.
func (a Actor) AuditID() string {
	if a.Role == enums.ActorRoleSystem {
		return "system"
	}
	return a.UserID.String()
}

func (a Actor) validate() error {
	if !a.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid actor role")
	}
	if a.Role != enums.ActorRoleSystem && a.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return nil
}

func (a Actor) ref() *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: a.UserID,
		Role:   a.Role.String(),
	}
}

// TransitionParams describes one requested move through the status machine.
type TransitionParams struct {
	MarketID          uuid.UUID
	To                enums.MarketStatus
	Action            enums.WorkflowAction
	Actor             Actor
	Note              *string
	ApprovalRequestID *uuid.UUID
}

// ForceParams describes an operator override. Only inactive and
// paid_needs_editing are legal targets.
type ForceParams struct {
	MarketID uuid.UUID
	To       enums.MarketStatus
	Actor    Actor
	Note     *string
}

// Result reports a completed move.
type Result struct {
	MarketID uuid.UUID
	From     enums.MarketStatus
	To       enums.MarketStatus
	Action   enums.WorkflowAction
}

// Engine serializes every market status mutation. All guards re-check the
// persisted state inside the transaction; the guarded UPDATE is the final
// arbiter under concurrency. TransitionInTx joins a caller-owned transaction
// so request decisions and settlements stay atomic with their own writes.
type Engine interface {
	Transition(ctx context.Context, params TransitionParams) (*Result, error)
	TransitionInTx(ctx context.Context, tx *gorm.DB, params TransitionParams) (*Result, error)
	Force(ctx context.Context, params ForceParams) (*Result, error)
}

// EngineParams wires the engine's collaborators.
type EngineParams struct {
	Markets       marketSource
	Approvals     approvalSource
	Subscriptions subscriptionSource
	History       historyRecorder
	Tx            txRunner
	Outbox        outboxPublisher
	Metrics       *metrics.WorkflowMetrics
	Logger        *logger.Logger
}

type engine struct {
	markets       marketSource
	approvals     approvalSource
	subscriptions subscriptionSource
	history       historyRecorder
	tx            txRunner
	outbox        outboxPublisher
	metrics       *metrics.WorkflowMetrics
	logg          *logger.Logger
}

// NewEngine builds the workflow engine. Metrics and logger are optional.
func NewEngine(params EngineParams) (Engine, error) {
	if params.Markets == nil {
		return nil, fmt.Errorf("market source required")
	}
	if params.Approvals == nil {
		return nil, fmt.Errorf("approval source required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription source required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history recorder required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &engine{
		markets:       params.Markets,
		approvals:     params.Approvals,
		subscriptions: params.Subscriptions,
		history:       params.History,
		tx:            params.Tx,
		outbox:        params.Outbox,
		metrics:       params.Metrics,
		logg:          params.Logger,
	}, nil
}

func (e *engine) Transition(ctx context.Context, params TransitionParams) (result *Result, err error) {
	defer func() {
		e.observe(result, err)
	}()

	if err := params.validate(); err != nil {
		return nil, err
	}

	txErr := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := e.transition(ctx, tx, params)
		if err != nil {
			return err
		}
		result = moved
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

func (e *engine) TransitionInTx(ctx context.Context, tx *gorm.DB, params TransitionParams) (result *Result, err error) {
	defer func() {
		e.observe(result, err)
	}()

	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return e.transition(ctx, tx, params)
}

func (p TransitionParams) validate() error {
	if p.MarketID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "market id required")
	}
	if !p.To.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if !p.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid workflow action")
	}
	return p.Actor.validate()
}

// transition runs the full guard chain and apply step on the provided tx.
func (e *engine) transition(ctx context.Context, tx *gorm.DB, params TransitionParams) (*Result, error) {
	market, err := e.loadMarket(tx, params.MarketID)
	if err != nil {
		return nil, err
	}

	edge, ok := EdgeFor(market.Status, params.To, params.Action)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeIllegalTransition,
			fmt.Sprintf("no transition from %s to %s via %s", market.Status, params.To, params.Action))
	}

	if edge.Approval != nil {
		if err := e.checkApproval(tx, market, edge, params.ApprovalRequestID); err != nil {
			return nil, err
		}
	}

	if edge.NeedsActiveSubscription {
		active, err := e.subscriptions.HasActiveWithTx(tx, market.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active subscription")
		}
		if !active {
			return nil, pkgerrors.New(pkgerrors.CodePaymentRequired, "active subscription required")
		}
	}

	return e.apply(ctx, tx, market, params.To, params.Action, params.Actor, params.Note)
}

func (e *engine) Force(ctx context.Context, params ForceParams) (result *Result, err error) {
	defer func() {
		e.observe(result, err)
	}()

	if params.MarketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "market id required")
	}
	if !IsForceTarget(params.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cannot force a market to %s", params.To))
	}
	if err := params.Actor.validate(); err != nil {
		return nil, err
	}
	if params.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may force a status")
	}

	txErr := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		market, err := e.loadMarket(tx, params.MarketID)
		if err != nil {
			return err
		}
		if market.Status == params.To {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "market already in target status")
		}

		moved, err := e.apply(ctx, tx, market, params.To, enums.WorkflowActionOperatorForced, params.Actor, params.Note)
		if err != nil {
			return err
		}
		result = moved
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

// apply performs the shared tail of every move: the guarded status update,
// the history append, and the best-effort outbox emit, all on the caller's tx.
func (e *engine) apply(ctx context.Context, tx *gorm.DB, market *models.Market, to enums.MarketStatus, action enums.WorkflowAction, actor Actor, note *string) (*Result, error) {
	affected, err := e.markets.UpdateStatusWithTx(tx, market.ID, market.Status, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update market status")
	}
	if affected != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeIllegalTransition, "market status changed concurrently")
	}

	if _, err := e.history.RecordTransition(ctx, tx, history.RecordTransitionInput{
		MarketID:    market.ID,
		FromStatus:  market.Status,
		ToStatus:    to,
		Action:      action,
		PerformedBy: actor.AuditID(),
		Note:        note,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record history entry")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventMarketStatusChanged,
		AggregateType: enums.AggregateMarket,
		AggregateID:   market.ID,
		Version:       1,
		Actor:         actor.ref(),
		Data: payloads.MarketStatusChangedEvent{
			MarketID:    market.ID,
			FromStatus:  market.Status,
			ToStatus:    to,
			Action:      action,
			PerformedBy: actor.AuditID(),
			Note:        deref(note),
		},
	}
	if err := e.outbox.Emit(ctx, tx, event); err != nil {
		// Delivery is asynchronous anyway; a failed emit must never undo
		// the status move.
		if e.logg != nil {
			logCtx := e.logg.WithFields(ctx, map[string]any{
				"market_id": market.ID.String(),
				"action":    action.String(),
			})
			e.logg.Error(logCtx, "emit status change event", err)
		}
	}

	return &Result{
		MarketID: market.ID,
		From:     market.Status,
		To:       to,
		Action:   action,
	}, nil
}

func (e *engine) loadMarket(tx *gorm.DB, id uuid.UUID) (*models.Market, error) {
	market, err := e.markets.FindByIDWithTx(tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "market not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load market")
	}
	return market, nil
}

func (e *engine) checkApproval(tx *gorm.DB, market *models.Market, edge Edge, requestID *uuid.UUID) error {
	if requestID == nil || *requestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeApprovalRequired, "transition requires a decided approval request")
	}
	request, err := e.approvals.FindByIDWithTx(tx, *requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeApprovalRequired, "approval request not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load approval request")
	}
	if request.MarketID != market.ID {
		return pkgerrors.New(pkgerrors.CodeApprovalRequired, "approval request belongs to another market")
	}
	if request.RequestType != edge.Approval.RequestType {
		return pkgerrors.New(pkgerrors.CodeApprovalRequired,
			fmt.Sprintf("transition requires a %s request", edge.Approval.RequestType))
	}
	if request.Status != edge.Approval.Decision {
		return pkgerrors.New(pkgerrors.CodeApprovalRequired,
			fmt.Sprintf("approval request must be %s", edge.Approval.Decision))
	}
	return nil
}

func (e *engine) observe(result *Result, err error) {
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			e.metrics.IncFailure(string(typed.Code()))
		}
		return
	}
	if result != nil {
		e.metrics.IncTransition(result.From.String(), result.To.String(), result.Action.String())
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
