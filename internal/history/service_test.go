package history

import (
	"context"
	"errors"
	"testing"

	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeRepository struct {
	createFn func(ctx context.Context, entry *models.WorkflowHistoryEntry) error
	listFn   func(ctx context.Context, marketID uuid.UUID) ([]models.WorkflowHistoryEntry, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, entry *models.WorkflowHistoryEntry) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) ListByMarketID(ctx context.Context, marketID uuid.UUID) ([]models.WorkflowHistoryEntry, error) {
	if f.listFn != nil {
		return f.listFn(ctx, marketID)
	}
	return nil, nil
}

func TestService_RecordTransition(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	note := "queued after payment"
	input := RecordTransitionInput{
		MarketID:    uuid.New(),
		FromStatus:  enums.MarketStatusPaidUnderCreation,
		ToStatus:    enums.MarketStatusPaidInPublicationQueue,
		Action:      enums.WorkflowActionPublicationRequested,
		PerformedBy: uuid.NewString(),
		Note:        &note,
	}

	var created *models.WorkflowHistoryEntry
	repo.createFn = func(ctx context.Context, entry *models.WorkflowHistoryEntry) error {
		created = entry
		return nil
	}

	got, err := svc.RecordTransition(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("RecordTransition error: %v", err)
	}
	if created == nil {
		t.Fatal("expected history entry to be created")
	}
	if created.MarketID != input.MarketID || created.FromStatus != input.FromStatus || created.ToStatus != input.ToStatus {
		t.Fatalf("unexpected history entry data: %+v", created)
	}
	if created.Action != input.Action || created.PerformedBy != input.PerformedBy {
		t.Fatalf("missing action/actor metadata: %+v", created)
	}
	if created.Note == nil || *created.Note != note {
		t.Fatalf("note mismatch: %v", created.Note)
	}
	if got != created {
		t.Fatalf("service should return created entry")
	}
}

func TestService_RecordTransitionValidation(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	valid := RecordTransitionInput{
		MarketID:    uuid.New(),
		FromStatus:  enums.MarketStatusPublished,
		ToStatus:    enums.MarketStatusInactive,
		Action:      enums.WorkflowActionDeactivated,
		PerformedBy: uuid.NewString(),
	}

	tests := []struct {
		name   string
		mutate func(in *RecordTransitionInput)
	}{
		{
			name:   "missing market id",
			mutate: func(in *RecordTransitionInput) { in.MarketID = uuid.Nil },
		},
		{
			name:   "invalid from status",
			mutate: func(in *RecordTransitionInput) { in.FromStatus = enums.MarketStatus("limbo") },
		},
		{
			name:   "invalid to status",
			mutate: func(in *RecordTransitionInput) { in.ToStatus = enums.MarketStatus("limbo") },
		},
		{
			name:   "invalid action",
			mutate: func(in *RecordTransitionInput) { in.Action = enums.WorkflowAction("poked") },
		},
		{
			name:   "missing actor",
			mutate: func(in *RecordTransitionInput) { in.PerformedBy = "" },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			if _, err := svc.RecordTransition(context.Background(), nil, input); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestService_RecordTransitionRepoError(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	expectedErr := errors.New("boom")
	repo.createFn = func(ctx context.Context, entry *models.WorkflowHistoryEntry) error {
		return expectedErr
	}

	if _, err := svc.RecordTransition(context.Background(), nil, RecordTransitionInput{
		MarketID:    uuid.New(),
		FromStatus:  enums.MarketStatusUnpaidUnderCreation,
		ToStatus:    enums.MarketStatusPaymentPending,
		Action:      enums.WorkflowActionPaymentInitiated,
		PerformedBy: uuid.NewString(),
	}); !errors.Is(err, expectedErr) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
}

func TestService_ListByMarketID(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	marketID := uuid.New()
	repo.listFn = func(ctx context.Context, id uuid.UUID) ([]models.WorkflowHistoryEntry, error) {
		if id != marketID {
			t.Fatalf("unexpected market id %s", id)
		}
		return []models.WorkflowHistoryEntry{
			{MarketID: marketID, Action: enums.WorkflowActionPaymentInitiated},
			{MarketID: marketID, Action: enums.WorkflowActionPaymentSettled},
		}, nil
	}

	entries, err := svc.ListByMarketID(context.Background(), marketID)
	if err != nil {
		t.Fatalf("ListByMarketID error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if _, err := svc.ListByMarketID(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected error for nil market id")
	}
}
