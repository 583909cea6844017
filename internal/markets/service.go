package markets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/bazario-app/bazario-backend/pkg/db"
	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type marketRepository interface {
	Create(ctx context.Context, dto CreateMarketDTO) (*models.Market, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Market, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Market, error)
	Update(ctx context.Context, market *models.Market) error
}

type credentialSealer interface {
	SealString(plaintext string) (string, error)
}

// Service exposes market profile operations. Status never moves here; every
// status mutation flows through the workflow engine.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateMarketInput) (*MarketDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*MarketDTO, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]MarketDTO, error)
	UpdateProfile(ctx context.Context, actorID, marketID uuid.UUID, input UpdateMarketInput) (*MarketDTO, error)
	UpdateGatewayConfig(ctx context.Context, actorID, marketID uuid.UUID, input UpdateGatewayInput) (*MarketDTO, error)
}

type service struct {
	repo   marketRepository
	sealer credentialSealer
}

// NewService builds a market service with the provided collaborators.
func NewService(repo marketRepository, sealer credentialSealer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("market repository required")
	}
	if sealer == nil {
		return nil, fmt.Errorf("credential sealer required")
	}
	return &service{repo: repo, sealer: sealer}, nil
}

// CreateMarketInput captures the data required to open a storefront.
type CreateMarketInput struct {
	Name         string
	Slug         string
	Description  *string
	ContactEmail *string
	Phone        *string
	Address      types.Address
	Social       *types.Social
}

// UpdateMarketInput captures the allowed market profile fields for mutation.
type UpdateMarketInput struct {
	Name         *string
	Description  *string
	ContactEmail *string
	Phone        *string
	Address      *types.Address
	Social       *types.Social
}

// UpdateGatewayInput switches the charge route and replaces the personal
// config bag. An empty APIKey keeps the previously sealed credential.
type UpdateGatewayInput struct {
	GatewayType enums.PaymentGatewayType
	GatewayName string
	APIKey      string
	MerchantID  string
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateMarketInput) (*MarketDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug cannot be derived from name")
	}

	market, err := s.repo.Create(ctx, CreateMarketDTO{
		OwnerID:      ownerID,
		Name:         name,
		Slug:         slug,
		Description:  input.Description,
		ContactEmail: input.ContactEmail,
		Phone:        input.Phone,
		Address:      input.Address,
		Social:       input.Social,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "uq_markets_slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create market")
	}
	return FromModel(market), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*MarketDTO, error) {
	market, err := s.loadMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(market), nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]MarketDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	markets, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list markets")
	}
	dtos := make([]MarketDTO, 0, len(markets))
	for i := range markets {
		dtos = append(dtos, *FromModel(&markets[i]))
	}
	return dtos, nil
}

func (s *service) UpdateProfile(ctx context.Context, actorID, marketID uuid.UUID, input UpdateMarketInput) (*MarketDTO, error) {
	market, err := s.loadOwnedMarket(ctx, actorID, marketID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		market.Name = name
	}
	if input.Description != nil {
		market.Description = cloneStringPtr(input.Description)
	}
	if input.ContactEmail != nil {
		market.ContactEmail = cloneStringPtr(input.ContactEmail)
	}
	if input.Phone != nil {
		market.Phone = cloneStringPtr(input.Phone)
	}
	if input.Address != nil {
		market.Address = *input.Address
	}
	if input.Social != nil {
		cpy := *input.Social
		market.Social = &cpy
	}

	if err := s.repo.Update(ctx, market); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update market")
	}
	return FromModel(market), nil
}

func (s *service) UpdateGatewayConfig(ctx context.Context, actorID, marketID uuid.UUID, input UpdateGatewayInput) (*MarketDTO, error) {
	if !input.GatewayType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid gateway type")
	}

	market, err := s.loadOwnedMarket(ctx, actorID, marketID)
	if err != nil {
		return nil, err
	}

	market.PaymentGatewayType = input.GatewayType

	if input.GatewayType == enums.PaymentGatewayTypePersonal {
		bag := types.GatewayConfig{
			GatewayName: strings.TrimSpace(strings.ToLower(input.GatewayName)),
			MerchantID:  strings.TrimSpace(input.MerchantID),
		}
		switch {
		case input.APIKey != "":
			sealed, err := s.sealer.SealString(input.APIKey)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal api key")
			}
			bag.APIKey = sealed
		case market.PersonalGatewayConfig != nil:
			// Re-submitting the bag without a key keeps the sealed one.
			bag.APIKey = market.PersonalGatewayConfig.APIKey
		}
		market.PersonalGatewayConfig = &bag
	}
	// Switching back to platform leaves the stored bag untouched so owners
	// can flip routes without re-entering credentials.

	if err := s.repo.Update(ctx, market); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update market gateway")
	}
	return FromModel(market), nil
}

func (s *service) loadMarket(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "market id is required")
	}
	market, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "market not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load market")
	}
	return market, nil
}

func (s *service) loadOwnedMarket(ctx context.Context, actorID, marketID uuid.UUID) (*models.Market, error) {
	market, err := s.loadMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market.OwnerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "market belongs to another owner")
	}
	return market, nil
}

// Slugify lowercases and collapses a name into a URL-safe slug.
func Slugify(value string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteRune('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	cpy := *value
	return &cpy
}
