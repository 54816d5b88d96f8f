package products

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/db/models"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
)

// CreateInput carries the fields a branch admin supplies for a new listing.
type CreateInput struct {
	Name     string          `json:"name" validate:"required,min=2,max=200"`
	Category string          `json:"category" validate:"max=120"`
	Price    decimal.Decimal `json:"price" validate:"required"`
	Stock    int             `json:"stock" validate:"min=0"`
	Variants []VariantInput  `json:"variants" validate:"dive"`
}

// UpdateInput carries the mutable listing fields.
type UpdateInput struct {
	Name     *string          `json:"name" validate:"omitempty,min=2,max=200"`
	Category *string          `json:"category" validate:"omitempty,max=120"`
	Price    *decimal.Decimal `json:"price"`
	IsActive *bool            `json:"isActive"`
}

// VariantInput is one priced, stocked sub-unit.
type VariantInput struct {
	Color string          `json:"color" validate:"max=60"`
	Size  string          `json:"size" validate:"max=60"`
	Price decimal.Decimal `json:"price" validate:"required"`
	Stock int             `json:"stock" validate:"min=0"`
}

// Service is the branch catalog surface.
type Service interface {
	Create(ctx context.Context, act actor.Actor, branchID uuid.UUID, in CreateInput) (*models.Product, error)
	Update(ctx context.Context, act actor.Actor, branchID, productID uuid.UUID, in UpdateInput) (*models.Product, error)
	Delete(ctx context.Context, act actor.Actor, branchID, productID uuid.UUID) error
	GetByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListByBranch(ctx context.Context, act actor.Actor, branchID uuid.UUID) ([]models.Product, error)
	// ReplaceVariants swaps the variant list; the product's stock is
	// restated to the sum of the new variants' stocks in the same
	// transaction so the sum invariant cannot be observed broken.
	ReplaceVariants(ctx context.Context, act actor.Actor, branchID, productID uuid.UUID, variants []VariantInput) (*models.Product, error)
}

type service struct {
	repo Repository
}

// NewService builds the product service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("products: repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, act actor.Actor, branchID uuid.UUID, in CreateInput) (*models.Product, error) {
	if !act.CanManageBranch(branchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to manage this branch's catalog")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "product name is required")
	}
	if in.Price.IsNegative() {
		return nil, apperrors.New(apperrors.CodeValidation, "price cannot be negative")
	}
	if in.Stock < 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "stock cannot be negative")
	}

	product := &models.Product{
		ID:       uuid.New(),
		BranchID: branchID,
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
		Price:    in.Price,
		Stock:    in.Stock,
		IsActive: true,
	}
	if len(in.Variants) > 0 {
		product.Stock = 0
		for _, v := range in.Variants {
			if v.Stock < 0 || v.Price.IsNegative() {
				return nil, apperrors.New(apperrors.CodeValidation, "variant price and stock cannot be negative")
			}
			product.Variants = append(product.Variants, models.ProductVariant{
				ID:    uuid.New(),
				Color: v.Color,
				Size:  v.Size,
				Price: v.Price,
				Stock: v.Stock,
			})
			product.Stock += v.Stock
		}
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to create product")
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, act actor.Actor, branchID, productID uuid.UUID, in UpdateInput) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, act, branchID, productID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperrors.New(apperrors.CodeValidation, "product name is required")
		}
		product.Name = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		product.Category = strings.TrimSpace(*in.Category)
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, apperrors.New(apperrors.CodeValidation, "price cannot be negative")
		}
		product.Price = *in.Price
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to update product")
	}
	return product, nil
}

func (s *service) Delete(ctx context.Context, act actor.Actor, branchID, productID uuid.UUID) error {
	if !act.CanManageBranch(branchID) {
		return apperrors.New(apperrors.CodeForbidden, "not allowed to manage this branch's catalog")
	}
	ok, err := s.repo.Delete(ctx, branchID, productID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to delete product")
	}
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "product not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load product")
	}
	return product, nil
}

func (s *service) ListByBranch(ctx context.Context, act actor.Actor, branchID uuid.UUID) ([]models.Product, error) {
	// Branch staff see inactive listings too; everyone else only live ones.
	activeOnly := !act.CanManageBranch(branchID)
	products, err := s.repo.ListByBranch(ctx, branchID, activeOnly)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list products")
	}
	return products, nil
}

func (s *service) ReplaceVariants(ctx context.Context, act actor.Actor, branchID, productID uuid.UUID, variants []VariantInput) (*models.Product, error) {
	if _, err := s.ownedProduct(ctx, act, branchID, productID); err != nil {
		return nil, err
	}

	rows := make([]models.ProductVariant, 0, len(variants))
	for _, v := range variants {
		if v.Stock < 0 || v.Price.IsNegative() {
			return nil, apperrors.New(apperrors.CodeValidation, "variant price and stock cannot be negative")
		}
		rows = append(rows, models.ProductVariant{
			ID:    uuid.New(),
			Color: v.Color,
			Size:  v.Size,
			Price: v.Price,
			Stock: v.Stock,
		})
	}

	if err := s.repo.ReplaceVariants(ctx, productID, rows); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to replace variants")
	}
	return s.GetByID(ctx, productID)
}

func (s *service) ownedProduct(ctx context.Context, act actor.Actor, branchID, productID uuid.UUID) (*models.Product, error) {
	if !act.CanManageBranch(branchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to manage this branch's catalog")
	}
	product, err := s.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.BranchID != branchID {
		return nil, apperrors.New(apperrors.CodeNotFound, "product not found")
	}
	return product, nil
}
