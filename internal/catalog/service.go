package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

const lookupCandidateLimit = 10

// Service exposes catalog management and POS lookup operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, productID int64, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID int64) error
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ListProducts(ctx context.Context, query ListQuery) (*ListResult, error)
	Lookup(ctx context.Context, query string) (*LookupResult, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name         string
	SKU          *string
	Barcode      *string
	Collection   *string
	PriceInclTax decimal.Decimal
	TaxRate      *decimal.Decimal
	CostPrice    decimal.Decimal
	TracksStock  bool
	StockQty     decimal.Decimal
	Unit         string
	HSN          *string
	Description  *string
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name         *string
	SKU          *string
	Barcode      *string
	Collection   *string
	PriceInclTax *decimal.Decimal
	TaxRate      *decimal.Decimal
	CostPrice    *decimal.Decimal
	TracksStock  *bool
	Unit         *string
	HSN          *string
	Description  *string
}

// LookupResult is either a single resolved product or a candidate list when
// the query matches several.
type LookupResult struct {
	Product    *models.Product
	Candidates []models.Product
}

type defaultTaxRater interface {
	DefaultTaxRate(ctx context.Context) (decimal.Decimal, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    *Repository
	tx      txRunner
	profile defaultTaxRater
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, tx txRunner, profile defaultTaxRater) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if profile == nil {
		return nil, fmt.Errorf("profile reader required")
	}
	return &service{repo: repo, tx: tx, profile: profile}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.PriceInclTax.LessThan(decimal.NewFromFloat(0.01)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be at least 0.01")
	}
	if input.CostPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost price cannot be negative")
	}

	taxRate := decimal.Zero
	if input.TaxRate != nil {
		taxRate = *input.TaxRate
	} else {
		rate, err := s.profile.DefaultTaxRate(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading default tax rate")
		}
		taxRate = rate
	}
	if taxRate.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate cannot be negative")
	}

	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "pcs"
	}

	product := &models.Product{
		Name:         strings.TrimSpace(input.Name),
		Barcode:      normalizeOptional(input.Barcode),
		Collection:   normalizeOptional(input.Collection),
		PriceInclTax: input.PriceInclTax.Round(2),
		TaxRate:      taxRate,
		CostPrice:    input.CostPrice.Round(2),
		TracksStock:  input.TracksStock,
		StockQty:     input.StockQty,
		Unit:         unit,
		HSN:          normalizeOptional(input.HSN),
		Description:  input.Description,
	}
	if sku := normalizeOptional(input.SKU); sku != nil {
		product.SKU = *sku
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, product); err != nil {
			return err
		}
		// Identity-derived codes can only be filled in after the insert.
		changed := false
		if product.SKU == "" {
			product.SKU = DeriveSKU(product.Name, product.Collection, product.ID)
			changed = true
		}
		if product.Barcode == nil {
			code := DeriveBarcode(product.ID)
			product.Barcode = &code
			changed = true
		}
		if !changed {
			return nil
		}
		_, err := repo.Save(ctx, product)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku or barcode already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating product")
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID int64, input UpdateProductInput) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be blank")
		}
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.SKU != nil {
		if sku := normalizeOptional(input.SKU); sku != nil {
			product.SKU = *sku
		}
	}
	if input.Barcode != nil {
		product.Barcode = normalizeOptional(input.Barcode)
	}
	if input.Collection != nil {
		product.Collection = normalizeOptional(input.Collection)
	}
	if input.PriceInclTax != nil {
		if input.PriceInclTax.LessThan(decimal.NewFromFloat(0.01)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be at least 0.01")
		}
		product.PriceInclTax = input.PriceInclTax.Round(2)
	}
	if input.TaxRate != nil {
		if input.TaxRate.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate cannot be negative")
		}
		product.TaxRate = *input.TaxRate
	}
	if input.CostPrice != nil {
		if input.CostPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost price cannot be negative")
		}
		product.CostPrice = input.CostPrice.Round(2)
	}
	if input.TracksStock != nil {
		product.TracksStock = *input.TracksStock
	}
	if input.Unit != nil && strings.TrimSpace(*input.Unit) != "" {
		product.Unit = strings.TrimSpace(*input.Unit)
	}
	if input.HSN != nil {
		product.HSN = normalizeOptional(input.HSN)
	}
	if input.Description != nil {
		product.Description = input.Description
	}

	if _, err := s.repo.Save(ctx, product); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku or barcode already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating product")
	}
	return product, nil
}

func (s *service) DeleteProduct(ctx context.Context, productID int64) error {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting product")
	}
	return nil
}

func (s *service) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, query ListQuery) (*ListResult, error) {
	result, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing products")
	}
	return result, nil
}

// Lookup resolves a POS query: exact barcode first, then name/SKU substring.
// A single hit resolves to the product, several hits return candidates.
func (s *service) Lookup(ctx context.Context, query string) (*LookupResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}

	product, err := s.repo.FindByBarcode(ctx, query)
	if err == nil {
		return &LookupResult{Product: product}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "barcode lookup")
	}

	matches, err := s.repo.SearchByText(ctx, query, lookupCandidateLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "product search")
	}
	switch len(matches) {
	case 0:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	case 1:
		match := matches[0]
		return &LookupResult{Product: &match}, nil
	default:
		return &LookupResult{Candidates: matches}, nil
	}
}

// DeriveSKU builds a stable SKU from the product name, optional collection,
// and the numeric identity assigned on insert.
func DeriveSKU(name string, collection *string, id int64) string {
	prefix := initials(name, 3)
	if collection != nil {
		if c := initials(*collection, 2); c != "" {
			prefix = prefix + "-" + c
		}
	}
	if prefix == "" {
		prefix = "PRD"
	}
	return fmt.Sprintf("%s-%04d", prefix, id)
}

// DeriveBarcode builds an in-store barcode from the numeric identity.
// The leading 2 marks store-internal codes in EAN numbering.
func DeriveBarcode(id int64) string {
	return fmt.Sprintf("2%011d", id)
}

func initials(value string, max int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(value)) {
		if b.Len() >= max {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
