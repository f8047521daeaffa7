package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/security"
)

// Service manages the shop profile and the inventory password.
type Service interface {
	Ensure(ctx context.Context) (*models.ShopProfile, error)
	Get(ctx context.Context) (*models.ShopProfile, error)
	Update(ctx context.Context, input UpdateInput) (*models.ShopProfile, error)
	SetInventoryPassword(ctx context.Context, password string) error
	VerifyInventoryPassword(ctx context.Context, password string) (bool, error)
	DefaultTaxRate(ctx context.Context) (decimal.Decimal, error)
}

// UpdateInput carries optional profile mutations.
type UpdateInput struct {
	ShopName       *string
	GSTIN          *string
	Phone          *string
	Address        *string
	DefaultTaxRate *decimal.Decimal
	InvoicePrefix  *string
}

type service struct {
	repo        *Repository
	passwordCfg config.PasswordConfig
}

// NewService constructs a profile service instance.
func NewService(repo *Repository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg}, nil
}

// Ensure makes the singleton row exist. Mains call this once on boot so the
// rest of the codebase can assume the profile is present.
func (s *service) Ensure(ctx context.Context) (*models.ShopProfile, error) {
	profile, err := s.repo.Ensure(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensuring shop profile")
	}
	return profile, nil
}

func (s *service) Get(ctx context.Context) (*models.ShopProfile, error) {
	profile, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop profile not initialized")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shop profile")
	}
	return profile, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.ShopProfile, error) {
	profile, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if input.ShopName != nil {
		if strings.TrimSpace(*input.ShopName) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop name cannot be blank")
		}
		profile.ShopName = strings.TrimSpace(*input.ShopName)
	}
	if input.GSTIN != nil {
		profile.GSTIN = normalizeOptional(input.GSTIN)
	}
	if input.Phone != nil {
		profile.Phone = normalizeOptional(input.Phone)
	}
	if input.Address != nil {
		profile.Address = normalizeOptional(input.Address)
	}
	if input.DefaultTaxRate != nil {
		if input.DefaultTaxRate.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "default tax rate cannot be negative")
		}
		profile.DefaultTaxRate = *input.DefaultTaxRate
	}
	if input.InvoicePrefix != nil {
		prefix := strings.ToUpper(strings.TrimSpace(*input.InvoicePrefix))
		if prefix == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice prefix cannot be blank")
		}
		if len(prefix) > 10 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice prefix too long")
		}
		profile.InvoicePrefix = prefix
	}

	if err := s.repo.Save(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving shop profile")
	}
	return profile, nil
}

func (s *service) SetInventoryPassword(ctx context.Context, password string) error {
	if strings.TrimSpace(password) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "password cannot be blank")
	}
	profile, err := s.Get(ctx)
	if err != nil {
		return err
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}
	profile.InventoryPasswordHash = &hash
	if err := s.repo.Save(ctx, profile); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving shop profile")
	}
	return nil
}

// VerifyInventoryPassword checks the supplied password against the stored
// hash. A shop with no password set is open, matching the POS behavior of a
// fresh install.
func (s *service) VerifyInventoryPassword(ctx context.Context, password string) (bool, error) {
	profile, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	if profile.InventoryPasswordHash == nil || *profile.InventoryPasswordHash == "" {
		return true, nil
	}
	ok, err := security.VerifyPassword(password, *profile.InventoryPasswordHash)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	return ok, nil
}

func (s *service) DefaultTaxRate(ctx context.Context) (decimal.Decimal, error) {
	profile, err := s.Get(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return profile.DefaultTaxRate, nil
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
