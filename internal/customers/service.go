package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// CreateCustomerInput carries the fields for a new customer.
type CreateCustomerInput struct {
	Name    string
	Phone   *string
	Email   *string
	Address *string
	GSTIN   *string
}

// UpdateCustomerInput applies a partial update; nil fields are left alone.
type UpdateCustomerInput struct {
	Name    *string
	Phone   *string
	Email   *string
	Address *string
	GSTIN   *string
}

// Service exposes the customer book.
type Service interface {
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	ListCustomers(ctx context.Context, query ListQuery) (*ListResult, error)
	UpdateCustomer(ctx context.Context, id int64, input UpdateCustomerInput) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
}

type service struct {
	repo *Repository
}

// NewService constructs a customer service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}

	customer := &models.Customer{
		Name:    name,
		Phone:   normalizeOptional(input.Phone),
		Email:   normalizeOptional(input.Email),
		Address: normalizeOptional(input.Address),
		GSTIN:   normalizeGSTIN(input.GSTIN),
	}
	created, err := s.repo.Create(ctx, customer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating customer")
	}
	return created, nil
}

func (s *service) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer")
	}
	return customer, nil
}

func (s *service) ListCustomers(ctx context.Context, query ListQuery) (*ListResult, error) {
	result, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing customers")
	}
	return result, nil
}

func (s *service) UpdateCustomer(ctx context.Context, id int64, input UpdateCustomerInput) (*models.Customer, error) {
	customer, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name cannot be blank")
		}
		customer.Name = name
	}
	if input.Phone != nil {
		customer.Phone = normalizeOptional(input.Phone)
	}
	if input.Email != nil {
		customer.Email = normalizeOptional(input.Email)
	}
	if input.Address != nil {
		customer.Address = normalizeOptional(input.Address)
	}
	if input.GSTIN != nil {
		customer.GSTIN = normalizeGSTIN(input.GSTIN)
	}

	if err := s.repo.Save(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating customer")
	}
	return customer, nil
}

// DeleteCustomer removes the record. Invoices that referenced it keep their
// snapshot name and drop the link.
func (s *service) DeleteCustomer(ctx context.Context, id int64) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting customer")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return nil
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

func normalizeGSTIN(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.ToUpper(strings.TrimSpace(*value))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
