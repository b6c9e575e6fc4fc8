package service

import (
	"context"
	"errors"
	"strings"

	"pharmafront/internal/apperr"
	"pharmafront/internal/domain"
	"pharmafront/internal/repository"
)

// ProductService wraps admin product management with client-side checks
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

var ErrInvalidInput = errors.New("invalid input")

// invalidInput carries a Spanish message for the UI and unwraps to ErrInvalidInput.
func invalidInput(msg string) error {
	return &apperr.AppError{Kind: apperr.Invalid, PublicMsg: msg, Err: ErrInvalidInput}
}

func invalidFields(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &apperr.AppError{Kind: apperr.Invalid, PublicMsg: "Revise los campos marcados.", Fields: fields, Err: ErrInvalidInput}
}

func validateProduct(p domain.Product) error {
	fields := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		fields["name"] = "El nombre es obligatorio"
	}
	if strings.TrimSpace(p.SKU) == "" {
		fields["sku"] = "El SKU es obligatorio"
	}
	if p.Price.IsNegative() {
		fields["price"] = "El precio no puede ser negativo"
	}
	if p.Stock < 0 {
		fields["stock"] = "El stock no puede ser negativo"
	}
	return invalidFields(fields)
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, p)
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID <= 0 {
		return nil, ErrInvalidInput
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, p.ID, p)
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *ProductService) List(ctx context.Context, p repository.ListParams) ([]domain.Product, error) {
	return s.repo.List(ctx, p)
}
