package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"pharmafront/internal/domain"
	"pharmafront/internal/repository"
)

// AdminService is the generic CRUD front for admin-managed resources.
// validate runs before every write; create tells inserts from updates.
type AdminService[T any] struct {
	repo     repository.CRUD[T]
	validate func(v T, create bool) error
}

func NewAdminService[T any](repo repository.CRUD[T], validate func(v T, create bool) error) *AdminService[T] {
	return &AdminService[T]{repo: repo, validate: validate}
}

func (s *AdminService[T]) List(ctx context.Context, p repository.ListParams) ([]T, error) {
	return s.repo.List(ctx, p)
}

func (s *AdminService[T]) Get(ctx context.Context, id int64) (*T, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

func (s *AdminService[T]) Create(ctx context.Context, v T) (*T, error) {
	if s.validate != nil {
		if err := s.validate(v, true); err != nil {
			return nil, err
		}
	}
	return s.repo.Create(ctx, v)
}

func (s *AdminService[T]) Update(ctx context.Context, id int64, v T) (*T, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	if s.validate != nil {
		if err := s.validate(v, false); err != nil {
			return nil, err
		}
	}
	return s.repo.Update(ctx, id, v)
}

func (s *AdminService[T]) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

var hundred = decimal.NewFromInt(100)

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func badEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err != nil
}

func ValidateCategory(c domain.Category, _ bool) error {
	if blank(c.Name) {
		return invalidFields(map[string]string{"name": "El nombre es obligatorio"})
	}
	return nil
}

func ValidateUser(u domain.User, create bool) error {
	fields := map[string]string{}
	if blank(u.Username) {
		fields["username"] = "El usuario es obligatorio"
	}
	if badEmail(u.Email) {
		fields["email"] = "El correo electrónico no es válido"
	}
	switch u.Role {
	case domain.RoleAdmin, domain.RoleSeller, domain.RoleMarketing, domain.RoleCustomer:
	default:
		fields["role"] = "Rol desconocido"
	}
	if create && u.Password == "" {
		fields["password"] = "La contraseña es obligatoria"
	} else if u.Password != "" && len(u.Password) < 6 {
		fields["password"] = "La contraseña debe tener al menos 6 caracteres"
	}
	return invalidFields(fields)
}

func ValidateCustomer(c domain.Customer, _ bool) error {
	fields := map[string]string{}
	if blank(c.Name) {
		fields["name"] = "El nombre es obligatorio"
	}
	if badEmail(c.Email) {
		fields["email"] = "El correo electrónico no es válido"
	}
	seen := map[int]bool{}
	for _, a := range c.ShippingAddresses {
		if seen[a.Number] {
			fields["shipping_addresses"] = "Los números de dirección no pueden repetirse"
		}
		seen[a.Number] = true
	}
	return invalidFields(fields)
}

func ValidatePriceList(pl domain.PriceList, _ bool) error {
	fields := map[string]string{}
	if blank(pl.Name) {
		fields["name"] = "El nombre es obligatorio"
	}
	if pl.DiscountPercentage.IsNegative() || pl.DiscountPercentage.GreaterThan(hundred) {
		fields["discount_percentage"] = "El descuento debe estar entre 0 y 100"
	}
	return invalidFields(fields)
}

func ValidateSalesGroup(g domain.SalesGroup, _ bool) error {
	if blank(g.Name) {
		return invalidFields(map[string]string{"name": "El nombre es obligatorio"})
	}
	return nil
}
