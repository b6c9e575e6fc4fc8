// Package repository holds the resource services: one REST endpoint, one method.
package repository

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"pharmafront/internal/domain"
)

// ListParams shape every paginated list request
type ListParams struct {
	Skip    int
	Limit   int
	Search  string
	Filters map[string]string
}

// Query renders the params as ?skip=&limit=&search=&<filters>
func (p ListParams) Query() url.Values {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(p.Skip))
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		q.Set("search", s)
	}
	for k, v := range p.Filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// CRUD is the shape shared by every admin-managed resource
type CRUD[T any] interface {
	List(ctx context.Context, p ListParams) ([]T, error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, v T) (*T, error)
	Update(ctx context.Context, id int64, v T) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// AuthRepository talks to the identity endpoints
type AuthRepository interface {
	Login(ctx context.Context, username, password string) (*domain.Token, error)
	Me(ctx context.Context) (*domain.User, error)
}

type (
	ProductRepository    = CRUD[domain.Product]
	CategoryRepository   = CRUD[domain.Category]
	UserRepository       = CRUD[domain.User]
	CustomerRepository   = CRUD[domain.Customer]
	PriceListRepository  = CRUD[domain.PriceList]
	SalesGroupRepository = CRUD[domain.SalesGroup]
)

// OrderRepository covers checkout, staff order construction and order management
type OrderRepository interface {
	List(ctx context.Context, p ListParams) ([]domain.Order, error)
	Get(ctx context.Context, id int64) (*domain.Order, error)
	Create(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error)
	CreateForCustomer(ctx context.Context, req domain.CreateCustomerOrderRequest) (*domain.Order, error)
	Edit(ctx context.Context, id int64, req domain.EditOrderRequest) (*domain.Order, error)
	AssignSeller(ctx context.Context, id int64, req domain.AssignSellerRequest) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
}

// CatalogRepository exposes price-list-filtered product views
type CatalogRepository interface {
	ForCustomer(ctx context.Context, customerID int64, p ListParams) ([]domain.CatalogProduct, error)
	Similar(ctx context.Context, customerID, productID int64, limit int) ([]domain.CatalogProduct, error)
	Recommendations(ctx context.Context, customerID int64, limit int) ([]domain.CatalogProduct, error)
	Mine(ctx context.Context, p ListParams) ([]domain.CatalogProduct, error)
}
