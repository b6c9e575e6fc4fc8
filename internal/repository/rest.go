package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"pharmafront/internal/backend"
	"pharmafront/internal/domain"
)

// restCRUD implements CRUD[T] against /<path> and /<path>/{id}
type restCRUD[T any] struct {
	c    *backend.Client
	path string
}

func NewCRUD[T any](c *backend.Client, path string) CRUD[T] {
	return &restCRUD[T]{c: c, path: path}
}

func (r *restCRUD[T]) List(ctx context.Context, p ListParams) ([]T, error) {
	out := make([]T, 0)
	if err := r.c.Do(ctx, http.MethodGet, r.path, p.Query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *restCRUD[T]) Get(ctx context.Context, id int64) (*T, error) {
	var out T
	if err := r.c.Do(ctx, http.MethodGet, r.item(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *restCRUD[T]) Create(ctx context.Context, v T) (*T, error) {
	var out T
	if err := r.c.Do(ctx, http.MethodPost, r.path, nil, v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *restCRUD[T]) Update(ctx context.Context, id int64, v T) (*T, error) {
	var out T
	if err := r.c.Do(ctx, http.MethodPut, r.item(id), nil, v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *restCRUD[T]) Delete(ctx context.Context, id int64) error {
	return r.c.Do(ctx, http.MethodDelete, r.item(id), nil, nil, nil)
}

func (r *restCRUD[T]) item(id int64) string {
	return fmt.Sprintf("%s/%d", r.path, id)
}

func NewProducts(c *backend.Client) ProductRepository      { return NewCRUD[domain.Product](c, "/products") }
func NewCategories(c *backend.Client) CategoryRepository   { return NewCRUD[domain.Category](c, "/categories") }
func NewUsers(c *backend.Client) UserRepository            { return NewCRUD[domain.User](c, "/admin/users") }
func NewCustomers(c *backend.Client) CustomerRepository    { return NewCRUD[domain.Customer](c, "/customers") }
func NewPriceLists(c *backend.Client) PriceListRepository  { return NewCRUD[domain.PriceList](c, "/price-lists") }
func NewSalesGroups(c *backend.Client) SalesGroupRepository { return NewCRUD[domain.SalesGroup](c, "/sales-groups") }

// Auth

type restAuth struct{ c *backend.Client }

func NewAuth(c *backend.Client) AuthRepository { return &restAuth{c: c} }

func (r *restAuth) Login(ctx context.Context, username, password string) (*domain.Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	var tok domain.Token
	if err := r.c.PostForm(ctx, "/auth/login", form, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (r *restAuth) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := r.c.Do(ctx, http.MethodGet, "/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Orders

type restOrders struct{ c *backend.Client }

func NewOrders(c *backend.Client) OrderRepository { return &restOrders{c: c} }

func (r *restOrders) List(ctx context.Context, p ListParams) ([]domain.Order, error) {
	out := make([]domain.Order, 0)
	if err := r.c.Do(ctx, http.MethodGet, "/orders", p.Query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *restOrders) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return r.send(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil)
}

func (r *restOrders) Create(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	return r.send(ctx, http.MethodPost, "/orders", req)
}

func (r *restOrders) CreateForCustomer(ctx context.Context, req domain.CreateCustomerOrderRequest) (*domain.Order, error) {
	return r.send(ctx, http.MethodPost, fmt.Sprintf("/orders/%d", req.CustomerID), req)
}

func (r *restOrders) Edit(ctx context.Context, id int64, req domain.EditOrderRequest) (*domain.Order, error) {
	return r.send(ctx, http.MethodPut, fmt.Sprintf("/orders/%d/edit", id), req)
}

func (r *restOrders) AssignSeller(ctx context.Context, id int64, req domain.AssignSellerRequest) (*domain.Order, error) {
	return r.send(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/assign", id), req)
}

func (r *restOrders) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	return r.send(ctx, http.MethodPut, fmt.Sprintf("/orders/%d/status", id), domain.StatusRequest{Status: status})
}

func (r *restOrders) send(ctx context.Context, method, path string, body any) (*domain.Order, error) {
	var o domain.Order
	if err := r.c.Do(ctx, method, path, nil, body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Catalog

type restCatalog struct{ c *backend.Client }

func NewCatalog(c *backend.Client) CatalogRepository { return &restCatalog{c: c} }

func (r *restCatalog) ForCustomer(ctx context.Context, customerID int64, p ListParams) ([]domain.CatalogProduct, error) {
	return r.list(ctx, fmt.Sprintf("/catalog/customer/%d/products", customerID), p.Query())
}

func (r *restCatalog) Similar(ctx context.Context, customerID, productID int64, limit int) ([]domain.CatalogProduct, error) {
	return r.list(ctx, fmt.Sprintf("/catalog/customer/%d/products/%d/similar", customerID, productID), limitQuery(limit))
}

func (r *restCatalog) Recommendations(ctx context.Context, customerID int64, limit int) ([]domain.CatalogProduct, error) {
	return r.list(ctx, fmt.Sprintf("/catalog/customer/%d/recommendations", customerID), limitQuery(limit))
}

func (r *restCatalog) Mine(ctx context.Context, p ListParams) ([]domain.CatalogProduct, error) {
	return r.list(ctx, "/catalog/products", p.Query())
}

func (r *restCatalog) list(ctx context.Context, path string, q url.Values) ([]domain.CatalogProduct, error) {
	out := make([]domain.CatalogProduct, 0)
	if err := r.c.Do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func limitQuery(limit int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}
