package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"pharmafront/internal/apperr"
	"pharmafront/internal/domain"
	"pharmafront/internal/repository"
)

func stock(n int64) *int64 { return &n }

func product(id int64, name string, price int64, st *int64) domain.CatalogProduct {
	return domain.CatalogProduct{ID: id, Name: name, FinalPrice: decimal.NewFromInt(price), StockCount: st}
}

type fakeCatalog struct {
	rows        []domain.CatalogProduct
	similar     []domain.CatalogProduct
	recommended []domain.CatalogProduct
}

func (f *fakeCatalog) ForCustomer(_ context.Context, _ int64, p repository.ListParams) ([]domain.CatalogProduct, error) {
	rows := f.rows
	if p.Skip >= len(rows) {
		return nil, nil
	}
	rows = rows[p.Skip:]
	if p.Limit < len(rows) {
		rows = rows[:p.Limit]
	}
	return rows, nil
}

func (f *fakeCatalog) Similar(context.Context, int64, int64, int) ([]domain.CatalogProduct, error) {
	return f.similar, nil
}

func (f *fakeCatalog) Recommendations(context.Context, int64, int) ([]domain.CatalogProduct, error) {
	return f.recommended, nil
}

func (f *fakeCatalog) Mine(ctx context.Context, p repository.ListParams) ([]domain.CatalogProduct, error) {
	return f.ForCustomer(ctx, 0, p)
}

type fakeOrders struct {
	mu        sync.Mutex
	calls     int
	created   []domain.CreateCustomerOrderRequest
	edits     []domain.EditOrderRequest
	checkouts []domain.CreateOrderRequest
	err       error
	block     chan struct{} // when set, writes wait on it
	existing  *domain.Order
}

func (f *fakeOrders) record() error {
	f.mu.Lock()
	f.calls++
	block, err := f.block, f.err
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeOrders) List(context.Context, repository.ListParams) ([]domain.Order, error) {
	return nil, nil
}

func (f *fakeOrders) Get(_ context.Context, id int64) (*domain.Order, error) {
	if f.existing == nil || f.existing.ID != id {
		return nil, apperr.NotFoundErr("Pedido no encontrado")
	}
	o := *f.existing
	return &o, nil
}

func (f *fakeOrders) Create(_ context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	if err := f.record(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.checkouts = append(f.checkouts, req)
	f.mu.Unlock()
	return &domain.Order{ID: 100, Status: domain.OrderStatusPending}, nil
}

func (f *fakeOrders) CreateForCustomer(_ context.Context, req domain.CreateCustomerOrderRequest) (*domain.Order, error) {
	if err := f.record(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.created = append(f.created, req)
	f.mu.Unlock()
	return &domain.Order{ID: 101, CustomerID: req.CustomerID, Status: domain.OrderStatusPending}, nil
}

func (f *fakeOrders) Edit(_ context.Context, id int64, req domain.EditOrderRequest) (*domain.Order, error) {
	if err := f.record(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.edits = append(f.edits, req)
	f.mu.Unlock()
	return &domain.Order{ID: id}, nil
}

func (f *fakeOrders) AssignSeller(_ context.Context, id int64, req domain.AssignSellerRequest) (*domain.Order, error) {
	if err := f.record(); err != nil {
		return nil, err
	}
	sid := req.AssignedSellerID
	return &domain.Order{ID: id, AssignedSellerID: &sid, Status: domain.OrderStatusAssigned}, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if err := f.record(); err != nil {
		return nil, err
	}
	return &domain.Order{ID: id, Status: status}, nil
}

func (f *fakeOrders) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCustomers struct {
	repository.CRUD[domain.Customer]
	byID map[int64]domain.Customer
}

func (f *fakeCustomers) Get(_ context.Context, id int64) (*domain.Customer, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, apperr.NotFoundErr("Cliente no encontrado")
	}
	return &c, nil
}
