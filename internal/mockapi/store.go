package mockapi

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pharmafront/internal/domain"
)

// table is one id-keyed collection; callers hold the Store lock.
type table[T any] struct {
	next int64
	rows map[int64]T
}

func newTable[T any]() *table[T] {
	return &table[T]{next: 1, rows: make(map[int64]T)}
}

func (t *table[T]) insert(v T, setID func(*T, int64)) T {
	setID(&v, t.next)
	t.rows[t.next] = v
	t.next++
	return v
}

func (t *table[T]) get(id int64) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) put(id int64, v T) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	t.rows[id] = v
	return true
}

func (t *table[T]) remove(id int64) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

// all returns rows ordered by id
func (t *table[T]) all() []T {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id])
	}
	return out
}

// Store is the in-memory state of the fake backend.
type Store struct {
	mu          sync.RWMutex
	users       *table[domain.User]
	passwords   map[int64]string
	categories  *table[domain.Category]
	products    *table[domain.Product]
	customers   *table[domain.Customer]
	priceLists  *table[domain.PriceList]
	salesGroups *table[domain.SalesGroup]
	orders      *table[domain.Order]
	nextItemID  int64
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:       newTable[domain.User](),
		passwords:   make(map[int64]string),
		categories:  newTable[domain.Category](),
		products:    newTable[domain.Product](),
		customers:   newTable[domain.Customer](),
		priceLists:  newTable[domain.PriceList](),
		salesGroups: newTable[domain.SalesGroup](),
		orders:      newTable[domain.Order](),
		nextItemID:  1,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	b, ok := ctx.Value(txKey{}).(bool)
	return ok && b
}

func (s *Store) rlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.RLock()
	}
}
func (s *Store) runlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.RUnlock()
	}
}
func (s *Store) wlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.Lock()
	}
}
func (s *Store) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.Unlock()
	}
}

// WithTransaction runs fn under the write lock; store calls made with the
// derived ctx skip their own locking.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

func (s *Store) AddUser(ctx context.Context, u domain.User, password string) domain.User {
	s.wlock(ctx)
	defer s.wunlock(ctx)
	u.Password = ""
	u = s.users.insert(u, func(v *domain.User, id int64) { v.ID = id })
	s.passwords[u.ID] = password
	return u
}

func (s *Store) AddCategory(ctx context.Context, c domain.Category) domain.Category {
	s.wlock(ctx)
	defer s.wunlock(ctx)
	return s.categories.insert(c, func(v *domain.Category, id int64) { v.ID = id })
}

func (s *Store) AddProduct(ctx context.Context, p domain.Product) domain.Product {
	s.wlock(ctx)
	defer s.wunlock(ctx)
	return s.products.insert(p, func(v *domain.Product, id int64) { v.ID = id })
}

func (s *Store) AddPriceList(ctx context.Context, pl domain.PriceList) domain.PriceList {
	s.wlock(ctx)
	defer s.wunlock(ctx)
	return s.priceLists.insert(pl, func(v *domain.PriceList, id int64) { v.ID = id })
}

func (s *Store) AddCustomer(ctx context.Context, c domain.Customer) domain.Customer {
	s.wlock(ctx)
	defer s.wunlock(ctx)
	return s.customers.insert(c, func(v *domain.Customer, id int64) { v.ID = id })
}

func (s *Store) AddSalesGroup(ctx context.Context, g domain.SalesGroup) domain.SalesGroup {
	s.wlock(ctx)
	defer s.wunlock(ctx)
	return s.salesGroups.insert(g, func(v *domain.SalesGroup, id int64) { v.ID = id })
}

// Product returns a copy of the product with the given id.
func (s *Store) Product(ctx context.Context, id int64) (domain.Product, bool) {
	s.rlock(ctx)
	defer s.runlock(ctx)
	return s.products.get(id)
}

func (s *Store) Order(ctx context.Context, id int64) (domain.Order, bool) {
	s.rlock(ctx)
	defer s.runlock(ctx)
	return s.orders.get(id)
}

func (s *Store) userByName(username string) (domain.User, bool) {
	for _, u := range s.users.rows {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return domain.User{}, false
}

func containsIgnoreCase(s, sub string) bool {
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
