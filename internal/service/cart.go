package service

import (
	"context"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"pharmafront/internal/domain"
	"pharmafront/internal/repository"
)

type CartLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int64           `json:"stock"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// Cart is a customer's own basket. Prices are display snapshots; the backend
// prices the order on checkout.
type Cart struct {
	orders repository.OrderRepository

	mu    sync.Mutex
	lines []CartLine
	seen  map[int64]domain.CatalogProduct

	subs subscribers
}

func NewCart(orders repository.OrderRepository) *Cart {
	return &Cart{orders: orders, seen: make(map[int64]domain.CatalogProduct)}
}

// Observe records catalog rows so they can later be added by id.
func (c *Cart) Observe(products []domain.CatalogProduct) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range products {
		c.seen[p.ID] = p
	}
}

// AddProduct adds a product previously shown in the catalog.
func (c *Cart) AddProduct(productID, qty int64) error {
	c.mu.Lock()
	p, ok := c.seen[productID]
	c.mu.Unlock()
	if !ok {
		return invalidInput("El producto no está disponible en el catálogo")
	}
	c.Add(p, qty)
	return nil
}

// Add merges by product id; qty is clamped to at least 1.
func (c *Cart) Add(p domain.CatalogProduct, qty int64) {
	qty = max(qty, 1)
	c.mu.Lock()
	if i := c.index(p.ID); i >= 0 {
		c.lines[i].Quantity += qty
	} else {
		c.lines = append(c.lines, CartLine{ProductID: p.ID, Name: p.Name, Quantity: qty, UnitPrice: p.FinalPrice, Stock: p.Stock()})
	}
	c.mu.Unlock()
	c.subs.notify()
}

func (c *Cart) SetQuantity(productID, qty int64) error {
	c.mu.Lock()
	i := c.index(productID)
	if i < 0 {
		c.mu.Unlock()
		return invalidInput("El producto no está en el carrito")
	}
	c.lines[i].Quantity = max(qty, 1)
	c.mu.Unlock()
	c.subs.notify()
	return nil
}

func (c *Cart) Remove(productID int64) error {
	c.mu.Lock()
	i := c.index(productID)
	if i < 0 {
		c.mu.Unlock()
		return invalidInput("El producto no está en el carrito")
	}
	c.lines = slices.Delete(c.lines, i, i+1)
	c.mu.Unlock()
	c.subs.notify()
	return nil
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
	c.subs.notify()
}

func (c *Cart) Lines() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines)
}

func (c *Cart) Count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Total is for display only.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Checkout places the order. The cart is emptied only when the backend accepts it.
func (c *Cart) Checkout(ctx context.Context, shippingAddressNumber int) (*domain.Order, error) {
	lines := c.Lines()
	if len(lines) == 0 {
		return nil, invalidInput("El carrito está vacío")
	}
	req := domain.CreateOrderRequest{ShippingAddressNumber: shippingAddressNumber}
	for _, l := range lines {
		req.Items = append(req.Items, domain.ItemRequest{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	o, err := c.orders.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	c.Clear()
	return o, nil
}

func (c *Cart) Subscribe(fn func()) (cancel func()) { return c.subs.add(fn) }

func (c *Cart) index(productID int64) int {
	return slices.IndexFunc(c.lines, func(l CartLine) bool { return l.ProductID == productID })
}
