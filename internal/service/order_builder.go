package service

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pharmafront/internal/apperr"
	"pharmafront/internal/domain"
	"pharmafront/internal/repository"
)

// SimilarLimit is how many suggestions the similar-products surface shows
const SimilarLimit = 6

const (
	msgSelectCustomer = "Debe seleccionar un cliente"
	msgNoItems        = "El pedido debe tener al menos un producto"
)

var ErrSubmitInFlight = errors.New("submit already in progress")

type BuilderMode string

const (
	ModeCreate BuilderMode = "create"
	ModeEdit   BuilderMode = "edit"
)

type BuilderState string

const (
	StateSelectingCustomer BuilderState = "selecting-customer"
	StateEditingItems      BuilderState = "editing-items"
	StateConfirmingAdd     BuilderState = "confirming-add"
	StateShowingSimilar    BuilderState = "showing-similar"
	StateConfirmingRemoval BuilderState = "confirming-removal"
	StateResolvingConflict BuilderState = "resolving-conflict"
	StateSubmitting        BuilderState = "submitting"
	StateClosed            BuilderState = "closed"
)

// AddOutcome tells the caller which prompt, if any, an add opened.
type AddOutcome string

const (
	AddDone              AddOutcome = "added"
	AddNeedsConfirmation AddOutcome = "confirm_no_stock"
	AddConflict          AddOutcome = "stock_conflict"
)

// LineItem is one line of the working set. FinalPrice is the catalog price at add time.
type LineItem struct {
	OrderItemID *int64          `json:"order_item_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	FinalPrice  decimal.Decimal `json:"final_price"`
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.FinalPrice.Mul(decimal.NewFromInt(l.Quantity))
}

type PendingAdd struct {
	Product  domain.CatalogProduct `json:"product"`
	Quantity int64                 `json:"quantity"`
}

// BuilderView is a point-in-time snapshot for rendering.
type BuilderView struct {
	ID             string                  `json:"id"`
	Mode           BuilderMode             `json:"mode"`
	State          BuilderState            `json:"state"`
	OrderID        int64                   `json:"order_id,omitempty"`
	Customer       *domain.Customer        `json:"customer,omitempty"`
	Items          []LineItem              `json:"items"`
	Total          decimal.Decimal         `json:"total"`
	PendingAdd     *PendingAdd             `json:"pending_add,omitempty"`
	PendingRemoval *int64                  `json:"pending_removal,omitempty"`
	Conflict       *StockConflict          `json:"conflict,omitempty"`
	ConflictOpts   []Resolution            `json:"conflict_options,omitempty"`
	SimilarFor     *int64                  `json:"similar_for,omitempty"`
	Similar        []domain.CatalogProduct `json:"similar,omitempty"`
	LastError      string                  `json:"last_error,omitempty"`
	Submitting     bool                    `json:"submitting"`
}

type BuilderDeps struct {
	Orders    repository.OrderRepository
	Catalog   repository.CatalogRepository
	Customers repository.CustomerRepository
	PageSize  int
	Debounce  time.Duration
}

// OrderBuilder is the working set of an order being created for a customer
// or edited. All prompts (no-stock, removal, stock conflict) are pending
// decisions on the builder, answered by a follow-up call.
type OrderBuilder struct {
	id   string
	mode BuilderMode
	deps BuilderDeps

	mu             sync.Mutex
	state          BuilderState
	orderID        int64
	customer       *domain.Customer
	items          []LineItem
	seen           map[int64]domain.CatalogProduct
	pendingAdd     *PendingAdd
	pendingRemoval *int64
	conflict       *StockConflict
	similarFor     *int64
	similar        []domain.CatalogProduct
	lastError      string
	submitting     bool
	catalog        *ListView[domain.CatalogProduct]
}

// NewOrderBuilder opens a create-mode builder waiting for a customer.
func NewOrderBuilder(id string, deps BuilderDeps) *OrderBuilder {
	return &OrderBuilder{
		id:    id,
		mode:  ModeCreate,
		deps:  deps,
		state: StateSelectingCustomer,
		seen:  make(map[int64]domain.CatalogProduct),
	}
}

// OpenEditBuilder hydrates the working set from an existing order.
func OpenEditBuilder(ctx context.Context, id string, deps BuilderDeps, orderID int64) (*OrderBuilder, error) {
	o, err := deps.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	b := &OrderBuilder{
		id:       id,
		mode:     ModeEdit,
		deps:     deps,
		state:    StateEditingItems,
		orderID:  o.ID,
		customer: &domain.Customer{ID: o.CustomerID, Name: o.CustomerName},
		seen:     make(map[int64]domain.CatalogProduct),
	}
	for _, it := range o.Items {
		itemID := it.ID
		b.items = append(b.items, LineItem{
			OrderItemID: &itemID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			FinalPrice:  it.UnitPrice,
		})
	}
	b.catalog = b.newCatalogView(o.CustomerID)
	return b, nil
}

func (b *OrderBuilder) ID() string        { return b.id }
func (b *OrderBuilder) Mode() BuilderMode { return b.mode }

func (b *OrderBuilder) State() BuilderState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *OrderBuilder) newCatalogView(customerID int64) *ListView[domain.CatalogProduct] {
	fetch := func(ctx context.Context, p repository.ListParams) ([]domain.CatalogProduct, error) {
		rows, err := b.deps.Catalog.ForCustomer(ctx, customerID, p)
		if err == nil {
			b.remember(rows)
		}
		return rows, err
	}
	return NewListView(fetch, b.deps.PageSize, b.deps.Debounce)
}

func (b *OrderBuilder) remember(rows []domain.CatalogProduct) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range rows {
		b.seen[p.ID] = p
	}
}

// Catalog is the customer-scoped product list, nil until a customer is chosen.
func (b *OrderBuilder) Catalog() *ListView[domain.CatalogProduct] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.catalog
}

// SelectCustomer fixes the customer of a create-mode builder. It can happen once.
func (b *OrderBuilder) SelectCustomer(ctx context.Context, customerID int64) error {
	if b.mode != ModeCreate {
		return invalidState("El cliente de un pedido existente no puede cambiarse")
	}
	b.mu.Lock()
	if b.state != StateSelectingCustomer {
		b.mu.Unlock()
		return invalidState("El cliente ya fue seleccionado")
	}
	b.mu.Unlock()

	c, err := b.deps.Customers.Get(ctx, customerID)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateSelectingCustomer {
		return invalidState("El cliente ya fue seleccionado")
	}
	b.customer = c
	b.catalog = b.newCatalogView(c.ID)
	b.state = StateEditingItems
	return nil
}

// ready checks that no prompt is open; caller holds mu.
func (b *OrderBuilder) ready() error {
	switch b.state {
	case StateEditingItems, StateShowingSimilar:
		return nil
	case StateSelectingCustomer:
		return invalidInput(msgSelectCustomer)
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateClosed:
		return invalidState("El pedido ya fue cerrado")
	}
	return invalidState("Hay una confirmación pendiente")
}

// AddProduct adds qty units of a product shown in the catalog or similar list.
// Zero stock asks for confirmation; going past a known stock opens a conflict.
func (b *OrderBuilder) AddProduct(productID, qty int64) (AddOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ready(); err != nil {
		return "", err
	}
	return b.add(productID, qty)
}

func (b *OrderBuilder) add(productID, qty int64) (AddOutcome, error) {
	p, ok := b.seen[productID]
	if !ok {
		return "", invalidInput("El producto no está disponible en el catálogo del cliente")
	}
	qty = max(qty, 1)
	if p.Stock() == 0 {
		b.pendingAdd = &PendingAdd{Product: p, Quantity: qty}
		b.state = StateConfirmingAdd
		return AddNeedsConfirmation, nil
	}
	existing := b.quantityOf(productID)
	if exceedsStock(p.Stock(), existing, qty) {
		b.conflict = newStockConflict(p.ID, p.Name, p.Stock(), existing, qty)
		b.state = StateResolvingConflict
		return AddConflict, nil
	}
	b.merge(p, qty)
	b.state = StateEditingItems
	return AddDone, nil
}

// ConfirmAdd answers the no-stock prompt.
func (b *OrderBuilder) ConfirmAdd(accept bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pendingAdd == nil {
		return invalidState("No hay ningún producto pendiente de confirmación")
	}
	pending := b.pendingAdd
	b.pendingAdd = nil
	b.state = StateEditingItems
	if accept {
		b.merge(pending.Product, pending.Quantity)
	}
	return nil
}

// ResolveConflict applies one resolution and clears the conflict.
func (b *OrderBuilder) ResolveConflict(r Resolution) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conflict == nil {
		return invalidState("No hay ningún conflicto de stock pendiente")
	}
	n, err := b.conflict.Apply(r)
	if err != nil {
		return err
	}
	if n > 0 {
		p := b.seen[b.conflict.ProductID]
		b.merge(p, n)
	}
	b.conflict = nil
	b.state = StateEditingItems
	return nil
}

// SetQuantity parses input and stores it clamped to at least 1. Stock is not
// rechecked here.
func (b *OrderBuilder) SetQuantity(productID int64, input string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ready(); err != nil {
		return 0, err
	}
	i := b.index(productID)
	if i < 0 {
		return 0, invalidInput("El producto no está en el pedido")
	}
	qty := parseQuantity(input)
	b.items[i].Quantity = qty
	return qty, nil
}

// parseQuantity keeps the leading integer of input ("5 uds" is 5, "3.7" is 3);
// anything without one, or below 1, becomes 1.
func parseQuantity(input string) int64 {
	s := strings.TrimSpace(input)
	end := 0
	if end < len(s) && (s[0] == '-' || s[0] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// RemoveItem removes a line. Edit mode asks for confirmation first and
// reports false until ConfirmRemoval.
func (b *OrderBuilder) RemoveItem(productID int64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ready(); err != nil {
		return false, err
	}
	if b.index(productID) < 0 {
		return false, invalidInput("El producto no está en el pedido")
	}
	if b.mode == ModeEdit {
		pid := productID
		b.pendingRemoval = &pid
		b.state = StateConfirmingRemoval
		return false, nil
	}
	b.remove(productID)
	return true, nil
}

func (b *OrderBuilder) ConfirmRemoval(accept bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pendingRemoval == nil {
		return invalidState("No hay ninguna eliminación pendiente")
	}
	if accept {
		b.remove(*b.pendingRemoval)
	}
	b.pendingRemoval = nil
	b.state = StateEditingItems
	return nil
}

// ShowSimilar opens the similar-products surface for a line's product.
func (b *OrderBuilder) ShowSimilar(ctx context.Context, productID int64) ([]domain.CatalogProduct, error) {
	b.mu.Lock()
	if err := b.ready(); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	if b.index(productID) < 0 {
		b.mu.Unlock()
		return nil, invalidInput("El producto no está en el pedido")
	}
	customerID := b.customer.ID
	b.mu.Unlock()

	rows, err := b.deps.Catalog.Similar(ctx, customerID, productID, SimilarLimit)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.lastError = apperr.PublicMessage(err)
		return nil, err
	}
	for _, p := range rows {
		b.seen[p.ID] = p
	}
	pid := productID
	b.similarFor = &pid
	b.similar = rows
	if b.state == StateEditingItems {
		b.state = StateShowingSimilar
	}
	return slices.Clone(rows), nil
}

// ChooseSimilar closes the surface and adds one unit of the chosen product.
func (b *OrderBuilder) ChooseSimilar(productID int64) (AddOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateShowingSimilar {
		return "", invalidState("No hay sugerencias abiertas")
	}
	if !slices.ContainsFunc(b.similar, func(p domain.CatalogProduct) bool { return p.ID == productID }) {
		return "", invalidInput("El producto no está entre las sugerencias")
	}
	b.closeSimilar()
	return b.add(productID, 1)
}

// Recommendations returns products suggested for the customer. They can be
// added like catalog rows.
func (b *OrderBuilder) Recommendations(ctx context.Context) ([]domain.CatalogProduct, error) {
	b.mu.Lock()
	if b.customer == nil {
		b.mu.Unlock()
		return nil, invalidInput(msgSelectCustomer)
	}
	customerID := b.customer.ID
	b.mu.Unlock()

	rows, err := b.deps.Catalog.Recommendations(ctx, customerID, SimilarLimit)
	if err != nil {
		return nil, err
	}
	b.remember(rows)
	return rows, nil
}

func (b *OrderBuilder) CloseSimilar() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeSimilar()
}

func (b *OrderBuilder) closeSimilar() {
	b.similar = nil
	b.similarFor = nil
	if b.state == StateShowingSimilar {
		b.state = StateEditingItems
	}
}

// Submit sends the working set. On failure the items stay and the message is
// kept in LastError; on success the builder closes.
func (b *OrderBuilder) Submit(ctx context.Context, shippingAddressNumber int) (*domain.Order, error) {
	b.mu.Lock()
	if b.submitting {
		b.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if b.mode == ModeCreate && b.customer == nil {
		return nil, b.rejectLocked(msgSelectCustomer)
	}
	if err := b.ready(); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	if len(b.items) == 0 {
		return nil, b.rejectLocked(msgNoItems)
	}
	send := b.request(shippingAddressNumber)
	b.submitting = true
	b.state = StateSubmitting
	b.closeSimilar()
	b.mu.Unlock()

	o, err := send(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitting = false
	if err != nil {
		if b.state == StateClosed {
			return nil, err
		}
		b.lastError = apperr.PublicMessage(err)
		b.state = StateEditingItems
		return nil, err
	}
	b.reset()
	return o, nil
}

// rejectLocked records msg and releases mu.
func (b *OrderBuilder) rejectLocked(msg string) error {
	b.lastError = msg
	b.mu.Unlock()
	return invalidInput(msg)
}

func (b *OrderBuilder) request(shipping int) func(context.Context) (*domain.Order, error) {
	if b.mode == ModeEdit {
		req := domain.EditOrderRequest{Items: make([]domain.EditItemRequest, 0, len(b.items))}
		for _, it := range b.items {
			req.Items = append(req.Items, domain.EditItemRequest{OrderItemID: it.OrderItemID, ProductID: it.ProductID, Quantity: it.Quantity})
		}
		id := b.orderID
		return func(ctx context.Context) (*domain.Order, error) { return b.deps.Orders.Edit(ctx, id, req) }
	}
	if shipping == 0 && len(b.customer.ShippingAddresses) > 0 {
		shipping = b.customer.ShippingAddresses[0].Number
	}
	req := domain.CreateCustomerOrderRequest{CustomerID: b.customer.ID, ShippingAddressNumber: shipping}
	for _, it := range b.items {
		req.Items = append(req.Items, domain.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return func(ctx context.Context) (*domain.Order, error) { return b.deps.Orders.CreateForCustomer(ctx, req) }
}

// DismissError clears the inline error banner.
func (b *OrderBuilder) DismissError() {
	b.mu.Lock()
	b.lastError = ""
	b.mu.Unlock()
}

// Close discards all transient state, whatever the current state.
func (b *OrderBuilder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

func (b *OrderBuilder) reset() {
	b.items = nil
	b.pendingAdd = nil
	b.pendingRemoval = nil
	b.conflict = nil
	b.similar = nil
	b.similarFor = nil
	b.lastError = ""
	b.submitting = false
	b.customer = nil
	b.catalog = nil
	clear(b.seen)
	b.state = StateClosed
}

// Total is the display total from add-time prices.
func (b *OrderBuilder) Total() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total()
}

func (b *OrderBuilder) total() decimal.Decimal {
	t := decimal.Zero
	for _, it := range b.items {
		t = t.Add(it.Subtotal())
	}
	return t
}

func (b *OrderBuilder) Items() []LineItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items)
}

func (b *OrderBuilder) View() BuilderView {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := BuilderView{
		ID:             b.id,
		Mode:           b.mode,
		State:          b.state,
		OrderID:        b.orderID,
		Items:          slices.Clone(b.items),
		Total:          b.total(),
		PendingAdd:     b.pendingAdd,
		PendingRemoval: b.pendingRemoval,
		SimilarFor:     b.similarFor,
		Similar:        slices.Clone(b.similar),
		LastError:      b.lastError,
		Submitting:     b.submitting,
	}
	if v.Items == nil {
		v.Items = []LineItem{}
	}
	if b.customer != nil {
		c := *b.customer
		v.Customer = &c
	}
	if b.conflict != nil {
		c := *b.conflict
		v.Conflict = &c
		v.ConflictOpts = c.Options()
	}
	return v
}

func (b *OrderBuilder) index(productID int64) int {
	return slices.IndexFunc(b.items, func(it LineItem) bool { return it.ProductID == productID })
}

func (b *OrderBuilder) quantityOf(productID int64) int64 {
	if i := b.index(productID); i >= 0 {
		return b.items[i].Quantity
	}
	return 0
}

// merge keeps one line per product.
func (b *OrderBuilder) merge(p domain.CatalogProduct, qty int64) {
	if i := b.index(p.ID); i >= 0 {
		b.items[i].Quantity += qty
		return
	}
	b.items = append(b.items, LineItem{ProductID: p.ID, ProductName: p.Name, Quantity: qty, FinalPrice: p.FinalPrice})
}

func (b *OrderBuilder) remove(productID int64) {
	if i := b.index(productID); i >= 0 {
		b.items = slices.Delete(b.items, i, i+1)
	}
}
