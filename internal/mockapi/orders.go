package mockapi

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pharmafront/internal/domain"
)

// line is one requested order line before pricing
type line struct {
	itemID    *int64
	productID int64
	quantity  int64
}

func validateLines(lines []line) error {
	if len(lines) == 0 {
		return invalid(bodyIssue("items", "List should have at least 1 item after validation, not 0", "too_short"))
	}
	var iss []issue
	for i, l := range lines {
		if l.quantity <= 0 {
			iss = append(iss, issue{Loc: []any{"body", "items", i, "quantity"}, Msg: "Input should be greater than 0", Type: "greater_than"})
		}
	}
	if len(iss) > 0 {
		return invalid(iss...)
	}
	return nil
}

// priceLines reserves stock and prices every line for the customer. Stock
// never goes below zero; overselling is accepted as a backorder.
func (s *Store) priceLines(cust domain.Customer, lines []line) ([]domain.OrderItem, decimal.Decimal, error) {
	if err := s.checkProducts(lines); err != nil {
		return nil, decimal.Zero, err
	}
	items := make([]domain.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		p, _ := s.products.get(l.productID)
		unit := s.finalPrice(p.Price, cust)
		sub := unit.Mul(decimal.NewFromInt(l.quantity))
		var id int64
		if l.itemID != nil {
			id = *l.itemID
		} else {
			id = s.nextItemID
			s.nextItemID++
		}
		items = append(items, domain.OrderItem{
			ID:          id,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    l.quantity,
			UnitPrice:   unit,
			Subtotal:    sub,
		})
		total = total.Add(sub)
		p.Stock = max(p.Stock-l.quantity, 0)
		s.products.put(p.ID, p)
	}
	return items, total, nil
}

func (s *Store) checkProducts(lines []line) error {
	for _, l := range lines {
		p, ok := s.products.get(l.productID)
		if !ok || !p.IsActive {
			return notFound(fmt.Sprintf("Producto %d no encontrado", l.productID))
		}
	}
	return nil
}

func (s *Store) restock(items []domain.OrderItem) {
	for _, it := range items {
		if p, ok := s.products.get(it.ProductID); ok {
			p.Stock += it.Quantity
			s.products.put(p.ID, p)
		}
	}
}

func (s *Store) placeOrder(ctx context.Context, customerID int64, shipping int, lines []line) (domain.Order, error) {
	if err := validateLines(lines); err != nil {
		return domain.Order{}, err
	}
	var out domain.Order
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		cust, ok := s.customers.get(customerID)
		if !ok {
			return notFound("Cliente no encontrado")
		}
		if len(cust.ShippingAddresses) > 0 && !slices.ContainsFunc(cust.ShippingAddresses, func(a domain.ShippingAddress) bool {
			return a.Number == shipping
		}) {
			return badRequest("La dirección de envío %d no pertenece al cliente", shipping)
		}
		items, total, err := s.priceLines(cust, lines)
		if err != nil {
			return err
		}
		now := s.now()
		out = s.orders.insert(domain.Order{
			CustomerID:            cust.ID,
			CustomerName:          cust.Name,
			Status:                domain.OrderStatusPending,
			Items:                 items,
			Total:                 total,
			ShippingAddressNumber: shipping,
			CreatedAt:             now,
			UpdatedAt:             now,
		}, func(o *domain.Order, id int64) { o.ID = id })
		return nil
	})
	return out, err
}

// sellerServes reports whether the seller shares a sales group with the customer
func (s *Store) sellerServes(sellerID, customerID int64) bool {
	for _, g := range s.salesGroups.rows {
		if slices.Contains(g.SellerIDs, sellerID) && slices.Contains(g.CustomerIDs, customerID) {
			return true
		}
	}
	return false
}

func (s *Store) canSee(u domain.User, o domain.Order) bool {
	switch u.Role {
	case domain.RoleCustomer:
		return u.CustomerID != nil && *u.CustomerID == o.CustomerID
	case domain.RoleSeller:
		if o.AssignedSellerID != nil && *o.AssignedSellerID == u.ID {
			return true
		}
		return s.sellerServes(u.ID, o.CustomerID)
	}
	return true
}

func toLines(items []domain.ItemRequest) []line {
	out := make([]line, 0, len(items))
	for _, it := range items {
		out = append(out, line{productID: it.ProductID, quantity: it.Quantity})
	}
	return out
}

func (s *Server) listOrders(c *gin.Context) {
	skip, limit, ok := paging(c)
	if !ok {
		return
	}
	status := domain.OrderStatus(c.Query("status"))
	term := c.Query("search")
	u := currentUser(c)

	s.store.mu.RLock()
	rows := s.store.orders.all()
	out := make([]domain.Order, 0, len(rows))
	for _, o := range rows {
		if !s.store.canSee(u, o) {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		if term != "" && !containsIgnoreCase(o.CustomerName, term) && strconv.FormatInt(o.ID, 10) != term {
			continue
		}
		out = append(out, o)
	}
	s.store.mu.RUnlock()
	// newest first
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	c.JSON(http.StatusOK, window(out, skip, limit))
}

func (s *Server) visibleOrder(c *gin.Context) (domain.Order, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return domain.Order{}, false
	}
	s.store.mu.RLock()
	o, found := s.store.orders.get(id)
	visible := found && s.store.canSee(currentUser(c), o)
	s.store.mu.RUnlock()
	if !visible {
		fail(c, notFound("Pedido no encontrado"))
		return domain.Order{}, false
	}
	return o, true
}

func (s *Server) getOrder(c *gin.Context) {
	if o, ok := s.visibleOrder(c); ok {
		c.JSON(http.StatusOK, o)
	}
}

func (s *Server) checkout(c *gin.Context) {
	u := currentUser(c)
	if u.CustomerID == nil {
		fail(c, &apiError{status: http.StatusForbidden, detail: "El usuario no está asociado a un cliente"})
		return
	}
	var req domain.CreateOrderRequest
	if !bindBody(c, &req) {
		return
	}
	o, err := s.store.placeOrder(c.Request.Context(), *u.CustomerID, req.ShippingAddressNumber, toLines(req.Items))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) createForCustomer(c *gin.Context) {
	customerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req domain.CreateCustomerOrderRequest
	if !bindBody(c, &req) {
		return
	}
	if req.CustomerID != 0 && req.CustomerID != customerID {
		fail(c, badRequest("El cliente del pedido no coincide con la ruta"))
		return
	}
	o, err := s.store.placeOrder(c.Request.Context(), customerID, req.ShippingAddressNumber, toLines(req.Items))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func editable(st domain.OrderStatus) bool {
	return st == domain.OrderStatusPending || st == domain.OrderStatusConfirmed || st == domain.OrderStatusAssigned
}

func (s *Server) editOrder(c *gin.Context) {
	current, ok := s.visibleOrder(c)
	if !ok {
		return
	}
	var req domain.EditOrderRequest
	if !bindBody(c, &req) {
		return
	}
	lines := make([]line, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, line{itemID: it.OrderItemID, productID: it.ProductID, quantity: it.Quantity})
	}
	if err := validateLines(lines); err != nil {
		fail(c, err)
		return
	}

	var out domain.Order
	err := s.store.WithTransaction(c.Request.Context(), func(ctx context.Context) error {
		o, ok := s.store.orders.get(current.ID)
		if !ok {
			return notFound("Pedido no encontrado")
		}
		if !editable(o.Status) {
			return badRequest("El pedido no puede editarse en estado %s", o.Status)
		}
		for _, l := range lines {
			if l.itemID != nil && !slices.ContainsFunc(o.Items, func(it domain.OrderItem) bool { return it.ID == *l.itemID }) {
				return badRequest("La línea %d no pertenece al pedido", *l.itemID)
			}
		}
		if err := s.store.checkProducts(lines); err != nil {
			return err
		}
		cust, _ := s.store.customers.get(o.CustomerID)
		s.store.restock(o.Items)
		items, total, err := s.store.priceLines(cust, lines)
		if err != nil {
			return err
		}
		o.Items = items
		o.Total = total
		o.UpdatedAt = s.store.now()
		s.store.orders.put(o.ID, o)
		out = o
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) assignSeller(c *gin.Context) {
	current, ok := s.visibleOrder(c)
	if !ok {
		return
	}
	var req domain.AssignSellerRequest
	if !bindBody(c, &req) {
		return
	}
	if req.AssignedSellerID <= 0 {
		fail(c, invalid(bodyIssue("assigned_seller_id", "Input should be greater than 0", "greater_than")))
		return
	}
	var out domain.Order
	err := s.store.WithTransaction(c.Request.Context(), func(ctx context.Context) error {
		seller, ok := s.store.users.get(req.AssignedSellerID)
		if !ok || seller.Role != domain.RoleSeller {
			return badRequest("El usuario %d no es un vendedor", req.AssignedSellerID)
		}
		o, _ := s.store.orders.get(current.ID)
		if o.Status.Final() {
			return badRequest("El pedido ya fue finalizado")
		}
		sid := seller.ID
		o.AssignedSellerID = &sid
		o.AssignmentNotes = req.AssignmentNotes
		if o.Status == domain.OrderStatusPending || o.Status == domain.OrderStatusConfirmed {
			o.Status = domain.OrderStatusAssigned
		}
		o.UpdatedAt = s.store.now()
		s.store.orders.put(o.ID, o)
		out = o
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) updateStatus(c *gin.Context) {
	current, ok := s.visibleOrder(c)
	if !ok {
		return
	}
	var req domain.StatusRequest
	if !bindBody(c, &req) {
		return
	}
	if !req.Status.Valid() {
		fail(c, invalid(bodyIssue("status", "Input should be 'pending', 'confirmed', 'assigned', 'shipped', 'delivered' or 'cancelled'", "enum")))
		return
	}
	var out domain.Order
	err := s.store.WithTransaction(c.Request.Context(), func(ctx context.Context) error {
		o, _ := s.store.orders.get(current.ID)
		if o.Status.Final() {
			return badRequest("El pedido ya fue finalizado y no admite cambios de estado")
		}
		if req.Status == domain.OrderStatusCancelled {
			s.store.restock(o.Items)
		}
		o.Status = req.Status
		o.UpdatedAt = s.store.now()
		s.store.orders.put(o.ID, o)
		out = o
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
