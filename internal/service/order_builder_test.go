package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pharmafront/internal/apperr"
	"pharmafront/internal/domain"
)

func setupBuilder(t *testing.T) (*OrderBuilder, *fakeOrders) {
	t.Helper()
	orders := &fakeOrders{}
	deps := BuilderDeps{
		Orders: orders,
		Catalog: &fakeCatalog{
			rows: []domain.CatalogProduct{
				product(1, "Ibuprofen 400mg", 1080, stock(5)),
				product(2, "Amoxicillin", 3500, stock(0)),
				product(3, "Paracetamol", 720, stock(10)),
				product(4, "Diclofenac", 1500, nil),
			},
			similar: []domain.CatalogProduct{
				product(5, "Naproxeno 550mg", 1620, stock(12)),
				product(9, "Ketorolac 10mg", 810, stock(30)),
			},
			recommended: []domain.CatalogProduct{
				product(11, "Meloxicam 15mg", 1170, stock(15)),
			},
		},
		Customers: &fakeCustomers{byID: map[int64]domain.Customer{
			1: {ID: 1, Name: "Farmacia Central", ShippingAddresses: []domain.ShippingAddress{{Number: 3, Address: "Lavalle 560"}}},
		}},
		PageSize: 10,
	}
	b := NewOrderBuilder("b1", deps)
	ctx := context.Background()
	if err := b.SelectCustomer(ctx, 1); err != nil {
		t.Fatalf("select customer: %v", err)
	}
	if _, err := b.Catalog().Load(ctx); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return b, orders
}

func mustAdd(t *testing.T, b *OrderBuilder, pid, qty int64, want AddOutcome) {
	t.Helper()
	got, err := b.AddProduct(pid, qty)
	if err != nil {
		t.Fatalf("add %d: %v", pid, err)
	}
	if got != want {
		t.Fatalf("add %d: expected %s, got %s", pid, want, got)
	}
}

func TestBuilder_AddTwiceMergesLine(t *testing.T) {
	b, _ := setupBuilder(t)
	mustAdd(t, b, 1, 1, AddDone)
	mustAdd(t, b, 1, 1, AddDone)

	items := b.Items()
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("expected one line with qty 2, got %+v", items)
	}
	if !items[0].FinalPrice.Equal(decimal.NewFromInt(1080)) {
		t.Fatalf("price snapshot: %s", items[0].FinalPrice)
	}
}

func TestBuilder_NoStockNeedsConfirmation(t *testing.T) {
	b, _ := setupBuilder(t)

	mustAdd(t, b, 2, 1, AddNeedsConfirmation)
	if b.State() != StateConfirmingAdd {
		t.Fatalf("state: %s", b.State())
	}
	if _, err := b.AddProduct(1, 1); err == nil {
		t.Fatalf("adds must wait for the pending prompt")
	}
	if err := b.ConfirmAdd(false); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if len(b.Items()) != 0 {
		t.Fatalf("decline must not change the working set")
	}

	mustAdd(t, b, 2, 1, AddNeedsConfirmation)
	if err := b.ConfirmAdd(true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	items := b.Items()
	if len(items) != 1 || items[0].ProductID != 2 || items[0].Quantity != 1 {
		t.Fatalf("accept must add qty 1, got %+v", items)
	}

	// absent stock count counts as zero
	mustAdd(t, b, 4, 1, AddNeedsConfirmation)
}

func TestBuilder_StockConflictAdjust(t *testing.T) {
	b, _ := setupBuilder(t)
	mustAdd(t, b, 3, 8, AddDone)
	mustAdd(t, b, 3, 5, AddConflict)

	v := b.View()
	c := v.Conflict
	if c == nil {
		t.Fatalf("expected conflict")
	}
	if c.ExistingQty != 8 || c.Quantity != 5 || c.TotalQty != 13 || c.MaxCanAdd != 2 || c.Stock != 10 {
		t.Fatalf("unexpected conflict: %+v", c)
	}
	if len(v.ConflictOpts) != 3 {
		t.Fatalf("options: %v", v.ConflictOpts)
	}
	if err := b.ResolveConflict(ResolveAdjust); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if q := b.Items()[0].Quantity; q != 10 {
		t.Fatalf("expected qty 10, got %d", q)
	}
	if b.View().Conflict != nil || b.State() != StateEditingItems {
		t.Fatalf("conflict must be cleared")
	}
}

func TestBuilder_StockConflictOverrideAndCancel(t *testing.T) {
	b, _ := setupBuilder(t)
	mustAdd(t, b, 1, 5, AddDone)

	mustAdd(t, b, 1, 2, AddConflict)
	if opts := b.View().ConflictOpts; len(opts) != 2 {
		t.Fatalf("adjust must not be offered at the ceiling: %v", opts)
	}
	if err := b.ResolveConflict(ResolveAdjust); err == nil {
		t.Fatalf("adjust without room must fail")
	}
	if err := b.ResolveConflict(ResolveCancel); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if q := b.Items()[0].Quantity; q != 5 {
		t.Fatalf("cancel must add nothing, got %d", q)
	}

	mustAdd(t, b, 1, 2, AddConflict)
	if err := b.ResolveConflict(ResolveOverride); err != nil {
		t.Fatalf("override: %v", err)
	}
	if q := b.Items()[0].Quantity; q != 7 {
		t.Fatalf("override must add the full quantity, got %d", q)
	}
}

func TestBuilder_QuantityFloor(t *testing.T) {
	b, _ := setupBuilder(t)
	mustAdd(t, b, 3, 1, AddDone)
	cases := map[string]int64{
		"0": 1, "-3": 1, "-100": 1, "abc": 1, "": 1, "-": 1, "uds 5": 1,
		" 4 ": 4, "3.7": 3, "5 uds": 5, "+2": 2,
	}
	for in, want := range cases {
		got, err := b.SetQuantity(3, in)
		if err != nil {
			t.Fatalf("set %q: %v", in, err)
		}
		if got != want || b.Items()[0].Quantity != want {
			t.Fatalf("input %q: expected %d, got %d", in, want, got)
		}
	}
	// no stock check on quantity edits
	if got, _ := b.SetQuantity(3, "50"); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
}

func TestBuilder_RemoveCreateModeImmediate(t *testing.T) {
	b, _ := setupBuilder(t)
	mustAdd(t, b, 1, 1, AddDone)
	removed, err := b.RemoveItem(1)
	if err != nil || !removed || len(b.Items()) != 0 {
		t.Fatalf("remove: %v %v %+v", removed, err, b.Items())
	}
}

func TestBuilder_SimilarFeedsAdd(t *testing.T) {
	b, _ := setupBuilder(t)
	mustAdd(t, b, 1, 1, AddDone)

	rows, err := b.ShowSimilar(context.Background(), 1)
	if err != nil || len(rows) != 2 {
		t.Fatalf("similar: %v %d", err, len(rows))
	}
	if b.State() != StateShowingSimilar {
		t.Fatalf("state: %s", b.State())
	}
	if _, err := b.ChooseSimilar(1); err == nil {
		t.Fatalf("only listed suggestions can be chosen")
	}
	out, err := b.ChooseSimilar(9)
	if err != nil || out != AddDone {
		t.Fatalf("choose: %v %s", err, out)
	}
	v := b.View()
	if v.State != StateEditingItems || v.Similar != nil {
		t.Fatalf("surface must close: %+v", v)
	}
	if len(v.Items) != 2 || v.Items[1].ProductID != 9 || v.Items[1].Quantity != 1 {
		t.Fatalf("items: %+v", v.Items)
	}
	if !v.Total.Equal(decimal.NewFromInt(1080 + 810)) {
		t.Fatalf("total: %s", v.Total)
	}
}

func TestBuilder_RecommendationsCanBeAdded(t *testing.T) {
	b, _ := setupBuilder(t)
	if _, err := b.AddProduct(11, 1); err == nil {
		t.Fatalf("product 11 was never shown")
	}
	rows, err := b.Recommendations(context.Background())
	if err != nil || len(rows) != 1 {
		t.Fatalf("recommendations: %v %d", err, len(rows))
	}
	mustAdd(t, b, 11, 2, AddDone)

	fresh := NewOrderBuilder("b-none", BuilderDeps{Catalog: &fakeCatalog{}, Customers: &fakeCustomers{}})
	if _, err := fresh.Recommendations(context.Background()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without a customer, got %v", err)
	}
}

func TestBuilder_SubmitValidation(t *testing.T) {
	orders := &fakeOrders{}
	b := NewOrderBuilder("b2", BuilderDeps{Orders: orders, Catalog: &fakeCatalog{}, Customers: &fakeCustomers{}})
	_, err := b.Submit(context.Background(), 1)
	if ae, ok := apperr.As(err); !ok || ae.PublicMsg != "Debe seleccionar un cliente" {
		t.Fatalf("expected customer required, got %v", err)
	}

	b, orders = setupBuilder(t)
	_, err = b.Submit(context.Background(), 1)
	if ae, ok := apperr.As(err); !ok || ae.PublicMsg != "El pedido debe tener al menos un producto" {
		t.Fatalf("expected at least one product, got %v", err)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput")
	}
	if orders.Calls() != 0 {
		t.Fatalf("no request may be sent, got %d", orders.Calls())
	}
	if b.View().LastError == "" {
		t.Fatalf("message must be shown inline")
	}
}

func TestBuilder_SubmitCreate(t *testing.T) {
	b, orders := setupBuilder(t)
	mustAdd(t, b, 1, 2, AddDone)
	mustAdd(t, b, 3, 1, AddDone)

	o, err := b.Submit(context.Background(), 0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.ID != 101 || len(orders.created) != 1 {
		t.Fatalf("unexpected submit: %+v", orders.created)
	}
	req := orders.created[0]
	if req.CustomerID != 1 || req.ShippingAddressNumber != 3 || len(req.Items) != 2 || req.Items[0].Quantity != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if b.State() != StateClosed || len(b.Items()) != 0 {
		t.Fatalf("builder must close after success")
	}
}

func TestBuilder_SubmitFailureKeepsItems(t *testing.T) {
	b, orders := setupBuilder(t)
	orders.err = &apperr.AppError{Kind: apperr.Invalid, Status: 400, PublicMsg: "Cliente inactivo"}
	mustAdd(t, b, 1, 1, AddDone)

	if _, err := b.Submit(context.Background(), 3); err == nil {
		t.Fatalf("expected error")
	}
	v := b.View()
	if v.LastError != "Cliente inactivo" || len(v.Items) != 1 || v.State != StateEditingItems {
		t.Fatalf("failed submit must keep the working set: %+v", v)
	}
	b.DismissError()
	if b.View().LastError != "" {
		t.Fatalf("dismiss")
	}
}

func TestBuilder_SecondSubmitWhilePending(t *testing.T) {
	b, orders := setupBuilder(t)
	orders.block = make(chan struct{})
	mustAdd(t, b, 1, 1, AddDone)

	done := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), 3)
		done <- err
	}()
	deadline := time.Now().Add(2 * time.Second)
	for b.State() != StateSubmitting {
		if time.Now().After(deadline) {
			t.Fatalf("first submit never started")
		}
		time.Sleep(time.Millisecond)
	}
	if _, err := b.Submit(context.Background(), 3); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
	close(orders.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if orders.Calls() != 1 {
		t.Fatalf("expected exactly one request, got %d", orders.Calls())
	}
}

func TestBuilder_CloseDuringFailedSubmitStaysClosed(t *testing.T) {
	b, orders := setupBuilder(t)
	orders.block = make(chan struct{})
	orders.err = errors.New("backend down")
	mustAdd(t, b, 1, 1, AddDone)

	done := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), 3)
		done <- err
	}()
	deadline := time.Now().Add(2 * time.Second)
	for b.State() != StateSubmitting {
		if time.Now().After(deadline) {
			t.Fatalf("submit never started")
		}
		time.Sleep(time.Millisecond)
	}
	b.Close()
	close(orders.block)
	if err := <-done; err == nil {
		t.Fatalf("expected submit error")
	}
	v := b.View()
	if v.State != StateClosed || v.LastError != "" || len(v.Items) != 0 {
		t.Fatalf("closed builder was revived: %+v", v)
	}
}

func TestBuilder_SimilarOnlyForOrderLines(t *testing.T) {
	b, _ := setupBuilder(t)
	mustAdd(t, b, 1, 1, AddDone)

	if _, err := b.ShowSimilar(context.Background(), 3); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if b.State() != StateEditingItems {
		t.Fatalf("state: %s", b.State())
	}
}

func TestBuilder_EditModeHydratesAndConfirmsRemoval(t *testing.T) {
	id1, id2 := int64(11), int64(12)
	orders := &fakeOrders{existing: &domain.Order{
		ID: 7, CustomerID: 1, CustomerName: "Farmacia Central",
		Items: []domain.OrderItem{
			{ID: id1, ProductID: 1, ProductName: "Ibuprofen 400mg", Quantity: 2, UnitPrice: decimal.NewFromInt(1080)},
			{ID: id2, ProductID: 3, ProductName: "Paracetamol", Quantity: 4, UnitPrice: decimal.NewFromInt(720)},
		},
	}}
	deps := BuilderDeps{Orders: orders, Catalog: &fakeCatalog{}, Customers: &fakeCustomers{}}
	b, err := OpenEditBuilder(context.Background(), "e1", deps, 7)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	items := b.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if *items[0].OrderItemID != id1 || items[0].Quantity != 2 || !items[0].FinalPrice.Equal(decimal.NewFromInt(1080)) {
		t.Fatalf("item 0: %+v", items[0])
	}
	if *items[1].OrderItemID != id2 || items[1].Quantity != 4 || !items[1].FinalPrice.Equal(decimal.NewFromInt(720)) {
		t.Fatalf("item 1: %+v", items[1])
	}
	if err := b.SelectCustomer(context.Background(), 2); err == nil {
		t.Fatalf("edit mode cannot change customer")
	}

	removed, err := b.RemoveItem(3)
	if err != nil || removed {
		t.Fatalf("edit-mode removal must wait for confirmation: %v %v", removed, err)
	}
	if err := b.ConfirmRemoval(false); err != nil || len(b.Items()) != 2 {
		t.Fatalf("decline removal: %v", err)
	}
	b.RemoveItem(3)
	if err := b.ConfirmRemoval(true); err != nil || len(b.Items()) != 1 {
		t.Fatalf("accept removal: %v", err)
	}

	if _, err := b.Submit(context.Background(), 0); err != nil {
		t.Fatalf("submit: %v", err)
	}
	req := orders.edits[0]
	if len(req.Items) != 1 || req.Items[0].OrderItemID == nil || *req.Items[0].OrderItemID != id1 {
		t.Fatalf("order_item_id must be preserved: %+v", req)
	}
}

func TestBuilder_CloseResetsFromAnyState(t *testing.T) {
	b, _ := setupBuilder(t)
	mustAdd(t, b, 3, 8, AddDone)
	mustAdd(t, b, 3, 5, AddConflict)

	b.Close()
	v := b.View()
	if v.State != StateClosed || len(v.Items) != 0 || v.Conflict != nil || v.Customer != nil {
		t.Fatalf("close must reset everything: %+v", v)
	}
	if _, err := b.AddProduct(1, 1); err == nil {
		t.Fatalf("closed builder must reject adds")
	}
}

func TestBuilder_RejectsUnseenProducts(t *testing.T) {
	b, _ := setupBuilder(t)
	if _, err := b.AddProduct(99, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
