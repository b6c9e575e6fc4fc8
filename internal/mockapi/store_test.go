package mockapi

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"pharmafront/internal/domain"
)

func TestTable_CRUD(t *testing.T) {
	tb := newTable[domain.Category]()
	setID := func(c *domain.Category, id int64) { c.ID = id }

	a := tb.insert(domain.Category{Name: "A"}, setID)
	b := tb.insert(domain.Category{Name: "B"}, setID)
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("ids: %d %d", a.ID, b.ID)
	}
	if !tb.put(a.ID, domain.Category{ID: a.ID, Name: "A2"}) {
		t.Fatalf("put existing")
	}
	if tb.put(99, domain.Category{}) {
		t.Fatalf("put missing should fail")
	}
	got, ok := tb.get(a.ID)
	if !ok || got.Name != "A2" {
		t.Fatalf("get: %+v", got)
	}
	if !tb.remove(b.ID) || tb.remove(b.ID) {
		t.Fatalf("remove")
	}
	if n := len(tb.all()); n != 1 {
		t.Fatalf("all: %d", n)
	}
}

func TestStore_TransactionalOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	Seed(ctx, store)

	before, _ := store.Product(ctx, 3)
	o, err := store.placeOrder(ctx, 1, 1, []line{{productID: 3, quantity: 3}})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	after, _ := store.Product(ctx, 3)
	if after.Stock != before.Stock-3 {
		t.Fatalf("stock expected %d, got %d", before.Stock-3, after.Stock)
	}
	// Paracetamol 800 with 10% off
	if !o.Items[0].UnitPrice.Equal(decimal.NewFromInt(720)) {
		t.Fatalf("unit price: %s", o.Items[0].UnitPrice)
	}
	if !o.Total.Equal(decimal.NewFromInt(2160)) {
		t.Fatalf("total: %s", o.Total)
	}
}

func TestStore_OversellClampsAtZero(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	Seed(ctx, store)

	if _, err := store.placeOrder(ctx, 1, 1, []line{{productID: 1, quantity: 9}}); err != nil {
		t.Fatalf("place: %v", err)
	}
	p, _ := store.Product(ctx, 1)
	if p.Stock != 0 {
		t.Fatalf("stock expected 0, got %d", p.Stock)
	}
}

func TestStore_PlaceOrderRejects(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	Seed(ctx, store)

	if _, err := store.placeOrder(ctx, 1, 1, nil); err == nil {
		t.Fatalf("expected empty items error")
	}
	if _, err := store.placeOrder(ctx, 1, 7, []line{{productID: 1, quantity: 1}}); err == nil {
		t.Fatalf("expected shipping address error")
	}
	if _, err := store.placeOrder(ctx, 1, 1, []line{{productID: 404, quantity: 1}}); err == nil {
		t.Fatalf("expected unknown product error")
	}
}

func TestSimilarity_Ranking(t *testing.T) {
	cat := int64(1)
	other := int64(2)
	base := domain.Product{Price: decimal.NewFromInt(100), CategoryID: &cat}
	sameCat := domain.Product{Price: decimal.NewFromInt(150), CategoryID: &cat}
	closePrice := domain.Product{Price: decimal.NewFromInt(100), CategoryID: &other}
	if similarity(base, sameCat) <= similarity(base, closePrice) {
		t.Fatalf("same category should rank higher")
	}
	if s := similarity(base, base); s != 1 {
		t.Fatalf("identical score: %v", s)
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	if !containsIgnoreCase("Paracetamol", "PARA") || containsIgnoreCase("Aspirina", "ibu") || !containsIgnoreCase("x", "") {
		t.Fatalf("containsIgnoreCase")
	}
}
