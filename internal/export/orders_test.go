package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"pharmafront/internal/domain"
)

func TestOrdersXLSX(t *testing.T) {
	seller := int64(2)
	orders := []domain.Order{
		{
			ID: 1, CustomerName: "Farmacia Central", Status: domain.OrderStatusPending,
			Total: decimal.NewFromInt(5040), ShippingAddressNumber: 1, AssignedSellerID: &seller,
			CreatedAt: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
			Items: []domain.OrderItem{
				{ID: 1, ProductName: "Ibuprofeno 400mg", Quantity: 2, UnitPrice: decimal.NewFromInt(1080), Subtotal: decimal.NewFromInt(2160)},
				{ID: 2, ProductName: "Paracetamol 500mg", Quantity: 4, UnitPrice: decimal.NewFromInt(720), Subtotal: decimal.NewFromInt(2880)},
			},
		},
		{ID: 2, CustomerName: "Farmacia del Sol", Status: domain.OrderStatusCancelled, Total: decimal.Zero},
	}

	var buf bytes.Buffer
	if err := OrdersXLSX(&buf, orders); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetOrders)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][1] != "Farmacia Central" || rows[1][2] != "Pendiente" || rows[1][4] != "2" || rows[1][7] != "5040" {
		t.Fatalf("unexpected summary row: %v", rows[1])
	}
	if rows[2][2] != "Cancelado" {
		t.Fatalf("unexpected status label: %v", rows[2])
	}

	items, err := f.GetRows(SheetItems)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 3 || items[2][2] != "Paracetamol 500mg" || items[2][3] != "4" {
		t.Fatalf("unexpected detail rows: %v", items)
	}
}

func TestStatusLabel_Unknown(t *testing.T) {
	if got := StatusLabel("on_hold"); got != "on_hold" {
		t.Fatalf("got %q", got)
	}
}
