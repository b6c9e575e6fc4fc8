package service

import "fmt"

type Resolution string

const (
	ResolveOverride Resolution = "override"
	ResolveAdjust   Resolution = "adjust"
	ResolveCancel   Resolution = "cancel"
)

// StockConflict is raised when an add would take a line past the registered stock.
type StockConflict struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Stock       int64  `json:"stock"`
	ExistingQty int64  `json:"existing_qty"`
	Quantity    int64  `json:"quantity"`
	TotalQty    int64  `json:"total_qty"`
	MaxCanAdd   int64  `json:"max_can_add"`
}

func newStockConflict(productID int64, name string, stock, existing, qty int64) *StockConflict {
	return &StockConflict{
		ProductID:   productID,
		ProductName: name,
		Stock:       stock,
		ExistingQty: existing,
		Quantity:    qty,
		TotalQty:    existing + qty,
		MaxCanAdd:   max(stock-existing, 0),
	}
}

// exceedsStock reports whether adding qty conflicts with a known positive stock.
// Zero stock goes through the no-stock confirmation instead.
func exceedsStock(stock, existing, qty int64) bool {
	return stock > 0 && existing+qty > stock
}

// Options lists the resolutions on offer; adjust only when something fits.
func (c *StockConflict) Options() []Resolution {
	if c.MaxCanAdd > 0 {
		return []Resolution{ResolveOverride, ResolveAdjust, ResolveCancel}
	}
	return []Resolution{ResolveOverride, ResolveCancel}
}

// Apply returns how many units to add for r.
func (c *StockConflict) Apply(r Resolution) (int64, error) {
	switch r {
	case ResolveOverride:
		return c.Quantity, nil
	case ResolveAdjust:
		if c.MaxCanAdd <= 0 {
			return 0, invalidInput("No hay stock disponible para ajustar la cantidad")
		}
		return c.MaxCanAdd, nil
	case ResolveCancel:
		return 0, nil
	}
	return 0, invalidInput(fmt.Sprintf("Opción de resolución desconocida: %q", r))
}
