// Package export renders order list pages as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"pharmafront/internal/domain"
)

const (
	SheetOrders = "Pedidos"
	SheetItems  = "Detalle"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var statusLabels = map[domain.OrderStatus]string{
	domain.OrderStatusPending:   "Pendiente",
	domain.OrderStatusConfirmed: "Confirmado",
	domain.OrderStatusAssigned:  "Asignado",
	domain.OrderStatusShipped:   "Enviado",
	domain.OrderStatusDelivered: "Entregado",
	domain.OrderStatusCancelled: "Cancelado",
}

func StatusLabel(s domain.OrderStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

var (
	orderHeader = []any{"Pedido", "Cliente", "Estado", "Fecha", "Vendedor asignado", "Dirección", "Productos", "Total"}
	itemHeader  = []any{"Pedido", "Línea", "Producto", "Cantidad", "Precio unitario", "Subtotal"}
)

// OrdersXLSX writes one summary row per order plus a detail sheet with every line.
func OrdersXLSX(w io.Writer, orders []domain.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetOrders); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetItems); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("style: %w", err)
	}

	if err := writeHeader(f, SheetOrders, orderHeader, bold); err != nil {
		return err
	}
	if err := writeHeader(f, SheetItems, itemHeader, bold); err != nil {
		return err
	}

	itemRow := 2
	for i, o := range orders {
		seller := ""
		if o.AssignedSellerID != nil {
			seller = fmt.Sprint(*o.AssignedSellerID)
		}
		row := []any{
			o.ID,
			o.CustomerName,
			StatusLabel(o.Status),
			o.CreatedAt.Format("2006-01-02 15:04"),
			seller,
			o.ShippingAddressNumber,
			len(o.Items),
			o.Total.InexactFloat64(),
		}
		if err := setRow(f, SheetOrders, i+2, row); err != nil {
			return err
		}
		for _, it := range o.Items {
			line := []any{o.ID, it.ID, it.ProductName, it.Quantity, it.UnitPrice.InexactFloat64(), it.Subtotal.InexactFloat64()}
			if err := setRow(f, SheetItems, itemRow, line); err != nil {
				return err
			}
			itemRow++
		}
	}

	_ = f.SetColWidth(SheetOrders, "B", "B", 28)
	_ = f.SetColWidth(SheetItems, "C", "C", 28)
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeHeader(f *excelize.File, sheet string, header []any, style int) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
