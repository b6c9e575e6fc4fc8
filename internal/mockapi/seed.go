package mockapi

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pharmafront/internal/domain"
)

// Demo accounts created by Seed; all share DemoPassword.
const (
	DemoAdmin     = "admin"
	DemoSeller    = "vendedor"
	DemoMarketing = "marketing"
	DemoCustomer  = "farmacia"
	DemoPassword  = "secreto123"
)

func ptr[T any](v T) *T { return &v }

// Seed fills the store with a small pharmacy catalog, three customers and one
// pending order (id 1) for customer 1.
func Seed(ctx context.Context, s *Store) {
	general := s.AddPriceList(ctx, domain.PriceList{Name: "Lista General", DiscountPercentage: decimal.Zero, IsActive: true})
	mayorista := s.AddPriceList(ctx, domain.PriceList{Name: "Lista Mayorista", Description: "10% sobre lista", DiscountPercentage: decimal.NewFromInt(10), IsActive: true})

	analgesicos := s.AddCategory(ctx, domain.Category{Name: "Analgésicos"})
	antibioticos := s.AddCategory(ctx, domain.Category{Name: "Antibióticos"})
	aines := s.AddCategory(ctx, domain.Category{Name: "Antiinflamatorios"})

	central := s.AddCustomer(ctx, domain.Customer{
		Name: "Farmacia Central", Email: "compras@farmaciacentral.com", PriceListID: ptr(mayorista.ID),
		ShippingAddresses: []domain.ShippingAddress{{Number: 1, Address: "Av. Corrientes 1234"}, {Number: 2, Address: "Lavalle 560"}},
	})
	sol := s.AddCustomer(ctx, domain.Customer{
		Name: "Farmacia del Sol", Email: "pedidos@farmaciadelsol.com", PriceListID: ptr(general.ID),
		ShippingAddresses: []domain.ShippingAddress{{Number: 1, Address: "San Martín 88"}},
	})
	s.AddCustomer(ctx, domain.Customer{Name: "Farmacia Norte", Email: "norte@farmacias.com"})

	s.AddUser(ctx, domain.User{Username: DemoAdmin, Email: "admin@pharma.com", FullName: "Administrador", Role: domain.RoleAdmin, IsActive: true}, DemoPassword)
	seller := s.AddUser(ctx, domain.User{Username: DemoSeller, Email: "vendedor@pharma.com", FullName: "Juan Pérez", Role: domain.RoleSeller, IsActive: true}, DemoPassword)
	s.AddUser(ctx, domain.User{Username: DemoMarketing, Email: "marketing@pharma.com", FullName: "Laura Gómez", Role: domain.RoleMarketing, IsActive: true}, DemoPassword)
	s.AddUser(ctx, domain.User{Username: DemoCustomer, Email: "farmacia@farmaciacentral.com", FullName: "Farmacia Central", Role: domain.RoleCustomer, IsActive: true, CustomerID: ptr(central.ID)}, DemoPassword)
	s.AddUser(ctx, domain.User{Username: "vendedor2", Email: "vendedor2@pharma.com", FullName: "Ana Ruiz", Role: domain.RoleSeller, IsActive: true}, DemoPassword)

	s.AddSalesGroup(ctx, domain.SalesGroup{Name: "Zona Centro", SellerIDs: []int64{seller.ID}, CustomerIDs: []int64{central.ID, sol.ID}})

	products := []struct {
		name  string
		price int64
		stock int64
		cat   int64
	}{
		{"Ibuprofeno 400mg", 1200, 5, aines.ID},
		{"Amoxicilina 500mg", 3500, 0, antibioticos.ID},
		{"Paracetamol 500mg", 800, 10, analgesicos.ID},
		{"Diclofenac 75mg", 1500, 20, aines.ID},
		{"Naproxeno 550mg", 1800, 12, aines.ID},
		{"Aspirina 100mg", 600, 50, analgesicos.ID},
		{"Cefalexina 500mg", 4200, 3, antibioticos.ID},
		{"Azitromicina 500mg", 5100, 8, antibioticos.ID},
		{"Ketorolac 10mg", 900, 30, aines.ID},
		{"Dipirona 500mg", 700, 40, analgesicos.ID},
		{"Meloxicam 15mg", 1300, 15, aines.ID},
		{"Ciprofloxacina 500mg", 2900, 6, antibioticos.ID},
	}
	for i, p := range products {
		s.AddProduct(ctx, domain.Product{
			Name:       p.name,
			SKU:        "MED-" + string(rune('A'+i)),
			Price:      decimal.NewFromInt(p.price),
			Stock:      p.stock,
			CategoryID: ptr(p.cat),
			IsActive:   true,
		})
	}

	// order 1 is placed straight into the tables so stock stays as listed above
	_ = s.WithTransaction(ctx, func(ctx context.Context) error {
		items := []domain.OrderItem{
			{ProductID: 1, ProductName: "Ibuprofeno 400mg", Quantity: 2},
			{ProductID: 3, ProductName: "Paracetamol 500mg", Quantity: 4},
		}
		total := decimal.Zero
		for i := range items {
			p, _ := s.products.get(items[i].ProductID)
			items[i].ID = s.nextItemID
			s.nextItemID++
			items[i].UnitPrice = s.finalPrice(p.Price, central)
			items[i].Subtotal = items[i].UnitPrice.Mul(decimal.NewFromInt(items[i].Quantity))
			total = total.Add(items[i].Subtotal)
		}
		created := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
		s.orders.insert(domain.Order{
			CustomerID:            central.ID,
			CustomerName:          central.Name,
			Status:                domain.OrderStatusPending,
			Items:                 items,
			Total:                 total,
			ShippingAddressNumber: 1,
			CreatedAt:             created,
			UpdatedAt:             created,
		}, func(o *domain.Order, id int64) { o.ID = id })
		return nil
	})
}
