package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// the backend speaks JSON numbers for money
	decimal.MarshalJSONWithoutQuotes = true
}

// Role of an authenticated user
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSeller    Role = "seller"
	RoleMarketing Role = "marketing"
	RoleCustomer  Role = "customer"
)

// IsStaff reports whether the role may build orders on behalf of customers
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSeller || r == RoleMarketing
}

// Token is the login response
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is an account managed by admins
type User struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       Role   `json:"role"`
	IsActive   bool   `json:"is_active"`
	CustomerID *int64 `json:"customer_id,omitempty"`
	Password   string `json:"password,omitempty"`
}

// Category groups products
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Product is the admin view of inventory
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	IsActive    bool            `json:"is_active"`
}

// PriceList is a backend pricing rule assigned to customers
type PriceList struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	IsActive           bool            `json:"is_active"`
}

// SalesGroup ties sellers to the customers they serve
type SalesGroup struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	SellerIDs   []int64 `json:"seller_ids"`
	CustomerIDs []int64 `json:"customer_ids"`
}

// ShippingAddress is referenced by number when an order is placed
type ShippingAddress struct {
	Number  int    `json:"number"`
	Address string `json:"address"`
}

// Customer is a pharmacy buying from the distributor
type Customer struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	PriceListID       *int64            `json:"price_list_id,omitempty"`
	SalesGroupID      *int64            `json:"sales_group_id,omitempty"`
	ShippingAddresses []ShippingAddress `json:"shipping_addresses,omitempty"`
}

// CatalogProduct is a product priced for one customer.
// FinalPrice and StockCount are read-once hints; the backend recomputes both on submit.
type CatalogProduct struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	FinalPrice      decimal.Decimal `json:"final_price"`
	StockCount      *int64          `json:"stock_count,omitempty"`
	SimilarityScore *float64        `json:"similarity_score,omitempty"`
}

// Stock returns the stock hint, treating an absent count as zero
func (p CatalogProduct) Stock() int64 {
	if p.StockCount == nil {
		return 0
	}
	return *p.StockCount
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusAssigned  OrderStatus = "assigned"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusAssigned,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Final reports whether no further transition is possible
func (s OrderStatus) Final() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// OrderItem is a persisted order line
type OrderItem struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Order as returned by the backend
type Order struct {
	ID                    int64           `json:"id"`
	CustomerID            int64           `json:"customer_id"`
	CustomerName          string          `json:"customer_name"`
	Status                OrderStatus     `json:"status"`
	Items                 []OrderItem     `json:"items"`
	Total                 decimal.Decimal `json:"total"`
	ShippingAddressNumber int             `json:"shipping_address_number"`
	AssignedSellerID      *int64          `json:"assigned_seller_id,omitempty"`
	AssignmentNotes       string          `json:"assignment_notes,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// ItemRequest is one line of a create-order body
type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// CreateOrderRequest is sent by customers checking out their own cart
type CreateOrderRequest struct {
	Items                 []ItemRequest `json:"items"`
	ShippingAddressNumber int           `json:"shipping_address_number"`
}

// CreateCustomerOrderRequest is sent by staff building an order for a customer
type CreateCustomerOrderRequest struct {
	CustomerID            int64         `json:"customer_id"`
	Items                 []ItemRequest `json:"items"`
	ShippingAddressNumber int           `json:"shipping_address_number"`
}

// EditItemRequest is one line of an edit-order body; OrderItemID is nil for new lines
type EditItemRequest struct {
	OrderItemID *int64 `json:"order_item_id"`
	ProductID   int64  `json:"product_id"`
	Quantity    int64  `json:"quantity"`
}

// EditOrderRequest replaces the items of an existing order
type EditOrderRequest struct {
	Items []EditItemRequest `json:"items"`
}

// AssignSellerRequest assigns an order to a seller
type AssignSellerRequest struct {
	AssignedSellerID int64  `json:"assigned_seller_id"`
	AssignmentNotes  string `json:"assignment_notes"`
}

// StatusRequest changes the status of an order
type StatusRequest struct {
	Status OrderStatus `json:"status"`
}
