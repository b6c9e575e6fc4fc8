package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pharmafront/internal/domain"
	"pharmafront/internal/repository"
	"pharmafront/internal/service"
)

type cartLineView struct {
	service.CartLine
	Subtotal decimal.Decimal `json:"subtotal"`
}

type cartView struct {
	Items []cartLineView  `json:"items"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func renderCart(cart *service.Cart) cartView {
	lines := cart.Lines()
	v := cartView{Items: make([]cartLineView, 0, len(lines)), Count: cart.Count(), Total: cart.Total()}
	for _, l := range lines {
		v.Items = append(v.Items, cartLineView{CartLine: l, Subtotal: l.Subtotal()})
	}
	return v
}

type cartItemReq struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int64 `json:"quantity"`
}

type quantityReq struct {
	Quantity int64 `json:"quantity"`
}

type checkoutReq struct {
	ShippingAddressNumber int `json:"shipping_address_number"`
}

// @Summary Customer catalog page
// @Description Products priced with the customer's price list. Rows shown here can be added to the cart.
// @Tags cart
// @Produce json
// @Param search query string false "Search term (debounced)"
// @Param nav query string false "next | prev | reload"
// @Success 200 {object} service.Page[domain.CatalogProduct]
// @Router /ui/catalog [get]
func (s *Server) catalog(c *gin.Context) {
	cart := CurrentSession(c).Cart
	catalog := s.deps.Catalog
	fetch := func(ctx context.Context, p repository.ListParams) ([]domain.CatalogProduct, error) {
		rows, err := catalog.Mine(ctx, p)
		if err == nil {
			cart.Observe(rows)
		}
		return rows, err
	}
	renderList(c, sessionList[domain.CatalogProduct](c, s.deps.PageSize, s.deps.Debounce, "catalog", fetch))
}

// @Summary Cart contents
// @Tags cart
// @Produce json
// @Success 200 {object} cartView
// @Router /ui/cart [get]
func (s *Server) cart(c *gin.Context) {
	c.JSON(http.StatusOK, renderCart(CurrentSession(c).Cart))
}

// @Summary Add to cart
// @Tags cart
// @Accept json
// @Produce json
// @Param input body cartItemReq true "Product and quantity (default 1)"
// @Success 200 {object} cartView
// @Failure 400 {object} map[string]any
// @Router /ui/cart/items [post]
func (s *Server) addToCart(c *gin.Context) {
	var req cartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, FromBindError(err, &req))
		return
	}
	cart := CurrentSession(c).Cart
	if err := cart.AddProduct(req.ProductID, max(req.Quantity, 1)); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renderCart(cart))
}

// @Summary Set cart line quantity
// @Tags cart
// @Accept json
// @Produce json
// @Param productId path int true "Product ID"
// @Param input body quantityReq true "Quantity, clamped to at least 1"
// @Success 200 {object} cartView
// @Failure 400 {object} map[string]any
// @Router /ui/cart/items/{productId} [put]
func (s *Server) setCartQuantity(c *gin.Context) {
	pid, ok := pathID(c, "productId")
	if !ok {
		return
	}
	var req quantityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, FromBindError(err, &req))
		return
	}
	cart := CurrentSession(c).Cart
	if err := cart.SetQuantity(pid, req.Quantity); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renderCart(cart))
}

// @Summary Remove cart line
// @Tags cart
// @Produce json
// @Param productId path int true "Product ID"
// @Success 200 {object} cartView
// @Router /ui/cart/items/{productId} [delete]
func (s *Server) removeFromCart(c *gin.Context) {
	pid, ok := pathID(c, "productId")
	if !ok {
		return
	}
	cart := CurrentSession(c).Cart
	if err := cart.Remove(pid); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renderCart(cart))
}

// @Summary Check out
// @Description Places the cart as an order; the cart empties only when the backend accepts it.
// @Tags cart
// @Accept json
// @Produce json
// @Param input body checkoutReq false "Shipping address number"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]any
// @Router /ui/cart/checkout [post]
func (s *Server) checkout(c *gin.Context) {
	var req checkoutReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Fail(c, FromBindError(err, &req))
			return
		}
	}
	st, ctx := backendCtx(c)
	o, err := st.Cart.Checkout(ctx, req.ShippingAddressNumber)
	if err != nil {
		Fail(c, err)
		return
	}
	s.log.Info("order_placed", "request_id", GetRequestID(c), "order_id", o.ID, "total", o.Total.String())
	c.JSON(http.StatusCreated, o)
}
