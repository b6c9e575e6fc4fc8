package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmafront/internal/domain"
	"pharmafront/internal/export"
)

type assignReq struct {
	SellerID int64  `json:"seller_id" binding:"required,gt=0"`
	Notes    string `json:"notes"`
}

type statusReq struct {
	Status domain.OrderStatus `json:"status" binding:"required,oneof=pending confirmed assigned shipped delivered cancelled"`
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /ui/orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	_, ctx := backendCtx(c)
	o, err := s.deps.Orders.Get(ctx, id)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Assign order to a seller
// @Tags orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param input body assignReq true "Seller"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /ui/orders/{id}/assign [post]
func (s *Server) assignSeller(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignReq
	if !bindRequired(c, &req) {
		return
	}
	_, ctx := backendCtx(c)
	o, err := s.deps.Orders.AssignSeller(ctx, id, req.SellerID, req.Notes)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Change order status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param input body statusReq true "New status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]any
// @Router /ui/orders/{id}/status [put]
func (s *Server) updateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusReq
	if !bindRequired(c, &req) {
		return
	}
	_, ctx := backendCtx(c)
	o, err := s.deps.Orders.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Cancel order
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /ui/orders/{id}/cancel [post]
func (s *Server) cancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	_, ctx := backendCtx(c)
	o, err := s.deps.Orders.Cancel(ctx, id)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Export the current orders page
// @Description Refreshes the session's orders list page and returns it as a spreadsheet.
// @Tags orders
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /ui/orders/export.xlsx [get]
func (s *Server) exportOrders(c *gin.Context) {
	v := sessionList[domain.Order](c, s.deps.PageSize, s.deps.Debounce, "orders", s.deps.Orders.List)
	_, ctx := backendCtx(c)
	page, err := v.Load(ctx)
	if err != nil {
		Fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.OrdersXLSX(&buf, page.Items); err != nil {
		Fail(c, err)
		return
	}
	name := fmt.Sprintf("pedidos-%s-p%d.xlsx", time.Now().Format("20060102"), page.Page+1)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}
