package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pharmafront/internal/apperr"
	"pharmafront/internal/service"
)

type openBuilderReq struct {
	CustomerID int64 `json:"customer_id"`
}

type customerReq struct {
	CustomerID int64 `json:"customer_id" binding:"required,gt=0"`
}

type builderAddReq struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int64 `json:"quantity"`
}

type decisionReq struct {
	Accept *bool `json:"accept" binding:"required"`
}

type conflictReq struct {
	Resolution service.Resolution `json:"resolution" binding:"required"`
}

// builderQuantityReq keeps the raw input: anything that is not a whole number
// of at least 1 becomes 1.
type builderQuantityReq struct {
	Quantity json.RawMessage `json:"quantity"`
}

type chooseReq struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
}

type submitReq struct {
	ShippingAddressNumber int `json:"shipping_address_number"`
}

type addResp struct {
	Outcome service.AddOutcome  `json:"outcome"`
	Builder service.BuilderView `json:"builder"`
}

type removeResp struct {
	Removed bool                `json:"removed"`
	Builder service.BuilderView `json:"builder"`
}

// builder looks up the :bid builder of the session or fails with 404.
func builder(c *gin.Context) (*service.OrderBuilder, bool) {
	b, ok := CurrentSession(c).Builder(c.Param("bid"))
	if !ok {
		Fail(c, apperr.NotFoundErr("El pedido en construcción no existe o ya fue cerrado."))
		return nil, false
	}
	return b, true
}

// bindOptional binds a JSON body only when one was sent.
func bindOptional(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		Fail(c, FromBindError(err, dst))
		return false
	}
	return true
}

func bindRequired(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		Fail(c, FromBindError(err, dst))
		return false
	}
	return true
}

// @Summary Start building an order for a customer
// @Tags builder
// @Accept json
// @Produce json
// @Param input body openBuilderReq false "Optional customer to select right away"
// @Success 201 {object} service.BuilderView
// @Router /ui/builders [post]
func (s *Server) openBuilder(c *gin.Context) {
	var req openBuilderReq
	if !bindOptional(c, &req) {
		return
	}
	st, ctx := backendCtx(c)
	b := service.NewOrderBuilder(uuid.NewString(), s.deps.Builders)
	if req.CustomerID > 0 {
		if err := b.SelectCustomer(ctx, req.CustomerID); err != nil {
			Fail(c, err)
			return
		}
	}
	st.PutBuilder(b)
	c.JSON(http.StatusCreated, b.View())
}

// @Summary Start editing an existing order
// @Tags builder
// @Produce json
// @Param id path int true "Order ID"
// @Success 201 {object} service.BuilderView
// @Failure 404 {object} map[string]string
// @Router /ui/orders/{id}/builder [post]
func (s *Server) openEditBuilder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	st, ctx := backendCtx(c)
	b, err := service.OpenEditBuilder(ctx, uuid.NewString(), s.deps.Builders, id)
	if err != nil {
		Fail(c, err)
		return
	}
	st.PutBuilder(b)
	c.JSON(http.StatusCreated, b.View())
}

// @Summary Builder state
// @Tags builder
// @Produce json
// @Param bid path string true "Builder ID"
// @Success 200 {object} service.BuilderView
// @Failure 404 {object} map[string]string
// @Router /ui/builders/{bid} [get]
func (s *Server) builderView(c *gin.Context) {
	if b, ok := builder(c); ok {
		c.JSON(http.StatusOK, b.View())
	}
}

// @Summary Close a builder, discarding its items
// @Tags builder
// @Param bid path string true "Builder ID"
// @Success 204
// @Router /ui/builders/{bid} [delete]
func (s *Server) closeBuilder(c *gin.Context) {
	CurrentSession(c).CloseBuilder(c.Param("bid"))
	c.Status(http.StatusNoContent)
}

// @Summary Select the customer
// @Tags builder
// @Accept json
// @Produce json
// @Param bid path string true "Builder ID"
// @Param input body customerReq true "Customer"
// @Success 200 {object} service.BuilderView
// @Failure 409 {object} map[string]string
// @Router /ui/builders/{bid}/customer [post]
func (s *Server) selectCustomer(c *gin.Context) {
	b, ok := builder(c)
	if !ok {
		return
	}
	var req customerReq
	if !bindRequired(c, &req) {
		return
	}
	_, ctx := backendCtx(c)
	if err := b.SelectCustomer(ctx, req.CustomerID); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b.View())
}

// @Summary Customer-priced catalog for the builder
// @Tags builder
// @Produce json
// @Param bid path string true "Builder ID"
// @Param search query string false "Search term (debounced)"
// @Param nav query string false "next | prev | reload"
// @Success 200 {object} service.Page[domain.CatalogProduct]
// @Router /ui/builders/{bid}/catalog [get]
func (s *Server) builderCatalog(c *gin.Context) {
	b, ok := builder(c)
	if !ok {
		return
	}
	v := b.Catalog()
	if v == nil {
		Fail(c, apperr.InvalidErr("Debe seleccionar un cliente", nil))
		return
	}
	renderList(c, v)
}

// @Summary Add a product
// @Description Zero stock opens a confirmation, exceeding known stock opens a conflict.
// @Tags builder
// @Accept json
// @Produce json
// @Param bid path string true "Builder ID"
// @Param input body builderAddReq true "Product and quantity (default 1)"
// @Success 200 {object} addResp
// @Router /ui/builders/{bid}/items [post]
func (s *Server) builderAdd(c *gin.Context) {
	b, ok := builder(c)
	if !ok {
		return
	}
	var req builderAddReq
	if !bindRequired(c, &req) {
		return
	}
	outcome, err := b.AddProduct(req.ProductID, req.Quantity)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, addResp{Outcome: outcome, Builder: b.View()})
}

// @Summary Answer the no-stock confirmation
// @Tags builder
// @Accept json
// @Produce json
// @Param bid path string true "Builder ID"
// @Param input body decisionReq true "Accept or cancel"
// @Success 200 {object} service.BuilderView
// @Router /ui/builders/{bid}/confirm-add [post]
func (s *Server) builderConfirmAdd(c *gin.Context) {
	b, ok := builder(c)
	if !ok {
		return
	}
	var req decisionReq
	if !bindRequired(c, &req) {
		return
	}
	if err := b.ConfirmAdd(*req.Accept); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b.View())
}

// @Summary Set a line quantity
// @Tags builder
// @Accept json
// @Produce json
// @Param bid path string true "Builder ID"
// @Param productId path int true "Product ID"
// @Param input body builderQuantityReq true "Raw quantity input"
// @Success 200 {object} service.BuilderView
// @Router /ui/builders/{bid}/items/{productId} [put]
func (s *Server) builderSetQuantity(c *gin.Context) {
	b, ok := builder(c)
	if !ok {
		return
	}
	pid, ok := pathID(c, "productId")
	if !ok {
		return
	}
	var req builderQuantityReq
	if !bindRequired(c, &req) {
		return
	}
	if _, err := b.SetQuantity(pid, strings.Trim(string(req.Quantity), `" `)); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b.View())
}

// @Summary Remove a line
// @Description In edit mode this opens a confirmation instead of removing.
// @Tags builder
// @Produce json
// @Param bid path string true "Builder ID"
// @Param productId path int true "Product ID"
// @Success 200 {object} removeResp
// @Router /ui/builders/{bid}/items/{productId} [delete]
func (s *Server) builderRemove(c *gin.Context) {
	b, ok := builder(c)
	if !ok {
		return
	}
	pid, ok := pathID(c, "productId")
	if !ok {
		return
	}
	removed, err := b.RemoveItem(pid)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, removeResp{Removed: removed, Builder: b.View()})
}

// @Summary Answer the removal confirmation
// @Tags builder
// @Accept json
// @Produce json
// @Param bid path string true "Builder ID"
// @Param input body decisionReq true "Accept or cancel"
// @Success 200 {object} service.BuilderView
// @Router /ui/builders/{bid}/confirm-removal [post]
func (s *Server) builderConfirmRemoval(c *gin.Context) {
	b, ok := builder(c)
	if !ok {
		return
	}
	var req decisionReq
	if !bindRequired(c, &req) {
		return
	}
	if err := b.ConfirmRemoval(*req.Accept); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b.View())
}

// @Summary Resolve a stock conflict
// @Tags builder
// @Accept json
// @Produce json
// @Param bid path string true "Builder ID"
// @Param input body conflictReq true "override | adjust | cancel"
// @Success 200 {object} service.BuilderView
// @Router /ui/builders/{bid}/conflict [post]
func (s *Server) builderResolveConflict(c *gin.Context) {
	b, ok := builder(c)
	if !ok {
		return
	}
	var req conflictReq
	if !bindRequired(c, &req) {
		return
	}
	if err := b.ResolveConflict(req.Resolution); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b.View())
}

// @Summary Show products similar to a line
// @Tags builder
// @Produce json
// @Param bid path string true "Builder ID"
// @Param productId path int true "Product ID"
// @Success 200 {object} service.BuilderView
// @Router /ui/builders/{bid}/items/{productId}/similar [get]
func (s *Server) builderSimilar(c *gin.Context) {
	b, ok := builder(c)
	if !ok {
		return
	}
	pid, ok := pathID(c, "productId")
	if !ok {
		return
	}
	_, ctx := backendCtx(c)
	if _, err := b.ShowSimilar(ctx, pid); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b.View())
}

// @Summary Products recommended for the builder's customer
// @Tags builder
// @Produce json
// @Param bid path string true "Builder ID"
// @Success 200 {array} domain.CatalogProduct
// @Router /ui/builders/{bid}/recommendations [get]
func (s *Server) builderRecommendations(c *gin.Context) {
	b, ok := builder(c)
	if !ok {
		return
	}
	_, ctx := backendCtx(c)
	rows, err := b.Recommendations(ctx)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// @Summary Add one unit of a suggested product
// @Tags builder
// @Accept json
// @Produce json
// @Param bid path string true "Builder ID"
// @Param input body chooseReq true "Suggested product"
// @Success 200 {object} addResp
// @Router /ui/builders/{bid}/similar/choose [post]
func (s *Server) builderChooseSimilar(c *gin.Context) {
	b, ok := builder(c)
	if !ok {
		return
	}
	var req chooseReq
	if !bindRequired(c, &req) {
		return
	}
	outcome, err := b.ChooseSimilar(req.ProductID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, addResp{Outcome: outcome, Builder: b.View()})
}

// @Summary Close the suggestions
// @Tags builder
// @Produce json
// @Param bid path string true "Builder ID"
// @Success 200 {object} service.BuilderView
// @Router /ui/builders/{bid}/similar [delete]
func (s *Server) builderCloseSimilar(c *gin.Context) {
	if b, ok := builder(c); ok {
		b.CloseSimilar()
		c.JSON(http.StatusOK, b.View())
	}
}

// @Summary Dismiss the last submit error
// @Tags builder
// @Produce json
// @Param bid path string true "Builder ID"
// @Success 200 {object} service.BuilderView
// @Router /ui/builders/{bid}/error [delete]
func (s *Server) builderDismissError(c *gin.Context) {
	if b, ok := builder(c); ok {
		b.DismissError()
		c.JSON(http.StatusOK, b.View())
	}
}

// @Summary Submit the order
// @Description On failure the items and the error stay on the builder; on success it closes.
// @Tags builder
// @Accept json
// @Produce json
// @Param bid path string true "Builder ID"
// @Param input body submitReq false "Shipping address number, 0 picks the customer's first"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]any
// @Failure 409 {object} map[string]string
// @Router /ui/builders/{bid}/submit [post]
func (s *Server) builderSubmit(c *gin.Context) {
	b, ok := builder(c)
	if !ok {
		return
	}
	var req submitReq
	if !bindOptional(c, &req) {
		return
	}
	st, ctx := backendCtx(c)
	o, err := b.Submit(ctx, req.ShippingAddressNumber)
	if err != nil {
		Fail(c, err)
		return
	}
	st.CloseBuilder(b.ID())
	s.log.Info("order_submitted", "request_id", GetRequestID(c), "order_id", o.ID, "mode", string(b.Mode()), "total", o.Total.String())
	c.JSON(http.StatusCreated, o)
}
