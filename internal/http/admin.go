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

type productReq struct {
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	CategoryID  *int64          `json:"category_id"`
	IsActive    *bool           `json:"is_active"`
}

func (r productReq) product(id int64) domain.Product {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return domain.Product{
		ID: id, Name: r.Name, SKU: r.SKU, Description: r.Description,
		Price: r.Price, Stock: r.Stock, CategoryID: r.CategoryID, IsActive: active,
	}
}

// @Summary Create product
// @Tags admin
// @Accept json
// @Produce json
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]any
// @Router /ui/admin/products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if !bindRequired(c, &req) {
		return
	}
	_, ctx := backendCtx(c)
	p, err := s.deps.Products.Create(ctx, req.product(0))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags admin
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /ui/admin/products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	_, ctx := backendCtx(c)
	p, err := s.deps.Products.GetByID(ctx, id)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param input body productReq true "Update"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /ui/admin/products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req productReq
	if !bindRequired(c, &req) {
		return
	}
	_, ctx := backendCtx(c)
	p, err := s.deps.Products.Update(ctx, req.product(id))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags admin
// @Param id path int true "Product ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /ui/admin/products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	_, ctx := backendCtx(c)
	if err := s.deps.Products.Delete(ctx, id); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// adminRoutes mounts list, get, create, update and delete for one resource.
// The list is a session list view named after the path.
func adminRoutes[T any](s *Server, g *gin.RouterGroup, path string, svc *service.AdminService[T]) {
	fetch := func(ctx context.Context, p repository.ListParams) ([]T, error) { return svc.List(ctx, p) }

	g.GET(path, func(c *gin.Context) {
		renderList(c, sessionList[T](c, s.deps.PageSize, s.deps.Debounce, "admin"+path, fetch))
	})
	g.GET(path+"/:id", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		_, ctx := backendCtx(c)
		v, err := svc.Get(ctx, id)
		if err != nil {
			Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	})
	g.POST(path, func(c *gin.Context) {
		var in T
		if !bindRequired(c, &in) {
			return
		}
		_, ctx := backendCtx(c)
		v, err := svc.Create(ctx, in)
		if err != nil {
			Fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, v)
	})
	g.PUT(path+"/:id", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var in T
		if !bindRequired(c, &in) {
			return
		}
		_, ctx := backendCtx(c)
		v, err := svc.Update(ctx, id, in)
		if err != nil {
			Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	})
	g.DELETE(path+"/:id", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		_, ctx := backendCtx(c)
		if err := svc.Delete(ctx, id); err != nil {
			Fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
