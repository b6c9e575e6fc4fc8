package httpapi

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pharmafront/internal/domain"
	"pharmafront/internal/repository"
	"pharmafront/internal/service"
	"pharmafront/internal/session"
)

// sessionList returns the session's named list view, creating it with fetch.
func sessionList[T any](c *gin.Context, pageSize int, debounce time.Duration, name string, fetch service.FetchFunc[T]) *service.ListView[T] {
	return session.View(CurrentSession(c), name, func() *service.ListView[T] {
		return service.NewListView(fetch, pageSize, debounce)
	})
}

// applyListQuery performs the one action the query asks for: a search, a
// filter change, a page move, or a plain load of the current page.
func applyListQuery[T any](ctx context.Context, c *gin.Context, v *service.ListView[T], filters ...string) (service.Page[T], error) {
	if term, ok := c.GetQuery("search"); ok {
		return v.Search(ctx, term)
	}
	for _, key := range filters {
		if val, ok := c.GetQuery(key); ok {
			return v.SetFilter(ctx, key, val)
		}
	}
	switch c.Query("nav") {
	case "next":
		return v.Next(ctx)
	case "prev":
		return v.Prev(ctx)
	}
	return v.Load(ctx)
}

// renderList writes the page. A search superseded by a newer keystroke or a
// response overtaken by a newer fetch has nothing to render: 204.
func renderList[T any](c *gin.Context, v *service.ListView[T], filters ...string) {
	ctx := CurrentSession(c).Auth.Context(c.Request.Context())
	page, err := applyListQuery(ctx, c, v, filters...)
	switch {
	case errors.Is(err, service.ErrSuperseded), errors.Is(err, service.ErrStale):
		c.Status(http.StatusNoContent)
	case err != nil:
		Fail(c, err)
	default:
		c.JSON(http.StatusOK, page)
	}
}

// @Summary Orders list page
// @Description Customers see their own orders; staff see the orders they may manage.
// @Tags lists
// @Produce json
// @Param search query string false "Search term (debounced)"
// @Param status query string false "Status filter, empty clears it"
// @Param nav query string false "next | prev | reload"
// @Success 200 {object} service.Page[domain.Order]
// @Success 204
// @Router /ui/orders [get]
func (s *Server) listOrders(c *gin.Context) {
	v := sessionList[domain.Order](c, s.deps.PageSize, s.deps.Debounce, "orders", s.deps.Orders.List)
	renderList(c, v, "status")
}

// @Summary Products list page
// @Tags lists
// @Produce json
// @Param search query string false "Search term (debounced)"
// @Param category_id query int false "Category filter, empty clears it"
// @Param nav query string false "next | prev | reload"
// @Success 200 {object} service.Page[domain.Product]
// @Router /ui/products [get]
func (s *Server) listProducts(c *gin.Context) {
	v := sessionList[domain.Product](c, s.deps.PageSize, s.deps.Debounce, "products", s.deps.Products.List)
	renderList(c, v, "category_id")
}

// @Summary Customers list page
// @Tags lists
// @Produce json
// @Param search query string false "Search term (debounced)"
// @Param nav query string false "next | prev | reload"
// @Success 200 {object} service.Page[domain.Customer]
// @Router /ui/customers [get]
func (s *Server) listCustomers(c *gin.Context) {
	v := sessionList[domain.Customer](c, s.deps.PageSize, s.deps.Debounce, "customers", s.deps.Customers.List)
	renderList(c, v)
}

// @Summary Sellers list page
// @Tags lists
// @Produce json
// @Param search query string false "Search term (debounced)"
// @Param nav query string false "next | prev | reload"
// @Success 200 {object} service.Page[domain.User]
// @Router /ui/sellers [get]
func (s *Server) listSellers(c *gin.Context) {
	users := s.deps.Users
	fetch := func(ctx context.Context, p repository.ListParams) ([]domain.User, error) {
		p.Filters = maps.Clone(p.Filters)
		if p.Filters == nil {
			p.Filters = map[string]string{}
		}
		p.Filters["role"] = string(domain.RoleSeller)
		return users.List(ctx, p)
	}
	renderList(c, sessionList[domain.User](c, s.deps.PageSize, s.deps.Debounce, "sellers", fetch))
}

// @Summary Sales groups list page
// @Tags lists
// @Produce json
// @Param search query string false "Search term (debounced)"
// @Param nav query string false "next | prev | reload"
// @Success 200 {object} service.Page[domain.SalesGroup]
// @Router /ui/groups [get]
func (s *Server) listGroups(c *gin.Context) {
	v := sessionList[domain.SalesGroup](c, s.deps.PageSize, s.deps.Debounce, "groups", s.deps.SalesGroups.List)
	renderList(c, v)
}
