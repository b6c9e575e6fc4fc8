// Package httpapi is the browser-facing JSON API. Every route works on the
// caller's session state and forwards to the REST backend with its token.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"pharmafront/internal/apperr"
	"pharmafront/internal/backend"
	"pharmafront/internal/domain"
	"pharmafront/internal/repository"
	"pharmafront/internal/service"
	"pharmafront/internal/session"
)

// Deps is everything the server needs; zero PageSize/Debounce fall back to the
// list view defaults.
type Deps struct {
	Logger       *slog.Logger
	Sessions     *session.Store
	Codec        *session.Codec
	CookieSecure bool
	CORSOrigins  []string
	PageSize     int
	Debounce     time.Duration

	Products    *service.ProductService
	Orders      *service.OrderService
	Categories  *service.AdminService[domain.Category]
	Users       *service.AdminService[domain.User]
	Customers   *service.AdminService[domain.Customer]
	PriceLists  *service.AdminService[domain.PriceList]
	SalesGroups *service.AdminService[domain.SalesGroup]
	Catalog     repository.CatalogRepository
	Builders    service.BuilderDeps
}

type Server struct {
	engine *gin.Engine
	deps   Deps
	log    *slog.Logger
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.PageSize <= 0 {
		deps.PageSize = service.DefaultPageSize
	}
	deps.Builders.PageSize = deps.PageSize
	deps.Builders.Debounce = deps.Debounce

	r := gin.New()
	r.Use(RequestID(), Logger(deps.Logger), ErrorHandler(deps.Logger), Recovery(deps.Logger), CORS(deps.CORSOrigins))
	s := &Server{engine: r, deps: deps, log: deps.Logger}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

var staff = []domain.Role{domain.RoleAdmin, domain.RoleSeller, domain.RoleMarketing}

func (s *Server) registerRoutes() {
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", s.health)

	web := s.engine.Group("", Session(SessionCfg{Store: s.deps.Sessions, Codec: s.deps.Codec, Secure: s.deps.CookieSecure}))
	web.POST("/login", s.login)
	web.POST("/logout", s.logout)

	authed := web.Group("", RequireAuth())
	authed.GET("/api/me", s.me)

	ui := authed.Group("/ui")
	{
		shop := ui.Group("", RequireRole(domain.RoleCustomer))
		shop.GET("/catalog", s.catalog)
		shop.GET("/cart", s.cart)
		shop.POST("/cart/items", s.addToCart)
		shop.PUT("/cart/items/:productId", s.setCartQuantity)
		shop.DELETE("/cart/items/:productId", s.removeFromCart)
		shop.POST("/cart/checkout", s.checkout)

		ui.GET("/orders", s.listOrders)
		ui.GET("/orders/export.xlsx", s.exportOrders)
		ui.GET("/orders/:id", s.getOrder)

		st := ui.Group("", RequireRole(staff...))
		st.GET("/products", s.listProducts)
		st.GET("/customers", s.listCustomers)
		st.GET("/sellers", s.listSellers)
		st.GET("/groups", s.listGroups)
		st.POST("/orders/:id/assign", s.assignSeller)
		st.PUT("/orders/:id/status", s.updateStatus)
		st.POST("/orders/:id/cancel", s.cancelOrder)
		st.POST("/orders/:id/builder", s.openEditBuilder)
		st.POST("/builders", s.openBuilder)

		b := st.Group("/builders/:bid")
		b.GET("", s.builderView)
		b.DELETE("", s.closeBuilder)
		b.POST("/customer", s.selectCustomer)
		b.GET("/catalog", s.builderCatalog)
		b.POST("/items", s.builderAdd)
		b.POST("/confirm-add", s.builderConfirmAdd)
		b.PUT("/items/:productId", s.builderSetQuantity)
		b.DELETE("/items/:productId", s.builderRemove)
		b.POST("/confirm-removal", s.builderConfirmRemoval)
		b.POST("/conflict", s.builderResolveConflict)
		b.GET("/items/:productId/similar", s.builderSimilar)
		b.GET("/recommendations", s.builderRecommendations)
		b.POST("/similar/choose", s.builderChooseSimilar)
		b.DELETE("/similar", s.builderCloseSimilar)
		b.DELETE("/error", s.builderDismissError)
		b.POST("/submit", s.builderSubmit)

		admin := ui.Group("/admin", RequireRole(domain.RoleAdmin))
		admin.GET("/products/:id", s.getProduct)
		admin.POST("/products", s.createProduct)
		admin.PUT("/products/:id", s.updateProduct)
		admin.DELETE("/products/:id", s.deleteProduct)
		adminRoutes(s, admin, "/categories", s.deps.Categories)
		adminRoutes(s, admin, "/users", s.deps.Users)
		adminRoutes(s, admin, "/customers", s.deps.Customers)
		adminRoutes(s, admin, "/price-lists", s.deps.PriceLists)
		adminRoutes(s, admin, "/sales-groups", s.deps.SalesGroups)
	}
}

// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// backendCtx carries the session's bearer token into repository calls.
func backendCtx(c *gin.Context) (*session.State, context.Context) {
	st := CurrentSession(c)
	return st, st.Auth.Context(c.Request.Context())
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// pathID reads a positive id path parameter or fails the request.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := parseID(c.Param(name))
	if err != nil || id <= 0 {
		Fail(c, apperr.InvalidErr("Identificador no válido.", nil))
		return 0, false
	}
	return id, true
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, backend.ErrUnauthorized), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrSubmitInFlight), errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return apperr.HTTPStatus(err)
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrSubmitInFlight):
		return "El pedido ya se está enviando."
	case errors.Is(err, service.ErrInvalidInput):
		if ae, ok := apperr.As(err); ok && ae.PublicMsg != "" {
			return ae.PublicMsg
		}
		return "Los datos enviados no son válidos."
	}
	return apperr.PublicMessage(err)
}
