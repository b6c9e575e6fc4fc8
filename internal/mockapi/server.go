// Package mockapi is an in-memory stand-in for the REST backend. It speaks the
// same /api/v1 contract (JWT bearer auth, FastAPI-shaped errors) and backs the
// integration tests and the local mock backend binary.
package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pharmafront/internal/domain"
)

const defaultLimit = 100

type Server struct {
	store    *Store
	secret   []byte
	tokenTTL time.Duration
	engine   *gin.Engine
}

func NewServer(store *Store, secret string) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Server{store: store, secret: []byte(secret), tokenTTL: DefaultTokenTTL, engine: r}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.engine.ServeHTTP(w, r) }

// SetTokenTTL changes the lifetime of tokens issued from now on
func (s *Server) SetTokenTTL(d time.Duration) { s.tokenTTL = d }

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/api/v1")
	v1.POST("/auth/login", s.login)

	authed := v1.Group("", s.authenticate)
	authed.GET("/auth/me", s.me)

	staff := authed.Group("", requireRoles(staffRoles...))
	admin := authed.Group("", requireRoles(domain.RoleAdmin))
	customer := authed.Group("", requireRoles(domain.RoleCustomer))

	registerCRUD(staff, admin, s.store, productResource)
	registerCRUD(staff, admin, s.store, categoryResource)
	registerCRUD(staff, admin, s.store, userResource)
	registerCRUD(staff, admin, s.store, customerResource)
	registerCRUD(staff, admin, s.store, priceListResource)
	registerCRUD(staff, admin, s.store, salesGroupResource)

	authed.GET("/orders", s.listOrders)
	authed.GET("/orders/:id", s.getOrder)
	customer.POST("/orders", s.checkout)
	staff.POST("/orders/:id", s.createForCustomer)
	staff.PUT("/orders/:id/edit", s.editOrder)
	staff.POST("/orders/:id/assign", s.assignSeller)
	staff.PUT("/orders/:id/status", s.updateStatus)

	staff.GET("/catalog/customer/:id/products", s.customerCatalog)
	staff.GET("/catalog/customer/:id/products/:pid/similar", s.similarProducts)
	staff.GET("/catalog/customer/:id/recommendations", s.recommendations)
	customer.GET("/catalog/products", s.myCatalog)
}

// apiError is rendered as {"detail": ...}
type apiError struct {
	status int
	detail any
}

func (e *apiError) Error() string { return fmt.Sprintf("status %d: %v", e.status, e.detail) }

type issue struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

func bodyIssue(field, msg, typ string) issue {
	return issue{Loc: []any{"body", field}, Msg: msg, Type: typ}
}

func invalid(issues ...issue) *apiError {
	return &apiError{status: http.StatusUnprocessableEntity, detail: issues}
}

func notFound(msg string) *apiError {
	return &apiError{status: http.StatusNotFound, detail: msg}
}

func badRequest(format string, args ...any) *apiError {
	return &apiError{status: http.StatusBadRequest, detail: fmt.Sprintf(format, args...)}
}

func fail(c *gin.Context, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		c.AbortWithStatusJSON(ae.status, gin.H{"detail": ae.detail})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal Server Error"})
}

func bindBody(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, invalid(issue{Loc: []any{"body"}, Msg: err.Error(), Type: "json_invalid"}))
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, invalid(issue{Loc: []any{"path", name}, Msg: "Input should be a valid integer", Type: "int_parsing"}))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		fail(c, invalid(issue{Loc: []any{"query", name}, Msg: "Input should be a valid integer", Type: "int_parsing"}))
		return 0, false
	}
	return n, true
}

func paging(c *gin.Context) (skip, limit int, ok bool) {
	if skip, ok = queryInt(c, "skip", 0); !ok {
		return 0, 0, false
	}
	if limit, ok = queryInt(c, "limit", defaultLimit); !ok {
		return 0, 0, false
	}
	return skip, limit, true
}

func window[T any](rows []T, skip, limit int) []T {
	if skip >= len(rows) {
		return []T{}
	}
	rows = rows[skip:]
	if limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// resource describes one admin-managed collection
type resource[T any] struct {
	path       string
	notFound   string
	table      func(*Store) *table[T]
	setID      func(*T, int64)
	validate   func(v T, create bool) []issue
	search     func(v T, term string) bool
	filter     func(v T, q url.Values) bool
	afterWrite func(s *Store, v T) T
	present    func(v T) T
}

func registerCRUD[T any](read, write *gin.RouterGroup, st *Store, r resource[T]) {
	present := func(v T) T {
		if r.present != nil {
			return r.present(v)
		}
		return v
	}
	save := func(v T) T {
		if r.afterWrite != nil {
			return r.afterWrite(st, v)
		}
		return v
	}

	read.GET(r.path, func(c *gin.Context) {
		skip, limit, ok := paging(c)
		if !ok {
			return
		}
		term := c.Query("search")
		q := c.Request.URL.Query()
		st.mu.RLock()
		rows := r.table(st).all()
		st.mu.RUnlock()
		out := make([]T, 0, len(rows))
		for _, v := range rows {
			if term != "" && r.search != nil && !r.search(v, term) {
				continue
			}
			if r.filter != nil && !r.filter(v, q) {
				continue
			}
			out = append(out, present(v))
		}
		c.JSON(http.StatusOK, window(out, skip, limit))
	})

	read.GET(r.path+"/:id", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		st.mu.RLock()
		v, found := r.table(st).get(id)
		st.mu.RUnlock()
		if !found {
			fail(c, notFound(r.notFound))
			return
		}
		c.JSON(http.StatusOK, present(v))
	})

	write.POST(r.path, func(c *gin.Context) {
		var in T
		if !bindBody(c, &in) {
			return
		}
		if iss := r.validate(in, true); len(iss) > 0 {
			fail(c, invalid(iss...))
			return
		}
		st.mu.Lock()
		v := save(r.table(st).insert(in, r.setID))
		st.mu.Unlock()
		c.JSON(http.StatusCreated, present(v))
	})

	write.PUT(r.path+"/:id", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var in T
		if !bindBody(c, &in) {
			return
		}
		if iss := r.validate(in, false); len(iss) > 0 {
			fail(c, invalid(iss...))
			return
		}
		r.setID(&in, id)
		st.mu.Lock()
		found := r.table(st).put(id, in)
		v := in
		if found {
			v = save(in)
		}
		st.mu.Unlock()
		if !found {
			fail(c, notFound(r.notFound))
			return
		}
		c.JSON(http.StatusOK, present(v))
	})

	write.DELETE(r.path+"/:id", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		st.mu.Lock()
		found := r.table(st).remove(id)
		st.mu.Unlock()
		if !found {
			fail(c, notFound(r.notFound))
			return
		}
		c.Status(http.StatusNoContent)
	})
}
