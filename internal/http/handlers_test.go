package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"pharmafront/internal/backend"
	"pharmafront/internal/domain"
	"pharmafront/internal/export"
	"pharmafront/internal/mockapi"
	"pharmafront/internal/repository"
	"pharmafront/internal/service"
	"pharmafront/internal/session"
)

func init() { gin.SetMode(gin.TestMode) }

type harness struct {
	srv *Server
	// revoked makes the backend reject every token, as after a server-side logout
	revoked atomic.Bool
}

func setupServer(t *testing.T) *harness {
	t.Helper()
	store := mockapi.NewStore()
	mockapi.Seed(context.Background(), store)
	api := mockapi.NewServer(store, "test-secret")

	h := &harness{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.revoked.Load() && !strings.HasSuffix(r.URL.Path, "/auth/login") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
			return
		}
		api.ServeHTTP(w, r)
	}))
	t.Cleanup(upstream.Close)

	client := backend.New(backend.Options{BaseURL: upstream.URL})
	auth := repository.NewAuth(client)
	orders := repository.NewOrders(client)
	customers := repository.NewCustomers(client)
	sessions := session.NewStore(time.Hour, func(id string) *session.State {
		return session.NewState(id, service.NewAuthState(auth), service.NewCart(orders))
	})

	h.srv = NewServer(Deps{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sessions:    sessions,
		Codec:       session.NewCodec("test-session-secret"),
		PageSize:    5,
		Products:    service.NewProductService(repository.NewProducts(client)),
		Orders:      service.NewOrderService(orders),
		Categories:  service.NewAdminService(repository.NewCategories(client), service.ValidateCategory),
		Users:       service.NewAdminService(repository.NewUsers(client), service.ValidateUser),
		Customers:   service.NewAdminService(customers, service.ValidateCustomer),
		PriceLists:  service.NewAdminService(repository.NewPriceLists(client), service.ValidatePriceList),
		SalesGroups: service.NewAdminService(repository.NewSalesGroups(client), service.ValidateSalesGroup),
		Catalog:     repository.NewCatalog(client),
		Builders: service.BuilderDeps{
			Orders:    orders,
			Catalog:   repository.NewCatalog(client),
			Customers: customers,
		},
	})
	return h
}

// browser keeps the session cookie between requests.
type browser struct {
	t       *testing.T
	h       *harness
	cookies map[string]*http.Cookie
}

func (h *harness) browser(t *testing.T) *browser {
	return &browser{t: t, h: h, cookies: map[string]*http.Cookie{}}
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.h.srv.Engine().ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) doJSON(method, path string, body any) *httptest.ResponseRecorder {
	b.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			b.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return b.send(req)
}

func (b *browser) login(username, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return b.send(req)
}

func (b *browser) mustLogin(username string) {
	b.t.Helper()
	if w := b.login(username, mockapi.DemoPassword); w.Code != http.StatusOK {
		b.t.Fatalf("login %s: %d %s", username, w.Code, w.Body.String())
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealthAndLoginRequired(t *testing.T) {
	h := setupServer(t)
	b := h.browser(t)

	if w := b.doJSON(http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz %d", w.Code)
	}

	w := b.doJSON(http.MethodGet, "/ui/orders", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["redirect"] != LoginPath {
		t.Fatalf("expected redirect to login, got %v", body)
	}

	// a plain browser navigation is redirected instead
	req := httptest.NewRequest(http.MethodGet, "/ui/orders", nil)
	req.Header.Set("Accept", "text/html")
	w = b.send(req)
	if w.Code != http.StatusFound || w.Header().Get("Location") != LoginPath {
		t.Fatalf("expected redirect, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestLogin(t *testing.T) {
	h := setupServer(t)
	b := h.browser(t)

	w := b.login("", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: %d", w.Code)
	}
	fields := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, w).Fields
	if fields["username"] == "" || fields["password"] == "" {
		t.Fatalf("expected field errors, got %v", fields)
	}

	w = b.login(mockapi.DemoSeller, "wrong")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["redirect"] != "" || body["error"] != "Usuario o contraseña incorrectos." {
		t.Fatalf("unexpected body %v", body)
	}

	w = b.login(mockapi.DemoSeller, mockapi.DemoPassword)
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	me := decode[meResp](t, w)
	if me.User == nil || me.User.Role != domain.RoleSeller || me.Home != "/orders" {
		t.Fatalf("unexpected login response %+v", me)
	}

	w = b.doJSON(http.MethodGet, "/api/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d", w.Code)
	}

	if w := b.doJSON(http.MethodPost, "/logout", nil); w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
	if w := b.doJSON(http.MethodGet, "/api/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: %d", w.Code)
	}
}

func TestListPagination(t *testing.T) {
	h := setupServer(t)
	b := h.browser(t)
	b.mustLogin(mockapi.DemoAdmin)

	page := func(query string) service.Page[domain.Product] {
		t.Helper()
		w := b.doJSON(http.MethodGet, "/ui/products"+query, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: %d %s", query, w.Code, w.Body.String())
		}
		return decode[service.Page[domain.Product]](t, w)
	}

	p := page("")
	if len(p.Items) != 5 || !p.HasNext || p.HasPrev || p.Page != 0 {
		t.Fatalf("first page: %+v", p)
	}
	p = page("?nav=next")
	if p.Page != 1 || len(p.Items) != 5 || !p.HasNext || !p.HasPrev {
		t.Fatalf("second page: %+v", p)
	}
	p = page("?nav=next")
	if p.Page != 2 || len(p.Items) != 2 || p.HasNext {
		t.Fatalf("last page: %+v", p)
	}
	// no next page: nothing moves
	if p = page("?nav=next"); p.Page != 2 {
		t.Fatalf("next past the end moved to %d", p.Page)
	}
	if p = page("?nav=prev"); p.Page != 1 {
		t.Fatalf("prev: %+v", p)
	}

	p = page("?category_id=2")
	if p.Page != 0 || len(p.Items) != 4 || p.HasNext {
		t.Fatalf("filter: %+v", p)
	}
	p = page("?search=amox")
	if len(p.Items) != 1 || p.Items[0].Name != "Amoxicilina 500mg" || p.Filters["category_id"] != "2" {
		t.Fatalf("search within filter: %+v", p)
	}
	page("?search=")
	p = page("?category_id=")
	if len(p.Items) != 5 || !p.HasNext || len(p.Filters) != 0 {
		t.Fatalf("cleared: %+v", p)
	}
}

func TestBuilderFlow(t *testing.T) {
	h := setupServer(t)
	b := h.browser(t)
	b.mustLogin(mockapi.DemoSeller)

	w := b.doJSON(http.MethodPost, "/ui/builders", map[string]any{"customer_id": 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("open: %d %s", w.Code, w.Body.String())
	}
	view := decode[service.BuilderView](t, w)
	if view.State != service.StateEditingItems || view.Customer == nil || view.Customer.ID != 1 {
		t.Fatalf("unexpected builder %+v", view)
	}
	base := "/ui/builders/" + view.ID

	if w := b.doJSON(http.MethodGet, base+"/catalog", nil); w.Code != http.StatusOK {
		t.Fatalf("catalog: %d", w.Code)
	}

	add := func(body map[string]any, want service.AddOutcome) service.BuilderView {
		t.Helper()
		w := b.doJSON(http.MethodPost, base+"/items", body)
		if w.Code != http.StatusOK {
			t.Fatalf("add %v: %d %s", body, w.Code, w.Body.String())
		}
		r := decode[addResp](t, w)
		if r.Outcome != want {
			t.Fatalf("add %v: outcome %s, want %s", body, r.Outcome, want)
		}
		return r.Builder
	}

	add(map[string]any{"product_id": 1, "quantity": 2}, service.AddDone)
	add(map[string]any{"product_id": 2}, service.AddNeedsConfirmation)

	w = b.doJSON(http.MethodGet, base+"/items/1/similar", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("similar during prompt: %d", w.Code)
	}

	// prompts block other edits
	if w := b.doJSON(http.MethodPost, base+"/items", map[string]any{"product_id": 3}); w.Code != http.StatusConflict {
		t.Fatalf("add during prompt: %d", w.Code)
	}
	if w := b.doJSON(http.MethodPost, base+"/confirm-add", map[string]any{"accept": true}); w.Code != http.StatusOK {
		t.Fatalf("confirm: %d", w.Code)
	}
	w = b.doJSON(http.MethodGet, base+"/recommendations", nil)
	if recs := decode[[]domain.CatalogProduct](t, w); w.Code != http.StatusOK || len(recs) != service.SimilarLimit {
		t.Fatalf("recommendations: %d %v", w.Code, recs)
	}

	v := add(map[string]any{"product_id": 1, "quantity": 10}, service.AddConflict)
	if v.Conflict == nil || v.Conflict.MaxCanAdd != 3 {
		t.Fatalf("conflict: %+v", v.Conflict)
	}
	w = b.doJSON(http.MethodPost, base+"/conflict", map[string]any{"resolution": "adjust"})
	if w.Code != http.StatusOK {
		t.Fatalf("resolve: %d", w.Code)
	}
	if v = decode[service.BuilderView](t, w); v.Items[0].Quantity != 5 {
		t.Fatalf("adjusted quantity: %+v", v.Items)
	}

	w = b.doJSON(http.MethodPut, base+"/items/1", map[string]any{"quantity": "abc"})
	if w.Code != http.StatusOK {
		t.Fatalf("quantity: %d", w.Code)
	}
	if v = decode[service.BuilderView](t, w); v.Items[0].Quantity != 1 {
		t.Fatalf("unparseable quantity must floor to 1: %+v", v.Items)
	}

	w = b.doJSON(http.MethodPost, base+"/submit", map[string]any{"shipping_address_number": 2})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", w.Code, w.Body.String())
	}
	o := decode[domain.Order](t, w)
	// 1 x 1080 + 1 x 3150 on the wholesale list
	if o.CustomerID != 1 || len(o.Items) != 2 || !o.Total.Equal(decimal.NewFromInt(4230)) {
		t.Fatalf("unexpected order %+v", o)
	}

	if w := b.doJSON(http.MethodGet, base, nil); w.Code != http.StatusNotFound {
		t.Fatalf("builder should be gone after submit: %d", w.Code)
	}
}

func TestBuilderSubmitWithoutItems(t *testing.T) {
	h := setupServer(t)
	b := h.browser(t)
	b.mustLogin(mockapi.DemoSeller)

	view := decode[service.BuilderView](t, b.doJSON(http.MethodPost, "/ui/builders", nil))
	base := "/ui/builders/" + view.ID

	w := b.doJSON(http.MethodPost, base+"/submit", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("submit without customer: %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["error"] != "Debe seleccionar un cliente" {
		t.Fatalf("unexpected error %v", body)
	}
	if w := b.doJSON(http.MethodPost, base+"/customer", map[string]any{"customer_id": 2}); w.Code != http.StatusOK {
		t.Fatalf("customer: %d", w.Code)
	}
	w = b.doJSON(http.MethodPost, base+"/submit", nil)
	if body := decode[map[string]string](t, w); w.Code != http.StatusBadRequest || body["error"] != "El pedido debe tener al menos un producto" {
		t.Fatalf("submit empty: %d %v", w.Code, body)
	}
	if w := b.doJSON(http.MethodDelete, base, nil); w.Code != http.StatusNoContent {
		t.Fatalf("close: %d", w.Code)
	}
}

func TestBackendUnauthorizedClearsSession(t *testing.T) {
	h := setupServer(t)
	b := h.browser(t)
	b.mustLogin(mockapi.DemoSeller)

	view := decode[service.BuilderView](t, b.doJSON(http.MethodPost, "/ui/builders", map[string]any{"customer_id": 1}))

	h.revoked.Store(true)
	w := b.doJSON(http.MethodGet, "/ui/orders", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["redirect"] != LoginPath {
		t.Fatalf("expected login redirect, got %v", body)
	}

	h.revoked.Store(false)
	if w := b.doJSON(http.MethodGet, "/ui/builders/"+view.ID, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("session should be logged out: %d", w.Code)
	}
	b.mustLogin(mockapi.DemoSeller)
	if w := b.doJSON(http.MethodGet, "/ui/builders/"+view.ID, nil); w.Code != http.StatusNotFound {
		t.Fatalf("builder should not survive the 401: %d", w.Code)
	}
}

func TestCustomerCart(t *testing.T) {
	h := setupServer(t)
	b := h.browser(t)
	b.mustLogin(mockapi.DemoCustomer)

	if w := b.doJSON(http.MethodGet, "/ui/products", nil); w.Code != http.StatusForbidden {
		t.Fatalf("customers cannot list admin products: %d", w.Code)
	}
	if w := b.doJSON(http.MethodPost, "/ui/cart/items", map[string]any{"product_id": 1}); w.Code != http.StatusBadRequest {
		t.Fatalf("adding an unseen product: %d", w.Code)
	}
	if w := b.doJSON(http.MethodGet, "/ui/catalog", nil); w.Code != http.StatusOK {
		t.Fatalf("catalog: %d", w.Code)
	}

	w := b.doJSON(http.MethodPost, "/ui/cart/items", map[string]any{"product_id": 1, "quantity": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("add: %d %s", w.Code, w.Body.String())
	}
	cart := decode[cartView](t, w)
	if cart.Count != 2 || !cart.Total.Equal(decimal.NewFromInt(2160)) {
		t.Fatalf("unexpected cart %+v", cart)
	}

	w = b.doJSON(http.MethodPost, "/ui/cart/checkout", map[string]any{"shipping_address_number": 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout: %d %s", w.Code, w.Body.String())
	}
	if cart = decode[cartView](t, b.doJSON(http.MethodGet, "/ui/cart", nil)); len(cart.Items) != 0 {
		t.Fatalf("cart not emptied: %+v", cart)
	}
	if w := b.doJSON(http.MethodPost, "/ui/cart/checkout", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("empty checkout: %d", w.Code)
	}
}

func TestOrderManagement(t *testing.T) {
	h := setupServer(t)
	b := h.browser(t)
	b.mustLogin(mockapi.DemoAdmin)

	if w := b.doJSON(http.MethodGet, "/ui/orders/abc", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", w.Code)
	}
	if w := b.doJSON(http.MethodGet, "/ui/orders/999", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing order: %d", w.Code)
	}
	if w := b.doJSON(http.MethodPut, "/ui/orders/1/status", map[string]any{"status": "lost"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: %d", w.Code)
	}
	w := b.doJSON(http.MethodPost, "/ui/orders/1/assign", map[string]any{"seller_id": 2, "notes": "zona norte"})
	if w.Code != http.StatusOK {
		t.Fatalf("assign: %d %s", w.Code, w.Body.String())
	}
	if o := decode[domain.Order](t, w); o.Status != domain.OrderStatusAssigned {
		t.Fatalf("assign status: %s", o.Status)
	}
	if w := b.doJSON(http.MethodPost, "/ui/orders/1/cancel", nil); w.Code != http.StatusOK {
		t.Fatalf("cancel: %d", w.Code)
	}
	if w := b.doJSON(http.MethodPost, "/ui/orders/1/cancel", nil); w.Code != http.StatusConflict {
		t.Fatalf("second cancel: %d", w.Code)
	}
}

func TestExportOrders(t *testing.T) {
	h := setupServer(t)
	b := h.browser(t)
	b.mustLogin(mockapi.DemoAdmin)

	w := b.doJSON(http.MethodGet, "/ui/orders/export.xlsx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != export.ContentTypeXLSX {
		t.Fatalf("content type %q", ct)
	}
	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.SheetOrders)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "Farmacia Central" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestAdminCRUD(t *testing.T) {
	h := setupServer(t)
	b := h.browser(t)
	b.mustLogin(mockapi.DemoAdmin)

	w := b.doJSON(http.MethodPost, "/ui/admin/categories", map[string]any{"name": "Vitaminas"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	cat := decode[domain.Category](t, w)

	w = b.doJSON(http.MethodGet, "/ui/admin/categories?search=vita", nil)
	if p := decode[service.Page[domain.Category]](t, w); len(p.Items) != 1 || p.Items[0].ID != cat.ID {
		t.Fatalf("list: %+v", p)
	}
	if w := b.doJSON(http.MethodPost, "/ui/admin/products", map[string]any{"name": "", "price": -1}); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid product: %d", w.Code)
	}
	if w := b.doJSON(http.MethodDelete, "/ui/admin/categories/"+jsonID(cat.ID), nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}

	seller := h.browser(t)
	seller.mustLogin(mockapi.DemoSeller)
	if w := seller.doJSON(http.MethodPost, "/ui/admin/categories", map[string]any{"name": "X"}); w.Code != http.StatusForbidden {
		t.Fatalf("seller on admin route: %d", w.Code)
	}
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
