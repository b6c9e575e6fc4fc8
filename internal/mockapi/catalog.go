package mockapi

import (
	"math"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pharmafront/internal/domain"
)

const defaultSimilarLimit = 5

// finalPrice applies the customer's active price list discount
func (s *Store) finalPrice(price decimal.Decimal, c domain.Customer) decimal.Decimal {
	if c.PriceListID == nil {
		return price
	}
	pl, ok := s.priceLists.get(*c.PriceListID)
	if !ok || !pl.IsActive {
		return price
	}
	return price.Mul(hundred.Sub(pl.DiscountPercentage)).Div(hundred).Round(2)
}

func (s *Store) catalogItem(p domain.Product, c domain.Customer) domain.CatalogProduct {
	stock := p.Stock
	cp := domain.CatalogProduct{
		ID:         p.ID,
		Name:       p.Name,
		FinalPrice: s.finalPrice(p.Price, c),
		StockCount: &stock,
	}
	if p.Description != "" {
		d := p.Description
		cp.Description = &d
	}
	return cp
}

func (s *Store) catalog(c domain.Customer, term string) []domain.CatalogProduct {
	out := make([]domain.CatalogProduct, 0)
	for _, p := range s.products.all() {
		if !p.IsActive {
			continue
		}
		if term != "" && !containsIgnoreCase(p.Name, term) && !containsIgnoreCase(p.Description, term) {
			continue
		}
		out = append(out, s.catalogItem(p, c))
	}
	return out
}

// similarity ranks by shared category first, then by price proximity
func similarity(a, b domain.Product) float64 {
	score := 0.0
	if a.CategoryID != nil && b.CategoryID != nil && *a.CategoryID == *b.CategoryID {
		score += 0.5
	}
	pa, _ := a.Price.Float64()
	pb, _ := b.Price.Float64()
	if hi := math.Max(pa, pb); hi > 0 {
		score += 0.5 * (1 - math.Abs(pa-pb)/hi)
	} else {
		score += 0.5
	}
	return math.Round(score*100) / 100
}

func (s *Server) customerFor(c *gin.Context) (domain.Customer, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return domain.Customer{}, false
	}
	s.store.mu.RLock()
	cust, found := s.store.customers.get(id)
	s.store.mu.RUnlock()
	if !found {
		fail(c, notFound("Cliente no encontrado"))
		return domain.Customer{}, false
	}
	return cust, true
}

func (s *Server) customerCatalog(c *gin.Context) {
	cust, ok := s.customerFor(c)
	if !ok {
		return
	}
	s.renderCatalog(c, cust)
}

func (s *Server) myCatalog(c *gin.Context) {
	u := currentUser(c)
	if u.CustomerID == nil {
		fail(c, &apiError{status: http.StatusForbidden, detail: "El usuario no está asociado a un cliente"})
		return
	}
	s.store.mu.RLock()
	cust, found := s.store.customers.get(*u.CustomerID)
	s.store.mu.RUnlock()
	if !found {
		fail(c, notFound("Cliente no encontrado"))
		return
	}
	s.renderCatalog(c, cust)
}

func (s *Server) renderCatalog(c *gin.Context, cust domain.Customer) {
	skip, limit, ok := paging(c)
	if !ok {
		return
	}
	s.store.mu.RLock()
	rows := s.store.catalog(cust, c.Query("search"))
	s.store.mu.RUnlock()
	c.JSON(http.StatusOK, window(rows, skip, limit))
}

func (s *Server) similarProducts(c *gin.Context) {
	cust, ok := s.customerFor(c)
	if !ok {
		return
	}
	pid, ok := pathID(c, "pid")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", defaultSimilarLimit)
	if !ok {
		return
	}

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	base, found := s.store.products.get(pid)
	if !found {
		fail(c, notFound("Producto no encontrado"))
		return
	}
	type scored struct {
		p     domain.Product
		score float64
	}
	var cands []scored
	for _, p := range s.store.products.all() {
		if p.ID == base.ID || !p.IsActive {
			continue
		}
		cands = append(cands, scored{p: p, score: similarity(base, p)})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	out := make([]domain.CatalogProduct, 0, limit)
	for _, cand := range window(cands, 0, limit) {
		item := s.store.catalogItem(cand.p, cust)
		score := cand.score
		item.SimilarityScore = &score
		out = append(out, item)
	}
	c.JSON(http.StatusOK, out)
}

// recommendations suggests in-stock products the customer has not ordered yet,
// favoring categories they already buy from.
func (s *Server) recommendations(c *gin.Context) {
	cust, ok := s.customerFor(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", defaultSimilarLimit)
	if !ok {
		return
	}

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	ordered := make(map[int64]bool)
	cats := make(map[int64]bool)
	for _, o := range s.store.orders.all() {
		if o.CustomerID != cust.ID {
			continue
		}
		for _, it := range o.Items {
			ordered[it.ProductID] = true
			if p, ok := s.store.products.get(it.ProductID); ok && p.CategoryID != nil {
				cats[*p.CategoryID] = true
			}
		}
	}
	var cands []domain.Product
	for _, p := range s.store.products.all() {
		if p.IsActive && p.Stock > 0 && !ordered[p.ID] {
			cands = append(cands, p)
		}
	}
	inCat := func(p domain.Product) bool { return p.CategoryID != nil && cats[*p.CategoryID] }
	sort.SliceStable(cands, func(i, j int) bool {
		if inCat(cands[i]) != inCat(cands[j]) {
			return inCat(cands[i])
		}
		return cands[i].Stock > cands[j].Stock
	})
	out := make([]domain.CatalogProduct, 0, limit)
	for _, p := range window(cands, 0, limit) {
		out = append(out, s.store.catalogItem(p, cust))
	}
	c.JSON(http.StatusOK, out)
}
