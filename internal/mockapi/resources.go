package mockapi

import (
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pharmafront/internal/domain"
)

func required(field, v string) []issue {
	if strings.TrimSpace(v) == "" {
		return []issue{bodyIssue(field, "Field required", "missing")}
	}
	return nil
}

func validEmail(field, v string) []issue {
	if _, err := mail.ParseAddress(v); err != nil {
		return []issue{bodyIssue(field, "value is not a valid email address", "value_error.email")}
	}
	return nil
}

func idFilter(q url.Values, key string, v *int64) bool {
	raw := q.Get(key)
	if raw == "" {
		return true
	}
	want, err := strconv.ParseInt(raw, 10, 64)
	return err == nil && v != nil && *v == want
}

var productResource = resource[domain.Product]{
	path:     "/products",
	notFound: "Producto no encontrado",
	table:    func(s *Store) *table[domain.Product] { return s.products },
	setID:    func(p *domain.Product, id int64) { p.ID = id },
	validate: func(p domain.Product, _ bool) []issue {
		iss := append(required("name", p.Name), required("sku", p.SKU)...)
		if p.Price.IsNegative() {
			iss = append(iss, bodyIssue("price", "Input should be greater than or equal to 0", "greater_than_equal"))
		}
		if p.Stock < 0 {
			iss = append(iss, bodyIssue("stock", "Input should be greater than or equal to 0", "greater_than_equal"))
		}
		return iss
	},
	search: func(p domain.Product, term string) bool {
		return containsIgnoreCase(p.Name, term) || containsIgnoreCase(p.SKU, term)
	},
	filter: func(p domain.Product, q url.Values) bool {
		return idFilter(q, "category_id", p.CategoryID)
	},
}

var categoryResource = resource[domain.Category]{
	path:     "/categories",
	notFound: "Categoría no encontrada",
	table:    func(s *Store) *table[domain.Category] { return s.categories },
	setID:    func(c *domain.Category, id int64) { c.ID = id },
	validate: func(c domain.Category, _ bool) []issue { return required("name", c.Name) },
	search:   func(c domain.Category, term string) bool { return containsIgnoreCase(c.Name, term) },
}

var userResource = resource[domain.User]{
	path:     "/admin/users",
	notFound: "Usuario no encontrado",
	table:    func(s *Store) *table[domain.User] { return s.users },
	setID:    func(u *domain.User, id int64) { u.ID = id },
	validate: func(u domain.User, create bool) []issue {
		iss := append(required("username", u.Username), validEmail("email", u.Email)...)
		switch u.Role {
		case domain.RoleAdmin, domain.RoleSeller, domain.RoleMarketing, domain.RoleCustomer:
		default:
			iss = append(iss, bodyIssue("role", "Input should be 'admin', 'seller', 'marketing' or 'customer'", "enum"))
		}
		if create && u.Password == "" {
			iss = append(iss, bodyIssue("password", "Field required", "missing"))
		} else if u.Password != "" && len(u.Password) < 6 {
			iss = append(iss, bodyIssue("password", "String should have at least 6 characters", "string_too_short"))
		}
		return iss
	},
	search: func(u domain.User, term string) bool {
		return containsIgnoreCase(u.Username, term) || containsIgnoreCase(u.FullName, term) || containsIgnoreCase(u.Email, term)
	},
	filter: func(u domain.User, q url.Values) bool {
		role := q.Get("role")
		return role == "" || string(u.Role) == role
	},
	// passwords never live on the row
	afterWrite: func(s *Store, u domain.User) domain.User {
		if u.Password != "" {
			s.passwords[u.ID] = u.Password
			u.Password = ""
			s.users.rows[u.ID] = u
		}
		return u
	},
	present: func(u domain.User) domain.User {
		u.Password = ""
		return u
	},
}

var customerResource = resource[domain.Customer]{
	path:     "/customers",
	notFound: "Cliente no encontrado",
	table:    func(s *Store) *table[domain.Customer] { return s.customers },
	setID:    func(c *domain.Customer, id int64) { c.ID = id },
	validate: func(c domain.Customer, _ bool) []issue {
		return append(required("name", c.Name), validEmail("email", c.Email)...)
	},
	search: func(c domain.Customer, term string) bool {
		return containsIgnoreCase(c.Name, term) || containsIgnoreCase(c.Email, term)
	},
	filter: func(c domain.Customer, q url.Values) bool {
		return idFilter(q, "price_list_id", c.PriceListID) && idFilter(q, "sales_group_id", c.SalesGroupID)
	},
}

var hundred = decimal.NewFromInt(100)

var priceListResource = resource[domain.PriceList]{
	path:     "/price-lists",
	notFound: "Lista de precios no encontrada",
	table:    func(s *Store) *table[domain.PriceList] { return s.priceLists },
	setID:    func(pl *domain.PriceList, id int64) { pl.ID = id },
	validate: func(pl domain.PriceList, _ bool) []issue {
		iss := required("name", pl.Name)
		if pl.DiscountPercentage.IsNegative() {
			iss = append(iss, bodyIssue("discount_percentage", "Input should be greater than or equal to 0", "greater_than_equal"))
		}
		if pl.DiscountPercentage.GreaterThan(hundred) {
			iss = append(iss, bodyIssue("discount_percentage", "Input should be less than or equal to 100", "less_than_equal"))
		}
		return iss
	},
	search: func(pl domain.PriceList, term string) bool { return containsIgnoreCase(pl.Name, term) },
}

var salesGroupResource = resource[domain.SalesGroup]{
	path:     "/sales-groups",
	notFound: "Grupo de ventas no encontrado",
	table:    func(s *Store) *table[domain.SalesGroup] { return s.salesGroups },
	setID:    func(g *domain.SalesGroup, id int64) { g.ID = id },
	validate: func(g domain.SalesGroup, _ bool) []issue { return required("name", g.Name) },
	search:   func(g domain.SalesGroup, term string) bool { return containsIgnoreCase(g.Name, term) },
}
