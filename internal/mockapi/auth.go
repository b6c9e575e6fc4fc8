package mockapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"pharmafront/internal/domain"
)

const userKey = "mockapi.user"

// Claims is what the fake backend puts in its access tokens
type Claims struct {
	UserID     int64       `json:"uid"`
	Role       domain.Role `json:"role"`
	CustomerID *int64      `json:"customer_id,omitempty"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(u domain.User) (string, error) {
	now := s.store.now()
	claims := &Claims{
		UserID:     u.ID,
		Role:       u.Role,
		CustomerID: u.CustomerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) parseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// login accepts the OAuth2 password form
func (s *Server) login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	var missing []issue
	if username == "" {
		missing = append(missing, bodyIssue("username", "Field required", "missing"))
	}
	if password == "" {
		missing = append(missing, bodyIssue("password", "Field required", "missing"))
	}
	if len(missing) > 0 {
		fail(c, invalid(missing...))
		return
	}

	s.store.mu.RLock()
	u, ok := s.store.userByName(username)
	valid := ok && s.store.passwords[u.ID] == password
	s.store.mu.RUnlock()
	if !valid {
		fail(c, &apiError{status: http.StatusUnauthorized, detail: "Usuario o contraseña incorrectos"})
		return
	}
	if !u.IsActive {
		fail(c, &apiError{status: http.StatusBadRequest, detail: "Usuario inactivo"})
		return
	}
	tok, err := s.issueToken(u)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.Token{AccessToken: tok, TokenType: "bearer"})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// authenticate resolves the bearer token to a live user or answers 401.
func (s *Server) authenticate(c *gin.Context) {
	h := c.GetHeader("Authorization")
	raw, found := strings.CutPrefix(h, "Bearer ")
	if !found || raw == "" {
		fail(c, &apiError{status: http.StatusUnauthorized, detail: "Not authenticated"})
		return
	}
	claims, err := s.parseToken(raw)
	if err != nil {
		fail(c, &apiError{status: http.StatusUnauthorized, detail: "Could not validate credentials"})
		return
	}
	s.store.mu.RLock()
	u, ok := s.store.users.get(claims.UserID)
	s.store.mu.RUnlock()
	if !ok || !u.IsActive {
		fail(c, &apiError{status: http.StatusUnauthorized, detail: "Could not validate credentials"})
		return
	}
	c.Set(userKey, u)
	c.Next()
}

func requireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		fail(c, &apiError{status: http.StatusForbidden, detail: "No tiene permisos para realizar esta acción"})
	}
}

func currentUser(c *gin.Context) domain.User {
	v, _ := c.Get(userKey)
	u, _ := v.(domain.User)
	return u
}

var staffRoles = []domain.Role{domain.RoleAdmin, domain.RoleSeller, domain.RoleMarketing}

// DefaultTokenTTL matches the backend's access token lifetime
const DefaultTokenTTL = 12 * time.Hour
