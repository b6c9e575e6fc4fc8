package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pharmafront/internal/apperr"
	"pharmafront/internal/backend"
	"pharmafront/internal/domain"
	"pharmafront/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// TokenClaims are the parts of the access token the front end reads.
// The signature is the backend's business.
type TokenClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the token payload without verifying it.
func ParseClaims(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// AuthState holds the session's token and identity.
type AuthState struct {
	repo repository.AuthRepository
	now  func() time.Time

	mu     sync.RWMutex
	token  string
	claims *TokenClaims
	user   *domain.User

	subs subscribers
}

func NewAuthState(repo repository.AuthRepository) *AuthState {
	return &AuthState{repo: repo, now: time.Now}
}

// Login exchanges credentials for a token and loads the identity behind it.
func (a *AuthState) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return invalidInput("Ingrese usuario y contraseña")
	}
	tok, err := a.repo.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return &apperr.AppError{Kind: apperr.Invalid, PublicMsg: "Usuario o contraseña incorrectos.", Err: ErrInvalidCredentials}
		}
		return err
	}
	claims, err := ParseClaims(tok.AccessToken)
	if err != nil {
		return apperr.Wrap(err)
	}
	user, err := a.repo.Me(backend.WithToken(ctx, tok.AccessToken))
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.token = tok.AccessToken
	a.claims = claims
	a.user = user
	a.mu.Unlock()
	a.subs.notify()
	return nil
}

// Load refreshes the identity from /auth/me.
func (a *AuthState) Load(ctx context.Context) error {
	tok := a.Token()
	if tok == "" {
		return &apperr.AppError{Kind: apperr.Unauthorized, PublicMsg: "Inicie sesión para continuar.", Err: backend.ErrUnauthorized}
	}
	user, err := a.repo.Me(backend.WithToken(ctx, tok))
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.user = user
	a.mu.Unlock()
	a.subs.notify()
	return nil
}

func (a *AuthState) Clear() {
	a.mu.Lock()
	changed := a.token != "" || a.user != nil
	a.token = ""
	a.claims = nil
	a.user = nil
	a.mu.Unlock()
	if changed {
		a.subs.notify()
	}
}

// Token returns the bearer token, or "" once it has expired.
func (a *AuthState) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.claims != nil && a.claims.ExpiresAt != nil && !a.now().Before(a.claims.ExpiresAt.Time) {
		return ""
	}
	return a.token
}

func (a *AuthState) LoggedIn() bool { return a.Token() != "" }

// User returns a copy of the identity, nil when logged out.
func (a *AuthState) User() *domain.User {
	if !a.LoggedIn() {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

func (a *AuthState) Role() domain.Role {
	if !a.LoggedIn() {
		return ""
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user != nil {
		return a.user.Role
	}
	return a.claims.Role
}

// Context attaches the bearer token for backend calls.
func (a *AuthState) Context(ctx context.Context) context.Context {
	return backend.WithToken(ctx, a.Token())
}

func (a *AuthState) Subscribe(fn func()) (cancel func()) { return a.subs.add(fn) }
