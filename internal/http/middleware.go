package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pharmafront/internal/apperr"
	"pharmafront/internal/backend"
	"pharmafront/internal/domain"
	"pharmafront/internal/session"
)

const (
	HeaderRequestID   = "X-Request-ID"
	CtxKeyRequestID   = "request_id"
	CtxKeySession     = "session"
	SessionCookieName = "pf_session"
	LoginPath         = "/login"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(CtxKeyRequestID, rid)
		c.Writer.Header().Set(HeaderRequestID, rid)
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(CtxKeyRequestID)
}

// Logger writes one structured line per request, level by status.
func Logger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}
		attrs := []slog.Attr{
			slog.String("request_id", GetRequestID(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}
		l.LogAttrs(c.Request.Context(), level, "http_request", attrs...)
	}
}

func Recovery(l *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		l.LogAttrs(c.Request.Context(), slog.LevelError, "panic_recovered",
			slog.String("request_id", GetRequestID(c)),
			slog.Any("panic", recovered),
			slog.String("stack", string(debug.Stack())),
		)
		Fail(c, apperr.Wrap(fmt.Errorf("panic: %v", recovered)))
	})
}

// CORS allows the configured origins to call the JSON API with the session cookie.
// Without origins it is a no-op.
func CORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// SessionCfg configures the session cookie.
type SessionCfg struct {
	Store  *session.Store
	Codec  *session.Codec
	Secure bool
}

// Session loads the browser's state from the signed cookie, starting a fresh
// one when the cookie is missing, forged or expired.
func Session(cfg SessionCfg) gin.HandlerFunc {
	return func(c *gin.Context) {
		var st *session.State
		if raw, err := c.Cookie(SessionCookieName); err == nil && raw != "" {
			if id, err := cfg.Codec.Decode(raw); err == nil {
				st, _ = cfg.Store.Get(id)
			}
		}
		if st == nil {
			st = cfg.Store.Create()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookieName, cfg.Codec.Encode(st.ID()), 0, "/", "", cfg.Secure, true)
		}
		c.Set(CtxKeySession, st)
		c.Next()
	}
}

// CurrentSession returns the state attached by Session.
func CurrentSession(c *gin.Context) *session.State {
	st, _ := c.MustGet(CtxKeySession).(*session.State)
	return st
}

func WantsJSON(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	p := c.Request.URL.Path
	return strings.HasPrefix(p, "/api/") || c.ContentType() == "application/json"
}

func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler renders the last handler error. An expired or rejected token
// clears the whole session and sends the browser back to the login page.
func ErrorHandler(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status := mapErrorToStatus(err)
		rid := GetRequestID(c)

		level := slog.LevelWarn
		if status >= 500 {
			level = slog.LevelError
		}
		l.LogAttrs(c.Request.Context(), level, "request_failed",
			slog.String("request_id", rid),
			slog.Int("status", status),
			slog.Any("err", err),
		)

		if errors.Is(err, backend.ErrUnauthorized) {
			if st, ok := c.Get(CtxKeySession); ok {
				st.(*session.State).Clear()
			}
			redirectToLogin(c, publicMessage(err))
			return
		}

		payload := gin.H{
			"error":      publicMessage(err),
			"request_id": rid,
		}
		if ae, ok := apperr.As(err); ok && len(ae.Fields) > 0 {
			payload["fields"] = ae.Fields
		}
		c.AbortWithStatusJSON(status, payload)
	}
}

func redirectToLogin(c *gin.Context, msg string) {
	if WantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":      msg,
			"redirect":   LoginPath,
			"request_id": GetRequestID(c),
		})
		return
	}
	c.Redirect(http.StatusFound, LoginPath)
	c.Abort()
}

// RequireAuth lets through sessions holding a live token.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c).Auth.LoggedIn() {
			c.Next()
			return
		}
		redirectToLogin(c, "Inicie sesión para continuar.")
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if slices.Contains(roles, CurrentSession(c).Auth.Role()) {
			c.Next()
			return
		}
		Fail(c, apperr.ForbiddenErr("No tiene permisos para realizar esta acción."))
	}
}
