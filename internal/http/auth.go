package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmafront/internal/domain"
)

type loginReq struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type meResp struct {
	User     *domain.User `json:"user"`
	Home     string       `json:"home"`
	CartSize int64        `json:"cart_size,omitempty"`
}

// homeFor is where each role lands after login.
func homeFor(r domain.Role) string {
	switch r {
	case domain.RoleCustomer:
		return "/catalog"
	case domain.RoleAdmin:
		return "/admin/products"
	default:
		return "/orders"
	}
}

// @Summary Log in
// @Description Exchanges credentials for a backend token kept in the session.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 200 {object} meResp
// @Failure 400 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /login [post]
func (s *Server) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBind(&req); err != nil {
		Fail(c, FromBindError(err, &req))
		return
	}
	st := CurrentSession(c)
	// a new identity starts from a clean slate
	st.Clear()
	if err := st.Auth.Login(c.Request.Context(), req.Username, req.Password); err != nil {
		Fail(c, err)
		return
	}
	u := st.Auth.User()
	s.log.Info("login", "request_id", GetRequestID(c), "user", u.Username, "role", u.Role)
	c.JSON(http.StatusOK, meResp{User: u, Home: homeFor(u.Role)})
}

// @Summary Log out
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /logout [post]
func (s *Server) logout(c *gin.Context) {
	st := CurrentSession(c)
	st.Clear()
	s.deps.Sessions.Delete(st.ID())
	c.SetCookie(SessionCookieName, "", -1, "/", "", s.deps.CookieSecure, true)
	if !WantsJSON(c) {
		c.Redirect(http.StatusFound, LoginPath)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": LoginPath})
}

// @Summary Current identity
// @Description Reloads the user from the backend; a rejected token ends the session.
// @Tags auth
// @Produce json
// @Success 200 {object} meResp
// @Failure 401 {object} map[string]string
// @Router /api/me [get]
func (s *Server) me(c *gin.Context) {
	st, ctx := backendCtx(c)
	if err := st.Auth.Load(ctx); err != nil {
		Fail(c, err)
		return
	}
	u := st.Auth.User()
	resp := meResp{User: u, Home: homeFor(u.Role)}
	if u.Role == domain.RoleCustomer {
		resp.CartSize = st.Cart.Count()
	}
	c.JSON(http.StatusOK, resp)
}
