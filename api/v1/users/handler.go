package users

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"inspection_log/internal/httpx"
	"inspection_log/internal/service"
)

// CreateRequest represents create user request
type CreateRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	Role     string `json:"role" binding:"required"`
	Active   *bool  `json:"active"`
}

// UpdateRequest represents update user request. An empty password keeps
// the current one.
type UpdateRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role" binding:"required"`
	Active   *bool  `json:"active"`
}

// Handler handles user directory API
type Handler struct {
	users *service.UserService
}

// NewHandler creates a new users handler
func NewHandler(users *service.UserService) *Handler {
	return &Handler{users: users}
}

// Register mounts the user routes on g
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/active", h.Active)
	g.GET("/role/:role", h.ByRole)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PUT("/:id/toggle-active", h.ToggleActive)
}

func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid id"))
		return 0, false
	}
	return id, true
}

// List handles GET /api/v1/users
func (h *Handler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.OK(c, users)
}

// Active handles GET /api/v1/users/active
func (h *Handler) Active(c *gin.Context) {
	users, err := h.users.ListActive(c.Request.Context())
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.OK(c, users)
}

// ByRole handles GET /api/v1/users/role/:role
func (h *Handler) ByRole(c *gin.Context) {
	users, err := h.users.ListByRole(c.Request.Context(), c.Param("role"))
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.OK(c, users)
}

// Get handles GET /api/v1/users/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.OK(c, user)
}

// Create handles POST /api/v1/users
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}
	user, err := h.users.Create(c.Request.Context(), service.UserInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
		Active:   req.Active,
	})
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.Created(c, user)
}

// Update handles PUT /api/v1/users/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}
	user, err := h.users.Update(c.Request.Context(), id, service.UserInput{
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
		Active:   req.Active,
	})
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.OK(c, user)
}

// Delete handles DELETE /api/v1/users/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.NoContent(c)
}

// ToggleActive handles PUT /api/v1/users/:id/toggle-active
func (h *Handler) ToggleActive(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	user, err := h.users.ToggleActive(c.Request.Context(), id)
	if err != nil {
		httpx.FailFrom(c, err)
		return
	}
	httpx.OK(c, user)
}
