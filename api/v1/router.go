package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"inspection_log/api/v1/auth"
	"inspection_log/api/v1/forms"
	"inspection_log/api/v1/middleware"
	"inspection_log/api/v1/users"
	internalauth "inspection_log/internal/auth"
	"inspection_log/internal/httpx"
	"inspection_log/internal/service"
	"inspection_log/internal/ws"
)

// Deps are the collaborators the API is built from
type Deps struct {
	Forms  *service.FormService
	Users  *service.UserService
	Issuer *internalauth.TokenIssuer
	// AuthRequired guards form, user and socket routes with a Bearer token
	AuthRequired bool
	CORSOrigin   string
	// Socket serves /socket.io/ when set
	Socket http.Handler
	Logger *logrus.Entry
}

// SetupRouter sets up the API v1 routes
func SetupRouter(r *gin.Engine, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	r.Use(middleware.RequestID(), middleware.Logger(logger), middleware.Metrics(), middleware.CORS(deps.CORSOrigin))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Socket != nil {
		socket := deps.Socket
		if deps.AuthRequired {
			socket = ws.WrapWithAuth(socket, deps.Issuer, logger)
		}
		r.GET("/socket.io/*any", gin.WrapH(socket))
		r.POST("/socket.io/*any", gin.WrapH(socket))
	}

	v1 := r.Group("/api/v1")
	{
		// Public routes (no authentication required)
		v1.GET("/ping", pingHandler)
		v1.POST("/users/login", auth.LoginHandler(deps.Users, deps.Issuer))

		protected := v1.Group("")
		if deps.AuthRequired {
			protected.Use(middleware.AuthRequired(deps.Issuer))
		}
		{
			protected.GET("/me", meHandler)
			forms.NewHandler(deps.Forms).Register(protected.Group("/forms"))
			users.NewHandler(deps.Users).Register(protected.Group("/users"))
		}
	}
}

// pingHandler handles the ping request using unified response
func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"pong": true,
	})
}

// meHandler returns current user information
func meHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"uid":      c.GetInt(middleware.CtxUID),
		"username": c.GetString(middleware.CtxUsername),
		"role":     c.GetString(middleware.CtxRole),
	})
}
