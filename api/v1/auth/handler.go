package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"inspection_log/internal/auth"
	"inspection_log/internal/errs"
	"inspection_log/internal/httpx"
	"inspection_log/internal/model"
	"inspection_log/internal/service"
)

// LoginRequest represents login credentials, sent as query parameters or
// a JSON body
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginResponse represents login response data
type LoginResponse struct {
	Token    string      `json:"token"`
	ExpireAt string      `json:"expireAt"`
	User     *model.User `json:"user"`
}

// LoginHandler handles user login
func LoginHandler(users *service.UserService, issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := LoginRequest{
			Username: c.Query("username"),
			Password: c.Query("password"),
		}
		if req.Username == "" && c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				httpx.FailErr(c, httpx.ErrParamInvalid("invalid request body"))
				return
			}
		}
		if req.Username == "" || req.Password == "" {
			httpx.FailErr(c, httpx.ErrParamMissing("username and password are required"))
			return
		}

		user, err := users.Authenticate(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, errs.ErrAuth) {
				httpx.FailErr(c, httpx.ErrUnauthorized(errs.ErrAuth.Error()))
				return
			}
			httpx.FailFrom(c, err)
			return
		}

		token, expireAt, err := issuer.Issue(user.ID, user.Username, string(user.Role))
		if err != nil {
			httpx.FailErr(c, httpx.ErrInternalError("failed to generate token", err))
			return
		}

		httpx.OK(c, LoginResponse{
			Token:    token,
			ExpireAt: expireAt.Format(time.RFC3339),
			User:     user,
		})
	}
}
