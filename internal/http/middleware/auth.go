package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/audience-backend/internal/http/response"
	"github.com/yungbote/audience-backend/internal/platform/ctxutil"
	"github.com/yungbote/audience-backend/internal/platform/logger"
	"github.com/yungbote/audience-backend/internal/services"
)

var (
	errMissingToken = errors.New("missing or invalid token")
	errNoSubject    = errors.New("token carries no user")
)

type AuthMiddleware struct {
	log  *logger.Logger
	auth services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, auth services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "auth"), auth: auth}
}

// RequireAuth resolves the bearer token into a user id on the request context. Every
// audience route sits behind it since rounds and lists are scoped to their owner.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errMissingToken)
			return
		}
		ctx, err := am.auth.SetContextFromToken(c.Request.Context(), token)
		if err != nil {
			am.log.Debug("Rejected bearer token", append(ctxutil.LogFields(c.Request.Context()), "error", err)...)
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
			return
		}
		if ctxutil.UserID(ctx) == "" {
			response.RespondError(c, http.StatusForbidden, "forbidden", errNoSubject)
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
