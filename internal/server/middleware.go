package server

import (
	"crypto/subtle"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	obscontext "github.com/edukita/kertas/internal/observability/context"
	"github.com/edukita/kertas/internal/observability/logger"
	"github.com/edukita/kertas/internal/principal"
	"go.uber.org/zap"
)

const (
	headerSchoolID    = "X-School-ID"
	headerUserID      = "X-User-ID"
	headerActorRole   = "X-Actor-Role"
	headerAdminSecret = "X-Admin-Secret"
)

// PrincipalRequired builds the request principal from the identity headers
// set by the upstream gateway. Requests without a school are rejected.
func (s *Server) PrincipalRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		schoolID, err := snowflake.ParseString(strings.TrimSpace(c.GetHeader(headerSchoolID)))
		if err != nil || schoolID == 0 {
			AbortWithError(c, ErrSchoolRequired)
			return
		}

		var userID snowflake.ID
		if raw := strings.TrimSpace(c.GetHeader(headerUserID)); raw != "" {
			userID, err = snowflake.ParseString(raw)
			if err != nil {
				AbortWithError(c, ErrUnauthorized)
				return
			}
		}

		p := principal.Principal{
			SchoolID: schoolID,
			UserID:   userID,
			Role:     principal.ParseRole(strings.TrimSpace(c.GetHeader(headerActorRole))),
		}

		ctx := principal.WithPrincipal(c.Request.Context(), p)
		ctx = obscontext.WithSchoolID(ctx, schoolID.String())
		if userID != 0 {
			ctx = obscontext.WithActor(ctx, "user", userID.String())
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminSecretRequired gates the operator surface behind the shared platform
// secret. Intended for the back office, not tenant traffic.
func (s *Server) AdminSecretRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := strings.TrimSpace(s.cfg.AdminAPISecret)
		if secret == "" {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		provided := strings.TrimSpace(c.GetHeader(headerAdminSecret))
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), "admin", "platform")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		p, ok := principal.FromContext(ctx)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if err := s.authzSvc.Authorize(ctx, p, object, action); err != nil {
			logger.FromContext(ctx).Warn("authorization denied",
				zap.String("object", object),
				zap.String("action", action),
				zap.Error(err),
			)
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
