package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

// TestCleanup removes fixture schools and everything hanging off them.
// Registered only outside production.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.Environment == "production" {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}

	ctx := c.Request.Context()
	like := prefix + "%"

	var schoolIDs []int64
	if err := s.db.WithContext(ctx).
		Table("schools").
		Select("id").
		Where("slug LIKE ?", like).
		Scan(&schoolIDs).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	if len(schoolIDs) > 0 {
		for _, stmt := range []string{
			`DELETE FROM document_stats WHERE school_id IN ?`,
			`DELETE FROM generated_documents WHERE school_id IN ?`,
			`DELETE FROM credit_transactions WHERE scope_type = 'school' AND scope_id IN ?`,
			`DELETE FROM credit_balances WHERE scope_type = 'school' AND scope_id IN ?`,
			`DELETE FROM document_permissions WHERE scope_type = 'school' AND scope_id IN ?`,
			`DELETE FROM audit_logs WHERE school_id IN ?`,
			`DELETE FROM schools WHERE id IN ?`,
		} {
			if err := s.db.WithContext(ctx).Exec(stmt, schoolIDs).Error; err != nil {
				AbortWithError(c, err)
				return
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
