package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	permissiondomain "github.com/edukita/kertas/internal/permission/domain"
	"github.com/edukita/kertas/internal/principal"
)

type permissionScopeRequest struct {
	ScopeType string `json:"scope_type"`
	ScopeID   string `json:"scope_id"`
}

func (r permissionScopeRequest) toScope() (permissiondomain.Scope, error) {
	scopeID, err := parseSnowflakeParam(r.ScopeID)
	if err != nil {
		return permissiondomain.Scope{}, permissiondomain.ErrInvalidScope
	}
	return permissiondomain.Scope{
		Type: permissiondomain.ScopeType(strings.TrimSpace(r.ScopeType)),
		ID:   scopeID,
	}, nil
}

func (s *Server) ListPermissions(c *gin.Context) {
	var query struct {
		ScopeType string `form:"scope_type"`
		ScopeID   string `form:"scope_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	scope, err := permissionScopeRequest{ScopeType: query.ScopeType, ScopeID: query.ScopeID}.toScope()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.permissionSvc.List(c.Request.Context(), permissiondomain.ListRequest{Scope: scope})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type grantPermissionRequest struct {
	permissionScopeRequest
	DocumentTypeID string `json:"document_type_id"`
	IsAllowed      *bool  `json:"is_allowed"`
	CreditsPerUse  *int64 `json:"credits_per_use"`
}

func (s *Server) GrantPermission(c *gin.Context) {
	var req grantPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	scope, err := req.toScope()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	documentTypeID, err := parseSnowflakeParam(req.DocumentTypeID)
	if err != nil {
		AbortWithError(c, newValidationError("document_type_id", "invalid_document_type_id", "invalid document_type_id"))
		return
	}

	isAllowed := true
	if req.IsAllowed != nil {
		isAllowed = *req.IsAllowed
	}

	resp, err := s.permissionSvc.Grant(c.Request.Context(), permissiondomain.GrantRequest{
		Scope:          scope,
		DocumentTypeID: documentTypeID,
		IsAllowed:      isAllowed,
		CreditsPerUse:  req.CreditsPerUse,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type revokePermissionRequest struct {
	permissionScopeRequest
	DocumentTypeID string `json:"document_type_id"`
}

func (s *Server) RevokePermission(c *gin.Context) {
	var req revokePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	scope, err := req.toScope()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	documentTypeID, err := parseSnowflakeParam(req.DocumentTypeID)
	if err != nil {
		AbortWithError(c, newValidationError("document_type_id", "invalid_document_type_id", "invalid document_type_id"))
		return
	}

	resp, err := s.permissionSvc.Revoke(c.Request.Context(), scope, documentTypeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type bulkPermissionRequest struct {
	permissionScopeRequest
	DocumentTypeIDs []string `json:"document_type_ids"`
	Category        string   `json:"category"`
	IsAllowed       *bool    `json:"is_allowed"`
	CreditsPerUse   *int64   `json:"credits_per_use"`
}

func (s *Server) BulkApplyPermissions(c *gin.Context) {
	var req bulkPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	scope, err := req.toScope()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ids := make([]int64, 0, len(req.DocumentTypeIDs))
	for _, raw := range req.DocumentTypeIDs {
		id, err := parseSnowflakeParam(raw)
		if err != nil {
			AbortWithError(c, permissiondomain.ErrUnknownDocument)
			return
		}
		ids = append(ids, id)
	}

	isAllowed := true
	if req.IsAllowed != nil {
		isAllowed = *req.IsAllowed
	}

	resp, err := s.permissionSvc.BulkApply(c.Request.Context(), permissiondomain.BulkRequest{
		Scope:           scope,
		DocumentTypeIDs: ids,
		Category:        strings.TrimSpace(req.Category),
		IsAllowed:       isAllowed,
		CreditsPerUse:   req.CreditsPerUse,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CheckPermission(c *gin.Context) {
	p, ok := principal.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	documentTypeID, err := parseSnowflakeParam(c.Param("documentTypeId"))
	if err != nil {
		AbortWithError(c, newValidationError("document_type_id", "invalid_document_type_id", "invalid document_type_id"))
		return
	}

	resolution, err := s.permissionSvc.Resolve(c.Request.Context(), p, documentTypeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resolution})
}
