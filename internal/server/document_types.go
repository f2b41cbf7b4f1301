package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	catalogdomain "github.com/edukita/kertas/internal/catalog/domain"
)

type createDocumentTypeRequest struct {
	Code            string         `json:"code"`
	Name            string         `json:"name"`
	NameID          string         `json:"name_id"`
	Category        string         `json:"category"`
	CreditsRequired int64          `json:"credits_required"`
	IsPopular       *bool          `json:"is_popular"`
	Metadata        map[string]any `json:"metadata"`
}

func (s *Server) CreateDocumentType(c *gin.Context) {
	var req createDocumentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.Create(c.Request.Context(), catalogdomain.CreateRequest{
		Code:            strings.TrimSpace(req.Code),
		Name:            strings.TrimSpace(req.Name),
		NameID:          strings.TrimSpace(req.NameID),
		Category:        strings.TrimSpace(req.Category),
		CreditsRequired: req.CreditsRequired,
		IsPopular:       req.IsPopular,
		Metadata:        req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDocumentTypes(c *gin.Context) {
	var query struct {
		Category        string `form:"category"`
		Search          string `form:"search"`
		IncludeInactive string `form:"include_inactive"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	includeInactive, err := parseOptionalBool(query.IncludeInactive)
	if err != nil {
		AbortWithError(c, newValidationError("include_inactive", "invalid_include_inactive", "invalid include_inactive"))
		return
	}

	resp, err := s.catalogSvc.List(c.Request.Context(), catalogdomain.ListRequest{
		Category:        strings.TrimSpace(query.Category),
		Search:          strings.TrimSpace(query.Search),
		IncludeInactive: includeInactive != nil && *includeInactive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDocumentType(c *gin.Context) {
	id, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, catalogdomain.ErrInvalidID)
		return
	}

	resp, err := s.catalogSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setDocumentTypeActiveRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) SetDocumentTypeActive(c *gin.Context) {
	id, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, catalogdomain.ErrInvalidID)
		return
	}

	var req setDocumentTypeActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.catalogSvc.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type setDocumentTypePopularRequest struct {
	Popular *bool `json:"popular"`
}

func (s *Server) SetDocumentTypePopular(c *gin.Context) {
	id, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, catalogdomain.ErrInvalidID)
		return
	}

	var req setDocumentTypePopularRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Popular == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.catalogSvc.SetPopular(c.Request.Context(), id, *req.Popular); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type bulkSetActiveRequest struct {
	Category string `json:"category"`
	Active   *bool  `json:"active"`
}

func (s *Server) BulkSetDocumentTypesActive(c *gin.Context) {
	var req bulkSetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	affected, err := s.catalogSvc.BulkSetActive(c.Request.Context(), catalogdomain.BulkActiveRequest{
		Category: strings.TrimSpace(req.Category),
		Active:   *req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"affected": affected}})
}

func parseSnowflakeParam(raw string) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		if err == nil {
			err = ErrInvalidRequest
		}
		return 0, err
	}
	return id.Int64(), nil
}
