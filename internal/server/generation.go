package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	generationdomain "github.com/edukita/kertas/internal/generation/domain"
	"github.com/edukita/kertas/internal/principal"
)

func (s *Server) GenerateDocument(c *gin.Context) {
	p, ok := principal.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req generationdomain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.generationSvc.Generate(c.Request.Context(), p, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("document_type", resp.DocumentTypeID)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TrackDocumentUsage(c *gin.Context) {
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

	resp, err := s.generationSvc.TrackUsage(c.Request.Context(), p, documentTypeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDocumentStats(c *gin.Context) {
	p, ok := principal.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.usageSvc.Stats(c.Request.Context(), p.SchoolID.Int64())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type rebuildStatsRequest struct {
	SchoolID string `json:"school_id"`
}

func (s *Server) RebuildDocumentStats(c *gin.Context) {
	var req rebuildStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	schoolID, err := parseSnowflakeParam(req.SchoolID)
	if err != nil {
		AbortWithError(c, newValidationError("school_id", "invalid_school_id", "invalid school_id"))
		return
	}

	resp, err := s.usageSvc.RebuildStats(c.Request.Context(), schoolID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
