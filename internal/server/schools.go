package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	schooldomain "github.com/edukita/kertas/internal/school/domain"
)

type createSchoolRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (s *Server) CreateSchool(c *gin.Context) {
	var req createSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.schoolSvc.Create(c.Request.Context(), schooldomain.CreateRequest{
		Name: strings.TrimSpace(req.Name),
		Slug: strings.TrimSpace(req.Slug),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSchools(c *gin.Context) {
	resp, err := s.schoolSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSchool(c *gin.Context) {
	id, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, schooldomain.ErrInvalidID)
		return
	}

	resp, err := s.schoolSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
