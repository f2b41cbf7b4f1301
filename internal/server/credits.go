package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	creditdomain "github.com/edukita/kertas/internal/credit/domain"
	paymentsdomain "github.com/edukita/kertas/internal/payments/domain"
	"github.com/edukita/kertas/internal/principal"
)

func (s *Server) GetCreditBalance(c *gin.Context) {
	p, ok := principal.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.creditSvc.GetBalance(c.Request.Context(), creditdomain.Scope{
		Type: creditdomain.ScopeSchool,
		ID:   p.SchoolID.Int64(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCreditPackages(c *gin.Context) {
	resp, err := s.paymentsSvc.ListPackages(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type startPurchaseRequest struct {
	PackageID string `json:"package_id"`
}

func (s *Server) StartCreditPurchase(c *gin.Context) {
	p, ok := principal.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req startPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	packageID, err := parseSnowflakeParam(req.PackageID)
	if err != nil {
		AbortWithError(c, newValidationError("package_id", "invalid_package_id", "invalid package_id"))
		return
	}

	resp, err := s.paymentsSvc.StartPurchase(c.Request.Context(), paymentsdomain.PurchaseRequest{
		SchoolID:  p.SchoolID.Int64(),
		PackageID: packageID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCreditTransactions(c *gin.Context) {
	p, ok := principal.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.creditSvc.ListTransactions(c.Request.Context(), creditdomain.Scope{
		Type: creditdomain.ScopeSchool,
		ID:   p.SchoolID.Int64(),
	}, query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type grantCreditsRequest struct {
	SchoolID string `json:"school_id"`
	Credits  int64  `json:"credits"`
	Bonus    int64  `json:"bonus_credits"`
	Reason   string `json:"reason"`
}

func (s *Server) GrantCredits(c *gin.Context) {
	var req grantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	schoolID, err := parseSnowflakeParam(req.SchoolID)
	if err != nil {
		AbortWithError(c, newValidationError("school_id", "invalid_school_id", "invalid school_id"))
		return
	}

	resp, err := s.creditSvc.Credit(c.Request.Context(), creditdomain.CreditRequest{
		Scope: creditdomain.Scope{
			Type: creditdomain.ScopeSchool,
			ID:   schoolID,
		},
		Credits: req.Credits,
		Bonus:   req.Bonus,
		Type:    creditdomain.TxGrant,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
