package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	auditdomain "github.com/edukita/kertas/internal/audit/domain"
	"github.com/edukita/kertas/internal/authorization"
	catalogdomain "github.com/edukita/kertas/internal/catalog/domain"
	creditdomain "github.com/edukita/kertas/internal/credit/domain"
	paymentsdomain "github.com/edukita/kertas/internal/payments/domain"
	permissiondomain "github.com/edukita/kertas/internal/permission/domain"
	schooldomain "github.com/edukita/kertas/internal/school/domain"
	usagestatsdomain "github.com/edukita/kertas/internal/usagestats/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrSchoolRequired     = errors.New("school_required")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, paymentsdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, creditdomain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_credits",
			Message: "insufficient credits",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrSchoolRequired),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, permissiondomain.ErrDenied):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, catalogdomain.ErrCodeTaken),
		errors.Is(err, schooldomain.ErrSlugTaken),
		errors.Is(err, creditdomain.ErrTransactionFinal):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, permissiondomain.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge, errorPayload{
			Type:    "batch_too_large",
			Message: "batch too large",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "rate limited",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isCatalogValidationError(err),
		isSchoolValidationError(err),
		isPermissionValidationError(err),
		isCreditValidationError(err),
		isUsageValidationError(err),
		isAuditValidationError(err),
		isPaymentValidationError(err):
		return true
	default:
		return false
	}
}

func isCatalogValidationError(err error) bool {
	switch {
	case errors.Is(err, catalogdomain.ErrInvalidCode),
		errors.Is(err, catalogdomain.ErrInvalidName),
		errors.Is(err, catalogdomain.ErrInvalidCategory),
		errors.Is(err, catalogdomain.ErrInvalidCredits),
		errors.Is(err, catalogdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isSchoolValidationError(err error) bool {
	switch {
	case errors.Is(err, schooldomain.ErrInvalidName),
		errors.Is(err, schooldomain.ErrInvalidSlug),
		errors.Is(err, schooldomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isPermissionValidationError(err error) bool {
	switch {
	case errors.Is(err, permissiondomain.ErrInvalidScope),
		errors.Is(err, permissiondomain.ErrInvalidCredits),
		errors.Is(err, permissiondomain.ErrEmptyBatch),
		errors.Is(err, permissiondomain.ErrAmbiguousBatch),
		errors.Is(err, permissiondomain.ErrUnknownDocument):
		return true
	default:
		return false
	}
}

func isCreditValidationError(err error) bool {
	switch {
	case errors.Is(err, creditdomain.ErrInvalidScope),
		errors.Is(err, creditdomain.ErrInvalidAmount),
		errors.Is(err, creditdomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}

func isUsageValidationError(err error) bool {
	switch {
	case errors.Is(err, usagestatsdomain.ErrInvalidSchool),
		errors.Is(err, usagestatsdomain.ErrInvalidDocumentType):
		return true
	default:
		return false
	}
}

func isAuditValidationError(err error) bool {
	switch {
	case errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isPaymentValidationError(err error) bool {
	switch {
	case errors.Is(err, paymentsdomain.ErrInvalidPayload),
		errors.Is(err, paymentsdomain.ErrInvalidEvent):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, schooldomain.ErrNotFound),
		errors.Is(err, creditdomain.ErrTransactionNotFound),
		errors.Is(err, paymentsdomain.ErrPackageNotFound),
		errors.Is(err, paymentsdomain.ErrProviderNotFound),
		errors.Is(err, paymentsdomain.ErrInvalidOrder),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog feeds the request logger a coarse type and a stable code.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", code
	case status >= http.StatusBadRequest:
		return "client_error", code
	default:
		return "", code
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
