package domain

import (
	"context"
	"errors"
	"time"

	"github.com/edukita/kertas/internal/principal"
)

// Resolution source tiers, most specific first.
const (
	SourceUser    = "user"
	SourceSchool  = "school"
	SourceDefault = "default"
	SourceBase    = "base"
)

// Resolution is the outcome of the precedence walk for one document type.
type Resolution struct {
	Allowed        bool   `json:"allowed"`
	Credits        int64  `json:"credits"`
	Source         string `json:"source"`
	DocumentTypeID string `json:"document_type_id"`
}

type Scope struct {
	Type ScopeType `json:"scope_type"`
	ID   int64     `json:"scope_id"`
}

type Service interface {
	// Resolve walks user, school, default and base tiers. A denied resolution
	// is a valid result, not an error.
	Resolve(ctx context.Context, p principal.Principal, documentTypeID int64) (*Resolution, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Grant(ctx context.Context, req GrantRequest) (*Response, error)
	Revoke(ctx context.Context, scope Scope, documentTypeID int64) (*Response, error)
	BulkApply(ctx context.Context, req BulkRequest) (*BulkResult, error)
}

type ListRequest struct {
	Scope Scope
}

type GrantRequest struct {
	Scope          Scope  `json:"scope"`
	DocumentTypeID int64  `json:"document_type_id,string"`
	IsAllowed      bool   `json:"is_allowed"`
	CreditsPerUse  *int64 `json:"credits_per_use"`
}

// BulkRequest applies one allow/deny decision across many document types.
// Exactly one of DocumentTypeIDs and Category must be set.
type BulkRequest struct {
	Scope           Scope   `json:"scope"`
	DocumentTypeIDs []int64 `json:"document_type_ids"`
	Category        string  `json:"category"`
	IsAllowed       bool    `json:"is_allowed"`
	CreditsPerUse   *int64  `json:"credits_per_use"`
}

type BulkResult struct {
	Applied int `json:"applied"`
}

type Response struct {
	ID             string     `json:"id"`
	ScopeType      string     `json:"scope_type"`
	ScopeID        string     `json:"scope_id"`
	DocumentTypeID string     `json:"document_type_id"`
	IsAllowed      bool       `json:"is_allowed"`
	CreditsPerUse  *int64     `json:"credits_per_use,omitempty"`
	GrantedAt      time.Time  `json:"granted_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

var (
	ErrDenied          = errors.New("permission_denied")
	ErrInvalidScope    = errors.New("invalid_scope")
	ErrInvalidCredits  = errors.New("invalid_credits")
	ErrEmptyBatch      = errors.New("empty_batch")
	ErrBatchTooLarge   = errors.New("batch_too_large")
	ErrAmbiguousBatch  = errors.New("ambiguous_batch")
	ErrUnknownDocument = errors.New("unknown_document_in_batch")
)
