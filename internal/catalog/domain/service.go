package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id int64) (*Response, error)
	// GetActive returns the document type only when it is active.
	GetActive(ctx context.Context, id int64) (*Response, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetPopular(ctx context.Context, id int64, popular bool) error
	// BulkSetActive flips every matching row in one statement and returns the
	// number of rows changed.
	BulkSetActive(ctx context.Context, req BulkActiveRequest) (int64, error)
	IncrementUsage(ctx context.Context, id int64) error
	IDsByCategory(ctx context.Context, category string) ([]int64, error)
}

type ListRequest struct {
	Category        string
	Search          string
	IncludeInactive bool
}

type CreateRequest struct {
	Code            string         `json:"code"`
	Name            string         `json:"name"`
	NameID          string         `json:"name_id"`
	Category        string         `json:"category"`
	CreditsRequired int64          `json:"credits_required"`
	IsPopular       *bool          `json:"is_popular"`
	Metadata        map[string]any `json:"metadata"`
}

type BulkActiveRequest struct {
	Category string `json:"category"`
	Active   bool   `json:"active"`
}

type Response struct {
	ID              string         `json:"id"`
	Code            string         `json:"code"`
	Name            string         `json:"name"`
	NameID          string         `json:"name_id"`
	Category        string         `json:"category"`
	CreditsRequired int64          `json:"credits_required"`
	IsActive        bool           `json:"is_active"`
	IsPopular       bool           `json:"is_popular"`
	UsageCount      int64          `json:"usage_count"`
	LastUsedAt      *time.Time     `json:"last_used_at,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

var (
	ErrInvalidCode     = errors.New("invalid_code")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidCredits  = errors.New("invalid_credits")
	ErrCodeTaken       = errors.New("code_taken")
	ErrNotFound        = errors.New("document_type_not_found")
	ErrInvalidID       = errors.New("invalid_id")
)
