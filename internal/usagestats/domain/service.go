package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// RecordUsage appends to the log, bumps the catalog usage counter and the
	// rollup row, all in one database transaction.
	RecordUsage(ctx context.Context, req RecordRequest) (*RecordResponse, error)
	Stats(ctx context.Context, schoolID int64) (*StatsResponse, error)
	// RebuildStats recomputes the rollup for one school from the log.
	RebuildStats(ctx context.Context, schoolID int64) (*RebuildResult, error)
}

type RecordRequest struct {
	SchoolID       int64
	UserID         *int64
	DocumentTypeID int64
	CreditsCharged int64
	Metadata       map[string]any
}

type RecordResponse struct {
	DocumentID  string    `json:"document_id"`
	GeneratedAt time.Time `json:"generated_at"`
}

type StatsResponse struct {
	TotalGenerated int64         `json:"total_generated"`
	ThisMonth      int64         `json:"this_month"`
	ByDocumentType []StatRow     `json:"by_document_type"`
	ByCategory     []CategoryRow `json:"by_category"`
}

type RebuildResult struct {
	DocumentTypes int `json:"document_types"`
}

var (
	ErrInvalidSchool       = errors.New("invalid_school")
	ErrInvalidDocumentType = errors.New("invalid_document_type")
)
