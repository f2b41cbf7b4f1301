package domain

import (
	"context"
	"time"

	"github.com/edukita/kertas/internal/principal"
)

type Service interface {
	// Generate runs the full pipeline: resolve permission, debit credits,
	// record usage. A failure after the debit refunds it.
	Generate(ctx context.Context, p principal.Principal, req GenerateRequest) (*GenerateResponse, error)
	// TrackUsage bumps usage counters without touching the ledger.
	TrackUsage(ctx context.Context, p principal.Principal, documentTypeID int64) (*TrackResponse, error)
}

type GenerateRequest struct {
	DocumentTypeID int64          `json:"document_type_id,string"`
	DocumentData   map[string]any `json:"document_data"`
}

type GenerateResponse struct {
	DocumentID       string    `json:"document_id"`
	DocumentTypeID   string    `json:"document_type_id"`
	CreditsUsed      int64     `json:"credits_used"`
	PermissionSource string    `json:"permission_source"`
	GeneratedAt      time.Time `json:"generated_at"`
}

type TrackResponse struct {
	DocumentID  string    `json:"document_id"`
	TrackedAt   time.Time `json:"tracked_at"`
	CreditsUsed int64     `json:"credits_used"`
}
