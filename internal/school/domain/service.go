package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id int64) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	// Exists reports whether the school is registered and active.
	Exists(ctx context.Context, id int64) (bool, error)
}

type CreateRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Response struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidSlug  = errors.New("invalid_slug")
	ErrSlugTaken    = errors.New("slug_taken")
	ErrNotFound     = errors.New("school_not_found")
	ErrInvalidID    = errors.New("invalid_id")
	ErrInactiveTier = errors.New("school_inactive")
)
