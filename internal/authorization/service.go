package authorization

import (
	"context"
	"errors"

	"github.com/edukita/kertas/internal/principal"
)

// Service answers "may this staff member perform this action within their
// school". Role assignment arrives from the upstream auth layer; policies
// live in casbin backed by the database.
type Service interface {
	Authorize(ctx context.Context, p principal.Principal, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidSchool = errors.New("invalid_school")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
