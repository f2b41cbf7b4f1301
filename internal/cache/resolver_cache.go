package cache

import (
	"time"

	catalogdomain "github.com/edukita/kertas/internal/catalog/domain"
)

const defaultDocumentTypeTTL = time.Minute

// ResolverCache stores hot-path catalog lookups for permission resolution.
// Entries are short-lived so admin toggles converge within a minute.
type ResolverCache interface {
	GetDocumentType(id int64) (*catalogdomain.Response, bool)
	SetDocumentType(id int64, dt *catalogdomain.Response)
	InvalidateDocumentType(id int64)
}

type resolverCache struct {
	documentTypes Cache[int64, *catalogdomain.Response]
	ttl           time.Duration
}

// NewResolverCache returns an in-memory cache tuned for permission checks.
func NewResolverCache() ResolverCache {
	return &resolverCache{
		documentTypes: NewTTLCache[int64, *catalogdomain.Response](),
		ttl:           defaultDocumentTypeTTL,
	}
}

func (c *resolverCache) GetDocumentType(id int64) (*catalogdomain.Response, bool) {
	return c.documentTypes.Get(id)
}

func (c *resolverCache) SetDocumentType(id int64, dt *catalogdomain.Response) {
	if dt == nil {
		return
	}
	c.documentTypes.Set(id, dt, c.ttl)
}

func (c *resolverCache) InvalidateDocumentType(id int64) {
	c.documentTypes.Delete(id)
}
