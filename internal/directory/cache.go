package directory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedRepository is a read-through cache over a Repository. Physician and
// service records change rarely next to how often the booking path reads
// them, so a short TTL keeps directory lookups off the hot path. Not-found
// results are never cached; a newly registered entity becomes visible on the
// next lookup.
type CachedRepository struct {
	inner      Repository
	physicians *expirable.LRU[uuid.UUID, *Physician]
	services   *expirable.LRU[uuid.UUID, *Service]
	patients   *expirable.LRU[uuid.UUID, *Patient]
}

func NewCachedRepository(inner Repository, size int, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		inner:      inner,
		physicians: expirable.NewLRU[uuid.UUID, *Physician](size, nil, ttl),
		services:   expirable.NewLRU[uuid.UUID, *Service](size, nil, ttl),
		patients:   expirable.NewLRU[uuid.UUID, *Patient](size, nil, ttl),
	}
}

func (c *CachedRepository) GetPhysicianByID(ctx context.Context, id uuid.UUID) (*Physician, error) {
	if p, ok := c.physicians.Get(id); ok {
		return p, nil
	}
	p, err := c.inner.GetPhysicianByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.physicians.Add(id, p)
	return p, nil
}

func (c *CachedRepository) GetServiceByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	if s, ok := c.services.Get(id); ok {
		return s, nil
	}
	s, err := c.inner.GetServiceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.services.Add(id, s)
	return s, nil
}

func (c *CachedRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	if p, ok := c.patients.Get(id); ok {
		return p, nil
	}
	p, err := c.inner.GetPatientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.patients.Add(id, p)
	return p, nil
}
