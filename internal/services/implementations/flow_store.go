package implementations

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"cuenca-ubate/internal/domain/identification"
)

// MemoryFlowStore keeps identification flows in process memory; used when Redis is disabled
type MemoryFlowStore struct {
	flows *gocache.Cache
}

// NewMemoryFlowStore creates a store whose flows expire ttl after their last save
func NewMemoryFlowStore(ttl time.Duration) *MemoryFlowStore {
	return &MemoryFlowStore{flows: gocache.New(ttl, ttl)}
}

var _ identification.FlowStore = (*MemoryFlowStore)(nil)

func (s *MemoryFlowStore) Get(_ context.Context, id string) (identification.Flow, error) {
	v, ok := s.flows.Get(id)
	if !ok {
		return identification.Flow{}, fmt.Errorf("%w: %s", identification.ErrFlowNotFound, id)
	}
	return v.(identification.Flow), nil
}

func (s *MemoryFlowStore) Save(_ context.Context, flow identification.Flow) error {
	s.flows.Set(flow.ID, flow, gocache.DefaultExpiration)
	return nil
}

func (s *MemoryFlowStore) Delete(_ context.Context, id string) error {
	s.flows.Delete(id)
	return nil
}
