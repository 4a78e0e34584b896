package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cuenca-ubate/internal/domain/identification"
)

// FlowStore keeps identification flows in Redis with a sliding TTL
type FlowStore struct {
	client *RedisClient
	ttl    time.Duration
}

// NewFlowStore creates a Redis-backed identification.FlowStore
func NewFlowStore(client *RedisClient, ttl time.Duration) *FlowStore {
	return &FlowStore{client: client, ttl: ttl}
}

// Get loads a flow; reading it keeps it alive for another ttl
func (s *FlowStore) Get(ctx context.Context, id string) (identification.Flow, error) {
	var flow identification.Flow
	if err := s.client.GetEx(ctx, FlowKey(id), &flow, s.ttl); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return identification.Flow{}, fmt.Errorf("%w: %s", identification.ErrFlowNotFound, id)
		}
		return identification.Flow{}, err
	}
	return flow, nil
}

// Save stores a flow and restarts its TTL
func (s *FlowStore) Save(ctx context.Context, flow identification.Flow) error {
	return s.client.Set(ctx, FlowKey(flow.ID), flow, s.ttl)
}

// Delete drops a flow
func (s *FlowStore) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, FlowKey(id))
}
