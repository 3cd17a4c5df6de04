package dspacex

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type partitionKey struct {
	datasetID        int
	persistenceLevel int
	crystal          int
}

// CachedService remembers crystal partitions, which never change for a
// given dataset and persistence level. Everything else is passed through.
type CachedService struct {
	Service
	partitions *lru.Cache[partitionKey, *CrystalPartition]
}

// NewCachedService wraps svc with a partition cache of the given size
func NewCachedService(svc Service, size int) (*CachedService, error) {
	cache, err := lru.New[partitionKey, *CrystalPartition](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create partition cache: %w", err)
	}
	return &CachedService{Service: svc, partitions: cache}, nil
}

// FetchCrystalPartition returns the cached partition or fetches it
func (s *CachedService) FetchCrystalPartition(ctx context.Context, datasetID, persistenceLevel, crystal int) (*CrystalPartition, error) {
	key := partitionKey{datasetID: datasetID, persistenceLevel: persistenceLevel, crystal: crystal}
	if p, ok := s.partitions.Get(key); ok {
		return p, nil
	}

	p, err := s.Service.FetchCrystalPartition(ctx, datasetID, persistenceLevel, crystal)
	if err != nil {
		return nil, err
	}
	s.partitions.Add(key, p)
	return p, nil
}

// Purge drops every cached partition
func (s *CachedService) Purge() {
	s.partitions.Purge()
}
