package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xhhao/redisconnector/common/models"
)

// MemoryConfigMapStore keeps documents in process memory
type MemoryConfigMapStore struct {
	mu   sync.RWMutex
	docs map[string]*models.ConfigMap
}

// NewMemoryConfigMapStore creates an empty store
func NewMemoryConfigMapStore() *MemoryConfigMapStore {
	return &MemoryConfigMapStore{
		docs: make(map[string]*models.ConfigMap),
	}
}

// Fetch returns a copy of the stored document
func (s *MemoryConfigMapStore) Fetch(ctx context.Context, name string) (*models.ConfigMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cm, ok := s.docs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return cm.Clone(), nil
}

// Create inserts cm at version 1
func (s *MemoryConfigMapStore) Create(ctx context.Context, cm *models.ConfigMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[cm.Name]; ok {
		return fmt.Errorf("%w: %s already exists", ErrConflict, cm.Name)
	}

	now := time.Now().UTC()
	cm.Version = 1
	cm.CreatedAt = now
	cm.UpdatedAt = now
	s.docs[cm.Name] = cm.Clone()
	return nil
}

// Update replaces the stored data when cm.Version matches
func (s *MemoryConfigMapStore) Update(ctx context.Context, cm *models.ConfigMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.docs[cm.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, cm.Name)
	}
	if cur.Version != cm.Version {
		return fmt.Errorf("%w: %s at version %d, got %d", ErrConflict, cm.Name, cur.Version, cm.Version)
	}

	cm.Version = cur.Version + 1
	cm.UID = cur.UID
	cm.CreatedAt = cur.CreatedAt
	cm.UpdatedAt = time.Now().UTC()
	s.docs[cm.Name] = cm.Clone()
	return nil
}
