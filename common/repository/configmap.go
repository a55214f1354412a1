package repository

import (
	"context"
	"errors"

	"github.com/xhhao/redisconnector/common/models"
)

var (
	// ErrNotFound is returned when no document exists under the requested name
	ErrNotFound = errors.New("config map not found")
	// ErrConflict is returned when an update carries a stale version, or a
	// create targets a name that already exists
	ErrConflict = errors.New("config map version conflict")
)

// ConfigMapStore persists named ConfigMap documents
type ConfigMapStore interface {
	// Fetch returns the document stored under name, or ErrNotFound
	Fetch(ctx context.Context, name string) (*models.ConfigMap, error)

	// Create inserts a new document at version 1
	Create(ctx context.Context, cm *models.ConfigMap) error

	// Update replaces the data of an existing document. cm.Version must match
	// the stored version; on success it is advanced to the new version.
	Update(ctx context.Context, cm *models.ConfigMap) error
}
