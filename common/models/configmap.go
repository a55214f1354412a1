package models

import (
	"time"

	"github.com/google/uuid"
)

// ConfigMap is a named group of string settings. Each data entry usually
// holds a JSON document for one settings group.
// Maps to: config_map table
type ConfigMap struct {
	// Unique document name, e.g. "redis-connector-configmap"
	Name string `db:"name" json:"name"`

	// Assigned once on creation
	UID uuid.UUID `db:"uid" json:"uid"`

	// Settings groups keyed by group name
	Data map[string]string `db:"data" json:"data"`

	// Optimistic lock, incremented on every update
	Version int64 `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewConfigMap creates an unsaved document with a fresh UID
func NewConfigMap(name string) *ConfigMap {
	return &ConfigMap{
		Name: name,
		UID:  uuid.New(),
		Data: map[string]string{},
	}
}

// Clone returns a deep copy so callers never share the Data map with a store
func (c *ConfigMap) Clone() *ConfigMap {
	out := *c
	out.Data = make(map[string]string, len(c.Data))
	for k, v := range c.Data {
		out.Data[k] = v
	}
	return &out
}
