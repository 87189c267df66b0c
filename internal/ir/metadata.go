package ir

import (
	"fmt"
	"sort"
	"strconv"
)

// DefaultSelectID is the record field holding an entity's primary key when
// metadata does not name one.
const DefaultSelectID = "id"

// EntityID is the key form of an entity's primary key.
// Integer keys render as decimal, string keys as-is, so 1 and "1" collide.
type EntityID string

// EntityIDOf converts a key value to its EntityID.
func EntityIDOf(v Value) (EntityID, error) {
	switch key := v.(type) {
	case Int:
		return EntityID(strconv.FormatInt(int64(key), 10)), nil
	case String:
		if key == "" {
			return "", fmt.Errorf("empty string key")
		}
		return EntityID(key), nil
	case nil, Null:
		return "", fmt.Errorf("missing key")
	default:
		return "", fmt.Errorf("key must be int or string, got %T", v)
	}
}

// EntityMetadata configures one entity type.
type EntityMetadata struct {
	EntityName string `json:"entity_name"`
	// SelectID is the record field holding the primary key.
	SelectID string `json:"select_id,omitempty"`
	// SortField, when set, keeps ids ordered by that field instead of
	// insertion order.
	SortField string `json:"sort_field,omitempty"`
	// NoChangeTracking disables original-value tracking for optimistic saves.
	NoChangeTracking bool `json:"no_change_tracking,omitempty"`
}

// KeyField returns SelectID or DefaultSelectID.
func (m EntityMetadata) KeyField() string {
	if m.SelectID == "" {
		return DefaultSelectID
	}
	return m.SelectID
}

// IDOf extracts the EntityID of a record.
func (m EntityMetadata) IDOf(rec Object) (EntityID, error) {
	field := m.KeyField()
	id, err := EntityIDOf(rec[field])
	if err != nil {
		return "", fmt.Errorf("%s record field %q: %w", m.EntityName, field, err)
	}
	return id, nil
}

// MetadataMap maps entity names to their metadata.
type MetadataMap map[string]EntityMetadata

// NewMetadataMap builds a MetadataMap with default metadata for each name.
func NewMetadataMap(names ...string) MetadataMap {
	m := make(MetadataMap, len(names))
	for _, name := range names {
		m[name] = EntityMetadata{EntityName: name}
	}
	return m
}

// Lookup returns the metadata for name, or defaults when name is not
// configured. Unknown names are never an error.
func (m MetadataMap) Lookup(name string) EntityMetadata {
	if md, ok := m[name]; ok {
		if md.EntityName == "" {
			md.EntityName = name
		}
		return md
	}
	return EntityMetadata{EntityName: name}
}

// Names returns the configured entity names in sorted order.
func (m MetadataMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
