package api

import (
	"strings"
	"sync"
)

// ResourceKeyHeader carries resource keys for files shared by link
const ResourceKeyHeader = "X-Goog-Drive-Resource-Keys"

// ResourceKeyManager remembers resource keys seen in listings so that later
// content reads of link-shared files are authorized. Keys live for one run.
type ResourceKeyManager struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewResourceKeyManager creates a new resource key manager
func NewResourceKeyManager() *ResourceKeyManager {
	return &ResourceKeyManager{
		keys: make(map[string]string),
	}
}

// UpdateFromAPIResponse records the key reported for fileID, if any
func (m *ResourceKeyManager) UpdateFromAPIResponse(fileID, resourceKey string) {
	if fileID == "" || resourceKey == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[fileID] = resourceKey
}

// GetKey retrieves a resource key
func (m *ResourceKeyManager) GetKey(fileID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.keys[fileID]
	return key, ok
}

// BuildHeader builds the X-Goog-Drive-Resource-Keys value for fileIDs,
// or "" when none of them has a known key
func (m *ResourceKeyManager) BuildHeader(fileIDs []string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pairs []string
	for _, id := range fileIDs {
		if key, ok := m.keys[id]; ok {
			pairs = append(pairs, id+"/"+key)
		}
	}
	return strings.Join(pairs, ",")
}
