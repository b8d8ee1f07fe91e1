package layer

import (
	"sort"
	"sync"

	"github.com/dshills/settree/internal/config/loader"
)

// Manager manages settings layers and provides merged access.
type Manager struct {
	mu     sync.RWMutex
	layers []*Layer       // Sorted by priority (ascending)
	merged map[string]any // Cached merged result
	dirty  bool           // Whether merged cache needs refresh
}

// NewManager creates a manager holding layers.
func NewManager(layers ...*Layer) *Manager {
	m := &Manager{dirty: true}
	for _, l := range layers {
		m.AddLayer(l)
	}
	return m
}

// AddLayer adds a layer, replacing any layer of the same name. Layers of
// equal priority keep their insertion order.
func (m *Manager) AddLayer(layer *Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.remove(layer.Name)
	m.layers = append(m.layers, layer)
	sort.SliceStable(m.layers, func(i, j int) bool {
		return m.layers[i].Priority < m.layers[j].Priority
	})
	m.dirty = true
}

// RemoveLayer removes a layer by name.
// Returns true if the layer was found and removed.
func (m *Manager) RemoveLayer(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remove(name)
}

func (m *Manager) remove(name string) bool {
	for i, layer := range m.layers {
		if layer.Name == name {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			m.dirty = true
			return true
		}
	}
	return false
}

// GetLayer returns a layer by name.
func (m *Manager) GetLayer(name string) *Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, layer := range m.layers {
		if layer.Name == name {
			return layer
		}
	}
	return nil
}

// Layers returns a copy of all layers sorted by priority.
func (m *Manager) Layers() []*Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Layer, len(m.layers))
	copy(result, m.layers)
	return result
}

// Len returns the number of layers.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.layers)
}

// Merge combines all layers into a single settings map.
// Results are cached until a layer is added or removed.
func (m *Manager) Merge() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty && m.merged != nil {
		return loader.Clone(m.merged)
	}

	result := make(map[string]any)

	// Apply layers in priority order (lowest first, highest last)
	for _, layer := range m.layers {
		result = loader.DeepMerge(result, loader.Clone(layer.Data))
	}

	m.merged = result
	m.dirty = false

	return loader.Clone(result)
}

// Get returns the effective value for a setting path.
// Returns the value, the layer it came from, and whether it was found.
func (m *Manager) Get(path string) (any, *Layer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Search layers from highest to lowest priority
	for i := len(m.layers) - 1; i >= 0; i-- {
		layer := m.layers[i]
		if val, ok := GetByPath(layer.Data, path); ok {
			return val, layer, true
		}
	}

	return nil, nil, false
}

// WhichLayer returns the name of the layer that provides a value.
func (m *Manager) WhichLayer(path string) string {
	_, layer, found := m.Get(path)
	if !found {
		return ""
	}
	return layer.Name
}

// Clear removes all layers.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.layers = nil
	m.merged = nil
	m.dirty = true
}
