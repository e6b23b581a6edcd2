package features

import (
	"sort"
	"sync"

	"github.com/satyamkes/JanSahyog/internal/config"
)

// FeatureFlag represents a feature flag configuration.
type FeatureFlag struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// Manager manages feature flags.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]*FeatureFlag
}

// NewManager creates a new feature flag manager.
func NewManager() *Manager {
	return &Manager{
		flags: make(map[string]*FeatureFlag),
	}
}

// NewManagerFromConfig creates a manager with the known flags registered at
// their configured state.
func NewManagerFromConfig(cfg config.FeaturesConfig) *Manager {
	m := NewManager()
	m.Register(FeatureCacheEnabled, cfg.CacheEnabled, "Serve the active scheme list from cache")
	m.Register(FeatureEventHooksEnabled, cfg.EventHooksEnabled, "Publish catalog and eligibility events")
	m.Register(FeatureAIMatching, cfg.AIMatching, "Forward ai-check requests to the AI service")
	return m
}

// Register registers a new feature flag.
func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[name] = &FeatureFlag{
		Name:        name,
		Enabled:     enabled,
		Description: description,
	}
}

// IsEnabled checks if a feature flag is enabled.
func (m *Manager) IsEnabled(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[name]
	if !exists {
		return false // Default to disabled if flag doesn't exist
	}

	return flag.Enabled
}

// GetAll returns a snapshot of all feature flags ordered by name.
func (m *Manager) GetAll() []FeatureFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]FeatureFlag, 0, len(m.flags))
	for _, v := range m.flags {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Predefined feature flag names
const (
	// FeatureCacheEnabled enables/disables caching of the active scheme list
	FeatureCacheEnabled = "cache_enabled"
	// FeatureEventHooksEnabled enables/disables event-driven hooks
	FeatureEventHooksEnabled = "event_hooks_enabled"
	// FeatureAIMatching enables forwarding to the external AI service
	FeatureAIMatching = "ai_matching"
)
