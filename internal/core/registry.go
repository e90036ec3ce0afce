package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]FilterDefinition)
	registryMu sync.RWMutex
)

// Register adds a filter definition to the registry.
// Panics if a filter with the same key is already registered or the key is empty.
func Register(def FilterDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if def.Key == "" {
		panic("filter definition has no key")
	}
	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("filter already registered: %s", def.Key))
	}

	registry[def.Key] = def
}

// Lookup returns a filter definition by key.
// Returns false if not found.
func Lookup(key string) (FilterDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered filter definitions sorted by key.
func All() []FilterDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]FilterDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Keys returns the registered filter keys, sorted.
func Keys() []string {
	defs := All()
	keys := make([]string, len(defs))
	for i, def := range defs {
		keys[i] = def.Key
	}
	return keys
}

// FilterCount returns the number of registered filters.
func FilterCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered filters.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]FilterDefinition)
}
