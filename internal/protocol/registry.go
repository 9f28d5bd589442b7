package protocol

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/wagiedev/claude-session-go/internal/hook"
)

// Registry maps generated callback ids to hook callbacks. Entries are
// added during initialization and never removed.
type Registry struct {
	mu        sync.RWMutex
	next      int
	callbacks map[string]hook.Callback
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{callbacks: make(map[string]hook.Callback, 16)}
}

// Register stores cb and returns its id ("hook_0", "hook_1", ...).
func (r *Registry) Register(cb hook.Callback) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := fmt.Sprintf("hook_%d", r.next)
	r.next++
	r.callbacks[id] = cb

	return id
}

// Lookup returns the callback registered under id.
func (r *Registry) Lookup(id string) (hook.Callback, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cb, ok := r.callbacks[id]

	return cb, ok
}

// Len returns the number of registered callbacks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.callbacks)
}

// BuildConfig registers every callback in hooks and returns the "hooks"
// object of the initialize request:
//
//	{"PreToolUse": [{"matcher": "Bash", "hookCallbackIds": ["hook_0"], "timeout": 30}]}
//
// Events are visited in name order so ids are stable for a given
// configuration. It returns nil when there is nothing to register.
func (r *Registry) BuildConfig(hooks map[hook.Event][]*hook.Matcher) map[string]any {
	config := make(map[string]any, len(hooks))

	for _, event := range slices.Sorted(maps.Keys(hooks)) {
		entries := make([]map[string]any, 0, len(hooks[event]))

		for _, m := range hooks[event] {
			if m == nil {
				continue
			}

			ids := make([]string, 0, len(m.Hooks))
			for _, cb := range m.Hooks {
				if cb != nil {
					ids = append(ids, r.Register(cb))
				}
			}

			entry := map[string]any{
				"matcher":         nil,
				"hookCallbackIds": ids,
			}

			if m.Matcher != "" {
				entry["matcher"] = m.Matcher
			}

			if m.Timeout != nil {
				entry["timeout"] = *m.Timeout
			}

			entries = append(entries, entry)
		}

		if len(entries) > 0 {
			config[string(event)] = entries
		}
	}

	if len(config) == 0 {
		return nil
	}

	return config
}
