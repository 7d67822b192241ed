package dialect

import "sync"

// registry is the process-wide dialect cache, keyed by Config (§4.1
// "Dialects are cached process-wide per (targetVersion, extensionVersion?)").
// A Dialect is immutable once built, so sharing one across concurrent
// compilations of distinct inputs is safe (§5) — the only process-global
// state in the whole module.
type registry struct {
	mu    sync.Mutex
	cache map[Config]*Dialect
}

var global = &registry{cache: make(map[Config]*Dialect)}

// For resolves the cached Dialect for cfg, building and caching it on
// first access.
func For(cfg Config) *Dialect {
	global.mu.Lock()
	defer global.mu.Unlock()
	if d, ok := global.cache[cfg]; ok {
		return d
	}
	d := newDialect(cfg)
	global.cache[cfg] = d
	return d
}

// ResetCache invalidates every cached Dialect. Register this with the
// front end's identifier-interning reset hook (§4.1 "Caching... A reset
// hook must invalidate the cache when name-interning state is reset") so
// that a long-lived process (e.g. a language server) doesn't serve a
// Dialect built against interned names from a previous generation.
func ResetCache() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.cache = make(map[Config]*Dialect)
}
