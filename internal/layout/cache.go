package layout

import lltypes "github.com/llir/llvm/ir/types"

type cacheEntry struct {
	Layout TypeLayout
	Err    *LayoutError
}

type cache struct {
	byType map[lltypes.Type]cacheEntry
}

func newCache() *cache {
	return &cache{byType: make(map[lltypes.Type]cacheEntry, 256)}
}

func (c *cache) get(t lltypes.Type) (cacheEntry, bool) {
	if c == nil {
		return cacheEntry{}, false
	}
	l, ok := c.byType[t]
	return l, ok
}

func (c *cache) put(t lltypes.Type, e *cacheEntry) {
	if c == nil {
		return
	}
	if e == nil {
		delete(c.byType, t)
		return
	}
	c.byType[t] = *e
}

// Forget drops the cached layout of t. Struct bodies that are filled after a
// first query must be forgotten before they are measured again.
func (e *LayoutEngine) Forget(t lltypes.Type) {
	if e != nil {
		e.cache.put(t, nil)
	}
}
