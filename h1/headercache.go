package h1

// HeaderCache accelerates repeated header-line parsing with a trie keyed
// by the raw line bytes ("Name: Value"), mapping straight to a pre-parsed
// Header instance. One HeaderCache belongs to exactly one connection's
// parser (spec §5: tries are never shared across connections since
// insertion mutates them); a fresh message reuses the same cache as its
// predecessor on the same connection.
//
// Capacity is bounded two ways: HeaderCacheCapacityPerName limits how many
// distinct values are cached for a single header name (a Host header with
// a thousand different values shouldn't crowd out everything else), and
// HeaderCacheNodeBudget bounds total trie nodes. Once either limit is hit,
// further lines parse normally without being cached — correctness never
// depends on the cache.
type HeaderCache struct {
	cfg        *Config
	root       *trieNode
	nameCounts map[string]int
	nodeCount  int
}

type trieNode struct {
	children map[byte]*trieNode
	header   *Header
}

// NewHeaderCache returns an empty cache governed by cfg's capacity knobs.
func NewHeaderCache(cfg *Config) *HeaderCache {
	return &HeaderCache{
		cfg:        cfg,
		root:       &trieNode{children: map[byte]*trieNode{}},
		nameCounts: map[string]int{},
	}
}

// Lookup returns the cached Header for the exact raw line, if any.
func (c *HeaderCache) Lookup(line []byte) (Header, bool) {
	n := c.root
	for _, b := range line {
		n = n.children[b]
		if n == nil {
			return Header{}, false
		}
	}
	if n.header != nil {
		return *n.header, true
	}
	return Header{}, false
}

// Insert records h as the parsed result of line, subject to the capacity
// budgets. A no-op once either budget is exhausted for this name/cache.
func (c *HeaderCache) Insert(line []byte, h Header) {
	if c.nameCounts[h.Name] >= c.cfg.HeaderCacheCapacityPerName {
		return
	}
	if c.nodeCount >= c.cfg.HeaderCacheNodeBudget {
		return
	}
	n := c.root
	for _, b := range line {
		child, ok := n.children[b]
		if !ok {
			if c.nodeCount >= c.cfg.HeaderCacheNodeBudget {
				return
			}
			child = &trieNode{children: map[byte]*trieNode{}}
			n.children[b] = child
			c.nodeCount++
		}
		n = child
	}
	if n.header == nil {
		c.nameCounts[h.Name]++
	}
	cp := h
	n.header = &cp
}

// Size reports the number of trie nodes currently allocated, for tests and
// diagnostics.
func (c *HeaderCache) Size() int { return c.nodeCount }
