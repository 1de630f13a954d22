package mapxsd

import (
	"regexp"
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"
)

const patternCacheSize = 256

// patternCache holds compiled restriction patterns. Rules are immutable, so a
// compiled expression (or its compile error) never goes stale.
type patternCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

type compiledPattern struct {
	re  *regexp.Regexp
	err error
}

var patterns = &patternCache{cache: lru.New(patternCacheSize)}

// compile returns the anchored expression for an XSD pattern
func (pc *patternCache) compile(pattern string) (compiledPattern, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if v, ok := pc.cache.Get(pattern); ok {
		cp := v.(compiledPattern)
		return cp, cp.err
	}

	re, err := regexp.Compile(convertXSDRegex(pattern))
	cp := compiledPattern{err: err}
	if err == nil {
		cp.re = re
	}
	pc.cache.Add(pattern, cp)
	return cp, err
}

// convertXSDRegex rewrites the XSD-only escapes RE2 does not know.
// XSD patterns are implicitly anchored, so the result is wrapped in ^(?:...)$.
func convertXSDRegex(pattern string) string {
	result := strings.ReplaceAll(pattern, `\i`, `[_:A-Za-z]`)
	result = strings.ReplaceAll(result, `\c`, `[-_:A-Za-z0-9.]`)
	return "^(?:" + result + ")$"
}
