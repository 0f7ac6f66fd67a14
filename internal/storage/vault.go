package storage

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/parser"
)

// DefaultContentCacheSize is the number of document bodies kept in memory.
const DefaultContentCacheSize = 512

// Vault wraps a Provider with a read cache for document content. A cached
// body is served only while the file's size and modification time still
// match what was recorded when it was read.
type Vault struct {
	Provider
	cache *lru.Cache[string, cachedContent]
}

type cachedContent struct {
	size    int64
	modTime time.Time
	text    string
}

// NewVault creates a caching vault over p. A non-positive size selects
// DefaultContentCacheSize.
func NewVault(p Provider, cacheSize int) *Vault {
	if cacheSize <= 0 {
		cacheSize = DefaultContentCacheSize
	}
	cache, _ := lru.New[string, cachedContent](cacheSize)
	return &Vault{Provider: p, cache: cache}
}

// Documents lists every Markdown document in the vault.
func (v *Vault) Documents(ctx context.Context) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.List("")
}

// ReadContent returns the text of a document, from cache when still fresh.
func (v *Vault) ReadContent(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := v.Stat(path)
	if err != nil {
		v.cache.Remove(path)
		return "", err
	}
	if c, ok := v.cache.Get(path); ok && c.size == doc.Size && c.modTime.Equal(doc.UpdatedAt) {
		return c.text, nil
	}
	data, err := v.Read(path)
	if err != nil {
		return "", err
	}
	text := string(data)
	v.cache.Add(path, cachedContent{size: doc.Size, modTime: doc.UpdatedAt, text: text})
	return text, nil
}

// Frontmatter returns the parsed frontmatter of a document, or nil when the
// document has none.
func (v *Vault) Frontmatter(ctx context.Context, path string) (map[string]interface{}, error) {
	text, err := v.ReadContent(ctx, path)
	if err != nil {
		return nil, err
	}
	return parser.Parse([]byte(text)).Frontmatter, nil
}

// Invalidate drops any cached content for path.
func (v *Vault) Invalidate(path string) {
	v.cache.Remove(path)
}

// Cached reports whether path currently has a cache entry.
func (v *Vault) Cached(path string) bool {
	return v.cache.Contains(path)
}
