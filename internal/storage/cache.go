package storage

import "github.com/rs/zerolog/log"

// documentCache memoizes parsed documents by canonical absolute path.
// It is in-memory only and lives exactly as long as its Store: no
// file-watching, no expiry, no persistence.
type documentCache struct {
	docs   map[string]*RawDocument
	hits   int
	misses int
}

func newDocumentCache() *documentCache {
	return &documentCache{docs: make(map[string]*RawDocument)}
}

func (c *documentCache) get(path string) (*RawDocument, bool) {
	doc, ok := c.docs[path]
	if ok {
		c.hits++
		log.Debug().Str("path", path).Int("hits", c.hits).Msg("document cache hit")
	} else {
		c.misses++
	}
	return doc, ok
}

func (c *documentCache) put(path string, doc *RawDocument) {
	c.docs[path] = doc
}
