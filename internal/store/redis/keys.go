package redis

import "strings"

const (
	// DefaultKeyPrefix namespaces every key written by the store.
	DefaultKeyPrefix = "bookboard:"

	docSegment        = "doc:"
	collectionSegment = "col:"
)

// DocKey returns the key holding the JSON document at path.
func (s *Store) DocKey(path string) string {
	return s.prefix + docSegment + path
}

// CollectionKey returns the key of the set indexing the ids stored in
// collection.
func (s *Store) CollectionKey(collection string) string {
	return s.prefix + collectionSegment + collection
}

// ExtractPath extracts the document path from a key built by DocKey.
func (s *Store) ExtractPath(key string) (string, bool) {
	p := s.prefix + docSegment
	if len(key) <= len(p) || !strings.HasPrefix(key, p) {
		return "", false
	}
	return key[len(p):], true
}
