package cacheinfra

import "github.com/puzpuzpuz/xsync/v3"

// MapShadow is an unbounded shadow cache. Entries stay until deleted.
type MapShadow struct {
	values *xsync.MapOf[string, any]
}

// NewMapShadow creates an empty MapShadow.
func NewMapShadow() *MapShadow {
	return &MapShadow{values: xsync.NewMapOf[string, any]()}
}

func (s *MapShadow) Load(key string) (any, bool) {
	return s.values.Load(key)
}

func (s *MapShadow) Store(key string, value any) {
	s.values.Store(key, value)
}

func (s *MapShadow) Delete(key string) {
	s.values.Delete(key)
}

func (s *MapShadow) Len() int {
	return s.values.Size()
}
