package transport

import "sync"

// CursorMap remembers GraphQL continuation tokens per search, because
// the GraphQL endpoint addresses pages by cursor rather than offset.
// The cursor for page k only exists once page k-1 has been fetched in
// this process; asking for a page whose predecessor was never fetched
// simply yields an unpositioned (first-page) request. Process-lifetime
// state, never persisted.
type CursorMap struct {
	mu      sync.Mutex
	cursors map[string]map[int]string
}

// NewCursorMap returns an empty cursor map.
func NewCursorMap() *CursorMap {
	return &CursorMap{cursors: make(map[string]map[int]string)}
}

// After returns the continuation token positioning a request for the
// given page: the cursor recorded when the previous page was fetched.
// Empty for page 1 or when the previous page has not been seen.
func (m *CursorMap) After(prefix string, page int) string {
	if page <= 1 {
		return ""
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	pages := m.cursors[prefix]
	if pages == nil {
		return ""
	}
	return pages[page-1]
}

// Record stores the end cursor returned for the page just fetched.
func (m *CursorMap) Record(prefix string, page int, endCursor string) {
	if endCursor == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	pages := m.cursors[prefix]
	if pages == nil {
		pages = make(map[int]string)
		m.cursors[prefix] = pages
	}
	pages[page] = endCursor
}
