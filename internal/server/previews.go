package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/watermark-tools-mcp/internal/watermark"
)

// maxPreviews bounds the number of rendered results kept in memory.
const maxPreviews = 32

// preview is a rendered watermark kept for follow-up save, sample and verify
// calls.
type preview struct {
	ID      uuid.UUID
	Source  string
	Result  *watermark.Result
	Created time.Time
}

// previewStore holds the most recent previews, evicting the oldest first.
type previewStore struct {
	mu    sync.Mutex
	limit int
	items map[uuid.UUID]*preview
	order []uuid.UUID
}

func newPreviewStore(limit int) *previewStore {
	return &previewStore{
		limit: limit,
		items: make(map[uuid.UUID]*preview),
	}
}

// Put stores result and returns its new id.
func (ps *previewStore) Put(source string, result *watermark.Result) *preview {
	p := &preview{
		ID:      uuid.New(),
		Source:  source,
		Result:  result,
		Created: time.Now(),
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.items[p.ID] = p
	ps.order = append(ps.order, p.ID)
	for len(ps.order) > ps.limit {
		delete(ps.items, ps.order[0])
		ps.order = ps.order[1:]
	}
	return p
}

// Get looks up a preview by its string id.
func (ps *previewStore) Get(id string) (*preview, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid preview_id %q: %w", id, err)
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	p, ok := ps.items[key]
	if !ok {
		return nil, fmt.Errorf("preview %s not found or expired", id)
	}
	return p, nil
}

// Len returns the number of stored previews.
func (ps *previewStore) Len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.items)
}
