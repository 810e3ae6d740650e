package imaging

import (
	"sync"

	"github.com/google/uuid"
)

// Item is one staged photo, addressable for removal before submission.
type Item struct {
	ID   string
	Data []byte
	MIME string
}

// Batch accumulates photos in capture order until the user submits.
// Safe for concurrent use; capture callbacks and UI actions race.
type Batch struct {
	mu    sync.Mutex
	items []Item
}

func NewBatch() *Batch {
	return &Batch{}
}

// Add stages a normalized payload and returns its item for later removal.
func (b *Batch) Add(data []byte, mime string) Item {
	it := Item{ID: uuid.NewString(), Data: data, MIME: mime}
	b.mu.Lock()
	b.items = append(b.items, it)
	b.mu.Unlock()
	return it
}

// Remove drops the item with the given id, keeping the order of the rest.
func (b *Batch) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, it := range b.items {
		if it.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns a snapshot in capture order.
func (b *Batch) Items() []Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Item(nil), b.items...)
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Batch) Clear() {
	b.mu.Lock()
	b.items = nil
	b.mu.Unlock()
}
