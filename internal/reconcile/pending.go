package reconcile

import "sync"

// PendingDeletion is a persisted record queued for removal at the next batch save.
type PendingDeletion struct {
	ID   string `json:"id"`
	Slot string `json:"slot"`
}

// DeletionQueue holds pending deletions in the order they were made.
// Queuing the same id twice keeps the first entry.
type DeletionQueue struct {
	mu    sync.Mutex
	items []PendingDeletion
}

// Add queues d and reports whether it was not already queued.
func (q *DeletionQueue) Add(d PendingDeletion) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, it := range q.items {
		if it.ID == d.ID {
			return false
		}
	}
	q.items = append(q.items, d)
	return true
}

// Remove drops the entry for id.
func (q *DeletionQueue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, it := range q.items {
		if it.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// Items returns a copy of the queue.
func (q *DeletionQueue) Items() []PendingDeletion {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]PendingDeletion, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of queued deletions.
func (q *DeletionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear empties the queue.
func (q *DeletionQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}
