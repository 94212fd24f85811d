// BFS traversal of a page's descendants, with a dedup queue so shared
// children are visited once.
package confluence

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/confpipe/core"
)

// Queue is a BFS queue with page-ID deduplication.
type Queue struct {
	items   []string
	visited map[string]bool
	idx     int // current read position
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		visited: make(map[string]bool),
	}
}

// Add enqueues a page ID if it hasn't been seen before.
func (q *Queue) Add(id string) {
	if q.visited[id] {
		return
	}
	q.visited[id] = true
	q.items = append(q.items, id)
}

// HasNext returns true if there are unprocessed IDs.
func (q *Queue) HasNext() bool {
	return q.idx < len(q.items)
}

// Next returns the next unprocessed ID and advances the pointer.
func (q *Queue) Next() string {
	id := q.items[q.idx]
	q.idx++
	return id
}

// All returns all discovered IDs in BFS order.
func (q *Queue) All() []string {
	return q.items
}

// Descendants returns the root page ID followed by all its descendants in
// BFS order. With includeChildren false only the root is returned.
func Descendants(ctx context.Context, src core.Source, rootID string, includeChildren bool) ([]string, error) {
	queue := NewQueue()
	queue.Add(rootID)
	if !includeChildren {
		return queue.All(), nil
	}

	for queue.HasNext() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := queue.Next()
		children, err := src.ChildIDs(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("traversing %s: %w", current, err)
		}
		for _, child := range children {
			queue.Add(child)
		}
	}

	return queue.All(), nil
}
