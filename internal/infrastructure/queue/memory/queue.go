// Package memory is an in-process ingest queue used when no broker is configured.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

const DefaultCapacity = 256

type Queue struct {
	events  chan string
	workers int
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

func New(capacity, workers int, logger *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		events:  make(chan string, capacity),
		workers: workers,
		logger:  logger,
	}
}

// PublishDocumentIngested enqueues the id, failing with ErrTemporary when the buffer
// is full so callers can shed load.
func (q *Queue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return domain.WrapError(domain.ErrTemporary, "memory publish", fmt.Errorf("queue closed"))
	}

	select {
	case q.events <- documentID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return domain.WrapError(domain.ErrTemporary, "memory publish", fmt.Errorf("queue full (%d)", cap(q.events)))
	}
}

// SubscribeDocumentIngested runs the configured number of workers until ctx is
// cancelled. Events still buffered at that point are dropped; their documents stay
// Processing and are reclaimed by retention.
func (q *Queue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-q.events:
					if err := handler(ctx, id); err != nil {
						q.logger.Error("ingest_handler_failed", "document_id", id, "error", err)
					}
				}
			}
		}()
	}
	wg.Wait()

	q.mu.Lock()
	q.closed = true
	dropped := len(q.events)
	q.mu.Unlock()
	if dropped > 0 {
		q.logger.Warn("ingest_events_dropped", "count", dropped)
	}
	return nil
}

func (q *Queue) Len() int {
	return len(q.events)
}
