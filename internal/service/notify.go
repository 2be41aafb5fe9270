package service

import (
	"context"
	"log"
	"time"

	"github.com/panjf2000/ants/v2"
)

// ContextCacheInvalidator drops downstream context caches for a project
type ContextCacheInvalidator interface {
	Invalidate(ctx context.Context, projectID string) error
}

// GraphNotifier emits knowledge-graph update events
type GraphNotifier interface {
	KnowledgeAdded(ctx context.Context, projectID, itemID string) error
}

// notifyTimeout bounds each detached post-commit task.
const notifyTimeout = 10 * time.Second

// Notifier runs post-commit hooks on a shared worker pool so they never
// block an ingestion response. Hook failures are logged and swallowed: a
// committed admission is final.
type Notifier struct {
	pool     *ants.Pool
	projects ProjectRepositoryInterface
	cache    ContextCacheInvalidator
	graph    GraphNotifier
}

// NewNotifier creates a Notifier with a worker pool of the given size.
// Cache and graph collaborators are optional.
func NewNotifier(poolSize int, projects ProjectRepositoryInterface, cache ContextCacheInvalidator, graph GraphNotifier) (*Notifier, error) {
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	return &Notifier{
		pool:     pool,
		projects: projects,
		cache:    cache,
		graph:    graph,
	}, nil
}

// IngestionCommitted fires the post-commit hooks for a freshly admitted
// item: touch the project's last-accessed timestamp, invalidate the
// downstream context cache and emit a graph update event.
func (n *Notifier) IngestionCommitted(projectID, itemID string) {
	n.submit(func(ctx context.Context) {
		if err := n.projects.TouchLastAccessed(ctx, projectID); err != nil {
			log.Printf("notify: failed to touch project %s: %v", projectID, err)
		}
	})

	if n.cache != nil {
		n.submit(func(ctx context.Context) {
			if err := n.cache.Invalidate(ctx, projectID); err != nil {
				log.Printf("notify: failed to invalidate context cache for project %s: %v", projectID, err)
			}
		})
	}

	if n.graph != nil {
		n.submit(func(ctx context.Context) {
			if err := n.graph.KnowledgeAdded(ctx, projectID, itemID); err != nil {
				log.Printf("notify: failed to emit graph event for item %s: %v", itemID, err)
			}
		})
	}
}

func (n *Notifier) submit(task func(ctx context.Context)) {
	err := n.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		task(ctx)
	})
	if err != nil {
		log.Printf("notify: failed to submit task: %v", err)
	}
}

// Release drains the worker pool. Call on shutdown.
func (n *Notifier) Release() {
	n.pool.Release()
}
