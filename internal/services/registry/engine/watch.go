package engine

import (
	"context"

	"github.com/louisbranch/gns/internal/services/registry/journal"
	"github.com/louisbranch/gns/internal/services/registry/storage"
)

// Watch delivers every envelope after afterSeq to send in journal order:
// first the stored backlog, then live events as they are applied. It returns
// when ctx ends, send fails, the engine closes, or the watcher falls behind.
func (e *Engine) Watch(ctx context.Context, afterSeq uint64, send func(journal.Envelope) error) error {
	select {
	case <-e.started:
	default:
		return ErrNotStarted
	}

	// Subscribe before reading the backlog so nothing applied in between is
	// missed; duplicates are skipped by seq.
	sub := e.hub.subscribe(e.watchBuffer)
	defer e.hub.unsubscribe(sub)

	cursor := afterSeq
	for {
		page, err := e.store.ListEvents(ctx, storage.ListEventsRequest{AfterSeq: cursor, PageSize: watchBacklogPage})
		if err != nil {
			return err
		}
		for _, env := range page.Events {
			if err := send(env); err != nil {
				return err
			}
			cursor = env.Seq
		}
		if page.NextAfterSeq == 0 {
			break
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-sub.ch:
			if !ok {
				if e.hub.wasDropped(sub) {
					return ErrWatcherLagged
				}
				return ErrClosed
			}
			if env.Seq <= cursor {
				continue
			}
			if err := send(env); err != nil {
				return err
			}
			cursor = env.Seq
		}
	}
}
