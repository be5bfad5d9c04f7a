package worker

import (
	"context"

	"github.com/rs/zerolog"
)

// worker drains the shared task channel until its context is cancelled.
type worker struct {
	id    int
	tasks <-chan taskItem
	log   zerolog.Logger
}

func newWorker(id int, tasks <-chan taskItem, log zerolog.Logger) *worker {
	return &worker{
		id:    id,
		tasks: tasks,
		log:   log.With().Int("worker_id", id).Logger(),
	}
}

func (w *worker) run(ctx context.Context) {
	w.log.Debug().Msg("worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Debug().Msg("worker stopped")
			return
		case item, ok := <-w.tasks:
			if !ok {
				return
			}
			err := item.task(ctx)
			item.resultCh <- err
			if err != nil {
				w.log.Error().Err(err).Msg("task failed")
			}
		}
	}
}
