package worker // import "jobimporter.app/internal/worker"

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"jobimporter.app/internal/logging"
	"jobimporter.app/internal/queue"
)

// TaskSource is the queue surface the pool consumes.
type TaskSource interface {
	Next(ctx context.Context) (*queue.Task, error)
	Retry(ctx context.Context, t queue.Task) error
}

// NewPool creates a pool of n background workers draining the task queue.
func NewPool(ctx context.Context, source TaskSource, importer *Importer,
	n int,
) *Pool {
	self := &Pool{ctx: ctx, source: source, importer: importer}
	self.g.SetLimit(n)
	return self
}

// Pool handles a pool of workers.
type Pool struct {
	ctx      context.Context
	source   TaskSource
	importer *Importer
	g        errgroup.Group
}

// Run dispatches queued tasks to the workers until the pool context is
// done, then waits for in-flight tasks.
func (self *Pool) Run() error {
	log := logging.FromContext(self.ctx)
	log.Info("worker pool started")

	for self.ctx.Err() == nil {
		task, err := self.source.Next(self.ctx)
		if err != nil {
			if self.ctx.Err() != nil {
				break
			}
			log.Error("worker: failed pop task", slog.Any("error", err))
			self.sleep(time.Second)
			continue
		}
		if task == nil {
			continue
		}
		self.g.Go(func() error {
			self.process(*task)
			return nil
		})
	}

	_ = self.g.Wait()
	log.Info("worker pool stopped")
	return nil
}

func (self *Pool) process(task queue.Task) {
	log := logging.FromContext(self.ctx).With(
		slog.String("feed_url", task.FeedURL), slog.Int("attempt", task.Attempt))

	defer func() {
		if r := recover(); r != nil {
			log.Error("worker: task panicked", slog.Any("panic", r))
			self.retry(task)
		}
	}()

	if _, err := self.importer.Run(self.ctx, task.FeedURL, task.Attempt); err != nil {
		log.Warn("worker: task interrupted, scheduling retry",
			slog.Any("error", err))
		self.retry(task)
	}
}

// retry runs on its own context: the pool context is usually already
// canceled when a task needs requeueing.
func (self *Pool) retry(task queue.Task) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = logging.WithLogger(ctx, logging.FromContext(self.ctx))

	if err := self.source.Retry(ctx, task); err != nil {
		logging.FromContext(ctx).Error("worker: failed schedule task retry",
			slog.String("feed_url", task.FeedURL), slog.Any("error", err))
	}
}

func (self *Pool) sleep(d time.Duration) {
	select {
	case <-self.ctx.Done():
	case <-time.After(d):
	}
}
