package cli // import "jobimporter.app/internal/cli"

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"jobimporter.app/internal/config"
	"jobimporter.app/internal/metric"
	"jobimporter.app/internal/queue"
	"jobimporter.app/internal/reader/fetcher"
	"jobimporter.app/internal/scheduler"
	"jobimporter.app/internal/storage"
	"jobimporter.app/internal/worker"
)

func NewDaemon() *Daemon { return &Daemon{} }

type Daemon struct {
	store         *storage.Storage
	rdb           *redis.Client
	queue         *queue.Queue
	pool          *worker.Pool
	scheduler     *scheduler.Scheduler
	metricsServer *http.Server
	g             *errgroup.Group
}

func (self *Daemon) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, os.Interrupt)
	defer cancel()

	slog.Info("Starting daemon...")
	defer self.close()

	if err := self.configure(ctx); err != nil {
		return err
	}
	if err := self.start(ctx); err != nil {
		return err
	}
	return self.wait(ctx)
}

func (self *Daemon) close() {
	if self.rdb != nil {
		self.rdb.Close()
	}
	if self.store != nil {
		self.store.Close()
	}
}

func (self *Daemon) configure(ctx context.Context) error {
	store, err := makeStorage(ctx)
	if err != nil {
		return err
	}
	self.store = store

	if config.Opts.RunMigrations() {
		if err := self.store.Migrate(ctx); err != nil {
			return err
		}
	}
	if err := self.store.SchemaUpToDate(ctx); err != nil {
		return err
	}

	rdb, err := queue.NewRedisClient(ctx, config.Opts.RedisAddr())
	if err != nil {
		return err
	}
	self.rdb = rdb
	self.queue = queue.New(rdb,
		config.Opts.ImportMaxAttempts(), config.Opts.ImportRetryDelay())
	return nil
}

func (self *Daemon) start(ctx context.Context) error {
	self.g, ctx = errgroup.WithContext(ctx)

	feeds := fetcher.New(config.Opts.HTTPClientTimeout(),
		config.Opts.HTTPClientMaxBodySize())
	importBody := worker.NewImporter(feeds, self.store)
	self.pool = worker.NewPool(ctx, self.queue, importBody,
		config.Opts.Concurrency())
	self.g.Go(self.pool.Run)

	runCtx := ctx
	self.g.Go(func() error { return self.queue.Run(runCtx) })

	if config.Opts.HasSchedulerService() {
		sched, err := scheduler.New(self.queue,
			config.Opts.ImportCronSchedule(), config.Opts.FeedURLs())
		if err != nil {
			return err
		}
		self.scheduler = sched
		sched.Start()
	}

	if config.Opts.HasMetricsCollector() {
		metric.RegisterMetrics()
		self.metricsServer = metric.StartServer(
			config.Opts.MetricsListenAddr(), self.store, redisPinger{self.rdb})
	}
	return nil
}

type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func (self *Daemon) wait(ctx context.Context) error {
	<-ctx.Done()
	slog.Info("Shutting down the process gracefully...")

	if self.scheduler != nil {
		self.scheduler.Stop()
	}
	if self.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			5*time.Second)
		defer cancel()
		if err := self.metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed shutdown metrics server", slog.Any("error", err))
		}
	}

	if err := self.g.Wait(); err != nil {
		slog.Error("process stopped with error", slog.Any("error", err))
		return fmt.Errorf("process stopped with error: %w", err)
	}
	slog.Info("Process gracefully stopped")
	return nil
}
