package config // import "jobimporter.app/internal/config"

import (
	"fmt"
	"strings"
	"time"
)

const defaultDatabaseURL = "user=postgres password=postgres dbname=job_importer sslmode=disable"

// defaultFeedURLs is used when FEED_URLS is unset.
var defaultFeedURLs = []string{
	"https://jobicy.com/?feed=job_feed",
	"https://jobicy.com/?feed=job_feed&job_categories=smm&job_types=full-time",
	"https://jobicy.com/?feed=job_feed&job_categories=data-science",
	"https://www.higheredjobs.com/rss/articleFeed.cfm",
}

// Options contains parsed configuration options.
type Options struct {
	env EnvOptions
}

type EnvOptions struct {
	LogFile     string `env:"LOG_FILE" validate:"required"`
	LogDateTime bool   `env:"LOG_DATE_TIME"`
	LogFormat   string `env:"LOG_FORMAT" validate:"required,oneof=json text"`
	LogLevel    string `env:"LOG_LEVEL" validate:"required,oneof=debug info warning error"`

	DatabaseURL                string `env:"DATABASE_URL" validate:"required"`
	DatabaseMaxConns           int    `env:"DATABASE_MAX_CONNS" validate:"min=1"`
	DatabaseMinConns           int    `env:"DATABASE_MIN_CONNS" validate:"min=0"`
	DatabaseConnectionLifetime int    `env:"DATABASE_CONNECTION_LIFETIME" validate:"gt=0"`
	RunMigrations              bool   `env:"RUN_MIGRATIONS"`

	RedisHost string `env:"REDIS_HOST" validate:"required"`
	RedisPort int    `env:"REDIS_PORT" validate:"min=1,max=65535"`

	Concurrency        int           `env:"CONCURRENCY" validate:"min=1"`
	ImportCronSchedule string        `env:"IMPORT_CRON_SCHEDULE" validate:"required"`
	FeedURLs           []string      `env:"FEED_URLS"`
	ImportMaxAttempts  int           `env:"IMPORT_MAX_ATTEMPTS" validate:"min=1"`
	ImportRetryDelay   time.Duration `env:"IMPORT_RETRY_DELAY" validate:"gt=0"`
	DisableScheduler   bool          `env:"DISABLE_SCHEDULER_SERVICE"`

	HttpClientTimeout     int   `env:"HTTP_CLIENT_TIMEOUT" validate:"min=1"`
	HttpClientMaxBodySize int64 `env:"HTTP_CLIENT_MAX_BODY_SIZE" validate:"min=1"`

	MetricsCollector  bool   `env:"METRICS_COLLECTOR"`
	MetricsListenAddr string `env:"METRICS_LISTEN_ADDR" validate:"required,hostname_port"`
}

// NewOptions returns Options with default values.
func NewOptions() *Options {
	return &Options{
		env: EnvOptions{
			LogFile:   "stderr",
			LogFormat: "text",
			LogLevel:  "info",

			DatabaseURL:                defaultDatabaseURL,
			DatabaseMaxConns:           4,
			DatabaseMinConns:           0,
			DatabaseConnectionLifetime: 60,

			RedisHost: "127.0.0.1",
			RedisPort: 6379,

			Concurrency:        4,
			ImportCronSchedule: "0 * * * *",
			FeedURLs:           defaultFeedURLs,
			ImportMaxAttempts:  3,
			ImportRetryDelay:   time.Second,

			HttpClientTimeout:     20,
			HttpClientMaxBodySize: 15,

			MetricsListenAddr: "127.0.0.1:9090",
		},
	}
}

func (o *Options) init() error {
	if err := o.validate(); err != nil {
		return err
	}

	o.env.HttpClientMaxBodySize *= 1024 * 1024

	urls := make([]string, 0, len(o.env.FeedURLs))
	for _, u := range o.env.FeedURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	o.env.FeedURLs = urls
	return nil
}

func (o *Options) validate() error {
	if err := Validator().Struct(&o.env); err != nil {
		return fmt.Errorf("config: failed validate: %w", err)
	}
	return nil
}

func (o *Options) LogFile() string { return o.env.LogFile }

func (o *Options) LogDateTime() bool { return o.env.LogDateTime }

func (o *Options) LogFormat() string { return o.env.LogFormat }

func (o *Options) LogLevel() string { return o.env.LogLevel }

func (o *Options) SetLogLevel(level string) { o.env.LogLevel = level }

func (o *Options) IsDefaultDatabaseURL() bool {
	return o.env.DatabaseURL == defaultDatabaseURL
}

func (o *Options) DatabaseURL() string { return o.env.DatabaseURL }

func (o *Options) DatabaseMaxConns() int { return o.env.DatabaseMaxConns }

func (o *Options) DatabaseMinConns() int { return o.env.DatabaseMinConns }

func (o *Options) DatabaseConnectionLifetime() time.Duration {
	return time.Duration(o.env.DatabaseConnectionLifetime) * time.Minute
}

func (o *Options) RunMigrations() bool { return o.env.RunMigrations }

// RedisAddr returns the queue backend endpoint in host:port form.
func (o *Options) RedisAddr() string {
	return fmt.Sprintf("%s:%d", o.env.RedisHost, o.env.RedisPort)
}

// Concurrency is the worker pool size.
func (o *Options) Concurrency() int { return o.env.Concurrency }

func (o *Options) ImportCronSchedule() string { return o.env.ImportCronSchedule }

func (o *Options) FeedURLs() []string { return o.env.FeedURLs }

func (o *Options) ImportMaxAttempts() int { return o.env.ImportMaxAttempts }

func (o *Options) ImportRetryDelay() time.Duration { return o.env.ImportRetryDelay }

func (o *Options) HasSchedulerService() bool { return !o.env.DisableScheduler }

func (o *Options) HTTPClientTimeout() time.Duration {
	return time.Duration(o.env.HttpClientTimeout) * time.Second
}

func (o *Options) HTTPClientMaxBodySize() int64 { return o.env.HttpClientMaxBodySize }

func (o *Options) HasMetricsCollector() bool { return o.env.MetricsCollector }

func (o *Options) MetricsListenAddr() string { return o.env.MetricsListenAddr }
