package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/audience-backend/internal/platform/envutil"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

// Event is one job lifecycle notification addressed to a single user.
type Event struct {
	UserID string         `json:"user_id"`
	Event  string         `json:"event"`
	Data   map[string]any `json:"data"`
	At     time.Time      `json:"at"`
}

// EventBus fans job events out to whatever pushes them to browsers.
type EventBus interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type Config struct {
	// URL is a redis:// or rediss:// URL. When set it takes precedence over Addr, Password and DB.
	URL      string
	Addr     string
	Password string
	DB       int
	// Channel is the prefix; events go to "<Channel>:<user id>".
	Channel string
}

// LoadConfig reads REDIS_URL, REDIS_ADDR, REDIS_PASSWORD, REDIS_DB and REDIS_CHANNEL.
func LoadConfig() Config {
	return Config{
		URL:      envutil.String("REDIS_URL", ""),
		Addr:     envutil.String("REDIS_ADDR", ""),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
		Channel:  envutil.String("REDIS_CHANNEL", "audience-events"),
	}
}

// Enabled reports whether a Redis endpoint is configured.
func (c Config) Enabled() bool { return c.URL != "" || c.Addr != "" }

func (c Config) options() (*goredis.Options, error) {
	if c.URL != "" {
		opts, err := goredis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("REDIS_URL: %w", err)
		}
		return opts, nil
	}
	if c.Addr == "" {
		return nil, errors.New("REDIS_URL or REDIS_ADDR required")
	}
	return &goredis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}, nil
}

// ChannelFor is the pub/sub channel carrying userID's events.
func (c Config) ChannelFor(userID string) string {
	prefix := c.Channel
	if prefix == "" {
		prefix = "audience-events"
	}
	return prefix + ":" + userID
}

type eventBus struct {
	log *logger.Logger
	rdb *goredis.Client
	cfg Config
}

// NewEventBus connects and pings Redis before returning.
func NewEventBus(ctx context.Context, log *logger.Logger, cfg Config) (EventBus, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	log.Info("Connected to Redis", "addr", opts.Addr, "db", opts.DB)
	return &eventBus{log: log.With("client", "RedisEventBus"), rdb: rdb, cfg: cfg}, nil
}

func (b *eventBus) Publish(ctx context.Context, ev Event) error {
	raw, err := encode(ev, time.Now())
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.cfg.ChannelFor(ev.UserID), raw).Err()
}

func (b *eventBus) Close() error { return b.rdb.Close() }

// encode stamps ev with now when it has no timestamp and marshals it.
func encode(ev Event, now time.Time) ([]byte, error) {
	if ev.UserID == "" || ev.Event == "" {
		return nil, errors.New("redis event needs a user id and an event name")
	}
	if ev.At.IsZero() {
		ev.At = now.UTC()
	}
	return json.Marshal(ev)
}
