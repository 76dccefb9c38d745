package app

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/audience-backend/internal/clients/redis"
	"github.com/yungbote/audience-backend/internal/platform/clickhouse"
	"github.com/yungbote/audience-backend/internal/platform/logger"
	"github.com/yungbote/audience-backend/internal/services"
	"github.com/yungbote/audience-backend/internal/temporalx"
)

type Clients struct {
	Generator  services.TextGenerator
	ClickHouse *clickhouse.Client
	EventBus   redis.EventBus
	Temporal   temporalsdkclient.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	gen, err := services.NewTextGenerator(ctx, log, cfg.GenerationProvider)
	if err != nil {
		return Clients{}, fmt.Errorf("init generation client: %w", err)
	}
	c.Generator = gen

	ch, err := clickhouse.NewClient(ctx, log, cfg.ClickHouse)
	if err != nil {
		return Clients{}, fmt.Errorf("init clickhouse client: %w", err)
	}
	c.ClickHouse = ch

	// Redis is optional; without it job events are only logged.
	if cfg.Redis.Enabled() {
		bus, err := redis.NewEventBus(ctx, log, cfg.Redis)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init redis event bus: %w", err)
		}
		c.EventBus = bus
	}

	tc, err := temporalx.NewClient(ctx, log, cfg.Temporal)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	c.Temporal = tc

	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.EventBus != nil {
		_ = c.EventBus.Close()
	}
	if c.ClickHouse != nil {
		_ = c.ClickHouse.Close()
	}
}
