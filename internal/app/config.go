package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/audience-backend/internal/clients/redis"
	"github.com/yungbote/audience-backend/internal/data/db"
	"github.com/yungbote/audience-backend/internal/jobs/worker"
	"github.com/yungbote/audience-backend/internal/modules/audience/summary"
	"github.com/yungbote/audience-backend/internal/observability"
	"github.com/yungbote/audience-backend/internal/platform/clickhouse"
	"github.com/yungbote/audience-backend/internal/platform/envutil"
	"github.com/yungbote/audience-backend/internal/temporalx"
)

const serviceName = "audience-api"

type Config struct {
	Env         string
	LogMode     string
	HTTPAddr    string
	ServiceName string

	JWTSecret      string
	JWTIssuer      string
	AllowedOrigins []string

	GenerationProvider string
	GenerationTimeout  time.Duration
	ExecutionTimeout   time.Duration
	QueryTable         string
	QueryRowLimit      int
	SummaryTopK        int

	RoundSweepCron  string
	RoundStaleAfter time.Duration

	MetricsEnabled       bool
	StatusCollectorEvery time.Duration

	DB         db.Config
	ClickHouse clickhouse.Config
	Redis      redis.Config
	Temporal   temporalx.Config
	Worker     worker.Config
	Otel       observability.OtelConfig
}

func LoadConfig() Config {
	addr := envutil.String("HTTP_ADDR", "")
	if addr == "" {
		addr = ":" + envutil.String("PORT", "8080")
	}
	return Config{
		Env:         envutil.String("APP_ENV", "development"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		HTTPAddr:    addr,
		ServiceName: envutil.String("OTEL_SERVICE_NAME", serviceName),

		JWTSecret:      envutil.String("JWT_SECRET", ""),
		JWTIssuer:      envutil.String("JWT_ISSUER", ""),
		AllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),

		GenerationProvider: envutil.String("GENERATION_PROVIDER", "openai"),
		GenerationTimeout:  envutil.Seconds("GENERATION_TIMEOUT_SECONDS", 120),
		ExecutionTimeout:   envutil.Seconds("EXECUTION_TIMEOUT_SECONDS", 300),
		QueryTable:         envutil.String("CLICKHOUSE_TABLE", ""),
		QueryRowLimit:      envutil.Int("QUERY_ROW_LIMIT", 0),
		SummaryTopK:        envutil.Int("SUMMARY_TOP_K", summary.DefaultTopK),

		RoundSweepCron:  envutil.String("ROUND_SWEEP_CRON", "@every 1m"),
		RoundStaleAfter: envutil.Seconds("ROUND_STALE_AFTER_SECONDS", 900),

		MetricsEnabled:       observability.Enabled(),
		StatusCollectorEvery: envutil.Seconds("METRICS_STATUS_INTERVAL_SECONDS", 30),

		DB:         db.LoadConfig(),
		ClickHouse: clickhouse.LoadConfig(),
		Redis:      redis.LoadConfig(),
		Temporal:   temporalx.LoadConfig(),
		Worker:     worker.LoadConfig(),
		Otel:       observability.LoadOtelConfig(serviceName),
	}
}

// Validate rejects settings the process cannot serve requests without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}
	if c.GenerationTimeout <= 0 || c.ExecutionTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT_SECONDS and EXECUTION_TIMEOUT_SECONDS must be positive")
	}
	if c.SummaryTopK < 1 {
		return fmt.Errorf("SUMMARY_TOP_K must be at least 1")
	}
	if c.RoundStaleAfter <= c.GenerationTimeout+c.ExecutionTimeout {
		return fmt.Errorf("ROUND_STALE_AFTER_SECONDS (%s) must exceed generation plus execution timeouts",
			c.RoundStaleAfter)
	}
	return nil
}
