package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"reflect"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/audience-backend/internal/platform/envutil"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

type Config struct {
	Addr        []string
	Database    string
	Username    string
	Password    string
	Secure      bool
	DialTimeout time.Duration
	MaxOpen     int
}

// LoadConfig reads CLICKHOUSE_* variables.
func LoadConfig() Config {
	return Config{
		Addr:        envutil.List("CLICKHOUSE_ADDR", []string{"localhost:9000"}),
		Database:    envutil.String("CLICKHOUSE_DATABASE", "default"),
		Username:    envutil.String("CLICKHOUSE_USER", "default"),
		Password:    envutil.String("CLICKHOUSE_PASSWORD", ""),
		Secure:      envutil.Bool("CLICKHOUSE_SECURE", false),
		DialTimeout: envutil.Seconds("CLICKHOUSE_DIAL_TIMEOUT_SECONDS", 10),
		MaxOpen:     envutil.Int("CLICKHOUSE_MAX_OPEN_CONNS", 10),
	}
}

// Client runs read-only statements and materialises every row into a column->value map.
type Client struct {
	log  *logger.Logger
	conn driver.Conn
}

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if len(cfg.Addr) == 0 {
		return nil, fmt.Errorf("missing CLICKHOUSE_ADDR")
	}
	opts := &ch.Options{
		Addr: cfg.Addr,
		Auth: ch.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout:  cfg.DialTimeout,
		MaxOpenConns: cfg.MaxOpen,
	}
	if cfg.Secure {
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	log.Info("Connected to ClickHouse", "addr", cfg.Addr, "database", cfg.Database)
	return &Client{log: log.With("client", "ClickHouseClient"), conn: conn}, nil
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Query executes query and reads the full result set. Nullable columns come back as nil or
// their plain value, never as pointers.
func (c *Client) Query(ctx context.Context, query string) ([]map[string]any, error) {
	ctx, span := otel.Tracer("clickhouse").Start(ctx, "clickhouse.query")
	defer span.End()

	rows, err := c.conn.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	columns := rows.Columns()
	colTypes := rows.ColumnTypes()
	out := make([]map[string]any, 0, 256)
	for rows.Next() {
		dest := make([]any, len(colTypes))
		for i, ct := range colTypes {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scan row %d: %w", len(out), err)
		}
		row := make(map[string]any, len(columns))
		for i, name := range columns {
			row[name] = deref(reflect.ValueOf(dest[i]).Elem())
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("clickhouse.rows", len(out)))
	return out, nil
}

func deref(v reflect.Value) any {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}
