package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	genai "google.golang.org/genai"

	"github.com/yungbote/audience-backend/internal/platform/envutil"
	"github.com/yungbote/audience-backend/internal/platform/httpx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

type Config struct {
	APIKey          string
	Model           string
	MaxOutputTokens int
	MaxRetries      int
	RetryBackoff    time.Duration
}

// LoadConfig reads GEMINI_* variables; GOOGLE_API_KEY is accepted as the key fallback.
func LoadConfig() Config {
	key := envutil.String("GEMINI_API_KEY", "")
	if key == "" {
		key = envutil.String("GOOGLE_API_KEY", "")
	}
	return Config{
		APIKey:          key,
		Model:           envutil.String("GEMINI_MODEL", "gemini-2.5-flash"),
		MaxOutputTokens: envutil.Int("GEMINI_MAX_OUTPUT_TOKENS", 1500),
		MaxRetries:      envutil.Int("GEMINI_MAX_RETRIES", 3),
		RetryBackoff:    time.Second,
	}
}

// outputTokens is the token budget as the API expects it, clamped to int32. Zero leaves the
// model default in place.
func (c Config) outputTokens() int32 {
	switch {
	case c.MaxOutputTokens <= 0:
		return 0
	case c.MaxOutputTokens > math.MaxInt32:
		return math.MaxInt32
	}
	return int32(c.MaxOutputTokens)
}

// Client wraps the official genai client for single-turn text generation.
type Client struct {
	log *logger.Logger
	cli *genai.Client
	cfg Config
}

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Client{
		log: log.With("client", "GeminiClient", "model", cfg.Model),
		cli: cli,
		cfg: cfg,
	}, nil
}

func (c *Client) Model() string { return c.cfg.Model }

// GenerateText sends the system text as system instruction and the user text as the only turn.
func (c *Client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	ctx, span := otel.Tracer("gemini").Start(ctx, "gemini.generate_content")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.cfg.Model))

	conf := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   c.cfg.outputTokens(),
	}

	backoff := httpx.Backoff{Initial: c.cfg.RetryBackoff, Max: 30 * time.Second}
	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := c.cli.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(user), conf)
		if err == nil {
			if text := resp.Text(); strings.TrimSpace(text) != "" {
				return text, nil
			}
			return "", errors.New("gemini returned no text")
		}
		lastErr = err
		if attempt >= c.cfg.MaxRetries || ctx.Err() != nil {
			break
		}
		wait := backoff.Delay(attempt, 0)
		c.log.Warn("Gemini request retrying", "attempt", attempt+1, "max_retries", c.cfg.MaxRetries, "wait", wait.String(), "error", err.Error())
		if httpx.Sleep(ctx, wait) != nil {
			break
		}
	}
	span.RecordError(lastErr)
	return "", fmt.Errorf("gemini generate: %w", lastErr)
}
