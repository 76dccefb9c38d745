package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/audience-backend/internal/modules/audience/prompts"
	"github.com/yungbote/audience-backend/internal/observability"
	"github.com/yungbote/audience-backend/internal/platform/apierr"
	"github.com/yungbote/audience-backend/internal/platform/gemini"
	"github.com/yungbote/audience-backend/internal/platform/logger"
	"github.com/yungbote/audience-backend/internal/platform/openai"
	"github.com/yungbote/audience-backend/internal/platform/promptstyle"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ErrEmptyCompletion means the backend answered but nothing usable was left after cleaning.
var ErrEmptyCompletion = errors.New("empty completion")

// TextGenerator is any synchronous text-completion backend.
type TextGenerator interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	Model() string
}

// NewTextGenerator builds the backend named by provider ("openai" or "gemini").
func NewTextGenerator(ctx context.Context, log *logger.Logger, provider string) (TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderOpenAI:
		c, err := openai.NewClient(log, openai.LoadConfig())
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderGemini:
		c, err := gemini.NewClient(ctx, log, gemini.LoadConfig())
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown GENERATION_PROVIDER %q", provider)
	}
}

type GenerationService interface {
	// Complete turns a prompt into a cleaned query string.
	Complete(ctx context.Context, p prompts.Prompt) (string, error)
	Model() string
}

type generationService struct {
	log     *logger.Logger
	gen     TextGenerator
	timeout time.Duration
}

func NewGenerationService(baseLog *logger.Logger, gen TextGenerator, timeout time.Duration) GenerationService {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &generationService{
		log:     baseLog.With("service", "GenerationService"),
		gen:     gen,
		timeout: timeout,
	}
}

func (s *generationService) Model() string {
	if s.gen == nil {
		return ""
	}
	return s.gen.Model()
}

func (s *generationService) Complete(ctx context.Context, p prompts.Prompt) (query string, err error) {
	if s.gen == nil {
		return "", fmt.Errorf("%w: no generation backend configured", apierr.ErrGenerationUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := otel.Tracer("audience-backend/services").Start(ctx, "generation.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("prompt.name", p.Name),
		attribute.Int("prompt.version", p.Version),
		attribute.String("generation.model", s.gen.Model()),
	)

	start := time.Now()
	defer func() { observability.Current().ObserveGeneration(s.gen.Model(), err, time.Since(start)) }()
	raw, err := s.gen.GenerateText(ctx, promptstyle.ApplySystem(p.System, "sql"), p.User)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: timed out after %s", apierr.ErrGenerationUnavailable, s.timeout)
		}
		return "", fmt.Errorf("%w: %v", apierr.ErrGenerationUnavailable, err)
	}
	query = CleanCompletion(raw)
	if query == "" {
		span.SetStatus(codes.Error, ErrEmptyCompletion.Error())
		return "", fmt.Errorf("%w: %w", apierr.ErrGenerationUnavailable, ErrEmptyCompletion)
	}
	s.log.Info("Query generated",
		"prompt", p.Name,
		"prompt_version", p.Version,
		"model", s.gen.Model(),
		"chars", len(query),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return query, nil
}

// fenceTags are the language tags models put on the opening fence of a one-line reply.
var fenceTags = map[string]bool{
	"sql": true, "clickhouse": true, "postgresql": true, "postgres": true, "mysql": true, "text": true, "plaintext": true,
}

// CleanCompletion trims raw model output and strips a surrounding markdown fence, including an
// optional language tag on the opening fence.
func CleanCompletion(raw string) string {
	s := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			s = rest[nl+1:]
		} else {
			s = strings.TrimSpace(rest)
			if tag, body, found := strings.Cut(s, " "); found && fenceTags[strings.ToLower(tag)] {
				s = body
			}
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
