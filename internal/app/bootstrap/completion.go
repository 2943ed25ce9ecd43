package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/bizsite-ai-platform/internal/completion"
	appconfig "github.com/wolfman30/bizsite-ai-platform/internal/config"
	"github.com/wolfman30/bizsite-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// BuildCompletionClient wires the configured provider, plus the optional
// fallback provider, each behind a timeout and a circuit breaker. The
// returned cleanup releases provider connections. With no provider the
// agent answers from static fallbacks.
func BuildCompletionClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, m *metrics.ChatMetrics, logger *logging.Logger) (completion.Client, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	wrap := func(name string, c completion.Client) completion.Client {
		c = completion.NewInstrumentedClient(c, name, cfg.CompletionTimeout, m)
		return completion.NewBreakerClient(c, completion.BreakerSettings{Name: "completion-" + name}, logger)
	}

	primary, closer, err := buildProvider(ctx, cfg.CompletionProvider, cfg, awsCfg)
	if err != nil {
		return nil, nil, err
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	if primary == nil {
		logger.Warn("no completion provider configured; replies use static fallbacks")
		return completion.Unavailable{}, cleanup, nil
	}
	primary = wrap(cfg.CompletionProvider, primary)

	if cfg.CompletionFallback == "" || cfg.CompletionFallback == cfg.CompletionProvider {
		logger.Info("completion provider configured", "provider", cfg.CompletionProvider)
		return primary, cleanup, nil
	}

	fallback, closer, err := buildProvider(ctx, cfg.CompletionFallback, cfg, awsCfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	if fallback == nil {
		return primary, cleanup, nil
	}
	logger.Info("completion provider configured", "provider", cfg.CompletionProvider, "fallback", cfg.CompletionFallback)
	return completion.NewFallbackClient(primary, wrap(cfg.CompletionFallback, fallback), logger), cleanup, nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg *aws.Config) (completion.Client, io.Closer, error) {
	switch name {
	case "", "none":
		return nil, nil, nil
	case "openai":
		api, err := completion.NewOpenAIAPI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: %w", err)
		}
		return completion.NewOpenAIClient(api, cfg.OpenAIModel), nil, nil
	case "bedrock":
		if awsCfg == nil {
			return nil, nil, errors.New("bootstrap: bedrock provider needs aws config")
		}
		client, err := completion.NewBedrockClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: %w", err)
		}
		return client, nil, nil
	case "gemini":
		client, err := completion.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: %w", err)
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown completion provider %q", name)
	}
}
