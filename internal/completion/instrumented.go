package completion

import (
	"context"
	"time"

	"github.com/wolfman30/bizsite-ai-platform/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var completionTracer = otel.Tracer("bizsite.internal.completion")

// InstrumentedClient bounds each call with a timeout and records a span plus
// latency and token metrics.
type InstrumentedClient struct {
	next     Client
	provider string
	timeout  time.Duration
	metrics  *metrics.ChatMetrics
}

func NewInstrumentedClient(next Client, provider string, timeout time.Duration, m *metrics.ChatMetrics) *InstrumentedClient {
	if next == nil {
		panic("completion: instrumented client needs a client")
	}
	return &InstrumentedClient{next: next, provider: provider, timeout: timeout, metrics: m}
}

func (c *InstrumentedClient) Complete(ctx context.Context, req Request) (Response, error) {
	ctx, span := completionTracer.Start(ctx, "completion.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("bizsite.completion.provider", c.provider),
		attribute.Int("bizsite.completion.messages", len(req.Messages)),
	)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	c.metrics.ObserveCompletion(c.provider, status, time.Since(start).Seconds())
	if err != nil {
		return Response{}, err
	}

	c.metrics.ObserveTokens(c.provider, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Int("bizsite.completion.input_tokens", int(resp.Usage.InputTokens)),
			attribute.Int("bizsite.completion.output_tokens", int(resp.Usage.OutputTokens)),
			attribute.String("bizsite.completion.stop_reason", resp.StopReason),
		)
	}
	return resp, nil
}
