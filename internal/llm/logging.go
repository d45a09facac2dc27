package llm

import (
	"context"
	"time"

	"quizform-backend/internal/logger"
)

// LoggingProvider is a decorator that logs every model request.
type LoggingProvider struct {
	inner Provider
	log   *logger.Logger
}

func WithLogging(p Provider, log *logger.Logger) Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &LoggingProvider{inner: p, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	fields := []interface{}{
		"purpose", PurposeFrom(ctx),
		"model", l.inner.ModelID(),
		"latency_ms", time.Since(start).Milliseconds(),
		"images", countImages(req),
	}
	if req.Schema != nil {
		fields = append(fields, "schema", req.Schema.Name)
	}
	if resp != nil {
		fields = append(fields,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"stop_reason", resp.StopReason,
		)
	}

	if err != nil {
		l.log.Warn("✗ model request failed", append(fields, "error", err)...)
		return nil, err
	}
	l.log.Info("✓ model request", fields...)
	return resp, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// Unwrap returns the decorated provider.
func (l *LoggingProvider) Unwrap() Provider {
	return l.inner
}

// Close releases the wrapped provider's client when it holds one.
func (l *LoggingProvider) Close() error {
	if c, ok := l.inner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func countImages(req Request) int {
	n := 0
	for _, m := range req.Messages {
		n += len(m.Images)
	}
	return n
}
