package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/npatel023/tutorgraph/internal/store"
)

// LoggingProvider is a decorator that records every generation request
// in the call log and the structured log.
type LoggingProvider struct {
	inner   Provider
	callLog store.CallLogRepo
	log     *zap.SugaredLogger
}

// WithLogging wraps a Provider with call logging. Either sink may be
// nil; logging never fails the request.
func WithLogging(p Provider, callLog store.CallLogRepo, log *zap.SugaredLogger) Provider {
	return &LoggingProvider{inner: p, callLog: callLog, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	latencyMs := time.Since(start).Milliseconds()

	entry := &store.LLMCallLog{
		Provider:  l.inner.ModelID(),
		Model:     l.inner.ModelID(),
		Purpose:   purpose,
		LatencyMs: latencyMs,
		Success:   err == nil,
	}
	if resp != nil {
		entry.InputTokens = resp.Usage.InputTokens
		entry.OutputTokens = resp.Usage.OutputTokens
		entry.Model = resp.Model
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}

	if l.callLog != nil {
		if logErr := l.callLog.Append(ctx, entry); logErr != nil && l.log != nil {
			l.log.Warnw("failed to record LLM call", "error", logErr)
		}
	}

	if l.log != nil {
		if err != nil {
			l.log.Warnw("llm call failed",
				"purpose", purpose,
				"model", entry.Model,
				"latency_ms", latencyMs,
				"error", err,
			)
		} else {
			l.log.Debugw("llm call",
				"purpose", purpose,
				"model", entry.Model,
				"latency_ms", latencyMs,
				"input_tokens", entry.InputTokens,
				"output_tokens", entry.OutputTokens,
			)
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
