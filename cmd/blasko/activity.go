package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/germanamz/blasko/pkg/engine"
	"github.com/germanamz/blasko/pkg/modeladapter"
)

// logActivity logs engine events until ctx is done.
func logActivity(ctx context.Context, eng *engine.Engine, logger *zap.Logger) {
	sub := eng.Events().Subscribe(64)
	defer eng.Events().Unsubscribe(sub)

	reporter, _ := eng.Model().(modeladapter.UsageReporter)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			logEvent(logger, ev, reporter)
		}
	}
}

func logEvent(logger *zap.Logger, ev engine.Event, reporter modeladapter.UsageReporter) {
	log := logger.With(zap.String("conversation", ev.ConversationID))

	switch ev.Kind {
	case engine.EventToolCallEnd:
		tc := ev.Tool
		if tc == nil {
			return
		}
		fields := []zap.Field{
			zap.String("tool", tc.ToolName),
			zap.String("tool_call", tc.ToolCallID),
			zap.Duration("duration", tc.Duration),
		}
		if tc.ErrorKind != "" {
			log.Warn("tool call failed", append(fields, zap.String("error_kind", tc.ErrorKind))...)
			return
		}
		log.Info("tool call", fields...)

	case engine.EventError:
		log.Error("request failed", zap.Error(ev.Err))

	case engine.EventRequestEnd:
		if reporter == nil {
			log.Debug("request done")
			return
		}
		total, calls := reporter.UsageTracker().Snapshot()
		log.Debug("request done",
			zap.Int("total_input_tokens", total.InputTokens),
			zap.Int("total_output_tokens", total.OutputTokens),
			zap.Int("model_calls", calls),
		)
	}
}
