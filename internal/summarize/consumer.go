package summarize

import (
	"context"
	"log/slog"

	"notedigest/internal/pipeline"
	"notedigest/pkg/kafka"
	"notedigest/pkg/logger"
	"notedigest/pkg/metrics"
)

// TerminalHandler consumes the run-complete signal. Implemented by the
// digest synthesizer.
type TerminalHandler interface {
	HandleTerminal(ctx context.Context, item pipeline.WorkItem) error
}

// NewHandler returns the Kafka message handler for the work topic. It opens
// the signed envelope, verifies it, and routes the work item to the matching
// worker operation or the terminal handler.
//
// Messages that fail signature verification or decoding are rejected before
// any business logic runs and are dropped (returning an error would only
// redeliver a message that can never become valid). Processing failures are
// returned so the message is redelivered.
func NewHandler(worker *Worker, terminal TerminalHandler, secret string, m *metrics.Metrics) kafka.MessageHandler {
	log := slog.Default().With("component", "work-consumer")
	reject := func(reason string, err error, route string) {
		log.Error("message rejected", "reason", reason, "route", route, "error", err)
		if m != nil {
			m.RejectedMessages.WithLabelValues(reason).Inc()
		}
	}

	return func(ctx context.Context, key []byte, value []byte) error {
		env, err := kafka.DecodeJSON[pipeline.Envelope](value)
		if err != nil {
			reject("decode", err, "")
			return nil
		}
		if err := env.Verify(secret); err != nil {
			reject("signature", err, env.Route)
			return nil
		}

		item, err := kafka.DecodeJSON[pipeline.WorkItem](env.Payload)
		if err != nil {
			reject("decode", err, env.Route)
			return nil
		}
		ctx = logger.WithRunID(ctx, item.RunID)

		switch env.Route {
		case pipeline.RouteSummarizeNote:
			return worker.SummarizeNote(ctx, item)
		case pipeline.RouteSummarizeDiff:
			return worker.SummarizeDiff(ctx, item)
		case pipeline.RouteSummarizeURL:
			return worker.SummarizeURL(ctx, item)
		case pipeline.RouteDigest:
			return terminal.HandleTerminal(ctx, item)
		default:
			reject("route", nil, env.Route)
			return nil
		}
	}
}
