package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"equiplink/internal/notification"
)

// logEmitter is the slice of otellog.Logger the sink needs; tests substitute
// a capture.
type logEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventSink returns a notification.Producer that mirrors events as OTel
// log records via the given LoggerProvider. Used when no broker is configured
// so events stay observable; nil provider returns a no-op producer.
func NewEventSink(provider *sdklog.LoggerProvider) notification.Producer {
	if provider == nil {
		return noopSink{}
	}
	return &otelSink{logger: provider.Logger("equiplink.events")}
}

// newEventSinkWithLogger is the test seam.
func newEventSinkWithLogger(logger logEmitter) notification.Producer {
	return &otelSink{logger: logger}
}

type noopSink struct{}

func (noopSink) Emit(context.Context, *notification.Event) error { return nil }
func (noopSink) Close() error                                    { return nil }

type otelSink struct {
	logger logEmitter
}

// Emit converts the event to an OTel log record. Empty fields are omitted.
func (s *otelSink) Emit(ctx context.Context, event *notification.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.OccurredAt.IsZero() {
		rec.SetTimestamp(event.OccurredAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	rec.SetBody(otellog.StringValue(event.Type))
	if event.ID != "" {
		rec.AddAttributes(otellog.String("event_id", event.ID))
	}
	if event.TenantID != "" {
		rec.AddAttributes(otellog.String("tenant_id", event.TenantID))
	}
	if event.ActorID != "" {
		rec.AddAttributes(otellog.String("actor_id", event.ActorID))
	}
	if event.ResourceType != "" {
		rec.AddAttributes(otellog.String("resource_type", event.ResourceType))
	}
	if event.ResourceID != "" {
		rec.AddAttributes(otellog.String("resource_id", event.ResourceID))
	}
	for k, v := range event.Detail {
		rec.AddAttributes(otellog.String("detail."+k, v))
	}
	s.logger.Emit(ctx, rec)
	return nil
}

// Close is a no-op; the LoggerProvider owns the exporter lifecycle.
func (s *otelSink) Close() error { return nil }
