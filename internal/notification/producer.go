package notification

import "context"

// Producer emits notification events. Callers use it best-effort: log and
// ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; use
	// EmitAsync from request handlers.
	Emit(ctx context.Context, event *Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
