// Package publishers routes audit events to the publisher for their category.
package publishers

import (
	"context"
	"log/slog"

	audit "trustboard/pkg/platform/audit"
)

// Emitter accepts audit events.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Router dispatches events by category. Register every route before the
// router is shared; routes are not guarded for concurrent registration.
type Router struct {
	routes   map[audit.EventCategory]Emitter
	fallback Emitter
	logger   *slog.Logger
}

// NewRouter creates a router with an optional fallback for categories that
// have no route.
func NewRouter(logger *slog.Logger, fallback Emitter) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		routes:   make(map[audit.EventCategory]Emitter),
		fallback: fallback,
		logger:   logger,
	}
}

// Register adds the emitter for a category.
func (r *Router) Register(category audit.EventCategory, e Emitter) {
	r.routes[category] = e
}

// Emit stamps the category derived from the action and forwards the event.
func (r *Router) Emit(ctx context.Context, event audit.Event) error {
	event.Category = audit.AuditEvent(event.Action).Category()
	e, ok := r.routes[event.Category]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Emit(ctx, event)
		}
		r.logger.WarnContext(ctx, "no audit route for category, dropping event",
			"category", event.Category,
			"action", event.Action,
		)
		return nil
	}
	return e.Emit(ctx, event)
}
