package worker

import (
	"github.com/dicri/evidence-service/internal/events"
	"github.com/dicri/evidence-service/internal/service"
)

// Subscribers groups the services that react to domain events.
type Subscribers struct {
	Audit        *service.AuditService
	Notification *service.NotificationService
	Stats        *service.StatsService
}

// Start registers every subscriber on the dispatcher. Audit runs first so the
// log entry exists before the other handlers see the event.
func Start(dispatcher events.Dispatcher, subs Subscribers) {
	if dispatcher == nil {
		return
	}
	if subs.Audit != nil {
		subs.Audit.RegisterHandlers(dispatcher)
	}
	if subs.Notification != nil {
		subs.Notification.RegisterHandlers(dispatcher)
	}
	if subs.Stats != nil {
		subs.Stats.RegisterHandlers(dispatcher)
	}
}
