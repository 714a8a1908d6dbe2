package notify

import (
	"context"

	"github.com/sofemci/predictive/internal/services"
)

// Multi fans an event out to several notifiers in order
type Multi []services.AlertNotifier

// NotifyAlert implements services.AlertNotifier
func (m Multi) NotifyAlert(ctx context.Context, event services.AlertEvent) {
	for _, n := range m {
		if n != nil {
			n.NotifyAlert(ctx, event)
		}
	}
}
