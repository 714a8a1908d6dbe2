package services

import (
	"context"

	"github.com/sofemci/predictive/internal/database"
)

// AlertEventKind tells what happened to an alert
type AlertEventKind string

const (
	AlertCreated       AlertEventKind = "created"
	AlertUpdated       AlertEventKind = "updated"
	AlertStatusChanged AlertEventKind = "status_changed"
)

// AlertEvent is published once the change is committed
type AlertEvent struct {
	Kind          AlertEventKind   `json:"kind"`
	MachineNumber string           `json:"machine_number"`
	Alert         database.AIAlert `json:"alert"`
}

// AlertNotifier receives committed alert changes
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, event AlertEvent)
}

type noopNotifier struct{}

func (noopNotifier) NotifyAlert(context.Context, AlertEvent) {}
