package api

import (
	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/services"
)

// AlertToListItem converts an alert to its list representation.
// The machine number is empty unless Machine was preloaded.
func AlertToListItem(a database.AIAlert) AlertListItem {
	return AlertListItem{
		ID:                 a.ID,
		UUID:               a.UUID,
		MachineID:          a.MachineID,
		MachineNumber:      a.Machine.Number,
		Level:              a.Level,
		Status:             a.Status,
		Title:              a.Title,
		FailureProbability: a.FailureProbability,
		HorizonDays:        a.HorizonDays,
		Priority:           a.Priority,
		HandledBy:          a.HandledBy,
		CreatedAt:          a.CreatedAt,
	}
}

// AlertsToListItems converts a slice of alerts to list items.
func AlertsToListItems(alerts []database.AIAlert) []AlertListItem {
	items := make([]AlertListItem, len(alerts))
	for i, a := range alerts {
		items[i] = AlertToListItem(a)
	}
	return items
}

// Report converts the request to the service type.
func (r RecordFailureRequest) Report() services.FailureReport {
	return services.FailureReport{
		Description:   r.Description,
		DowntimeHours: r.DowntimeHours,
		Cost:          r.Cost,
		Technician:    r.Technician,
		PartsReplaced: r.PartsReplaced,
	}
}

// Report converts the request to the service type.
func (r RecordMaintenanceRequest) Report() services.MaintenanceReport {
	return services.MaintenanceReport{
		Description:   r.Description,
		DowntimeHours: r.DowntimeHours,
		Technician:    r.Technician,
		PartsReplaced: r.PartsReplaced,
	}
}

// Measurement converts the request to the service type.
func (r RecordMeasurementRequest) Measurement() services.Measurement {
	return services.Measurement{
		Temperature: r.Temperature,
		PowerKWh:    r.PowerKWh,
	}
}

// Empty reports whether no reading was sent
func (r RecordMeasurementRequest) Empty() bool {
	return r.Temperature == nil && r.PowerKWh == nil
}
