package main

import (
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sofemci/predictive/internal/config"
	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/engine"
	"github.com/sofemci/predictive/internal/notify"
	"github.com/sofemci/predictive/internal/services"
)

// app is the wired service graph used by every command
type app struct {
	db       *gorm.DB
	engine   *engine.Engine
	notifier notify.Multi
	analysis *services.AnalysisService
	alerts   *services.AlertService
	machines *services.MachineService
	reports  *services.ReportService
	slack    *notify.SlackNotifier
}

// openApp connects to the database and wires the services. With migrate set
// the schema is migrated and the default settings row created first.
func openApp(cfg *config.Config, migrate bool) (*app, error) {
	engineCfg, err := config.LoadEngineConfig(cfg.EngineConfigPath)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(engineCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	logLevel := logger.Warn
	if cfg.DatabaseDebug {
		logLevel = logger.Info
	}
	if err := database.Connect(cfg.DatabaseURL, logLevel); err != nil {
		return nil, err
	}
	if migrate {
		if err := database.AutoMigrate(); err != nil {
			return nil, err
		}
		if err := database.InitializeDefaults(); err != nil {
			return nil, err
		}
	}
	db := database.GetDB()

	a := &app{
		db:       db,
		engine:   eng,
		analysis: services.NewAnalysisService(db, eng),
		alerts:   services.NewAlertService(db),
	}
	a.machines = services.NewMachineService(db, a.analysis)
	a.reports = services.NewReportService(db, a.analysis)

	if settings, err := database.GetOrCreateAnalysisSettings(db); err != nil {
		log.Printf("Warning: Could not load analysis settings: %v", err)
	} else if settings.AtRiskThreshold > 0 {
		a.reports.SetAtRiskThreshold(settings.AtRiskThreshold)
	}

	if cfg.SlackEnabled() {
		a.slack = notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackAlertsChannel)
		a.addNotifier(a.slack)
		log.Printf("Slack alert notifications enabled (channel %s)", cfg.SlackAlertsChannel)
	}
	return a, nil
}

// addNotifier subscribes n to alert events from analysis passes and lifecycle actions
func (a *app) addNotifier(n services.AlertNotifier) {
	a.notifier = append(a.notifier, n)
	a.analysis.SetNotifier(a.notifier)
	a.alerts.SetNotifier(a.notifier)
}

// Close flushes pending Slack posts and closes the database
func (a *app) Close() {
	if a.slack != nil {
		a.slack.Close()
	}
	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}
