package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/engine"
	"github.com/sofemci/predictive/internal/services"
)

// AnalysisReport summarizes one batch run
type AnalysisReport struct {
	RunID              string        `json:"run_id"`
	Skipped            bool          `json:"skipped"`
	Machines           int           `json:"machines"`
	Analyzed           int           `json:"analyzed"`
	Failed             int           `json:"failed"`
	Critical           int           `json:"critical"`
	Anomalies          int           `json:"anomalies"`
	CountersRecomputed int           `json:"counters_recomputed"`
	Duration           time.Duration `json:"duration"`
}

// AnalysisJob periodically analyzes every active or in-maintenance machine
type AnalysisJob struct {
	db       *gorm.DB
	analysis *services.AnalysisService
	machines *services.MachineService
	workers  int
}

// NewAnalysisJob creates a new analysis job
func NewAnalysisJob(db *gorm.DB, analysis *services.AnalysisService, machines *services.MachineService) *AnalysisJob {
	return &AnalysisJob{
		db:       db,
		analysis: analysis,
		machines: machines,
	}
}

// SetWorkers overrides the worker count of the settings row; n <= 0 restores it
func (j *AnalysisJob) SetWorkers(n int) {
	j.workers = n
}

// Run executes one batch. Machines are analyzed in parallel; a machine that
// fails is logged and counted, and the batch goes on.
func (j *AnalysisJob) Run(ctx context.Context) (*AnalysisReport, error) {
	started := time.Now()
	report := &AnalysisReport{RunID: uuid.New().String()}

	settings, err := database.GetOrCreateAnalysisSettings(j.db)
	if err != nil {
		return nil, err
	}

	if !settings.Enabled {
		log.Println("Scheduled analysis is disabled, skipping")
		report.Skipped = true
		return report, nil
	}

	if settings.RecomputeCounters {
		report.CountersRecomputed = j.recomputeCounters(ctx)
	}

	ids, err := j.analysis.AnalyzableMachineIDs(ctx)
	if err != nil {
		return nil, err
	}
	report.Machines = len(ids)

	workers := settings.Workers
	if j.workers > 0 {
		workers = j.workers
	}
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			res, err := j.analysis.AnalyzeMachine(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("Analysis run %s: failed to analyze machine %d: %v", report.RunID, id, err)
				report.Failed++
				return nil
			}
			report.Analyzed++
			if res.RiskLevel == engine.RiskCritical {
				report.Critical++
			}
			if len(res.Anomalies) > 0 {
				report.Anomalies++
			}
			return nil
		})
	}
	g.Wait()

	report.Duration = time.Since(started)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// recomputeCounters rebuilds the failure counters of every machine with a
// failure in the log and returns how many were updated
func (j *AnalysisJob) recomputeCounters(ctx context.Context) int {
	ids, err := j.machines.MachinesWithFailureEvents(ctx)
	if err != nil {
		log.Printf("Failed to list machines with failures: %v", err)
		return 0
	}

	updated := 0
	for _, id := range ids {
		if err := j.machines.RecomputeFailureCounters(ctx, id); err != nil {
			log.Printf("Failed to recompute failure counters for machine %d: %v", id, err)
			continue
		}
		updated++
	}
	return updated
}

// Start begins the periodic analysis runs
func (j *AnalysisJob) Start(stop <-chan struct{}) {
	settings, err := database.GetOrCreateAnalysisSettings(j.db)
	if err != nil {
		log.Printf("Failed to get analysis settings, using default interval: %v", err)
		settings = database.NewDefaultAnalysisSettings()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	interval := intervalOf(settings)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report, err := j.Run(ctx)
			if err != nil {
				log.Printf("Analysis job error: %v", err)
			} else if !report.Skipped {
				log.Printf("Analysis run %s: %d/%d machines analyzed, %d failed, %d critical, %d with anomalies (%s)",
					report.RunID, report.Analyzed, report.Machines, report.Failed,
					report.Critical, report.Anomalies, report.Duration.Round(time.Millisecond))
			}

			// Refresh interval from settings (in case it changed)
			newSettings, err := database.GetOrCreateAnalysisSettings(j.db)
			if err == nil && newSettings.IntervalMinutes != settings.IntervalMinutes {
				settings = newSettings
				ticker.Reset(intervalOf(settings))
				log.Printf("Analysis interval updated to %d minutes", settings.IntervalMinutes)
			}

		case <-stop:
			log.Println("Analysis job stopped")
			return
		}
	}
}

func intervalOf(s *database.AnalysisSettings) time.Duration {
	if s.IntervalMinutes < 1 {
		return time.Minute
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}
