// -----------------------------------------------------------------------
// Last Modified: Monday, 19th October 2026 4:05:12 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/catalog"
	"github.com/ternarybob/gridcheck/internal/services/console"
	"github.com/ternarybob/gridcheck/internal/services/grid"
	"github.com/ternarybob/gridcheck/internal/services/reporting"
	"github.com/ternarybob/gridcheck/internal/services/scheduler"
	"github.com/ternarybob/gridcheck/internal/services/sequencer"
	"github.com/ternarybob/gridcheck/internal/services/session"
	"github.com/ternarybob/gridcheck/internal/storage"
)

// Context records reported by the run itself, before any scenario
const (
	LoginStepID    = "loginBO"
	NavigateStepID = "goToGridPage"
	BaselineStepID = "resetFilterFirst"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Catalog  *catalog.Catalog
	Sessions *session.Manager
	Reporter *reporting.Service

	// Run history, nil when storage is disabled
	Storage interfaces.ReportStorage

	// Set only in scheduled mode
	SchedulerService interfaces.SchedulerService
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.loadCatalog(); err != nil {
		return nil, err
	}

	reportStorage, err := storage.NewReportStorage(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize run history: %w", err)
	}
	app.Storage = reportStorage

	app.Sessions = session.NewManager(cfg.Browser, logger)
	app.Reporter = reporting.NewService(cfg.Reporting, logger)

	logger.Info().
		Str("catalog", app.Catalog.Name).
		Int("scenarios", len(app.Catalog.Scenarios)).
		Int("steps", app.Catalog.StepCount()).
		Bool("history", app.Storage != nil).
		Msg("Application initialized")

	return app, nil
}

func (a *App) loadCatalog() error {
	if a.Config.Catalog.File == "" {
		a.Catalog = catalog.Taxes()
		return nil
	}

	loaded, err := catalog.LoadFromFile(a.Config.Catalog.File)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	a.Catalog = loaded
	return nil
}

// RunOnce executes the whole catalog against a fresh browser session.
// A run that could not start is reported through RunSummary.Error; the returned
// error is reserved for failures to write the run's results.
func (a *App) RunOnce(ctx context.Context) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		ID:        common.NewRunID(),
		TestID:    a.Config.Reporting.TestID,
		BaseURL:   a.Config.Target.BaseURL,
		StartedAt: time.Now(),
	}
	logger := a.Logger.WithCorrelationId(summary.ID)

	logger.Info().
		Str("test_id", summary.TestID).
		Str("base_url", summary.BaseURL).
		Msg("Suite run started")

	common.SetCrashContext("run_id", summary.ID)
	common.SetCrashContext("test_id", summary.TestID)
	defer common.SetCrashContext("run_id", "")

	runDir, err := a.Reporter.StartRun(summary.StartedAt)
	if err != nil {
		logger.Warn().Err(err).Msg("Results directory unavailable, continuing without files")
	}
	common.SetCrashContext("results_dir", runDir)

	err = a.Sessions.With(ctx, func(sess interfaces.Session) error {
		a.Reporter.SetScreenshotter(reporting.SessionScreenshotter(sess))
		defer a.Reporter.SetScreenshotter(nil)
		return a.runSuite(ctx, sess, summary, logger)
	})
	if err != nil {
		summary.Error = err.Error()
		logger.Error().Err(err).Msg("Suite run aborted")
	}
	summary.FinishedAt = time.Now()

	var resultErr error
	if err := a.Reporter.Finish(ctx, summary); err != nil {
		resultErr = fmt.Errorf("failed to write run summary: %w", err)
	}

	a.recordHistory(summary, logger)

	return summary, resultErr
}

// runSuite performs login, navigation and the baseline check, then every scenario
func (a *App) runSuite(ctx context.Context, sess interfaces.Session, summary *models.RunSummary, logger arbor.ILogger) error {
	testID := a.Config.Reporting.TestID
	con := console.New(sess, a.Config, logger)

	a.Reporter.RecordContext(testID, LoginStepID)
	if err := con.Login(ctx); err != nil {
		return err
	}

	a.Reporter.RecordContext(testID, NavigateStepID)
	title, err := con.GoToGrid(ctx, a.Config.Navigation.ParentMenu, a.Config.Navigation.ChildMenu)
	if err != nil {
		return fmt.Errorf("failed to open grid page: %w", err)
	}
	if !strings.Contains(title, a.Config.Navigation.ExpectedTitle) {
		return models.NewInvariantViolation("page title %q does not contain %q", title, a.Config.Navigation.ExpectedTitle)
	}

	accessor := grid.NewAccessor(sess, a.Config.Grid, a.Config.Settle, logger)
	seq := sequencer.NewSequencer(accessor, a.Reporter, testID, a.Config.Grid.SuccessMessage, logger)

	a.Reporter.RecordContext(testID, BaselineStepID)
	baseline, err := seq.EstablishBaseline(ctx)
	if err != nil {
		return err
	}
	summary.Baseline = baseline

	results, err := seq.Run(ctx, a.Catalog.Scenarios)
	for _, result := range results {
		summary.Add(result)
	}
	return err
}

// recordHistory compares the run with the previous one of the same test, then saves and prunes
func (a *App) recordHistory(summary *models.RunSummary, logger arbor.ILogger) {
	if a.Storage == nil {
		return
	}

	// Detached from the run context so a cancelled run is still recorded
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	previous, err := a.Storage.ListRuns(ctx, summary.TestID, 1)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read previous run")
	} else if len(previous) > 0 {
		if err := a.Reporter.WriteComparison(previous[0], summary); err != nil {
			logger.Warn().Err(err).Msg("Failed to compare with previous run")
		}
	}

	if err := a.Storage.SaveRun(ctx, summary); err != nil {
		logger.Warn().Err(err).Msg("Failed to save run to history")
		return
	}

	if keep := a.Config.Storage.Badger.KeepRuns; keep > 0 {
		deleted, err := a.Storage.PruneRuns(ctx, keep)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to prune run history")
		} else if deleted > 0 {
			logger.Debug().Int("deleted", deleted).Int("keep", keep).Msg("Pruned run history")
		}
	}
}

// RunScheduled runs the suite immediately and then on every tick of the configured
// cron expression until ctx is cancelled. A run in flight at cancellation is cancelled too.
func (a *App) RunScheduled(ctx context.Context) error {
	if a.Config.Schedule.Cron == "" {
		return fmt.Errorf("no schedule configured")
	}

	sched := scheduler.NewService(a.Logger)
	if err := sched.Start(a.Config.Schedule.Cron, a.scheduledRun); err != nil {
		return err
	}
	a.SchedulerService = sched

	if err := sched.TriggerNow(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to trigger initial run")
	}

	<-ctx.Done()
	return sched.Stop()
}

func (a *App) scheduledRun(ctx context.Context) error {
	summary, err := a.RunOnce(ctx)
	if err != nil {
		return err
	}
	if summary.Error != "" {
		return fmt.Errorf("run %s did not start: %s", summary.ID, summary.Error)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("run %s: %d of %d scenarios failed", summary.ID, summary.Failed, len(summary.Results))
	}
	return nil
}

// History returns the most recent runs of the configured test, newest first
func (a *App) History(ctx context.Context, limit int) ([]*models.RunSummary, error) {
	if a.Storage == nil {
		return nil, fmt.Errorf("run history is disabled (enable [storage.badger])")
	}
	return a.Storage.ListRuns(ctx, a.Config.Reporting.TestID, limit)
}

// Close stops the scheduler, releases browser sessions and closes storage
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.Sessions != nil {
		if err := a.Sessions.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close browser sessions")
		}
	}

	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
