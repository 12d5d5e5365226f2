// -----------------------------------------------------------------------
// Last Modified: Tuesday, 20th October 2026 9:15:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/session"
)

const screenshotTimeout = 10 * time.Second

// Screenshotter captures the current page as PNG
type Screenshotter func(ctx context.Context) ([]byte, error)

// ContextRecord is one traceability entry: which step of which test started when
type ContextRecord struct {
	TestID     string    `json:"test_id"`
	ScenarioID string    `json:"scenario_id"`
	At         time.Time `json:"at"`
}

// Service logs step contexts and results and writes per-run result files
type Service struct {
	config common.ReportingConfig
	logger arbor.ILogger

	mu         sync.Mutex
	runDir     string
	screenshot Screenshotter
	contexts   []ContextRecord
}

// Compile-time assertion
var _ interfaces.Reporter = (*Service)(nil)

// NewService creates a reporting service
func NewService(config common.ReportingConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

// SessionScreenshotter captures screenshots from a browser session
func SessionScreenshotter(sess interfaces.Session) Screenshotter {
	return func(ctx context.Context) ([]byte, error) {
		var buf []byte
		if err := session.Run(ctx, sess, screenshotTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
			return nil, fmt.Errorf("failed to capture screenshot: %w", err)
		}
		return buf, nil
	}
}

// StartRun creates the results directory of a run and clears the previous run's records,
// even when the directory cannot be created.
// Each run gets its own timestamped directory under the results dir.
func (s *Service) StartRun(startedAt time.Time) (string, error) {
	s.mu.Lock()
	s.runDir = ""
	s.screenshot = nil
	s.contexts = nil
	s.mu.Unlock()

	runDir := filepath.Join(s.config.ResultsDir, startedAt.Format("run-2006-01-02-15-04-05"))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	s.mu.Lock()
	s.runDir = runDir
	s.mu.Unlock()

	s.logger.Debug().Str("dir", runDir).Msg("Results directory ready")
	return runDir, nil
}

// SetScreenshotter attaches the page failure screenshots are taken from; nil detaches it
func (s *Service) SetScreenshotter(screenshot Screenshotter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenshot = screenshot
}

// RunDir returns the current run's results directory
func (s *Service) RunDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runDir
}

// Contexts returns the step contexts recorded in the current run
func (s *Service) Contexts() []ContextRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ContextRecord, len(s.contexts))
	copy(out, s.contexts)
	return out
}

// RecordContext marks the start of a reported step
func (s *Service) RecordContext(testID, scenarioID string) {
	s.mu.Lock()
	s.contexts = append(s.contexts, ContextRecord{TestID: testID, ScenarioID: scenarioID, At: time.Now()})
	s.mu.Unlock()

	s.logger.WithCorrelationId(testID).Info().
		Str("test_identifier", scenarioID).
		Msg("Step started")
}

// RecordResult logs a finished scenario and, for failures, stores a screenshot of the page
func (s *Service) RecordResult(ctx context.Context, result *models.ScenarioResult) {
	if result.Passed {
		s.logger.Info().
			Str("scenario", result.ScenarioID).
			Dur("duration", result.Duration).
			Msg("PASS")
		return
	}

	s.logger.Error().
		Str("scenario", result.ScenarioID).
		Str("error_kind", string(result.ErrorKind)).
		Str("error", result.Error).
		Msg("FAIL")

	s.mu.Lock()
	runDir, screenshot := s.runDir, s.screenshot
	s.mu.Unlock()
	if !s.config.Screenshots || screenshot == nil || runDir == "" {
		return
	}

	path, err := s.saveScreenshot(ctx, runDir, screenshot, result.ScenarioID)
	if err != nil {
		s.logger.Warn().Err(err).Str("scenario", result.ScenarioID).Msg("Failed to save failure screenshot")
		return
	}
	result.Screenshot = path
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func (s *Service) saveScreenshot(ctx context.Context, runDir string, screenshot Screenshotter, name string) (string, error) {
	dir := filepath.Join(runDir, "screenshots")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshots directory: %w", err)
	}

	buf, err := screenshot(ctx)
	if err != nil {
		return "", err
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.png", unsafeName.ReplaceAllString(name, "_"), time.Now().Format("15-04-05")))
	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return filename, nil
}

// Finish writes summary.json, summary.md, summary.html and contexts.json to the run directory and logs the totals
func (s *Service) Finish(ctx context.Context, summary *models.RunSummary) error {
	if summary.Success() {
		s.logger.Info().
			Str("run_id", summary.ID).
			Int("baseline", summary.Baseline).
			Int("passed", summary.Passed).
			Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
			Msg("Run passed")
	} else {
		s.logger.Error().
			Str("run_id", summary.ID).
			Int("baseline", summary.Baseline).
			Int("passed", summary.Passed).
			Int("failed", summary.Failed).
			Str("error", summary.Error).
			Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
			Msg("Run failed")
	}

	runDir := s.RunDir()
	if runDir == "" {
		return nil
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "summary.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write summary.json: %w", err)
	}

	markdown := RenderMarkdown(summary)
	if err := os.WriteFile(filepath.Join(runDir, "summary.md"), []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write summary.md: %w", err)
	}

	page, err := RenderHTML(summary.TestID, markdown)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(runDir, "summary.html"), page, 0644); err != nil {
		return fmt.Errorf("failed to write summary.html: %w", err)
	}

	contexts, err := json.MarshalIndent(s.Contexts(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode contexts: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "contexts.json"), contexts, 0644); err != nil {
		return fmt.Errorf("failed to write contexts.json: %w", err)
	}

	s.logger.Info().Str("dir", runDir).Msg("Results written")
	return nil
}
