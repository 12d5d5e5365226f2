// -----------------------------------------------------------------------
// Last Modified: Monday, 19th October 2026 4:40:31 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/gridcheck/internal/app"
	"github.com/ternarybob/gridcheck/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

// optionalBool records whether a boolean flag was given at all
type optionalBool struct {
	value *bool
}

func (b *optionalBool) String() string {
	if b.value == nil {
		return ""
	}
	return fmt.Sprintf("%t", *b.value)
}

func (b *optionalBool) Set(value string) error {
	var v bool
	switch value {
	case "true", "1":
		v = true
	case "false", "0":
		v = false
	default:
		return fmt.Errorf("invalid boolean %q", value)
	}
	b.value = &v
	return nil
}

func (b *optionalBool) IsBoolFlag() bool { return true }

var (
	// Command-line flags
	configFiles configPaths // Multiple -config flags supported
	headless    optionalBool
	baseURL     = flag.String("base-url", "", "Base URL of the console under test (overrides config)")
	catalogFile = flag.String("catalog", "", "Scenario catalog file, TOML or YAML (overrides config)")
	schedule    = flag.String("schedule", "", "Cron expression; repeats the suite until interrupted")
	history     = flag.Int("history", 0, "List the last N recorded runs and exit")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
	flag.Var(&headless, "headless", "Run the browser headless (overrides config)")
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *showVersion {
		fmt.Printf("gridcheck version %s\n", common.GetFullVersion())
		return 0
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("gridcheck.toml"); err == nil {
			configFiles = append(configFiles, "gridcheck.toml")
		} else if _, err := os.Stat("deployments/local/gridcheck.toml"); err == nil {
			// Fallback for running from the project root
			configFiles = append(configFiles, "deployments/local/gridcheck.toml")
		}
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Validate
	// 4. Initialize logger
	// 5. Print banner
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		common.GetLogger().Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		return 1
	}

	common.ApplyFlagOverrides(config, common.FlagOverrides{
		BaseURL:  *baseURL,
		Catalog:  *catalogFile,
		Schedule: *schedule,
		Headless: headless.value,
	})

	if err := config.Validate(); err != nil {
		common.GetLogger().Error().Err(err).Msg("Configuration rejected")
		return 1
	}

	common.InstallCrashHandler(config.Logging.Dir)
	defer common.RecoverWithCrashFile()

	logger := common.InitLogger(config)
	common.PrintBanner(config, logger)

	application, err := app.New(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return 1
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *history > 0:
		return printHistory(ctx, application, *history)

	case config.Schedule.Cron != "":
		logger.Info().Str("schedule", config.Schedule.Cron).Msg("Scheduled mode - Press Ctrl+C to stop")
		if err := application.RunScheduled(ctx); err != nil {
			logger.Error().Err(err).Msg("Scheduler failed")
			return 1
		}
		logger.Info().Msg("Scheduler stopped")
		return 0

	default:
		summary, err := application.RunOnce(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to write run results")
		}
		if summary == nil || !summary.Success() {
			return 1
		}
		return 0
	}
}

func printHistory(ctx context.Context, application *app.App, limit int) int {
	runs, err := application.History(ctx, limit)
	if err != nil {
		application.Logger.Error().Err(err).Msg("Failed to read run history")
		return 1
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return 0
	}

	for _, run := range runs {
		status := "PASS"
		if !run.Success() {
			status = "FAIL"
		}
		fmt.Printf("%s  %s  %-4s  passed=%d failed=%d baseline=%d  %s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.ID,
			status,
			run.Passed,
			run.Failed,
			run.Baseline,
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
		)
		if run.Error != "" {
			fmt.Printf("    %s\n", run.Error)
		}
	}
	return 0
}
