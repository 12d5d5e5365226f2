package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Config represents the suite configuration
type Config struct {
	Environment string           `toml:"environment"`
	Target      TargetConfig     `toml:"target"`
	Auth        AuthConfig       `toml:"auth"`
	Navigation  NavigationConfig `toml:"navigation"`
	Grid        GridConfig       `toml:"grid"`
	Browser     BrowserConfig    `toml:"browser"`
	Settle      SettleConfig     `toml:"settle"`
	Catalog     CatalogConfig    `toml:"catalog"`
	Reporting   ReportingConfig  `toml:"reporting"`
	Storage     StorageConfig    `toml:"storage"`
	Schedule    ScheduleConfig   `toml:"schedule"`
	Logging     LoggingConfig    `toml:"logging"`
}

// TargetConfig selects the environment under test
type TargetConfig struct {
	BaseURL   string `toml:"base_url" validate:"required,url"` // e.g. "http://localhost:8080"
	AdminPath string `toml:"admin_path"`                       // Back-office path prefix, e.g. "/admin-dev"
}

// AuthConfig drives the console login form
type AuthConfig struct {
	Skip             bool   `toml:"skip"` // Console needs no login (fixtures, pre-authenticated profiles)
	LoginPath        string `toml:"login_path"`
	EmailSelector    string `toml:"email_selector" validate:"required_if=Skip false"`
	PasswordSelector string `toml:"password_selector" validate:"required_if=Skip false"`
	SubmitSelector   string `toml:"submit_selector" validate:"required_if=Skip false"`
	LoggedInSelector string `toml:"logged_in_selector" validate:"required_if=Skip false"`
	Email            string `toml:"email"`
	Password         string `toml:"password"` // Supports ${ENV_VAR} references
}

// NavigationConfig locates the grid page through the menu chrome
type NavigationConfig struct {
	ParentMenu    string `toml:"parent_menu"`
	ChildMenu     string `toml:"child_menu"`
	GridPath      string `toml:"grid_path"` // Direct path used when no menu selectors are configured
	TitleSelector string `toml:"title_selector" validate:"required"`
	ExpectedTitle string `toml:"expected_title" validate:"required"`
}

// GridConfig holds the selector templates of the grid under test.
// {field} and {row} placeholders are expanded per call.
type GridConfig struct {
	Table          string `toml:"table" validate:"required"`          // Grid root, also the settle marker
	Rows           string `toml:"rows" validate:"required"`           // Data rows, relative to Table
	Cell           string `toml:"cell" validate:"required"`           // Column cell, relative to a row
	ToggleOn       string `toml:"toggle_on" validate:"required"`      // Present inside a cell when its toggle is on
	ToggleControl  string `toml:"toggle_control" validate:"required"` // Clickable element inside a toggle cell
	FilterInput    string `toml:"filter_input" validate:"required"`
	FilterSubmit   string `toml:"filter_submit" validate:"required"`
	FilterReset    string `toml:"filter_reset" validate:"required"`
	Notification   string `toml:"notification" validate:"required"`
	Loading        string `toml:"loading"` // Optional busy indicator that must be absent once settled
	TrueLabel      string `toml:"true_label" validate:"required"`
	FalseLabel     string `toml:"false_label" validate:"required"`
	SuccessMessage string `toml:"success_message" validate:"required"`
}

// BrowserConfig controls the chromedp allocator
type BrowserConfig struct {
	RemoteURL      string `toml:"remote_url"` // Attach to a running Chrome (ws:// or http:// debugging URL)
	Headless       bool   `toml:"headless"`
	DisableGPU     bool   `toml:"disable_gpu"`
	NoSandbox      bool   `toml:"no_sandbox"`
	WindowWidth    int    `toml:"window_width" validate:"min=320"`
	WindowHeight   int    `toml:"window_height" validate:"min=240"`
	UserAgent      string `toml:"user_agent"`
	StartupTimeout string `toml:"startup_timeout"` // e.g. "30s"
}

// SettleConfig bounds the wait for a grid reload
type SettleConfig struct {
	Timeout             string `toml:"timeout"`              // e.g. "15s"
	PollInterval        string `toml:"poll_interval"`        // e.g. "100ms"
	NotificationTimeout string `toml:"notification_timeout"` // e.g. "5s"
}

// CatalogConfig selects the scenario catalog
type CatalogConfig struct {
	File string `toml:"file"` // TOML or YAML file; empty uses the built-in catalog
}

// ReportingConfig controls per-run result output
type ReportingConfig struct {
	TestID      string `toml:"test_id" validate:"required"`
	ResultsDir  string `toml:"results_dir" validate:"required"`
	Screenshots bool   `toml:"screenshots"` // Capture a full-page screenshot on scenario failure
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents run-history storage configuration
type BadgerConfig struct {
	Enabled        bool   `toml:"enabled"`
	Path           string `toml:"path" validate:"required_if=Enabled true"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
	KeepRuns       int    `toml:"keep_runs" validate:"min=0"` // 0 keeps every run
}

// ScheduleConfig enables repeated runs
type ScheduleConfig struct {
	Cron string `toml:"cron"` // Empty runs the suite once
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output     []string `toml:"output"` // "stdout", "file"
	TimeFormat string   `toml:"time_format"`
	Dir        string   `toml:"dir"`
}

// NewDefaultConfig returns the configuration for the PrestaShop back-office taxes grid
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Target: TargetConfig{
			BaseURL:   "http://localhost:8080",
			AdminPath: "/admin-dev",
		},
		Auth: AuthConfig{
			LoginPath:        "/index.php?controller=AdminLogin",
			EmailSelector:    "#email",
			PasswordSelector: "#passwd",
			SubmitSelector:   "#submit_login",
			LoggedInSelector: "#main",
			Email:            "demo@prestashop.com",
			Password:         "${GRIDCHECK_PASSWORD}",
		},
		Navigation: NavigationConfig{
			ParentMenu:    "#subtab-AdminInternational",
			ChildMenu:     "#subtab-AdminTaxes",
			TitleSelector: ".page-title",
			ExpectedTitle: "Taxes",
		},
		Grid: GridConfig{
			Table:          "#tax_grid",
			Rows:           "tbody tr:not(.empty_row)",
			Cell:           "td.column-{field}",
			ToggleOn:       ".grid-toggler-icon-valid",
			ToggleControl:  "i",
			FilterInput:    "#tax_grid #tax_{field}",
			FilterSubmit:   "#tax_grid .grid-search-button",
			FilterReset:    "#tax_grid .grid-reset-button",
			Notification:   ".alert-success p.alert-text",
			TrueLabel:      "Yes",
			FalseLabel:     "No",
			SuccessMessage: "The status has been successfully updated.",
		},
		Browser: BrowserConfig{
			Headless:       true,
			DisableGPU:     true,
			NoSandbox:      false,
			WindowWidth:    1920,
			WindowHeight:   1080,
			StartupTimeout: "30s",
		},
		Settle: SettleConfig{
			Timeout:             "15s",
			PollInterval:        "100ms",
			NotificationTimeout: "5s",
		},
		Reporting: ReportingConfig{
			TestID:      "functional_BO_international_localization_taxes_filterAndQuickEditTaxes",
			ResultsDir:  "./results",
			Screenshots: true,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled:  false,
				Path:     "./data/history",
				KeepRuns: 200,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
			Dir:        "./logs",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// CLI overrides are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	// Resolve ${ENV_VAR} references (credentials are never stored in config files)
	if err := ResolveEnvReferences(config, arbor.NewLogger()); err != nil {
		return nil, fmt.Errorf("failed to resolve environment references: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies GRIDCHECK_* environment variables
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("GRIDCHECK_ENV"); env != "" {
		config.Environment = env
	}

	if baseURL := os.Getenv("GRIDCHECK_BASE_URL"); baseURL != "" {
		config.Target.BaseURL = baseURL
	}
	if adminPath := os.Getenv("GRIDCHECK_ADMIN_PATH"); adminPath != "" {
		config.Target.AdminPath = adminPath
	}

	if email := os.Getenv("GRIDCHECK_LOGIN_EMAIL"); email != "" {
		config.Auth.Email = email
	}
	if skip := os.Getenv("GRIDCHECK_AUTH_SKIP"); skip != "" {
		if b, err := strconv.ParseBool(skip); err == nil {
			config.Auth.Skip = b
		}
	}

	if remote := os.Getenv("GRIDCHECK_CHROME_URL"); remote != "" {
		config.Browser.RemoteURL = remote
	}
	if headless := os.Getenv("GRIDCHECK_HEADLESS"); headless != "" {
		if b, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = b
		}
	}
	if noSandbox := os.Getenv("GRIDCHECK_NO_SANDBOX"); noSandbox != "" {
		if b, err := strconv.ParseBool(noSandbox); err == nil {
			config.Browser.NoSandbox = b
		}
	}

	if timeout := os.Getenv("GRIDCHECK_SETTLE_TIMEOUT"); timeout != "" {
		config.Settle.Timeout = timeout
	}

	if catalog := os.Getenv("GRIDCHECK_CATALOG"); catalog != "" {
		config.Catalog.File = catalog
	}
	if resultsDir := os.Getenv("GRIDCHECK_RESULTS_DIR"); resultsDir != "" {
		config.Reporting.ResultsDir = resultsDir
	}

	if historyPath := os.Getenv("GRIDCHECK_HISTORY_PATH"); historyPath != "" {
		config.Storage.Badger.Path = historyPath
		config.Storage.Badger.Enabled = true
	}

	if schedule := os.Getenv("GRIDCHECK_SCHEDULE"); schedule != "" {
		config.Schedule.Cron = schedule
	}

	if level := os.Getenv("GRIDCHECK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("GRIDCHECK_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// FlagOverrides carries command-line values; zero values leave the config untouched
type FlagOverrides struct {
	BaseURL  string
	Catalog  string
	Schedule string
	Headless *bool
}

// ApplyFlagOverrides applies command-line flags (highest priority)
func ApplyFlagOverrides(config *Config, flags FlagOverrides) {
	if flags.BaseURL != "" {
		config.Target.BaseURL = flags.BaseURL
	}
	if flags.Catalog != "" {
		config.Catalog.File = flags.Catalog
	}
	if flags.Schedule != "" {
		config.Schedule.Cron = flags.Schedule
	}
	if flags.Headless != nil {
		config.Browser.Headless = *flags.Headless
	}
}

// Validate checks the configuration using struct tags and duration syntax
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"browser.startup_timeout":     c.Browser.StartupTimeout,
		"settle.timeout":              c.Settle.Timeout,
		"settle.poll_interval":        c.Settle.PollInterval,
		"settle.notification_timeout": c.Settle.NotificationTimeout,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", key, err)
		}
	}

	if c.Schedule.Cron != "" {
		if err := ValidateSchedule(c.Schedule.Cron); err != nil {
			return fmt.Errorf("invalid configuration: schedule.cron: %w", err)
		}
	}

	if c.Navigation.ParentMenu == "" && c.Navigation.ChildMenu == "" && c.Navigation.GridPath == "" {
		return fmt.Errorf("invalid configuration: navigation needs menu selectors or grid_path")
	}

	return nil
}

// ValidateSchedule checks a standard 5-field cron expression or a descriptor such as "@every 30m".
// Runs closer together than one minute are rejected.
func ValidateSchedule(schedule string) error {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	if every, ok := sched.(cron.ConstantDelaySchedule); ok && every.Delay < time.Minute {
		return fmt.Errorf("schedule must have minimum 1-minute interval, got %v", every.Delay)
	}
	return nil
}

// AdminURL joins the base URL, admin path and a page path
func (c *Config) AdminURL(path string) string {
	return JoinURL(c.Target.BaseURL, c.Target.AdminPath, path)
}

// StartupTimeoutDuration returns the browser startup bound
func (b BrowserConfig) StartupTimeoutDuration() time.Duration {
	return parseDurationOr(b.StartupTimeout, 30*time.Second)
}

// TimeoutDuration returns the settle-wait bound
func (s SettleConfig) TimeoutDuration() time.Duration {
	return parseDurationOr(s.Timeout, 15*time.Second)
}

// PollIntervalDuration returns the settle-wait poll interval
func (s SettleConfig) PollIntervalDuration() time.Duration {
	return parseDurationOr(s.PollInterval, 100*time.Millisecond)
}

// NotificationTimeoutDuration returns how long to wait for an outcome message
func (s SettleConfig) NotificationTimeoutDuration() time.Duration {
	return parseDurationOr(s.NotificationTimeout, 5*time.Second)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
