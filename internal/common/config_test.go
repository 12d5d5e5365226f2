package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig_IsValid(t *testing.T) {
	config := NewDefaultConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, "#tax_grid", config.Grid.Table)
	assert.Equal(t, "Yes", config.Grid.TrueLabel)
	assert.Equal(t, 15*time.Second, config.Settle.TimeoutDuration())
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	base := writeConfig(t, "base.toml", `
[target]
base_url = "http://shop.local"
admin_path = "/admin123"

[grid]
table = "#custom_grid"
`)
	override := writeConfig(t, "override.toml", `
[target]
base_url = "http://staging.shop.local"

[settle]
timeout = "45s"
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, "http://staging.shop.local", config.Target.BaseURL)
	assert.Equal(t, "/admin123", config.Target.AdminPath)
	assert.Equal(t, "#custom_grid", config.Grid.Table)
	assert.Equal(t, "td.column-{field}", config.Grid.Cell, "defaults survive partial files")
	assert.Equal(t, 45*time.Second, config.Settle.TimeoutDuration())
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadFromFiles_InvalidToml(t *testing.T) {
	path := writeConfig(t, "bad.toml", "[target\nbase_url=")
	_, err := LoadFromFiles(path)
	assert.Error(t, err)
}

func TestLoadFromFiles_EnvOverridesAndReferences(t *testing.T) {
	t.Setenv("GRIDCHECK_BASE_URL", "http://env.shop.local")
	t.Setenv("GRIDCHECK_PASSWORD", "prestashop_demo")
	t.Setenv("GRIDCHECK_LOG_OUTPUT", "stdout, file")
	t.Setenv("GRIDCHECK_HISTORY_PATH", "/tmp/gridcheck-history")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "http://env.shop.local", config.Target.BaseURL)
	assert.Equal(t, "prestashop_demo", config.Auth.Password)
	assert.Equal(t, []string{"stdout", "file"}, config.Logging.Output)
	assert.True(t, config.Storage.Badger.Enabled)
	assert.Equal(t, "/tmp/gridcheck-history", config.Storage.Badger.Path)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	headless := false

	ApplyFlagOverrides(config, FlagOverrides{
		BaseURL:  "http://flag.shop.local",
		Catalog:  "catalog.yaml",
		Schedule: "@every 1h",
		Headless: &headless,
	})

	assert.Equal(t, "http://flag.shop.local", config.Target.BaseURL)
	assert.Equal(t, "catalog.yaml", config.Catalog.File)
	assert.Equal(t, "@every 1h", config.Schedule.Cron)
	assert.False(t, config.Browser.Headless)

	ApplyFlagOverrides(config, FlagOverrides{})
	assert.Equal(t, "http://flag.shop.local", config.Target.BaseURL, "empty flags leave config untouched")
}

func TestConfigValidate(t *testing.T) {
	t.Run("invalid base url", func(t *testing.T) {
		config := NewDefaultConfig()
		config.Target.BaseURL = "not a url"
		assert.Error(t, config.Validate())
	})

	t.Run("missing grid selector", func(t *testing.T) {
		config := NewDefaultConfig()
		config.Grid.Rows = ""
		assert.Error(t, config.Validate())
	})

	t.Run("login selectors optional when auth skipped", func(t *testing.T) {
		config := NewDefaultConfig()
		config.Auth.Skip = true
		config.Auth.EmailSelector = ""
		assert.NoError(t, config.Validate())
	})

	t.Run("login selectors required otherwise", func(t *testing.T) {
		config := NewDefaultConfig()
		config.Auth.EmailSelector = ""
		assert.Error(t, config.Validate())
	})

	t.Run("bad duration", func(t *testing.T) {
		config := NewDefaultConfig()
		config.Settle.Timeout = "soon"
		assert.Error(t, config.Validate())
	})

	t.Run("history path required when enabled", func(t *testing.T) {
		config := NewDefaultConfig()
		config.Storage.Badger.Enabled = true
		config.Storage.Badger.Path = ""
		assert.Error(t, config.Validate())
	})

	t.Run("navigation target required", func(t *testing.T) {
		config := NewDefaultConfig()
		config.Navigation.ParentMenu = ""
		config.Navigation.ChildMenu = ""
		assert.Error(t, config.Validate())

		config.Navigation.GridPath = "/index.php?controller=AdminTaxes"
		assert.NoError(t, config.Validate())
	})
}

func TestAdminURL(t *testing.T) {
	config := NewDefaultConfig()
	config.Target.BaseURL = "http://shop.local/"
	config.Target.AdminPath = "/admin-dev/"

	assert.Equal(t, "http://shop.local/admin-dev/index.php?controller=AdminLogin", config.AdminURL("/index.php?controller=AdminLogin"))
}

func TestJoinURLAndSameOrigin(t *testing.T) {
	assert.Equal(t, "http://a.local/x/y", JoinURL("http://a.local", "x", "/y/"))
	assert.Equal(t, "http://a.local", JoinURL("http://a.local/", "", "/"))

	assert.True(t, SameOrigin("http://a.local/x", "HTTP://A.local/y?z=1"))
	assert.False(t, SameOrigin("http://a.local", "https://a.local"))
}

func TestParseDurationOr(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseDurationOr("2s", time.Minute))
	assert.Equal(t, time.Minute, parseDurationOr("", time.Minute))
	assert.Equal(t, time.Minute, parseDurationOr("-1s", time.Minute))
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.NoError(t, ValidateSchedule("@every 1h"))
	assert.NoError(t, ValidateSchedule("@daily"))

	assert.Error(t, ValidateSchedule("every hour"))
	assert.Error(t, ValidateSchedule("@every 10s"))

	config := NewDefaultConfig()
	config.Schedule.Cron = "61 * * * *"
	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule.cron")
}
