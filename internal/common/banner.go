package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the resolved target
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("GridCheck", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("base_url", config.Target.BaseURL).
		Str("test_id", config.Reporting.TestID).
		Msg("GridCheck starting")
}
