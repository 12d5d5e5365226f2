package storage

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/storage/badger"
)

// NewReportStorage opens run-history storage when it is enabled.
// It returns nil storage and no error when history is disabled.
func NewReportStorage(logger arbor.ILogger, config *common.Config) (interfaces.ReportStorage, error) {
	if !config.Storage.Badger.Enabled {
		logger.Debug().Msg("Run history disabled")
		return nil, nil
	}

	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("path", config.Storage.Badger.Path).Msg("Run history storage initialized")
	return badger.NewRunStorage(logger, db), nil
}
