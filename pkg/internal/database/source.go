package database

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

type Config struct {
	DSN    string
	Prefix string
	Debug  bool
}

func NewGorm(cfg Config) (*gorm.DB, error) {
	return Open(postgres.Open(cfg.DSN), cfg)
}

// Open builds a gorm connection on top of any dialector, so the same settings
// are shared between the production database and the test harness.
func Open(dialector gorm.Dialector, cfg Config) (*gorm.DB, error) {
	dbLogger := logger.New(&log.Logger, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		Colorful:                  true,
		IgnoreRecordNotFoundError: true,
		LogLevel:                  lo.Ternary(cfg.Debug, logger.Info, logger.Silent),
	})

	return gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: cfg.Prefix,
		},
		Logger:         dbLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}
