package database

import (
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"example.com/shopfloor/services/report/config"
)

// Connections bundles the write and read-only database handles. Reads go to
// the replica when one is configured and fall back to the write connection
// otherwise.
type Connections struct {
	Write *gorm.DB
	Read  *gorm.DB
}

// Connect opens both database connections and applies the pool limits
func Connect(cfg config.DatabaseConfig) (*Connections, error) {
	write, err := open(cfg.DSN, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to write database")
	}

	readDSN := cfg.ReadOnlyDSN
	if readDSN == "" {
		readDSN = cfg.DSN
	}
	read, err := open(readDSN, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to read-only database")
	}

	return &Connections{Write: write, Read: read}, nil
}

func open(dsn string, cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// Close releases both connection pools
func (c *Connections) Close() error {
	var firstErr error
	for _, db := range []*gorm.DB{c.Write, c.Read} {
		if db == nil {
			continue
		}
		sqlDB, err := db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := sqlDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
