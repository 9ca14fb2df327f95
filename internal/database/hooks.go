package database

import (
	"time"

	"gorm.io/gorm"

	"example.com/shopfloor/services/report/internal/metrics"
)

// Instrument registers timing and outcome hooks on both connection pools so
// every database operation shows up in the metrics collector.
func (c *Connections) Instrument(m *metrics.Metrics) {
	for _, db := range []*gorm.DB{c.Write, c.Read} {
		if db == nil {
			continue
		}
		registerDurationHooks(db)
		registerMetricsHooks(db, m)
	}
}

// registerDurationHooks stamps the start time before each database operation
func registerDurationHooks(db *gorm.DB) {
	db.Callback().Create().Before("gorm:create").Register("duration:create", logDuration)
	db.Callback().Query().Before("gorm:query").Register("duration:query", logDuration)
	db.Callback().Update().Before("gorm:update").Register("duration:update", logDuration)
	db.Callback().Delete().Before("gorm:delete").Register("duration:delete", logDuration)
}

func logDuration(db *gorm.DB) {
	db.InstanceSet("start_time", time.Now())
}

// registerMetricsHooks records a timer and an outcome after each database
// operation completes.
func registerMetricsHooks(db *gorm.DB, m *metrics.Metrics) {
	db.Callback().Create().After("gorm:create").Register("metrics:create", recordQuery(m, "create"))
	db.Callback().Query().After("gorm:query").Register("metrics:query", recordQuery(m, "query"))
	db.Callback().Update().After("gorm:update").Register("metrics:update", recordQuery(m, "update"))
	db.Callback().Delete().After("gorm:delete").Register("metrics:delete", recordQuery(m, "delete"))
}

func recordQuery(m *metrics.Metrics, kind string) func(*gorm.DB) {
	timer := "db." + kind + "_ms"
	outcome := "db." + kind
	return func(db *gorm.DB) {
		if start, ok := db.InstanceGet("start_time"); ok {
			m.TimeSince(timer, start.(time.Time))
		}
		if db.Error == nil {
			m.RecordSuccess(outcome)
		} else {
			m.RecordError(outcome)
		}
	}
}
