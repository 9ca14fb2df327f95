package tracing

import (
	"os"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/shopfloor/services/report/config"
)

// Tracer provides distributed tracing functionality
type Tracer interface {
	StartTransaction(name string) *newrelic.Transaction
	StartSpan(name string, txn *newrelic.Transaction) *newrelic.Segment
	EndTransaction(txn *newrelic.Transaction)
	RecordError(txn *newrelic.Transaction, err error)
	AddAttribute(txn *newrelic.Transaction, key string, value interface{})
	Close()
}

// NewRelicTracer implements Tracer using New Relic
type NewRelicTracer struct {
	app     *newrelic.Application
	enabled bool
}

// NewTracer creates a tracer from configuration. Without a license key the
// tracer stays disabled and every operation is a no-op.
func NewTracer(cfg config.TracingConfig) (Tracer, error) {
	if cfg.LicenseKey == "" {
		log.Warn().Msg("New Relic license key not provided, tracing disabled")
		return &NewRelicTracer{enabled: false}, nil
	}

	opts := []newrelic.ConfigOption{
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(cfg.DistribTracing),
	}
	if cfg.LogEnabled {
		if cfg.LogLevel == "debug" {
			opts = append(opts, newrelic.ConfigDebugLogger(os.Stdout))
		} else {
			opts = append(opts, newrelic.ConfigInfoLogger(os.Stdout))
		}
	}

	app, err := newrelic.NewApplication(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create New Relic application")
	}

	log.Info().Str("app_name", cfg.AppName).Msg("New Relic tracing initialized")
	return &NewRelicTracer{app: app, enabled: true}, nil
}

// StartTransaction starts a new transaction
func (t *NewRelicTracer) StartTransaction(name string) *newrelic.Transaction {
	if !t.enabled {
		return nil
	}
	return t.app.StartTransaction(name)
}

// StartSpan starts a new segment within a transaction
func (t *NewRelicTracer) StartSpan(name string, txn *newrelic.Transaction) *newrelic.Segment {
	if !t.enabled || txn == nil {
		return nil
	}
	return txn.StartSegment(name)
}

// EndTransaction ends a transaction
func (t *NewRelicTracer) EndTransaction(txn *newrelic.Transaction) {
	if txn != nil {
		txn.End()
	}
}

// RecordError records an error against a transaction
func (t *NewRelicTracer) RecordError(txn *newrelic.Transaction, err error) {
	if t.enabled && txn != nil && err != nil {
		txn.NoticeError(err)
	}
}

// AddAttribute adds a custom attribute to a transaction
func (t *NewRelicTracer) AddAttribute(txn *newrelic.Transaction, key string, value interface{}) {
	if t.enabled && txn != nil {
		txn.AddAttribute(key, value)
	}
}

// Close shuts down the tracer
func (t *NewRelicTracer) Close() {
	if t.enabled && t.app != nil {
		t.app.Shutdown(10 * time.Second)
	}
}
