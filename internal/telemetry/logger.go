// Package telemetry provides the module's single structured logger.
// Only I/O-touching components log (the table loader, the CLI, and
// one debug entry when the MF engine starts executing a plan); the
// pure parser/validator/evaluator
// packages never import this package, matching spec §2's "every
// component below C6 is pure (no I/O)".
package telemetry

import (
	"os"

	"go.uber.org/zap"
)

var logger *zap.SugaredLogger

// L returns the process-wide sugared logger, building it lazily from
// ESQL_ENV on first use ("production" for JSON output, anything else
// for human-readable development output).
func L() *zap.SugaredLogger {
	if logger == nil {
		logger = newLogger()
	}
	return logger
}

func newLogger() *zap.SugaredLogger {
	var cfg zap.Config
	if os.Getenv("ESQL_ENV") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return z.Sugar()
}

// SetForTesting installs a no-op logger, for tests that want to
// silence engine/loader log output.
func SetForTesting() {
	logger = zap.NewNop().Sugar()
}
