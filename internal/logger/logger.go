package logger

import (
	"go.uber.org/zap"
)

// New builds the process logger. Production gets JSON output at info level;
// anything else gets the development console encoder.
func New(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Must is New for callers that cannot continue without a logger.
func Must(production bool) *zap.Logger {
	return zap.Must(New(production))
}
