// Package logging re-exports the logger setup and request ID helpers for SDK consumers.
package logging

import (
	"context"

	internallogging "github.com/flistgo/flistapi/internal/logging"
	"github.com/flistgo/flistapi/sdk/config"
)

// LogFormatter is the line format used by the client's log output.
type LogFormatter = internallogging.LogFormatter

// SetupBaseLogger installs the client's formatter on the standard logrus logger.
func SetupBaseLogger() { internallogging.SetupBaseLogger() }

// ConfigureLogOutput applies the level and destination from cfg.
func ConfigureLogOutput(cfg *config.Config) error { return internallogging.ConfigureLogOutput(cfg) }

// WithRequestID tags ctx so every log line of calls made with it carries requestID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return internallogging.WithRequestID(ctx, requestID)
}

// GenerateRequestID creates a new 8-character hex request ID.
func GenerateRequestID() string { return internallogging.GenerateRequestID() }
