package hostapi

import "addonhost/internal/addonhost/hostlog"

// LoggerGroup is the logger.* surface an addon calls. Every line is
// prefixed with the owning addon id before it reaches the host logger,
// so mixed-addon log output stays attributable.
type LoggerGroup struct {
	log hostlog.Logger
}

func newLoggerGroup(base hostlog.Logger, addonID string) LoggerGroup {
	return LoggerGroup{log: hostlog.Prefixed(base, addonID)}
}

func (l LoggerGroup) Error(msg string, args ...any) { l.log.Error(msg, args...) }
func (l LoggerGroup) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l LoggerGroup) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l LoggerGroup) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }

// Trace is the finest log level the bridge exposes. hostlog has no
// dedicated trace level, so it rides on Debug with its own marker
// rather than growing the Logger interface for one caller.
func (l LoggerGroup) Trace(msg string, args ...any) {
	l.log.Debug("TRACE "+msg, args...)
}
