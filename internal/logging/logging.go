// Package logging wraps zap behind a narrow interface so the core packages
// never import zap directly: §6 requires that no log output be necessary
// for correctness, and tests should be able to inject a no-op logger.
package logging

// Logger is the only logging surface the core depends on.
type Logger interface {
	Tracef(template string, args ...interface{})
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Nop discards everything. Used by tests and as a safe zero value.
type Nop struct{}

func (Nop) Tracef(string, ...interface{}) {}
func (Nop) Debugf(string, ...interface{}) {}
func (Nop) Infof(string, ...interface{})  {}
func (Nop) Warnf(string, ...interface{})  {}
func (Nop) Errorf(string, ...interface{}) {}
