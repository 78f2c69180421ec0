package zk

import "github.com/sirupsen/logrus"

// defaultLogger is a discard logger: per design notes §9, this package
// never installs a process-wide logger implicitly. An embedding
// application calls SetLogger once during startup to get output.
var defaultLogger = newDiscardLogger()

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// SetLogger installs l as the logger every Conn created afterward uses by
// default. It is the explicit init hook called for in design notes §9;
// passing nil restores the silent default.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		defaultLogger = newDiscardLogger()
		return
	}
	defaultLogger = l
}
