package tradesim

import "go.uber.org/zap"

// logger is shared by tradesim and its sub packages. It discards everything
// until a command line installs a real one.
var logger = zap.NewNop()

// SetLogger installs l as the logger of tradesim and its sub packages.
// A nil l restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Logger returns the installed logger.
func Logger() *zap.Logger { return logger }
