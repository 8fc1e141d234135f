package logger

import (
	"go.uber.org/zap"
)

// Log is the process-wide logger. Init must be called once from main before
// anything else logs; tests get a no-op logger by default.
var Log = zap.NewNop()

// Init builds the global logger. Debug mode switches to the development
// encoder with console output.
func Init(debug bool) error {
	var (
		l   *zap.Logger
		err error
	)

	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}

	Log = l
	return nil
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	_ = Log.Sync()
}
