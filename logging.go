package authclient

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
)

// NewDefaultLogger returns a pretty glog base logger named "authclient".
// Verbose drops the level to trace.
func NewDefaultLogger(verbose bool) *glog.BaseLogger {
	if verbose {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("authclient"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
		)
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("authclient"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)
}

// GlogProvider hands out named child loggers of base.
func GlogProvider(base *glog.BaseLogger) LoggerProvider {
	if base == nil {
		return nil
	}
	return LoggerProviderFunc(func(name string) Logger {
		return base.GetLogger(name)
	})
}
