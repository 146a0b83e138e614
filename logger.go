package gitredate

import "log/slog"

// logger is the logger for the package. By default it is [slog.Default].
var logger = slog.Default()

// SetLogger sets the logger used by the package.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}

	logger = l
}
