package logger

// defLogger is the logger every component falls back to when none is configured.
var defLogger = NewSlog(InfoLevel, false)

// SetLevel sets the level of the package default logger.
func SetLevel(level LogLevel) {
	defLogger.SetLevel(level)
}

// GetLogger returns the package default logger.
func GetLogger() Logger {
	return defLogger
}
