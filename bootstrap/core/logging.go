package core

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// LogLevel selects the minimum severity that gets written out.
type LogLevel = log.Level

const (
	DebugLevel LogLevel = log.DebugLevel
	InfoLevel  LogLevel = log.InfoLevel
	WarnLevel  LogLevel = log.WarnLevel
	ErrorLevel LogLevel = log.ErrorLevel
)

var logger *log.Logger
var once sync.Once

func getLogger() *log.Logger {
	once.Do(func() {
		l := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "Ignite 🔥 ",
		})
		l.SetLevel(log.DebugLevel)
		logger = l
	})
	return logger
}

// ParseLogLevel converts a configuration string such as "debug" or "warn".
func ParseLogLevel(level string) (LogLevel, error) {
	return log.ParseLevel(level)
}

func SetLogLevel(level LogLevel) {
	getLogger().SetLevel(level)
}

func LogDebug(msg string, args ...any) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...any) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...any) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...any) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...any) {
	getLogger().Fatalf(msg, args...)
}
