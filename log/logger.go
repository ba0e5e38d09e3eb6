package log

import (
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

// Logger is the logger handed to every component.
type Logger = logrus.Logger

// Fields is the structured field map used with WithFields.
type Fields = logrus.Fields

const (
	// default log level
	defaultLogLevel = logrus.InfoLevel

	// log file name
	globalLogFileName = "global.log"
	// default log directory
	logDir = "nodelogs"
	// default log file params
	defaultLogMaxSize    = 500 // maximum file size before rotation, in MB
	defaultLogMaxBackups = 3   // maximum number of old log files to keep
	defaultLogMaxAge     = 28  // maximum number of days to retain old log files
)

var (
	// Global is the logger used by package level helpers and the CLI
	Global *logrus.Logger

	// default logfile path
	defaultLogFilePath = "./" + logDir + "/" + globalLogFileName
)

func init() {
	Global = createStandardLogger(defaultLogFilePath, defaultLogLevel.String(), true)
}

func SetGlobalLogger(logFilename string, logLevel string) {
	if logFilename == "" {
		logFilename = defaultLogFilePath
	}
	// Change global logger's output
	output := &lumberjack.Logger{
		Filename:   logFilename,
		MaxSize:    defaultLogMaxSize,
		MaxBackups: defaultLogMaxBackups,
		MaxAge:     defaultLogMaxAge,
	}
	Global.SetOutput(io.MultiWriter(output, os.Stdout))

	// Change global logger's level
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = defaultLogLevel
	}
	Global.SetLevel(level)
}

// NewLogger creates a component logger writing to its own rotated file.
func NewLogger(logFilename string, logLevel string) *logrus.Logger {
	if logFilename == "" {
		logFilename = defaultLogFilePath
	}
	componentLogger := createStandardLogger(logFilename, logLevel, false)
	componentLogger.WithFields(logrus.Fields{
		"path":  logFilename,
		"level": logLevel,
	}).Info("Component logger started")
	return componentLogger
}

// NewNullLogger returns a logger discarding all output. Used by tests and
// tooling that must stay quiet.
func NewNullLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func createStandardLogger(logFilename string, logLevel string, stdOut bool) *logrus.Logger {
	logger := logrus.New()
	output := &lumberjack.Logger{
		Filename:   logFilename,
		MaxSize:    defaultLogMaxSize,
		MaxBackups: defaultLogMaxBackups,
		MaxAge:     defaultLogMaxAge,
	}

	if stdOut {
		logger.SetOutput(io.MultiWriter(output, os.Stdout))
	} else {
		logger.SetOutput(output)
	}

	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		PadLevelText:    true,
		FullTimestamp:   true,
		TimestampFormat: "01-02|15:04:05.000",
	})
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = defaultLogLevel
	}
	logger.SetLevel(level)
	return logger
}

func WithField(key string, val interface{}) *logrus.Entry {
	return Global.WithField(key, val)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Global.WithFields(fields)
}

func Trace(keyvals ...interface{}) {
	Global.Trace(keyvals...)
}

func Tracef(msg string, args ...interface{}) {
	Global.Tracef(msg, args...)
}

func Debug(keyvals ...interface{}) {
	Global.Debug(keyvals...)
}

func Debugf(msg string, args ...interface{}) {
	Global.Debugf(msg, args...)
}

func Info(keyvals ...interface{}) {
	Global.Info(keyvals...)
}

func Infof(msg string, args ...interface{}) {
	Global.Infof(msg, args...)
}

func Warn(keyvals ...interface{}) {
	Global.Warn(keyvals...)
}

func Warnf(msg string, args ...interface{}) {
	Global.Warnf(msg, args...)
}

func Error(keyvals ...interface{}) {
	Global.Error(keyvals...)
}

func Errorf(msg string, args ...interface{}) {
	Global.Errorf(msg, args...)
}

func Fatal(keyvals ...interface{}) {
	Global.Fatal(keyvals...)
}

func Fatalf(msg string, args ...interface{}) {
	Global.Fatalf(msg, args...)
}
