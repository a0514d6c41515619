package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerSetupParams struct {
	LogFileName   string
	LogToStdout   bool
	LogLevel      string
	LogFormatJSON bool
	// UIHook receives a copy of every entry for the on-screen log pane
	UIHook *UIHook
}

// Setup builds the application logger. With a file name the output goes to a
// rotating file, because the terminal UI owns stdout.
func Setup(params LoggerSetupParams) (*logrus.Logger, io.Closer) {
	logger := logrus.New()
	if params.LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
	logger.SetLevel(GetLevel(params.LogLevel))
	if params.UIHook != nil {
		logger.AddHook(params.UIHook)
	}

	if params.LogFileName == "" {
		if params.LogToStdout {
			logger.SetOutput(os.Stdout)
		} else {
			logger.SetOutput(io.Discard)
		}
		return logger, nopCloser{}
	}

	if !strings.HasSuffix(params.LogFileName, ".log") {
		params.LogFileName += ".log"
	}
	if err := os.MkdirAll(filepath.Dir(params.LogFileName), 0o755); err != nil {
		logger.SetOutput(os.Stderr)
		logger.Errorf("Cannot create log dir, logging to stderr: %s", err)
		return logger, nopCloser{}
	}

	lumberJackLogger := &lumberjack.Logger{
		Filename:   params.LogFileName,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		Compress:   true,
	}
	if params.LogToStdout {
		logger.SetOutput(io.MultiWriter(os.Stdout, lumberJackLogger))
	} else {
		logger.SetOutput(lumberJackLogger)
	}
	return logger, lumberJackLogger
}

func GetLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "trace":
		return logrus.TraceLevel
	case "warn", "warning":
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
