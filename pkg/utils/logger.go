package utils

import (
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger *logrus.Logger

// LogRotation controls log-file rotation when output is a file.
type LogRotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// InitLogger initializes the global logger
func InitLogger(level, format, output, file string, rotation *LogRotation) error {
	Logger = logrus.New()

	// Set log level
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(logLevel)

	// Set format
	if format == "json" {
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	}

	// Set output
	if output == "file" && file != "" {
		writer := &lumberjack.Logger{
			Filename: file,
		}
		if rotation != nil {
			writer.MaxSize = rotation.MaxSizeMB
			writer.MaxBackups = rotation.MaxBackups
			writer.MaxAge = rotation.MaxAgeDays
		}
		Logger.SetOutput(writer)
	} else {
		Logger.SetOutput(os.Stdout)
	}

	return nil
}

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	if Logger == nil {
		// Initialize with defaults if not already initialized
		InitLogger("info", "json", "stdout", "", nil)
	}
	return Logger
}
