package logging

import (
	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process-wide logrus logger.
type Options struct {
	Level      string
	Format     string
	FilePath   string
	MaxSizeMB  int
	MaxAgeDays int
}

// Setup configures the standard logrus logger. When FilePath is set, all
// levels are additionally written to a size/age-rotated file.
func Setup(opts Options) {
	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if opts.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if opts.FilePath != "" {
		rotated := &lumberjack.Logger{
			Filename: opts.FilePath,
			MaxSize:  opts.MaxSizeMB,
			MaxAge:   opts.MaxAgeDays,
			Compress: true,
		}
		log.AddHook(lfshook.NewHook(lfshook.WriterMap{
			log.PanicLevel: rotated,
			log.FatalLevel: rotated,
			log.ErrorLevel: rotated,
			log.WarnLevel:  rotated,
			log.InfoLevel:  rotated,
			log.DebugLevel: rotated,
		}, &log.JSONFormatter{}))
	}
}
