package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how logs are written.
type Options struct {
	Dir   string
	Level string
	Debug bool
	// Console receives the human-facing copy of each entry. Defaults to stdout.
	Console *os.File
}

// NewLogger configures a logrus logger that writes to stdout and a rotated
// app.log under Dir. The returned closer flushes the rotated file.
func NewLogger(opts Options) (*logrus.Logger, io.Closer, error) {
	if err := os.MkdirAll(opts.Dir, os.ModePerm); err != nil {
		return nil, nil, err
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, "app.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	log := logrus.New()
	log.SetOutput(io.MultiWriter(console, logFile))
	log.SetFormatter(formatterFor(console))

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if opts.Debug {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	return log, logFile, nil
}

// formatterFor picks a human readable format for terminals and JSON otherwise.
func formatterFor(f *os.File) logrus.Formatter {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		}
	}
	return &logrus.JSONFormatter{}
}
