package logs

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Level  string // debug|info|warn|error
	Format string // text|json
	File   string // пусто — stdout
}

// Logger — общий логгер процесса. До Init пишет в stderr с настройками по умолчанию.
var Logger = logrus.New()

func Init(opts Options) {
	Logger = New(opts)
}

func New(opts Options) *logrus.Logger {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	switch strings.ToLower(opts.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	l.SetOutput(output(opts.File, l))
	return l
}

func output(path string, l *logrus.Logger) io.Writer {
	if path == "" {
		return os.Stdout
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		l.SetOutput(os.Stdout)
		l.Warnf("log dir %s: %v, falling back to stdout", filepath.Dir(path), err)
		return os.Stdout
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		l.SetOutput(os.Stdout)
		l.Warnf("log file %s: %v, falling back to stdout", path, err)
		return os.Stdout
	}
	return f
}
