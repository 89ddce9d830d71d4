package logger

import (
	"io"
	"os"
	"strings"

	"fusion-portal-backend/pkg/config"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// New builds the process logger from config.
// 生产环境或非终端输出使用 JSON，开发终端使用彩色文本。
func New(cfg *config.Config) *logrus.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New writing to w
func NewWithWriter(cfg *config.Config, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	if cfg.Debug {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	if useJSON(cfg, w) {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg: "message",
			},
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
			ForceColors:     isTerminal(w),
		})
	}
	return log
}

func useJSON(cfg *config.Config, w io.Writer) bool {
	switch cfg.LogFormat {
	case "json":
		return true
	case "text":
		return false
	}
	return cfg.IsProduction() || !isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
