package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// New monta o logger do serviço. "json" é o formato da API em produção;
// a CLI usa "text".
func New(level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(formatter(format))

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
		log.WithField("level", level).Warn("Nível de log desconhecido, usando info")
	}
	log.SetLevel(parsed)

	return log
}

func formatter(format string) logrus.Formatter {
	if format == "json" {
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	}
}
