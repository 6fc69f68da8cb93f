package logrus

import (
	"fmt"
	"github.com/lukasz-zimnoch/dexly/voluba"
	"github.com/sirupsen/logrus"
	"io"
	"os"
)

type wrapper struct {
	*logrus.Entry
}

func (w *wrapper) WithField(key string, value interface{}) voluba.Logger {
	return &wrapper{w.Entry.WithField(key, value)}
}

func (w *wrapper) WithFields(fields map[string]interface{}) voluba.Logger {
	return &wrapper{w.Entry.WithFields(fields)}
}

// ConfigureStandardLogger sets up the logrus standard logger with field
// names understood by Cloud Logging and returns it as voluba.Logger.
func ConfigureStandardLogger(format, level string) (voluba.Logger, error) {
	return configure(logrus.StandardLogger(), os.Stdout, format, level)
}

func configure(
	logger *logrus.Logger,
	output io.Writer,
	format,
	level string,
) (voluba.Logger, error) {
	fieldMap := logrus.FieldMap{
		logrus.FieldKeyLevel: "severity",
		logrus.FieldKeyMsg:   "message",
	}

	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			FieldMap: fieldMap,
		})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			FieldMap:      fieldMap,
		})
	default:
		return nil, fmt.Errorf("unknown log format [%v]", format)
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("could not parse log level: [%v]", err)
	}

	logger.SetLevel(logLevel)

	logger.SetOutput(output)

	return &wrapper{logger.WithFields(map[string]interface{}{})}, nil
}
