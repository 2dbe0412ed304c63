package appinit

import (
	"os"
	"strings"

	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SetupLogger configures the logrus standard logger. An empty level means info and an empty format means text.
func SetupLogger(info *LogInfo) error {
	level := log.InfoLevel
	if info != nil && info.Level != "" {
		parsed, err := log.ParseLevel(info.Level)
		if err != nil {
			return errors.Wrapf(err, "日志级别 '%v' 不合法", info.Level)
		}
		level = parsed
	}
	log.SetLevel(level)

	format := ""
	if info != nil {
		format = strings.ToLower(info.Format)
	}
	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
	}

	log.SetOutput(os.Stdout)

	return nil
}
