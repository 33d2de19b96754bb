package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log      *zap.Logger
	initOnce sync.Once
)

// Init builds the global logger. Development mode gives colored
// console output, production mode structured JSON.
func Init(development bool) error {
	var err error
	initOnce.Do(func() {
		var cfg zap.Config
		if development {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			cfg = zap.NewProductionConfig()
		}
		cfg.EncoderConfig.TimeKey = "time"
		log, err = cfg.Build()
	})
	return err
}

func L() *zap.Logger {
	if log == nil {
		panic("logger not initialized")
	}
	return log
}

func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
