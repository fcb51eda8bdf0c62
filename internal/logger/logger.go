package logger

import (
	"apex-dashboard/internal/config"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. Production runs log JSON at info;
// everything else gets the development console encoder.
func NewLogger(cfg *config.Config, buffer *LogBuffer) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Important: Enable Caller to get Function Name
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	finalCore := NewMetricsCore(baseLogger.Core(), buffer)

	return zap.New(finalCore, zap.AddCaller()).With(zap.String("app", cfg.AppId)), nil
}
