package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"io"
)

// New builds the diagnostics logger writing to w, normally the process stderr.
// Only warnings and errors are shown unless verbose is set; stack traces are never
// printed.
func New(verbose bool, w io.Writer) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.DisableStacktrace = true
	config.DisableCaller = !verbose
	config.Sampling = nil

	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	sink := zapcore.AddSync(w)
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(config.EncoderConfig), sink, config.Level)

	return config.Build(
		zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }),
		zap.ErrorOutput(sink))
}
