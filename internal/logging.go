package internal

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"os"
)

type LevelSet map[zapcore.Level]bool

func (ls LevelSet) Enabled(l zapcore.Level) bool {
	return ls[l]
}

var logLevels LevelSet

func SetAllowedLogLevels(levels ...zapcore.Level) {
	newLevels := make(LevelSet)
	for _, lvl := range levels {
		newLevels[lvl] = true
	}
	logLevels = newLevels
	InitLogger()
}

func InitLogger() {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:       "", // Disable timestamp
		LevelKey:      "", // Disable log level
		CallerKey:     "", // Disable caller
		FunctionKey:   "", // Disable function name
		StacktraceKey: "", // Disable stacktrace
		MessageKey:    "msg",
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}

	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)

	stdoutWriter := zapcore.Lock(os.Stdout)
	stderrWriter := zapcore.Lock(os.Stderr)

	// INFO & (optionally) DEBUG logs → stdout
	stdoutCore := zapcore.NewCore(consoleEncoder, stdoutWriter, zap.LevelEnablerFunc(logLevels.Enabled))

	// WARN, ERROR, and FATAL logs → stderr (always enabled)
	stderrCore := zapcore.NewCore(consoleEncoder, stderrWriter, zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.WarnLevel
	}))

	logger := zap.New(zapcore.NewTee(stdoutCore, stderrCore))

	zap.ReplaceGlobals(logger)
}

// NewDebugFileLogger writes JSONL debug output to path, one object per line
// for grep/jq tooling. The returned closer flushes and closes the file.
func NewDebugFileLogger(path string) (*zap.SugaredLogger, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), zapcore.DebugLevel)
	logger := zap.New(core)

	closer := func() {
		_ = logger.Sync()
		_ = f.Close()
	}
	return logger.Sugar(), closer, nil
}
