package logging

import (
	"encoding/hex"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnvVar selects the log level when no level is given explicitly.
// Unset or empty means no log output at all.
const LogLevelEnvVar = "PUARA_LOG_LEVEL"

// maxDump bounds the bytes rendered by the dump helpers.
const maxDump = 256

var logger *zap.Logger

// Initialize installs the package logger at level ("debug", "info", "warn",
// "error"). An empty level falls back to PUARA_LOG_LEVEL, and to a no-op
// logger when that is empty too.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(parseLevel(level)),
	)
	logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	return nil
}

// parseLevel maps a level name to a zap level. Names zap does not know
// log at info.
func parseLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// InitializeFromEnv is Initialize driven by PUARA_LOG_LEVEL alone.
func InitializeFromEnv() error {
	return Initialize("")
}

// SetLogger replaces the package logger; nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the package logger.
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func Info(msg string, fields ...zap.Field)  { GetLogger().Info(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }

// Fatal logs and exits the process.
func Fatal(msg string, fields ...zap.Field) { GetLogger().Fatal(msg, fields...) }

// LogWiFiEvent logs a lifecycle event delivered by the radio.
func LogWiFiEvent(event string, iface string, fields ...zap.Field) {
	Info("WiFi event", append([]zap.Field{
		zap.String("event", event),
		zap.String("iface", iface),
	}, fields...)...)
}

// LogSettingWrite logs a persisted configuration write. The bytes of secret
// fields are never logged, only their length.
func LogSettingWrite(key string, raw []byte, secret bool) {
	fields := []zap.Field{zap.String("key", key), zap.Int("length", len(raw))}
	if !secret {
		fields = append(fields, zap.String("hex", hexDump(raw)))
	}
	Debug("Setting persisted", fields...)
}

// LogConsoleCommand logs one line received by a console session.
func LogConsoleCommand(transport string, remote string, line string) {
	Debug("Console command",
		zap.String("transport", transport),
		zap.String("remote", remote),
		zap.String("line", line),
	)
}

// LogRawBytes logs a payload as hex and printable ASCII.
func LogRawBytes(label string, data []byte) {
	Debug(label,
		zap.Int("length", len(data)),
		zap.String("hex", hexDump(data)),
		zap.String("ascii", asciiDump(data)),
	)
}

func hexDump(data []byte) string {
	if len(data) > maxDump {
		return hex.EncodeToString(data[:maxDump]) + "..."
	}
	return hex.EncodeToString(data)
}

func asciiDump(data []byte) string {
	if len(data) > maxDump {
		data = data[:maxDump]
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = '.'
		if b >= ' ' && b <= '~' {
			out[i] = b
		}
	}
	return string(out)
}

// Sync flushes buffered entries.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
