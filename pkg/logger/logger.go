package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerInstance menyimpan logger yang sudah diinisialisasi.
// Sebelum InitLoggers dipanggil semuanya adalah no-op logger, sehingga
// package lain dan test bisa memakainya tanpa inisialisasi.
var (
	ErrorLogger    = zap.NewNop()
	AuditLogger    = zap.NewNop()
	RequestLogger  = zap.NewNop()
	SecurityLogger = zap.NewNop()
	SystemLogger   = zap.NewNop()
	ContextLogger  = zap.NewNop()
)

func newLogger(filePath string, level zapcore.Level) (*zap.Logger, error) {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	ws := zapcore.AddSync(file)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		ws,
		level,
	)
	return zap.New(core), nil
}

// InitLoggers membuat satu file log per kategori di dalam dir.
func InitLoggers(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	specs := []struct {
		target **zap.Logger
		file   string
		level  zapcore.Level
	}{
		{&ErrorLogger, "errors.log", zapcore.ErrorLevel},
		{&AuditLogger, "audit.log", zapcore.InfoLevel},
		{&RequestLogger, "request.log", zapcore.InfoLevel},
		{&SecurityLogger, "security.log", zapcore.WarnLevel},
		{&SystemLogger, "system.log", zapcore.InfoLevel},
		{&ContextLogger, "context.log", zapcore.DebugLevel},
	}
	for _, s := range specs {
		l, err := newLogger(filepath.Join(dir, s.file), s.level)
		if err != nil {
			return err
		}
		*s.target = l
	}
	return nil
}

func SyncLoggers() {
	_ = ErrorLogger.Sync()
	_ = AuditLogger.Sync()
	_ = RequestLogger.Sync()
	_ = SecurityLogger.Sync()
	_ = SystemLogger.Sync()
	_ = ContextLogger.Sync()
}
