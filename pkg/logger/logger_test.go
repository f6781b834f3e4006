package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLoggersWritesJSONFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	prev := []*zap.Logger{ErrorLogger, AuditLogger, RequestLogger, SecurityLogger, SystemLogger, ContextLogger}
	t.Cleanup(func() {
		ErrorLogger, AuditLogger, RequestLogger = prev[0], prev[1], prev[2]
		SecurityLogger, SystemLogger, ContextLogger = prev[3], prev[4], prev[5]
	})

	require.NoError(t, InitLoggers(dir))
	AuditLogger.Info("Task created", zap.String("task_id", "42"))
	ErrorLogger.Info("ignored below error level")
	SyncLoggers()

	audit, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(audit), `"task_id":"42"`)
	assert.Contains(t, string(audit), `"timestamp"`)

	errs, err := os.ReadFile(filepath.Join(dir, "errors.log"))
	require.NoError(t, err)
	assert.Empty(t, errs)
}
