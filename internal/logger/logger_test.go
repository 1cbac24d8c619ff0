package logger

import (
	"archive/zip"
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		" warn ":  LevelWarn,
		"warning": LevelWarn,
		"Error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	defer SetLevel(Level(minLevel.Load()))
	SetLevel(LevelWarn)

	var buf bytes.Buffer
	l := NewWithOutput("engine", &buf)
	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "[WARN] warn 3"), lines[0])
	assert.Contains(t, lines[0], "component=engine")
	assert.True(t, strings.HasPrefix(lines[1], "[ERROR] error 4"), lines[1])

	var nilLogger *Logger
	assert.NotPanics(t, func() { nilLogger.Errorf("ignored") })
}

func TestLoggerWithFields(t *testing.T) {
	defer SetLevel(Level(minLevel.Load()))
	SetLevel(LevelInfo)

	var buf bytes.Buffer
	base := NewWithOutput("engine", &buf)
	base.With("run", "r-1").With("sheet", "BalanceSheet").Infof("writing %d cells", 5)

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "[INFO] writing 5 cells"), line)
	assert.Contains(t, line, "component=engine")
	assert.Contains(t, line, "run=r-1")
	assert.Contains(t, line, "sheet=BalanceSheet")

	var nilLogger *Logger
	assert.Nil(t, nilLogger.With("k", "v"))
}

func TestLoggerServiceWritesFile(t *testing.T) {
	dir := t.TempDir()
	svc := NewLoggerService(map[string]interface{}{"folder_path": dir, "max_file_mb": 1, "retention_days": 7})
	assert.Equal(t, "logger", svc.Name())
	assert.Equal(t, int64(1024*1024), svc.maxFileBytes)

	require.NoError(t, svc.Start())
	SetGlobalLogger(svc)
	Audit("sheet=BalanceSheet generated")
	SetGlobalLogger(nil)
	require.NoError(t, svc.Stop())
	log.SetOutput(os.Stderr)

	data, err := os.ReadFile(svc.currentLog)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[AUDIT] sheet=BalanceSheet generated")
}

func TestZipAndCleanOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "reports_20200101_000000.log")
	fresh := filepath.Join(dir, "reports_fresh.log")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("fresh"), 0o644))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	svc := NewLoggerService(map[string]interface{}{"folder_path": dir, "retention_days": 7})
	svc.zipAndCleanOldLogs()

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err), "old log is removed")
	_, err = os.Stat(fresh)
	assert.NoError(t, err)

	zr, err := zip.OpenReader(filepath.Join(dir, "logs_"+time.Now().Format("20060102")+".zip"))
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, filepath.Base(old), zr.File[0].Name)
}
