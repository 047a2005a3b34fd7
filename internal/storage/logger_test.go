package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"permock/internal/ctxkeys"
	logger2 "permock/internal/logger"
)

// captureLogger 记录每次日志调用的消息与键值对
type captureLogger struct {
	entries []capturedEntry
}

type capturedEntry struct {
	msg string
	kv  []any
}

func (c *captureLogger) record(msg string, kv []any) {
	c.entries = append(c.entries, capturedEntry{msg: msg, kv: kv})
}

func (c *captureLogger) Debug(msg string, kv ...any)        { c.record(msg, kv) }
func (c *captureLogger) Info(msg string, kv ...any)         { c.record(msg, kv) }
func (c *captureLogger) Warn(msg string, kv ...any)         { c.record(msg, kv) }
func (c *captureLogger) Error(msg string, kv ...any)        { c.record(msg, kv) }
func (c *captureLogger) Err(_ error, msg string, kv ...any) { c.record(msg, kv) }
func (c *captureLogger) With(_ ...any) logger2.Logger       { return c }

func kvValue(kv []any, key string) any {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == key {
			return kv[i+1]
		}
	}
	return nil
}

func TestGormLoggerCarriesTraceID(t *testing.T) {
	cl := &captureLogger{}
	gl := NewGormLogger(cl).LogMode(logger.Info)
	ctx := context.WithValue(context.Background(), ctxkeys.TraceIDKey{}, "t-42")

	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)

	require.Len(t, cl.entries, 1)
	assert.Equal(t, "SQL执行", cl.entries[0].msg)
	assert.Equal(t, "t-42", kvValue(cl.entries[0].kv, "traceId"))
	assert.Equal(t, "SELECT 1", kvValue(cl.entries[0].kv, "sql"))
}

func TestGormLoggerDefaultLevelStillCorrelatesErrors(t *testing.T) {
	// 默认级别下成功 SQL 静默，错误仍要带 trace 暴露出来
	cl := &captureLogger{}
	gl := NewGormLogger(cl)
	ctx := context.WithValue(context.Background(), ctxkeys.TraceIDKey{}, "t-7")

	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	require.Empty(t, cl.entries)

	gl.Trace(ctx, time.Now(), func() (string, int64) { return "INSERT", 0 }, errors.New("locked"))
	require.Len(t, cl.entries, 1)
	assert.Equal(t, "SQL执行错误", cl.entries[0].msg)
	assert.Equal(t, "t-7", kvValue(cl.entries[0].kv, "traceId"))
}
