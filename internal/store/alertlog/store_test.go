package alertlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogAppendAndRecent(t *testing.T) {
	l, err := NewAuditLog(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, "trace-1", `{"message":"BOUGHT NDX 20700C 3/6"}`))
	require.NoError(t, l.Append(ctx, "trace-2", `{"message":"SOLD AAPL all out"}`))

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// 倒序：最新的在前
	assert.Equal(t, "trace-2", entries[0].TraceID)
	assert.Equal(t, "trace-1", entries[1].TraceID)
	assert.Contains(t, entries[0].Body, "SOLD AAPL")
	assert.NotZero(t, entries[0].ReceivedAt)
}

func TestAuditLogRecentLimit(t *testing.T) {
	l, err := NewAuditLog(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(ctx, "trace", "body"))
	}
	entries, err := l.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// limit 非法时回落默认值
	entries, err = l.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestAuditLogRequiresPath(t *testing.T) {
	_, err := NewAuditLog("  ")
	assert.Error(t, err)
}
