package alertlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// 中文说明：
// 原始告警审计日志：webhook 收到的每条原文在解析前先落一行，
// 与订单记录分库，排查"解析器吃掉了什么"时直接看这里。
// 只追加不更新，轻量 database/sql 即可，不走 gorm。

// Entry 一条原始告警
type Entry struct {
	ID         int64  `json:"id"`
	TraceID    string `json:"trace_id"`
	Body       string `json:"body"`
	ReceivedAt int64  `json:"received_at"`
}

// AuditLog 告警审计日志存储
type AuditLog struct {
	db *sql.DB
}

func NewAuditLog(path string) (*AuditLog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("audit log path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS raw_alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trace_id TEXT NOT NULL,
		body TEXT NOT NULL,
		received_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating raw_alerts table: %w", err)
	}
	db.SetMaxOpenConns(2)
	return &AuditLog{db: db}, nil
}

// Append 追加一条原始告警
func (l *AuditLog) Append(ctx context.Context, traceID, body string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO raw_alerts (trace_id, body, received_at) VALUES (?, ?, ?)`,
		traceID, body, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("appending raw alert: %w", err)
	}
	return nil
}

// Recent 最近 limit 条，倒序
func (l *AuditLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, trace_id, body, received_at FROM raw_alerts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing raw alerts: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TraceID, &e.Body, &e.ReceivedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *AuditLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
