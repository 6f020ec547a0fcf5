package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"tradesync/internal/alert"
	"tradesync/internal/store"
	"tradesync/internal/store/model"
)

// 中文说明：
// SQLite 告警存储：WAL + busy_timeout，小连接池。并发 webhook 写入
// 走每请求一次 gorm 调用，不持有长期写句柄，由 WAL 保证行级交错安全。

type SqliteStore struct {
	db *gorm.DB
}

var _ store.AlertStore = (*SqliteStore)(nil)

func NewSqliteStore(path string) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.OrderRecordModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record 落库一条记录并分配 id 与时间戳
func (s *SqliteStore) Record(ctx context.Context, traceID string, intent alert.TradeIntent, result store.DispatchResult) (store.OrderRecord, error) {
	intentJSON, err := json.Marshal(intent)
	if err != nil {
		return store.OrderRecord{}, fmt.Errorf("encoding intent: %w", err)
	}
	now := time.Now()
	m := model.OrderRecordModel{
		TraceID:       traceID,
		Trader:        intent.Trader,
		Symbol:        intent.Symbol,
		Action:        string(intent.Action),
		Quantity:      intent.Quantity,
		Instrument:    string(intent.Instrument),
		Strike:        intent.Strike,
		OptionType:    string(intent.OptionType),
		Expiration:    intent.Expiration,
		RawText:       intent.RawText,
		IntentJSON:    intentJSON,
		Status:        string(result.Status),
		BrokerOrderID: result.BrokerOrderID,
		ErrorMessage:  result.ErrorMessage,
		CreatedAtUnix: now.Unix(),
		UpdatedAtUnix: now.Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return store.OrderRecord{}, fmt.Errorf("inserting order record: %w", err)
	}
	return toRecord(m), nil
}

// List 按插入 id 倒序分页。limit 越界钳到 [1, MaxListLimit]，offset 钳到非负，
// 静默修正而不是报错。
func (s *SqliteStore) List(ctx context.Context, limit, offset int) ([]store.OrderRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > store.MaxListLimit {
		limit = store.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	var models []model.OrderRecordModel
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("listing order records: %w", err)
	}
	records := make([]store.OrderRecord, 0, len(models))
	for _, m := range models {
		records = append(records, toRecord(m))
	}
	return records, nil
}

// MarkClosed 审计注记：终态行唯一允许的变更
func (s *SqliteStore) MarkClosed(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).
		Model(&model.OrderRecordModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"closed": 1, "updated_at": time.Now().Unix()})
	if res.Error != nil {
		return fmt.Errorf("marking record closed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order record %d not found", id)
	}
	return nil
}

func (s *SqliteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// toRecord 解码持久化行。意图 JSON 损坏时返回带 Unparseable 标记的条目，
// 保留扁平列里的字段，不静默丢行。
func toRecord(m model.OrderRecordModel) store.OrderRecord {
	rec := store.OrderRecord{
		ID:            m.ID,
		TraceID:       m.TraceID,
		Status:        store.Status(m.Status),
		BrokerOrderID: m.BrokerOrderID,
		ErrorMessage:  m.ErrorMessage,
		Closed:        m.Closed != 0,
		CreatedAt:     time.Unix(m.CreatedAtUnix, 0),
		UpdatedAt:     time.Unix(m.UpdatedAtUnix, 0),
	}
	var intent alert.TradeIntent
	if err := json.Unmarshal(m.IntentJSON, &intent); err != nil {
		rec.Unparseable = true
		rec.Intent = alert.TradeIntent{
			Trader:     m.Trader,
			Action:     alert.Action(m.Action),
			Symbol:     m.Symbol,
			Quantity:   m.Quantity,
			Instrument: alert.Instrument(m.Instrument),
			Strike:     m.Strike,
			OptionType: alert.OptionType(m.OptionType),
			Expiration: m.Expiration,
			RawText:    m.RawText,
		}
		return rec
	}
	rec.Intent = intent
	return rec
}
