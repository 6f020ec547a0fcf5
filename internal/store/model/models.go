package model

import "gorm.io/datatypes"

// OrderRecordModel maps to 'order_records' table.
type OrderRecordModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	TraceID       string         `gorm:"column:trace_id;index"`
	Trader        string         `gorm:"column:trader"`
	Symbol        string         `gorm:"column:symbol;index"`
	Action        string         `gorm:"column:action"`
	Quantity      float64        `gorm:"column:quantity"`
	Instrument    string         `gorm:"column:instrument"`
	Strike        float64        `gorm:"column:strike"`
	OptionType    string         `gorm:"column:option_type"`
	Expiration    string         `gorm:"column:expiration"`
	RawText       string         `gorm:"column:raw_text"`
	IntentJSON    datatypes.JSON `gorm:"column:intent_json;type:TEXT"`
	Status        string         `gorm:"column:status;index"`
	BrokerOrderID string         `gorm:"column:broker_order_id"`
	ErrorMessage  string         `gorm:"column:error_message"`
	Closed        int            `gorm:"column:closed"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (OrderRecordModel) TableName() string { return "order_records" }
