package db

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record 保存任意集合中的一条记录，字段以 JSON 形式存放在 Data 中。
type Record struct {
	ID         string    `gorm:"primaryKey;size:32"`
	Collection string    `gorm:"size:64;not null;index:idx_records_collection_created,priority:1"`
	Data       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"index:idx_records_collection_created,priority:2"`
	UpdatedAt  time.Time
}

// TableName 指定自定义表名。
func (Record) TableName() string {
	return "records"
}

// Fields decodes the JSON payload.
func (r Record) Fields() (map[string]any, error) {
	out := map[string]any{}
	if strings.TrimSpace(r.Data) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(r.Data), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetFields encodes the JSON payload.
func (r *Record) SetFields(fields map[string]any) error {
	if fields == nil {
		fields = map[string]any{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	r.Data = string(raw)
	return nil
}

// NewRecordID returns a 15 character lowercase id.
func NewRecordID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:15]
}
