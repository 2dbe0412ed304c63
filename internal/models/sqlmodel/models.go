package sqlmodel

import (
	"time"
)

// SessionKV 定义了数据库表 session_kvs，用于在 MySQL 中持久化会话密钥等键值数据。
type SessionKV struct {
	Key       string    `gorm:"column:key;primaryKey;type:VARCHAR(255) NOT NULL"`
	Value     []byte    `gorm:"type:BLOB NOT NULL"`
	UpdatedAt time.Time `gorm:"not null"`
}

// 自定义 SessionKV 的表名。
func (SessionKV) TableName() string {
	return "session_kvs"
}
