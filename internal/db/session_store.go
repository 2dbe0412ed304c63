package db

import (
	"gitee.com/czyczk/datawave/internal/models/sqlmodel"
	"gitee.com/czyczk/datawave/pkg/errorcode"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// OpenMySQL 使用 DSN 连接 MySQL 数据库，并迁移 session_kvs 表。
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "无法连接数据库")
	}

	if err = db.AutoMigrate(&sqlmodel.SessionKV{}); err != nil {
		return nil, errors.Wrap(err, "无法迁移数据库表")
	}

	return db, nil
}

// SessionStoreGormImpl 将键值数据保存在 session_kvs 表中。
type SessionStoreGormImpl struct {
	DB *gorm.DB
}

// NewSessionStoreGormImpl 创建一个基于 gorm 的键值存储。
func NewSessionStoreGormImpl(db *gorm.DB) *SessionStoreGormImpl {
	return &SessionStoreGormImpl{DB: db}
}

// Get 从数据库中读取指定键的值。键不存在时返回 `errorcode.ErrorNotFound`。
func (s *SessionStoreGormImpl) Get(key string) ([]byte, error) {
	var kv sqlmodel.SessionKV
	dbResult := s.DB.Where("`key` = ?", key).Take(&kv)
	if dbResult.Error != nil {
		if errors.Cause(dbResult.Error) == gorm.ErrRecordNotFound {
			return nil, errorcode.ErrorNotFound
		} else {
			return nil, errors.Wrap(dbResult.Error, "无法从数据库中获取键值")
		}
	}

	return kv.Value, nil
}

// Set 写入或覆盖指定键的值。
func (s *SessionStoreGormImpl) Set(key string, value []byte) error {
	dbResult := s.upsert(s.DB, key, value)
	if dbResult.Error != nil {
		return errors.Wrap(dbResult.Error, "无法将键值存入数据库")
	}

	return nil
}

func (s *SessionStoreGormImpl) upsert(db *gorm.DB, key string, value []byte) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&sqlmodel.SessionKV{Key: key, Value: value})
}
