package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newDryRunDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "datawave:datawave@tcp(127.0.0.1:3306)/datawave?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	return db
}

func TestSetGeneratesUpsert(t *testing.T) {
	store := NewSessionStoreGormImpl(newDryRunDB(t))

	stmt := store.upsert(store.DB, "sessionKey", []byte("value")).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, "INSERT INTO `session_kvs`")
	assert.Contains(t, sql, "ON DUPLICATE KEY UPDATE")
	assert.Contains(t, stmt.Vars, "sessionKey")
}

func TestSetDryRun(t *testing.T) {
	store := NewSessionStoreGormImpl(newDryRunDB(t))
	assert.NoError(t, store.Set("sessionKey", []byte("value")))
}
