package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitee.com/czyczk/datawave/pkg/errorcode"
)

type store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

func exerciseStore(t *testing.T, s store) {
	_, err := s.Get("sessionKey")
	assert.Equal(t, errorcode.ErrorNotFound, err)

	if isNoError := assert.NoError(t, s.Set("sessionKey", []byte("v1"))); !isNoError {
		t.FailNow()
	}
	value, err := s.Get("sessionKey")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, []byte("v1"), value)

	// 覆盖写入
	assert.NoError(t, s.Set("sessionKey", []byte("v2")))
	value, _ = s.Get("sessionKey")
	assert.Equal(t, []byte("v2"), value)

	assert.NoError(t, s.Delete("sessionKey"))
	_, err = s.Get("sessionKey")
	assert.Equal(t, errorcode.ErrorNotFound, err)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestBadgerStoreInMemory(t *testing.T) {
	s, err := NewBadgerStore("")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	defer s.Close()

	exerciseStore(t, s)
}

func TestBadgerStorePersists(t *testing.T) {
	dir := t.TempDir()

	s, err := NewBadgerStore(dir)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.NoError(t, s.Set("sessionKey", []byte("persisted")))
	assert.NoError(t, s.Close())

	reopened, err := NewBadgerStore(dir)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	defer reopened.Close()

	value, err := reopened.Get("sessionKey")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, []byte("persisted"), value)
}
