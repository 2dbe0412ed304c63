// Package kvstore provides the local key-value stores used to persist the session key.
package kvstore

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gitee.com/czyczk/datawave/pkg/errorcode"
)

// BadgerStore keeps values in a badger database on local disk.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the database under dir. An empty dir opens an in-memory database.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "无法打开本地数据库 '%v'", dir)
	}
	log.Debugf("已打开本地数据库 '%v'", dir)

	return &BadgerStore{db: db}, nil
}

// Get returns errorcode.ErrorNotFound when key is absent.
func (s *BadgerStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, errorcode.ErrorNotFound
	} else if err != nil {
		return nil, errors.Wrapf(err, "无法读取键 '%v'", key)
	}

	return value, nil
}

func (s *BadgerStore) Set(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return errors.Wrapf(err, "无法写入键 '%v'", key)
	}

	return nil
}

func (s *BadgerStore) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return errors.Wrapf(err, "无法删除键 '%v'", key)
	}

	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
