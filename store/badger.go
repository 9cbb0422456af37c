package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/rushteam/shopsense/core"
)

// BadgerStore 是基于 BadgerDB 的本地持久化 Store。
// 单实例部署时可替代 Redis，重启后缓存仍在；过期依赖 Badger 的条目 TTL。
type BadgerStore struct {
	db     *badger.DB
	prefix []byte
}

// OpenBadgerStore 打开 dir 下的数据库；dir 为空时使用纯内存模式。
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, prefix: []byte("cache:")}, nil
}

// NewBadgerStore 使用已打开的数据库，Close 时会关闭它。
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db, prefix: []byte("cache:")}
}

func (b *BadgerStore) key(k string) []byte {
	out := make([]byte, 0, len(b.prefix)+len(k))
	out = append(out, b.prefix...)
	return append(out, k...)
}

func (b *BadgerStore) Name() string { return "badger" }

func (b *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return core.ErrStoreNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BadgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(b.key(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (b *BadgerStore) Delete(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(b.key(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	})
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

var _ core.Store = (*BadgerStore)(nil)
