package db

import (
	"authvault/config"
	"authvault/logs"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v2"
	lru "github.com/hashicorp/golang-lru"
)

// ErrClosed 数据库已关闭
var ErrClosed = errors.New("database is not initialized or closed")

// WriteOp 一条待落库的写操作，Del=true 表示删除
type WriteOp struct {
	Key   string
	Value []byte
	Del   bool
}

// Manager 封装 BadgerDB 的管理器
// 读路径带 LRU 缓存；写路径只有 Commit 一个入口，一次 badger 事务原子落库
type Manager struct {
	Db    *badger.DB
	mu    sync.RWMutex
	cache *lru.Cache

	commitTotal  uint64
	commitOps    uint64
	cacheHits    uint64
	cacheMisses  uint64
	inMemoryOnly bool
}

// Metrics 读写统计快照
type Metrics struct {
	CommitTotal uint64
	CommitOps   uint64
	CacheHits   uint64
	CacheMisses uint64
}

// NewManager 创建一个新的 DBManager 实例
// cfg.InMemory 或 cfg.Path 为空时使用 badger 内存模式（测试 / 临时 devnet）
func NewManager(cfg config.DatabaseConfig) (*Manager, error) {
	inMemory := cfg.InMemory || cfg.Path == ""

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// badger v2 不自动创建父目录，需要手动创建
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
		if cfg.ValueLogFileSize > 0 {
			opts.ValueLogFileSize = cfg.ValueLogFileSize
		}
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New(size)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create read cache: %w", err)
	}

	logs.Debug("[db] opened badger path=%q inMemory=%v cache=%d", cfg.Path, inMemory, size)
	return &Manager{Db: db, cache: cache, inMemoryOnly: inMemory}, nil
}

// Get 读取单个 key；key 不存在时返回 (nil, nil)
func (manager *Manager) Get(key string) ([]byte, error) {
	if v, ok := manager.cache.Get(key); ok {
		atomic.AddUint64(&manager.cacheHits, 1)
		return cloneBytes(v.([]byte)), nil
	}
	atomic.AddUint64(&manager.cacheMisses, 1)

	manager.mu.RLock()
	db := manager.Db
	manager.mu.RUnlock()
	if db == nil {
		return nil, ErrClosed
	}

	var value []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	manager.cache.Add(key, cloneBytes(value))
	return value, nil
}

// Scan 扫描指定前缀下的所有键值对
func (manager *Manager) Scan(prefix string) (map[string][]byte, error) {
	manager.mu.RLock()
	db := manager.Db
	manager.mu.RUnlock()
	if db == nil {
		return nil, ErrClosed
	}

	result := make(map[string][]byte)
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[string(item.KeyCopy(nil))] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Commit 在一个 badger 事务内写入整组写操作，要么全部生效要么全部不生效
func (manager *Manager) Commit(ops []WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	manager.mu.RLock()
	db := manager.Db
	manager.mu.RUnlock()
	if db == nil {
		return ErrClosed
	}

	// 固定顺序写入，便于复现
	sorted := make([]WriteOp, len(ops))
	copy(sorted, ops)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	err := db.Update(func(txn *badger.Txn) error {
		for _, op := range sorted {
			var err error
			if op.Del {
				err = txn.Delete([]byte(op.Key))
			} else {
				err = txn.Set([]byte(op.Key), cloneBytes(op.Value))
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", op.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, op := range sorted {
		manager.cache.Remove(op.Key)
	}
	atomic.AddUint64(&manager.commitTotal, 1)
	atomic.AddUint64(&manager.commitOps, uint64(len(sorted)))
	return nil
}

// Metrics 返回读写统计
func (manager *Manager) Metrics() Metrics {
	return Metrics{
		CommitTotal: atomic.LoadUint64(&manager.commitTotal),
		CommitOps:   atomic.LoadUint64(&manager.commitOps),
		CacheHits:   atomic.LoadUint64(&manager.cacheHits),
		CacheMisses: atomic.LoadUint64(&manager.cacheMisses),
	}
}

// InMemory 是否为内存模式
func (manager *Manager) InMemory() bool {
	return manager.inMemoryOnly
}

// Close 关闭数据库，可重复调用
func (manager *Manager) Close() error {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.Db == nil {
		return nil
	}
	err := manager.Db.Close()
	manager.Db = nil
	manager.cache.Purge()
	return err
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
