package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"

	"go.uber.org/zap"
)

// Manager 風味 profile 的請求級快取
// 同一鍵同時只允許一個 in-flight 抓取，其餘呼叫共享結果
type Manager struct {
	config   *config.Config
	mu       sync.Mutex
	store    map[string]cacheEntry
	inflight map[string]*inflightCall
	stats    cacheStats
	done     chan struct{}
}

// cacheEntry 快取條目
type cacheEntry struct {
	tokens      []string
	expiresAt   time.Time
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// inflightCall 進行中的抓取
type inflightCall struct {
	wg     sync.WaitGroup
	tokens []string
	err    error
}

// cacheStats 快取統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
	shared    int64
}

// NewManager 創建快取管理員；快取關閉時回傳 nil
func NewManager(cfg *config.Config) *Manager {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return nil
	}

	m := &Manager{
		config:   cfg,
		store:    make(map[string]cacheEntry),
		inflight: make(map[string]*inflightCall),
		done:     make(chan struct{}),
	}

	// 啟動清理過期快取的協程
	go m.startCleanup()

	common.LogInfo("快取管理員已初始化",
		zap.Int("最大容量", cfg.Cache.MaxSize),
		zap.Duration("存活時間", cfg.Cache.TTL),
		zap.Duration("清理間隔", cfg.Cache.CleanupInterval),
	)

	return m
}

// GetOrFetch 取快取值；未命中時呼叫 fetch，同鍵併發只抓一次
func (m *Manager) GetOrFetch(ctx context.Context, key string, fetch func() ([]string, error)) ([]string, error) {
	hashed := hashKey(key)

	m.mu.Lock()
	if entry, exists := m.store[hashed]; exists {
		if time.Now().Before(entry.expiresAt) {
			entry.lastAccess = time.Now()
			entry.accessCount++
			m.store[hashed] = entry
			m.stats.hits++
			m.mu.Unlock()
			common.LogCacheHit("profile", key)
			return entry.tokens, nil
		}
		delete(m.store, hashed)
		m.stats.evictions++
	}
	m.stats.misses++

	// 已有同鍵抓取進行中，等待共享結果
	if call, exists := m.inflight[hashed]; exists {
		m.stats.shared++
		m.mu.Unlock()
		call.wg.Wait()
		return call.tokens, call.err
	}

	call := &inflightCall{}
	call.wg.Add(1)
	m.inflight[hashed] = call
	m.mu.Unlock()
	common.LogCacheMiss("profile", key)

	call.tokens, call.err = fetch()

	m.mu.Lock()
	delete(m.inflight, hashed)
	if call.err == nil {
		m.setLocked(hashed, call.tokens)
	}
	m.mu.Unlock()
	call.wg.Done()

	return call.tokens, call.err
}

// setLocked 寫入快取；呼叫端必須持鎖
func (m *Manager) setLocked(hashed string, tokens []string) {
	if len(m.store) >= m.config.Cache.MaxSize {
		evicted := m.cleanupLocked()
		if len(m.store) >= m.config.Cache.MaxSize {
			m.evictLRULocked()
		}
		if evicted > 0 {
			common.LogInfo("快取清理執行",
				zap.Int("清理數量", evicted),
			)
		}
		if len(m.store) >= m.config.Cache.MaxSize {
			common.LogWarn("快取已滿",
				zap.Int("目前容量", len(m.store)),
			)
			return
		}
	}

	now := time.Now()
	m.store[hashed] = cacheEntry{
		tokens:     tokens,
		expiresAt:  now.Add(m.config.Cache.TTL),
		createdAt:  now,
		lastAccess: now,
	}
}

// hashKey 計算鍵的 SHA-256 哈希值
func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// startCleanup 啟動清理過期快取的協程
func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.config.Cache.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			count := m.cleanupLocked()
			m.mu.Unlock()
			if count > 0 {
				common.LogInfo("Cleaned up expired cache entries",
					zap.Int("count", count),
				)
			}
		case <-m.done:
			return
		}
	}
}

// cleanupLocked 清理過期的快取；呼叫端必須持鎖
func (m *Manager) cleanupLocked() int {
	now := time.Now()
	count := 0

	for key, entry := range m.store {
		if now.After(entry.expiresAt) {
			delete(m.store, key)
			count++
			m.stats.evictions++
		}
	}

	return count
}

// evictLRULocked 淘汰最少使用的條目；呼叫端必須持鎖
func (m *Manager) evictLRULocked() {
	var oldestKey string
	var oldestAccess time.Time
	var lowestAccessCount int

	for key, entry := range m.store {
		if oldestKey == "" ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.evictions++
	}
}

// GetStats 獲取快取統計信息
func (m *Manager) GetStats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.stats.hits + m.stats.misses
	hitRatio := 0.0
	if total > 0 {
		hitRatio = float64(m.stats.hits) / float64(total)
	}

	return map[string]interface{}{
		"size":      len(m.store),
		"max_size":  m.config.Cache.MaxSize,
		"hits":      m.stats.hits,
		"misses":    m.stats.misses,
		"evictions": m.stats.evictions,
		"shared":    m.stats.shared,
		"hit_ratio": hitRatio,
	}
}

// Close 關閉快取管理員
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	close(m.done)
	m.store = make(map[string]cacheEntry)
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.stats.hits),
		zap.Int64("未命中次數", m.stats.misses),
		zap.Int64("淘汰次數", m.stats.evictions),
	)
	return nil
}
