package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Memory 是带 TTL 的定容 LRU。容量满时淘汰最久未使用的条目。
type Memory struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front 为最近使用
	items    map[string]*list.Element
	now      func() time.Time
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewMemory 创建内存缓存。capacity<=0 取 256；ttl<=0 表示永不过期。
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 256
	}
	return &Memory{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, ErrMiss
	}
	entry := el.Value.(*memoryEntry)
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.order.Remove(el)
		delete(m.items, key)
		return nil, ErrMiss
	}
	m.order.MoveToFront(el)
	return entry.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if m.ttl > 0 {
		expiresAt = m.now().Add(m.ttl)
	}

	if el, ok := m.items[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		m.order.MoveToFront(el)
		return nil
	}

	for m.order.Len() >= m.capacity {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*memoryEntry).key)
	}
	m.items[key] = m.order.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order.Init()
	m.items = make(map[string]*list.Element)
	return nil
}

// Len 返回当前条目数（含未清理的过期条目）。
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
