package handle

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Scheme 是本地资源句柄的前缀。
const Scheme = "blob:"

// Handle 是指向已编码图片的进程内引用，可撤销。
// 句柄由随机 UUID 生成，不能从图片内容推导。
type Handle string

func (h Handle) String() string { return string(h) }

// IsHandle 判断引用是否为本地铸造的句柄。
func IsHandle(ref string) bool { return strings.HasPrefix(ref, Scheme) }

// Blob 是句柄背后的二进制资源。
type Blob struct {
	Data     []byte
	MIMEType string
	Created  time.Time
}

// Store 保存句柄到资源的映射，可并发使用。
// 资源会一直占用内存，直到调用 Revoke。
type Store struct {
	origin string

	mu    sync.RWMutex
	blobs map[Handle]Blob
}

// NewStore 创建句柄仓库，origin 会出现在句柄中（例如 http://localhost:5173）。
func NewStore(origin string) *Store {
	origin = strings.TrimRight(origin, "/")
	if origin == "" {
		origin = "null"
	}
	return &Store{origin: origin, blobs: map[Handle]Blob{}}
}

// Mint 保存 data 并返回新的句柄，每次调用都不同。
func (s *Store) Mint(data []byte, mimeType string) (Handle, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("handle: 资源数据为空")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("handle: 生成句柄失败: %w", err)
	}
	h := Handle(Scheme + s.origin + "/" + id.String())
	s.mu.Lock()
	s.blobs[h] = Blob{Data: data, MIMEType: mimeType, Created: time.Now()}
	s.mu.Unlock()
	return h, nil
}

// Open 返回句柄对应的资源；已撤销或未知的句柄返回 false。
func (s *Store) Open(h Handle) (Blob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[h]
	return b, ok
}

// Revoke 释放句柄占用的资源，重复调用无副作用。返回句柄此前是否有效。
func (s *Store) Revoke(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[h]; !ok {
		return false
	}
	delete(s.blobs, h)
	return true
}

// Len 返回仍然有效的句柄数量。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Bytes 返回所有有效资源占用的字节数。
func (s *Store) Bytes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, b := range s.blobs {
		total += len(b.Data)
	}
	return total
}
