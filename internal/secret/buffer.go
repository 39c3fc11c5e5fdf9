package secret

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer 在 Go 堆外保存密码：mmap 匿名内存 + mlock（不进 swap）
// + MADV_DONTDUMP（不进 core dump），Close 时清零并释放。
//
// 长度为 0 的 Buffer 合法（空密码），不做任何映射。
// Buffer 不可复制；Close 之后读取会 panic。
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// New 分配 size 字节的受保护内存（初始为 0）。
func New(size int) (*Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("secret: buffer size must not be negative, got %d", size)
	}
	if size == 0 {
		return &Buffer{}, nil
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap failed: %w", err)
	}
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: mlock failed: %w", err)
	}
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(data)
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP) failed: %w", err)
	}
	return &Buffer{data: data}, nil
}

// NewFromBytes 把 source 复制进受保护内存，并将 source 原地清零。
func NewFromBytes(source []byte) (*Buffer, error) {
	b, err := New(len(source))
	if err != nil {
		Zero(source)
		return nil, err
	}
	copy(b.data, source)
	Zero(source)
	return b, nil
}

// Bytes 直接返回映射区切片，不要在 Close 之后持有。
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.data
}

// String 返回堆上副本，只在必须用 string 的 API 边界使用。
func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Len 返回密码长度。
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.data)
}

// Close 清零、解锁并释放内存。可重复调用。
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if len(b.data) == 0 {
		return nil
	}

	Zero(b.data)

	var firstErr error
	if err := unix.Munlock(b.data); err != nil {
		firstErr = fmt.Errorf("secret: munlock failed: %w", err)
	}
	if err := unix.Munmap(b.data); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("secret: munmap failed: %w", err)
	}
	b.data = nil
	return firstErr
}

// Zero 将 p 原地清零。
func Zero(p []byte) {
	for i := range p {
		p[i] = 0
	}
}
