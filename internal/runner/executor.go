package runner

import (
	"context"
	"sync"

	"github.com/zx06/xpasswd/internal/errors"
)

// Invocation 描述一次外部命令调用。密码只出现在 Stdin/Current 中。
type Invocation struct {
	Command string

	// Stdin 写入子进程 fd 0（新密码）。
	Stdin []byte

	// CurrentPipe 为 true 时在 fd 3 上提供 Current（当前密码）。
	CurrentPipe bool
	Current     []byte
}

// Outcome 是已经启动并结束的命令的结果。
type Outcome struct {
	ExitCode int
	Stderr   string
}

// Executor 启动命令并等待其结束。
//
// 返回的错误只有三类：CodeSpawnFailed（未能启动，不会写入任何密码）、
// CodeExecTimeout（ctx 结束，进程已被强制终止）、CodeExecFailed（无法取得退出码）。
// 非零退出码不是错误，由 Outcome.ExitCode 表达。
type Executor interface {
	Execute(ctx context.Context, inv Invocation) (Outcome, *errors.XError)
}

// maxStderr 是保留用于诊断的 stderr 字节数。
const maxStderr = 4 << 10

// stderrBuffer 只保留前 maxStderr 字节，其余丢弃但不报错。
type stderrBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *stderrBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := maxStderr - len(b.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		b.buf = append(b.buf, p[:room]...)
	}
	return len(p), nil
}

func (b *stderrBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
