package runner

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/log"
	"github.com/zx06/xpasswd/internal/template"
)

// DefaultShell 解释展开后的命令行。
const DefaultShell = "/bin/sh"

// waitDelay 是进程退出（或被杀）后等待 stderr 管道关闭的上限。
const waitDelay = 2 * time.Second

// LocalExecutor 通过 `sh -c` 在本机运行命令。
// 新密码经 fd 0 的管道传入，当前密码经 fd 3（/dev/fd/3）的管道传入；
// 两者都不会出现在 argv、环境变量或文件中。
type LocalExecutor struct {
	Shell  string
	Logger *slog.Logger
}

// secretPipe 是父进程持有的写端及其要写入的内容。
type secretPipe struct {
	name string
	w    *os.File
	data []byte
}

// started 汇总一次启动所需的资源，便于统一释放。
type started struct {
	cmd    *exec.Cmd
	writes []secretPipe
	child  []*os.File // 子进程一侧的读端，Start 之后由父进程关闭
}

func (s *started) closeChild() {
	for _, f := range s.child {
		f.Close()
	}
	s.child = nil
}

func (s *started) closeWrites() {
	for _, p := range s.writes {
		p.w.Close()
	}
}

func (e LocalExecutor) shell() string {
	if e.Shell != "" {
		return e.Shell
	}
	return DefaultShell
}

func (e LocalExecutor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Discard()
}

// prepare 创建管道并构造 exec.Cmd，但不启动。
func (e LocalExecutor) prepare(ctx context.Context, inv Invocation) (*started, error) {
	cmd := exec.CommandContext(ctx, e.shell(), "-c", inv.Command)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	s := &started{cmd: cmd}

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdin = stdinR
	s.child = append(s.child, stdinR)
	s.writes = append(s.writes, secretPipe{name: "stdin", w: stdinW, data: inv.Stdin})

	if inv.CurrentPipe {
		currR, currW, err := os.Pipe()
		if err != nil {
			s.closeChild()
			s.closeWrites()
			return nil, err
		}
		// ExtraFiles[i] 在子进程中是 fd 3+i
		cmd.ExtraFiles = []*os.File{currR}
		s.child = append(s.child, currR)
		s.writes = append(s.writes, secretPipe{name: template.CurrPassPipePath, w: currW, data: inv.Current})
	}
	return s, nil
}

// Execute 实现 Executor。
func (e LocalExecutor) Execute(ctx context.Context, inv Invocation) (Outcome, *errors.XError) {
	s, err := e.prepare(ctx, inv)
	if err != nil {
		return Outcome{}, errors.Wrap(errors.CodeSpawnFailed, "failed to create pipes", nil, err)
	}

	var stderr stderrBuffer
	s.cmd.Stderr = &stderr

	if err := s.cmd.Start(); err != nil {
		s.closeChild()
		s.closeWrites()
		return Outcome{}, errors.Wrap(errors.CodeSpawnFailed, "failed to start password command", map[string]any{"shell": e.shell()}, err)
	}
	// 子进程已持有自己的副本；父进程必须关闭读端，否则子进程退出后写端收不到 EPIPE。
	s.closeChild()

	// 每个管道一个 writer，写完即关闭写端（子进程据此读到 EOF）。
	var g errgroup.Group
	for _, p := range s.writes {
		g.Go(func() error {
			defer p.w.Close()
			if _, err := p.w.Write(p.data); err != nil {
				return &pipeError{name: p.name, err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// 子进程未读完输入就退出时会出现 EPIPE；结果仍以退出码为准。
		e.logger().Debug("secret pipe write incomplete", "error", err)
	}

	waitErr := s.cmd.Wait()
	if waitErr == nil {
		return Outcome{ExitCode: 0, Stderr: stderr.String()}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{}, errors.Wrap(errors.CodeExecTimeout, "password command did not finish in time", map[string]any{"reason": ctxReason(ctxErr)}, ctxErr)
	}
	var exitErr *exec.ExitError
	if stderrors.As(waitErr, &exitErr) {
		return Outcome{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}, nil
	}
	return Outcome{}, errors.Wrap(errors.CodeExecFailed, "failed to wait for password command", nil, waitErr)
}

type pipeError struct {
	name string
	err  error
}

func (e *pipeError) Error() string { return "writing " + e.name + ": " + e.err.Error() }
func (e *pipeError) Unwrap() error { return e.err }

func ctxReason(err error) string {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "cancelled"
}
