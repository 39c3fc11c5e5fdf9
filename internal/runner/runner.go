package runner

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/zx06/xpasswd/internal/config"
	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/log"
	"github.com/zx06/xpasswd/internal/template"
)

// Result 是 Save 的结果。零值为 ResultError。
type Result int

const (
	ResultError Result = iota
	ResultSuccess
)

func (r Result) String() string {
	if r == ResultSuccess {
		return "success"
	}
	return "error"
}

// Credentials 保存一次修改所需的密码。Current 仅在命令包含 %currpasspipe 时使用。
type Credentials struct {
	Current []byte
	New     []byte
}

// Runner 按模板展开命令并通过 Executor 执行。
type Runner struct {
	Profile  string
	Template string
	Timeout  time.Duration
	Executor Executor
	Logger   *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Discard()
}

func (r *Runner) executor() Executor {
	if r.Executor != nil {
		return r.Executor
	}
	return LocalExecutor{Logger: r.Logger}
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return config.DefaultTimeout
}

// Save 修改密码，只返回成功或失败。
func (r *Runner) Save(ctx context.Context, id template.Identity, creds Credentials) Result {
	if xe := r.Change(ctx, id, creds); xe != nil {
		return ResultError
	}
	return ResultSuccess
}

// Change 修改密码，失败时返回带错误码的 XError。
//
// 命令已启动但失败（非零退出或超时）时记录且只记录一条 error 日志；
// 配置错误和启动失败只记录 debug 日志。
func (r *Runner) Change(ctx context.Context, id template.Identity, creds Credentials) *errors.XError {
	if ctx == nil {
		ctx = context.Background()
	}
	l := r.logger().With("profile", r.Profile, "user", id.Username)

	plan, xe := template.Prepare(r.Template, id)
	if xe != nil {
		l.Debug("password change not attempted", "error", xe.Message)
		return xe
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	inv := Invocation{
		Command:     plan.Command,
		Stdin:       creds.New,
		CurrentPipe: plan.CurrentPasswordPipe,
	}
	if plan.CurrentPasswordPipe {
		inv.Current = creds.Current
	}

	out, xe := r.executor().Execute(ctx, inv)
	if xe != nil {
		switch xe.Code {
		case errors.CodeExecTimeout, errors.CodeExecFailed:
			l.Error("password change command failed",
				"template", plan.Template,
				"exit_code", -1,
				"command", plan.Command,
				"error", xe.Message,
			)
		default:
			l.Debug("password change command not started", "code", xe.Code, "error", xe.Error())
		}
		return xe
	}

	if out.ExitCode != 0 {
		l.Error("password change command failed",
			"template", plan.Template,
			"exit_code", out.ExitCode,
			"command", plan.Command,
			"stderr", strings.TrimSpace(out.Stderr),
		)
		return errors.New(errors.CodeExecFailed, "password change command failed", map[string]any{"exit_code": out.ExitCode})
	}

	l.Info("password changed")
	return nil
}
