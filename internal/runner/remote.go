package runner

import (
	"bytes"
	"context"

	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/ssh"
	"github.com/zx06/xpasswd/internal/template"
)

// SSHExecutor 在 ssh_proxy 指定的主机上运行命令，新密码写入会话的 stdin。
// fd 3 无法经 SSH 会话转发，因此不支持 %currpasspipe。
type SSHExecutor struct {
	Options ssh.Options
}

// Execute 实现 Executor。每次调用建立一条独立连接。
func (e SSHExecutor) Execute(ctx context.Context, inv Invocation) (Outcome, *errors.XError) {
	if inv.CurrentPipe {
		return Outcome{}, errors.New(errors.CodeCfgInvalid, template.TokenCurrPassPipe+" is not supported with ssh_proxy", map[string]any{"host": e.Options.Host})
	}
	client, xe := ssh.Connect(ctx, e.Options)
	if xe != nil {
		return Outcome{}, xe
	}
	defer client.Close()

	var stderr stderrBuffer
	code, xe := client.Run(ctx, inv.Command, bytes.NewReader(inv.Stdin), &stderr)
	if xe != nil {
		return Outcome{}, xe
	}
	return Outcome{ExitCode: code, Stderr: stderr.String()}, nil
}
