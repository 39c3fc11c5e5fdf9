package app

import (
	"log/slog"
	"strings"
	"time"

	"github.com/zx06/xpasswd/internal/config"
	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/runner"
	"github.com/zx06/xpasswd/internal/secret"
	"github.com/zx06/xpasswd/internal/ssh"
)

// RunnerOptions 是 NewRunner 的输入；Keyring 为空时使用系统 keyring。
type RunnerOptions struct {
	ProfileName      string
	Profile          config.Profile // SSHConfig 需已由 config.Resolve 填充
	Timeout          time.Duration
	AllowPlaintext   bool
	SkipHostKeyCheck bool
	Logger           *slog.Logger
	Keyring          secret.KeyringAPI
}

// NewRunner 根据 profile 构造 Runner：配置了 ssh_proxy 时远程执行，否则本地执行。
func NewRunner(opts RunnerOptions) (*runner.Runner, *errors.XError) {
	if strings.TrimSpace(opts.Profile.Command) == "" {
		return nil, errors.New(errors.CodeCfgInvalid, "profile has no command", map[string]any{"profile": opts.ProfileName})
	}

	var exec runner.Executor = runner.LocalExecutor{Logger: opts.Logger}
	if opts.Profile.SSHConfig != nil {
		sshOpts, xe := SSHOptions(opts.Profile, opts.AllowPlaintext, opts.SkipHostKeyCheck, opts.Keyring)
		if xe != nil {
			return nil, xe
		}
		exec = runner.SSHExecutor{Options: sshOpts}
	}

	return &runner.Runner{
		Profile:  opts.ProfileName,
		Template: opts.Profile.Command,
		Timeout:  opts.Timeout,
		Executor: exec,
		Logger:   opts.Logger,
	}, nil
}

// SSHOptions 解析 passphrase 并生成连接参数。
func SSHOptions(p config.Profile, allowPlaintext, skipHostKeyCheck bool, kr secret.KeyringAPI) (ssh.Options, *errors.XError) {
	if p.SSHConfig == nil {
		return ssh.Options{}, errors.New(errors.CodeCfgInvalid, "profile has no ssh_proxy", nil)
	}
	passphrase := p.SSHConfig.Passphrase
	if passphrase != "" {
		pp, xe := secret.Resolve(passphrase, secret.Options{
			AllowPlaintext: allowPlaintext || p.AllowPlaintext,
			Keyring:        kr,
		})
		if xe != nil {
			return ssh.Options{}, xe
		}
		passphrase = pp
	}
	return ssh.OptionsFromProxy(*p.SSHConfig, passphrase, skipHostKeyCheck), nil
}
