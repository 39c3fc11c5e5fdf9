package config

import (
	"time"

	"github.com/zx06/xpasswd/internal/errors"
)

// Resolve 合并 config/profile/format/timeout：CLI > ENV > Config。
func Resolve(opts Options) (Resolved, *errors.XError) {
	// 1) 读取配置文件（如有）
	cfg, cfgPath, xe := LoadConfig(opts)
	if xe != nil {
		return Resolved{}, xe
	}

	// 2) 选择 profile：--profile > XPASSWD_PROFILE > profiles.default > 空
	profile := ""
	if opts.CLIProfileSet {
		profile = opts.CLIProfile
	} else if opts.EnvProfile != "" {
		profile = opts.EnvProfile
	} else {
		if _, ok := cfg.Profiles["default"]; ok {
			profile = "default"
		}
	}

	// 3) 获取完整 profile；显式指定但不存在视为错误
	var selected Profile
	if profile != "" {
		p, ok := cfg.Profiles[profile]
		if !ok && (opts.CLIProfileSet || opts.EnvProfile != "") {
			return Resolved{}, errors.New(errors.CodeCfgInvalid, "profile not found", map[string]any{"name": profile})
		}
		selected = p
	}

	// 4) 解析 ssh_proxy 引用
	sc, xe := ResolveSSHProxy(cfg, selected)
	if xe != nil {
		return Resolved{}, xe
	}
	selected.SSHConfig = sc

	// 5) 合并 format：--format > XPASSWD_FORMAT > profile.format > auto
	format := "auto"
	if selected.Format != "" {
		format = selected.Format
	}
	if opts.EnvFormat != "" {
		format = opts.EnvFormat
	}
	if opts.CLIFormatSet {
		format = opts.CLIFormat
	}

	// 6) 合并 timeout：--timeout > XPASSWD_TIMEOUT > profile.timeout > 默认
	timeout, xe := ResolveTimeout(opts.CLITimeout, opts.CLITimeoutSet, opts.EnvTimeout, selected.Timeout)
	if xe != nil {
		return Resolved{}, xe
	}

	return Resolved{
		ConfigPath:  cfgPath,
		ProfileName: profile,
		Format:      format,
		Timeout:     timeout,
		Profile:     selected,
	}, nil
}

// ResolveSSHProxy 返回 profile 引用的 ssh proxy；未引用时返回 nil。
func ResolveSSHProxy(cfg File, p Profile) (*SSHProxy, *errors.XError) {
	if p.SSHProxy == "" {
		return nil, nil
	}
	proxy, ok := cfg.SSHProxies[p.SSHProxy]
	if !ok {
		return nil, errors.New(errors.CodeCfgInvalid, "ssh_proxy not found", map[string]any{"ssh_proxy": p.SSHProxy})
	}
	if proxy.Port == 0 {
		proxy.Port = 22
	}
	return &proxy, nil
}

// ResolveTimeout 按 CLI > ENV > profile 的顺序选出 timeout 并解析。
func ResolveTimeout(cli string, cliSet bool, env, profile string) (time.Duration, *errors.XError) {
	raw := profile
	if env != "" {
		raw = env
	}
	if cliSet {
		raw = cli
	}
	return ParseTimeout(raw)
}

// ParseTimeout 解析 duration 字符串；空串返回 DefaultTimeout。
func ParseTimeout(raw string) (time.Duration, *errors.XError) {
	if raw == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrap(errors.CodeCfgInvalid, "invalid timeout", map[string]any{"timeout": raw}, err)
	}
	if d <= 0 {
		return 0, errors.New(errors.CodeCfgInvalid, "timeout must be positive", map[string]any{"timeout": raw})
	}
	return d, nil
}
