package ssh

import (
	"github.com/zx06/xpasswd/internal/config"
)

// Options 包含 SSH 连接所需参数。
type Options struct {
	Host           string
	Port           int
	User           string
	IdentityFile   string // 私钥路径
	Passphrase     string // 私钥 passphrase（已解析，非 keyring 引用）
	KnownHostsFile string // 默认 ~/.ssh/known_hosts

	// SkipKnownHostsCheck 跳过 known_hosts 校验（极不推荐！）
	SkipKnownHostsCheck bool
}

func DefaultKnownHostsPath() string {
	return "~/.ssh/known_hosts"
}

// OptionsFromProxy 由配置中的 ssh_proxies 条目构造 Options。
// passphrase 需由调用方先经 secret.Resolve 解析。
func OptionsFromProxy(p config.SSHProxy, passphrase string, skipHostKey bool) Options {
	return Options{
		Host:                p.Host,
		Port:                p.Port,
		User:                p.User,
		IdentityFile:        p.IdentityFile,
		Passphrase:          passphrase,
		KnownHostsFile:      p.KnownHostsFile,
		SkipKnownHostsCheck: skipHostKey || p.SkipHostKey,
	}
}
