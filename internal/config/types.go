package config

import "time"

// DefaultTimeout 是外部命令的默认最长执行时间。
const DefaultTimeout = 30 * time.Second

// File 表示 xpasswd.yaml 的配置结构。
// 约束：配置优先级为 CLI > ENV > Config。
type File struct {
	Profiles   map[string]Profile  `yaml:"profiles"`
	SSHProxies map[string]SSHProxy `yaml:"ssh_proxies"`
	MCP        MCPConfig           `yaml:"mcp"`
}

type Profile struct {
	Description string `yaml:"description"`
	Format      string `yaml:"format"`

	// Command 是密码修改命令模板，支持 %login %l %name %n %domain %d %dc %currpasspipe。
	Command string `yaml:"command"`
	// Timeout 使用 Go duration 语法（如 30s），为空则使用 DefaultTimeout。
	Timeout string `yaml:"timeout"`

	// SSHProxy 引用 ssh_proxies 中的名字；设置后命令在远端主机执行。
	SSHProxy       string `yaml:"ssh_proxy"`
	AllowPlaintext bool   `yaml:"allow_plaintext"`

	// SSHConfig 由 Resolve 根据 SSHProxy 填充，不从 YAML 读取。
	SSHConfig *SSHProxy `yaml:"-"`
}

type SSHProxy struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	IdentityFile   string `yaml:"identity_file"`
	Passphrase     string `yaml:"passphrase"` // 支持 keyring:xxx 引用
	KnownHostsFile string `yaml:"known_hosts_file"`
	SkipHostKey    bool   `yaml:"skip_host_key"` // 极不推荐
}

type MCPConfig struct {
	Transport string        `yaml:"transport"`
	HTTP      MCPHTTPConfig `yaml:"http"`
}

type MCPHTTPConfig struct {
	Addr                string `yaml:"addr"`
	AuthToken           string `yaml:"auth_token"` // 支持 keyring:xxx 引用
	AllowPlaintextToken bool   `yaml:"allow_plaintext_token"`
	AllowRemote         bool   `yaml:"allow_remote"` // 允许监听非回环地址
}

type Resolved struct {
	ConfigPath  string
	ProfileName string
	Format      string
	Timeout     time.Duration
	Profile     Profile // 完整 profile（SSHConfig 已解析）
}

type Options struct {
	// ConfigPath: 若非空，则只读取该文件（不存在报错）。
	ConfigPath string

	// CLI
	CLIProfile    string
	CLIProfileSet bool
	CLIFormat     string
	CLIFormatSet  bool
	CLITimeout    string
	CLITimeoutSet bool

	// ENV（由调用方注入，便于测试）
	EnvProfile string
	EnvFormat  string
	EnvTimeout string

	// HomeDir 用于默认路径计算（为空则自动探测）。
	HomeDir string

	// WorkDir 用于默认路径（为空则使用进程当前工作目录）。
	WorkDir string
}
