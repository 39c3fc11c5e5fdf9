package app

import (
	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/output"
	"github.com/zx06/xpasswd/internal/spec"
	"github.com/zx06/xpasswd/internal/template"
)

// App 持有构建信息，生成 spec 与 version 输出。
type App struct {
	Version string
	Commit  string
	Date    string
}

// New 以构建时注入的版本信息创建 App。
func New(version, commit, date string) App {
	return App{Version: version, Commit: commit, Date: date}
}

// BuildSpec 返回完整的机器可读接口说明。
func (a App) BuildSpec() spec.Spec {
	globalFlags := []spec.FlagSpec{
		{Name: "config", Default: "", Description: "Config file path (YAML); default: ./xpasswd.yaml or $HOME/.config/xpasswd/xpasswd.yaml"},
		{Name: "profile", Shorthand: "p", Env: "XPASSWD_PROFILE", Default: "", Description: "Profile name (config: profiles.<name>)"},
		{Name: "format", Shorthand: "f", Env: "XPASSWD_FORMAT", Default: "auto", Description: "Output format: "+output.FormatList()},
		{Name: "verbose", Shorthand: "v", Default: "false", Description: "Debug logging to stderr"},
	}
	userFlag := spec.FlagSpec{Name: "user", Shorthand: "u", Env: "XPASSWD_USER", Description: "Username (login, or local@domain); default: current OS user"}
	return spec.Spec{
		SchemaVersion: output.SchemaVersion,
		Commands: []spec.CommandSpec{
			{
				Name:        "spec",
				Description: "Export tool spec for AI/agents",
				Flags: append(append([]spec.FlagSpec{}, globalFlags...),
					spec.FlagSpec{Name: "section", Description: "Only export one section: commands|tokens|exit_codes|error_codes"},
				),
			},
			{
				Name:        "version",
				Description: "Print version information",
				Flags: append(append([]spec.FlagSpec{}, globalFlags...),
					spec.FlagSpec{Name: "short", Default: "false", Description: "Print only the version string"},
				),
			},
			{
				Name:        "change",
				Description: "Change a user's password through the profile's command",
				Flags: append(append([]spec.FlagSpec{}, globalFlags...),
					userFlag,
					spec.FlagSpec{Name: "timeout", Env: "XPASSWD_TIMEOUT", Default: "30s", Description: "Maximum run time of the password command"},
					spec.FlagSpec{Name: "new-password-file", Description: "Read the new password from file ('-' for stdin); prompts on a TTY if unset"},
					spec.FlagSpec{Name: "current-password-file", Description: "Read the current password from file ('-' for stdin); only used with %currpasspipe"},
					spec.FlagSpec{Name: "allow-plaintext", Default: "false", Description: "Allow plaintext secrets in config"},
					spec.FlagSpec{Name: "ssh-skip-known-hosts-check", Default: "false", Description: "Skip SSH known_hosts check (dangerous)"},
				),
			},
			{
				Name:        "preview",
				Description: "Show the expanded command without running it",
				Flags:       append(append([]spec.FlagSpec{}, globalFlags...), userFlag),
			},
			{
				Name:        "profile list",
				Description: "List configured profiles",
				Flags:       globalFlags,
			},
			{
				Name:        "profile show",
				Description: "Show one profile (secrets redacted)",
				Flags:       globalFlags,
			},
			{
				Name:        "mcp server",
				Description: "Start MCP server",
				Flags: append(append([]spec.FlagSpec{}, globalFlags...),
					spec.FlagSpec{Name: "transport", Env: "XPASSWD_MCP_TRANSPORT", Default: "stdio", Description: "MCP transport: stdio|streamable_http"},
					spec.FlagSpec{Name: "http-addr", Env: "XPASSWD_MCP_HTTP_ADDR", Default: "127.0.0.1:8787", Description: "Streamable HTTP listen address"},
					spec.FlagSpec{Name: "http-auth-token", Env: "XPASSWD_MCP_HTTP_AUTH_TOKEN", Description: "Streamable HTTP bearer token"},
					spec.FlagSpec{Name: "http-allow-remote", Env: "XPASSWD_MCP_HTTP_ALLOW_REMOTE", Default: "false", Description: "Allow listening on a non-loopback address"},
					spec.FlagSpec{Name: "timeout", Env: "XPASSWD_TIMEOUT", Description: "Timeout for password_change; overrides profile timeouts"},
				),
			},
		},
		Tokens:     templateTokens(),
		ExitCodes:  exitCodes(),
		ErrorCodes: errors.AllCodes(),
	}
}

func templateTokens() []spec.TokenSpec {
	return []spec.TokenSpec{
		{Token: template.TokenLogin, Aliases: []string{template.TokenLoginShort}, Description: "Full username as given"},
		{Token: template.TokenName, Aliases: []string{template.TokenNameShort}, Description: "Local part of local@domain", RequiresDomain: true},
		{Token: template.TokenDomain, Aliases: []string{template.TokenDomainShort}, Description: "Domain part of local@domain", RequiresDomain: true},
		{Token: template.TokenDC, Description: "Domain as LDAP components, e.g. dc=example,dc=com", RequiresDomain: true},
		{Token: template.TokenCurrPassPipe, Description: "Path the command reads the current password from (" + template.CurrPassPipePath + "); local execution only"},
	}
}

func exitCodes() []spec.ExitCodeSpec {
	table := []spec.ExitCodeSpec{
		{ExitCode: int(errors.ExitOK), Description: "Success"},
		{ExitCode: int(errors.ExitConfig), Description: "Configuration, profile or secret error; nothing was run"},
		{ExitCode: int(errors.ExitConnect), Description: "SSH connection to the ssh_proxy failed"},
		{ExitCode: int(errors.ExitSpawn), Description: "The password command could not be started"},
		{ExitCode: int(errors.ExitExec), Description: "The password command failed or timed out"},
		{ExitCode: int(errors.ExitInternal), Description: "Internal error"},
	}
	for _, code := range errors.AllCodes() {
		exit := int(errors.ExitCodeFor(code))
		for i := range table {
			if table[i].ExitCode == exit {
				table[i].ErrorCodes = append(table[i].ErrorCodes, code)
			}
		}
	}
	return table
}

// VersionInfo 是 version 命令的输出。
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
}

// VersionInfo 返回构建信息。
func (a App) VersionInfo() VersionInfo {
	return VersionInfo{Version: a.Version, Commit: a.Commit, Date: a.Date}
}
