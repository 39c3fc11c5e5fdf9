// Package spec 描述 `xpasswd spec` 输出的机器可读接口说明。
package spec

import "github.com/zx06/xpasswd/internal/errors"

type FlagSpec struct {
	Name        string `json:"name" yaml:"name"`
	Shorthand   string `json:"shorthand,omitempty" yaml:"shorthand,omitempty"`
	Env         string `json:"env,omitempty" yaml:"env,omitempty"`
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type CommandSpec struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Flags       []FlagSpec `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// TokenSpec 描述命令模板中的一个占位符。
// RequiresDomain 为 true 时，用户名不是 local@domain 形式则原样保留。
type TokenSpec struct {
	Token          string   `json:"token" yaml:"token"`
	Aliases        []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Description    string   `json:"description" yaml:"description"`
	RequiresDomain bool     `json:"requires_domain,omitempty" yaml:"requires_domain,omitempty"`
}

// ExitCodeSpec 把进程退出码映射到会产生它的错误码。
type ExitCodeSpec struct {
	ExitCode    int           `json:"exit_code" yaml:"exit_code"`
	Description string        `json:"description" yaml:"description"`
	ErrorCodes  []errors.Code `json:"error_codes,omitempty" yaml:"error_codes,omitempty"`
}

type Spec struct {
	SchemaVersion int            `json:"schema_version" yaml:"schema_version"`
	Commands      []CommandSpec  `json:"commands,omitempty" yaml:"commands,omitempty"`
	Tokens        []TokenSpec    `json:"template_tokens,omitempty" yaml:"template_tokens,omitempty"`
	ExitCodes     []ExitCodeSpec `json:"exit_codes,omitempty" yaml:"exit_codes,omitempty"`
	ErrorCodes    []errors.Code  `json:"error_codes,omitempty" yaml:"error_codes,omitempty"`
}

// Section 返回只含指定部分的 Spec；name 为空时返回完整 Spec。
func (s Spec) Section(name string) (Spec, bool) {
	out := Spec{SchemaVersion: s.SchemaVersion}
	switch name {
	case "":
		return s, true
	case "commands":
		out.Commands = s.Commands
	case "tokens":
		out.Tokens = s.Tokens
	case "exit_codes":
		out.ExitCodes = s.ExitCodes
	case "error_codes":
		out.ErrorCodes = s.ErrorCodes
	default:
		return Spec{}, false
	}
	return out, true
}

// Sections 是 Section 接受的名称。
func Sections() []string {
	return []string{"commands", "tokens", "exit_codes", "error_codes"}
}
