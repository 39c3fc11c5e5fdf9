// Package template 展开密码修改命令模板中的 %token 占位符。
package template

import (
	"strings"

	"github.com/zx06/xpasswd/internal/errors"
)

// 模板中可识别的占位符。
const (
	TokenLogin        = "%login"
	TokenLoginShort   = "%l"
	TokenName         = "%name"
	TokenNameShort    = "%n"
	TokenDomain       = "%domain"
	TokenDomainShort  = "%d"
	TokenDC           = "%dc"
	TokenCurrPassPipe = "%currpasspipe"
)

// CurrPassPipePath 是子进程读取当前密码的路径（fd 3）。
const CurrPassPipePath = "/dev/fd/3"

// Identity 是发起修改请求的用户身份，由宿主显式传入。
type Identity struct {
	Username string
}

// Split 返回 user@domain 的两部分；仅当恰好两段时 ok=true。
func (id Identity) Split() (local, domain string, ok bool) {
	parts := strings.Split(id.Username, "@")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// DomainComponents 把 example.com 转成 dc=example,dc=com。
func DomainComponents(domain string) string {
	return "dc=" + strings.ReplaceAll(domain, ".", ",dc=")
}

// Expand 替换 tmpl 中的身份占位符。
//
// 单遍、不重叠替换：替换结果不会被再次扫描，长 token 优先于其前缀
// （%login > %l，%name > %n，%domain、%dc > %d）。
// 用户名不是恰好一个 @ 时，域相关 token 原样保留。
func Expand(tmpl string, id Identity) string {
	return strings.NewReplacer(identityPairs(id)...).Replace(tmpl)
}

func identityPairs(id Identity) []string {
	pairs := []string{
		TokenLogin, id.Username,
		TokenLoginShort, id.Username,
	}
	if local, domain, ok := id.Split(); ok {
		pairs = append(pairs,
			TokenName, local,
			TokenNameShort, local,
			TokenDomain, domain,
			TokenDC, DomainComponents(domain),
			TokenDomainShort, domain,
		)
	}
	return pairs
}

// Plan 是一次执行的完整描述（不含任何密码）。
type Plan struct {
	Template string
	Command  string

	// CurrentPasswordPipe 为 true 时需在 fd 3 上提供当前密码。
	CurrentPasswordPipe bool
}

// Prepare 校验模板、展开身份占位符，并把 %currpasspipe 换成 /dev/fd/3。
// %currpasspipe 只在模板本身中识别，用户名里出现的同名文本不会开启 fd 3。
func Prepare(tmpl string, id Identity) (Plan, *errors.XError) {
	if strings.TrimSpace(tmpl) == "" {
		return Plan{}, errors.New(errors.CodeCfgInvalid, "password command template is empty", nil)
	}
	pairs := identityPairs(id)
	if WantsCurrentPassword(tmpl) {
		pairs = append(pairs, TokenCurrPassPipe, CurrPassPipePath)
	}
	return Plan{
		Template:            tmpl,
		Command:             strings.NewReplacer(pairs...).Replace(tmpl),
		CurrentPasswordPipe: WantsCurrentPassword(tmpl),
	}, nil
}

// WantsCurrentPassword 报告模板是否会请求当前密码，无需身份。
func WantsCurrentPassword(tmpl string) bool {
	return strings.Contains(tmpl, TokenCurrPassPipe)
}
