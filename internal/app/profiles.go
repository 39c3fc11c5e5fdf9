package app

import (
	"sort"

	"github.com/zx06/xpasswd/internal/config"
	"github.com/zx06/xpasswd/internal/errors"
	"github.com/zx06/xpasswd/internal/template"
)

const (
	ExecutorLocal = "local"
	ExecutorSSH   = "ssh"
)

// ProfileSummary 是 profile list 中的一行。
type ProfileSummary struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Executor    string `json:"executor" yaml:"executor"`
	Timeout     string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ProfileList 是 profile list 的输出，实现 output.TableFormatter。
type ProfileList struct {
	ConfigPath string           `json:"config_path" yaml:"config_path"`
	Profiles   []ProfileSummary `json:"profiles" yaml:"profiles"`
}

func (l ProfileList) ToTableData() ([]string, []map[string]any) {
	rows := make([]map[string]any, 0, len(l.Profiles))
	for _, p := range l.Profiles {
		rows = append(rows, map[string]any{
			"name":        p.Name,
			"executor":    p.Executor,
			"timeout":     p.Timeout,
			"description": p.Description,
		})
	}
	return []string{"name", "executor", "timeout", "description"}, rows
}

func executorOf(p config.Profile) string {
	if p.SSHProxy != "" {
		return ExecutorSSH
	}
	return ExecutorLocal
}

// ListProfiles 按名字排序列出所有 profile。
func ListProfiles(cfg config.File, cfgPath string) ProfileList {
	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	list := ProfileList{ConfigPath: cfgPath, Profiles: make([]ProfileSummary, 0, len(names))}
	for _, name := range names {
		p := cfg.Profiles[name]
		list.Profiles = append(list.Profiles, ProfileSummary{
			Name:        name,
			Description: p.Description,
			Executor:    executorOf(p),
			Timeout:     p.Timeout,
		})
	}
	return list
}

// ShowProfile 返回 profile 详情，passphrase 一律打码。
func ShowProfile(cfg config.File, cfgPath, name string) (map[string]any, *errors.XError) {
	p, ok := cfg.Profiles[name]
	if !ok {
		return nil, errors.New(errors.CodeCfgInvalid, "profile not found", map[string]any{"name": name})
	}
	result := map[string]any{
		"config_path":           cfgPath,
		"name":                  name,
		"description":           p.Description,
		"command":               p.Command,
		"executor":              executorOf(p),
		"timeout":               p.Timeout,
		"allow_plaintext":       p.AllowPlaintext,
		"uses_current_password": template.WantsCurrentPassword(p.Command),
	}
	if p.SSHProxy != "" {
		result["ssh_proxy"] = p.SSHProxy
		if proxy, ok := cfg.SSHProxies[p.SSHProxy]; ok {
			result["ssh_host"] = proxy.Host
			result["ssh_port"] = proxy.Port
			result["ssh_user"] = proxy.User
			if proxy.IdentityFile != "" {
				result["ssh_identity_file"] = proxy.IdentityFile
			}
			if proxy.Passphrase != "" {
				result["ssh_passphrase"] = "***"
			}
		}
	}
	return result, nil
}

// PreviewResult 是 preview 的输出：展开后的命令与是否需要当前密码。
type PreviewResult struct {
	Profile             string `json:"profile" yaml:"profile"`
	User                string `json:"user" yaml:"user"`
	Template            string `json:"template" yaml:"template"`
	Command             string `json:"command" yaml:"command"`
	CurrentPasswordPipe bool   `json:"current_password_pipe" yaml:"current_password_pipe"`
	Executor            string `json:"executor" yaml:"executor"`
	Host                string `json:"host,omitempty" yaml:"host,omitempty"`
}

// Preview 展开命令但不执行。远程 profile 使用 %currpasspipe 时返回与 change 相同的错误。
func Preview(profileName string, p config.Profile, id template.Identity) (PreviewResult, *errors.XError) {
	plan, xe := template.Prepare(p.Command, id)
	if xe != nil {
		return PreviewResult{}, xe
	}
	res := PreviewResult{
		Profile:             profileName,
		User:                id.Username,
		Template:            plan.Template,
		Command:             plan.Command,
		CurrentPasswordPipe: plan.CurrentPasswordPipe,
		Executor:            ExecutorLocal,
	}
	if p.SSHConfig != nil {
		res.Executor = ExecutorSSH
		res.Host = p.SSHConfig.Host
		if plan.CurrentPasswordPipe {
			return PreviewResult{}, errors.New(errors.CodeCfgInvalid, template.TokenCurrPassPipe+" is not supported with ssh_proxy", map[string]any{"host": p.SSHConfig.Host})
		}
	}
	return res, nil
}
