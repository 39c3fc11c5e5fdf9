package output

import "github.com/zx06/xpasswd/internal/errors"

// SchemaVersion 是输出信封的版本号；字段语义变化时递增。
const SchemaVersion = 1

type ErrorObject struct {
	Code    errors.Code    `json:"code" yaml:"code"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// Envelope 是 CLI 与 MCP 工具共用的输出结构：OK 时带 Data，否则带 Error。
type Envelope struct {
	OK            bool         `json:"ok" yaml:"ok"`
	SchemaVersion int          `json:"schema_version" yaml:"schema_version"`
	Error         *ErrorObject `json:"error,omitempty" yaml:"error,omitempty"`
	Data          any          `json:"data,omitempty" yaml:"data,omitempty"`
}

func OKEnvelope(data any) Envelope {
	return Envelope{OK: true, SchemaVersion: SchemaVersion, Data: data}
}

func ErrorEnvelope(xe *errors.XError) Envelope {
	return Envelope{
		OK:            false,
		SchemaVersion: SchemaVersion,
		Error:         &ErrorObject{Code: xe.Code, Message: xe.Message, Details: xe.Details},
	}
}

// ChangeResult 是一次成功修改密码的输出，不含任何密码。
type ChangeResult struct {
	Changed bool   `json:"changed" yaml:"changed"`
	User    string `json:"user" yaml:"user"`
	Profile string `json:"profile" yaml:"profile"`
}

func (r ChangeResult) ToTableData() ([]string, []map[string]any) {
	return []string{"profile", "user", "changed"}, []map[string]any{
		{"profile": r.Profile, "user": r.User, "changed": r.Changed},
	}
}
