package errors

// Code 是稳定错误码（字符串），供 AI/agent 与程序判断。
// 只增不改、不复用旧含义。
type Code string

const (
	// Config / args
	CodeCfgNotFound    Code = "XPASSWD_CFG_NOT_FOUND"
	CodeCfgInvalid     Code = "XPASSWD_CFG_INVALID"
	CodeSecretNotFound Code = "XPASSWD_SECRET_NOT_FOUND"

	// SSH（远程执行）
	CodeSSHAuthFailed      Code = "XPASSWD_SSH_AUTH_FAILED"
	CodeSSHHostKeyMismatch Code = "XPASSWD_SSH_HOSTKEY_MISMATCH"
	CodeSSHDialFailed      Code = "XPASSWD_SSH_DIAL_FAILED"

	// 子进程
	CodeSpawnFailed Code = "XPASSWD_SPAWN_FAILED"
	CodeExecFailed  Code = "XPASSWD_EXEC_FAILED"
	CodeExecTimeout Code = "XPASSWD_EXEC_TIMEOUT"

	// Internal
	CodeInternal Code = "XPASSWD_INTERNAL"
)

func AllCodes() []Code {
	return []Code{
		CodeCfgNotFound,
		CodeCfgInvalid,
		CodeSecretNotFound,
		CodeSSHAuthFailed,
		CodeSSHHostKeyMismatch,
		CodeSSHDialFailed,
		CodeSpawnFailed,
		CodeExecFailed,
		CodeExecTimeout,
		CodeInternal,
	}
}
