package errors

// ExitCode 是进程退出码（稳定契约）。
type ExitCode int

const (
	ExitOK ExitCode = 0

	// 2: 参数/配置错误
	ExitConfig ExitCode = 2

	// 3: SSH 连接错误
	ExitConnect ExitCode = 3

	// 4: 外部命令无法启动
	ExitSpawn ExitCode = 4

	// 5: 外部命令非零退出或超时
	ExitExec ExitCode = 5

	// 10: 内部错误
	ExitInternal ExitCode = 10
)

func ExitCodeFor(code Code) ExitCode {
	switch code {
	case CodeCfgNotFound, CodeCfgInvalid, CodeSecretNotFound:
		return ExitConfig
	case CodeSSHAuthFailed, CodeSSHHostKeyMismatch, CodeSSHDialFailed:
		return ExitConnect
	case CodeSpawnFailed:
		return ExitSpawn
	case CodeExecFailed, CodeExecTimeout:
		return ExitExec
	case CodeInternal:
		fallthrough
	default:
		return ExitInternal
	}
}
