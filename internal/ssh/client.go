package ssh

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/zx06/xpasswd/internal/errors"
)

const dialTimeout = 15 * time.Second

// Client 包装 ssh.Client，用于在目录服务器上执行密码修改命令。
type Client struct {
	client *ssh.Client
}

// Connect 建立 SSH 连接。
func Connect(ctx context.Context, opts Options) (*Client, *errors.XError) {
	if opts.Host == "" {
		return nil, errors.New(errors.CodeCfgInvalid, "ssh host is required", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Port == 0 {
		opts.Port = 22
	}
	if opts.User == "" {
		opts.User = os.Getenv("USER")
		if opts.User == "" {
			opts.User = os.Getenv("USERNAME")
		}
	}

	authMethods, xe := buildAuthMethods(opts)
	if xe != nil {
		return nil, xe
	}

	hostKeyCallback, xe := buildHostKeyCallback(opts)
	if xe != nil {
		return nil, xe
	}

	config := &ssh.ClientConfig{
		User:            opts.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         dialTimeout,
	}

	addr := net.JoinHostPort(opts.Host, fmt.Sprint(opts.Port))
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.CodeExecTimeout, "ssh connect did not finish in time", map[string]any{"host": opts.Host}, ctx.Err())
		}
		return nil, errors.Wrap(errors.CodeSSHDialFailed, "failed to connect to ssh server", map[string]any{"host": opts.Host}, err)
	}

	// 握手不受 DialContext 约束：设置连接 deadline，ctx 取消时关闭连接。
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(dialTimeout)
	}
	_ = conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if !stop() && err == nil {
		c.Close()
		return nil, errors.Wrap(errors.CodeExecTimeout, "ssh handshake did not finish in time", map[string]any{"host": opts.Host}, ctx.Err())
	}
	if err != nil {
		conn.Close()
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return nil, errors.Wrap(errors.CodeExecTimeout, "ssh handshake did not finish in time", map[string]any{"host": opts.Host}, err)
		}
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, errors.Wrap(errors.CodeSSHAuthFailed, "ssh authentication failed", map[string]any{"host": opts.Host}, err)
		}
		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) {
			return nil, errors.Wrap(errors.CodeSSHHostKeyMismatch, "ssh host key mismatch", map[string]any{"host": opts.Host}, err)
		}
		return nil, errors.Wrap(errors.CodeSSHDialFailed, "ssh handshake failed", map[string]any{"host": opts.Host}, err)
	}
	_ = conn.SetDeadline(time.Time{})
	return &Client{client: ssh.NewClient(c, chans, reqs)}, nil
}

// Run 在远端执行 command，stdin 作为远端标准输入，返回远端退出码。
// 远端命令非零退出不是错误；ctx 结束时向远端发送 KILL 并关闭连接，之后 Client 不可再用。
func (c *Client) Run(ctx context.Context, command string, stdin io.Reader, stderr io.Writer) (int, *errors.XError) {
	// 打开会话同样可能被对端拖住，ctx 结束时关闭整个连接。
	stop := context.AfterFunc(ctx, func() { c.client.Close() })
	session, err := c.client.NewSession()
	if err != nil {
		stop()
		return -1, startError(ctx, "failed to open ssh session", err)
	}
	defer session.Close()

	session.Stdin = stdin
	session.Stderr = stderr
	err = session.Start(command)
	if !stop() {
		return -1, errors.Wrap(errors.CodeExecTimeout, "remote command did not finish in time", nil, ctx.Err())
	}
	if err != nil {
		return -1, startError(ctx, "failed to start remote command", err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case err := <-done:
		return exitStatus(err)
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		_ = c.client.Close()
		<-done
		return -1, errors.Wrap(errors.CodeExecTimeout, "remote command did not finish in time", nil, ctx.Err())
	}
}

func startError(ctx context.Context, msg string, err error) *errors.XError {
	if ctx.Err() != nil {
		return errors.Wrap(errors.CodeExecTimeout, "remote command did not finish in time", nil, err)
	}
	return errors.Wrap(errors.CodeSpawnFailed, msg, nil, err)
}

func exitStatus(err error) (int, *errors.XError) {
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return -1, errors.Wrap(errors.CodeExecFailed, "remote command ended without exit status", nil, err)
}

// Close 关闭 SSH 连接。
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func buildAuthMethods(opts Options) ([]ssh.AuthMethod, *errors.XError) {
	var methods []ssh.AuthMethod

	// 私钥认证
	if opts.IdentityFile != "" {
		keyPath := expandPath(opts.IdentityFile)
		keyData, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, errors.Wrap(errors.CodeCfgInvalid, "failed to read ssh identity file", map[string]any{"path": keyPath}, err)
		}
		var signer ssh.Signer
		if opts.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(opts.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyData)
		}
		if err != nil {
			return nil, errors.Wrap(errors.CodeSSHAuthFailed, "failed to parse ssh private key", nil, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	// 尝试默认私钥路径
	if len(methods) == 0 {
		for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
			keyPath := expandPath("~/.ssh/" + name)
			if keyData, err := os.ReadFile(keyPath); err == nil {
				if signer, err := ssh.ParsePrivateKey(keyData); err == nil {
					methods = append(methods, ssh.PublicKeys(signer))
					break
				}
			}
		}
	}

	if len(methods) == 0 {
		return nil, errors.New(errors.CodeSSHAuthFailed, "no ssh authentication method available", nil)
	}
	return methods, nil
}

func buildHostKeyCallback(opts Options) (ssh.HostKeyCallback, *errors.XError) {
	if opts.SkipKnownHostsCheck {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	khPath := opts.KnownHostsFile
	if khPath == "" {
		khPath = DefaultKnownHostsPath()
	}
	khPath = expandPath(khPath)
	cb, err := knownhosts.New(khPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeSSHHostKeyMismatch, "known_hosts file not found; set skip_host_key to bypass (not recommended)", map[string]any{"path": khPath})
		}
		return nil, errors.Wrap(errors.CodeSSHHostKeyMismatch, "failed to parse known_hosts", map[string]any{"path": khPath}, err)
	}
	return cb, nil
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[2:])
	}
	return p
}
